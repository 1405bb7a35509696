package notify

import (
	"fmt"
	"strings"

	"ijaplastik-pos/internal/model"

	"github.com/shopspring/decimal"
)

const maxPOLines = 8

// POLine is one item summary line in a purchase-order message.
type POLine struct {
	Name         string
	QtyPack      int
	PricePerPack decimal.Decimal
}

func StockAlertMessage(adminName string, p *model.Product, status model.StockStatus) string {
	var threshold string
	switch status {
	case model.StockLow:
		if p.MinStockUnits != nil {
			threshold = fmt.Sprintf("Batas minimum: %d %s", *p.MinStockUnits, p.UnitName)
		}
	case model.StockOver:
		if p.MaxStockUnits != nil {
			threshold = fmt.Sprintf("Batas maksimum: %d %s", *p.MaxStockUnits, p.UnitName)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Halo %s,\n", adminName)
	fmt.Fprintf(&b, "*%s*\n\n", status.Label())
	fmt.Fprintf(&b, "Produk: %s\n", p.Name)
	fmt.Fprintf(&b, "Stok saat ini: %d %s\n", p.StockUnits, p.UnitName)
	if threshold != "" {
		b.WriteString(threshold + "\n")
	}
	b.WriteString("\nMohon segera ditindaklanjuti.")
	return b.String()
}

// POCreatedMessage lists at most eight item lines; the rest are summarized.
func POCreatedMessage(supplierName, storeName, code string, lines []POLine, note string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Halo %s,\n", supplierName)
	fmt.Fprintf(&b, "Pesanan pembelian *%s* dari %s telah dibuat.\n\n", code, storeName)
	b.WriteString("Rincian singkat:\n")
	for i, l := range lines {
		if i == maxPOLines {
			fmt.Fprintf(&b, "…dan %d item lainnya\n", len(lines)-maxPOLines)
			break
		}
		fmt.Fprintf(&b, "• %s — %d pack @ %s\n", l.Name, l.QtyPack, FormatRupiah(l.PricePerPack))
	}
	if note == "" {
		note = "-"
	}
	fmt.Fprintf(&b, "\nCatatan: %s\n\n", note)
	b.WriteString("Mohon konfirmasi di sistem atau balas pesan ini.\nTerima kasih.")
	return b.String()
}

// FormatRupiah renders an amount with Indonesian thousand separators, e.g.
// 1250000 -> "1.250.000". Fractions are rounded to whole rupiah.
func FormatRupiah(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
