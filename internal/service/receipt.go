package service

import (
	"html/template"
	"strings"

	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/notify"

	"github.com/shopspring/decimal"
)

var receiptTmpl = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"rp":    notify.FormatRupiah,
	"upper": strings.ToUpper,
	"rpPtr": func(d *decimal.Decimal) string {
		if d == nil {
			return "0"
		}
		return notify.FormatRupiah(*d)
	},
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8" />
  <title>{{.Sale.ReceiptNo}}</title>
  <style>
    body { font-family: ui-monospace, Menlo, Consolas, "Courier New", monospace; margin: 0; padding: 8px; }
    .wrap { width: 280px; }
    .center { text-align: center; }
    .muted { color: #666; font-size: 12px; }
    h3 { margin: 0 0 4px; font-size: 14px; }
    hr { border: 0; border-top: 1px dashed #999; margin: 6px 0; }
    table { width: 100%; border-collapse: collapse; }
    td { vertical-align: top; font-size: 12px; }
    .name { font-weight: 600; }
    .meta { color: #666; font-size: 11px; }
    .val { text-align: right; white-space: nowrap; }
    .grand td { font-weight: 700; font-size: 13px; padding-top: 4px; }
    .footer { margin-top: 8px; text-align: center; font-size: 12px; }
    @media print { body { margin: 0; } .wrap { width: auto; } }
  </style>
</head>
<body>
  <div class="wrap">
    <div class="center">
      <h3>{{.Store}}</h3>
      <div class="muted">Receipt: {{.Sale.ReceiptNo}}</div>
      <div class="muted">{{.Date}}</div>
      <div class="muted">Kasir: {{.Cashier}}</div>
      <div class="muted">Metode: {{upper (print .Sale.PaymentMethod)}}</div>
    </div>
    <hr/>
    <table>
      <tbody>
      {{- range .Sale.Items}}
        <tr class="item">
          <td>
            <div class="name">{{if .Product}}{{.Product.Name}}{{else}}-{{end}} ({{.UnitType}})</div>
            <div class="meta">{{rp .Price}} × {{.Qty}}</div>
          </td>
          <td class="val">{{rp .LineTotal}}</td>
        </tr>
      {{- else}}
        <tr><td class="muted">Tidak ada item</td><td></td></tr>
      {{- end}}
      </tbody>
    </table>
    <hr/>
    <table class="totals">
      <tbody>
        <tr><td>Subtotal</td><td class="val">{{rp .Sale.Subtotal}}</td></tr>
        <tr class="grand"><td>Total</td><td class="val">{{rp .Sale.Total}}</td></tr>
        {{- if .Cash}}
        <tr><td>Tunai</td><td class="val">{{rpPtr .Sale.CashReceived}}</td></tr>
        <tr><td>Kembalian</td><td class="val">{{rpPtr .Sale.ChangeAmount}}</td></tr>
        {{- end}}
      </tbody>
    </table>
    <div class="footer">Terima kasih</div>
  </div>
</body>
</html>
`))

func renderReceipt(store string, sale *model.Sale) (string, error) {
	cashier := "-"
	if sale.Cashier != nil && sale.Cashier.FullName != "" {
		cashier = sale.Cashier.FullName
	}
	var b strings.Builder
	err := receiptTmpl.Execute(&b, map[string]interface{}{
		"Store":   store,
		"Sale":    sale,
		"Cashier": cashier,
		"Date":    sale.CreatedAt.Format("02/01/2006 15:04"),
		"Cash":    sale.PaymentMethod == model.PayCash,
	})
	return b.String(), err
}
