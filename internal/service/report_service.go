package service

import (
	"strconv"
	"strings"
	"time"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02"

var cashierReportHeader = []string{"receipt_no", "tanggal", "kasir", "items", "units_sold", "subtotal", "total", "payment"}

// ReportQuery is the raw query of the cashier report endpoints.
type ReportQuery struct {
	DateFrom  string
	DateTo    string
	CashierID string
	Page      int
	Limit     int
}

type CashierReport struct {
	Rows    []repository.CashierReportRow   `json:"rows"`
	Summary repository.CashierReportSummary `json:"summary"`
	Page    int                             `json:"page"`
	Limit   int                             `json:"limit"`
}

type ReportService interface {
	Cashiers() ([]model.UserResponse, error)
	CashierReport(q ReportQuery) (*CashierReport, error)
	CashierCSV(q ReportQuery) ([]byte, error)
	CashierXLSX(q ReportQuery) ([]byte, error)
}

type reportService struct {
	reportRepo repository.ReportRepository
	userRepo   repository.UserRepository
}

func NewReportService(reportRepo repository.ReportRepository, userRepo repository.UserRepository) ReportService {
	return &reportService{reportRepo: reportRepo, userRepo: userRepo}
}

// parseFilter turns the inclusive date range into [from, to+1d).
func parseFilter(q ReportQuery) (repository.SalesFilter, error) {
	var f repository.SalesFilter
	if q.DateFrom == "" || q.DateTo == "" {
		return f, apperr.Validation("date_from dan date_to wajib (YYYY-MM-DD)")
	}
	from, err := time.ParseInLocation(dateLayout, q.DateFrom, time.Local)
	if err != nil {
		return f, apperr.Validation("date_from harus YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(dateLayout, q.DateTo, time.Local)
	if err != nil {
		return f, apperr.Validation("date_to harus YYYY-MM-DD")
	}
	if to.Before(from) {
		return f, apperr.Validation("date_to tidak boleh sebelum date_from")
	}
	f.From = from
	f.To = to.AddDate(0, 0, 1)

	if q.CashierID != "" {
		id, err := uuid.Parse(q.CashierID)
		if err != nil {
			return f, apperr.Validation("cashier_id tidak valid")
		}
		f.CashierID = &id
	}
	return f, nil
}

func (s *reportService) Cashiers() ([]model.UserResponse, error) {
	users, err := s.userRepo.FindActiveByRole(model.RoleCashier)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserResponse, len(users))
	for i := range users {
		out[i] = users[i].ToResponse()
	}
	return out, nil
}

func (s *reportService) CashierReport(q ReportQuery) (*CashierReport, error) {
	filter, err := parseFilter(q)
	if err != nil {
		return nil, err
	}
	filter.Page = q.Page
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.Limit = q.Limit
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}

	rows, err := s.reportRepo.CashierRows(filter)
	if err != nil {
		return nil, err
	}
	summary, err := s.reportRepo.CashierSummary(filter)
	if err != nil {
		return nil, err
	}
	return &CashierReport{Rows: rows, Summary: summary, Page: filter.Page, Limit: filter.Limit}, nil
}

// exportRows loads every row of the range for file exports.
func (s *reportService) exportRows(q ReportQuery) ([]repository.CashierReportRow, error) {
	filter, err := parseFilter(q)
	if err != nil {
		return nil, err
	}
	return s.reportRepo.CashierRows(filter)
}

func rowValues(r repository.CashierReportRow) []string {
	return []string{
		r.ReceiptNo,
		r.CreatedAt.Format("2006-01-02 15:04:05"),
		r.CashierName,
		strconv.FormatInt(r.ItemCount, 10),
		strconv.FormatInt(r.UnitsSold, 10),
		r.Subtotal.StringFixed(2),
		r.Total.StringFixed(2),
		string(r.PaymentMethod),
	}
}

// quoteCSV always quotes, doubling embedded quotes.
func quoteCSV(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func writeCSVLine(b *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quoteCSV(f))
	}
	b.WriteByte('\n')
}

func (s *reportService) CashierCSV(q ReportQuery) ([]byte, error) {
	rows, err := s.exportRows(q)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	writeCSVLine(&b, cashierReportHeader)
	for _, r := range rows {
		writeCSVLine(&b, rowValues(r))
	}
	return []byte(b.String()), nil
}

func (s *reportService) CashierXLSX(q ReportQuery) ([]byte, error) {
	rows, err := s.exportRows(q)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Laporan Kasir"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	for i, h := range cashierReportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	for n, r := range rows {
		values := []interface{}{
			r.ReceiptNo,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.CashierName,
			r.ItemCount,
			r.UnitsSold,
			r.Subtotal.InexactFloat64(),
			r.Total.InexactFloat64(),
			string(r.PaymentMethod),
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, n+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(cashierReportHeader))
	if err := f.AutoFilter(sheet, "A1:"+lastCol+"1", []excelize.AutoFilterOptions{}); err != nil {
		return nil, err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, Split: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, err
	}
	f.SetColWidth(sheet, "A", "C", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
