package handler

import (
	"ijaplastik-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ReportHandler struct {
	service service.ReportService
}

func NewReportHandler(s service.ReportService) *ReportHandler {
	return &ReportHandler{service: s}
}

func reportQuery(c *fiber.Ctx) service.ReportQuery {
	return service.ReportQuery{
		DateFrom:  c.Query("date_from"),
		DateTo:    c.Query("date_to"),
		CashierID: c.Query("cashier_id"),
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 50),
	}
}

func exportName(q service.ReportQuery, ext string) string {
	return "laporan-kasir_" + q.DateFrom + "_" + q.DateTo + "." + ext
}

// GET /api/v1/reports/cashiers
func (h *ReportHandler) GetCashiers(c *fiber.Ctx) error {
	cashiers, err := h.service.Cashiers()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": cashiers})
}

// GET /api/v1/reports/cashier?date_from=&date_to=&cashier_id=&page=&limit=
func (h *ReportHandler) GetCashierReport(c *fiber.Ctx) error {
	report, err := h.service.CashierReport(reportQuery(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{
		"status":  true,
		"rows":    report.Rows,
		"summary": report.Summary,
		"page":    report.Page,
		"limit":   report.Limit,
	})
}

// GET /api/v1/reports/cashier.csv
func (h *ReportHandler) ExportCSV(c *fiber.Ctx) error {
	q := reportQuery(c)
	body, err := h.service.CashierCSV(q)
	if err != nil {
		return fail(c, err)
	}
	c.Attachment(exportName(q, "csv"))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	return c.Send(body)
}

// GET /api/v1/reports/cashier.xlsx
func (h *ReportHandler) ExportXLSX(c *fiber.Ctx) error {
	q := reportQuery(c)
	body, err := h.service.CashierXLSX(q)
	if err != nil {
		return fail(c, err)
	}
	c.Attachment(exportName(q, "xlsx"))
	c.Set(fiber.HeaderContentType, xlsxMIME)
	return c.Send(body)
}
