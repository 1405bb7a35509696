package handler

import (
	"time"

	"ijaplastik-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
	alerts  service.StockAlertService
}

func NewDashboardHandler(s service.DashboardService, alerts service.StockAlertService) *DashboardHandler {
	return &DashboardHandler{service: s, alerts: alerts}
}

// GetSummary returns today's totals, top products, low stock and the
// 14-day revenue series
// GET /api/v1/dashboard/summary
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(time.Now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": summary})
}

// TestStockAlert re-evaluates one product's status and queues alerts on a
// change. Only mounted outside production.
// POST /api/v1/dev/test-stock-alert/:productId
func (h *DashboardHandler) TestStockAlert(c *fiber.Ctx) error {
	id, err := paramID(c, "productId")
	if err != nil {
		return fail(c, err)
	}
	res, err := h.alerts.EvaluateAndNotify(id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": res})
}
