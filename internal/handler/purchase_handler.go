package handler

import (
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type PurchaseHandler struct {
	service service.PurchaseService
}

func NewPurchaseHandler(s service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{service: s}
}

// POST /api/v1/purchase
func (h *PurchaseHandler) CreatePO(c *fiber.Ctx) error {
	var req service.CreatePORequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	po, err := h.service.Create(&req, actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": true, "data": po})
}

// POST /api/v1/purchase/:id/send
func (h *PurchaseHandler) SendPO(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	po, err := h.service.Send(id, actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": po})
}

// PATCH /api/v1/purchase/:id/items/decision
func (h *PurchaseHandler) DecideItems(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	po, err := h.service.Decide(id, &req, actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": po})
}

// ConfirmPO accepts an optional body with last-minute decisions.
// POST /api/v1/purchase/:id/confirm
func (h *PurchaseHandler) ConfirmPO(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.DecisionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid JSON")
		}
	}
	po, err := h.service.Confirm(id, &req, actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": po})
}

// POST /api/v1/purchase/:id/receive
func (h *PurchaseHandler) ReceivePO(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.ReceiveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	res, err := h.service.Receive(id, &req, actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": res})
}

// GET /api/v1/purchase/:id/receive-detail
func (h *PurchaseHandler) ReceiveDetail(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	detail, err := h.service.ReceiveDetail(id, actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": detail})
}

// GET /api/v1/purchase?search=&status=&page=&limit=
func (h *PurchaseHandler) ListPO(c *fiber.Ctx) error {
	filter := repository.POFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
	}
	rows, total, err := h.service.List(filter)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": rows, "total": total, "page": filter.Page})
}

// GET /api/v1/purchase/mine
func (h *PurchaseHandler) ListMine(c *fiber.Ctx) error {
	rows, err := h.service.ListMine(actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": rows})
}

// GET /api/v1/purchase/:id
func (h *PurchaseHandler) GetPO(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	po, err := h.service.Get(id, actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": po})
}
