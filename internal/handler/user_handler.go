package handler

import (
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService service.UserService
}

func NewUserHandler(userService service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetUsers returns active users
// GET /api/v1/users?search=&role=
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	users, err := h.userService.List(repository.UserFilter{
		Search: c.Query("search"),
		Role:   c.Query("role"),
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": users})
}

// CreateUser handles user creation
// POST /api/v1/users
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req service.CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}

	user, err := h.userService.Create(&req, actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"status": true, "data": user})
}

// UpdateUser applies a partial update
// PUT /api/v1/users/:id
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req service.UpdateUserRequest
	if err := decodeStrict(c.Body(), &req); err != nil {
		return fail(c, err)
	}

	user, err := h.userService.Update(id, &req, actorOf(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "data": user})
}

// DeleteUser deactivates the account
// DELETE /api/v1/users/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	if err := h.userService.Deactivate(id, actorOf(c)); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "message": "User dinonaktifkan"})
}

// ResetPassword sets the body's password or the configured default
// POST /api/v1/users/:id/reset-password
func (h *UserHandler) ResetPassword(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	var req struct {
		Password string `json:"password"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid JSON")
		}
	}

	if err := h.userService.ResetPassword(id, req.Password); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "message": "Password direset"})
}
