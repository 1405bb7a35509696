package handler

import (
	"ijaplastik-pos/internal/service"
	"ijaplastik-pos/pkg/validator"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService service.AuthService
}

func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login handles user authentication
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req service.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return badRequest(c, "Email dan password wajib diisi")
	}

	response, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"status": true, "token": response.Token, "user": response.User})
}

// Me returns the caller's profile
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.authService.Me(actorOf(c).ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "user": user})
}

// ChangePassword handles a password change by its owner
// POST /api/v1/auth/change-password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req service.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid JSON")
	}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return badRequest(c, validator.Message(errs))
	}

	if err := h.authService.ChangePassword(actorOf(c).ID, &req); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": true, "message": "Password berhasil diubah"})
}
