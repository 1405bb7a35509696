package middleware

import (
	"errors"
	"strings"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Authenticator resolves a bearer token to the calling actor.
type Authenticator interface {
	Authenticate(tokenString string) (*service.Actor, error)
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": false, "message": msg})
}

// RequireAuth validates the JWT and its token version, then stores the actor
// in the request locals.
func RequireAuth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Get Authorization header
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Missing authorization token")
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return unauthorized(c, "Invalid authorization format. Use: Bearer <token>")
		}

		actor, err := auth.Authenticate(parts[1])
		if err != nil {
			var appErr *apperr.Error
			if errors.As(err, &appErr) {
				return unauthorized(c, appErr.Error())
			}
			return err
		}

		// Set user info in context for downstream handlers
		c.Locals("actor", *actor)
		c.Locals("user_id", actor.ID.String())
		c.Locals("user_name", actor.Name)
		c.Locals("user_role", actor.Role)
		if actor.SupplierID != nil {
			c.Locals("supplier_id", actor.SupplierID.String())
		}

		return c.Next()
	}
}

// RequireRole lets the request through when the caller holds one of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("user_role").(string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"status": false, "message": "No role found"})
		}

		for _, r := range roles {
			if role == r {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"status":  false,
			"message": "Forbidden: requires role " + strings.Join(roles, " or "),
		})
	}
}

// ActorFrom returns the actor stored by RequireAuth.
func ActorFrom(c *fiber.Ctx) (service.Actor, bool) {
	actor, ok := c.Locals("actor").(service.Actor)
	return actor, ok
}
