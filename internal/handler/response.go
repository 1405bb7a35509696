package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/middleware"
	"ijaplastik-pos/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// fail renders err as {status:false,message}. Unclassified errors are logged
// and hidden behind a generic message.
func fail(c *fiber.Ctx, err error) error {
	code := apperr.StatusCode(err)
	if code == fiber.StatusInternalServerError {
		log.Printf("[http] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(code).JSON(fiber.Map{"status": false, "message": "Terjadi kesalahan pada server"})
	}
	return c.Status(code).JSON(fiber.Map{"status": false, "message": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"status": false, "message": msg})
}

// ErrorHandler is the fiber fallback for unmatched routes, body limits and
// recovered panics.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"status": false, "message": fe.Message})
	}
	return fail(c, err)
}

func actorOf(c *fiber.Ctx) service.Actor {
	actor, _ := middleware.ActorFrom(c)
	return actor
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("%s tidak valid", name)
	}
	return id, nil
}

// decodeStrict parses a JSON body and rejects fields the target does not
// declare.
func decodeStrict(body []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("Body tidak valid: %s", err.Error())
	}
	return nil
}
