package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

var ErrNoToken = errors.New("FONNTE_TOKEN belum diset")

// Sender delivers one message to one normalized phone number.
type Sender interface {
	Send(ctx context.Context, target, message string) error
}

// Fonnte posts messages to a Fonnte-compatible WhatsApp gateway.
type Fonnte struct {
	url     string
	token   string
	timeout time.Duration
}

func NewFonnte(url, token string, timeout time.Duration) *Fonnte {
	return &Fonnte{url: url, token: token, timeout: timeout}
}

type fonnteResponse struct {
	Status bool   `json:"status"`
	Reason string `json:"reason"`
}

func (f *Fonnte) Send(ctx context.Context, target, message string) error {
	if f.token == "" {
		return ErrNoToken
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	a := fiber.Post(f.url)
	a.Set(fiber.HeaderAuthorization, f.token)

	args := fiber.AcquireArgs()
	args.Set("target", target)
	args.Set("message", message)
	args.Set("countryCode", "62")
	a.Form(args)
	fiber.ReleaseArgs(args)

	a.Timeout(f.timeout)
	if err := a.Parse(); err != nil {
		return fmt.Errorf("wa gateway request: %w", err)
	}

	// fiber's client has no context support; the call runs aside so a
	// cancelled ctx returns at once. The request itself ends by its timeout.
	done := make(chan error, 1)
	go func() {
		var resp fonnteResponse
		code, body, errs := a.Struct(&resp)
		switch {
		case len(errs) > 0:
			done <- fmt.Errorf("wa gateway: %w", errs[0])
		case code >= fiber.StatusMultipleChoices:
			done <- fmt.Errorf("wa gateway: http %d: %s", code, body)
		case !resp.Status:
			done <- fmt.Errorf("wa gateway rejected: %s", resp.Reason)
		default:
			done <- nil
		}
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
