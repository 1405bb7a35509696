package service

import (
	"errors"
	"math/rand"
	"strconv"
	"time"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID         uuid.UUID
	Name       string
	Role       string
	SupplierID *uuid.UUID
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

func (a Actor) audit() string { return a.ID.String() }

// Outbox accepts notifications for asynchronous delivery.
type Outbox interface {
	Enqueue(notifs ...*model.Notification) error
}

// EventPublisher pushes realtime events to connected dashboards.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, interface{}) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// validateRequest runs the struct tags of a request DTO and reports the
// first failure as a Validation error.
func validateRequest(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return apperr.Validation("%s", validator.Message(errs))
	}
	return nil
}

// notFoundAs maps gorm's missing-row error to a NotFound with msg and passes
// anything else through.
func notFoundAs(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s", msg)
	}
	return err
}

// dailyCode builds codes like PO-20260101-123 with a random numeric suffix of
// the given width. Collisions are not checked.
func dailyCode(prefix string, now time.Time, digits int) string {
	lo, span := 1, 9
	for i := 1; i < digits; i++ {
		lo *= 10
		span *= 10
	}
	n := lo + rand.Intn(span)
	return prefix + "-" + now.Format("20060102") + "-" + strconv.Itoa(n)
}
