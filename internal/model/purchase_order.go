package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// POStatus is the purchase-order life cycle state. Legal moves are defined
// only by Transition.
type POStatus string

const (
	POStatusDraft     POStatus = "draft"
	POStatusSent      POStatus = "sent"
	POStatusConfirmed POStatus = "confirmed"
	POStatusReceived  POStatus = "received"
)

type POEvent string

const (
	POEventSend    POEvent = "send"
	POEventConfirm POEvent = "confirm"
	POEventReceive POEvent = "receive"
)

var poTransitions = map[POEvent]struct {
	from []POStatus
	to   POStatus
}{
	POEventSend:    {from: []POStatus{POStatusDraft}, to: POStatusSent},
	POEventConfirm: {from: []POStatus{POStatusDraft, POStatusSent}, to: POStatusConfirmed},
	POEventReceive: {from: []POStatus{POStatusDraft, POStatusSent, POStatusConfirmed}, to: POStatusReceived},
}

// TransitionError rejects an event that is illegal in the current state.
type TransitionError struct {
	From  POStatus
	Event POEvent
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("PO berstatus '%s' tidak bisa di-%s", e.From, e.Event)
}

func ParsePOStatus(raw string) (POStatus, bool) {
	switch s := POStatus(raw); s {
	case POStatusDraft, POStatusSent, POStatusConfirmed, POStatusReceived:
		return s, true
	}
	return "", false
}

// Transition returns the state reached by applying ev to s.
func (s POStatus) Transition(ev POEvent) (POStatus, error) {
	rule, ok := poTransitions[ev]
	if !ok {
		return s, &TransitionError{From: s, Event: ev}
	}
	for _, from := range rule.from {
		if s == from {
			return rule.to, nil
		}
	}
	return s, &TransitionError{From: s, Event: ev}
}

// Can reports whether ev is legal from s.
func (s POStatus) Can(ev POEvent) bool {
	_, err := s.Transition(ev)
	return err == nil
}

// SupplierDecision is a supplier's per-line answer to a PO item.
type SupplierDecision string

const (
	DecisionPending SupplierDecision = "pending"
	DecisionSend    SupplierDecision = "send"
	DecisionNoSend  SupplierDecision = "nosend"
)

func ParseDecision(raw string) (SupplierDecision, bool) {
	switch d := SupplierDecision(raw); d {
	case DecisionPending, DecisionSend, DecisionNoSend:
		return d, true
	}
	return "", false
}

type PurchaseOrder struct {
	BaseModel
	Code          string              `gorm:"type:varchar(40);index;not null" json:"code"`
	SupplierID    uuid.UUID           `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier      *Supplier           `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	RequestedByID uuid.UUID           `gorm:"type:uuid;not null" json:"requested_by"`
	RequestedBy   *User               `gorm:"foreignKey:RequestedByID" json:"-"`
	Status        POStatus            `gorm:"type:varchar(20);not null;index" json:"status"`
	Note          string              `gorm:"type:text" json:"note"`
	SentAt        *time.Time          `json:"sent_at"`
	ConfirmedAt   *time.Time          `json:"confirmed_at"`
	ReceivedAt    *time.Time          `json:"received_at"`
	Items         []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID" json:"items,omitempty"`
}

type PurchaseOrderItem struct {
	BaseModel
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product         *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	QtyPack         int             `gorm:"not null" json:"qty_pack"`
	PricePerPack    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"price_per_pack"`

	SupplierDecision     SupplierDecision `gorm:"type:varchar(10);not null;default:'pending'" json:"supplier_decision"`
	SupplierNote         string           `gorm:"type:text" json:"supplier_note"`
	SupplierPricePerPack *decimal.Decimal `gorm:"type:numeric(14,2)" json:"supplier_price_per_pack"`
	DecidedAt            *time.Time       `json:"decided_at"`
}

// ApplyDecision sets the supplier's answer. `send` needs a positive price;
// `nosend` always clears it.
func (it *PurchaseOrderItem) ApplyDecision(d SupplierDecision, price *decimal.Decimal, note string, at time.Time) error {
	switch d {
	case DecisionSend:
		if price == nil || !price.IsPositive() {
			return fmt.Errorf("supplier_price_per_pack harus > 0 untuk keputusan send")
		}
		p := *price
		it.SupplierPricePerPack = &p
	case DecisionNoSend:
		it.SupplierPricePerPack = nil
	default:
		return fmt.Errorf("keputusan supplier harus send atau nosend")
	}
	it.SupplierDecision = d
	it.SupplierNote = note
	it.DecidedAt = &at
	return nil
}

// ReadyToConfirm checks that every line is decided and every `send` line is
// priced; it returns the first offending item.
func ReadyToConfirm(items []PurchaseOrderItem) (*PurchaseOrderItem, bool) {
	for i := range items {
		it := &items[i]
		switch it.SupplierDecision {
		case DecisionSend:
			if it.SupplierPricePerPack == nil || !it.SupplierPricePerPack.IsPositive() {
				return it, false
			}
		case DecisionNoSend:
		default:
			return it, false
		}
	}
	return nil, true
}
