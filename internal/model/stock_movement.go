package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MovementDirection string

const (
	MovementIn  MovementDirection = "in"
	MovementOut MovementDirection = "out"
)

type MovementSource string

const (
	SourceInit       MovementSource = "init"
	SourcePurchase   MovementSource = "purchase"
	SourceSale       MovementSource = "sale"
	SourceAdjustment MovementSource = "adjustment"
)

// StockMovement is an append-only ledger entry. Rows are never updated or
// deleted, so it carries no soft delete column.
type StockMovement struct {
	ID        uuid.UUID         `gorm:"type:uuid;primary_key;" json:"id"`
	ProductID uuid.UUID         `gorm:"type:uuid;not null;index" json:"product_id"`
	Direction MovementDirection `gorm:"type:varchar(3);not null" json:"direction"`
	Source    MovementSource    `gorm:"type:varchar(20);not null" json:"source"`
	RefTable  string            `gorm:"type:varchar(50)" json:"ref_table"`
	RefID     *uuid.UUID        `gorm:"type:uuid" json:"ref_id"`
	QtyUnits  int               `gorm:"not null" json:"qty_units"`
	Note      string            `gorm:"type:text" json:"note"`
	CreatedBy string            `json:"created_by"`
	CreatedAt time.Time         `json:"created_at"`
}

// Delta is the signed change this movement applied to stock.
func (m *StockMovement) Delta() int {
	if m.Direction == MovementOut {
		return -m.QtyUnits
	}
	return m.QtyUnits
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
