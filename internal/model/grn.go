package model

import (
	"time"

	"github.com/google/uuid"
)

// GrnReceipt is one goods-receipt event against a purchase order; a PO can
// collect several of them.
type GrnReceipt struct {
	BaseModel
	PurchaseOrderID uuid.UUID        `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	ReceivedByID    *uuid.UUID       `gorm:"type:uuid" json:"received_by"`
	Note            string           `gorm:"type:text" json:"note"`
	ReceivedAt      time.Time        `gorm:"not null" json:"received_at"`
	Items           []GrnReceiptItem `gorm:"foreignKey:GrnReceiptID" json:"items,omitempty"`
	Returns         []SupplierReturn `gorm:"foreignKey:GrnReceiptID" json:"returns,omitempty"`
}

type GrnReceiptItem struct {
	BaseModel
	GrnReceiptID uuid.UUID `gorm:"type:uuid;not null;index" json:"grn_receipt_id"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	QtyPack      int       `gorm:"not null" json:"qty_pack"`
}

// SupplierReturn records a shortfall between ordered and delivered packs.
// It never moves stock.
type SupplierReturn struct {
	BaseModel
	GrnReceiptID    uuid.UUID `gorm:"type:uuid;not null;index" json:"grn_receipt_id"`
	PurchaseOrderID uuid.UUID `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	ProductID       uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	QtyPack         int       `gorm:"not null" json:"qty_pack"`
	Reason          string    `gorm:"type:text;not null" json:"reason"`
}
