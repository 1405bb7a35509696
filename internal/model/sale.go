package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UnitType string

const (
	UnitSingle UnitType = "unit"
	UnitPack   UnitType = "pack"
)

type PaymentMethod string

const (
	PayCash PaymentMethod = "cash"
	PayQRIS PaymentMethod = "qris"
	PayCard PaymentMethod = "card"
)

func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch m := PaymentMethod(raw); m {
	case PayCash, PayQRIS, PayCard:
		return m, true
	}
	return "", false
}

type Sale struct {
	BaseModel
	ReceiptNo     string           `gorm:"type:varchar(40);index;not null" json:"receipt_no"`
	CashierID     uuid.UUID        `gorm:"type:uuid;not null;index" json:"cashier_id"`
	Cashier       *User            `gorm:"foreignKey:CashierID" json:"cashier,omitempty"`
	Subtotal      decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	Total         decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"total"`
	PaymentMethod PaymentMethod    `gorm:"type:varchar(10);not null" json:"payment_method"`
	CustomerName  string           `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	CashReceived  *decimal.Decimal `gorm:"type:numeric(14,2)" json:"cash_received"`
	ChangeAmount  *decimal.Decimal `gorm:"type:numeric(14,2)" json:"change_amount"`
	Items         []SaleItem       `gorm:"foreignKey:SaleID" json:"items,omitempty"`
}

type SaleItem struct {
	BaseModel
	SaleID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	UnitType  UnitType        `gorm:"type:varchar(10);not null" json:"unit_type"`
	Qty       int             `gorm:"not null" json:"qty"`
	Price     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"line_total"`
}
