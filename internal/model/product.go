package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StockLow    StockStatus = "LOW"
	StockNormal StockStatus = "NORMAL"
	StockOver   StockStatus = "OVER"
)

// Alerting reports whether entering this status notifies admins.
func (s StockStatus) Alerting() bool {
	return s == StockLow || s == StockOver
}

// Label is the Indonesian wording used in WhatsApp alerts.
func (s StockStatus) Label() string {
	switch s {
	case StockLow:
		return "STOK MENIPIS"
	case StockOver:
		return "STOK MELEBIHI BATAS"
	}
	return "STOK NORMAL"
}

// DeriveStockStatus evaluates LOW before OVER, so inverted thresholds that
// satisfy both report LOW.
func DeriveStockStatus(stock int, min, max *int) StockStatus {
	if min != nil && stock <= *min {
		return StockLow
	}
	if max != nil && stock >= *max {
		return StockOver
	}
	return StockNormal
}

type Product struct {
	BaseModel
	Name                  string          `gorm:"type:varchar(255);not null" json:"name"`
	SKU                   *string         `gorm:"type:varchar(64);uniqueIndex" json:"sku"`
	Category              string          `gorm:"type:varchar(100)" json:"category"`
	UnitName              string          `gorm:"type:varchar(30);not null" json:"unit_name"`
	PackSize              int             `gorm:"not null;default:1" json:"pack_size"`
	RetailPricePerUnit    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"retail_price_per_unit"`
	WholesalePricePerPack decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"wholesale_price_per_pack"`
	StockUnits            int             `gorm:"not null;default:0" json:"stock_units"`
	MinStockUnits         *int            `json:"min_stock_units"`
	MaxStockUnits         *int            `json:"max_stock_units"`

	LastStockStatus          StockStatus `gorm:"type:varchar(10);not null;default:'NORMAL'" json:"last_stock_status"`
	LastStockStatusChangedAt *time.Time  `json:"last_stock_status_changed_at"`

	ImageURL string `gorm:"type:varchar(500)" json:"image_url,omitempty"`
}

func (p *Product) CurrentStatus() StockStatus {
	return DeriveStockStatus(p.StockUnits, p.MinStockUnits, p.MaxStockUnits)
}

// UnitsFor converts a quantity of the given sale/order unit into base units.
func (p *Product) UnitsFor(unitType UnitType, qty int) int {
	if unitType == UnitPack {
		return qty * p.PackSize
	}
	return qty
}

// PriceFor picks the wholesale pack price or the retail unit price.
func (p *Product) PriceFor(unitType UnitType) decimal.Decimal {
	if unitType == UnitPack {
		return p.WholesalePricePerPack
	}
	return p.RetailPricePerUnit
}
