package repository

import (
	"time"

	"ijaplastik-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesFilter selects sales created in [From, To). A zero Limit means no
// pagination.
type SalesFilter struct {
	From      time.Time
	To        time.Time
	CashierID *uuid.UUID
	Page      int
	Limit     int
}

type CashierReportRow struct {
	ID            uuid.UUID           `json:"id"`
	ReceiptNo     string              `json:"receipt_no"`
	CreatedAt     time.Time           `json:"created_at"`
	PaymentMethod model.PaymentMethod `json:"payment_method"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Total         decimal.Decimal     `json:"total"`
	CashierName   string              `json:"cashier_name"`
	ItemCount     int64               `json:"item_count"`
	UnitsSold     int64               `json:"units_sold"`
}

type CashierReportSummary struct {
	Trx       int64           `json:"trx"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Omzet     decimal.Decimal `json:"omzet"`
	UnitsSold int64           `json:"units_sold"`
}

type TopProduct struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	UnitsSold int64     `json:"units_sold"`
}

type ReportRepository interface {
	CashierRows(filter SalesFilter) ([]CashierReportRow, error)
	CashierSummary(filter SalesFilter) (CashierReportSummary, error)
	SalesTotals(from time.Time) (int64, decimal.Decimal, error)
	TopProducts(limit int) ([]TopProduct, error)
	SalesSince(from time.Time) ([]model.Sale, error)
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

const unitsSoldExpr = `CASE WHEN si.unit_type = 'pack' THEN si.qty * p.pack_size ELSE si.qty END`

func (r *reportRepo) salesScope(filter SalesFilter) *gorm.DB {
	q := r.db.Table("sales AS s").
		Where("s.deleted_at IS NULL AND s.created_at >= ? AND s.created_at < ?", filter.From, filter.To)
	if filter.CashierID != nil {
		q = q.Where("s.cashier_id = ?", *filter.CashierID)
	}
	return q
}

func (r *reportRepo) CashierRows(filter SalesFilter) ([]CashierReportRow, error) {
	rows := []CashierReportRow{}
	q := r.salesScope(filter).
		Joins("JOIN users u ON u.id = s.cashier_id").
		Select(`s.id, s.receipt_no, s.created_at, s.payment_method, s.subtotal, s.total,
			u.full_name AS cashier_name,
			(SELECT COUNT(*) FROM sale_items si WHERE si.sale_id = s.id AND si.deleted_at IS NULL) AS item_count,
			(SELECT COALESCE(SUM(` + unitsSoldExpr + `), 0)
				FROM sale_items si JOIN products p ON p.id = si.product_id
				WHERE si.sale_id = s.id AND si.deleted_at IS NULL) AS units_sold`).
		Order("s.created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset((filter.Page - 1) * filter.Limit)
	}
	err := q.Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) CashierSummary(filter SalesFilter) (CashierReportSummary, error) {
	var summary CashierReportSummary
	err := r.salesScope(filter).
		Select("COUNT(*) AS trx, COALESCE(SUM(s.subtotal), 0) AS subtotal, COALESCE(SUM(s.total), 0) AS omzet").
		Scan(&summary).Error
	if err != nil {
		return summary, err
	}

	err = r.salesScope(filter).
		Joins("JOIN sale_items si ON si.sale_id = s.id AND si.deleted_at IS NULL").
		Joins("JOIN products p ON p.id = si.product_id").
		Select("COALESCE(SUM(" + unitsSoldExpr + "), 0)").
		Scan(&summary.UnitsSold).Error
	return summary, err
}

func (r *reportRepo) SalesTotals(from time.Time) (int64, decimal.Decimal, error) {
	var row struct {
		Trx   int64
		Omzet decimal.Decimal
	}
	err := r.db.Model(&model.Sale{}).
		Select("COUNT(*) AS trx, COALESCE(SUM(total), 0) AS omzet").
		Where("created_at >= ?", from).
		Scan(&row).Error
	return row.Trx, row.Omzet, err
}

func (r *reportRepo) TopProducts(limit int) ([]TopProduct, error) {
	rows := []TopProduct{}
	err := r.db.Table("sale_items AS si").
		Joins("JOIN products p ON p.id = si.product_id").
		Where("si.deleted_at IS NULL").
		Select("p.id, p.name, SUM(" + unitsSoldExpr + ") AS units_sold").
		Group("p.id, p.name").
		Order("units_sold DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

func (r *reportRepo) SalesSince(from time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	err := r.db.Select("id", "created_at", "total").
		Where("created_at >= ?", from).
		Order("created_at ASC").
		Find(&sales).Error
	return sales, err
}
