package repository

import (
	"strings"
	"time"

	"ijaplastik-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type POFilter struct {
	Search string
	Status string
	Page   int
	Limit  int
}

// POSummary is one row of the purchase-order list views.
type POSummary struct {
	ID           uuid.UUID      `json:"id"`
	Code         string         `json:"code"`
	Status       model.POStatus `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	SupplierName string         `json:"supplier_name"`
	ItemCount    int64          `json:"item_count"`
}

type PurchaseRepository interface {
	Create(tx *gorm.DB, po *model.PurchaseOrder) error
	FindByID(id uuid.UUID) (*model.PurchaseOrder, error)
	LockByID(tx *gorm.DB, id uuid.UUID) (*model.PurchaseOrder, error)
	Items(tx *gorm.DB, poID uuid.UUID) ([]model.PurchaseOrderItem, error)
	SaveItem(tx *gorm.DB, item *model.PurchaseOrderItem) error
	SaveHeader(tx *gorm.DB, po *model.PurchaseOrder) error
	List(filter POFilter) ([]POSummary, int64, error)
	ListBySupplier(supplierID uuid.UUID) ([]POSummary, error)

	CreateReceipt(tx *gorm.DB, grn *model.GrnReceipt) error
	CreateReceiptItem(tx *gorm.DB, item *model.GrnReceiptItem) error
	CreateReturn(tx *gorm.DB, ret *model.SupplierReturn) error
	Receipts(poID uuid.UUID) ([]model.GrnReceipt, error)
	// ReceivedPacks sums qty_pack over every GRN of the PO, per product.
	ReceivedPacks(poID uuid.UUID) (map[uuid.UUID]int, error)
	// LatestReturnReasons returns the newest return reason per product.
	LatestReturnReasons(poID uuid.UUID) (map[uuid.UUID]string, error)
}

type purchaseRepo struct {
	db *gorm.DB
}

func NewPurchaseRepo(db *gorm.DB) PurchaseRepository {
	return &purchaseRepo{db}
}

func (r *purchaseRepo) Create(tx *gorm.DB, po *model.PurchaseOrder) error {
	return tx.Omit("Supplier", "RequestedBy").Create(po).Error
}

func (r *purchaseRepo) FindByID(id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := r.db.
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		First(&po, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&po, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseRepo) Items(tx *gorm.DB, poID uuid.UUID) ([]model.PurchaseOrderItem, error) {
	var items []model.PurchaseOrderItem
	err := tx.Where("purchase_order_id = ?", poID).Order("created_at ASC").Find(&items).Error
	return items, err
}

func (r *purchaseRepo) SaveItem(tx *gorm.DB, item *model.PurchaseOrderItem) error {
	return tx.Omit("Product").Save(item).Error
}

func (r *purchaseRepo) SaveHeader(tx *gorm.DB, po *model.PurchaseOrder) error {
	return tx.Model(&model.PurchaseOrder{}).Where("id = ?", po.ID).Updates(map[string]interface{}{
		"status":       po.Status,
		"sent_at":      po.SentAt,
		"confirmed_at": po.ConfirmedAt,
		"received_at":  po.ReceivedAt,
		"updated_by":   po.UpdatedBy,
	}).Error
}

const poSummarySelect = `po.id, po.code, po.status, po.created_at, s.name AS supplier_name,
	(SELECT COUNT(*) FROM purchase_order_items i WHERE i.purchase_order_id = po.id AND i.deleted_at IS NULL) AS item_count`

func (r *purchaseRepo) listQuery(filter POFilter) *gorm.DB {
	q := r.db.Table("purchase_orders AS po").
		Joins("JOIN suppliers s ON s.id = po.supplier_id").
		Where("po.deleted_at IS NULL")
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("(LOWER(po.code) LIKE ? OR LOWER(s.name) LIKE ?)", like, like)
	}
	if filter.Status != "" {
		q = q.Where("po.status = ?", filter.Status)
	}
	return q
}

func (r *purchaseRepo) List(filter POFilter) ([]POSummary, int64, error) {
	var total int64
	if err := r.listQuery(filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	rows := []POSummary{}
	err := r.listQuery(filter).
		Select(poSummarySelect).
		Order("po.created_at DESC").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Scan(&rows).Error
	return rows, total, err
}

func (r *purchaseRepo) ListBySupplier(supplierID uuid.UUID) ([]POSummary, error) {
	rows := []POSummary{}
	err := r.db.Table("purchase_orders AS po").
		Joins("JOIN suppliers s ON s.id = po.supplier_id").
		Where("po.deleted_at IS NULL AND po.supplier_id = ?", supplierID).
		Select(poSummarySelect).
		Order("po.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *purchaseRepo) CreateReceipt(tx *gorm.DB, grn *model.GrnReceipt) error {
	return tx.Omit("Items", "Returns").Create(grn).Error
}

func (r *purchaseRepo) CreateReceiptItem(tx *gorm.DB, item *model.GrnReceiptItem) error {
	return tx.Create(item).Error
}

func (r *purchaseRepo) CreateReturn(tx *gorm.DB, ret *model.SupplierReturn) error {
	return tx.Create(ret).Error
}

func (r *purchaseRepo) Receipts(poID uuid.UUID) ([]model.GrnReceipt, error) {
	var receipts []model.GrnReceipt
	err := r.db.
		Preload("Items").
		Preload("Returns").
		Where("purchase_order_id = ?", poID).
		Order("received_at ASC").
		Find(&receipts).Error
	return receipts, err
}

func (r *purchaseRepo) ReceivedPacks(poID uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []struct {
		ProductID uuid.UUID
		Packs     int
	}
	err := r.db.Table("grn_receipt_items AS gi").
		Select("gi.product_id AS product_id, COALESCE(SUM(gi.qty_pack), 0) AS packs").
		Joins("JOIN grn_receipts g ON g.id = gi.grn_receipt_id").
		Where("g.purchase_order_id = ? AND g.deleted_at IS NULL AND gi.deleted_at IS NULL", poID).
		Group("gi.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		out[row.ProductID] = row.Packs
	}
	return out, nil
}

func (r *purchaseRepo) LatestReturnReasons(poID uuid.UUID) (map[uuid.UUID]string, error) {
	var returns []model.SupplierReturn
	err := r.db.Where("purchase_order_id = ?", poID).Order("created_at ASC").Find(&returns).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uuid.UUID]string, len(returns))
	for _, ret := range returns {
		out[ret.ProductID] = ret.Reason
	}
	return out, nil
}
