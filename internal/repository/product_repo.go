package repository

import (
	"errors"
	"strings"
	"time"

	"ijaplastik-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNegativeStock is returned by AdjustStock when the delta would take
// stock below zero. Nothing is written in that case.
var ErrNegativeStock = errors.New("stock would go negative")

type ProductFilter struct {
	Search   string
	Category string
}

type ProductRepository interface {
	Create(tx *gorm.DB, product *model.Product) error
	FindAll(filter ProductFilter) ([]model.Product, error)
	FindByID(id uuid.UUID) (*model.Product, error)
	FindBySKU(sku string) (*model.Product, error)
	LockByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error)
	// UpdateDetails writes the editable columns. Stock and status are never
	// written here; they change through AdjustStock and CompareAndSetStatus.
	UpdateDetails(tx *gorm.DB, product *model.Product) error
	SKUTaken(tx *gorm.DB, sku string, exceptID uuid.UUID) (bool, error)
	Delete(id uuid.UUID, deletedBy string) error

	// AdjustStock applies delta to stock_units and appends mv, both on tx.
	AdjustStock(tx *gorm.DB, productID uuid.UUID, delta int, mv *model.StockMovement) error
	// CompareAndSetStatus moves last_stock_status from -> to; false means
	// another writer changed it first.
	CompareAndSetStatus(tx *gorm.DB, id uuid.UUID, from, to model.StockStatus, at time.Time) (bool, error)
	Movements(productID uuid.UUID) ([]model.StockMovement, error)
	LowStock(limit int) ([]model.Product, error)
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(tx *gorm.DB, product *model.Product) error {
	return tx.Create(product).Error
}

func (r *productRepo) FindAll(filter ProductFilter) ([]model.Product, error) {
	var products []model.Product
	q := r.db.Model(&model.Product{})
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(COALESCE(sku, '')) LIKE ?)", like, like)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	err := q.Order("created_at DESC").Find(&products).Error
	return products, err
}

func (r *productRepo) FindByID(id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindBySKU(sku string) (*model.Product, error) {
	var product model.Product
	if err := r.db.First(&product, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LockByID reads the product with SELECT ... FOR UPDATE; the lock is held
// until tx ends.
func (r *productRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) UpdateDetails(tx *gorm.DB, product *model.Product) error {
	return tx.Model(&model.Product{}).Where("id = ?", product.ID).Updates(map[string]interface{}{
		"name":                     product.Name,
		"sku":                      product.SKU,
		"category":                 product.Category,
		"unit_name":                product.UnitName,
		"pack_size":                product.PackSize,
		"retail_price_per_unit":    product.RetailPricePerUnit,
		"wholesale_price_per_pack": product.WholesalePricePerPack,
		"min_stock_units":          product.MinStockUnits,
		"max_stock_units":          product.MaxStockUnits,
		"image_url":                product.ImageURL,
		"updated_by":               product.UpdatedBy,
	}).Error
}

func (r *productRepo) SKUTaken(tx *gorm.DB, sku string, exceptID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&model.Product{}).Where("sku = ? AND id <> ?", sku, exceptID).Count(&count).Error
	return count > 0, err
}

func (r *productRepo) Delete(id uuid.UUID, deletedBy string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// a deleted product releases its SKU for reuse
		res := tx.Model(&model.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"sku":        nil,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Delete(&model.Product{}, "id = ?", id).Error
	})
}

func (r *productRepo) AdjustStock(tx *gorm.DB, productID uuid.UUID, delta int, mv *model.StockMovement) error {
	if delta == 0 {
		return errors.New("stock delta must not be zero")
	}

	res := tx.Model(&model.Product{}).
		Where("id = ? AND stock_units + ? >= 0", productID, delta).
		UpdateColumn("stock_units", gorm.Expr("stock_units + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNegativeStock
	}

	mv.ProductID = productID
	mv.Direction = model.MovementIn
	mv.QtyUnits = delta
	if delta < 0 {
		mv.Direction = model.MovementOut
		mv.QtyUnits = -delta
	}
	return tx.Create(mv).Error
}

func (r *productRepo) CompareAndSetStatus(tx *gorm.DB, id uuid.UUID, from, to model.StockStatus, at time.Time) (bool, error) {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND last_stock_status = ?", id, from).
		UpdateColumns(map[string]interface{}{
			"last_stock_status":            to,
			"last_stock_status_changed_at": at,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *productRepo) Movements(productID uuid.UUID) ([]model.StockMovement, error) {
	var movements []model.StockMovement
	err := r.db.Where("product_id = ?", productID).Order("created_at ASC").Find(&movements).Error
	return movements, err
}

// LowStock lists products whose stock is at or below their minimum.
func (r *productRepo) LowStock(limit int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.
		Where("min_stock_units IS NOT NULL AND stock_units <= min_stock_units").
		Order("stock_units ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}
