package repository

import (
	"strings"

	"ijaplastik-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SupplierRepository interface {
	Create(tx *gorm.DB, supplier *model.Supplier) error
	Save(supplier *model.Supplier) error
	FindByID(id uuid.UUID) (*model.Supplier, error)
	Search(name string, limit int) ([]model.Supplier, error)
	Delete(id uuid.UUID, deletedBy string) error
}

type supplierRepo struct {
	db *gorm.DB
}

func NewSupplierRepo(db *gorm.DB) SupplierRepository {
	return &supplierRepo{db}
}

func (r *supplierRepo) Create(tx *gorm.DB, supplier *model.Supplier) error {
	return tx.Create(supplier).Error
}

func (r *supplierRepo) Save(supplier *model.Supplier) error {
	return r.db.Save(supplier).Error
}

func (r *supplierRepo) FindByID(id uuid.UUID) (*model.Supplier, error) {
	var supplier model.Supplier
	if err := r.db.First(&supplier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

// Search without a name returns the newest suppliers; with a name it matches
// case-insensitively and sorts alphabetically.
func (r *supplierRepo) Search(name string, limit int) ([]model.Supplier, error) {
	var suppliers []model.Supplier
	q := r.db.Limit(limit)
	if s := strings.ToLower(strings.TrimSpace(name)); s != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+s+"%").Order("name ASC")
	} else {
		q = q.Order("created_at DESC")
	}
	err := q.Find(&suppliers).Error
	return suppliers, err
}

func (r *supplierRepo) Delete(id uuid.UUID, deletedBy string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Supplier{}).Where("id = ?", id).Update("deleted_by", deletedBy)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Delete(&model.Supplier{}, "id = ?", id).Error
	})
}
