package repository

import (
	"strings"

	"ijaplastik-pos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserFilter struct {
	Search string
	Role   string
}

type UserRepository interface {
	FindByEmail(email string) (*model.User, error)
	FindByID(id uuid.UUID) (*model.User, error)
	Create(tx *gorm.DB, user *model.User) error
	UpdateProfile(user *model.User) error
	UpdatePassword(userID uuid.UUID, hashedPassword string) error
	UpdateTokenVersion(userID uuid.UUID, version string) error
	Deactivate(userID uuid.UUID, by string) error
	List(filter UserFilter) ([]model.User, error)
	// FindActiveByRole returns active users holding the role code.
	FindActiveByRole(roleCode string) ([]model.User, error)
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db}
}

func (r *userRepo) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Preload("Role").Preload("Supplier").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) FindByID(id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.Preload("Role").Preload("Supplier").First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Create(tx *gorm.DB, user *model.User) error {
	return tx.Omit("Role", "Supplier").Create(user).Error
}

// UpdateProfile writes the admin-editable columns only. Password and token
// version have their own writers so a concurrent reset or login is kept.
func (r *userRepo) UpdateProfile(user *model.User) error {
	var supplierID interface{}
	if user.SupplierID != nil {
		supplierID = *user.SupplierID
	}
	res := r.db.Model(&model.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"email":        user.Email,
		"full_name":    user.FullName,
		"phone_number": user.PhoneNumber,
		"role_id":      user.RoleID,
		"supplier_id":  supplierID,
		"updated_by":   user.UpdatedBy,
	})
	if res.Error == nil && res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return res.Error
}

func (r *userRepo) UpdatePassword(userID uuid.UUID, hashedPassword string) error {
	res := r.db.Model(&model.User{}).Where("id = ?", userID).Update("password", hashedPassword)
	if res.Error == nil && res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return res.Error
}

func (r *userRepo) UpdateTokenVersion(userID uuid.UUID, version string) error {
	return r.db.Model(&model.User{}).Where("id = ?", userID).Update("token_version", version).Error
}

// Deactivate is the soft delete for accounts: the row stays for sales and PO
// history, login is refused and existing tokens stop matching.
func (r *userRepo) Deactivate(userID uuid.UUID, by string) error {
	res := r.db.Model(&model.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"is_active":     false,
		"token_version": uuid.NewString(),
		"updated_by":    by,
	})
	if res.Error == nil && res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return res.Error
}

func (r *userRepo) List(filter UserFilter) ([]model.User, error) {
	var users []model.User
	q := r.db.Preload("Role").Preload("Supplier").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("users.is_active = ?", true)
	if s := strings.ToLower(strings.TrimSpace(filter.Search)); s != "" {
		like := "%" + s + "%"
		q = q.Where("(LOWER(users.full_name) LIKE ? OR LOWER(users.email) LIKE ?)", like, like)
	}
	if filter.Role != "" {
		q = q.Where("roles.code = ?", filter.Role)
	}
	err := q.Order("users.created_at DESC").Limit(200).Find(&users).Error
	return users, err
}

func (r *userRepo) FindActiveByRole(roleCode string) ([]model.User, error) {
	var users []model.User
	err := r.db.Preload("Role").
		Joins("JOIN roles ON roles.id = users.role_id").
		Where("roles.code = ? AND users.is_active = ?", roleCode, true).
		Order("users.full_name ASC").
		Find(&users).Error
	return users, err
}
