package model

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is an admin, cashier or supplier account. Supplier accounts are
// linked to exactly one Supplier organization.
type User struct {
	BaseModel
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password     string     `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string     `gorm:"type:varchar(255)" json:"full_name"`
	PhoneNumber  string     `gorm:"type:varchar(30)" json:"phone_number"`
	RoleID       *uint      `gorm:"index" json:"role_id"`
	Role         *Role      `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	SupplierID   *uuid.UUID `gorm:"type:uuid;index" json:"supplier_id,omitempty"`
	Supplier     *Supplier  `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
	TokenVersion string     `gorm:"type:varchar(255);default:''" json:"-"` // single session enforcement
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

func (u *User) RoleCode() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Code
}

// UserResponse is used for API responses (without sensitive data)
type UserResponse struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	PhoneNumber  string     `json:"phone_number"`
	Role         string     `json:"role"`
	SupplierID   *uuid.UUID `json:"supplier_id,omitempty"`
	SupplierName string     `json:"supplier_name,omitempty"`
	IsActive     bool       `json:"is_active"`
}

func (u *User) ToResponse() UserResponse {
	resp := UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		PhoneNumber: u.PhoneNumber,
		Role:        u.RoleCode(),
		SupplierID:  u.SupplierID,
		IsActive:    u.IsActive,
	}
	if u.Supplier != nil {
		resp.SupplierName = u.Supplier.Name
	}
	return resp
}
