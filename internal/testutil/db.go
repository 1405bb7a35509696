// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"

	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/pkg/database"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// NewDB returns a migrated in-memory SQLite database with the default roles.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:", nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := model.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, r := range model.DefaultRoles {
		role := r
		if err := db.Create(&role).Error; err != nil {
			t.Fatalf("seed role: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts an active user with password "secret123".
func CreateUser(t testing.TB, db *gorm.DB, roleCode, email, phone string, supplierID *uuid.UUID) *model.User {
	t.Helper()
	var role model.Role
	if err := db.Where("code = ?", roleCode).First(&role).Error; err != nil {
		t.Fatalf("role %s: %v", roleCode, err)
	}
	u := &model.User{
		Email:        email,
		FullName:     email,
		PhoneNumber:  phone,
		RoleID:       &role.ID,
		SupplierID:   supplierID,
		IsActive:     true,
		TokenVersion: uuid.NewString(),
	}
	if err := u.SetPassword("secret123"); err != nil {
		t.Fatal(err)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	u.Role = &role
	return u
}

func CreateSupplier(t testing.TB, db *gorm.DB, name, phone string) *model.Supplier {
	t.Helper()
	s := &model.Supplier{Name: name, Phone: phone}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("create supplier: %v", err)
	}
	return s
}

// CreateProduct inserts a product directly, bypassing the ledger. Stock is
// paired with an init movement so ledger sums stay consistent.
func CreateProduct(t testing.TB, db *gorm.DB, name string, packSize, stock int, min, max *int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:                  name,
		UnitName:              "pcs",
		PackSize:              packSize,
		RetailPricePerUnit:    decimal.NewFromInt(1000),
		WholesalePricePerPack: decimal.NewFromInt(int64(900 * packSize)),
		StockUnits:            stock,
		MinStockUnits:         min,
		MaxStockUnits:         max,
	}
	p.LastStockStatus = p.CurrentStatus()
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	if stock > 0 {
		mv := &model.StockMovement{
			ProductID: p.ID,
			Direction: model.MovementIn,
			Source:    model.SourceInit,
			RefTable:  "products",
			RefID:     &p.ID,
			QtyUnits:  stock,
		}
		if err := db.Create(mv).Error; err != nil {
			t.Fatalf("create movement: %v", err)
		}
	}
	return p
}

// LedgerSum adds up the signed movements of a product.
func LedgerSum(t testing.TB, db *gorm.DB, productID uuid.UUID) int {
	t.Helper()
	var movements []model.StockMovement
	if err := db.Where("product_id = ?", productID).Find(&movements).Error; err != nil {
		t.Fatal(err)
	}
	sum := 0
	for i := range movements {
		sum += movements[i].Delta()
	}
	return sum
}

func IntPtr(v int) *int { return &v }
