// Package seed creates the fixed roles and the first admin account.
package seed

import (
	"errors"
	"log"

	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Run seeds the default roles and, when missing, an admin with the given
// credentials. It is safe to call on every start.
func Run(db *gorm.DB, adminEmail, adminPassword string) error {
	roleRepo := repository.NewRoleRepo(db)
	userRepo := repository.NewUserRepo(db)

	// 1. Seed roles
	if err := roleRepo.SeedDefaults(); err != nil {
		return err
	}

	// 2. Create default admin user
	_, err := userRepo.FindByEmail(adminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	adminRole, err := roleRepo.FindByCode(model.RoleAdmin)
	if err != nil {
		return err
	}
	admin := &model.User{
		Email:        adminEmail,
		FullName:     "Administrator",
		RoleID:       &adminRole.ID,
		IsActive:     true,
		TokenVersion: uuid.NewString(),
	}
	admin.CreatedBy = "system"
	admin.UpdatedBy = "system"
	if err := admin.SetPassword(adminPassword); err != nil {
		return err
	}
	if err := userRepo.Create(db, admin); err != nil {
		return err
	}
	log.Printf("[seed] admin user created: %s", adminEmail)
	return nil
}

// ResetPassword sets a new password for the account with email and revokes
// its sessions.
func ResetPassword(db *gorm.DB, email, password string) error {
	userRepo := repository.NewUserRepo(db)
	user, err := userRepo.FindByEmail(email)
	if err != nil {
		return err
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}
	if err := userRepo.UpdatePassword(user.ID, user.Password); err != nil {
		return err
	}
	return userRepo.UpdateTokenVersion(user.ID, uuid.NewString())
}
