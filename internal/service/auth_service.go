package service

import (
	"errors"
	"log"
	"strings"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/pkg/jwt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = apperr.Unauthorized("Email atau password salah")
	ErrUserInactive       = apperr.Unauthorized("Akun tidak aktif")
	ErrWrongPassword      = apperr.Validation("Password lama salah")
	ErrSessionRevoked     = apperr.Unauthorized("Sesi berakhir, silakan login kembali")
)

type AuthService interface {
	Login(email, password string) (*LoginResponse, error)
	Me(userID uuid.UUID) (*model.UserResponse, error)
	ChangePassword(userID uuid.UUID, req *ChangePasswordRequest) error
	// Authenticate resolves a bearer token to its actor. The token version
	// must still match the user's current one.
	Authenticate(tokenString string) (*Actor, error)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  model.UserResponse `json:"user"`
}

type authService struct {
	userRepo repository.UserRepository
}

func NewAuthService(userRepo repository.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

func (s *authService) Login(email, password string) (*LoginResponse, error) {
	// 1. Find user by email
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// 2. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 3. Verify password
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 4. Single session: a new token version revokes older tokens
	version := uuid.NewString()
	if err := s.userRepo.UpdateTokenVersion(user.ID, version); err != nil {
		return nil, err
	}
	user.TokenVersion = version

	// 5. Sign
	token, err := jwt.GenerateToken(user.ID, user.Email, user.FullName, user.RoleCode(), version)
	if err != nil {
		log.Printf("[auth] sign token for %s: %v", user.ID, err)
		return nil, errors.New("failed to generate token")
	}

	return &LoginResponse{Token: token, User: user.ToResponse()}, nil
}

func (s *authService) Me(userID uuid.UUID) (*model.UserResponse, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, notFoundAs(err, "User tidak ditemukan")
	}
	resp := user.ToResponse()
	return &resp, nil
}

func (s *authService) ChangePassword(userID uuid.UUID, req *ChangePasswordRequest) error {
	if len(req.NewPassword) < 6 {
		return apperr.Validation("Password baru minimal 6 karakter")
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return notFoundAs(err, "User tidak ditemukan")
	}
	if !user.CheckPassword(req.OldPassword) {
		return ErrWrongPassword
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return errors.New("failed to hash new password")
	}
	return s.userRepo.UpdatePassword(user.ID, user.Password)
}

func (s *authService) Authenticate(tokenString string) (*Actor, error) {
	// 1. Validate JWT token
	claims, err := jwt.ValidateToken(tokenString)
	if err != nil {
		return nil, apperr.Unauthorized("Token tidak valid")
	}

	// 2. Load the user behind it
	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 3. Strict session check
	if user.TokenVersion != claims.TokenVersion {
		return nil, ErrSessionRevoked
	}

	return &Actor{
		ID:         user.ID,
		Name:       user.FullName,
		Role:       user.RoleCode(),
		SupplierID: user.SupplierID,
	}, nil
}
