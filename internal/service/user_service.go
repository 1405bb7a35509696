package service

import (
	"errors"
	"strings"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrEmailExists = apperr.Conflict("Email sudah terdaftar")

// NewSupplierRequest creates the supplier organization inline with a
// supplier account.
type NewSupplierRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
	PicName string `json:"pic_name"`
}

type CreateUserRequest struct {
	Email       string              `json:"email" validate:"required,email"`
	Password    string              `json:"password" validate:"omitempty,min=6"`
	FullName    string              `json:"full_name" validate:"required"`
	PhoneNumber string              `json:"phone_number"`
	Role        string              `json:"role" validate:"required"`
	SupplierID  *uuid.UUID          `json:"supplier_id"`
	SupplierNew *NewSupplierRequest `json:"supplier_new"`
}

type UpdateUserRequest struct {
	Email       *string    `json:"email" validate:"omitempty,email"`
	FullName    *string    `json:"full_name"`
	PhoneNumber *string    `json:"phone_number"`
	Role        *string    `json:"role"`
	SupplierID  *uuid.UUID `json:"supplier_id"`
}

type UserService interface {
	List(filter repository.UserFilter) ([]model.UserResponse, error)
	Create(req *CreateUserRequest, actor Actor) (*model.UserResponse, error)
	Update(id uuid.UUID, req *UpdateUserRequest, actor Actor) (*model.UserResponse, error)
	Deactivate(id uuid.UUID, actor Actor) error
	// ResetPassword sets password, or the configured default when empty,
	// and revokes the user's sessions.
	ResetPassword(id uuid.UUID, password string) error
}

type userService struct {
	db           *gorm.DB
	userRepo     repository.UserRepository
	roleRepo     repository.RoleRepository
	supplierRepo repository.SupplierRepository
	defaultPass  string
}

func NewUserService(db *gorm.DB, userRepo repository.UserRepository, roleRepo repository.RoleRepository, supplierRepo repository.SupplierRepository, defaultPass string) UserService {
	return &userService{
		db:           db,
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		supplierRepo: supplierRepo,
		defaultPass:  defaultPass,
	}
}

func (s *userService) List(filter repository.UserFilter) ([]model.UserResponse, error) {
	if filter.Role != "" {
		code, ok := model.NormalizeRole(filter.Role)
		if !ok {
			return nil, apperr.Validation("role tidak valid")
		}
		filter.Role = code
	}
	users, err := s.userRepo.List(filter)
	if err != nil {
		return nil, err
	}

	responses := make([]model.UserResponse, len(users))
	for i := range users {
		responses[i] = users[i].ToResponse()
	}
	return responses, nil
}

func (s *userService) emailTaken(email string, exceptID uuid.UUID) (bool, error) {
	existing, err := s.userRepo.FindByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return existing.ID != exceptID, nil
}

func (s *userService) Create(req *CreateUserRequest, actor Actor) (*model.UserResponse, error) {
	// 1. Validate request
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Message(errs))
	}
	code, ok := model.NormalizeRole(req.Role)
	if !ok {
		return nil, apperr.Validation("role harus admin, cashier atau supplier")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	// 2. Email must be unique
	taken, err := s.emailTaken(email, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailExists
	}

	role, err := s.roleRepo.FindByCode(code)
	if err != nil {
		return nil, notFoundAs(err, "Role tidak ditemukan")
	}

	// 3. Supplier accounts need an organization
	var newSupplier *model.Supplier
	var supplierID *uuid.UUID
	if code == model.RoleSupplier {
		switch {
		case req.SupplierID != nil:
			sup, err := s.supplierRepo.FindByID(*req.SupplierID)
			if err != nil {
				return nil, notFoundAs(err, "Supplier tidak ditemukan")
			}
			supplierID = &sup.ID
		case req.SupplierNew != nil:
			if errs := validator.ValidateStruct(req.SupplierNew); len(errs) > 0 {
				return nil, apperr.Validation("supplier_new: %s", validator.Message(errs))
			}
			newSupplier = &model.Supplier{
				Name:    strings.TrimSpace(req.SupplierNew.Name),
				Phone:   strings.TrimSpace(req.SupplierNew.Phone),
				Email:   strings.TrimSpace(req.SupplierNew.Email),
				Address: strings.TrimSpace(req.SupplierNew.Address),
				PicName: strings.TrimSpace(req.SupplierNew.PicName),
			}
			newSupplier.CreatedBy = actor.audit()
		default:
			return nil, apperr.Validation("User supplier wajib supplier_id atau supplier_new")
		}
	}

	// 4. Build the account
	password := req.Password
	if password == "" {
		password = s.defaultPass
	}
	user := &model.User{
		Email:       email,
		FullName:    strings.TrimSpace(req.FullName),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		RoleID:      &role.ID,
		SupplierID:  supplierID,
		IsActive:    true,
	}
	user.CreatedBy = actor.audit()
	user.UpdatedBy = actor.audit()
	if err := user.SetPassword(password); err != nil {
		return nil, errors.New("failed to hash password")
	}

	// 5. Supplier and user in one unit of work
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if newSupplier != nil {
			if err := s.supplierRepo.Create(tx, newSupplier); err != nil {
				return err
			}
			user.SupplierID = &newSupplier.ID
		}
		return s.userRepo.Create(tx, user)
	})
	if err != nil {
		return nil, err
	}

	user.Role = role
	user.Supplier = newSupplier
	resp := user.ToResponse()
	return &resp, nil
}

func (s *userService) Update(id uuid.UUID, req *UpdateUserRequest, actor Actor) (*model.UserResponse, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Message(errs))
	}

	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, "User tidak ditemukan")
	}

	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != user.Email {
			taken, err := s.emailTaken(email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrEmailExists
			}
			user.Email = email
		}
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, apperr.Validation("full_name tidak boleh kosong")
		}
		user.FullName = name
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.Role != nil {
		code, ok := model.NormalizeRole(*req.Role)
		if !ok {
			return nil, apperr.Validation("role harus admin, cashier atau supplier")
		}
		role, err := s.roleRepo.FindByCode(code)
		if err != nil {
			return nil, notFoundAs(err, "Role tidak ditemukan")
		}
		user.RoleID = &role.ID
		user.Role = role
	}
	if req.SupplierID != nil {
		sup, err := s.supplierRepo.FindByID(*req.SupplierID)
		if err != nil {
			return nil, notFoundAs(err, "Supplier tidak ditemukan")
		}
		user.SupplierID = &sup.ID
	}
	if user.RoleCode() == model.RoleSupplier && user.SupplierID == nil {
		return nil, apperr.Validation("User supplier wajib terhubung ke supplier")
	}
	if user.RoleCode() != model.RoleSupplier {
		user.SupplierID = nil
	}
	user.UpdatedBy = actor.audit()

	if err := s.userRepo.UpdateProfile(user); err != nil {
		return nil, err
	}

	fresh, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	resp := fresh.ToResponse()
	return &resp, nil
}

func (s *userService) Deactivate(id uuid.UUID, actor Actor) error {
	if id == actor.ID {
		return apperr.Validation("Tidak bisa menonaktifkan akun sendiri")
	}
	return notFoundAs(s.userRepo.Deactivate(id, actor.audit()), "User tidak ditemukan")
}

func (s *userService) ResetPassword(id uuid.UUID, password string) error {
	if password == "" {
		password = s.defaultPass
	}
	if len(password) < 6 {
		return apperr.Validation("Password minimal 6 karakter")
	}

	var u model.User
	if err := u.SetPassword(password); err != nil {
		return errors.New("failed to hash password")
	}
	if err := s.userRepo.UpdatePassword(id, u.Password); err != nil {
		return notFoundAs(err, "User tidak ditemukan")
	}
	return s.userRepo.UpdateTokenVersion(id, uuid.NewString())
}
