package service

import (
	"strings"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const supplierSearchLimit = 50

type SupplierRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address"`
	PicName string `json:"pic_name"`
}

type UpdateSupplierRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Address *string `json:"address"`
	PicName *string `json:"pic_name"`
}

type SupplierService interface {
	List(search string) ([]model.Supplier, error)
	Get(id uuid.UUID) (*model.Supplier, error)
	Create(req *SupplierRequest, actor Actor) (*model.Supplier, error)
	Update(id uuid.UUID, req *UpdateSupplierRequest, actor Actor) (*model.Supplier, error)
	Delete(id uuid.UUID, actor Actor) error
}

type supplierService struct {
	db   *gorm.DB
	repo repository.SupplierRepository
}

func NewSupplierService(db *gorm.DB, repo repository.SupplierRepository) SupplierService {
	return &supplierService{db: db, repo: repo}
}

func (s *supplierService) List(search string) ([]model.Supplier, error) {
	return s.repo.Search(search, supplierSearchLimit)
}

func (s *supplierService) Get(id uuid.UUID) (*model.Supplier, error) {
	sup, err := s.repo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, "Supplier tidak ditemukan")
	}
	return sup, nil
}

func (s *supplierService) Create(req *SupplierRequest, actor Actor) (*model.Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Message(errs))
	}

	sup := &model.Supplier{
		Name:    req.Name,
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(req.Email),
		Address: strings.TrimSpace(req.Address),
		PicName: strings.TrimSpace(req.PicName),
	}
	sup.CreatedBy = actor.audit()
	sup.UpdatedBy = actor.audit()

	if err := s.repo.Create(s.db, sup); err != nil {
		return nil, err
	}
	return sup, nil
}

func (s *supplierService) Update(id uuid.UUID, req *UpdateSupplierRequest, actor Actor) (*model.Supplier, error) {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Message(errs))
	}

	sup, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Validation("name tidak boleh kosong")
		}
		sup.Name = name
	}
	if req.Phone != nil {
		sup.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		sup.Email = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		sup.Address = strings.TrimSpace(*req.Address)
	}
	if req.PicName != nil {
		sup.PicName = strings.TrimSpace(*req.PicName)
	}
	sup.UpdatedBy = actor.audit()

	if err := s.repo.Save(sup); err != nil {
		return nil, err
	}
	return sup, nil
}

func (s *supplierService) Delete(id uuid.UUID, actor Actor) error {
	return notFoundAs(s.repo.Delete(id, actor.audit()), "Supplier tidak ditemukan")
}
