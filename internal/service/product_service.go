package service

import (
	"strings"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/internal/ws"
	"ijaplastik-pos/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Name                  string          `json:"name" validate:"required"`
	SKU                   string          `json:"sku"`
	Category              string          `json:"category"`
	UnitName              string          `json:"unit_name" validate:"required"`
	PackSize              int             `json:"pack_size" validate:"gt=0"`
	RetailPricePerUnit    decimal.Decimal `json:"retail_price_per_unit"`
	WholesalePricePerPack decimal.Decimal `json:"wholesale_price_per_pack"`
	InitialStockUnits     int             `json:"initial_stock_units" validate:"gte=0"`
	MinStockUnits         *int            `json:"min_stock_units" validate:"omitempty,gte=0"`
	MaxStockUnits         *int            `json:"max_stock_units" validate:"omitempty,gte=0"`
	ImageURL              string          `json:"-"`
}

// UpdateProductRequest carries only the fields the client sent. Thresholds
// use Nullable so that an explicit null clears them.
type UpdateProductRequest struct {
	Name                  *string          `json:"name"`
	SKU                   *string          `json:"sku"`
	Category              *string          `json:"category"`
	UnitName              *string          `json:"unit_name"`
	PackSize              *int             `json:"pack_size"`
	RetailPricePerUnit    *decimal.Decimal `json:"retail_price_per_unit"`
	WholesalePricePerPack *decimal.Decimal `json:"wholesale_price_per_pack"`
	StockUnits            *int             `json:"stock_units"`
	MinStockUnits         Nullable[int]    `json:"min_stock_units"`
	MaxStockUnits         Nullable[int]    `json:"max_stock_units"`
	ImageURL              *string          `json:"-"`
}

func (r *UpdateProductRequest) empty() bool {
	return r.Name == nil && r.SKU == nil && r.Category == nil && r.UnitName == nil &&
		r.PackSize == nil && r.RetailPricePerUnit == nil && r.WholesalePricePerPack == nil &&
		r.StockUnits == nil && !r.MinStockUnits.Set && !r.MaxStockUnits.Set && r.ImageURL == nil
}

type ProductService interface {
	Create(req *CreateProductRequest, actor Actor) (*model.Product, error)
	Update(id uuid.UUID, req *UpdateProductRequest, actor Actor) (*model.Product, error)
	Delete(id uuid.UUID, actor Actor) error
	List(filter repository.ProductFilter) ([]model.Product, error)
	Get(id uuid.UUID) (*model.Product, error)
	Movements(id uuid.UUID) ([]model.StockMovement, error)
}

type productService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	alerts      StockAlertService
	events      EventPublisher
}

func NewProductService(db *gorm.DB, pRepo repository.ProductRepository, alerts StockAlertService, events EventPublisher) ProductService {
	return &productService{
		db:          db,
		productRepo: pRepo,
		alerts:      alerts,
		events:      publisherOrNop(events),
	}
}

func validatePrices(retail, wholesale decimal.Decimal) error {
	if retail.IsNegative() {
		return apperr.Validation("retail_price_per_unit tidak valid")
	}
	if wholesale.IsNegative() {
		return apperr.Validation("wholesale_price_per_pack tidak valid")
	}
	return nil
}

func (s *productService) Create(req *CreateProductRequest, actor Actor) (*model.Product, error) {
	// 1. Validate input
	req.Name = strings.TrimSpace(req.Name)
	req.UnitName = strings.TrimSpace(req.UnitName)
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return nil, apperr.Validation("%s", validator.Message(errs))
	}
	if err := validatePrices(req.RetailPricePerUnit, req.WholesalePricePerPack); err != nil {
		return nil, err
	}

	product := &model.Product{
		Name:                  req.Name,
		Category:              strings.TrimSpace(req.Category),
		UnitName:              req.UnitName,
		PackSize:              req.PackSize,
		RetailPricePerUnit:    req.RetailPricePerUnit,
		WholesalePricePerPack: req.WholesalePricePerPack,
		MinStockUnits:         req.MinStockUnits,
		MaxStockUnits:         req.MaxStockUnits,
		ImageURL:              req.ImageURL,
	}
	if sku := strings.TrimSpace(req.SKU); sku != "" {
		product.SKU = &sku
	}
	product.CreatedBy = actor.audit()
	product.UpdatedBy = actor.audit()

	// 2. Status is stored from the start; creation never alerts
	product.LastStockStatus = model.DeriveStockStatus(req.InitialStockUnits, req.MinStockUnits, req.MaxStockUnits)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if product.SKU != nil {
			taken, err := s.productRepo.SKUTaken(tx, *product.SKU, uuid.Nil)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Conflict("SKU sudah dipakai")
			}
		}

		if err := s.productRepo.Create(tx, product); err != nil {
			return err
		}

		// 3. Initial stock goes through the ledger
		if req.InitialStockUnits > 0 {
			mv := &model.StockMovement{
				Source:    model.SourceInit,
				RefTable:  "products",
				RefID:     &product.ID,
				Note:      "Initial stock",
				CreatedBy: actor.audit(),
			}
			if err := s.productRepo.AdjustStock(tx, product.ID, req.InitialStockUnits, mv); err != nil {
				return err
			}
			product.StockUnits = req.InitialStockUnits
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ws.EventStockChange, map[string]interface{}{
		"action":      "product_created",
		"product_id":  product.ID,
		"name":        product.Name,
		"stock_units": product.StockUnits,
		"by":          actor.Name,
	})
	return product, nil
}

func (s *productService) Update(id uuid.UUID, req *UpdateProductRequest, actor Actor) (*model.Product, error) {
	if req.empty() {
		return nil, apperr.Validation("Tidak ada perubahan")
	}

	var (
		transition *StatusTransition
		oldStock   int
		newStock   int
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 1. Lock the row for the whole read-modify-write
		p, err := s.productRepo.LockByID(tx, id)
		if err != nil {
			return notFoundAs(err, "Produk tidak ditemukan")
		}
		oldStock = p.StockUnits
		newStock = p.StockUnits

		// 2. Apply the provided fields
		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				return apperr.Validation("name wajib")
			}
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.SKU != nil {
			if sku := strings.TrimSpace(*req.SKU); sku == "" {
				p.SKU = nil
			} else {
				taken, err := s.productRepo.SKUTaken(tx, sku, p.ID)
				if err != nil {
					return err
				}
				if taken {
					return apperr.Conflict("SKU sudah dipakai")
				}
				p.SKU = &sku
			}
		}
		if req.Category != nil {
			p.Category = strings.TrimSpace(*req.Category)
		}
		if req.UnitName != nil {
			if strings.TrimSpace(*req.UnitName) == "" {
				return apperr.Validation("unit_name wajib")
			}
			p.UnitName = strings.TrimSpace(*req.UnitName)
		}
		if req.PackSize != nil {
			if *req.PackSize <= 0 {
				return apperr.Validation("pack_size harus > 0")
			}
			p.PackSize = *req.PackSize
		}
		if req.RetailPricePerUnit != nil {
			p.RetailPricePerUnit = *req.RetailPricePerUnit
		}
		if req.WholesalePricePerPack != nil {
			p.WholesalePricePerPack = *req.WholesalePricePerPack
		}
		if err := validatePrices(p.RetailPricePerUnit, p.WholesalePricePerPack); err != nil {
			return err
		}
		if req.MinStockUnits.Set {
			if v := req.MinStockUnits.Value; v != nil && *v < 0 {
				return apperr.Validation("min_stock_units tidak valid")
			}
			p.MinStockUnits = req.MinStockUnits.Value
		}
		if req.MaxStockUnits.Set {
			if v := req.MaxStockUnits.Value; v != nil && *v < 0 {
				return apperr.Validation("max_stock_units tidak valid")
			}
			p.MaxStockUnits = req.MaxStockUnits.Value
		}
		if req.ImageURL != nil {
			p.ImageURL = *req.ImageURL
		}
		p.UpdatedBy = actor.audit()

		if err := s.productRepo.UpdateDetails(tx, p); err != nil {
			return err
		}

		// 3. A stock edit is an adjustment in the ledger, never a raw write
		if req.StockUnits != nil {
			if *req.StockUnits < 0 {
				return apperr.Validation("stock_units tidak boleh negatif")
			}
			if delta := *req.StockUnits - p.StockUnits; delta != 0 {
				mv := &model.StockMovement{
					Source:    model.SourceAdjustment,
					RefTable:  "products",
					RefID:     &p.ID,
					Note:      "Stock adjustment",
					CreatedBy: actor.audit(),
				}
				if err := s.productRepo.AdjustStock(tx, p.ID, delta, mv); err != nil {
					return err
				}
				newStock = *req.StockUnits
			}
		}

		// 4. Status follows stock and thresholds in the same unit of work
		if req.StockUnits != nil || req.MinStockUnits.Set || req.MaxStockUnits.Set {
			transition, err = s.alerts.EvaluateLocked(tx, p.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transition != nil {
		s.alerts.Dispatch([]StatusTransition{*transition})
	}
	if newStock != oldStock {
		s.events.Publish(ws.EventStockChange, map[string]interface{}{
			"action":     "product_updated",
			"product_id": id,
			"old_stock":  oldStock,
			"new_stock":  newStock,
			"by":         actor.Name,
		})
	}
	return s.Get(id)
}

func (s *productService) Delete(id uuid.UUID, actor Actor) error {
	return notFoundAs(s.productRepo.Delete(id, actor.audit()), "Produk tidak ditemukan")
}

func (s *productService) List(filter repository.ProductFilter) ([]model.Product, error) {
	return s.productRepo.FindAll(filter)
}

func (s *productService) Get(id uuid.UUID) (*model.Product, error) {
	p, err := s.productRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, "Produk tidak ditemukan")
	}
	return p, nil
}

func (s *productService) Movements(id uuid.UUID) ([]model.StockMovement, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.productRepo.Movements(id)
}
