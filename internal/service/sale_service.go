package service

import (
	"errors"
	"strings"
	"time"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"uuid_required"`
	UnitType  string    `json:"unit_type" validate:"oneof=unit pack"`
	Qty       int       `json:"qty" validate:"gt=0"`
}

type CreateSaleRequest struct {
	Items         []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string            `json:"payment_method"`
	CashReceived  *decimal.Decimal  `json:"cash_received"`
	CustomerName  string            `json:"customer_name"`
}

type SaleService interface {
	Create(req *CreateSaleRequest, actor Actor) (*model.Sale, error)
	Get(id uuid.UUID) (*model.Sale, error)
	ReceiptHTML(id uuid.UUID) (string, error)
}

type saleService struct {
	db          *gorm.DB
	saleRepo    repository.SaleRepository
	productRepo repository.ProductRepository
	alerts      StockAlertService
	events      EventPublisher
	storeName   string
}

func NewSaleService(db *gorm.DB, sRepo repository.SaleRepository, pRepo repository.ProductRepository, alerts StockAlertService, events EventPublisher, storeName string) SaleService {
	return &saleService{
		db:          db,
		saleRepo:    sRepo,
		productRepo: pRepo,
		alerts:      alerts,
		events:      publisherOrNop(events),
		storeName:   storeName,
	}
}

type pricedLine struct {
	product  *model.Product
	unitType model.UnitType
	qty      int
	price    decimal.Decimal
	total    decimal.Decimal
}

// normalize lowercases unit types so the oneof tag accepts "PACK".
func (r *CreateSaleRequest) normalize() {
	for i := range r.Items {
		r.Items[i].UnitType = strings.ToLower(strings.TrimSpace(r.Items[i].UnitType))
	}
}

func (s *saleService) Create(req *CreateSaleRequest, actor Actor) (*model.Sale, error) {
	// 1. Validate the cart and payment before touching storage
	req.normalize()
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	method := model.PayCash
	if raw := strings.TrimSpace(req.PaymentMethod); raw != "" {
		m, ok := model.ParsePaymentMethod(strings.ToLower(raw))
		if !ok {
			return nil, apperr.Validation("payment_method harus cash, qris atau card")
		}
		method = m
	}

	var (
		sale        *model.Sale
		transitions []StatusTransition
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 2. Lock each product and price the line
		lines := make([]pricedLine, 0, len(req.Items))
		subtotal := decimal.Zero
		for _, it := range req.Items {
			p, err := s.productRepo.LockByID(tx, it.ProductID)
			if err != nil {
				return notFoundAs(err, "Produk tidak ditemukan")
			}
			ut := model.UnitType(it.UnitType)
			price := p.PriceFor(ut)
			total := price.Mul(decimal.NewFromInt(int64(it.Qty)))
			lines = append(lines, pricedLine{product: p, unitType: ut, qty: it.Qty, price: price, total: total})
			subtotal = subtotal.Add(total)
		}

		// 3. Payment
		now := time.Now()
		sale = &model.Sale{
			ReceiptNo:     dailyCode("STRK", now, 4),
			CashierID:     actor.ID,
			Subtotal:      subtotal,
			Total:         subtotal,
			PaymentMethod: method,
			CustomerName:  strings.TrimSpace(req.CustomerName),
		}
		if method == model.PayCash {
			if req.CashReceived == nil {
				return apperr.Validation("cash_received wajib untuk pembayaran tunai")
			}
			if req.CashReceived.LessThan(sale.Total) {
				return apperr.InsufficientPayment("Uang tunai kurang dari total")
			}
			cash := *req.CashReceived
			change := cash.Sub(sale.Total)
			sale.CashReceived = &cash
			sale.ChangeAmount = &change
		}
		sale.CreatedBy = actor.audit()

		// 4. Header, then ledger debit per line
		if err := s.saleRepo.Create(tx, sale); err != nil {
			return err
		}

		touched := make([]uuid.UUID, 0, len(lines))
		seen := make(map[uuid.UUID]bool, len(lines))
		for _, l := range lines {
			units := l.product.UnitsFor(l.unitType, l.qty)

			cur, err := s.productRepo.LockByID(tx, l.product.ID)
			if err != nil {
				return err
			}
			if cur.StockUnits < units {
				return apperr.InsufficientStock("Stok %s tidak mencukupi (tersedia %d, diminta %d)", cur.Name, cur.StockUnits, units)
			}

			mv := &model.StockMovement{
				Source:    model.SourceSale,
				RefTable:  "sales",
				RefID:     &sale.ID,
				Note:      "Sale " + sale.ReceiptNo,
				CreatedBy: actor.audit(),
			}
			if err := s.productRepo.AdjustStock(tx, cur.ID, -units, mv); err != nil {
				if errors.Is(err, repository.ErrNegativeStock) {
					return apperr.InsufficientStock("Stok %s tidak mencukupi", cur.Name)
				}
				return err
			}

			item := &model.SaleItem{
				SaleID:    sale.ID,
				ProductID: cur.ID,
				UnitType:  l.unitType,
				Qty:       l.qty,
				Price:     l.price,
				LineTotal: l.total,
			}
			if err := s.saleRepo.CreateItem(tx, item); err != nil {
				return err
			}
			sale.Items = append(sale.Items, *item)

			if !seen[cur.ID] {
				seen[cur.ID] = true
				touched = append(touched, cur.ID)
			}
		}

		// 5. Status transitions under the same locks
		for _, pid := range touched {
			tr, err := s.alerts.EvaluateLocked(tx, pid)
			if err != nil {
				return err
			}
			if tr != nil {
				transitions = append(transitions, *tr)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 6. After commit
	s.alerts.Dispatch(transitions)
	s.events.Publish(ws.EventSaleCreated, map[string]interface{}{
		"sale_id":    sale.ID,
		"receipt_no": sale.ReceiptNo,
		"total":      sale.Total,
		"cashier":    actor.Name,
	})
	return sale, nil
}

func (s *saleService) Get(id uuid.UUID) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, "Transaksi tidak ditemukan")
	}
	return sale, nil
}

func (s *saleService) ReceiptHTML(id uuid.UUID) (string, error) {
	sale, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return renderReceipt(s.storeName, sale)
}
