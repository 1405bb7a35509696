package service

import (
	"log"
	"time"

	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/notify"
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/internal/ws"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusTransition is a stock-status change committed for one product.
type StatusTransition struct {
	Product model.Product
	From    model.StockStatus
	To      model.StockStatus
}

type AlertResult struct {
	ProductID uuid.UUID         `json:"product_id"`
	Changed   bool              `json:"changed"`
	From      model.StockStatus `json:"from"`
	To        model.StockStatus `json:"to"`
	Queued    int               `json:"queued"`
}

type StockAlertService interface {
	// EvaluateLocked compares the derived status with the persisted one
	// inside tx and records a change with compare-and-set. It returns nil
	// when nothing changed.
	EvaluateLocked(tx *gorm.DB, productID uuid.UUID) (*StatusTransition, error)
	// Dispatch runs after commit: it broadcasts every transition and queues
	// one WhatsApp alert per admin for LOW/OVER. It returns the number of
	// queued alerts.
	Dispatch(transitions []StatusTransition) int
	EvaluateAndNotify(productID uuid.UUID) (*AlertResult, error)
}

type stockAlertService struct {
	db          *gorm.DB
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	outbox      Outbox
	events      EventPublisher
}

func NewStockAlertService(db *gorm.DB, pRepo repository.ProductRepository, uRepo repository.UserRepository, outbox Outbox, events EventPublisher) StockAlertService {
	return &stockAlertService{
		db:          db,
		productRepo: pRepo,
		userRepo:    uRepo,
		outbox:      outbox,
		events:      publisherOrNop(events),
	}
}

func (s *stockAlertService) EvaluateLocked(tx *gorm.DB, productID uuid.UUID) (*StatusTransition, error) {
	p, err := s.productRepo.LockByID(tx, productID)
	if err != nil {
		return nil, notFoundAs(err, "Produk tidak ditemukan")
	}

	next := p.CurrentStatus()
	prev := p.LastStockStatus
	if prev == "" {
		prev = model.StockNormal
	}
	if next == prev {
		return nil, nil
	}

	now := time.Now()
	ok, err := s.productRepo.CompareAndSetStatus(tx, p.ID, p.LastStockStatus, next, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	p.LastStockStatus = next
	p.LastStockStatusChangedAt = &now
	return &StatusTransition{Product: *p, From: prev, To: next}, nil
}

func (s *stockAlertService) Dispatch(transitions []StatusTransition) int {
	if len(transitions) == 0 {
		return 0
	}

	var admins []model.User
	for _, t := range transitions {
		if t.To.Alerting() {
			var err error
			admins, err = s.userRepo.FindActiveByRole(model.RoleAdmin)
			if err != nil {
				log.Printf("[stock-alert] load admins: %v", err)
			}
			break
		}
	}

	queued := 0
	for i := range transitions {
		t := &transitions[i]
		s.events.Publish(ws.EventStockStatus, map[string]interface{}{
			"product_id":  t.Product.ID,
			"name":        t.Product.Name,
			"stock_units": t.Product.StockUnits,
			"from":        t.From,
			"to":          t.To,
		})
		if !t.To.Alerting() {
			continue
		}

		// one record per admin so a bad number never blocks the others
		for _, admin := range admins {
			target := notify.NormalizePhone(admin.PhoneNumber)
			if target == "" {
				continue
			}
			name := admin.FullName
			if name == "" {
				name = "Admin"
			}
			productID := t.Product.ID
			n := &model.Notification{
				Kind:          model.NotifyKindStockAlert,
				RecipientName: name,
				Target:        target,
				Message:       notify.StockAlertMessage(name, &t.Product, t.To),
				RefTable:      "products",
				RefID:         &productID,
			}
			if err := s.outbox.Enqueue(n); err != nil {
				log.Printf("[stock-alert] enqueue for %s: %v", target, err)
				continue
			}
			queued++
		}
	}
	return queued
}

func (s *stockAlertService) EvaluateAndNotify(productID uuid.UUID) (*AlertResult, error) {
	var tr *StatusTransition
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		tr, err = s.EvaluateLocked(tx, productID)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := &AlertResult{ProductID: productID}
	if tr == nil {
		p, err := s.productRepo.FindByID(productID)
		if err != nil {
			return nil, notFoundAs(err, "Produk tidak ditemukan")
		}
		res.From, res.To = p.LastStockStatus, p.LastStockStatus
		return res, nil
	}

	res.Changed = true
	res.From, res.To = tr.From, tr.To
	res.Queued = s.Dispatch([]StatusTransition{*tr})
	return res, nil
}
