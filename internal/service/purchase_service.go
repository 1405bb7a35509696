package service

import (
	"errors"
	"log"
	"strings"
	"time"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/notify"
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type POItemRequest struct {
	ProductID    uuid.UUID       `json:"product_id" validate:"uuid_required"`
	QtyPack      int             `json:"qty_pack" validate:"gt=0"`
	PricePerPack decimal.Decimal `json:"price_per_pack"`
}

type CreatePORequest struct {
	SupplierID uuid.UUID       `json:"supplier_id" validate:"uuid_required"`
	Items      []POItemRequest `json:"items" validate:"required,min=1,dive"`
	Note       string          `json:"note"`
	SendNow    bool            `json:"send_now"`
}

// DecisionPatch is a supplier's answer for one PO item.
type DecisionPatch struct {
	ItemID               uuid.UUID        `json:"item_id"`
	Decision             string           `json:"decision"`
	SupplierPricePerPack *decimal.Decimal `json:"supplier_price_per_pack"`
	SupplierNote         string           `json:"supplier_note"`
}

type DecisionRequest struct {
	Items []DecisionPatch `json:"items"`
}

type GRNLine struct {
	ProductID   uuid.UUID `json:"product_id" validate:"uuid_required"`
	QtyPack     int       `json:"qty_pack" validate:"gte=0"`
	DiffQtyPack int       `json:"diff_qty_pack" validate:"gte=0"`
	DiffReason  string    `json:"diff_reason" validate:"required_unless=DiffQtyPack 0"`
}

type ReceiveRequest struct {
	Items []GRNLine `json:"items" validate:"required,min=1,dive"`
	Note  string    `json:"note"`
	// Final closes receiving (status received). Defaults to true; false
	// records a partial GRN and keeps the PO open.
	Final *bool `json:"final"`
}

type ReceiveResult struct {
	GrnID     uuid.UUID      `json:"grn_id"`
	Status    model.POStatus `json:"status"`
	Received  int            `json:"received_lines"`
	Returns   int            `json:"return_lines"`
	UnitsIn   int            `json:"units_in"`
	Finalized bool           `json:"finalized"`
}

type ReconciliationItem struct {
	ItemID           uuid.UUID              `json:"item_id"`
	ProductID        uuid.UUID              `json:"product_id"`
	ProductName      string                 `json:"product_name"`
	OrderedQtyPack   int                    `json:"ordered_qty_pack"`
	ReceivedQtyPack  int                    `json:"received_qty_pack"`
	RemainingQtyPack int                    `json:"remaining_qty_pack"`
	SupplierDecision model.SupplierDecision `json:"supplier_decision"`
	LastReturnReason *string                `json:"last_return_reason"`
}

type ReceiveDetail struct {
	PO       *model.PurchaseOrder `json:"po"`
	Items    []ReconciliationItem `json:"items"`
	Receipts []model.GrnReceipt   `json:"receipts"`
}

type PurchaseService interface {
	Create(req *CreatePORequest, actor Actor) (*model.PurchaseOrder, error)
	Send(id uuid.UUID, actor Actor) (*model.PurchaseOrder, error)
	Decide(id uuid.UUID, req *DecisionRequest, actor Actor) (*model.PurchaseOrder, error)
	Confirm(id uuid.UUID, req *DecisionRequest, actor Actor) (*model.PurchaseOrder, error)
	Receive(id uuid.UUID, req *ReceiveRequest, actor Actor) (*ReceiveResult, error)
	ReceiveDetail(id uuid.UUID, actor Actor) (*ReceiveDetail, error)
	List(filter repository.POFilter) ([]repository.POSummary, int64, error)
	ListMine(actor Actor) ([]repository.POSummary, error)
	Get(id uuid.UUID, actor Actor) (*model.PurchaseOrder, error)
}

type purchaseService struct {
	db           *gorm.DB
	poRepo       repository.PurchaseRepository
	productRepo  repository.ProductRepository
	supplierRepo repository.SupplierRepository
	alerts       StockAlertService
	outbox       Outbox
	events       EventPublisher
	storeName    string
}

func NewPurchaseService(
	db *gorm.DB,
	poRepo repository.PurchaseRepository,
	pRepo repository.ProductRepository,
	sRepo repository.SupplierRepository,
	alerts StockAlertService,
	outbox Outbox,
	events EventPublisher,
	storeName string,
) PurchaseService {
	return &purchaseService{
		db:           db,
		poRepo:       poRepo,
		productRepo:  pRepo,
		supplierRepo: sRepo,
		alerts:       alerts,
		outbox:       outbox,
		events:       publisherOrNop(events),
		storeName:    storeName,
	}
}

func transitionErr(err error) error {
	var terr *model.TransitionError
	if errors.As(err, &terr) {
		return apperr.Validation("%s", terr.Error())
	}
	return err
}

// authorize lets admins through and restricts suppliers to their own POs.
func authorize(po *model.PurchaseOrder, actor Actor) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleSupplier:
		if actor.SupplierID == nil {
			return apperr.Forbidden("Akun supplier belum terhubung ke organisasi supplier")
		}
		if *actor.SupplierID != po.SupplierID {
			return apperr.Forbidden("Forbidden")
		}
		return nil
	}
	return apperr.ErrForbidden
}

func (s *purchaseService) Create(req *CreatePORequest, actor Actor) (*model.PurchaseOrder, error) {
	// 1. Validate supplier and lines
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	supplier, err := s.supplierRepo.FindByID(req.SupplierID)
	if err != nil {
		return nil, notFoundAs(err, "Supplier tidak ditemukan")
	}

	seen := make(map[uuid.UUID]bool, len(req.Items))
	lines := make([]notify.POLine, 0, len(req.Items))
	items := make([]model.PurchaseOrderItem, 0, len(req.Items))
	for i, it := range req.Items {
		if seen[it.ProductID] {
			return nil, apperr.Validation("Produk duplikat pada items[%d]", i)
		}
		seen[it.ProductID] = true
		if it.PricePerPack.IsNegative() {
			return nil, apperr.Validation("items[%d].price_per_pack tidak valid", i)
		}
		p, err := s.productRepo.FindByID(it.ProductID)
		if err != nil {
			return nil, notFoundAs(err, "Produk tidak ditemukan")
		}
		items = append(items, model.PurchaseOrderItem{
			ProductID:        it.ProductID,
			QtyPack:          it.QtyPack,
			PricePerPack:     it.PricePerPack,
			SupplierDecision: model.DecisionPending,
		})
		lines = append(lines, notify.POLine{Name: p.Name, QtyPack: it.QtyPack, PricePerPack: it.PricePerPack})
	}

	// 2. Header and items in one unit of work
	now := time.Now()
	po := &model.PurchaseOrder{
		Code:          dailyCode("PO", now, 3),
		SupplierID:    supplier.ID,
		RequestedByID: actor.ID,
		Status:        model.POStatusDraft,
		Note:          strings.TrimSpace(req.Note),
		Items:         items,
	}
	if req.SendNow {
		next, err := po.Status.Transition(model.POEventSend)
		if err != nil {
			return nil, transitionErr(err)
		}
		po.Status = next
		po.SentAt = &now
	}
	po.CreatedBy = actor.audit()
	po.UpdatedBy = actor.audit()

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		return s.poRepo.Create(tx, po)
	}); err != nil {
		return nil, err
	}

	// 3. After commit
	if req.SendNow {
		s.notifySupplier(po, supplier, lines)
	}
	s.publish(po, "created")
	po.Supplier = supplier
	return po, nil
}

func (s *purchaseService) Send(id uuid.UUID, actor Actor) (*model.PurchaseOrder, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		po, err := s.poRepo.LockByID(tx, id)
		if err != nil {
			return notFoundAs(err, "PO tidak ditemukan")
		}
		next, err := po.Status.Transition(model.POEventSend)
		if err != nil {
			return transitionErr(err)
		}
		now := time.Now()
		po.Status = next
		po.SentAt = &now
		po.UpdatedBy = actor.audit()
		return s.poRepo.SaveHeader(tx, po)
	})
	if err != nil {
		return nil, err
	}

	po, err := s.poRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	lines := make([]notify.POLine, 0, len(po.Items))
	for _, it := range po.Items {
		name := "-"
		if it.Product != nil {
			name = it.Product.Name
		}
		lines = append(lines, notify.POLine{Name: name, QtyPack: it.QtyPack, PricePerPack: it.PricePerPack})
	}
	s.notifySupplier(po, po.Supplier, lines)
	s.publish(po, "sent")
	return po, nil
}

// applyDecisions patches items in place. Every patch must name an item of
// the PO.
func applyDecisions(items []model.PurchaseOrderItem, patches []DecisionPatch, at time.Time) ([]*model.PurchaseOrderItem, error) {
	byID := make(map[uuid.UUID]*model.PurchaseOrderItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	changed := make([]*model.PurchaseOrderItem, 0, len(patches))
	for i, p := range patches {
		it, ok := byID[p.ItemID]
		if !ok {
			return nil, apperr.Validation("items[%d].item_id bukan bagian dari PO ini", i)
		}
		d, ok := model.ParseDecision(strings.ToLower(strings.TrimSpace(p.Decision)))
		if !ok || d == model.DecisionPending {
			return nil, apperr.Validation("items[%d].decision harus send atau nosend", i)
		}
		if err := it.ApplyDecision(d, p.SupplierPricePerPack, strings.TrimSpace(p.SupplierNote), at); err != nil {
			return nil, apperr.Validation("items[%d]: %s", i, err.Error())
		}
		changed = append(changed, it)
	}
	return changed, nil
}

func (s *purchaseService) Decide(id uuid.UUID, req *DecisionRequest, actor Actor) (*model.PurchaseOrder, error) {
	if len(req.Items) == 0 {
		return nil, apperr.Validation("Items wajib diisi")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		po, err := s.poRepo.LockByID(tx, id)
		if err != nil {
			return notFoundAs(err, "PO tidak ditemukan")
		}
		if err := authorize(po, actor); err != nil {
			return err
		}
		// decisions are open while the PO can still be confirmed
		if !po.Status.Can(model.POEventConfirm) {
			return apperr.Validation("PO berstatus '%s' tidak bisa diubah", po.Status)
		}

		items, err := s.poRepo.Items(tx, po.ID)
		if err != nil {
			return err
		}
		changed, err := applyDecisions(items, req.Items, time.Now())
		if err != nil {
			return err
		}
		for _, it := range changed {
			it.UpdatedBy = actor.audit()
			if err := s.poRepo.SaveItem(tx, it); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	po, err := s.poRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	s.publish(po, "decided")
	return po, nil
}

func (s *purchaseService) Confirm(id uuid.UUID, req *DecisionRequest, actor Actor) (*model.PurchaseOrder, error) {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 1. Lock, check owner and state
		po, err := s.poRepo.LockByID(tx, id)
		if err != nil {
			return notFoundAs(err, "PO tidak ditemukan")
		}
		if err := authorize(po, actor); err != nil {
			return err
		}
		next, err := po.Status.Transition(model.POEventConfirm)
		if err != nil {
			return transitionErr(err)
		}

		// 2. Apply the optional patch, then require every line decided
		items, err := s.poRepo.Items(tx, po.ID)
		if err != nil {
			return err
		}
		now := time.Now()
		var changed []*model.PurchaseOrderItem
		if req != nil && len(req.Items) > 0 {
			if changed, err = applyDecisions(items, req.Items, now); err != nil {
				return err
			}
		}
		if bad, ok := model.ReadyToConfirm(items); !ok {
			if bad.SupplierDecision == model.DecisionSend {
				return apperr.Validation("Item %s: supplier_price_per_pack harus > 0", bad.ID)
			}
			return apperr.Validation("Semua item harus diputuskan (send/nosend) sebelum konfirmasi")
		}

		for _, it := range changed {
			it.UpdatedBy = actor.audit()
			if err := s.poRepo.SaveItem(tx, it); err != nil {
				return err
			}
		}

		// 3. Transition
		po.Status = next
		po.ConfirmedAt = &now
		po.UpdatedBy = actor.audit()
		return s.poRepo.SaveHeader(tx, po)
	})
	if err != nil {
		return nil, err
	}

	po, err := s.poRepo.FindByID(id)
	if err != nil {
		return nil, err
	}
	s.publish(po, "confirmed")
	return po, nil
}

// validateGRNLines checks the request tags, then the rules that span
// fields: one line per product, and each line must receive or report a
// difference.
func validateGRNLines(req *ReceiveRequest) error {
	for i := range req.Items {
		req.Items[i].DiffReason = strings.TrimSpace(req.Items[i].DiffReason)
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	seen := make(map[uuid.UUID]bool, len(req.Items))
	for i, l := range req.Items {
		if seen[l.ProductID] {
			return apperr.Validation("Produk duplikat pada items[%d]", i)
		}
		seen[l.ProductID] = true
		if l.QtyPack == 0 && l.DiffQtyPack == 0 {
			return apperr.Validation("items[%d]: qty_pack atau diff_qty_pack harus > 0", i)
		}
	}
	return nil
}

func (s *purchaseService) Receive(id uuid.UUID, req *ReceiveRequest, actor Actor) (*ReceiveResult, error) {
	if err := validateGRNLines(req); err != nil {
		return nil, err
	}
	final := req.Final == nil || *req.Final

	var (
		result      *ReceiveResult
		transitions []StatusTransition
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// 1. Lock the PO and check it can still receive
		po, err := s.poRepo.LockByID(tx, id)
		if err != nil {
			return notFoundAs(err, "PO tidak ditemukan")
		}
		next, err := po.Status.Transition(model.POEventReceive)
		if err != nil {
			return transitionErr(err)
		}

		items, err := s.poRepo.Items(tx, po.ID)
		if err != nil {
			return err
		}
		onPO := make(map[uuid.UUID]bool, len(items))
		for _, it := range items {
			onPO[it.ProductID] = true
		}

		// 2. GRN header
		now := time.Now()
		actorID := actor.ID
		grn := &model.GrnReceipt{
			PurchaseOrderID: po.ID,
			ReceivedByID:    &actorID,
			Note:            strings.TrimSpace(req.Note),
			ReceivedAt:      now,
		}
		grn.CreatedBy = actor.audit()
		if err := s.poRepo.CreateReceipt(tx, grn); err != nil {
			return err
		}
		result = &ReceiveResult{GrnID: grn.ID, Status: po.Status}

		// 3. Lines: goods in credit the ledger, shortfalls become returns
		var touched []uuid.UUID
		for i, l := range req.Items {
			if !onPO[l.ProductID] {
				return apperr.Validation("items[%d]: produk tidak ada di PO ini", i)
			}
			p, err := s.productRepo.LockByID(tx, l.ProductID)
			if err != nil {
				return notFoundAs(err, "Produk tidak ditemukan")
			}

			if l.QtyPack > 0 {
				if err := s.poRepo.CreateReceiptItem(tx, &model.GrnReceiptItem{
					GrnReceiptID: grn.ID,
					ProductID:    p.ID,
					QtyPack:      l.QtyPack,
				}); err != nil {
					return err
				}
				units := p.UnitsFor(model.UnitPack, l.QtyPack)
				mv := &model.StockMovement{
					Source:    model.SourcePurchase,
					RefTable:  "grn_receipts",
					RefID:     &grn.ID,
					Note:      "GRN " + po.Code,
					CreatedBy: actor.audit(),
				}
				if err := s.productRepo.AdjustStock(tx, p.ID, units, mv); err != nil {
					return err
				}
				result.Received++
				result.UnitsIn += units
				touched = append(touched, p.ID)
			}

			if l.DiffQtyPack > 0 {
				if err := s.poRepo.CreateReturn(tx, &model.SupplierReturn{
					GrnReceiptID:    grn.ID,
					PurchaseOrderID: po.ID,
					ProductID:       p.ID,
					QtyPack:         l.DiffQtyPack,
					Reason:          strings.TrimSpace(l.DiffReason),
				}); err != nil {
					return err
				}
				result.Returns++
			}
		}

		// 4. Close receiving when the admin says so
		if final {
			po.Status = next
			po.ReceivedAt = &now
			po.UpdatedBy = actor.audit()
			if err := s.poRepo.SaveHeader(tx, po); err != nil {
				return err
			}
			result.Status = next
			result.Finalized = true
		}

		// 5. Status transitions under the product locks
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

	s.alerts.Dispatch(transitions)
	s.events.Publish(ws.EventPOUpdated, map[string]interface{}{
		"po_id":  id,
		"action": "received",
		"status": result.Status,
		"grn_id": result.GrnID,
	})
	return result, nil
}

func (s *purchaseService) ReceiveDetail(id uuid.UUID, actor Actor) (*ReceiveDetail, error) {
	po, err := s.Get(id, actor)
	if err != nil {
		return nil, err
	}
	received, err := s.poRepo.ReceivedPacks(po.ID)
	if err != nil {
		return nil, err
	}
	reasons, err := s.poRepo.LatestReturnReasons(po.ID)
	if err != nil {
		return nil, err
	}
	receipts, err := s.poRepo.Receipts(po.ID)
	if err != nil {
		return nil, err
	}

	detail := &ReceiveDetail{PO: po, Receipts: receipts, Items: make([]ReconciliationItem, 0, len(po.Items))}
	for _, it := range po.Items {
		row := ReconciliationItem{
			ItemID:           it.ID,
			ProductID:        it.ProductID,
			OrderedQtyPack:   it.QtyPack,
			ReceivedQtyPack:  received[it.ProductID],
			SupplierDecision: it.SupplierDecision,
		}
		if it.Product != nil {
			row.ProductName = it.Product.Name
		}
		if remaining := row.OrderedQtyPack - row.ReceivedQtyPack; remaining > 0 {
			row.RemainingQtyPack = remaining
		}
		if reason, ok := reasons[it.ProductID]; ok {
			r := reason
			row.LastReturnReason = &r
		}
		detail.Items = append(detail.Items, row)
	}
	return detail, nil
}

func (s *purchaseService) List(filter repository.POFilter) ([]repository.POSummary, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Status != "" {
		if _, ok := model.ParsePOStatus(filter.Status); !ok {
			return nil, 0, apperr.Validation("status tidak valid")
		}
	}
	return s.poRepo.List(filter)
}

func (s *purchaseService) ListMine(actor Actor) ([]repository.POSummary, error) {
	if actor.SupplierID == nil {
		return nil, apperr.Validation("Akun supplier belum terhubung ke organisasi supplier")
	}
	return s.poRepo.ListBySupplier(*actor.SupplierID)
}

func (s *purchaseService) Get(id uuid.UUID, actor Actor) (*model.PurchaseOrder, error) {
	po, err := s.poRepo.FindByID(id)
	if err != nil {
		return nil, notFoundAs(err, "PO tidak ditemukan")
	}
	if err := authorize(po, actor); err != nil {
		return nil, err
	}
	return po, nil
}

// notifySupplier queues the PO WhatsApp message. Failures are logged only.
func (s *purchaseService) notifySupplier(po *model.PurchaseOrder, supplier *model.Supplier, lines []notify.POLine) {
	if supplier == nil {
		return
	}
	target := notify.NormalizePhone(supplier.Phone)
	if target == "" {
		log.Printf("[purchase] %s: supplier %s has no WhatsApp number", po.Code, supplier.Name)
		return
	}
	poID := po.ID
	n := &model.Notification{
		Kind:          model.NotifyKindPOCreated,
		RecipientName: supplier.Name,
		Target:        target,
		Message:       notify.POCreatedMessage(supplier.Name, s.storeName, po.Code, lines, po.Note),
		RefTable:      "purchase_orders",
		RefID:         &poID,
	}
	if err := s.outbox.Enqueue(n); err != nil {
		log.Printf("[purchase] %s: enqueue supplier notification: %v", po.Code, err)
	}
}

func (s *purchaseService) publish(po *model.PurchaseOrder, action string) {
	s.events.Publish(ws.EventPOUpdated, map[string]interface{}{
		"po_id":  po.ID,
		"code":   po.Code,
		"action": action,
		"status": po.Status,
	})
}
