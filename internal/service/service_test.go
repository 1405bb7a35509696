package service

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"ijaplastik-pos/internal/apperr"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeOutbox struct {
	mu    sync.Mutex
	items []*model.Notification
}

func (f *fakeOutbox) Enqueue(notifs ...*model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, notifs...)
	return nil
}

func (f *fakeOutbox) byKind(kind string) []*model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Notification
	for _, n := range f.items {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) Publish(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

type fixture struct {
	db        *gorm.DB
	outbox    *fakeOutbox
	events    *fakePublisher
	products  ProductService
	sales     SaleService
	purchases PurchaseService
	alerts    StockAlertService
	auth      AuthService
	users     UserService
	suppliers SupplierService
	reports   ReportService
	admin     Actor
	cashier   Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	productRepo := repository.NewProductRepo(db)
	userRepo := repository.NewUserRepo(db)
	supplierRepo := repository.NewSupplierRepo(db)
	purchaseRepo := repository.NewPurchaseRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	reportRepo := repository.NewReportRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	f := &fixture{db: db, outbox: &fakeOutbox{}, events: &fakePublisher{}}
	f.alerts = NewStockAlertService(db, productRepo, userRepo, f.outbox, f.events)
	f.products = NewProductService(db, productRepo, f.alerts, f.events)
	f.sales = NewSaleService(db, saleRepo, productRepo, f.alerts, f.events, "TOKO TEST")
	f.purchases = NewPurchaseService(db, purchaseRepo, productRepo, supplierRepo, f.alerts, f.outbox, f.events, "TOKO TEST")
	f.auth = NewAuthService(userRepo)
	f.users = NewUserService(db, userRepo, roleRepo, supplierRepo, "123456789")
	f.suppliers = NewSupplierService(db, supplierRepo)
	f.reports = NewReportService(reportRepo, userRepo)

	admin := testutil.CreateUser(t, db, model.RoleAdmin, "admin@test.local", "0811111111", nil)
	cashier := testutil.CreateUser(t, db, model.RoleCashier, "kasir@test.local", "", nil)
	f.admin = Actor{ID: admin.ID, Name: "Admin", Role: model.RoleAdmin}
	f.cashier = Actor{ID: cashier.ID, Name: "Kasir", Role: model.RoleCashier}
	return f
}

func (f *fixture) supplierActor(t *testing.T, sup *model.Supplier, email string) Actor {
	t.Helper()
	u := testutil.CreateUser(t, f.db, model.RoleSupplier, email, "", &sup.ID)
	return Actor{ID: u.ID, Name: u.FullName, Role: model.RoleSupplier, SupplierID: &sup.ID}
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	var p model.Product
	if err := f.db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatal(err)
	}
	return p.StockUnits
}

func (f *fixture) movements(t *testing.T, id uuid.UUID, source model.MovementSource) []model.StockMovement {
	t.Helper()
	var mvs []model.StockMovement
	if err := f.db.Where("product_id = ? AND source = ?", id, source).Find(&mvs).Error; err != nil {
		t.Fatal(err)
	}
	return mvs
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func assertKind(t *testing.T, err error, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want kind of %v", err, want)
	}
}

func TestProductCreateInitialStockMovement(t *testing.T) {
	f := newFixture(t)

	p, err := f.products.Create(&CreateProductRequest{
		Name:                  "Kantong Plastik 15x30",
		SKU:                   "KP-1530",
		UnitName:              "pcs",
		PackSize:              100,
		RetailPricePerUnit:    dec(150),
		WholesalePricePerPack: dec(12000),
		InitialStockUnits:     50,
		MinStockUnits:         testutil.IntPtr(60),
	}, f.admin)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	mvs := f.movements(t, p.ID, model.SourceInit)
	if len(mvs) != 1 || mvs[0].Direction != model.MovementIn || mvs[0].QtyUnits != 50 {
		t.Fatalf("init movements = %+v, want one in/init of 50", mvs)
	}
	if got := testutil.LedgerSum(t, f.db, p.ID); got != 50 {
		t.Errorf("ledger sum = %d, want 50", got)
	}
	if p.LastStockStatus != model.StockLow {
		t.Errorf("status = %s, want LOW", p.LastStockStatus)
	}
	if n := len(f.outbox.items); n != 0 {
		t.Errorf("creation queued %d notifications, want 0", n)
	}

	_, err = f.products.Create(&CreateProductRequest{
		Name: "Duplikat", SKU: "KP-1530", UnitName: "pcs", PackSize: 1,
		RetailPricePerUnit: dec(1), WholesalePricePerPack: dec(1),
	}, f.admin)
	if !errors.Is(err, &apperr.Error{Kind: apperr.KindConflict}) {
		t.Errorf("duplicate sku error = %v, want conflict", err)
	}
}

func TestProductUpdateStockAndThresholds(t *testing.T) {
	f := newFixture(t)
	p := testutil.CreateProduct(t, f.db, "Gelas Plastik", 50, 100, testutil.IntPtr(10), nil)

	five := 5
	updated, err := f.products.Update(p.ID, &UpdateProductRequest{StockUnits: &five}, f.admin)
	if err != nil {
		t.Fatalf("Update stock: %v", err)
	}
	if updated.StockUnits != 5 || updated.LastStockStatus != model.StockLow {
		t.Fatalf("got stock %d status %s, want 5 LOW", updated.StockUnits, updated.LastStockStatus)
	}
	adj := f.movements(t, p.ID, model.SourceAdjustment)
	if len(adj) != 1 || adj[0].Delta() != -95 {
		t.Fatalf("adjustment movements = %+v, want one of -95", adj)
	}
	if got := testutil.LedgerSum(t, f.db, p.ID); got != 5 {
		t.Errorf("ledger sum = %d, want 5", got)
	}
	if alerts := f.outbox.byKind(model.NotifyKindStockAlert); len(alerts) != 1 || alerts[0].Target != "62811111111" {
		t.Fatalf("stock alerts = %+v, want one to the admin", alerts)
	}

	// explicit null clears the minimum and brings the product back to NORMAL
	cleared, err := f.products.Update(p.ID, &UpdateProductRequest{MinStockUnits: Nullable[int]{Set: true}}, f.admin)
	if err != nil {
		t.Fatalf("Update threshold: %v", err)
	}
	if cleared.MinStockUnits != nil || cleared.LastStockStatus != model.StockNormal {
		t.Errorf("min = %v status = %s, want nil NORMAL", cleared.MinStockUnits, cleared.LastStockStatus)
	}

	negative := -1
	_, err = f.products.Update(p.ID, &UpdateProductRequest{StockUnits: &negative}, f.admin)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})
}

func TestSaleCreate(t *testing.T) {
	f := newFixture(t)
	p := testutil.CreateProduct(t, f.db, "Sedotan", 10, 100, nil, nil)

	sale, err := f.sales.Create(&CreateSaleRequest{
		Items: []SaleItemRequest{
			{ProductID: p.ID, UnitType: "pack", Qty: 2},
			{ProductID: p.ID, UnitType: "unit", Qty: 3},
		},
		PaymentMethod: "cash",
		CashReceived:  decPtr(25000),
	}, f.cashier)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// 2 packs at 9000 + 3 units at 1000
	if !sale.Total.Equal(dec(21000)) {
		t.Errorf("total = %s, want 21000", sale.Total)
	}
	if sale.ChangeAmount == nil || !sale.ChangeAmount.Equal(dec(4000)) {
		t.Errorf("change = %v, want 4000", sale.ChangeAmount)
	}
	if got := f.stock(t, p.ID); got != 77 {
		t.Errorf("stock = %d, want 77", got)
	}
	if got := testutil.LedgerSum(t, f.db, p.ID); got != 77 {
		t.Errorf("ledger sum = %d, want 77", got)
	}

	html, err := f.sales.ReceiptHTML(sale.ID)
	if err != nil {
		t.Fatalf("ReceiptHTML: %v", err)
	}
	if want := sale.ReceiptNo; !strings.Contains(html, want) || !strings.Contains(html, "TOKO TEST") {
		t.Errorf("receipt missing %q or store name", want)
	}
}

func TestSalePaymentErrors(t *testing.T) {
	f := newFixture(t)
	p := testutil.CreateProduct(t, f.db, "Sendok", 1, 10, nil, nil)
	line := []SaleItemRequest{{ProductID: p.ID, UnitType: "unit", Qty: 2}}

	_, err := f.sales.Create(&CreateSaleRequest{Items: line, PaymentMethod: "cash", CashReceived: decPtr(1000)}, f.cashier)
	assertKind(t, err, apperr.ErrInsufficientPayment)

	_, err = f.sales.Create(&CreateSaleRequest{Items: line, PaymentMethod: "cash"}, f.cashier)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})

	_, err = f.sales.Create(&CreateSaleRequest{Items: line, PaymentMethod: "bitcoin"}, f.cashier)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})

	if _, err := f.sales.Create(&CreateSaleRequest{Items: line, PaymentMethod: "qris"}, f.cashier); err != nil {
		t.Fatalf("qris sale: %v", err)
	}
	if got := f.stock(t, p.ID); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
}

func TestSaleInsufficientStockRollsBack(t *testing.T) {
	f := newFixture(t)
	a := testutil.CreateProduct(t, f.db, "Botol", 1, 10, nil, nil)
	b := testutil.CreateProduct(t, f.db, "Tutup", 1, 2, nil, nil)

	_, err := f.sales.Create(&CreateSaleRequest{
		Items: []SaleItemRequest{
			{ProductID: a.ID, UnitType: "unit", Qty: 5},
			{ProductID: b.ID, UnitType: "unit", Qty: 3},
		},
		PaymentMethod: "card",
	}, f.cashier)
	assertKind(t, err, apperr.ErrInsufficientStock)

	var sales, items int64
	f.db.Model(&model.Sale{}).Count(&sales)
	f.db.Model(&model.SaleItem{}).Count(&items)
	if sales != 0 || items != 0 {
		t.Errorf("sales=%d items=%d after failed sale, want 0", sales, items)
	}
	if n := len(f.movements(t, a.ID, model.SourceSale)); n != 0 {
		t.Errorf("%d sale movements left behind", n)
	}
	if got := f.stock(t, a.ID); got != 10 {
		t.Errorf("stock = %d, want 10", got)
	}
}

func TestConcurrentSalesOfLastUnit(t *testing.T) {
	f := newFixture(t)
	p := testutil.CreateProduct(t, f.db, "Mangkok", 1, 1, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.sales.Create(&CreateSaleRequest{
				Items:         []SaleItemRequest{{ProductID: p.ID, UnitType: "unit", Qty: 1}},
				PaymentMethod: "qris",
			}, f.cashier)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, apperr.ErrInsufficientStock):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("%d sales succeeded, want exactly 1", ok)
	}
	if got := f.stock(t, p.ID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
}

func TestEvaluateAndNotifyIsEdgeTriggered(t *testing.T) {
	f := newFixture(t)
	testutil.CreateUser(t, f.db, model.RoleAdmin, "admin2@test.local", "+62 822-2222-2222", nil)
	testutil.CreateUser(t, f.db, model.RoleAdmin, "nophone@test.local", "", nil)

	p := testutil.CreateProduct(t, f.db, "Piring", 1, 5, testutil.IntPtr(10), nil)
	// pretend the stored status lags behind
	f.db.Model(&model.Product{}).Where("id = ?", p.ID).Update("last_stock_status", model.StockNormal)

	first, err := f.alerts.EvaluateAndNotify(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Changed || first.To != model.StockLow || first.Queued != 2 {
		t.Fatalf("first = %+v, want changed to LOW with 2 queued", first)
	}

	second, err := f.alerts.EvaluateAndNotify(p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.Changed || second.Queued != 0 {
		t.Fatalf("second = %+v, want no change", second)
	}
	if n := len(f.outbox.byKind(model.NotifyKindStockAlert)); n != 2 {
		t.Errorf("queued %d alerts, want 2", n)
	}
}

func createPO(t *testing.T, f *fixture, sup *model.Supplier, p *model.Product, packs int, sendNow bool) *model.PurchaseOrder {
	t.Helper()
	po, err := f.purchases.Create(&CreatePORequest{
		SupplierID: sup.ID,
		Items:      []POItemRequest{{ProductID: p.ID, QtyPack: packs, PricePerPack: dec(50000)}},
		Note:       "Kirim pagi",
		SendNow:    sendNow,
	}, f.admin)
	if err != nil {
		t.Fatalf("create PO: %v", err)
	}
	return po
}

func TestPurchaseCreateAndSend(t *testing.T) {
	f := newFixture(t)
	sup := testutil.CreateSupplier(t, f.db, "CV Plastindo", "0813-3333-3333")
	p := testutil.CreateProduct(t, f.db, "Kresek Hitam", 100, 0, nil, nil)

	draft := createPO(t, f, sup, p, 5, false)
	if draft.Status != model.POStatusDraft || len(f.outbox.items) != 0 {
		t.Fatalf("draft status %s with %d notifications", draft.Status, len(f.outbox.items))
	}

	sent, err := f.purchases.Send(draft.ID, f.admin)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent.Status != model.POStatusSent || sent.SentAt == nil {
		t.Fatalf("sent = %s at %v", sent.Status, sent.SentAt)
	}
	msgs := f.outbox.byKind(model.NotifyKindPOCreated)
	if len(msgs) != 1 || msgs[0].Target != "6281333333333" || !strings.Contains(msgs[0].Message, draft.Code) {
		t.Fatalf("supplier notifications = %+v", msgs)
	}

	_, err = f.purchases.Send(draft.ID, f.admin)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})

	now := createPO(t, f, sup, p, 1, true)
	if now.Status != model.POStatusSent {
		t.Errorf("send_now status = %s, want sent", now.Status)
	}

	_, err = f.purchases.Create(&CreatePORequest{
		SupplierID: sup.ID,
		Items: []POItemRequest{
			{ProductID: p.ID, QtyPack: 1, PricePerPack: dec(1)},
			{ProductID: p.ID, QtyPack: 2, PricePerPack: dec(1)},
		},
	}, f.admin)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})
}

func TestPurchaseConfirmRequiresDecisions(t *testing.T) {
	f := newFixture(t)
	sup := testutil.CreateSupplier(t, f.db, "CV Plastindo", "")
	p1 := testutil.CreateProduct(t, f.db, "Kresek Hitam", 100, 0, nil, nil)
	p2 := testutil.CreateProduct(t, f.db, "Kresek Putih", 100, 0, nil, nil)
	owner := f.supplierActor(t, sup, "supplier@test.local")

	po, err := f.purchases.Create(&CreatePORequest{
		SupplierID: sup.ID,
		Items: []POItemRequest{
			{ProductID: p1.ID, QtyPack: 5, PricePerPack: dec(50000)},
			{ProductID: p2.ID, QtyPack: 5, PricePerPack: dec(50000)},
		},
		SendNow: true,
	}, f.admin)
	if err != nil {
		t.Fatal(err)
	}
	item1, item2 := po.Items[0].ID, po.Items[1].ID

	// decisions only record; status stays
	decided, err := f.purchases.Decide(po.ID, &DecisionRequest{Items: []DecisionPatch{
		{ItemID: item1, Decision: "send", SupplierPricePerPack: decPtr(48000)},
	}}, owner)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != model.POStatusSent {
		t.Fatalf("status after decide = %s, want sent", decided.Status)
	}

	_, err = f.purchases.Confirm(po.ID, nil, owner)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})

	_, err = f.purchases.Confirm(po.ID, &DecisionRequest{Items: []DecisionPatch{
		{ItemID: item2, Decision: "send", SupplierPricePerPack: decPtr(0)},
	}}, owner)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})

	stored, _ := f.purchases.Get(po.ID, f.admin)
	if stored.Status != model.POStatusSent {
		t.Fatalf("status after rejected confirm = %s, want sent", stored.Status)
	}

	stranger := f.supplierActor(t, testutil.CreateSupplier(t, f.db, "UD Lain", ""), "lain@test.local")
	_, err = f.purchases.Confirm(po.ID, nil, stranger)
	assertKind(t, err, apperr.ErrForbidden)
	_, err = f.purchases.Get(po.ID, stranger)
	assertKind(t, err, apperr.ErrForbidden)

	confirmed, err := f.purchases.Confirm(po.ID, &DecisionRequest{Items: []DecisionPatch{
		{ItemID: item2, Decision: "nosend", SupplierNote: "stok kosong"},
	}}, owner)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed.Status != model.POStatusConfirmed || confirmed.ConfirmedAt == nil {
		t.Fatalf("confirmed = %s at %v", confirmed.Status, confirmed.ConfirmedAt)
	}

	mine, err := f.purchases.ListMine(owner)
	if err != nil || len(mine) != 1 || mine[0].ItemCount != 2 {
		t.Fatalf("ListMine = %+v, %v", mine, err)
	}
}

func TestPurchasePartialReceipts(t *testing.T) {
	f := newFixture(t)
	sup := testutil.CreateSupplier(t, f.db, "CV Plastindo", "")
	p := testutil.CreateProduct(t, f.db, "Gelas 16oz", 50, 0, nil, nil)
	po := createPO(t, f, sup, p, 10, true)

	open := false
	res, err := f.purchases.Receive(po.ID, &ReceiveRequest{
		Items: []GRNLine{{ProductID: p.ID, QtyPack: 4}},
		Final: &open,
	}, f.admin)
	if err != nil {
		t.Fatalf("first receive: %v", err)
	}
	if res.Finalized || res.Status != model.POStatusSent || res.UnitsIn != 200 {
		t.Fatalf("first result = %+v", res)
	}

	res, err = f.purchases.Receive(po.ID, &ReceiveRequest{
		Items: []GRNLine{{ProductID: p.ID, QtyPack: 3, DiffQtyPack: 3, DiffReason: "rusak di jalan"}},
	}, f.admin)
	if err != nil {
		t.Fatalf("second receive: %v", err)
	}
	if !res.Finalized || res.Status != model.POStatusReceived || res.Returns != 1 {
		t.Fatalf("second result = %+v", res)
	}

	detail, err := f.purchases.ReceiveDetail(po.ID, f.admin)
	if err != nil {
		t.Fatal(err)
	}
	row := detail.Items[0]
	if row.ReceivedQtyPack != 7 || row.RemainingQtyPack != 3 {
		t.Errorf("received %d remaining %d, want 7 and 3", row.ReceivedQtyPack, row.RemainingQtyPack)
	}
	if row.LastReturnReason == nil || *row.LastReturnReason != "rusak di jalan" {
		t.Errorf("last return reason = %v", row.LastReturnReason)
	}
	if len(detail.Receipts) != 2 {
		t.Errorf("%d receipts, want 2", len(detail.Receipts))
	}
	if got := f.stock(t, p.ID); got != 350 {
		t.Errorf("stock = %d, want 350", got)
	}
	if got := testutil.LedgerSum(t, f.db, p.ID); got != 350 {
		t.Errorf("ledger sum = %d, want 350", got)
	}

	_, err = f.purchases.Receive(po.ID, &ReceiveRequest{Items: []GRNLine{{ProductID: p.ID, QtyPack: 1}}}, f.admin)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})
}

func TestReceiveReturnOnlyLine(t *testing.T) {
	f := newFixture(t)
	sup := testutil.CreateSupplier(t, f.db, "CV Plastindo", "")
	p := testutil.CreateProduct(t, f.db, "Sedotan", 100, 0, nil, nil)
	po := createPO(t, f, sup, p, 5, false)

	_, err := f.purchases.Receive(po.ID, &ReceiveRequest{
		Items: []GRNLine{{ProductID: p.ID, DiffQtyPack: 5}},
	}, f.admin)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})

	res, err := f.purchases.Receive(po.ID, &ReceiveRequest{
		Items: []GRNLine{{ProductID: p.ID, DiffQtyPack: 5, DiffReason: "tidak dikirim"}},
	}, f.admin)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if res.Returns != 1 || res.Received != 0 {
		t.Fatalf("result = %+v", res)
	}

	var returns []model.SupplierReturn
	f.db.Where("purchase_order_id = ?", po.ID).Find(&returns)
	if len(returns) != 1 || returns[0].QtyPack != 5 {
		t.Fatalf("returns = %+v", returns)
	}
	if n := len(f.movements(t, p.ID, model.SourcePurchase)); n != 0 {
		t.Errorf("%d purchase movements, want 0", n)
	}

	other := testutil.CreateProduct(t, f.db, "Bukan di PO", 1, 0, nil, nil)
	po2 := createPO(t, f, sup, p, 1, false)
	_, err = f.purchases.Receive(po2.ID, &ReceiveRequest{Items: []GRNLine{{ProductID: other.ID, QtyPack: 1}}}, f.admin)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})
}

func TestReceiveTriggersOverAlert(t *testing.T) {
	f := newFixture(t)
	sup := testutil.CreateSupplier(t, f.db, "CV Plastindo", "")
	p := testutil.CreateProduct(t, f.db, "Cup Sealer", 10, 5, nil, testutil.IntPtr(50))
	po := createPO(t, f, sup, p, 10, true)

	if _, err := f.purchases.Receive(po.ID, &ReceiveRequest{Items: []GRNLine{{ProductID: p.ID, QtyPack: 10}}}, f.admin); err != nil {
		t.Fatal(err)
	}
	alerts := f.outbox.byKind(model.NotifyKindStockAlert)
	if len(alerts) != 1 || !strings.Contains(alerts[0].Message, "Cup Sealer") {
		t.Fatalf("alerts = %+v, want one OVER alert", alerts)
	}
}

func TestPurchaseList(t *testing.T) {
	f := newFixture(t)
	sup := testutil.CreateSupplier(t, f.db, "CV Plastindo", "")
	p := testutil.CreateProduct(t, f.db, "Kresek", 100, 0, nil, nil)
	createPO(t, f, sup, p, 1, false)
	createPO(t, f, sup, p, 1, true)

	rows, total, err := f.purchases.List(repository.POFilter{Status: "sent", Limit: 500})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(rows) != 1 || rows[0].SupplierName != "CV Plastindo" {
		t.Fatalf("rows = %+v total = %d", rows, total)
	}

	_, _, err = f.purchases.List(repository.POFilter{Status: "lost"})
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})
}

func TestAuthLoginRevokesOlderSessions(t *testing.T) {
	f := newFixture(t)

	first, err := f.auth.Login("ADMIN@test.local", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := f.auth.Authenticate(first.Token); err != nil {
		t.Fatalf("Authenticate first: %v", err)
	}

	second, err := f.auth.Login("admin@test.local", "secret123")
	if err != nil {
		t.Fatal(err)
	}
	_, err = f.auth.Authenticate(first.Token)
	assertKind(t, err, apperr.ErrUnauthorized)

	actor, err := f.auth.Authenticate(second.Token)
	if err != nil || actor.Role != model.RoleAdmin {
		t.Fatalf("actor = %+v, %v", actor, err)
	}

	_, err = f.auth.Login("admin@test.local", "wrong")
	assertKind(t, err, apperr.ErrUnauthorized)
	_, err = f.auth.Login("nobody@test.local", "secret123")
	assertKind(t, err, apperr.ErrUnauthorized)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)

	err := f.auth.ChangePassword(f.cashier.ID, &ChangePasswordRequest{OldPassword: "nope", NewPassword: "newpass1"})
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})

	err = f.auth.ChangePassword(f.cashier.ID, &ChangePasswordRequest{OldPassword: "secret123", NewPassword: "123"})
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})

	if err := f.auth.ChangePassword(f.cashier.ID, &ChangePasswordRequest{OldPassword: "secret123", NewPassword: "newpass1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.auth.Login("kasir@test.local", "newpass1"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestUserCreateSupplierAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.Create(&CreateUserRequest{
		Email: "sup@test.local", FullName: "Sup", Role: "supplier",
	}, f.admin)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})

	created, err := f.users.Create(&CreateUserRequest{
		Email:       "sup@test.local",
		FullName:    "Sup",
		Role:        "supplier",
		SupplierNew: &NewSupplierRequest{Name: "UD Baru", Phone: "0812"},
	}, f.admin)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Role != model.RoleSupplier || created.SupplierID == nil || created.SupplierName != "UD Baru" {
		t.Fatalf("created = %+v", created)
	}
	if _, err := f.auth.Login("sup@test.local", "123456789"); err != nil {
		t.Fatalf("login with default password: %v", err)
	}

	_, err = f.users.Create(&CreateUserRequest{Email: "sup@test.local", FullName: "Dup", Role: "cashier"}, f.admin)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindConflict})

	list, err := f.users.List(repository.UserFilter{Role: "supplier"})
	if err != nil || len(list) != 1 {
		t.Fatalf("supplier users = %+v, %v", list, err)
	}
}

func TestUserDeactivateAndReset(t *testing.T) {
	f := newFixture(t)
	login, err := f.auth.Login("kasir@test.local", "secret123")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.users.ResetPassword(f.cashier.ID, ""); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	_, err = f.auth.Authenticate(login.Token)
	assertKind(t, err, apperr.ErrUnauthorized)
	if _, err := f.auth.Login("kasir@test.local", "123456789"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}

	err = f.users.Deactivate(f.admin.ID, f.admin)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})

	if err := f.users.Deactivate(f.cashier.ID, f.admin); err != nil {
		t.Fatal(err)
	}
	_, err = f.auth.Login("kasir@test.local", "123456789")
	assertKind(t, err, apperr.ErrUnauthorized)

	err = f.users.Deactivate(uuid.New(), f.admin)
	assertKind(t, err, apperr.ErrNotFound)
}

func TestSupplierCRUD(t *testing.T) {
	f := newFixture(t)

	_, err := f.suppliers.Create(&SupplierRequest{Name: "  "}, f.admin)
	assertKind(t, err, &apperr.Error{Kind: apperr.KindValidation})

	sup, err := f.suppliers.Create(&SupplierRequest{Name: "CV Maju", Phone: "0812"}, f.admin)
	if err != nil {
		t.Fatal(err)
	}
	addr := "Jl. Pasar 1"
	updated, err := f.suppliers.Update(sup.ID, &UpdateSupplierRequest{Address: &addr}, f.admin)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Address != addr || updated.Name != "CV Maju" || updated.Phone != "0812" {
		t.Errorf("updated = %+v", updated)
	}

	if err := f.suppliers.Delete(sup.ID, f.admin); err != nil {
		t.Fatal(err)
	}
	_, err = f.suppliers.Get(sup.ID)
	assertKind(t, err, apperr.ErrNotFound)
}

func TestRequestTagValidation(t *testing.T) {
	f := newFixture(t)
	sup := testutil.CreateSupplier(t, f.db, "CV Plastindo", "")
	p := testutil.CreateProduct(t, f.db, "Toples", 10, 100, nil, nil)
	po := createPO(t, f, sup, p, 5, false)
	validation := &apperr.Error{Kind: apperr.KindValidation}

	sales := []struct {
		name  string
		items []SaleItemRequest
	}{
		{"no items", nil},
		{"missing product", []SaleItemRequest{{UnitType: "unit", Qty: 1}}},
		{"bad unit type", []SaleItemRequest{{ProductID: p.ID, UnitType: "box", Qty: 1}}},
		{"zero qty", []SaleItemRequest{{ProductID: p.ID, UnitType: "unit", Qty: 0}}},
	}
	for _, tc := range sales {
		t.Run("sale "+tc.name, func(t *testing.T) {
			_, err := f.sales.Create(&CreateSaleRequest{Items: tc.items, PaymentMethod: "qris"}, f.cashier)
			assertKind(t, err, validation)
		})
	}

	pos := []struct {
		name string
		req  CreatePORequest
	}{
		{"missing supplier", CreatePORequest{Items: []POItemRequest{{ProductID: p.ID, QtyPack: 1}}}},
		{"no items", CreatePORequest{SupplierID: sup.ID}},
		{"zero qty", CreatePORequest{SupplierID: sup.ID, Items: []POItemRequest{{ProductID: p.ID}}}},
	}
	for _, tc := range pos {
		t.Run("po "+tc.name, func(t *testing.T) {
			req := tc.req
			_, err := f.purchases.Create(&req, f.admin)
			assertKind(t, err, validation)
		})
	}

	grns := []struct {
		name  string
		lines []GRNLine
	}{
		{"no items", nil},
		{"missing product", []GRNLine{{QtyPack: 1}}},
		{"negative qty", []GRNLine{{ProductID: p.ID, QtyPack: -1, DiffQtyPack: 2, DiffReason: "rusak"}}},
		{"negative diff", []GRNLine{{ProductID: p.ID, QtyPack: 1, DiffQtyPack: -1}}},
		{"diff without reason", []GRNLine{{ProductID: p.ID, QtyPack: 1, DiffQtyPack: 1, DiffReason: "  "}}},
		{"nothing received", []GRNLine{{ProductID: p.ID}}},
	}
	for _, tc := range grns {
		t.Run("grn "+tc.name, func(t *testing.T) {
			_, err := f.purchases.Receive(po.ID, &ReceiveRequest{Items: tc.lines}, f.admin)
			assertKind(t, err, validation)
		})
	}
	if got := f.stock(t, p.ID); got != 100 {
		t.Fatalf("stock = %d after rejected requests, want 100", got)
	}

	sale, err := f.sales.Create(&CreateSaleRequest{
		Items:         []SaleItemRequest{{ProductID: p.ID, UnitType: " PACK ", Qty: 1}},
		PaymentMethod: "qris",
	}, f.cashier)
	if err != nil {
		t.Fatalf("upper-case unit type: %v", err)
	}
	if got := f.stock(t, p.ID); got != 90 || sale.Items[0].UnitType != model.UnitPack {
		t.Fatalf("stock = %d, unit = %s", got, sale.Items[0].UnitType)
	}
}

func TestNotFoundAsKeepsMessageVerbatim(t *testing.T) {
	err := notFoundAs(gorm.ErrRecordNotFound, "Diskon 100% tidak ditemukan")
	assertKind(t, err, apperr.ErrNotFound)
	if err.Error() != "Diskon 100% tidak ditemukan" {
		t.Fatalf("message = %q", err.Error())
	}
	other := errors.New("boom")
	if got := notFoundAs(other, "x"); got != other {
		t.Fatalf("non-missing error changed: %v", got)
	}
}
