package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/internal/service"
	"ijaplastik-pos/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type discardOutbox struct{}

func (discardOutbox) Enqueue(...*model.Notification) error { return nil }

type testServer struct {
	app       *fiber.App
	db        *gorm.DB
	uploadDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	t.Setenv("JWT_SECRET", "handler-test-secret")
	db := testutil.NewDB(t)

	productRepo := repository.NewProductRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	supplierRepo := repository.NewSupplierRepo(db)
	reportRepo := repository.NewReportRepo(db)

	alerts := service.NewStockAlertService(db, productRepo, userRepo, discardOutbox{}, nil)
	products := service.NewProductService(db, productRepo, alerts, nil)
	sales := service.NewSaleService(db, repository.NewSaleRepo(db), productRepo, alerts, nil, "TOKO TEST")
	purchases := service.NewPurchaseService(db, repository.NewPurchaseRepo(db), productRepo, supplierRepo, alerts, discardOutbox{}, nil, "TOKO TEST")
	auth := service.NewAuthService(userRepo)
	uploadDir := t.TempDir()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	Register(app, Handlers{
		Auth:      NewAuthHandler(auth),
		Products:  NewProductHandler(products, uploadDir),
		Sales:     NewSaleHandler(sales),
		Purchases: NewPurchaseHandler(purchases),
		Suppliers: NewSupplierHandler(service.NewSupplierService(db, supplierRepo)),
		Users:     NewUserHandler(service.NewUserService(db, userRepo, roleRepo, supplierRepo, "default123")),
		Roles:     NewRoleHandler(roleRepo),
		Reports:   NewReportHandler(service.NewReportService(reportRepo, userRepo)),
		Dashboard: NewDashboardHandler(service.NewDashboardService(reportRepo, productRepo), alerts),
	}, auth, RouteOptions{Production: true})

	return &testServer{app: app, db: db, uploadDir: uploadDir}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}, *http.Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	out := map[string]interface{}{}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, out, resp
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	code, body, _ := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "secret123",
	})
	if code != http.StatusOK {
		t.Fatalf("login %s: %d %v", email, code, body)
	}
	return body["token"].(string)
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, model.RoleAdmin, "admin@test.local", "", nil)

	token := s.login(t, "admin@test.local")
	code, body, _ := s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	if code != http.StatusOK {
		t.Fatalf("me: %d %v", code, body)
	}
	user := body["user"].(map[string]interface{})
	if user["email"] != "admin@test.local" || user["role"] != model.RoleAdmin {
		t.Fatalf("unexpected user %v", user)
	}

	code, body, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "admin@test.local", "password": "wrong-pass",
	})
	if code != http.StatusUnauthorized || body["status"] != false {
		t.Fatalf("wrong password: %d %v", code, body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	code, body, _ := s.do(t, http.MethodGet, "/api/v1/products", "", nil)
	if code != http.StatusUnauthorized || body["status"] != false {
		t.Fatalf("no token: %d %v", code, body)
	}
	code, _, _ = s.do(t, http.MethodGet, "/api/v1/products", "not-a-jwt", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("bad token: %d", code)
	}
}

func TestOlderTokenRejectedAfterNewLogin(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, model.RoleCashier, "kasir@test.local", "", nil)

	first := s.login(t, "kasir@test.local")
	second := s.login(t, "kasir@test.local")

	if code, _, _ := s.do(t, http.MethodGet, "/api/v1/auth/me", first, nil); code != http.StatusUnauthorized {
		t.Fatalf("first token should be revoked, got %d", code)
	}
	if code, _, _ := s.do(t, http.MethodGet, "/api/v1/auth/me", second, nil); code != http.StatusOK {
		t.Fatalf("second token should work, got %d", code)
	}
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, model.RoleCashier, "kasir@test.local", "", nil)
	token := s.login(t, "kasir@test.local")

	code, body, _ := s.do(t, http.MethodPost, "/api/v1/products", token, map[string]interface{}{
		"name": "Kantong", "unit_name": "pcs", "pack_size": 10,
	})
	if code != http.StatusForbidden || body["status"] != false {
		t.Fatalf("cashier create product: %d %v", code, body)
	}
	if code, _, _ := s.do(t, http.MethodGet, "/api/v1/purchase", token, nil); code != http.StatusForbidden {
		t.Fatalf("cashier list PO: %d", code)
	}
	if code, _, _ := s.do(t, http.MethodGet, "/api/v1/products", token, nil); code != http.StatusOK {
		t.Fatalf("cashier list products: %d", code)
	}
}

func TestUpdateProductRejectsUnknownField(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, model.RoleAdmin, "admin@test.local", "", nil)
	p := testutil.CreateProduct(t, s.db, "Gelas", 50, 100, nil, nil)
	token := s.login(t, "admin@test.local")

	path := "/api/v1/products/" + p.ID.String()
	code, body, _ := s.do(t, http.MethodPut, path, token, map[string]interface{}{"colour": "red"})
	if code != http.StatusBadRequest {
		t.Fatalf("unknown field: %d %v", code, body)
	}

	code, body, _ = s.do(t, http.MethodPut, path, token, map[string]interface{}{"min_stock_units": 20})
	if code != http.StatusOK {
		t.Fatalf("update thresholds: %d %v", code, body)
	}
	data := body["data"].(map[string]interface{})
	if data["min_stock_units"].(float64) != 20 {
		t.Fatalf("min not applied: %v", data)
	}
}

func TestCreateSaleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, model.RoleCashier, "kasir@test.local", "", nil)
	p := testutil.CreateProduct(t, s.db, "Sendok", 10, 30, nil, nil)
	token := s.login(t, "kasir@test.local")

	code, body, _ := s.do(t, http.MethodPost, "/api/v1/sales", token, map[string]interface{}{
		"items":          []map[string]interface{}{{"product_id": p.ID, "unit_type": "unit", "qty": 2}},
		"payment_method": "cash",
		"cash_received":  "5000",
	})
	if code != http.StatusCreated {
		t.Fatalf("create sale: %d %v", code, body)
	}
	if body["receipt_no"] == "" {
		t.Fatalf("missing receipt_no: %v", body)
	}

	code, _, resp := s.do(t, http.MethodGet, "/api/v1/sales/"+body["sale_id"].(string)+"/receipt", token, nil)
	if code != http.StatusOK || !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Fatalf("receipt: %d %s", code, resp.Header.Get("Content-Type"))
	}
}

func TestCSVExportHeaders(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, model.RoleAdmin, "admin@test.local", "", nil)
	token := s.login(t, "admin@test.local")

	code, _, resp := s.do(t, http.MethodGet, "/api/v1/reports/cashier.csv?date_from=2026-01-01&date_to=2026-01-31", token, nil)
	if code != http.StatusOK {
		t.Fatalf("csv export: %d", code)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "laporan-kasir_2026-01-01_2026-01-31.csv") {
		t.Fatalf("content disposition %q", cd)
	}
}

func TestUnknownRouteAndDevRouteInProduction(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, model.RoleAdmin, "admin@test.local", "", nil)
	token := s.login(t, "admin@test.local")

	code, body, _ := s.do(t, http.MethodGet, "/api/v1/nope", token, nil)
	if code != http.StatusNotFound || body["status"] != false {
		t.Fatalf("unknown route: %d %v", code, body)
	}
	p := testutil.CreateProduct(t, s.db, "Piring", 10, 5, nil, nil)
	if code, _, _ := s.do(t, http.MethodPost, "/api/v1/dev/test-stock-alert/"+p.ID.String(), token, nil); code != http.StatusNotFound {
		t.Fatalf("dev route mounted in production: %d", code)
	}
}

func TestAnyRoleCanReadSuppliers(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, model.RoleCashier, "kasir@test.local", "", nil)
	sup := testutil.CreateSupplier(t, s.db, "CV Plastindo", "")
	token := s.login(t, "kasir@test.local")

	code, body, _ := s.do(t, http.MethodGet, "/api/v1/suppliers?search=plast", token, nil)
	if code != http.StatusOK {
		t.Fatalf("list suppliers: %d %v", code, body)
	}
	if rows := body["data"].([]interface{}); len(rows) != 1 {
		t.Fatalf("suppliers = %v", rows)
	}
	if code, _, _ := s.do(t, http.MethodGet, "/api/v1/suppliers/"+sup.ID.String(), token, nil); code != http.StatusOK {
		t.Fatalf("get supplier: %d", code)
	}
	if code, _, _ := s.do(t, http.MethodGet, "/api/v1/dashboard/summary", token, nil); code != http.StatusOK {
		t.Fatalf("dashboard: %d", code)
	}
	code, _, _ = s.do(t, http.MethodPost, "/api/v1/suppliers", token, map[string]string{"name": "CV Baru"})
	if code != http.StatusForbidden {
		t.Fatalf("cashier create supplier: %d", code)
	}
}

func (s *testServer) postProductForm(t *testing.T, token string, fields map[string]string) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	part, err := w.CreateFormFile("image", "gelas.png")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	out := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out
}

func (s *testServer) uploads(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		t.Fatal(err)
	}
	return entries
}

func TestMultipartCreateProduct(t *testing.T) {
	s := newTestServer(t)
	testutil.CreateUser(t, s.db, model.RoleAdmin, "admin@test.local", "", nil)
	token := s.login(t, "admin@test.local")

	code, body := s.postProductForm(t, token, map[string]string{
		"name": "Gelas", "unit_name": "pcs", "pack_size": "0",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("invalid pack_size: %d %v", code, body)
	}
	if files := s.uploads(t); len(files) != 0 {
		t.Fatalf("rejected create left %d uploads", len(files))
	}

	code, body = s.postProductForm(t, token, map[string]string{
		"name": "Gelas", "sku": "GLS-1", "unit_name": "pcs", "pack_size": "50",
		"retail_price_per_unit": "500", "wholesale_price_per_pack": "20000",
		"initial_stock_units": "100",
	})
	if code != http.StatusCreated {
		t.Fatalf("create: %d %v", code, body)
	}
	data := body["data"].(map[string]interface{})
	url, _ := data["image_url"].(string)
	files := s.uploads(t)
	if len(files) != 1 || url != "/uploads/"+files[0].Name() {
		t.Fatalf("image_url %q, uploads %v", url, files)
	}
	if _, err := os.Stat(filepath.Join(s.uploadDir, files[0].Name())); err != nil {
		t.Fatal(err)
	}

	code, _ = s.postProductForm(t, token, map[string]string{
		"name": "Gelas Lagi", "sku": "GLS-1", "unit_name": "pcs", "pack_size": "50",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("duplicate sku: %d", code)
	}
	if files := s.uploads(t); len(files) != 1 {
		t.Fatalf("duplicate sku left %d uploads, want 1", len(files))
	}
}
