package handler

import (
	"ijaplastik-pos/internal/middleware"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/ws"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Handlers groups every HTTP handler the API mounts.
type Handlers struct {
	Auth      *AuthHandler
	Products  *ProductHandler
	Sales     *SaleHandler
	Purchases *PurchaseHandler
	Suppliers *SupplierHandler
	Users     *UserHandler
	Roles     *RoleHandler
	Reports   *ReportHandler
	Dashboard *DashboardHandler
}

// RouteOptions controls environment dependent routes.
type RouteOptions struct {
	Production bool
	UploadDir  string
	Hub        *ws.Hub
}

func Register(app *fiber.App, h Handlers, auth middleware.Authenticator, opts RouteOptions) {
	api := app.Group("/api/v1")

	admin := middleware.RequireRole(model.RoleAdmin)
	supplier := middleware.RequireRole(model.RoleSupplier)
	adminOrSupplier := middleware.RequireRole(model.RoleAdmin, model.RoleSupplier)
	sellers := middleware.RequireRole(model.RoleAdmin, model.RoleCashier)

	// ============ PUBLIC ROUTES ============
	api.Post("/auth/login", h.Auth.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(auth))

	protected.Get("/auth/me", h.Auth.Me)
	protected.Post("/auth/change-password", h.Auth.ChangePassword)

	// Products
	protected.Get("/products", h.Products.GetProducts)
	protected.Get("/products/:id", h.Products.GetProduct)
	protected.Get("/products/:id/movements", admin, h.Products.GetMovements)
	protected.Post("/products", admin, h.Products.CreateProduct)
	protected.Put("/products/:id", admin, h.Products.UpdateProduct)
	protected.Delete("/products/:id", admin, h.Products.DeleteProduct)

	// Sales
	protected.Post("/sales", sellers, h.Sales.CreateSale)
	protected.Get("/sales/:id", h.Sales.GetSale)
	protected.Get("/sales/:id/receipt", h.Sales.GetReceipt)

	// Purchase orders; static paths before :id
	protected.Get("/purchase/mine", supplier, h.Purchases.ListMine)
	protected.Get("/purchase", admin, h.Purchases.ListPO)
	protected.Post("/purchase", admin, h.Purchases.CreatePO)
	protected.Get("/purchase/:id", adminOrSupplier, h.Purchases.GetPO)
	protected.Post("/purchase/:id/send", admin, h.Purchases.SendPO)
	protected.Post("/purchase/:id/receive", admin, h.Purchases.ReceivePO)
	protected.Get("/purchase/:id/receive-detail", adminOrSupplier, h.Purchases.ReceiveDetail)
	protected.Patch("/purchase/:id/items/decision", supplier, h.Purchases.DecideItems)
	protected.Post("/purchase/:id/confirm", supplier, h.Purchases.ConfirmPO)

	// Suppliers; every role may search them
	protected.Get("/suppliers", h.Suppliers.GetSuppliers)
	protected.Get("/suppliers/:id", h.Suppliers.GetSupplier)
	protected.Post("/suppliers", admin, h.Suppliers.CreateSupplier)
	protected.Put("/suppliers/:id", admin, h.Suppliers.UpdateSupplier)
	protected.Delete("/suppliers/:id", admin, h.Suppliers.DeleteSupplier)

	// Users
	protected.Get("/users", admin, h.Users.GetUsers)
	protected.Post("/users", admin, h.Users.CreateUser)
	protected.Put("/users/:id", admin, h.Users.UpdateUser)
	protected.Delete("/users/:id", admin, h.Users.DeleteUser)
	protected.Post("/users/:id/reset-password", admin, h.Users.ResetPassword)
	protected.Get("/roles", admin, h.Roles.GetRoles)

	// Reports
	protected.Get("/reports/cashiers", admin, h.Reports.GetCashiers)
	protected.Get("/reports/cashier", admin, h.Reports.GetCashierReport)
	protected.Get("/reports/cashier.csv", admin, h.Reports.ExportCSV)
	protected.Get("/reports/cashier.xlsx", admin, h.Reports.ExportXLSX)

	// Dashboard
	protected.Get("/dashboard/summary", h.Dashboard.GetSummary)

	if !opts.Production {
		protected.Post("/dev/test-stock-alert/:productId", admin, h.Dashboard.TestStockAlert)
	}

	if opts.UploadDir != "" {
		app.Static("/uploads", opts.UploadDir)
	}

	// WebSocket Route
	if opts.Hub != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return c.SendStatus(fiber.StatusUpgradeRequired)
		})
		app.Get("/ws", websocket.New(opts.Hub.Handler()))
	}
}
