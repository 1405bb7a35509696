package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ijaplastik-pos/internal/config"
	"ijaplastik-pos/internal/handler"
	"ijaplastik-pos/internal/model"
	"ijaplastik-pos/internal/notify"
	"ijaplastik-pos/internal/repository"
	"ijaplastik-pos/internal/seed"
	"ijaplastik-pos/internal/service"
	"ijaplastik-pos/internal/ws"
	"ijaplastik-pos/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	// 2. Setup Database
	db := database.Connect(cfg.DBDriver, cfg.SQLitePath)
	if err := model.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := seed.Run(db, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Printf("Warning: seed failed: %v", err)
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Printf("Warning: upload dir %s: %v", cfg.UploadDir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run(ctx)

	// 4. Notification outbox
	notifRepo := repository.NewNotificationRepo(db)
	sender := notify.NewFonnte(cfg.WAGatewayURL, cfg.FonnteToken, cfg.WATimeout)
	if cfg.FonnteToken == "" {
		log.Println("Warning: FONNTE_TOKEN not set, WhatsApp notifications will fail and be retried")
	}
	dispatcher := notify.NewDispatcher(notifRepo, sender, notify.Options{MaxAttempts: cfg.NotifyMaxAttempts})
	dispatcher.Start(ctx, cfg.NotifyWorkers)
	sweeper, err := notify.StartRetrySweeper(dispatcher, cfg.NotifyRetrySpec)
	if err != nil {
		log.Fatalf("retry sweeper: %v", err)
	}

	// 5. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	supplierRepo := repository.NewSupplierRepo(db)
	purchaseRepo := repository.NewPurchaseRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	reportRepo := repository.NewReportRepo(db)

	alertService := service.NewStockAlertService(db, productRepo, userRepo, dispatcher, wsHub)
	productService := service.NewProductService(db, productRepo, alertService, wsHub)
	saleService := service.NewSaleService(db, saleRepo, productRepo, alertService, wsHub, cfg.StoreName)
	purchaseService := service.NewPurchaseService(db, purchaseRepo, productRepo, supplierRepo, alertService, dispatcher, wsHub, cfg.StoreName)
	supplierService := service.NewSupplierService(db, supplierRepo)
	authService := service.NewAuthService(userRepo)
	userService := service.NewUserService(db, userRepo, roleRepo, supplierRepo, cfg.DefaultPass)
	reportService := service.NewReportService(reportRepo, userRepo)
	dashService := service.NewDashboardService(reportRepo, productRepo)

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Products:  handler.NewProductHandler(productService, cfg.UploadDir),
		Sales:     handler.NewSaleHandler(saleService),
		Purchases: handler.NewPurchaseHandler(purchaseService),
		Suppliers: handler.NewSupplierHandler(supplierService),
		Users:     handler.NewUserHandler(userService),
		Roles:     handler.NewRoleHandler(roleRepo),
		Reports:   handler.NewReportHandler(reportService),
		Dashboard: handler.NewDashboardHandler(dashService, alertService),
	}

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "Ija Plastik POS v1.0",
		ErrorHandler: handler.ErrorHandler,
		BodyLimit:    8 << 20,
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 7. Routes
	handler.Register(app, handlers, authService, handler.RouteOptions{
		Production: cfg.IsProduction(),
		UploadDir:  cfg.UploadDir,
		Hub:        wsHub,
	})

	// 8. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	<-sweeper.Stop().Done()
	cancel()
	dispatcher.Wait()

	log.Println("Server exited")
}
