// Package server wires repositories, services and HTTP handlers into a Fiber app.
package server

import (
	"time"

	"jengamart/internal/config"
	"jengamart/internal/gateway"
	"jengamart/internal/handlers"
	"jengamart/internal/middleware"
	"jengamart/internal/repositories"
	"jengamart/internal/services"
	"jengamart/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Server is the assembled application.
type Server struct {
	App        *fiber.App
	Auth       *services.AuthService
	Webhooks   *services.WebhookService
	Reconciler *worker.Reconciler
}

// New builds the application on db. publisher may be nil to disable events; gw may be nil to
// use the providers configured in cfg.
func New(cfg *config.Config, db *gorm.DB, publisher services.EventPublisher, gw *gateway.Dispatcher) *Server {
	if gw == nil {
		gw = gateway.NewDispatcher(cfg.ProviderEndpoints, cfg.GatewayTimeout)
	}

	// --- Repositories ---
	txManager := repositories.NewGORMTxManager(db)
	userRepo := repositories.NewGORMUserRepository(db)
	sellerRepo := repositories.NewGORMSellerRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	paymentRepo := repositories.NewGORMPaymentRepository(db)
	invitationRepo := repositories.NewGORMInvitationRepository(db)

	// --- Services ---
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	sellerService := services.NewSellerService(txManager, sellerRepo)
	productService := services.NewProductService(productRepo, sellerRepo)
	orderService := services.NewOrderService(txManager, orderRepo, productRepo, sellerRepo, services.ZeroTax{}, publisher)
	paymentService := services.NewPaymentService(txManager, paymentRepo, orderRepo, sellerRepo, gw, cfg.GatewayTimeout, publisher)
	webhookService := services.NewWebhookService(txManager, paymentRepo, orderRepo, cfg.WebhookSecret, publisher)
	invitationService := services.NewInvitationService(txManager, invitationRepo, userRepo, sellerRepo, authService, publisher)

	// --- Fiber App ---
	app := fiber.New(fiber.Config{AppName: "jengamart"})
	app.Use(recover.New())
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
			"events": publisher != nil,
		})
	})

	api := app.Group("/api")
	auth := middleware.AuthRequired(authService)

	handlers.NewAuthHandler(authService).RegisterRoutes(api)
	handlers.NewWebhookHandler(webhookService).RegisterRoutes(api)
	handlers.NewInvitationHandler(invitationService).RegisterRoutes(api, auth)
	handlers.NewSellerHandler(sellerService).RegisterRoutes(api, auth)
	handlers.NewProductHandler(productService).RegisterRoutes(api, auth)
	handlers.NewOrderHandler(orderService).RegisterRoutes(api, auth)
	handlers.NewPaymentHandler(paymentService).RegisterRoutes(api, auth)

	reconciler := worker.NewReconciler(paymentRepo, gw, webhookService, worker.Options{
		Interval:   cfg.ReconcileInterval,
		StaleAfter: cfg.ReconcileStaleAfter,
		BatchSize:  cfg.ReconcileBatch,
		Workers:    cfg.ReconcileWorkers,
	})

	return &Server{
		App:        app,
		Auth:       authService,
		Webhooks:   webhookService,
		Reconciler: reconciler,
	}
}
