package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/aurum/internal/config"
	"github.com/example/aurum/internal/handlers"
	"github.com/example/aurum/internal/middleware"
	"github.com/example/aurum/internal/repository"
	"github.com/example/aurum/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	orderRepo := repository.NewOrderRepository(db)
	productRepo := repository.NewProductRepository(db)
	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)

	orderService := services.NewOrderService(orderRepo, productRepo, telegram, cfg.PricingConfig(), cfg.Currency)
	paymentService := services.NewPaymentService(
		orderRepo,
		services.NewStripeProcessor(cfg.StripeSecretKey),
		telegram,
		services.ConfirmPolicy(cfg.PaymentConfirmPolicy),
	)

	cartHandler := handlers.NewCartHandler(cfg.PricingConfig())
	orderHandler := handlers.NewOrderHandler(orderService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	adminHandler := handlers.NewAdminHandler(db, orderService, orderRepo)

	api := app.Group("/api")

	// Public pricing preview
	api.Post("/cart/calculate", cartHandler.Calculate)

	// Processor-pushed confirmations, authenticated by signature
	api.Post("/payments/webhook", middleware.WebhookAuthMiddleware(cfg.StripeWebhookSecret), paymentHandler.Webhook)

	// Customer routes
	protected := api.Group("", middleware.AuthMiddleware(cfg))

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)

	protected.Post("/payments/create-intent", paymentHandler.CreateIntent)
	protected.Post("/payments/confirm", paymentHandler.ConfirmPayment)

	// Admin routes; authorization beyond identity is enforced upstream
	admin := protected.Group("/admin")
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Put("/orders/:id/status", adminHandler.UpdateOrderStatus)
	admin.Get("/orders/recent", adminHandler.RecentOrders)
	admin.Get("/reports", adminHandler.Reports)
	admin.Get("/dashboard", adminHandler.DashboardStats)
}
