package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-backend/internal/client"
	"storefront-backend/internal/config"
	"storefront-backend/internal/handler"
	"storefront-backend/internal/logging"
	"storefront-backend/internal/repository"
	"storefront-backend/internal/server"
	"storefront-backend/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var cfg config.Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}

	logger := logging.New(cfg.Log)

	db, err := client.InitMysqlClient(cfg.DatabaseURL)
	if err != nil {
		logger.Error("connect database", "error", err)
		os.Exit(1)
	}

	gateway := client.NewGatewayClient(&cfg.Gateway)
	mail := client.NewMailClient(&cfg.Mail)

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	shippingRepo := repository.NewShippingRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	authService := service.NewAuthService(db, userRepo, mail, cfg.JWT, logger)
	userService := service.NewUserService(userRepo)
	catalogService := service.NewCatalogService(productRepo, categoryRepo)
	planService := service.NewPlanService(planRepo, shippingRepo)
	shippingService := service.NewShippingService(shippingRepo, productRepo)
	pricingService := service.NewPricingService(productRepo, planRepo, subRepo, logger)
	cartService := service.NewCartService(db, cartRepo, productRepo, subRepo, logger)
	subscriptionService := service.NewSubscriptionService(subRepo)
	paymentService := service.NewPaymentService(
		db, gateway, orderRepo, paymentRepo, productRepo, subRepo, planRepo, webhookEventRepo, logger)
	checkoutService := service.NewCheckoutService(
		db, gateway, userRepo, cartRepo, productRepo, planRepo, subRepo, orderRepo, paymentRepo,
		paymentService, logger)

	srv := server.New(cfg, logger, server.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Product:      handler.NewProductHandler(catalogService, pricingService, planService, shippingService),
		Cart:         handler.NewCartHandler(cartService),
		Checkout:     handler.NewCheckoutHandler(checkoutService),
		Subscription: handler.NewSubscriptionHandler(subscriptionService),
		Webhook:      handler.NewWebhookHandler(paymentService),
		Admin:        handler.NewAdminHandler(catalogService, planService, shippingService, userService, paymentService),
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
}
