package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"storefront-backend/internal/config"
	"storefront-backend/internal/handler"
	appmiddleware "storefront-backend/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	Product      *handler.ProductHandler
	Cart         *handler.CartHandler
	Checkout     *handler.CheckoutHandler
	Subscription *handler.SubscriptionHandler
	Webhook      *handler.WebhookHandler
	Admin        *handler.AdminHandler
}

type Server struct {
	echo   *echo.Echo
	cfg    config.Config
	logger *slog.Logger
}

func New(cfg config.Config, logger *slog.Logger, h Handlers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))

	authLimiter := middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RateLimit.RPS),
			Burst:     cfg.RateLimit.Burst,
			ExpiresIn: 3 * time.Minute,
		}),
	})

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// The gateway posts here; no auth beyond the shared endpoint path.
	e.POST("/webhooks/payments", h.Webhook.PaymentWebhook)

	api := e.Group("/api")

	auth := api.Group("/auth", authLimiter)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/password-reset", h.Auth.RequestPasswordReset)
	auth.POST("/password-reset/confirm", h.Auth.ConfirmPasswordReset)

	// Public catalog. OptionalAuth lets logged-in users see their
	// discounted prices on the same routes.
	public := api.Group("", appmiddleware.OptionalAuth(cfg.JWT.Secret))
	public.GET("/products", h.Product.List)
	public.GET("/products/:slug", h.Product.GetBySlug)
	public.GET("/products/:slug/price", h.Product.Price)
	public.GET("/categories", h.Product.ListCategories)
	public.GET("/plans", h.Product.ListPlans)
	public.POST("/shipping/estimate", h.Product.EstimateShipping)

	authed := api.Group("", appmiddleware.Auth(cfg.JWT.Secret))

	authed.GET("/cart", h.Cart.Get)
	authed.POST("/cart/items", h.Cart.AddItem)
	authed.PUT("/cart/items/:itemID", h.Cart.UpdateItem)
	authed.DELETE("/cart/items/:itemID", h.Cart.RemoveItem)
	authed.DELETE("/cart", h.Cart.Clear)

	authed.POST("/checkout", h.Checkout.Checkout)
	authed.GET("/orders", h.Checkout.ListOrders)
	authed.GET("/orders/:orderID", h.Checkout.GetOrder)
	authed.POST("/orders/:orderID/pix", h.Checkout.RegeneratePix)

	authed.GET("/subscriptions", h.Subscription.ListMine)
	authed.POST("/subscriptions/cancel", h.Subscription.Cancel)
	authed.POST("/subscriptions/pause", h.Subscription.Pause)
	authed.POST("/subscriptions/resume", h.Subscription.Resume)

	admin := api.Group("/admin", appmiddleware.Auth(cfg.JWT.Secret), appmiddleware.RequireAdmin())

	admin.POST("/products", h.Admin.CreateProduct)
	admin.GET("/products/:id", h.Admin.GetProduct)
	admin.PUT("/products/:id", h.Admin.UpdateProduct)
	admin.DELETE("/products/:id", h.Admin.DeleteProduct)
	admin.POST("/products/:id/variants", h.Admin.AddVariant)

	admin.POST("/categories", h.Admin.CreateCategory)
	admin.PUT("/categories/:id", h.Admin.UpdateCategory)
	admin.DELETE("/categories/:id", h.Admin.DeleteCategory)

	admin.POST("/plans", h.Admin.CreatePlan)
	admin.GET("/plans/:id", h.Admin.GetPlan)
	admin.PUT("/plans/:id", h.Admin.UpdatePlan)
	admin.DELETE("/plans/:id", h.Admin.DeletePlan)

	admin.GET("/shipping-profiles", h.Admin.ListShippingProfiles)
	admin.POST("/shipping-profiles", h.Admin.CreateShippingProfile)
	admin.PUT("/shipping-profiles/:id", h.Admin.UpdateShippingProfile)
	admin.DELETE("/shipping-profiles/:id", h.Admin.DeleteShippingProfile)

	admin.GET("/users", h.Admin.ListUsers)
	admin.POST("/users", h.Admin.CreateUser)
	admin.PUT("/users/:id", h.Admin.UpdateUser)
	admin.DELETE("/users/:id", h.Admin.DeleteUser)

	admin.POST("/orders/:id/reconcile", h.Admin.ReconcileOrder)

	return &Server{
		echo:   e,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Server) Start() error {
	addr := net.JoinHostPort(s.cfg.HTTP.Host, s.cfg.HTTP.Port)
	s.logger.Info("http server listening", "addr", addr)
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
