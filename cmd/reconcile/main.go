package main

import (
	"log"
	"log/slog"
	"os"

	"storefront-backend/internal/client"
	"storefront-backend/internal/config"
	"storefront-backend/internal/logging"
	"storefront-backend/internal/repository"
	"storefront-backend/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// reconcile is an operator tool for when webhooks were missed: it asks
// the gateway for its own view of a payment and applies it locally.
func main() {
	root := &cobra.Command{
		Use:   "reconcile",
		Short: "Re-sync payment statuses with the gateway",
	}

	root.AddCommand(orderCmd(), sweepCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func orderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order <order-id>",
		Short: "Reconcile the latest payment of a single order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payments, logger := buildPaymentService()
			if err := payments.ReconcileOrder(cmd.Context(), args[0]); err != nil {
				return err
			}
			logger.Info("order reconciled", "order_id", args[0])
			return nil
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Reconcile every pending payment that has a gateway reference",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payments, logger := buildPaymentService()
			n, err := payments.ReconcilePendingPayments(cmd.Context())
			if err != nil {
				return err
			}
			logger.Info("sweep finished", "payments_examined", n)
			return nil
		},
	}
}

func buildPaymentService() (service.PaymentService, *slog.Logger) {
	_ = godotenv.Load()

	var cfg config.Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse config: %v", err)
	}

	logger := logging.New(cfg.Log)

	db, err := client.InitMysqlClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	gateway := client.NewGatewayClient(&cfg.Gateway)

	payments := service.NewPaymentService(
		db,
		gateway,
		repository.NewOrderRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewProductRepository(db),
		repository.NewSubscriptionRepository(db),
		repository.NewPlanRepository(db),
		repository.NewWebhookEventRepository(db),
		logger,
	)

	return payments, logger
}
