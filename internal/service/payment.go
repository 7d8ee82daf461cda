package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/client"
	"storefront-backend/internal/metrics"
	"storefront-backend/internal/model"
	"storefront-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentService owns every payment-state transition. Webhook delivery,
// the admin reconcile endpoint, and the operator CLI all funnel into the
// same ApplyPaymentResult, so there is exactly one copy of the rules.
type PaymentService interface {
	// ApplyPaymentResult applies a gateway status to a payment and its
	// order. Re-applying a result to a terminal payment is a no-op.
	ApplyPaymentResult(ctx context.Context, paymentID, gatewayStatus, statusDetail string) error
	// HandleWebhook never fails the caller: the gateway retries on
	// non-2xx, and our internal problems are not its concern.
	HandleWebhook(ctx context.Context, body []byte)
	// ReconcileOrder re-reads the gateway's own status for the order's
	// latest payment and applies it.
	ReconcileOrder(ctx context.Context, orderID string) error
	// ReconcilePendingPayments sweeps every pending payment that has a
	// gateway reference. Returns how many were examined.
	ReconcilePendingPayments(ctx context.Context) (int, error)
}

type paymentServiceImpl struct {
	db            *gorm.DB
	gateway       client.GatewayClient
	orderRepo     repository.OrderRepository
	paymentRepo   repository.PaymentRepository
	productRepo   repository.ProductRepository
	subRepo       repository.SubscriptionRepository
	planRepo      repository.PlanRepository
	webhookEvents repository.WebhookEventRepository
	logger        *slog.Logger
}

func NewPaymentService(
	db *gorm.DB,
	gateway client.GatewayClient,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	productRepo repository.ProductRepository,
	subRepo repository.SubscriptionRepository,
	planRepo repository.PlanRepository,
	webhookEvents repository.WebhookEventRepository,
	logger *slog.Logger,
) PaymentService {
	return &paymentServiceImpl{
		db:            db,
		gateway:       gateway,
		orderRepo:     orderRepo,
		paymentRepo:   paymentRepo,
		productRepo:   productRepo,
		subRepo:       subRepo,
		planRepo:      planRepo,
		webhookEvents: webhookEvents,
		logger:        logger,
	}
}

func isTerminal(status string) bool {
	switch status {
	case model.PaymentPaid, model.PaymentRejected, model.PaymentCanceled, model.PaymentExpired:
		return true
	}
	return false
}

func (s *paymentServiceImpl) ApplyPaymentResult(ctx context.Context, paymentID, gatewayStatus, statusDetail string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment, err := s.paymentRepo.FindByIDForUpdate(ctx, tx, paymentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payment")
			}
			return fmt.Errorf("load payment: %w", err)
		}

		// Idempotency: webhook delivery and manual reconciliation can
		// race or duplicate; the first terminal transition wins.
		if isTerminal(payment.Status) {
			return nil
		}

		order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, payment.OrderID)
		if err != nil {
			return fmt.Errorf("load order: %w", err)
		}

		switch gatewayStatus {
		case model.GatewayApproved:
			return s.applyApproved(ctx, tx, payment, order, statusDetail)
		case model.GatewayRejected:
			return s.applyFailure(ctx, tx, payment, order, model.PaymentRejected, model.OrderFailed, statusDetail)
		case model.GatewayCancelled:
			return s.applyFailure(ctx, tx, payment, order, model.PaymentCanceled, model.OrderCanceled, statusDetail)
		case model.GatewayExpired:
			return s.applyFailure(ctx, tx, payment, order, model.PaymentExpired, model.OrderExpired, statusDetail)
		default:
			// pending / in_process / anything new the gateway invents:
			// nothing to transition yet.
			return nil
		}
	})

	if err == nil {
		metrics.PaymentsApplied.WithLabelValues(gatewayStatus).Inc()
	}
	return err
}

func (s *paymentServiceImpl) applyApproved(ctx context.Context, tx *gorm.DB, payment *model.Payment, order *model.Order, statusDetail string) error {
	rows, err := s.paymentRepo.UpdateStatus(ctx, tx, payment.ID, []string{model.PaymentPending}, model.PaymentPaid, statusDetail)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	if rows == 0 {
		// Another caller got here first under the same lock window.
		return nil
	}

	if _, err := s.orderRepo.UpdateStatus(ctx, tx, order.ID, []string{model.OrderPending}, model.OrderPaid); err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}

	if order.PlanID == nil {
		return nil
	}

	// Subscription purchase: the duplicate guard runs inside this same
	// transaction so a webhook/manual race cannot create two ACTIVE rows.
	active, err := s.subRepo.CountActiveByUserForUpdate(ctx, tx, order.UserID)
	if err != nil {
		return fmt.Errorf("count active subscriptions: %w", err)
	}
	if active > 0 {
		s.logger.Warn("skipping subscription creation, user already has an active subscription",
			"user_id", order.UserID, "order_id", order.ID)
		return nil
	}

	plan, err := s.planRepo.FindByID(ctx, *order.PlanID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}

	next := nextBillingAt(time.Now(), plan.BillingCycle)
	sub := &model.Subscription{
		ID:            uuid.NewString(),
		UserID:        order.UserID,
		PlanID:        plan.ID,
		Status:        model.SubActive,
		NextBillingAt: &next,
	}
	if err := s.subRepo.Create(ctx, tx, sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}

	return nil
}

func (s *paymentServiceImpl) applyFailure(ctx context.Context, tx *gorm.DB, payment *model.Payment, order *model.Order, paymentStatus, orderStatus, statusDetail string) error {
	rows, err := s.paymentRepo.UpdateStatus(ctx, tx, payment.ID, []string{model.PaymentPending}, paymentStatus, statusDetail)
	if err != nil {
		return fmt.Errorf("mark payment %s: %w", paymentStatus, err)
	}
	if rows == 0 {
		return nil
	}

	rows, err = s.orderRepo.UpdateStatus(ctx, tx, order.ID, []string{model.OrderPending}, orderStatus)
	if err != nil {
		return fmt.Errorf("mark order %s: %w", orderStatus, err)
	}
	if rows == 0 {
		// Order already left PENDING (e.g. paid through another
		// payment); its stock reservation is not ours to release.
		return nil
	}

	return s.releaseStock(ctx, tx, order.ID)
}

// releaseStock hands the order's reserved quantities back to the catalog.
func (s *paymentServiceImpl) releaseStock(ctx context.Context, tx *gorm.DB, orderID string) error {
	items, err := s.orderRepo.GetOrderItems(ctx, tx, orderID)
	if err != nil {
		return fmt.Errorf("get order items: %w", err)
	}

	for _, item := range items {
		if item.VariantID != nil {
			if err := s.productRepo.RestoreVariantStock(ctx, tx, *item.VariantID, item.Quantity); err != nil {
				return fmt.Errorf("restore variant stock: %w", err)
			}
			continue
		}
		if err := s.productRepo.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return fmt.Errorf("restore stock: %w", err)
		}
	}

	return nil
}

func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, body []byte) {
	var event model.GatewayWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Warn("dropping malformed webhook payload", "error", err)
		metrics.WebhookEvents.WithLabelValues("unknown", "malformed").Inc()
		return
	}

	if event.Type != "payment" {
		metrics.WebhookEvents.WithLabelValues(event.Type, "ignored").Inc()
		return
	}

	if event.ID != "" {
		seen, err := s.webhookEvents.Exists(ctx, event.ID)
		if err != nil {
			s.logger.Error("webhook dedup lookup failed", "event_id", event.ID, "error", err)
		} else if seen {
			metrics.WebhookEvents.WithLabelValues(event.Type, "duplicate").Inc()
			return
		}
	}

	if event.Data.ID == "" {
		s.logger.Warn("payment webhook without a transaction id", "event_id", event.ID)
		metrics.WebhookEvents.WithLabelValues(event.Type, "malformed").Inc()
		return
	}

	// Webhooks can arrive out of order; the body's status field is never
	// trusted. The gateway's payment endpoint is the source of truth.
	result, err := s.gateway.GetPayment(ctx, event.Data.ID)
	if err != nil {
		s.logger.Error("gateway status lookup failed", "gateway_id", event.Data.ID, "error", err)
		metrics.WebhookEvents.WithLabelValues(event.Type, "gateway_error").Inc()
		return
	}

	payment, err := s.paymentRepo.FindByGatewayID(ctx, event.Data.ID)
	if err != nil {
		s.logger.Warn("webhook for unknown payment", "gateway_id", event.Data.ID, "error", err)
		metrics.WebhookEvents.WithLabelValues(event.Type, "unknown_payment").Inc()
		return
	}

	if err := s.ApplyPaymentResult(ctx, payment.ID, result.Status, result.StatusDetail); err != nil {
		s.logger.Error("apply payment result from webhook failed",
			"payment_id", payment.ID, "gateway_status", result.Status, "error", err)
		metrics.WebhookEvents.WithLabelValues(event.Type, "apply_error").Inc()
		return
	}

	if event.ID != "" {
		if err := s.webhookEvents.MarkProcessed(ctx, event.ID, event.Type); err != nil {
			s.logger.Error("mark webhook processed failed", "event_id", event.ID, "error", err)
		}
	}
	metrics.WebhookEvents.WithLabelValues(event.Type, "applied").Inc()
}

func (s *paymentServiceImpl) ReconcileOrder(ctx context.Context, orderID string) error {
	payment, err := s.paymentRepo.FindLatestByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("payment")
		}
		return fmt.Errorf("load latest payment: %w", err)
	}

	if payment.GatewayID == "" {
		return apperr.Business(apperr.CodePaymentFailed, "payment has no gateway reference to reconcile against")
	}

	result, err := s.gateway.GetPayment(ctx, payment.GatewayID)
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("get_payment", "error").Inc()
		return fmt.Errorf("gateway status lookup: %w", err)
	}
	metrics.GatewayRequests.WithLabelValues("get_payment", "ok").Inc()

	return s.ApplyPaymentResult(ctx, payment.ID, result.Status, result.StatusDetail)
}

func (s *paymentServiceImpl) ReconcilePendingPayments(ctx context.Context) (int, error) {
	payments, err := s.paymentRepo.ListPendingWithGatewayRef(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pending payments: %w", err)
	}

	for _, payment := range payments {
		result, err := s.gateway.GetPayment(ctx, payment.GatewayID)
		if err != nil {
			s.logger.Error("sweep: gateway status lookup failed", "payment_id", payment.ID, "error", err)
			continue
		}

		if err := s.ApplyPaymentResult(ctx, payment.ID, result.Status, result.StatusDetail); err != nil {
			s.logger.Error("sweep: apply payment result failed", "payment_id", payment.ID, "error", err)
		}
	}

	return len(payments), nil
}

func nextBillingAt(from time.Time, cycle string) time.Time {
	switch cycle {
	case model.CycleQuarterly:
		return from.AddDate(0, 3, 0)
	case model.CycleAnnual:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}
