package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/client"
	"storefront-backend/internal/dto"
	"storefront-backend/internal/metrics"
	"storefront-backend/internal/model"
	"storefront-backend/internal/pricing"
	"storefront-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CheckoutService turns a cart into an order snapshot and a payment
// attempt. Validation, stock reservation, and the snapshot run in a
// single transaction; the gateway is only called once the snapshot is
// committed.
type CheckoutService interface {
	Checkout(ctx context.Context, userID string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error)
	// RegeneratePix issues a fresh PIX artifact for the same pending
	// payment attempt. Allowed only while the order is PENDING and no
	// payment on it has been PAID.
	RegeneratePix(ctx context.Context, userID, orderID string) (*dto.CheckoutResponse, error)
	GetOrder(ctx context.Context, userID, orderID string) (*dto.OrderSummary, error)
	ListOrders(ctx context.Context, userID string) ([]*dto.OrderSummary, error)
}

type checkoutServiceImpl struct {
	db          *gorm.DB
	gateway     client.GatewayClient
	userRepo    repository.UserRepository
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	planRepo    repository.PlanRepository
	subRepo     repository.SubscriptionRepository
	orderRepo   repository.OrderRepository
	paymentRepo repository.PaymentRepository
	payments    PaymentService
	logger      *slog.Logger
}

func NewCheckoutService(
	db *gorm.DB,
	gateway client.GatewayClient,
	userRepo repository.UserRepository,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	planRepo repository.PlanRepository,
	subRepo repository.SubscriptionRepository,
	orderRepo repository.OrderRepository,
	paymentRepo repository.PaymentRepository,
	payments PaymentService,
	logger *slog.Logger,
) CheckoutService {
	return &checkoutServiceImpl{
		db:          db,
		gateway:     gateway,
		userRepo:    userRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		planRepo:    planRepo,
		subRepo:     subRepo,
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		payments:    payments,
		logger:      logger,
	}
}

func (s *checkoutServiceImpl) Checkout(ctx context.Context, userID string, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	if req.Method != dto.MethodCard && req.Method != dto.MethodPix {
		return nil, apperr.Validation("unsupported payment method", map[string]string{"method": "must be CARD or PIX"})
	}
	if req.Method == dto.MethodCard && req.CardToken == "" {
		return nil, apperr.Validation("card token required", map[string]string{"card_token": "required for CARD payments"})
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("unknown user")
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	cart, err := s.cartRepo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(cart.Items) == 0 {
		return nil, apperr.Business(apperr.CodeCartEmpty, "cart is empty")
	}

	// Discount terms come from the live subscription, loaded once. A plan
	// being purchased in this very order does not discount it; the plan
	// only takes effect when its payment is approved.
	var planName, planSlug string
	discountPercent := decimal.Zero
	sub, err := s.subRepo.FindActiveByUser(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find active subscription: %w", err)
	}
	if sub != nil {
		planName = sub.Plan.Name
		planSlug = sub.Plan.Slug
		discountPercent = sub.Plan.DiscountPercent
	}

	var purchasedPlan *model.SubscriptionPlan
	if req.PlanSlug != "" {
		purchasedPlan, err = s.planRepo.FindBySlug(ctx, req.PlanSlug)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("plan")
			}
			return nil, fmt.Errorf("find plan: %w", err)
		}
		if sub != nil {
			return nil, apperr.Conflict(apperr.CodeSubscriptionExists, "user already has an active subscription")
		}
	}

	order := &model.Order{
		ID:     uuid.NewString(),
		UserID: userID,
		Status: model.OrderPending,
	}
	payment := &model.Payment{
		ID:      uuid.NewString(),
		OrderID: order.ID,
		Method:  req.Method,
		Status:  model.PaymentPending,
	}

	// Validate, reserve stock, and snapshot in one transaction. Stock
	// rows are locked so concurrent checkouts cannot both take the last
	// unit; a validation failure rolls everything back, leaving no Order.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		subtotal := decimal.Zero
		finalTotal := decimal.Zero
		orderItems := make([]*model.OrderItem, 0, len(cart.Items))
		fieldErrors := map[string]string{}

		for _, item := range cart.Items {
			product, err := s.productRepo.LockForUpdate(ctx, tx, item.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					fieldErrors[item.ProductID] = "product no longer available"
					continue
				}
				return fmt.Errorf("lock product: %w", err)
			}

			base := product.BasePrice
			name := product.Name
			available := product.Stock
			var variant *model.ProductVariant

			if item.VariantID != nil {
				variant, err = s.productRepo.LockVariantForUpdate(ctx, tx, *item.VariantID)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						fieldErrors[item.ProductID] = "variant no longer available"
						continue
					}
					return fmt.Errorf("lock variant: %w", err)
				}
				if variant.Price != nil {
					base = *variant.Price
				}
				name = product.Name + " - " + variant.Name
				available = variant.Stock
			}

			if available < item.Quantity {
				fieldErrors[item.ProductID] = fmt.Sprintf("insufficient stock: %d available", available)
				continue
			}

			// Price is re-derived here; anything the client sent is
			// ignored.
			quote := pricing.QuoteWithPlan(base, planName, planSlug, discountPercent)
			lineTotal := pricing.LineTotal(quote.FinalPrice, item.Quantity)

			subtotal = subtotal.Add(pricing.LineTotal(quote.BasePrice, item.Quantity))
			finalTotal = finalTotal.Add(lineTotal)

			orderItems = append(orderItems, &model.OrderItem{
				OrderID:   order.ID,
				ProductID: item.ProductID,
				VariantID: item.VariantID,
				Name:      name,
				Quantity:  item.Quantity,
				UnitPrice: quote.FinalPrice,
				LineTotal: lineTotal,
			})

			if variant != nil {
				if err := s.productRepo.DecrementVariantStock(ctx, tx, variant.ID, item.Quantity); err != nil {
					return fmt.Errorf("decrement variant stock: %w", err)
				}
			} else {
				if err := s.productRepo.DecrementStock(ctx, tx, product.ID, item.Quantity); err != nil {
					return fmt.Errorf("decrement stock: %w", err)
				}
			}
		}

		if len(fieldErrors) > 0 {
			// Rolls back every reservation taken above.
			return apperr.Validation("checkout validation failed", fieldErrors)
		}

		total := finalTotal
		if purchasedPlan != nil {
			total = total.Add(purchasedPlan.Price.Round(2))
			planID := purchasedPlan.ID
			order.PlanID = &planID
		}

		order.Subtotal = subtotal
		order.DiscountTotal = subtotal.Sub(finalTotal)
		order.Total = total

		if err := s.orderRepo.Create(ctx, tx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		if err := s.orderRepo.CreateOrderItems(ctx, tx, orderItems); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		payment.Amount = total
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		if err := s.cartRepo.Clear(ctx, tx, cart.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}

		return nil
	})
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues(req.Method, "validation_failed").Inc()
		return nil, err
	}

	switch req.Method {
	case dto.MethodCard:
		return s.chargeCard(ctx, user, order, payment, req)
	default:
		return s.chargePix(ctx, user, order, payment)
	}
}

func (s *checkoutServiceImpl) chargeCard(ctx context.Context, user *model.User, order *model.Order, payment *model.Payment, req *dto.CheckoutRequest) (*dto.CheckoutResponse, error) {
	result, err := s.gateway.CreateCardCharge(ctx, &client.CardChargeRequest{
		Token:             req.CardToken,
		Amount:            order.Total,
		PayerEmail:        user.Email,
		Installments:      req.Installments,
		ExternalReference: order.ID,
		Description:       "order " + order.ID,
	})
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("card_charge", "error").Inc()
		return nil, s.failCheckout(ctx, order, payment, err)
	}
	metrics.GatewayRequests.WithLabelValues("card_charge", "ok").Inc()

	if err := s.paymentRepo.SetGatewayRef(ctx, s.db, payment.ID, result.ID, result.StatusDetail); err != nil {
		return nil, fmt.Errorf("store gateway ref: %w", err)
	}

	// Synchronous result: the gateway already decided. Approval (and its
	// subscription side effect) goes through the same idempotent apply
	// operation the webhook uses.
	if err := s.payments.ApplyPaymentResult(ctx, payment.ID, result.Status, result.StatusDetail); err != nil {
		return nil, fmt.Errorf("apply card result: %w", err)
	}

	orderRow, err := s.orderRepo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	paymentRow, err := s.paymentRepo.FindByID(ctx, payment.ID)
	if err != nil {
		return nil, fmt.Errorf("reload payment: %w", err)
	}

	outcome := "pending"
	switch paymentRow.Status {
	case model.PaymentPaid:
		outcome = "approved"
	case model.PaymentRejected:
		outcome = "rejected"
	}
	metrics.CheckoutsTotal.WithLabelValues(dto.MethodCard, outcome).Inc()

	return &dto.CheckoutResponse{
		OrderID:       orderRow.ID,
		OrderStatus:   orderRow.Status,
		PaymentID:     paymentRow.ID,
		PaymentStatus: paymentRow.Status,
		Total:         orderRow.Total,
	}, nil
}

func (s *checkoutServiceImpl) chargePix(ctx context.Context, user *model.User, order *model.Order, payment *model.Payment) (*dto.CheckoutResponse, error) {
	result, err := s.gateway.CreatePixCharge(ctx, &client.PixChargeRequest{
		Amount:            order.Total,
		PayerEmail:        user.Email,
		ExternalReference: order.ID,
		Description:       "order " + order.ID,
	})
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("pix_charge", "error").Inc()
		return nil, s.failCheckout(ctx, order, payment, err)
	}
	metrics.GatewayRequests.WithLabelValues("pix_charge", "ok").Inc()

	expiresAt := result.ExpirationDate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.paymentRepo.ReplacePixArtifact(ctx, tx, payment.ID, result.PaymentID,
			result.QRCode, result.QRCodeBase64, result.TicketURL, &expiresAt)
	})
	if err != nil {
		return nil, fmt.Errorf("store pix artifact: %w", err)
	}

	metrics.CheckoutsTotal.WithLabelValues(dto.MethodPix, "pending").Inc()

	// Order stays PENDING until the webhook or a reconciliation run
	// reports the PIX as paid.
	return &dto.CheckoutResponse{
		OrderID:       order.ID,
		OrderStatus:   model.OrderPending,
		PaymentID:     payment.ID,
		PaymentStatus: model.PaymentPending,
		Total:         order.Total,
		Pix: &dto.PixArtifact{
			QRCode:       result.QRCode,
			QRCodeBase64: result.QRCodeBase64,
			TicketURL:    result.TicketURL,
			ExpiresAt:    &expiresAt,
		},
	}, nil
}

// failCheckout compensates a committed snapshot whose gateway call never
// produced a charge: the payment and order become terminal and the stock
// reservation is released. The gateway's specific error stays in the logs;
// the caller gets a generic failure, except for card-token problems, which
// the user can fix by retrying with a fresh token.
func (s *checkoutServiceImpl) failCheckout(ctx context.Context, order *model.Order, payment *model.Payment, gatewayErr error) error {
	s.logger.Error("payment gateway charge failed",
		"order_id", order.ID, "payment_id", payment.ID, "error", gatewayErr)

	detail := "gateway_unavailable"
	if errors.Is(gatewayErr, client.ErrCardToken) {
		detail = "card_token_invalid"
	}

	if err := s.payments.ApplyPaymentResult(ctx, payment.ID, model.GatewayRejected, detail); err != nil {
		s.logger.Error("compensating payment failure did not apply",
			"payment_id", payment.ID, "error", err)
	}

	metrics.CheckoutsTotal.WithLabelValues(payment.Method, "gateway_error").Inc()

	if errors.Is(gatewayErr, client.ErrCardToken) {
		return apperr.Business(apperr.CodeCardTokenInvalid, "card token is invalid or expired, retry with a fresh token")
	}
	return apperr.Business(apperr.CodePaymentFailed, "payment processing failed")
}

func (s *checkoutServiceImpl) RegeneratePix(ctx context.Context, userID, orderID string) (*dto.CheckoutResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order")
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.UserID != userID {
		return nil, apperr.NotFound("order")
	}

	if order.Status != model.OrderPending {
		return nil, apperr.Business(apperr.CodeOrderNotPending, "order is not pending")
	}

	paid, err := s.paymentRepo.HasPaidForOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("check paid payments: %w", err)
	}
	if paid {
		return nil, apperr.Business(apperr.CodeAlreadyPaid, "order already has a paid payment")
	}

	payment, err := s.paymentRepo.FindLatestByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("payment")
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if payment.Method != model.MethodPix || payment.Status != model.PaymentPending {
		return nil, apperr.Business(apperr.CodeOrderNotPending, "no pending PIX payment to regenerate")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	result, err := s.gateway.CreatePixCharge(ctx, &client.PixChargeRequest{
		Amount:            order.Total,
		PayerEmail:        user.Email,
		ExternalReference: order.ID,
		Description:       "order " + order.ID,
	})
	if err != nil {
		metrics.GatewayRequests.WithLabelValues("pix_charge", "error").Inc()
		s.logger.Error("pix regeneration gateway call failed", "order_id", order.ID, "error", err)
		return nil, apperr.Business(apperr.CodePaymentFailed, "payment processing failed")
	}
	metrics.GatewayRequests.WithLabelValues("pix_charge", "ok").Inc()

	// Same logical attempt, so the pending payment row is overwritten
	// rather than a new one appended.
	expiresAt := result.ExpirationDate
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.paymentRepo.ReplacePixArtifact(ctx, tx, payment.ID, result.PaymentID,
			result.QRCode, result.QRCodeBase64, result.TicketURL, &expiresAt)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The payment stopped being PENDING between the read and the
			// write; report it the same way the earlier guard would.
			return nil, apperr.Business(apperr.CodeOrderNotPending, "payment is no longer pending")
		}
		return nil, fmt.Errorf("store pix artifact: %w", err)
	}

	return &dto.CheckoutResponse{
		OrderID:       order.ID,
		OrderStatus:   order.Status,
		PaymentID:     payment.ID,
		PaymentStatus: model.PaymentPending,
		Total:         order.Total,
		Pix: &dto.PixArtifact{
			QRCode:       result.QRCode,
			QRCodeBase64: result.QRCodeBase64,
			TicketURL:    result.TicketURL,
			ExpiresAt:    &expiresAt,
		},
	}, nil
}

func (s *checkoutServiceImpl) GetOrder(ctx context.Context, userID, orderID string) (*dto.OrderSummary, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order")
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	if order.UserID != userID {
		return nil, apperr.NotFound("order")
	}

	return orderToSummary(order, time.Now()), nil
}

func (s *checkoutServiceImpl) ListOrders(ctx context.Context, userID string) ([]*dto.OrderSummary, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	now := time.Now()
	out := make([]*dto.OrderSummary, len(orders))
	for i, order := range orders {
		out[i] = orderToSummary(order, now)
	}

	return out, nil
}

func orderToSummary(order *model.Order, now time.Time) *dto.OrderSummary {
	summary := &dto.OrderSummary{
		OrderID:       order.ID,
		Status:        order.Status,
		Subtotal:      order.Subtotal,
		DiscountTotal: order.DiscountTotal,
		Total:         order.Total,
		CreatedAt:     order.CreatedAt,
	}

	for _, item := range order.Items {
		summary.Items = append(summary.Items, dto.OrderLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		})
	}

	if len(order.Payments) > 0 {
		latest := order.Payments[0]
		for _, p := range order.Payments[1:] {
			if p.CreatedAt.After(latest.CreatedAt) {
				latest = p
			}
		}

		status := latest.Status
		// PIX expiry is enforced at read time against the stored
		// timestamp; there is no scheduled job.
		if latest.Method == model.MethodPix && status == model.PaymentPending &&
			latest.PixExpiresAt != nil && latest.PixExpiresAt.Before(now) {
			status = model.PaymentExpired
		}

		payment := &dto.PaymentStatus{
			PaymentID: latest.ID,
			Method:    latest.Method,
			Status:    status,
		}
		if latest.Method == model.MethodPix && latest.PixQRCode != "" {
			payment.Pix = &dto.PixArtifact{
				QRCode:       latest.PixQRCode,
				QRCodeBase64: latest.PixQRCodeBase64,
				TicketURL:    latest.PixTicketURL,
				ExpiresAt:    latest.PixExpiresAt,
			}
		}
		summary.Payment = payment
	}

	return summary
}
