package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/client"
	"storefront-backend/internal/dto"
	"storefront-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)

	_, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: dto.MethodPix})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeCartEmpty, appErr.Code)
}

func TestCheckoutInsufficientStockLeavesNoOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 1)
	addLine(t, env, user.ID, shirt.ID, 2)

	_, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: dto.MethodPix})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Fields[shirt.ID], "insufficient stock")

	var orders int64
	require.NoError(t, env.db.Model(&model.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	var reloaded model.Product
	require.NoError(t, env.db.First(&reloaded, "id = ?", shirt.ID).Error)
	assert.Equal(t, 1, reloaded.Stock)
	assert.Zero(t, env.gateway.pixCalls)
}

func TestCheckoutCardApproved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, user.ID, shirt.ID, 2)

	env.gateway.cardResult = &client.ChargeResult{ID: "gw-1", Status: model.GatewayApproved, StatusDetail: "accredited"}

	resp, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: dto.MethodCard, CardToken: "tok"})
	require.NoError(t, err)

	assert.Equal(t, model.OrderPaid, resp.OrderStatus)
	assert.Equal(t, model.PaymentPaid, resp.PaymentStatus)
	assert.Equal(t, "39.98", resp.Total.StringFixed(2))

	var reloaded model.Product
	require.NoError(t, env.db.First(&reloaded, "id = ?", shirt.ID).Error)
	assert.Equal(t, 3, reloaded.Stock)

	// The cart was consumed by the order.
	prices, err := env.cart.ComputeCartPrices(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, prices.Items)
}

func TestCheckoutCardRejectedRestoresStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, user.ID, shirt.ID, 2)

	env.gateway.cardResult = &client.ChargeResult{ID: "gw-1", Status: model.GatewayRejected, StatusDetail: "cc_rejected_other_reason"}

	resp, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: dto.MethodCard, CardToken: "tok"})
	require.NoError(t, err)

	assert.Equal(t, model.OrderFailed, resp.OrderStatus)
	assert.Equal(t, model.PaymentRejected, resp.PaymentStatus)

	var reloaded model.Product
	require.NoError(t, env.db.First(&reloaded, "id = ?", shirt.ID).Error)
	assert.Equal(t, 5, reloaded.Stock)
}

func TestCheckoutCardTokenError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, user.ID, shirt.ID, 1)

	env.gateway.cardErr = fmt.Errorf("%w: gateway status 400", client.ErrCardToken)

	_, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: dto.MethodCard, CardToken: "stale"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeCardTokenInvalid, appErr.Code)

	// The compensation released the reservation and closed the attempt.
	var reloaded model.Product
	require.NoError(t, env.db.First(&reloaded, "id = ?", shirt.ID).Error)
	assert.Equal(t, 5, reloaded.Stock)

	var payment model.Payment
	require.NoError(t, env.db.First(&payment).Error)
	assert.Equal(t, model.PaymentRejected, payment.Status)
}

func TestCheckoutPlanPurchaseCreatesSubscriptionOnApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	plan := seedPlan(t, env.db, "Gold", "gold", "15")
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, user.ID, shirt.ID, 1)

	env.gateway.cardResult = &client.ChargeResult{ID: "gw-1", Status: model.GatewayApproved, StatusDetail: "accredited"}

	resp, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{
		Method: dto.MethodCard, CardToken: "tok", PlanSlug: plan.Slug,
	})
	require.NoError(t, err)

	// Buying the plan does not discount the same order; the plan price
	// is added on top.
	assert.Equal(t, "49.89", resp.Total.StringFixed(2))
	assert.Equal(t, model.OrderPaid, resp.OrderStatus)

	var sub model.Subscription
	require.NoError(t, env.db.First(&sub, "user_id = ?", user.ID).Error)
	assert.Equal(t, model.SubActive, sub.Status)
	assert.Equal(t, plan.ID, sub.PlanID)
	require.NotNil(t, sub.NextBillingAt)
	assert.True(t, sub.NextBillingAt.After(time.Now()))
}

func TestCheckoutPlanPurchaseRejectedWhenAlreadySubscribed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	plan := seedPlan(t, env.db, "Gold", "gold", "15")
	seedActiveSubscription(t, env.db, user.ID, plan)

	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, user.ID, shirt.ID, 1)

	_, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{
		Method: dto.MethodCard, CardToken: "tok", PlanSlug: plan.Slug,
	})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeSubscriptionExists, appErr.Code)
}

func TestCheckoutPixStaysPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, user.ID, shirt.ID, 1)

	expires := time.Now().Add(30 * time.Minute)
	env.gateway.pixResult = &client.PixChargeResult{
		PaymentID:      "gw-pix-1",
		QRCode:         "qr-payload",
		QRCodeBase64:   "cXItcGF5bG9hZA==",
		TicketURL:      "https://gateway.test/ticket/1",
		ExpirationDate: expires,
	}

	resp, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: dto.MethodPix})
	require.NoError(t, err)

	assert.Equal(t, model.OrderPending, resp.OrderStatus)
	assert.Equal(t, model.PaymentPending, resp.PaymentStatus)
	require.NotNil(t, resp.Pix)
	assert.Equal(t, "qr-payload", resp.Pix.QRCode)

	var payment model.Payment
	require.NoError(t, env.db.First(&payment, "order_id = ?", resp.OrderID).Error)
	assert.Equal(t, "gw-pix-1", payment.GatewayID)
	assert.Equal(t, model.PaymentPending, payment.Status)

	// Stock stays reserved while the PIX is open.
	var reloaded model.Product
	require.NoError(t, env.db.First(&reloaded, "id = ?", shirt.ID).Error)
	assert.Equal(t, 4, reloaded.Stock)
}

func TestRegeneratePixReplacesArtifact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, user.ID, shirt.ID, 1)

	env.gateway.pixResult = &client.PixChargeResult{
		PaymentID:      "gw-pix-1",
		QRCode:         "qr-1",
		ExpirationDate: time.Now().Add(30 * time.Minute),
	}
	resp, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: dto.MethodPix})
	require.NoError(t, err)

	env.gateway.pixResult = &client.PixChargeResult{
		PaymentID:      "gw-pix-2",
		QRCode:         "qr-2",
		ExpirationDate: time.Now().Add(30 * time.Minute),
	}
	regen, err := env.checkout.RegeneratePix(ctx, user.ID, resp.OrderID)
	require.NoError(t, err)

	// Same payment row, fresh artifact.
	assert.Equal(t, resp.PaymentID, regen.PaymentID)
	require.NotNil(t, regen.Pix)
	assert.Equal(t, "qr-2", regen.Pix.QRCode)

	var payments int64
	require.NoError(t, env.db.Model(&model.Payment{}).Where("order_id = ?", resp.OrderID).Count(&payments).Error)
	assert.EqualValues(t, 1, payments)

	var payment model.Payment
	require.NoError(t, env.db.First(&payment, "id = ?", resp.PaymentID).Error)
	assert.Equal(t, "gw-pix-2", payment.GatewayID)
	assert.Equal(t, "qr-2", payment.PixQRCode)
}

func TestRegeneratePixRejectedAfterOrderLeavesPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, user.ID, shirt.ID, 1)

	env.gateway.pixResult = &client.PixChargeResult{
		PaymentID:      "gw-pix-1",
		QRCode:         "qr-1",
		ExpirationDate: time.Now().Add(30 * time.Minute),
	}
	resp, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: dto.MethodPix})
	require.NoError(t, err)

	require.NoError(t, env.payments.ApplyPaymentResult(ctx, resp.PaymentID, model.GatewayApproved, "accredited"))

	_, err = env.checkout.RegeneratePix(ctx, user.ID, resp.OrderID)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeOrderNotPending, appErr.Code)
}

func TestRegeneratePixNotOwnOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := seedUser(t, env.db)
	other := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, owner.ID, shirt.ID, 1)

	env.gateway.pixResult = &client.PixChargeResult{
		PaymentID:      "gw-pix-1",
		QRCode:         "qr-1",
		ExpirationDate: time.Now().Add(30 * time.Minute),
	}
	resp, err := env.checkout.Checkout(ctx, owner.ID, &dto.CheckoutRequest{Method: dto.MethodPix})
	require.NoError(t, err)

	// Someone else's order reads as not found, not forbidden.
	_, err = env.checkout.RegeneratePix(ctx, other.ID, resp.OrderID)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestGetOrderReportsExpiredPixAtReadTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, user.ID, shirt.ID, 1)

	env.gateway.pixResult = &client.PixChargeResult{
		PaymentID:      "gw-pix-1",
		QRCode:         "qr-1",
		ExpirationDate: time.Now().Add(-time.Minute),
	}
	resp, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: dto.MethodPix})
	require.NoError(t, err)

	summary, err := env.checkout.GetOrder(ctx, user.ID, resp.OrderID)
	require.NoError(t, err)

	require.NotNil(t, summary.Payment)
	assert.Equal(t, model.PaymentExpired, summary.Payment.Status)

	// Read-time only: the stored row is still PENDING until a gateway
	// status says otherwise.
	var payment model.Payment
	require.NoError(t, env.db.First(&payment, "id = ?", resp.PaymentID).Error)
	assert.Equal(t, model.PaymentPending, payment.Status)
}

func TestCheckoutRejectsUnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)

	_, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: "BOLETO"})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)

	_, err = env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: dto.MethodCard})
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)
}
