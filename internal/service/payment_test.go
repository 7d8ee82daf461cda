package service

import (
	"context"
	"testing"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/client"
	"storefront-backend/internal/dto"
	"storefront-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkoutPendingPix runs a PIX checkout so the tests have a PENDING
// payment with a gateway reference to act on.
func checkoutPendingPix(t *testing.T, env *testEnv, userID string) *dto.CheckoutResponse {
	t.Helper()

	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, userID, shirt.ID, 1)

	env.gateway.pixResult = &client.PixChargeResult{
		PaymentID: "gw-pix-1",
		QRCode:    "qr-1",
	}
	resp, err := env.checkout.Checkout(context.Background(), userID, &dto.CheckoutRequest{Method: dto.MethodPix})
	require.NoError(t, err)
	return resp
}

func TestApplyPaymentResultApprovesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	resp := checkoutPendingPix(t, env, user.ID)

	require.NoError(t, env.payments.ApplyPaymentResult(ctx, resp.PaymentID, model.GatewayApproved, "accredited"))

	var order model.Order
	require.NoError(t, env.db.First(&order, "id = ?", resp.OrderID).Error)
	assert.Equal(t, model.OrderPaid, order.Status)

	// The second delivery of the same result is a no-op.
	require.NoError(t, env.payments.ApplyPaymentResult(ctx, resp.PaymentID, model.GatewayApproved, "accredited"))
	require.NoError(t, env.payments.ApplyPaymentResult(ctx, resp.PaymentID, model.GatewayRejected, "late rejection"))

	require.NoError(t, env.db.First(&order, "id = ?", resp.OrderID).Error)
	assert.Equal(t, model.OrderPaid, order.Status)

	var payment model.Payment
	require.NoError(t, env.db.First(&payment, "id = ?", resp.PaymentID).Error)
	assert.Equal(t, model.PaymentPaid, payment.Status)
	assert.Equal(t, "accredited", payment.StatusDetail)
}

func TestApplyPaymentResultDuplicateApprovalCreatesOneSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	plan := seedPlan(t, env.db, "Gold", "gold", "15")

	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)
	addLine(t, env, user.ID, shirt.ID, 1)

	env.gateway.pixResult = &client.PixChargeResult{PaymentID: "gw-pix-1", QRCode: "qr-1"}
	resp, err := env.checkout.Checkout(ctx, user.ID, &dto.CheckoutRequest{Method: dto.MethodPix, PlanSlug: plan.Slug})
	require.NoError(t, err)

	require.NoError(t, env.payments.ApplyPaymentResult(ctx, resp.PaymentID, model.GatewayApproved, "accredited"))
	require.NoError(t, env.payments.ApplyPaymentResult(ctx, resp.PaymentID, model.GatewayApproved, "accredited"))

	var subs int64
	require.NoError(t, env.db.Model(&model.Subscription{}).Where("user_id = ?", user.ID).Count(&subs).Error)
	assert.EqualValues(t, 1, subs)
}

func TestApplyPaymentResultPendingIsNotATransition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	resp := checkoutPendingPix(t, env, user.ID)

	require.NoError(t, env.payments.ApplyPaymentResult(ctx, resp.PaymentID, model.GatewayInProcess, "review"))

	var payment model.Payment
	require.NoError(t, env.db.First(&payment, "id = ?", resp.PaymentID).Error)
	assert.Equal(t, model.PaymentPending, payment.Status)
}

func TestApplyPaymentResultUnknownPayment(t *testing.T) {
	env := newTestEnv(t)

	err := env.payments.ApplyPaymentResult(context.Background(), "missing", model.GatewayApproved, "")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestHandleWebhookAppliesGatewayStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	resp := checkoutPendingPix(t, env, user.ID)

	env.gateway.statuses["gw-pix-1"] = &client.ChargeResult{
		ID: "gw-pix-1", Status: model.GatewayApproved, StatusDetail: "accredited",
	}

	body := []byte(`{"id":"evt-1","type":"payment","action":"payment.updated","data":{"id":"gw-pix-1"}}`)
	env.payments.HandleWebhook(ctx, body)

	var order model.Order
	require.NoError(t, env.db.First(&order, "id = ?", resp.OrderID).Error)
	assert.Equal(t, model.OrderPaid, order.Status)

	// Redelivery is dropped by the event-id dedup before any gateway call.
	before := env.gateway.getCalls
	env.payments.HandleWebhook(ctx, body)
	assert.Equal(t, before, env.gateway.getCalls)
}

func TestHandleWebhookIgnoresNoise(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.payments.HandleWebhook(ctx, []byte(`{not json`))
	env.payments.HandleWebhook(ctx, []byte(`{"id":"evt-2","type":"plan","data":{"id":"x"}}`))
	env.payments.HandleWebhook(ctx, []byte(`{"id":"evt-3","type":"payment","data":{"id":""}}`))

	assert.Zero(t, env.gateway.getCalls)
}

func TestHandleWebhookUntrustedBodyStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	resp := checkoutPendingPix(t, env, user.ID)

	// The body claims nothing; the gateway's own endpoint says rejected.
	env.gateway.statuses["gw-pix-1"] = &client.ChargeResult{
		ID: "gw-pix-1", Status: model.GatewayRejected, StatusDetail: "expired",
	}

	env.payments.HandleWebhook(ctx, []byte(`{"id":"evt-4","type":"payment","data":{"id":"gw-pix-1"}}`))

	var payment model.Payment
	require.NoError(t, env.db.First(&payment, "id = ?", resp.PaymentID).Error)
	assert.Equal(t, model.PaymentRejected, payment.Status)

	var order model.Order
	require.NoError(t, env.db.First(&order, "id = ?", resp.OrderID).Error)
	assert.Equal(t, model.OrderFailed, order.Status)
}

func TestReconcileOrderPullsGatewayStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	resp := checkoutPendingPix(t, env, user.ID)

	env.gateway.statuses["gw-pix-1"] = &client.ChargeResult{
		ID: "gw-pix-1", Status: model.GatewayApproved, StatusDetail: "accredited",
	}

	require.NoError(t, env.payments.ReconcileOrder(ctx, resp.OrderID))

	var order model.Order
	require.NoError(t, env.db.First(&order, "id = ?", resp.OrderID).Error)
	assert.Equal(t, model.OrderPaid, order.Status)
}

func TestReconcilePendingPaymentsSweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	resp := checkoutPendingPix(t, env, user.ID)

	env.gateway.statuses["gw-pix-1"] = &client.ChargeResult{
		ID: "gw-pix-1", Status: model.GatewayCancelled, StatusDetail: "expired",
	}

	n, err := env.payments.ReconcilePendingPayments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var order model.Order
	require.NoError(t, env.db.First(&order, "id = ?", resp.OrderID).Error)
	assert.Equal(t, model.OrderCanceled, order.Status)

	// Cancellation released the reserved stock.
	var product model.Product
	require.NoError(t, env.db.First(&product, "name = ?", "Shirt").Error)
	assert.Equal(t, 5, product.Stock)
}
