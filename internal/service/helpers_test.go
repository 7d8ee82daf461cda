package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"storefront-backend/internal/client"
	"storefront-backend/internal/dto"
	"storefront-backend/internal/model"
	"storefront-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, client.Migrate(db))

	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeGateway is a scripted stand-in for the payment gateway.
type fakeGateway struct {
	cardResult *client.ChargeResult
	cardErr    error
	pixResult  *client.PixChargeResult
	pixErr     error
	statuses   map[string]*client.ChargeResult
	getErr     error

	cardCalls int
	pixCalls  int
	getCalls  int
}

func (f *fakeGateway) CreateCardCharge(ctx context.Context, req *client.CardChargeRequest) (*client.ChargeResult, error) {
	f.cardCalls++
	if f.cardErr != nil {
		return nil, f.cardErr
	}
	return f.cardResult, nil
}

func (f *fakeGateway) CreatePixCharge(ctx context.Context, req *client.PixChargeRequest) (*client.PixChargeResult, error) {
	f.pixCalls++
	if f.pixErr != nil {
		return nil, f.pixErr
	}
	return f.pixResult, nil
}

func (f *fakeGateway) GetPayment(ctx context.Context, paymentID string) (*client.ChargeResult, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if r, ok := f.statuses[paymentID]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("unknown gateway payment %s", paymentID)
}

// testEnv wires the full service graph over an in-memory database.
type testEnv struct {
	db       *gorm.DB
	gateway  *fakeGateway
	cart     CartService
	checkout CheckoutService
	payments PaymentService
	pricing  PricingService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	gw := &fakeGateway{statuses: map[string]*client.ChargeResult{}}
	log := discardLogger()

	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	planRepo := repository.NewPlanRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	payments := NewPaymentService(
		db, gw, orderRepo, paymentRepo, productRepo, subRepo, planRepo, webhookEventRepo, log)
	checkout := NewCheckoutService(
		db, gw, userRepo, cartRepo, productRepo, planRepo, subRepo, orderRepo, paymentRepo, payments, log)

	return &testEnv{
		db:       db,
		gateway:  gw,
		cart:     NewCartService(db, cartRepo, productRepo, subRepo, log),
		checkout: checkout,
		payments: payments,
		pricing:  NewPricingService(productRepo, planRepo, subRepo, log),
	}
}

func seedUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		Name:         "Test Customer",
		PasswordHash: "x",
		Role:         model.RoleCustomer,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *model.Product {
	t.Helper()

	product := &model.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Slug:      uuid.NewString(),
		BasePrice: decimal.RequireFromString(price),
		Stock:     stock,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func seedPlan(t *testing.T, db *gorm.DB, name, slug, discountPercent string) *model.SubscriptionPlan {
	t.Helper()

	plan := &model.SubscriptionPlan{
		ID:              uuid.NewString(),
		Name:            name,
		Slug:            slug,
		DiscountPercent: decimal.RequireFromString(discountPercent),
		Price:           decimal.RequireFromString("29.90"),
		BillingCycle:    model.CycleMonthly,
	}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

func seedActiveSubscription(t *testing.T, db *gorm.DB, userID string, plan *model.SubscriptionPlan) *model.Subscription {
	t.Helper()

	next := time.Now().AddDate(0, 1, 0)
	sub := &model.Subscription{
		ID:            uuid.NewString(),
		UserID:        userID,
		PlanID:        plan.ID,
		Status:        model.SubActive,
		NextBillingAt: &next,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func addLine(t *testing.T, env *testEnv, userID, productID string, qty int) {
	t.Helper()

	req := &dto.AddCartItemRequest{ProductID: productID, Quantity: qty}
	require.NoError(t, env.cart.AddItem(context.Background(), userID, req))
}
