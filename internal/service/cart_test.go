package service

import (
	"context"
	"testing"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCartPricesNoSubscription(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 10)
	mug := seedProduct(t, env.db, "Mug", "5.00", 10)

	addLine(t, env, user.ID, shirt.ID, 2)
	addLine(t, env, user.ID, mug.ID, 1)

	prices, err := env.cart.ComputeCartPrices(ctx, user.ID)
	require.NoError(t, err)

	assert.Len(t, prices.Items, 2)
	assert.Equal(t, "44.98", prices.SubtotalBase.StringFixed(2))
	assert.Equal(t, "44.98", prices.SubtotalFinal.StringFixed(2))
	assert.Equal(t, "0.00", prices.TotalDiscount.StringFixed(2))
	assert.False(t, prices.HasSubscriptionDiscount)
	assert.Nil(t, prices.DiscountLabel)
}

func TestComputeCartPricesWithSubscriptionDiscount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	plan := seedPlan(t, env.db, "Gold", "gold", "15")
	seedActiveSubscription(t, env.db, user.ID, plan)

	shirt := seedProduct(t, env.db, "Shirt", "19.99", 10)
	mug := seedProduct(t, env.db, "Mug", "5.00", 10)

	addLine(t, env, user.ID, shirt.ID, 2)
	addLine(t, env, user.ID, mug.ID, 1)

	prices, err := env.cart.ComputeCartPrices(ctx, user.ID)
	require.NoError(t, err)

	// 19.99 at 15%: discount 3.00, unit 16.99; line of 2 is 33.98.
	// 5.00 at 15%: discount 0.75, unit 4.25.
	assert.Equal(t, "44.98", prices.SubtotalBase.StringFixed(2))
	assert.Equal(t, "38.23", prices.SubtotalFinal.StringFixed(2))
	assert.Equal(t, "6.75", prices.TotalDiscount.StringFixed(2))
	assert.True(t, prices.HasSubscriptionDiscount)
	require.NotNil(t, prices.DiscountLabel)
	assert.Equal(t, "Discount Gold", *prices.DiscountLabel)

	for _, line := range prices.Items {
		assert.True(t, line.HasDiscount)
	}
}

func TestComputeCartPricesEmptyCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)

	prices, err := env.cart.ComputeCartPrices(ctx, user.ID)
	require.NoError(t, err)

	assert.Empty(t, prices.Items)
	assert.Equal(t, "0.00", prices.SubtotalBase.StringFixed(2))
	assert.Equal(t, "0.00", prices.SubtotalFinal.StringFixed(2))
	assert.Equal(t, "0.00", prices.TotalDiscount.StringFixed(2))
}

func TestComputeCartPricesSkipsRemovedProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 10)
	gone := seedProduct(t, env.db, "Discontinued", "9.99", 10)

	addLine(t, env, user.ID, shirt.ID, 1)
	addLine(t, env, user.ID, gone.ID, 1)

	require.NoError(t, env.db.Delete(gone).Error)

	prices, err := env.cart.ComputeCartPrices(ctx, user.ID)
	require.NoError(t, err)

	// The stale line is simply not priced.
	assert.Len(t, prices.Items, 1)
	assert.Equal(t, "19.99", prices.SubtotalFinal.StringFixed(2))
}

func TestAddItemValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 10)

	err := env.cart.AddItem(ctx, user.ID, &dto.AddCartItemRequest{ProductID: shirt.ID, Quantity: 0})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)

	err = env.cart.AddItem(ctx, user.ID, &dto.AddCartItemRequest{ProductID: "missing", Quantity: 1})
	appErr, ok = apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestAddItemMergesDuplicateLines(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 10)

	addLine(t, env, user.ID, shirt.ID, 1)
	addLine(t, env, user.ID, shirt.ID, 2)

	prices, err := env.cart.ComputeCartPrices(ctx, user.ID)
	require.NoError(t, err)

	require.Len(t, prices.Items, 1)
	assert.Equal(t, 3, prices.Items[0].Quantity)
}
