package service

import (
	"context"
	"testing"

	"storefront-backend/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePriceForAnonymousUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)

	quote, err := env.pricing.ComputePriceForUser(ctx, shirt.ID, "")
	require.NoError(t, err)

	assert.Equal(t, "19.99", quote.FinalPrice.StringFixed(2))
	assert.False(t, quote.HasDiscount)
	assert.Nil(t, quote.DiscountLabel)
}

func TestComputePriceForSubscribedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := seedUser(t, env.db)
	plan := seedPlan(t, env.db, "Gold", "gold", "15")
	seedActiveSubscription(t, env.db, user.ID, plan)
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)

	quote, err := env.pricing.ComputePriceForUser(ctx, shirt.ID, user.ID)
	require.NoError(t, err)

	assert.Equal(t, "19.99", quote.BasePrice.StringFixed(2))
	assert.Equal(t, "16.99", quote.FinalPrice.StringFixed(2))
	assert.Equal(t, "3.00", quote.DiscountAmount.StringFixed(2))
	assert.True(t, quote.HasDiscount)
	require.NotNil(t, quote.DiscountLabel)
	assert.Equal(t, "Discount Gold", *quote.DiscountLabel)
	assert.Equal(t, "gold", quote.PlanSlug)
}

func TestPreviewPriceWithPlan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedPlan(t, env.db, "Silver", "silver", "10")
	shirt := seedProduct(t, env.db, "Shirt", "19.99", 5)

	quote, err := env.pricing.PreviewPriceWithPlan(ctx, shirt.ID, "silver")
	require.NoError(t, err)

	// 10% of 19.99 is 1.999, rounded half away from zero to 2.00.
	assert.Equal(t, "17.99", quote.FinalPrice.StringFixed(2))
	assert.Equal(t, "2.00", quote.DiscountAmount.StringFixed(2))

	_, err = env.pricing.PreviewPriceWithPlan(ctx, shirt.ID, "missing")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}
