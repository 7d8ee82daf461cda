package service

import (
	"context"
	"testing"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/dto"
	"storefront-backend/internal/model"
	"storefront-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineProfiles(t *testing.T) {
	combined := CombineProfiles([]*model.ShippingProfile{
		{WeightGrams: 300, LengthCm: 20, WidthCm: 15, HeightCm: 5},
		{WeightGrams: 1200, LengthCm: 10, WidthCm: 30, HeightCm: 8},
		{WeightGrams: 50, LengthCm: 5, WidthCm: 5, HeightCm: 25},
	})

	// Weights add up; each dimension takes the maximum.
	assert.Equal(t, 1550, combined.WeightGrams)
	assert.Equal(t, 20, combined.LengthCm)
	assert.Equal(t, 30, combined.WidthCm)
	assert.Equal(t, 25, combined.HeightCm)
}

func TestCombineForProducts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	svc := NewShippingService(repository.NewShippingRepository(db), repository.NewProductRepository(db))

	small, err := svc.Create(ctx, &dto.ShippingProfileRequest{
		Name: "small box", WeightGrams: 200, LengthCm: 15, WidthCm: 10, HeightCm: 5,
	})
	require.NoError(t, err)
	large, err := svc.Create(ctx, &dto.ShippingProfileRequest{
		Name: "large box", WeightGrams: 900, LengthCm: 40, WidthCm: 30, HeightCm: 20,
	})
	require.NoError(t, err)

	shirt := seedProduct(t, db, "Shirt", "19.99", 5)
	mug := seedProduct(t, db, "Mug", "5.00", 5)
	require.NoError(t, db.Model(shirt).Update("shipping_profile_id", small.ID).Error)
	require.NoError(t, db.Model(mug).Update("shipping_profile_id", large.ID).Error)

	combined, err := svc.CombineForProducts(ctx, []string{shirt.ID, mug.ID})
	require.NoError(t, err)

	assert.Equal(t, 1100, combined.WeightGrams)
	assert.Equal(t, 40, combined.LengthCm)
	assert.Equal(t, 30, combined.WidthCm)
	assert.Equal(t, 20, combined.HeightCm)
}

func TestCombineForProductsWithoutProfiles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	svc := NewShippingService(repository.NewShippingRepository(db), repository.NewProductRepository(db))
	bare := seedProduct(t, db, "Sticker", "1.00", 5)

	_, err := svc.CombineForProducts(ctx, []string{bare.ID, uuid.NewString()})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeNotFound, appErr.Code)
}

func TestShippingProfileValidation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	svc := NewShippingService(repository.NewShippingRepository(db), repository.NewProductRepository(db))

	_, err := svc.Create(ctx, &dto.ShippingProfileRequest{Name: "", WeightGrams: 0, LengthCm: 10, WidthCm: 10, HeightCm: 0})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.CodeValidation, appErr.Code)
	assert.Contains(t, appErr.Fields, "name")
	assert.Contains(t, appErr.Fields, "weight_grams")
	assert.Contains(t, appErr.Fields, "dimensions")
}
