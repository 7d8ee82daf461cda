package repository

import (
	"context"

	"storefront-backend/internal/model"

	"gorm.io/gorm"
)

type ShippingRepository interface {
	Create(ctx context.Context, profile *model.ShippingProfile) error
	Update(ctx context.Context, profile *model.ShippingProfile) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.ShippingProfile, error)
	FindMany(ctx context.Context, ids []string) ([]*model.ShippingProfile, error)
	List(ctx context.Context) ([]*model.ShippingProfile, error)
}

type shippingRepoImpl struct {
	db *gorm.DB
}

func NewShippingRepository(db *gorm.DB) ShippingRepository {
	return &shippingRepoImpl{
		db: db,
	}
}

func (r *shippingRepoImpl) Create(ctx context.Context, profile *model.ShippingProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *shippingRepoImpl) Update(ctx context.Context, profile *model.ShippingProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

func (r *shippingRepoImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.ShippingProfile{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *shippingRepoImpl) FindByID(ctx context.Context, id string) (*model.ShippingProfile, error) {
	var profile model.ShippingProfile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error

	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *shippingRepoImpl) FindMany(ctx context.Context, ids []string) ([]*model.ShippingProfile, error) {
	var profiles []*model.ShippingProfile
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&profiles).Error

	if err != nil {
		return nil, err
	}

	return profiles, nil
}

func (r *shippingRepoImpl) List(ctx context.Context) ([]*model.ShippingProfile, error) {
	var profiles []*model.ShippingProfile
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&profiles).Error

	if err != nil {
		return nil, err
	}

	return profiles, nil
}
