package repository

import (
	"context"

	"storefront-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	// SoftDelete flags the product; rows referenced by orders keep
	// resolving through Unscoped lookups.
	SoftDelete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	FindBySlug(ctx context.Context, slug string) (*model.Product, error)
	FindMany(ctx context.Context, ids []string) ([]*model.Product, error)
	List(ctx context.Context, categoryID string) ([]*model.Product, error)

	// LockForUpdate re-reads a product row under FOR UPDATE inside tx so
	// concurrent checkouts serialize on stock.
	LockForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Product, error)
	DecrementStock(ctx context.Context, tx *gorm.DB, id string, quantity int) error
	RestoreStock(ctx context.Context, tx *gorm.DB, id string, quantity int) error

	CreateVariant(ctx context.Context, variant *model.ProductVariant) error
	FindVariant(ctx context.Context, id string) (*model.ProductVariant, error)
	LockVariantForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.ProductVariant, error)
	DecrementVariantStock(ctx context.Context, tx *gorm.DB, id string, quantity int) error
	RestoreVariantStock(ctx context.Context, tx *gorm.DB, id string, quantity int) error
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepoImpl) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *productRepoImpl) SoftDelete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Product{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *productRepoImpl) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id = ?", id).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) FindBySlug(ctx context.Context, slug string) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("slug = ?", slug).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) FindMany(ctx context.Context, ids []string) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id IN ?", ids).
		Find(&products).Error

	if err != nil {
		return nil, err
	}

	return products, nil
}

func (r *productRepoImpl) List(ctx context.Context, categoryID string) ([]*model.Product, error) {
	q := r.db.WithContext(ctx).Preload("Variants")
	if categoryID != "" {
		q = q.Where("category_id = ?", categoryID)
	}

	var products []*model.Product
	err := q.Order("created_at DESC").Find(&products).Error
	if err != nil {
		return nil, err
	}

	return products, nil
}

func (r *productRepoImpl) LockForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.Product, error) {
	var product model.Product
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&product).Error

	if err != nil {
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) DecrementStock(ctx context.Context, tx *gorm.DB, id string, quantity int) error {
	result := tx.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *productRepoImpl) RestoreStock(ctx context.Context, tx *gorm.DB, id string, quantity int) error {
	// Unscoped: the product may have been soft-deleted after the order
	// was placed; its reserved stock still comes back.
	return tx.WithContext(ctx).
		Unscoped().
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", quantity)).Error
}

func (r *productRepoImpl) CreateVariant(ctx context.Context, variant *model.ProductVariant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

func (r *productRepoImpl) FindVariant(ctx context.Context, id string) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&variant).Error

	if err != nil {
		return nil, err
	}

	return &variant, nil
}

func (r *productRepoImpl) LockVariantForUpdate(ctx context.Context, tx *gorm.DB, id string) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&variant).Error

	if err != nil {
		return nil, err
	}

	return &variant, nil
}

func (r *productRepoImpl) DecrementVariantStock(ctx context.Context, tx *gorm.DB, id string, quantity int) error {
	result := tx.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Update("stock", gorm.Expr("stock - ?", quantity))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *productRepoImpl) RestoreVariantStock(ctx context.Context, tx *gorm.DB, id string, quantity int) error {
	return tx.WithContext(ctx).
		Model(&model.ProductVariant{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", quantity)).Error
}
