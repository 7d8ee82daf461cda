package service

import (
	"context"
	"errors"
	"fmt"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/dto"
	"storefront-backend/internal/model"
	"storefront-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogService is the admin CRUD surface for products, variants, and
// categories. Products referenced by order history are only ever
// soft-deleted.
type CatalogService interface {
	CreateProduct(ctx context.Context, req *dto.ProductRequest) (*model.Product, error)
	UpdateProduct(ctx context.Context, id string, req *dto.ProductRequest) (*model.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*model.Product, error)
	ListProducts(ctx context.Context, categoryID string) ([]*model.Product, error)
	AddVariant(ctx context.Context, productID string, req *dto.VariantRequest) (*model.ProductVariant, error)

	CreateCategory(ctx context.Context, req *dto.CategoryRequest) (*model.Category, error)
	UpdateCategory(ctx context.Context, id string, req *dto.CategoryRequest) (*model.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]*model.Category, error)
}

type catalogServiceImpl struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
) CatalogService {
	return &catalogServiceImpl{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

func validateProduct(req *dto.ProductRequest) error {
	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "required"
	}
	if req.Slug == "" {
		fields["slug"] = "required"
	}
	if !req.BasePrice.IsPositive() {
		fields["base_price"] = "must be greater than zero"
	}
	if req.Stock < 0 {
		fields["stock"] = "must not be negative"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid product", fields)
	}
	return nil
}

func (s *catalogServiceImpl) CreateProduct(ctx context.Context, req *dto.ProductRequest) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	if _, err := s.productRepo.FindBySlug(ctx, req.Slug); err == nil {
		return nil, apperr.Conflict(apperr.CodeDuplicateSlug, "product slug already in use")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check slug: %w", err)
	}

	product := &model.Product{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Slug:              req.Slug,
		Description:       req.Description,
		CategoryID:        req.CategoryID,
		ShippingProfileID: req.ShippingProfileID,
		BasePrice:         req.BasePrice.Round(2),
		Stock:             req.Stock,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

func (s *catalogServiceImpl) UpdateProduct(ctx context.Context, id string, req *dto.ProductRequest) (*model.Product, error) {
	if err := validateProduct(req); err != nil {
		return nil, err
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("find product: %w", err)
	}

	if req.Slug != product.Slug {
		if _, err := s.productRepo.FindBySlug(ctx, req.Slug); err == nil {
			return nil, apperr.Conflict(apperr.CodeDuplicateSlug, "product slug already in use")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check slug: %w", err)
		}
	}

	product.Name = req.Name
	product.Slug = req.Slug
	product.Description = req.Description
	product.CategoryID = req.CategoryID
	product.ShippingProfileID = req.ShippingProfileID
	product.BasePrice = req.BasePrice.Round(2)
	product.Stock = req.Stock

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

func (s *catalogServiceImpl) DeleteProduct(ctx context.Context, id string) error {
	if err := s.productRepo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("product")
		}
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func (s *catalogServiceImpl) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}

func (s *catalogServiceImpl) GetProductBySlug(ctx context.Context, slug string) (*model.Product, error) {
	product, err := s.productRepo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}

func (s *catalogServiceImpl) ListProducts(ctx context.Context, categoryID string) ([]*model.Product, error) {
	return s.productRepo.List(ctx, categoryID)
}

func (s *catalogServiceImpl) AddVariant(ctx context.Context, productID string, req *dto.VariantRequest) (*model.ProductVariant, error) {
	if req.Name == "" {
		return nil, apperr.Validation("invalid variant", map[string]string{"name": "required"})
	}
	if req.Price != nil && !req.Price.IsPositive() {
		return nil, apperr.Validation("invalid variant", map[string]string{"price": "must be greater than zero"})
	}

	if _, err := s.productRepo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("find product: %w", err)
	}

	variant := &model.ProductVariant{
		ID:        uuid.NewString(),
		ProductID: productID,
		Name:      req.Name,
		Stock:     req.Stock,
	}
	if req.Price != nil {
		rounded := req.Price.Round(2)
		variant.Price = &rounded
	}

	if err := s.productRepo.CreateVariant(ctx, variant); err != nil {
		return nil, fmt.Errorf("create variant: %w", err)
	}

	return variant, nil
}

func (s *catalogServiceImpl) CreateCategory(ctx context.Context, req *dto.CategoryRequest) (*model.Category, error) {
	if req.Name == "" || req.Slug == "" {
		return nil, apperr.Validation("invalid category", map[string]string{"name": "required", "slug": "required"})
	}

	if _, err := s.categoryRepo.FindBySlug(ctx, req.Slug); err == nil {
		return nil, apperr.Conflict(apperr.CodeDuplicateSlug, "category slug already in use")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check slug: %w", err)
	}

	category := &model.Category{
		ID:   uuid.NewString(),
		Name: req.Name,
		Slug: req.Slug,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	return category, nil
}

func (s *catalogServiceImpl) UpdateCategory(ctx context.Context, id string, req *dto.CategoryRequest) (*model.Category, error) {
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("category")
		}
		return nil, fmt.Errorf("find category: %w", err)
	}

	if req.Slug != category.Slug {
		if _, err := s.categoryRepo.FindBySlug(ctx, req.Slug); err == nil {
			return nil, apperr.Conflict(apperr.CodeDuplicateSlug, "category slug already in use")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check slug: %w", err)
		}
	}

	category.Name = req.Name
	category.Slug = req.Slug

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	return category, nil
}

func (s *catalogServiceImpl) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("category")
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func (s *catalogServiceImpl) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return s.categoryRepo.List(ctx)
}
