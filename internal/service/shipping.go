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

type ShippingService interface {
	Create(ctx context.Context, req *dto.ShippingProfileRequest) (*model.ShippingProfile, error)
	Update(ctx context.Context, id string, req *dto.ShippingProfileRequest) (*model.ShippingProfile, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.ShippingProfile, error)
	List(ctx context.Context) ([]*model.ShippingProfile, error)
	// CombineForProducts reduces the shipping profiles of several
	// products into one shipment profile.
	CombineForProducts(ctx context.Context, productIDs []string) (*model.ShippingProfile, error)
}

type shippingServiceImpl struct {
	shippingRepo repository.ShippingRepository
	productRepo  repository.ProductRepository
}

func NewShippingService(shippingRepo repository.ShippingRepository, productRepo repository.ProductRepository) ShippingService {
	return &shippingServiceImpl{
		shippingRepo: shippingRepo,
		productRepo:  productRepo,
	}
}

func validateShippingProfile(req *dto.ShippingProfileRequest) error {
	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "required"
	}
	if req.WeightGrams <= 0 {
		fields["weight_grams"] = "must be greater than zero"
	}
	if req.LengthCm <= 0 || req.WidthCm <= 0 || req.HeightCm <= 0 {
		fields["dimensions"] = "must be greater than zero"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid shipping profile", fields)
	}
	return nil
}

func (s *shippingServiceImpl) Create(ctx context.Context, req *dto.ShippingProfileRequest) (*model.ShippingProfile, error) {
	if err := validateShippingProfile(req); err != nil {
		return nil, err
	}

	profile := &model.ShippingProfile{
		ID:          uuid.NewString(),
		Name:        req.Name,
		WeightGrams: req.WeightGrams,
		LengthCm:    req.LengthCm,
		WidthCm:     req.WidthCm,
		HeightCm:    req.HeightCm,
	}

	if err := s.shippingRepo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("create shipping profile: %w", err)
	}

	return profile, nil
}

func (s *shippingServiceImpl) Update(ctx context.Context, id string, req *dto.ShippingProfileRequest) (*model.ShippingProfile, error) {
	if err := validateShippingProfile(req); err != nil {
		return nil, err
	}

	profile, err := s.shippingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("shipping profile")
		}
		return nil, fmt.Errorf("find shipping profile: %w", err)
	}

	profile.Name = req.Name
	profile.WeightGrams = req.WeightGrams
	profile.LengthCm = req.LengthCm
	profile.WidthCm = req.WidthCm
	profile.HeightCm = req.HeightCm

	if err := s.shippingRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("update shipping profile: %w", err)
	}

	return profile, nil
}

func (s *shippingServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.shippingRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("shipping profile")
		}
		return fmt.Errorf("delete shipping profile: %w", err)
	}
	return nil
}

func (s *shippingServiceImpl) Get(ctx context.Context, id string) (*model.ShippingProfile, error) {
	profile, err := s.shippingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("shipping profile")
		}
		return nil, fmt.Errorf("find shipping profile: %w", err)
	}
	return profile, nil
}

func (s *shippingServiceImpl) List(ctx context.Context) ([]*model.ShippingProfile, error) {
	return s.shippingRepo.List(ctx)
}

func (s *shippingServiceImpl) CombineForProducts(ctx context.Context, productIDs []string) (*model.ShippingProfile, error) {
	products, err := s.productRepo.FindMany(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}

	profileIDs := make([]string, 0, len(products))
	for _, p := range products {
		if p.ShippingProfileID != nil {
			profileIDs = append(profileIDs, *p.ShippingProfileID)
		}
	}
	if len(profileIDs) == 0 {
		return nil, apperr.NotFound("shipping profile")
	}

	profiles, err := s.shippingRepo.FindMany(ctx, profileIDs)
	if err != nil {
		return nil, fmt.Errorf("find shipping profiles: %w", err)
	}
	if len(profiles) == 0 {
		return nil, apperr.NotFound("shipping profile")
	}

	combined := CombineProfiles(profiles)
	return &combined, nil
}

// CombineProfiles reduces several profiles into one shipment: weights
// add up, dimensions take the maximum per axis. This is a deterministic
// reduction, not bin packing.
func CombineProfiles(profiles []*model.ShippingProfile) model.ShippingProfile {
	var out model.ShippingProfile
	out.Name = "combined"

	for _, p := range profiles {
		out.WeightGrams += p.WeightGrams
		if p.LengthCm > out.LengthCm {
			out.LengthCm = p.LengthCm
		}
		if p.WidthCm > out.WidthCm {
			out.WidthCm = p.WidthCm
		}
		if p.HeightCm > out.HeightCm {
			out.HeightCm = p.HeightCm
		}
	}

	return out
}
