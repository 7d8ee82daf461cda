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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type PlanService interface {
	Create(ctx context.Context, req *dto.PlanRequest) (*model.SubscriptionPlan, error)
	Update(ctx context.Context, id string, req *dto.PlanRequest) (*model.SubscriptionPlan, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.SubscriptionPlan, error)
	List(ctx context.Context) ([]*model.SubscriptionPlan, error)
}

type planServiceImpl struct {
	planRepo     repository.PlanRepository
	shippingRepo repository.ShippingRepository
}

func NewPlanService(planRepo repository.PlanRepository, shippingRepo repository.ShippingRepository) PlanService {
	return &planServiceImpl{
		planRepo:     planRepo,
		shippingRepo: shippingRepo,
	}
}

func validatePlan(req *dto.PlanRequest) error {
	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "required"
	}
	if req.Slug == "" {
		fields["slug"] = "required"
	}
	if req.DiscountPercent.IsNegative() || req.DiscountPercent.GreaterThan(hundred) {
		fields["discount_percent"] = "must be between 0 and 100"
	}
	if req.Price.IsNegative() {
		fields["price"] = "must not be negative"
	}
	switch req.BillingCycle {
	case model.CycleMonthly, model.CycleQuarterly, model.CycleAnnual:
	default:
		fields["billing_cycle"] = "must be MONTHLY, QUARTERLY, or ANNUAL"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid plan", fields)
	}
	return nil
}

func (s *planServiceImpl) Create(ctx context.Context, req *dto.PlanRequest) (*model.SubscriptionPlan, error) {
	if err := validatePlan(req); err != nil {
		return nil, err
	}

	if _, err := s.planRepo.FindBySlug(ctx, req.Slug); err == nil {
		return nil, apperr.Conflict(apperr.CodeDuplicateSlug, "plan slug already in use")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check slug: %w", err)
	}

	if req.ShippingProfileID != nil {
		if _, err := s.shippingRepo.FindByID(ctx, *req.ShippingProfileID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("shipping profile")
			}
			return nil, fmt.Errorf("find shipping profile: %w", err)
		}
	}

	plan := &model.SubscriptionPlan{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Slug:              req.Slug,
		DiscountPercent:   req.DiscountPercent,
		Price:             req.Price.Round(2),
		BillingCycle:      req.BillingCycle,
		ShippingProfileID: req.ShippingProfileID,
	}

	if err := s.planRepo.Create(ctx, plan); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	return plan, nil
}

func (s *planServiceImpl) Update(ctx context.Context, id string, req *dto.PlanRequest) (*model.SubscriptionPlan, error) {
	if err := validatePlan(req); err != nil {
		return nil, err
	}

	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("plan")
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}

	if req.Slug != plan.Slug {
		if _, err := s.planRepo.FindBySlug(ctx, req.Slug); err == nil {
			return nil, apperr.Conflict(apperr.CodeDuplicateSlug, "plan slug already in use")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("check slug: %w", err)
		}
	}

	plan.Name = req.Name
	plan.Slug = req.Slug
	plan.DiscountPercent = req.DiscountPercent
	plan.Price = req.Price.Round(2)
	plan.BillingCycle = req.BillingCycle
	plan.ShippingProfileID = req.ShippingProfileID

	if err := s.planRepo.Update(ctx, plan); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}

	return plan, nil
}

func (s *planServiceImpl) Delete(ctx context.Context, id string) error {
	if err := s.planRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("plan")
		}
		return fmt.Errorf("delete plan: %w", err)
	}
	return nil
}

func (s *planServiceImpl) Get(ctx context.Context, id string) (*model.SubscriptionPlan, error) {
	plan, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("plan")
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}
	return plan, nil
}

func (s *planServiceImpl) List(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	return s.planRepo.List(ctx)
}
