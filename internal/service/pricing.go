package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"storefront-backend/internal/apperr"
	"storefront-backend/internal/dto"
	"storefront-backend/internal/model"
	"storefront-backend/internal/pricing"
	"storefront-backend/internal/repository"

	"gorm.io/gorm"
)

type PricingService interface {
	// ComputePriceForUser prices one unit of a product for a user. An
	// empty userID means an anonymous visitor: base price, no discount.
	ComputePriceForUser(ctx context.Context, productID, userID string) (*dto.PriceQuote, error)
	// PreviewPriceWithPlan prices a product under a plan the user has not
	// subscribed to yet. The discount percent comes from the plan row,
	// never from the client.
	PreviewPriceWithPlan(ctx context.Context, productID, planSlug string) (*dto.PriceQuote, error)
}

type pricingServiceImpl struct {
	productRepo repository.ProductRepository
	planRepo    repository.PlanRepository
	subRepo     repository.SubscriptionRepository
	logger      *slog.Logger
}

func NewPricingService(
	productRepo repository.ProductRepository,
	planRepo repository.PlanRepository,
	subRepo repository.SubscriptionRepository,
	logger *slog.Logger,
) PricingService {
	return &pricingServiceImpl{
		productRepo: productRepo,
		planRepo:    planRepo,
		subRepo:     subRepo,
		logger:      logger,
	}
}

func (s *pricingServiceImpl) ComputePriceForUser(ctx context.Context, productID, userID string) (*dto.PriceQuote, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("find product: %w", err)
	}

	sub, err := s.activeSubscription(ctx, userID)
	if err != nil {
		return nil, err
	}

	var quote pricing.Quote
	if sub == nil {
		quote = pricing.NoDiscount(product.BasePrice)
	} else {
		quote = pricing.QuoteWithPlan(product.BasePrice, sub.Plan.Name, sub.Plan.Slug, sub.Plan.DiscountPercent)
	}

	return quoteToDTO(quote), nil
}

func (s *pricingServiceImpl) PreviewPriceWithPlan(ctx context.Context, productID, planSlug string) (*dto.PriceQuote, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product")
		}
		return nil, fmt.Errorf("find product: %w", err)
	}

	plan, err := s.planRepo.FindBySlug(ctx, planSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("plan")
		}
		return nil, fmt.Errorf("find plan: %w", err)
	}

	quote := pricing.QuoteWithPlan(product.BasePrice, plan.Name, plan.Slug, plan.DiscountPercent)

	return quoteToDTO(quote), nil
}

// activeSubscription resolves the user's ACTIVE subscription, or nil when
// the user is anonymous or unsubscribed. If more than one ACTIVE row
// exists the most recent wins; that state is not supposed to happen.
func (s *pricingServiceImpl) activeSubscription(ctx context.Context, userID string) (*model.Subscription, error) {
	if userID == "" {
		return nil, nil
	}

	sub, err := s.subRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active subscription: %w", err)
	}

	return sub, nil
}

func quoteToDTO(q pricing.Quote) *dto.PriceQuote {
	out := &dto.PriceQuote{
		BasePrice:       q.BasePrice,
		FinalPrice:      q.FinalPrice,
		DiscountAmount:  q.DiscountAmount,
		DiscountPercent: q.DiscountPercent,
		HasDiscount:     q.HasDiscount,
		PlanSlug:        q.PlanSlug,
	}
	if q.HasDiscount {
		label := q.DiscountLabel
		out.DiscountLabel = &label
	}
	return out
}
