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

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CartService interface {
	AddItem(ctx context.Context, userID string, req *dto.AddCartItemRequest) error
	UpdateItem(ctx context.Context, userID string, itemID uint, quantity int) error
	RemoveItem(ctx context.Context, userID string, itemID uint) error
	Clear(ctx context.Context, userID string) error
	// ComputeCartPrices aggregates per-line quotes into cart totals. The
	// active subscription is loaded once; its discount is uniform across
	// all lines.
	ComputeCartPrices(ctx context.Context, userID string) (*dto.CartPrices, error)
}

type cartServiceImpl struct {
	db          *gorm.DB
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	subRepo     repository.SubscriptionRepository
	logger      *slog.Logger
}

func NewCartService(
	db *gorm.DB,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	subRepo repository.SubscriptionRepository,
	logger *slog.Logger,
) CartService {
	return &cartServiceImpl{
		db:          db,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		subRepo:     subRepo,
		logger:      logger,
	}
}

func (s *cartServiceImpl) AddItem(ctx context.Context, userID string, req *dto.AddCartItemRequest) error {
	if req.Quantity <= 0 {
		return apperr.Validation("quantity must be positive", map[string]string{"quantity": "must be greater than zero"})
	}

	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("product")
		}
		return fmt.Errorf("find product: %w", err)
	}

	if req.VariantID != nil {
		if variantOf(product, *req.VariantID) == nil {
			return apperr.NotFound("variant")
		}
	}

	cart, err := s.cartRepo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}

	return s.cartRepo.AddItem(ctx, &model.CartItem{
		CartID:    cart.ID,
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
}

func (s *cartServiceImpl) UpdateItem(ctx context.Context, userID string, itemID uint, quantity int) error {
	if quantity <= 0 {
		return apperr.Validation("quantity must be positive", map[string]string{"quantity": "must be greater than zero"})
	}

	cart, err := s.cartRepo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}

	if err := s.cartRepo.UpdateItemQuantity(ctx, cart.ID, itemID, quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("cart item")
		}
		return fmt.Errorf("update cart item: %w", err)
	}

	return nil
}

func (s *cartServiceImpl) RemoveItem(ctx context.Context, userID string, itemID uint) error {
	cart, err := s.cartRepo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}

	if err := s.cartRepo.RemoveItem(ctx, cart.ID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("cart item")
		}
		return fmt.Errorf("remove cart item: %w", err)
	}

	return nil
}

func (s *cartServiceImpl) Clear(ctx context.Context, userID string) error {
	cart, err := s.cartRepo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}

	return s.cartRepo.Clear(ctx, s.db, cart.ID)
}

func (s *cartServiceImpl) ComputeCartPrices(ctx context.Context, userID string) (*dto.CartPrices, error) {
	cart, err := s.cartRepo.GetOrCreateByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}

	out := &dto.CartPrices{
		Items:         []dto.CartLine{},
		SubtotalBase:  decimal.Zero.Round(2),
		SubtotalFinal: decimal.Zero.Round(2),
		TotalDiscount: decimal.Zero.Round(2),
	}

	if len(cart.Items) == 0 {
		return out, nil
	}

	productIDs := make([]string, len(cart.Items))
	for i, item := range cart.Items {
		productIDs[i] = item.ProductID
	}

	products, err := s.productRepo.FindMany(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("find cart products: %w", err)
	}
	productByID := make(map[string]*model.Product, len(products))
	for _, p := range products {
		productByID[p.ID] = p
	}

	// Single subscription lookup for the whole cart.
	var planName, planSlug string
	discountPercent := decimal.Zero
	sub, err := s.subRepo.FindActiveByUser(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find active subscription: %w", err)
	}
	if sub != nil {
		planName = sub.Plan.Name
		planSlug = sub.Plan.Slug
		discountPercent = sub.Plan.DiscountPercent
	}

	for _, item := range cart.Items {
		product, ok := productByID[item.ProductID]
		if !ok {
			// Product removed from the catalog since it was added; the
			// stale line is simply not priced.
			continue
		}

		base := product.BasePrice
		name := product.Name
		if item.VariantID != nil {
			variant := variantOf(product, *item.VariantID)
			if variant == nil {
				continue
			}
			if variant.Price != nil {
				base = *variant.Price
			}
			name = product.Name + " - " + variant.Name
		}

		quote := pricing.QuoteWithPlan(base, planName, planSlug, discountPercent)

		// Each line is rounded before it is summed, like a receipt.
		lineBase := pricing.LineTotal(quote.BasePrice, item.Quantity)
		lineFinal := pricing.LineTotal(quote.FinalPrice, item.Quantity)

		out.Items = append(out.Items, dto.CartLine{
			ItemID:      item.ID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			Name:        name,
			Quantity:    item.Quantity,
			UnitBase:    quote.BasePrice,
			UnitFinal:   quote.FinalPrice,
			LineBase:    lineBase,
			LineFinal:   lineFinal,
			HasDiscount: quote.HasDiscount,
		})

		out.SubtotalBase = out.SubtotalBase.Add(lineBase)
		out.SubtotalFinal = out.SubtotalFinal.Add(lineFinal)

		if quote.HasDiscount && out.DiscountLabel == nil {
			label := quote.DiscountLabel
			out.DiscountLabel = &label
			out.HasSubscriptionDiscount = true
		}
	}

	out.TotalDiscount = out.SubtotalBase.Sub(out.SubtotalFinal)

	return out, nil
}

func variantOf(product *model.Product, variantID string) *model.ProductVariant {
	for i := range product.Variants {
		if product.Variants[i].ID == variantID {
			return &product.Variants[i]
		}
	}
	return nil
}
