package handler

import (
	"net/http"

	"storefront-backend/internal/middleware"
	"storefront-backend/internal/service"

	"github.com/labstack/echo/v4"
)

type ProductHandler struct {
	catalogService  service.CatalogService
	pricingService  service.PricingService
	planService     service.PlanService
	shippingService service.ShippingService
}

func NewProductHandler(
	catalogService service.CatalogService,
	pricingService service.PricingService,
	planService service.PlanService,
	shippingService service.ShippingService,
) *ProductHandler {
	return &ProductHandler{
		catalogService:  catalogService,
		pricingService:  pricingService,
		planService:     planService,
		shippingService: shippingService,
	}
}

func (h *ProductHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	products, err := h.catalogService.ListProducts(ctx, c.QueryParam("category"))
	if err != nil {
		return err
	}

	return respondOK(c, products)
}

// GetBySlug returns the product together with a price quote for the
// requesting user. Anonymous visitors get the base price.
func (h *ProductHandler) GetBySlug(c echo.Context) error {
	ctx := c.Request().Context()

	product, err := h.catalogService.GetProductBySlug(ctx, c.Param("slug"))
	if err != nil {
		return err
	}

	quote, err := h.pricingService.ComputePriceForUser(ctx, product.ID, middleware.UserID(c))
	if err != nil {
		return err
	}

	return respondOK(c, map[string]any{
		"product": product,
		"price":   quote,
	})
}

// Price quotes a single product. With a ?plan= query the quote previews
// the given plan's discount instead of the user's own subscription.
func (h *ProductHandler) Price(c echo.Context) error {
	ctx := c.Request().Context()

	product, err := h.catalogService.GetProductBySlug(ctx, c.Param("slug"))
	if err != nil {
		return err
	}

	if planSlug := c.QueryParam("plan"); planSlug != "" {
		quote, err := h.pricingService.PreviewPriceWithPlan(ctx, product.ID, planSlug)
		if err != nil {
			return err
		}
		return respondOK(c, quote)
	}

	quote, err := h.pricingService.ComputePriceForUser(ctx, product.ID, middleware.UserID(c))
	if err != nil {
		return err
	}

	return respondOK(c, quote)
}

func (h *ProductHandler) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()

	categories, err := h.catalogService.ListCategories(ctx)
	if err != nil {
		return err
	}

	return respondOK(c, categories)
}

func (h *ProductHandler) ListPlans(c echo.Context) error {
	ctx := c.Request().Context()

	plans, err := h.planService.List(ctx)
	if err != nil {
		return err
	}

	return respondOK(c, plans)
}

type shippingEstimateRequest struct {
	ProductIDs []string `json:"product_ids"`
}

// EstimateShipping folds the shipping profiles of the given products
// into a single shipment profile.
func (h *ProductHandler) EstimateShipping(c echo.Context) error {
	ctx := c.Request().Context()

	var req shippingEstimateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	profile, err := h.shippingService.CombineForProducts(ctx, req.ProductIDs)
	if err != nil {
		return err
	}

	return respondOK(c, profile)
}
