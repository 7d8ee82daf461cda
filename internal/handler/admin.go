package handler

import (
	"net/http"

	"storefront-backend/internal/dto"
	"storefront-backend/internal/service"

	"github.com/labstack/echo/v4"
)

// AdminHandler bundles the back-office CRUD surface. Every route behind
// it is gated by the admin role in the router.
type AdminHandler struct {
	catalogService  service.CatalogService
	planService     service.PlanService
	shippingService service.ShippingService
	userService     service.UserService
	paymentService  service.PaymentService
}

func NewAdminHandler(
	catalogService service.CatalogService,
	planService service.PlanService,
	shippingService service.ShippingService,
	userService service.UserService,
	paymentService service.PaymentService,
) *AdminHandler {
	return &AdminHandler{
		catalogService:  catalogService,
		planService:     planService,
		shippingService: shippingService,
		userService:     userService,
		paymentService:  paymentService,
	}
}

// ---------- products ----------

func (h *AdminHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	product, err := h.catalogService.CreateProduct(ctx, &req)
	if err != nil {
		return err
	}

	return respondCreated(c, product)
}

func (h *AdminHandler) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	product, err := h.catalogService.UpdateProduct(ctx, c.Param("id"), &req)
	if err != nil {
		return err
	}

	return respondOK(c, product)
}

func (h *AdminHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.catalogService.DeleteProduct(ctx, c.Param("id")); err != nil {
		return err
	}

	return respondOK(c, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	product, err := h.catalogService.GetProduct(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return respondOK(c, product)
}

func (h *AdminHandler) AddVariant(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.VariantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	variant, err := h.catalogService.AddVariant(ctx, c.Param("id"), &req)
	if err != nil {
		return err
	}

	return respondCreated(c, variant)
}

// ---------- categories ----------

func (h *AdminHandler) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	category, err := h.catalogService.CreateCategory(ctx, &req)
	if err != nil {
		return err
	}

	return respondCreated(c, category)
}

func (h *AdminHandler) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	category, err := h.catalogService.UpdateCategory(ctx, c.Param("id"), &req)
	if err != nil {
		return err
	}

	return respondOK(c, category)
}

func (h *AdminHandler) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.catalogService.DeleteCategory(ctx, c.Param("id")); err != nil {
		return err
	}

	return respondOK(c, map[string]string{"status": "deleted"})
}

// ---------- plans ----------

func (h *AdminHandler) CreatePlan(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.PlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	plan, err := h.planService.Create(ctx, &req)
	if err != nil {
		return err
	}

	return respondCreated(c, plan)
}

func (h *AdminHandler) UpdatePlan(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.PlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	plan, err := h.planService.Update(ctx, c.Param("id"), &req)
	if err != nil {
		return err
	}

	return respondOK(c, plan)
}

func (h *AdminHandler) DeletePlan(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.planService.Delete(ctx, c.Param("id")); err != nil {
		return err
	}

	return respondOK(c, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) GetPlan(c echo.Context) error {
	ctx := c.Request().Context()

	plan, err := h.planService.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	return respondOK(c, plan)
}

// ---------- shipping profiles ----------

func (h *AdminHandler) CreateShippingProfile(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ShippingProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	profile, err := h.shippingService.Create(ctx, &req)
	if err != nil {
		return err
	}

	return respondCreated(c, profile)
}

func (h *AdminHandler) UpdateShippingProfile(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.ShippingProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	profile, err := h.shippingService.Update(ctx, c.Param("id"), &req)
	if err != nil {
		return err
	}

	return respondOK(c, profile)
}

func (h *AdminHandler) DeleteShippingProfile(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.shippingService.Delete(ctx, c.Param("id")); err != nil {
		return err
	}

	return respondOK(c, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) ListShippingProfiles(c echo.Context) error {
	ctx := c.Request().Context()

	profiles, err := h.shippingService.List(ctx)
	if err != nil {
		return err
	}

	return respondOK(c, profiles)
}

// ---------- users ----------

func (h *AdminHandler) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	user, err := h.userService.Create(ctx, &req)
	if err != nil {
		return err
	}

	return respondCreated(c, user)
}

func (h *AdminHandler) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req dto.UserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	user, err := h.userService.Update(ctx, c.Param("id"), &req)
	if err != nil {
		return err
	}

	return respondOK(c, user)
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.userService.Delete(ctx, c.Param("id")); err != nil {
		return err
	}

	return respondOK(c, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()

	users, err := h.userService.List(ctx)
	if err != nil {
		return err
	}

	return respondOK(c, users)
}

// ---------- reconciliation ----------

// ReconcileOrder re-reads the gateway status of the order's latest
// payment and applies it. Used when a webhook was missed.
func (h *AdminHandler) ReconcileOrder(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.paymentService.ReconcileOrder(ctx, c.Param("id")); err != nil {
		return err
	}

	return respondOK(c, map[string]string{"status": "reconciled"})
}
