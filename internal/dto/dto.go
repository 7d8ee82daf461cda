package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Response is the uniform envelope every endpoint returns.
type Response struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	// Field-level validation detail, present only for validation errors.
	Fields map[string]string `json:"fields,omitempty"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// ---------- auth ----------

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ---------- pricing / cart ----------

// PriceQuote mirrors the computePriceForUser contract. DiscountLabel is
// null when no discount applies.
type PriceQuote struct {
	BasePrice       decimal.Decimal `json:"base_price"`
	FinalPrice      decimal.Decimal `json:"final_price"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	HasDiscount     bool            `json:"has_discount"`
	DiscountLabel   *string         `json:"discount_label"`
	PlanSlug        string          `json:"plan_slug,omitempty"`
}

type AddCartItemRequest struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id,omitempty"`
	Quantity  int     `json:"quantity"`
}

type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

type CartLine struct {
	ItemID      uint            `json:"item_id"`
	ProductID   string          `json:"product_id"`
	VariantID   *string         `json:"variant_id,omitempty"`
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	UnitBase    decimal.Decimal `json:"unit_base_price"`
	UnitFinal   decimal.Decimal `json:"unit_final_price"`
	LineBase    decimal.Decimal `json:"line_base_total"`
	LineFinal   decimal.Decimal `json:"line_final_total"`
	HasDiscount bool            `json:"has_discount"`
}

type CartPrices struct {
	Items                   []CartLine      `json:"items"`
	SubtotalBase            decimal.Decimal `json:"subtotal_base"`
	SubtotalFinal           decimal.Decimal `json:"subtotal_final"`
	TotalDiscount           decimal.Decimal `json:"total_discount"`
	DiscountLabel           *string         `json:"discount_label"`
	HasSubscriptionDiscount bool            `json:"has_subscription_discount"`
}

// ---------- checkout ----------

const (
	MethodCard = "CARD"
	MethodPix  = "PIX"
)

// CheckoutRequest deliberately carries no prices; the server reprices
// everything from the catalog and the live subscription.
type CheckoutRequest struct {
	Method string `json:"method"` // CARD or PIX
	// Gateway-issued single-use card token; required for CARD.
	CardToken    string `json:"card_token,omitempty"`
	Installments int    `json:"installments,omitempty"`
	// Optional subscription plan purchased together with the cart.
	PlanSlug string `json:"plan_slug,omitempty"`
}

type PixArtifact struct {
	QRCode       string     `json:"qr_code"`
	QRCodeBase64 string     `json:"qr_code_base64"`
	TicketURL    string     `json:"ticket_url"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

type CheckoutResponse struct {
	OrderID       string          `json:"order_id"`
	OrderStatus   string          `json:"order_status"`
	PaymentID     string          `json:"payment_id"`
	PaymentStatus string          `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	Pix           *PixArtifact    `json:"pix,omitempty"`
}

type OrderSummary struct {
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	DiscountTotal decimal.Decimal `json:"discount_total"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []OrderLine     `json:"items"`
	Payment       *PaymentStatus  `json:"payment,omitempty"`
}

type OrderLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type PaymentStatus struct {
	PaymentID string       `json:"payment_id"`
	Method    string       `json:"method"`
	Status    string       `json:"status"`
	Pix       *PixArtifact `json:"pix,omitempty"`
}

// ---------- admin ----------

type ProductRequest struct {
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	Description       string          `json:"description"`
	CategoryID        *string         `json:"category_id"`
	ShippingProfileID *string         `json:"shipping_profile_id"`
	BasePrice         decimal.Decimal `json:"base_price"`
	Stock             int             `json:"stock"`
}

type VariantRequest struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
	Stock int              `json:"stock"`
}

type CategoryRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type PlanRequest struct {
	Name              string          `json:"name"`
	Slug              string          `json:"slug"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	Price             decimal.Decimal `json:"price"`
	BillingCycle      string          `json:"billing_cycle"`
	ShippingProfileID *string         `json:"shipping_profile_id"`
}

type ShippingProfileRequest struct {
	Name        string `json:"name"`
	WeightGrams int    `json:"weight_grams"`
	LengthCm    int    `json:"length_cm"`
	WidthCm     int    `json:"width_cm"`
	HeightCm    int    `json:"height_cm"`
}

type UserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role"`
}
