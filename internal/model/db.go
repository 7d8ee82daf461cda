package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

// Order statuses.
const (
	OrderPending  = "PENDING"
	OrderPaid     = "PAID"
	OrderFailed   = "FAILED"
	OrderCanceled = "CANCELED"
	OrderExpired  = "EXPIRED"
)

// Payment methods and statuses.
const (
	MethodCard = "CARD"
	MethodPix  = "PIX"

	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentRejected = "REJECTED"
	PaymentCanceled = "CANCELED"
	PaymentExpired  = "EXPIRED"
)

// Subscription statuses.
const (
	SubActive              = "ACTIVE"
	SubPaused              = "PAUSED"
	SubCanceled            = "CANCELED"
	SubExpired             = "EXPIRED"
	SubPendingCancellation = "PENDING_CANCELLATION"
)

// Billing cycles.
const (
	CycleMonthly   = "MONTHLY"
	CycleQuarterly = "QUARTERLY"
	CycleAnnual    = "ANNUAL"
)

type User struct {
	ID           string `gorm:"primaryKey;size:36;not null"`
	Email        string `gorm:"size:255;uniqueIndex;not null"`
	Name         string `gorm:"size:255"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:16;not null;default:CUSTOMER"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type PasswordResetToken struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    string `gorm:"size:36;index;not null"`
	TokenHash string `gorm:"size:64;uniqueIndex;not null"`
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

type Category struct {
	ID        string `gorm:"primaryKey;size:36;not null"`
	Name      string `gorm:"size:128;not null"`
	Slug      string `gorm:"size:128;uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is soft-deleted once referenced by an order so order history
// keeps resolving; the catalog simply stops listing it.
type Product struct {
	ID                string  `gorm:"primaryKey;size:36;not null"`
	Name              string  `gorm:"size:255;not null"`
	Slug              string  `gorm:"size:255;uniqueIndex;not null"`
	Description       string  `gorm:"type:text"`
	CategoryID        *string `gorm:"size:36;index"`
	ShippingProfileID *string `gorm:"size:36"`
	// Single price per product; any markdown the customer sees is derived
	// from their active subscription plan at computation time.
	BasePrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Stock     int             `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt  `gorm:"index"`

	Variants []ProductVariant `gorm:"foreignKey:ProductID"`
}

type ProductVariant struct {
	ID        string `gorm:"primaryKey;size:36;not null"`
	ProductID string `gorm:"size:36;index;not null"`
	Name      string `gorm:"size:128;not null"`
	// Optional price override; nil means the product base price applies.
	Price     *decimal.Decimal `gorm:"type:decimal(10,2)"`
	Stock     int              `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ShippingProfile struct {
	ID          string `gorm:"primaryKey;size:36;not null"`
	Name        string `gorm:"size:128;not null"`
	WeightGrams int    `gorm:"not null"`
	LengthCm    int    `gorm:"not null"`
	WidthCm     int    `gorm:"not null"`
	HeightCm    int    `gorm:"not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type SubscriptionPlan struct {
	ID   string `gorm:"primaryKey;size:36;not null"`
	Name string `gorm:"size:128;not null"`
	Slug string `gorm:"size:128;uniqueIndex;not null"`
	// Plan-level markdown, 0-100. Never stored on products.
	DiscountPercent   decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	Price             decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	BillingCycle      string          `gorm:"size:16;not null"` // MONTHLY, QUARTERLY, ANNUAL
	ShippingProfileID *string         `gorm:"size:36"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type Subscription struct {
	ID            string `gorm:"primaryKey;size:36;not null"`
	UserID        string `gorm:"size:36;index;not null"`
	PlanID        string `gorm:"size:36;index;not null"`
	Status        string `gorm:"size:32;index;not null"`
	NextBillingAt *time.Time
	CanceledAt    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Plan SubscriptionPlan `gorm:"foreignKey:PlanID"`
}

// Cart is owned 1:1 by a user. No prices are stored on it; pricing is
// always recomputed at read time from the catalog and the live subscription.
type Cart struct {
	ID        string `gorm:"primaryKey;size:36;not null"`
	UserID    string `gorm:"size:36;uniqueIndex;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Items []CartItem `gorm:"foreignKey:CartID"`
}

type CartItem struct {
	ID        uint    `gorm:"primaryKey"`
	CartID    string  `gorm:"size:36;index:idx_cart_line,unique;not null"`
	ProductID string  `gorm:"size:36;index:idx_cart_line,unique;not null"`
	VariantID *string `gorm:"size:36;index:idx_cart_line,unique"`
	Quantity  int     `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order is an immutable price snapshot taken at checkout time.
type Order struct {
	ID            string          `gorm:"primaryKey;size:36;not null"`
	UserID        string          `gorm:"size:36;index;not null"`
	Status        string          `gorm:"size:32;index;not null"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	DiscountTotal decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	// Set when the order purchases a subscription plan; the Subscription
	// row is only created once the payment is approved.
	PlanID    *string `gorm:"size:36"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Items    []OrderItem `gorm:"foreignKey:OrderID"`
	Payments []Payment   `gorm:"foreignKey:OrderID"`
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey"`
	OrderID   string          `gorm:"size:36;index;not null"`
	ProductID string          `gorm:"size:36;index;not null"`
	VariantID *string         `gorm:"size:36"`
	Name      string          `gorm:"size:255;not null"` // snapshot, survives catalog edits
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
}

// Payment is one charge attempt against an order. PIX regeneration reuses
// the same row (same logical attempt); only a genuinely new attempt gets a
// new row.
type Payment struct {
	ID           string          `gorm:"primaryKey;size:36;not null"`
	OrderID      string          `gorm:"size:36;index;not null"`
	Method       string          `gorm:"size:16;not null"` // CARD, PIX
	Status       string          `gorm:"size:32;index;not null"`
	GatewayID    string          `gorm:"size:64;index"`
	StatusDetail string          `gorm:"size:128"`
	Amount       decimal.Decimal `gorm:"type:decimal(10,2);not null"`

	// PIX artifact; opaque to us beyond expiry enforcement at read time.
	PixQRCode       string `gorm:"type:text"`
	PixQRCodeBase64 string `gorm:"type:text"`
	PixTicketURL    string `gorm:"size:512"`
	PixExpiresAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
