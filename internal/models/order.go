package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the ledger entry created at checkout. The price breakdown and the
// line snapshots are written once and never updated; only the status fields,
// the tracking number and the external payment reference change afterwards.
type Order struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User        *User     `json:"user,omitempty"`
	OrderNumber string `gorm:"uniqueIndex" json:"order_number"`
	// PlacedAt is the checkout timestamp that revenue reports bucket on.
	// CreatedAt is row bookkeeping and may diverge when orders are
	// backfilled or imported.
	PlacedAt time.Time `json:"placed_at"`

	PaymentStatus PaymentStatus `gorm:"type:varchar(16)" json:"payment_status"`
	OrderStatus   OrderStatus   `gorm:"type:varchar(16)" json:"order_status"`

	Subtotal decimal.Decimal `gorm:"type:numeric(12,2)" json:"subtotal"`
	Discount decimal.Decimal `gorm:"type:numeric(12,2)" json:"discount"`
	Tax      decimal.Decimal `gorm:"type:numeric(12,2)" json:"tax"`
	Shipping decimal.Decimal `gorm:"type:numeric(12,2)" json:"shipping"`
	Total    decimal.Decimal `gorm:"type:numeric(12,2)" json:"total"`
	Currency string          `json:"currency"`

	CouponCode     string `json:"coupon_code"`
	PaymentMethod  string `json:"payment_method"`
	PaymentRef     string `gorm:"index" json:"payment_ref"`
	TrackingNumber string `json:"tracking_number"`

	ShippingStreet  string `json:"shipping_street"`
	ShippingCity    string `json:"shipping_city"`
	ShippingState   string `json:"shipping_state"`
	ShippingZipCode string `json:"shipping_zip_code"`
	ShippingCountry string `json:"shipping_country"`

	Items []OrderItem `json:"items,omitempty"`
}

// OrderItem snapshots one product line at order-creation time. UnitPrice is
// the price the customer saw when the line entered the cart.
type OrderItem struct {
	BaseModel
	OrderID      uuid.UUID       `gorm:"type:uuid;index" json:"order_id"`
	ProductID    *uuid.UUID      `gorm:"type:uuid" json:"product_id"`
	ProductName  string          `json:"product_name"`
	VariantLabel string          `json:"variant_label"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:numeric(12,2)" json:"unit_price"`
	LineTotal    decimal.Decimal `gorm:"type:numeric(12,2)" json:"line_total"`
}
