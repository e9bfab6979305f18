// Package pricing turns a cart into a priced breakdown. It is pure: the same
// lines, coupon and config always produce the same breakdown, which is why
// checkout trusts it over anything the client sends.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CartLine is one client-held cart entry before it becomes an order line.
type CartLine struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	VariantLabel string          `json:"variant_label"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
}

// Breakdown is the computed pricing for a cart or order.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// Config carries the rate table. It is passed explicitly so tests can vary
// rates without touching globals.
type Config struct {
	// TaxRate is a fraction, e.g. 0.08 for 8%.
	TaxRate decimal.Decimal
	// FreeShippingThreshold waives the shipping fee once the subtotal
	// exceeds it.
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	// Coupons maps a code to a percentage off the subtotal, e.g. 10 for 10%.
	Coupons map[string]decimal.Decimal
}

// DefaultConfig returns the storefront's standard rates.
func DefaultConfig() Config {
	return Config{
		TaxRate:               decimal.RequireFromString("0.08"),
		FreeShippingThreshold: decimal.NewFromInt(50),
		ShippingFee:           decimal.RequireFromString("9.99"),
		Coupons: map[string]decimal.Decimal{
			"SAVE10": decimal.NewFromInt(10),
		},
	}
}

// InvalidCartError reports a malformed cart line. Index is -1 when the cart
// as a whole is invalid.
type InvalidCartError struct {
	Index  int
	Reason string
}

func (e *InvalidCartError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid cart: %s", e.Reason)
	}
	return fmt.Sprintf("invalid cart line %d: %s", e.Index, e.Reason)
}

// Compute prices the cart. Tax is charged on the subtotal before the coupon
// discount is applied; that matches the storefront's published receipts and
// is intentional. An unrecognized coupon code simply yields a zero discount.
func Compute(lines []CartLine, couponCode string, cfg Config) (Breakdown, error) {
	if len(lines) == 0 {
		return Breakdown{}, &InvalidCartError{Index: -1, Reason: "cart is empty"}
	}

	subtotal := decimal.Zero
	for i, line := range lines {
		if line.Quantity <= 0 {
			return Breakdown{}, &InvalidCartError{Index: i, Reason: "quantity must be greater than 0"}
		}
		if line.UnitPrice.IsNegative() {
			return Breakdown{}, &InvalidCartError{Index: i, Reason: "unit price must not be negative"}
		}
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	subtotal = subtotal.Round(2)

	discount := decimal.Zero
	if couponCode != "" {
		if percent, ok := cfg.Coupons[couponCode]; ok {
			discount = subtotal.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
		}
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	tax := subtotal.Mul(cfg.TaxRate).Round(2)

	shipping := cfg.ShippingFee
	if subtotal.GreaterThan(cfg.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	total := subtotal.Sub(discount).Add(tax).Add(shipping).Round(2)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Breakdown{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Shipping: shipping,
		Total:    total,
	}, nil
}
