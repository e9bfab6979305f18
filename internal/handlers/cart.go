package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/aurum/internal/pricing"
)

// CartHandler exposes the pricing preview used by the storefront cart page.
type CartHandler struct {
	pricing pricing.Config
}

// NewCartHandler constructs CartHandler.
func NewCartHandler(cfg pricing.Config) *CartHandler {
	return &CartHandler{pricing: cfg}
}

type calculateRequest struct {
	Items      []pricing.CartLine `json:"items"`
	CouponCode string             `json:"coupon_code"`
}

// Calculate prices a cart without creating anything. The same engine runs at
// checkout, so the preview always matches the charged total.
func (h *CartHandler) Calculate(c *fiber.Ctx) error {
	var req calculateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	breakdown, err := pricing.Compute(req.Items, req.CouponCode, h.pricing)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return c.JSON(fiber.Map{"success": true, "data": breakdown})
}
