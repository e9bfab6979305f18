package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

// WebhookAuthMiddleware verifies the processor's HMAC-SHA256 signature over
// the raw request body before any event is parsed. Requests without a valid
// signature never reach the handler.
func WebhookAuthMiddleware(signingSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if signingSecret == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "webhook secret not configured")
		}

		signature := c.Get("X-Webhook-Signature")
		if signature == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing signature")
		}

		provided, err := hex.DecodeString(signature)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "malformed signature")
		}

		mac := hmac.New(sha256.New, []byte(signingSecret))
		mac.Write(c.Body())
		if !hmac.Equal(provided, mac.Sum(nil)) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid signature")
		}

		return c.Next()
	}
}
