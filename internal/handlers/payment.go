package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/aurum/internal/models"
	"github.com/example/aurum/internal/services"
)

// PaymentHandler manages payment-intent creation and confirmation.
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type createIntentRequest struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateIntent creates a processor payment intent for an order and returns
// the client secret the storefront needs to collect the payment.
func (h *PaymentHandler) CreateIntent(c *fiber.Ctx) error {
	var req createIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order_id")
	}

	intent, err := h.payments.CreateIntent(c.Context(), orderID, req.Amount, req.Currency)
	if err != nil {
		return mapPaymentError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"client_secret": intent.ClientSecret}})
}

type confirmPaymentRequest struct {
	OrderID    string `json:"order_id"`
	PaymentRef string `json:"payment_intent_id"`
}

// ConfirmPayment records a completed payment reported by the storefront.
func (h *PaymentHandler) ConfirmPayment(c *fiber.Ctx) error {
	var req confirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order_id")
	}
	if req.PaymentRef == "" {
		return fiber.NewError(fiber.StatusBadRequest, "payment_intent_id is required")
	}

	order, err := h.payments.Confirm(c.Context(), orderID, req.PaymentRef)
	if err != nil {
		return mapPaymentError(err)
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// webhookEvent is the shape of the processor's push notification; only the
// succeeded-intent event is acted on.
type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Metadata struct {
				OrderID string `json:"order_id"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// Webhook handles processor-pushed confirmations. Signature verification
// happens in middleware before this runs. Confirmation is idempotent, so
// redelivered events are harmless.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	var event webhookEvent
	if err := json.Unmarshal(c.Body(), &event); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid event payload")
	}

	if event.Type != "payment_intent.succeeded" {
		return c.JSON(fiber.Map{"received": true})
	}

	orderID, err := uuid.Parse(event.Data.Object.Metadata.OrderID)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "event missing order binding")
	}

	if _, err := h.payments.ConfirmFromWebhook(c.Context(), orderID, event.Data.Object.ID); err != nil {
		return mapPaymentError(err)
	}

	return c.JSON(fiber.Map{"received": true})
}

func mapPaymentError(err error) error {
	var nfErr *services.NotFoundError
	if errors.As(err, &nfErr) {
		return fiber.NewError(fiber.StatusNotFound, nfErr.Error())
	}

	var mismatch *services.AmountMismatchError
	if errors.As(err, &mismatch) {
		return fiber.NewError(fiber.StatusBadRequest, mismatch.Error())
	}

	var dup *services.AlreadyConfirmedError
	if errors.As(err, &dup) {
		return fiber.NewError(fiber.StatusConflict, dup.Error())
	}

	var invalid *models.InvalidTransitionError
	if errors.As(err, &invalid) {
		return fiber.NewError(fiber.StatusUnprocessableEntity, invalid.Error())
	}

	var procErr *services.ProcessorError
	if errors.As(err, &procErr) {
		return fiber.NewError(fiber.StatusBadGateway, "payment processor unavailable")
	}

	return err
}
