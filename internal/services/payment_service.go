package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/aurum/internal/models"
)

// ConfirmPolicy decides how a duplicate payment confirmation is answered.
type ConfirmPolicy string

const (
	// ConfirmPolicyNoop acknowledges a duplicate confirmation without
	// touching the ledger or re-firing notifications.
	ConfirmPolicyNoop ConfirmPolicy = "noop"
	// ConfirmPolicyStrict rejects a duplicate confirmation with
	// AlreadyConfirmedError.
	ConfirmPolicyStrict ConfirmPolicy = "strict"
)

// Intent is the processor-owned charge the storefront holds a reference to.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// IntentRequest carries the charge parameters. Amount is in minor currency
// units; OrderID travels as metadata so the confirmation can be correlated.
type IntentRequest struct {
	Amount   int64
	Currency string
	OrderID  string
}

// IntentStatus is the processor's view of an existing intent: its settlement
// status and the order it was created for.
type IntentStatus struct {
	ID      string
	Status  string
	OrderID string
}

// IntentStatusSucceeded is the processor status of a settled intent.
const IntentStatusSucceeded = "succeeded"

// Processor is the external payment processor boundary.
type Processor interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*IntentStatus, error)
}

// PaymentService binds orders to processor intents and applies payment
// confirmations to the ledger.
type PaymentService struct {
	store     OrderStore
	processor Processor
	notifier  Notifier
	policy    ConfirmPolicy
}

// NewPaymentService constructs PaymentService. notifier may be nil; an empty
// policy defaults to noop.
func NewPaymentService(store OrderStore, processor Processor, notifier Notifier, policy ConfirmPolicy) *PaymentService {
	if policy == "" {
		policy = ConfirmPolicyNoop
	}
	return &PaymentService{
		store:     store,
		processor: processor,
		notifier:  notifier,
		policy:    policy,
	}
}

// MinorUnits converts a decimal amount to integer minor currency units.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CreateIntent creates a processor intent for the order. The amount the
// caller wants to charge must equal the persisted order total; anything else
// is rejected before the processor is contacted. No lock is held across the
// processor call.
func (s *PaymentService) CreateIntent(ctx context.Context, orderID uuid.UUID, amount int64, currency string) (*Intent, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: orderID.String()}
		}
		return nil, err
	}

	expected := MinorUnits(order.Total)
	if amount != expected {
		log.Printf("[Payment] amount mismatch for order %s: got %d, expected %d (possible tampering)", orderID, amount, expected)
		return nil, &AmountMismatchError{OrderID: orderID.String(), Expected: expected, Got: amount}
	}

	if currency == "" {
		currency = order.Currency
	}

	intent, err := s.processor.CreateIntent(ctx, IntentRequest{
		Amount:   expected,
		Currency: currency,
		OrderID:  order.ID.String(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.store.SavePaymentRef(ctx, order.ID, intent.ID); err != nil {
		return nil, fmt.Errorf("save payment ref: %w", err)
	}

	return intent, nil
}

// Confirm records a payment the storefront client reports as completed. The
// reference is never taken on the caller's word: the intent is retrieved from
// the processor first, outside any lock, and the ledger moves only when the
// processor reports it succeeded for this exact order. A repeated
// confirmation never re-applies side effects; depending on policy it either
// no-ops or fails with AlreadyConfirmedError.
func (s *PaymentService) Confirm(ctx context.Context, orderID uuid.UUID, paymentRef string) (*models.Order, error) {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: orderID.String()}
		}
		return nil, err
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		if s.policy == ConfirmPolicyStrict {
			return nil, &AlreadyConfirmedError{OrderID: order.ID.String(), PaymentRef: paymentRef}
		}
		return order, nil
	}

	intent, err := s.processor.RetrieveIntent(ctx, paymentRef)
	if err != nil {
		return nil, err
	}
	if intent.Status != IntentStatusSucceeded {
		return nil, &ProcessorError{Op: "confirm", Err: fmt.Errorf("intent %s has status %q, not %s", paymentRef, intent.Status, IntentStatusSucceeded)}
	}
	if intent.OrderID != order.ID.String() {
		log.Printf("[Payment] intent %s is bound to order %s, not %s (possible tampering)", paymentRef, intent.OrderID, orderID)
		return nil, &ProcessorError{Op: "confirm", Err: fmt.Errorf("intent %s is not bound to order %s", paymentRef, orderID)}
	}

	return s.applyConfirmation(ctx, orderID, paymentRef)
}

// ConfirmFromWebhook records a confirmation the processor pushed itself. The
// webhook middleware has already authenticated the event signature, so no
// retrieval round-trip is made.
func (s *PaymentService) ConfirmFromWebhook(ctx context.Context, orderID uuid.UUID, paymentRef string) (*models.Order, error) {
	return s.applyConfirmation(ctx, orderID, paymentRef)
}

// applyConfirmation moves payment pending -> paid, stores the external
// reference and advances fulfillment pending -> processing, all under the
// store's per-order lock.
func (s *PaymentService) applyConfirmation(ctx context.Context, orderID uuid.UUID, paymentRef string) (*models.Order, error) {
	firstConfirmation := false

	order, err := s.store.MutateStatus(ctx, orderID, func(o *models.Order) error {
		if o.PaymentStatus == models.PaymentStatusPaid {
			if s.policy == ConfirmPolicyStrict {
				return &AlreadyConfirmedError{OrderID: o.ID.String(), PaymentRef: paymentRef}
			}
			return nil
		}

		if err := o.TransitionPaymentStatus(models.PaymentStatusPaid); err != nil {
			return err
		}
		if err := o.TransitionOrderStatus(models.OrderStatusProcessing); err != nil {
			return err
		}
		o.PaymentRef = paymentRef
		firstConfirmation = true
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: orderID.String()}
		}
		return nil, err
	}

	if firstConfirmation && s.notifier != nil {
		go s.notifyPaymentSuccess(*order)
	}

	return order, nil
}

func (s *PaymentService) notifyPaymentSuccess(order models.Order) {
	err := s.notifier.NotifyPaymentSuccess(PaymentSuccessNotification{
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		PaymentRef:  order.PaymentRef,
		Amount:      order.Total,
		Currency:    order.Currency,
	})
	if err != nil {
		log.Printf("[Payment] payment success notification failed for %s: %v", order.OrderNumber, err)
	}
}
