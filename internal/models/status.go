package models

import "fmt"

// OrderStatus tracks fulfillment progress of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus tracks the payment side of an order. Both paid and failed are
// terminal: a failed payment requires a fresh order and intent.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// InvalidTransitionError reports a rejected status transition. The order is
// left unchanged when it is returned.
type InvalidTransitionError struct {
	Field string
	From  string
	To    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Field, e.From, e.To)
}

var orderStatusEdges = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

var paymentStatusEdges = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusPaid:    {},
	PaymentStatusFailed:  {},
}

// ParseOrderStatus validates a status value from an untrusted request body.
func ParseOrderStatus(value string) (OrderStatus, bool) {
	s := OrderStatus(value)
	_, ok := orderStatusEdges[s]
	return s, ok
}

// TransitionOrderStatus moves the order along an allowed fulfillment edge.
// Any state past pending (other than cancelled) requires the payment to have
// settled first.
func (o *Order) TransitionOrderStatus(next OrderStatus) error {
	allowed := false
	for _, edge := range orderStatusEdges[o.OrderStatus] {
		if edge == next {
			allowed = true
			break
		}
	}
	if !allowed {
		return &InvalidTransitionError{Field: "order_status", From: string(o.OrderStatus), To: string(next)}
	}

	if next != OrderStatusCancelled && o.PaymentStatus != PaymentStatusPaid {
		return &InvalidTransitionError{Field: "order_status", From: string(o.OrderStatus), To: string(next)}
	}

	o.OrderStatus = next
	return nil
}

// TransitionPaymentStatus moves the payment field along an allowed edge.
func (o *Order) TransitionPaymentStatus(next PaymentStatus) error {
	for _, edge := range paymentStatusEdges[o.PaymentStatus] {
		if edge == next {
			o.PaymentStatus = next
			return nil
		}
	}
	return &InvalidTransitionError{Field: "payment_status", From: string(o.PaymentStatus), To: string(next)}
}
