package services

import "fmt"

// NotFoundError covers both a genuinely missing order and an order the
// requesting user does not own, so existence is never leaked to non-owners.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// AmountMismatchError means the caller tried to charge something other than
// the server-computed order total. Treated as a tampering signal and logged.
type AmountMismatchError struct {
	OrderID  string
	Expected int64
	Got      int64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount %d does not match order %s total %d", e.Got, e.OrderID, e.Expected)
}

// AlreadyConfirmedError is returned for a duplicate confirmation when the
// strict policy is configured.
type AlreadyConfirmedError struct {
	OrderID    string
	PaymentRef string
}

func (e *AlreadyConfirmedError) Error() string {
	return fmt.Sprintf("order %s payment already confirmed", e.OrderID)
}

// ProcessorError wraps an opaque failure from the external payment processor.
// The ledger is never mutated when one is returned; retrying is the caller's
// decision.
type ProcessorError struct {
	Op     string
	Status int
	Err    error
}

func (e *ProcessorError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("payment processor %s failed: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("payment processor %s failed: %v", e.Op, e.Err)
}

func (e *ProcessorError) Unwrap() error { return e.Err }
