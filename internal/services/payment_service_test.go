package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/aurum/internal/models"
	"github.com/example/aurum/internal/pricing"
	"github.com/example/aurum/internal/reports"
)

type mockProcessor struct {
	intent *Intent
	err    error
	calls  int
	last   IntentRequest

	status        *IntentStatus
	retrieveErr   error
	retrieveCalls int
	lastRetrieved string
}

func (m *mockProcessor) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	m.calls++
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.intent, nil
}

func (m *mockProcessor) RetrieveIntent(_ context.Context, id string) (*IntentStatus, error) {
	m.retrieveCalls++
	m.lastRetrieved = id
	if m.retrieveErr != nil {
		return nil, m.retrieveErr
	}
	return m.status, nil
}

// succeededProcessor reports ref as a settled intent bound to order.
func succeededProcessor(order *models.Order, ref string) *mockProcessor {
	return &mockProcessor{status: &IntentStatus{
		ID:      ref,
		Status:  IntentStatusSucceeded,
		OrderID: order.ID.String(),
	}}
}

func placeTestOrder(t *testing.T, store *mockStore) *models.Order {
	t.Helper()
	svc := newOrderService(store, &mockCatalog{})
	order, err := svc.Create(context.Background(), CreateOrderInput{
		UserID: uuid.New(),
		Lines:  []pricing.CartLine{cartLine(uuid.NewString(), 3, "20.00")},
	})
	require.NoError(t, err)
	return order
}

func TestCreateIntent_AmountMustMatchOrderTotal(t *testing.T) {
	store := newMockStore()
	order := placeTestOrder(t, store) // total 64.80, i.e. 6480 cents
	processor := &mockProcessor{intent: &Intent{ID: "pi_1", ClientSecret: "secret"}}
	svc := NewPaymentService(store, processor, nil, ConfirmPolicyNoop)

	_, err := svc.CreateIntent(context.Background(), order.ID, 9999, "USD")

	var mismatch *AmountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(6480), mismatch.Expected)
	assert.Equal(t, int64(9999), mismatch.Got)
	assert.Zero(t, processor.calls, "processor must not be contacted on mismatch")
}

func TestCreateIntent_BindsOrderAndStoresRef(t *testing.T) {
	store := newMockStore()
	order := placeTestOrder(t, store)
	processor := &mockProcessor{intent: &Intent{ID: "pi_1", ClientSecret: "secret"}}
	svc := NewPaymentService(store, processor, nil, ConfirmPolicyNoop)

	intent, err := svc.CreateIntent(context.Background(), order.ID, 6480, "")
	require.NoError(t, err)

	assert.Equal(t, "secret", intent.ClientSecret)
	assert.Equal(t, order.ID.String(), processor.last.OrderID)
	assert.Equal(t, int64(6480), processor.last.Amount)
	assert.Equal(t, "USD", processor.last.Currency)

	stored, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_1", stored.PaymentRef)
}

func TestCreateIntent_ProcessorFailureLeavesLedgerUntouched(t *testing.T) {
	store := newMockStore()
	order := placeTestOrder(t, store)
	processor := &mockProcessor{err: &ProcessorError{Op: "create intent", Err: errors.New("timeout")}}
	svc := NewPaymentService(store, processor, nil, ConfirmPolicyNoop)

	_, err := svc.CreateIntent(context.Background(), order.ID, 6480, "USD")

	var procErr *ProcessorError
	require.ErrorAs(t, err, &procErr)

	stored, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PaymentRef)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestCreateIntent_UnknownOrder(t *testing.T) {
	svc := NewPaymentService(newMockStore(), &mockProcessor{}, nil, ConfirmPolicyNoop)

	var nfErr *NotFoundError
	_, err := svc.CreateIntent(context.Background(), uuid.New(), 100, "USD")
	require.ErrorAs(t, err, &nfErr)
}

func TestConfirm_FirstConfirmationAdvancesBothStatuses(t *testing.T) {
	store := newMockStore()
	order := placeTestOrder(t, store)
	notifier := &mockNotifier{}
	processor := succeededProcessor(order, "pi_done")
	svc := NewPaymentService(store, processor, notifier, ConfirmPolicyNoop)

	confirmed, err := svc.Confirm(context.Background(), order.ID, "pi_done")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPaid, confirmed.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, confirmed.OrderStatus)
	assert.Equal(t, "pi_done", confirmed.PaymentRef)
	assert.Equal(t, "pi_done", processor.lastRetrieved)

	assert.Eventually(t, func() bool {
		return notifier.paymentSuccessCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestConfirm_DuplicateIsIdempotentUnderNoopPolicy(t *testing.T) {
	store := newMockStore()
	order := placeTestOrder(t, store)
	notifier := &mockNotifier{}
	processor := succeededProcessor(order, "pi_done")
	svc := NewPaymentService(store, processor, notifier, ConfirmPolicyNoop)

	first, err := svc.Confirm(context.Background(), order.ID, "pi_done")
	require.NoError(t, err)

	before, err := store.All(context.Background())
	require.NoError(t, err)
	revenueBefore := reports.TotalRevenue(before)

	// Same reference, then a different one; neither may double-apply.
	for _, ref := range []string{"pi_done", "pi_other"} {
		again, err := svc.Confirm(context.Background(), order.ID, ref)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPaid, again.PaymentStatus)
		assert.Equal(t, models.OrderStatusProcessing, again.OrderStatus)
		assert.Equal(t, first.PaymentRef, again.PaymentRef)
	}

	after, err := store.All(context.Background())
	require.NoError(t, err)
	assert.True(t, revenueBefore.Equal(reports.TotalRevenue(after)))
	assert.Equal(t, 1, processor.retrieveCalls, "duplicates settle without a processor round-trip")

	assert.Eventually(t, func() bool {
		return notifier.paymentSuccessCount() == 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, notifier.paymentSuccessCount(), "duplicate confirmation must not re-notify")
}

func TestConfirm_DuplicateFailsUnderStrictPolicy(t *testing.T) {
	store := newMockStore()
	order := placeTestOrder(t, store)
	svc := NewPaymentService(store, succeededProcessor(order, "pi_done"), nil, ConfirmPolicyStrict)

	_, err := svc.Confirm(context.Background(), order.ID, "pi_done")
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), order.ID, "pi_done")
	var dupErr *AlreadyConfirmedError
	require.ErrorAs(t, err, &dupErr)

	// Ledger state survives the rejection.
	stored, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, "pi_done", stored.PaymentRef)
}

func TestConfirm_FailedPaymentIsTerminal(t *testing.T) {
	store := newMockStore()
	order := placeTestOrder(t, store)
	svc := NewPaymentService(store, succeededProcessor(order, "pi_late"), nil, ConfirmPolicyNoop)

	_, err := store.MutateStatus(context.Background(), order.ID, func(o *models.Order) error {
		return o.TransitionPaymentStatus(models.PaymentStatusFailed)
	})
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), order.ID, "pi_late")
	var invalid *models.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
}

func TestConfirm_UnknownOrder(t *testing.T) {
	processor := &mockProcessor{}
	svc := NewPaymentService(newMockStore(), processor, nil, ConfirmPolicyNoop)

	var nfErr *NotFoundError
	_, err := svc.Confirm(context.Background(), uuid.New(), "pi_x")
	require.ErrorAs(t, err, &nfErr)
	assert.Zero(t, processor.retrieveCalls)
}

func TestConfirm_FabricatedReferenceNeverMarksPaid(t *testing.T) {
	store := newMockStore()
	order := placeTestOrder(t, store)
	processor := &mockProcessor{retrieveErr: &ProcessorError{Op: "retrieve intent", Status: 404, Err: errors.New("no such payment_intent")}}
	svc := NewPaymentService(store, processor, nil, ConfirmPolicyNoop)

	_, err := svc.Confirm(context.Background(), order.ID, "pi_fabricated")

	var procErr *ProcessorError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 1, processor.retrieveCalls)

	stored, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, stored.OrderStatus)
	assert.Empty(t, stored.PaymentRef)
}

func TestConfirm_UnsettledIntentLeavesLedgerUntouched(t *testing.T) {
	store := newMockStore()
	order := placeTestOrder(t, store)
	processor := &mockProcessor{status: &IntentStatus{
		ID:      "pi_open",
		Status:  "requires_payment_method",
		OrderID: order.ID.String(),
	}}
	svc := NewPaymentService(store, processor, nil, ConfirmPolicyNoop)

	_, err := svc.Confirm(context.Background(), order.ID, "pi_open")

	var procErr *ProcessorError
	require.ErrorAs(t, err, &procErr)

	stored, err := store.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, stored.OrderStatus)
}

func TestConfirm_IntentBoundToAnotherOrderIsRejected(t *testing.T) {
	store := newMockStore()
	victim := placeTestOrder(t, store)
	other := placeTestOrder(t, store)
	// The intent settled, but for a different order.
	svc := NewPaymentService(store, succeededProcessor(other, "pi_other"), nil, ConfirmPolicyNoop)

	_, err := svc.Confirm(context.Background(), victim.ID, "pi_other")

	var procErr *ProcessorError
	require.ErrorAs(t, err, &procErr)

	stored, err := store.GetByID(context.Background(), victim.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
}

func TestConfirmFromWebhook_TrustsAuthenticatedEvent(t *testing.T) {
	store := newMockStore()
	order := placeTestOrder(t, store)
	// Retrieval would fail; the signed event is authoritative on its own.
	processor := &mockProcessor{retrieveErr: &ProcessorError{Op: "retrieve intent", Err: errors.New("unreachable")}}
	svc := NewPaymentService(store, processor, nil, ConfirmPolicyNoop)

	confirmed, err := svc.ConfirmFromWebhook(context.Background(), order.ID, "pi_event")
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusPaid, confirmed.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, confirmed.OrderStatus)
	assert.Zero(t, processor.retrieveCalls)
}

func TestConcurrentConfirmAndCancelStayConsistent(t *testing.T) {
	for i := 0; i < 25; i++ {
		store := newMockStore()
		order := placeTestOrder(t, store)
		payments := NewPaymentService(store, succeededProcessor(order, "pi_race"), nil, ConfirmPolicyNoop)
		orders := newOrderService(store, &mockCatalog{})

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = payments.Confirm(context.Background(), order.ID, "pi_race")
		}()
		go func() {
			defer wg.Done()
			_, _ = orders.UpdateStatus(context.Background(), order.ID, models.OrderStatusCancelled, "")
		}()
		wg.Wait()

		stored, err := store.GetByID(context.Background(), order.ID)
		require.NoError(t, err)

		switch stored.OrderStatus {
		case models.OrderStatusProcessing:
			assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
		case models.OrderStatusCancelled:
			// Cancellation landed first (payment stays pending) or after
			// the confirmation applied (paid order cancelled).
			assert.Contains(t, []models.PaymentStatus{models.PaymentStatusPending, models.PaymentStatusPaid}, stored.PaymentStatus)
		default:
			t.Fatalf("unexpected end state %s/%s", stored.PaymentStatus, stored.OrderStatus)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"58.80":  5880,
		"42.39":  4239,
		"0.00":   0,
		"100":    10000,
		"199.99": 19999,
	}
	for in, want := range cases {
		assert.Equal(t, want, MinorUnits(decimal.RequireFromString(in)))
	}
}
