package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/example/aurum/internal/models"
	"github.com/example/aurum/internal/pricing"
	"github.com/example/aurum/internal/utils"
)

// OrderStore is the persistence boundary for the order ledger. MutateStatus
// must serialize concurrent mutations of the same order (row lock or
// equivalent) and persist only when fn returns nil.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, pg utils.Pagination) ([]models.Order, int64, error)
	ListAll(ctx context.Context, status string, pg utils.Pagination) ([]models.Order, int64, error)
	All(ctx context.Context) ([]models.Order, error)
	SavePaymentRef(ctx context.Context, id uuid.UUID, ref string) error
	MutateStatus(ctx context.Context, id uuid.UUID, fn func(*models.Order) error) (*models.Order, error)
}

// ProductCatalog is the read-only catalog collaborator.
type ProductCatalog interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Notifier pushes admin-facing notifications about ledger events.
type Notifier interface {
	NotifyNewOrder(n OrderNotification) error
	NotifyPaymentSuccess(n PaymentSuccessNotification) error
}

// OrderService owns order creation and the administrative status lifecycle.
type OrderService struct {
	store    OrderStore
	catalog  ProductCatalog
	notifier Notifier
	pricing  pricing.Config
	currency string
}

// NewOrderService constructs OrderService. notifier may be nil.
func NewOrderService(store OrderStore, catalog ProductCatalog, notifier Notifier, pricingCfg pricing.Config, currency string) *OrderService {
	if currency == "" {
		currency = "USD"
	}
	return &OrderService{
		store:    store,
		catalog:  catalog,
		notifier: notifier,
		pricing:  pricingCfg,
		currency: currency,
	}
}

// ShippingAddress is the address snapshot taken at checkout.
type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

// CreateOrderInput is the validated checkout payload. Any totals the client
// computed are deliberately absent: pricing is recomputed server-side.
type CreateOrderInput struct {
	UserID        uuid.UUID
	Lines         []pricing.CartLine
	Address       ShippingAddress
	PaymentMethod string
	CouponCode    string
}

// Create prices the cart, snapshots the lines and persists the order with
// both status fields at pending.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	breakdown, err := pricing.Compute(in.Lines, in.CouponCode, s.pricing)
	if err != nil {
		return nil, err
	}

	order := models.Order{
		UserID:          in.UserID,
		OrderNumber:     generateOrderNumber(),
		PlacedAt:        time.Now(),
		PaymentStatus:   models.PaymentStatusPending,
		OrderStatus:     models.OrderStatusPending,
		Subtotal:        breakdown.Subtotal,
		Discount:        breakdown.Discount,
		Tax:             breakdown.Tax,
		Shipping:        breakdown.Shipping,
		Total:           breakdown.Total,
		Currency:        s.currency,
		CouponCode:      in.CouponCode,
		PaymentMethod:   in.PaymentMethod,
		ShippingStreet:  in.Address.Street,
		ShippingCity:    in.Address.City,
		ShippingState:   in.Address.State,
		ShippingZipCode: in.Address.ZipCode,
		ShippingCountry: in.Address.Country,
	}

	for _, line := range in.Lines {
		item := models.OrderItem{
			ProductName:  line.ProductName,
			VariantLabel: line.VariantLabel,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			LineTotal:    line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
		}

		if id, err := uuid.Parse(line.ProductID); err == nil {
			item.ProductID = &id
			if s.catalog != nil {
				if product, err := s.catalog.GetByID(ctx, id); err == nil {
					item.ProductName = product.Name
				}
			}
		}

		order.Items = append(order.Items, item)
	}

	if err := s.store.Create(ctx, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if s.notifier != nil {
		go s.notifyNewOrder(order)
	}

	return &order, nil
}

func (s *OrderService) notifyNewOrder(order models.Order) {
	items := make([]OrderItemNotification, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemNotification{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    item.UnitPrice,
		})
	}

	err := s.notifier.NotifyNewOrder(OrderNotification{
		OrderID:       order.ID.String(),
		OrderNumber:   order.OrderNumber,
		Items:         items,
		Total:         order.Total,
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
		Status:        string(order.OrderStatus),
	})
	if err != nil {
		log.Printf("[Order] new order notification failed for %s: %v", order.OrderNumber, err)
	}
}

// Get returns the order only when the requesting user owns it. Missing and
// foreign orders are indistinguishable to the caller.
func (s *OrderService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	order, err := s.store.GetForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: id.String()}
		}
		return nil, err
	}
	return order, nil
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID, pg utils.Pagination) ([]models.Order, int64, error) {
	return s.store.ListByUser(ctx, userID, pg)
}

// ListAll returns every order for administrative callers, newest first,
// optionally filtered by order status.
func (s *OrderService) ListAll(ctx context.Context, status string, pg utils.Pagination) ([]models.Order, int64, error) {
	return s.store.ListAll(ctx, status, pg)
}

// UpdateStatus applies an administrative fulfillment transition under the
// store's per-order lock. An invalid transition leaves the order untouched.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, next models.OrderStatus, trackingNumber string) (*models.Order, error) {
	order, err := s.store.MutateStatus(ctx, id, func(o *models.Order) error {
		if err := o.TransitionOrderStatus(next); err != nil {
			return err
		}
		if trackingNumber != "" {
			o.TrackingNumber = trackingNumber
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: id.String()}
		}
		return nil, err
	}
	return order, nil
}

func generateOrderNumber() string {
	return fmt.Sprintf("#%d", time.Now().UnixNano()%1000000000)
}
