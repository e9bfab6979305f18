package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/aurum/internal/models"
	"github.com/example/aurum/internal/utils"
)

// OrderRepository is the gorm-backed order store.
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository constructs OrderRepository.
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists a new order with its line snapshots.
func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// GetByID loads an order with its items regardless of owner.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetForUser loads an order only when userID owns it; a foreign order is
// reported as gorm.ErrRecordNotFound.
func (r *OrderRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").
		First(&order, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID uuid.UUID, pg utils.Pagination) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// ListAll returns all orders for the admin view, newest first, optionally
// filtered by order status.
func (r *OrderRepository) ListAll(ctx context.Context, status string, pg utils.Pagination) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if status != "" {
		query = query.Where("order_status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	if err := query.Preload("Items").Preload("User").
		Order("placed_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// All loads the entire ledger with items for reporting.
func (r *OrderRepository) All(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).Preload("Items").
		Order("placed_at desc").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// SavePaymentRef stores the external payment intent reference.
func (r *OrderRepository) SavePaymentRef(ctx context.Context, id uuid.UUID, ref string) error {
	return r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("payment_ref", ref).Error
}

// MutateStatus runs fn on the order under SELECT ... FOR UPDATE, then
// persists the mutable fields. Concurrent mutations of the same order
// serialize on the row lock; when fn fails nothing is written. Callers must
// not reach out to external services from inside fn.
func (r *OrderRepository) MutateStatus(ctx context.Context, id uuid.UUID, fn func(*models.Order) error) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", id).Error; err != nil {
			return err
		}

		if err := fn(&order); err != nil {
			return err
		}

		return tx.Model(&models.Order{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"payment_status":  order.PaymentStatus,
				"order_status":    order.OrderStatus,
				"payment_ref":     order.PaymentRef,
				"tracking_number": order.TrackingNumber,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ProductRepository is the read-only catalog collaborator.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository constructs ProductRepository.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID loads a product by id.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
