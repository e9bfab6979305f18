package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/aurum/internal/models"
	"github.com/example/aurum/internal/reports"
	"github.com/example/aurum/internal/services"
	"github.com/example/aurum/internal/utils"
)

// AdminHandler manages admin-only order and reporting endpoints.
// Authorization policy beyond the bearer identity is enforced upstream by the
// access-control collaborator.
type AdminHandler struct {
	db     *gorm.DB
	orders *services.OrderService
	store  services.OrderStore
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB, orders *services.OrderService, store services.OrderStore) *AdminHandler {
	return &AdminHandler{db: db, orders: orders, store: store}
}

// ListAllOrders returns all orders with pagination and status filtering.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	status := c.Query("status")
	if status != "" {
		if _, ok := models.ParseOrderStatus(status); !ok {
			return fiber.NewError(fiber.StatusBadRequest, "invalid status")
		}
	}

	orders, total, err := h.orders.ListAll(c.Context(), status, pg)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

type updateStatusRequest struct {
	OrderStatus    string `json:"order_status"`
	TrackingNumber string `json:"tracking_number"`
}

// UpdateOrderStatus applies a fulfillment transition to an order.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	next, ok := models.ParseOrderStatus(req.OrderStatus)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "invalid order_status")
	}

	order, err := h.orders.UpdateStatus(c.Context(), id, next, req.TrackingNumber)
	if err != nil {
		var nfErr *services.NotFoundError
		if errors.As(err, &nfErr) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		var invalid *models.InvalidTransitionError
		if errors.As(err, &invalid) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, invalid.Error())
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}

// Reports returns the full reporting payload: totals, monthly revenue
// series, best sellers and the status histogram.
func (h *AdminHandler) Reports(c *fiber.Ctx) error {
	orders, err := h.store.All(c.Context())
	if err != nil {
		return err
	}

	var totalProducts int64
	if err := h.db.Model(&models.Product{}).Count(&totalProducts).Error; err != nil {
		return err
	}

	var totalCustomers int64
	if err := h.db.Model(&models.User{}).Count(&totalCustomers).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_products":   totalProducts,
			"total_customers":  totalCustomers,
			"total_orders":     len(orders),
			"total_revenue":    reports.TotalRevenue(orders),
			"monthly_revenue":  reports.MonthlySeries(orders, 12),
			"top_products":     reports.TopProducts(orders, 10),
			"orders_by_status": reports.CountByStatus(orders),
		},
	})
}

// DashboardStats returns the lighter aggregate set for the admin landing
// page, computed in SQL.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	var totalUsers int64
	if err := h.db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		return err
	}

	var totalOrders int64
	if err := h.db.Model(&models.Order{}).Count(&totalOrders).Error; err != nil {
		return err
	}

	type statusCount struct {
		OrderStatus string `json:"order_status"`
		Count       int64  `json:"count"`
	}
	var statusCounts []statusCount
	if err := h.db.Model(&models.Order{}).
		Select("order_status, count(*) as count").
		Group("order_status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}

	ordersByStatus := make(map[string]int64)
	for _, sc := range statusCounts {
		ordersByStatus[sc.OrderStatus] = sc.Count
	}

	var totalRevenue float64
	if err := h.db.Model(&models.Order{}).
		Select("COALESCE(SUM(total), 0)").
		Scan(&totalRevenue).Error; err != nil {
		return err
	}

	var todayRevenue float64
	if err := h.db.Model(&models.Order{}).
		Where("placed_at::date = CURRENT_DATE").
		Select("COALESCE(SUM(total), 0)").
		Scan(&todayRevenue).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_users":      totalUsers,
			"total_orders":     totalOrders,
			"total_revenue":    totalRevenue,
			"today_revenue":    todayRevenue,
			"orders_by_status": ordersByStatus,
		},
	})
}

// RecentOrders returns the most recent 5 orders for the dashboard.
func (h *AdminHandler) RecentOrders(c *fiber.Ctx) error {
	var orders []models.Order
	if err := h.db.Preload("Items").Preload("User").
		Order("placed_at desc").
		Limit(5).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": orders})
}
