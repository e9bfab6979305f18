package reports

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/aurum/internal/models"
)

func fixtureOrder(total string, placed time.Time, status models.OrderStatus, items ...models.OrderItem) models.Order {
	return models.Order{
		PlacedAt:    placed,
		OrderStatus: status,
		Total:       decimal.RequireFromString(total),
		Items:       items,
	}
}

func fixtureItem(productID uuid.UUID, name string, qty int, price string) models.OrderItem {
	return models.OrderItem{
		ProductID:   &productID,
		ProductName: name,
		Quantity:    qty,
		UnitPrice:   decimal.RequireFromString(price),
	}
}

func TestEmptyLedger(t *testing.T) {
	assert.True(t, TotalRevenue(nil).IsZero())
	assert.Empty(t, MonthlySeries(nil, 12))
	assert.Empty(t, TopProducts(nil, 10))
	assert.Empty(t, CountByStatus(nil))
}

func TestTotalRevenue_IncludesAllStatuses(t *testing.T) {
	now := time.Now()
	orders := []models.Order{
		fixtureOrder("100.00", now, models.OrderStatusDelivered),
		fixtureOrder("50.50", now, models.OrderStatusCancelled),
		fixtureOrder("9.49", now, models.OrderStatusPending),
	}

	assert.Equal(t, "159.99", TotalRevenue(orders).StringFixed(2))
}

func TestMonthlySeries_GroupsAndSorts(t *testing.T) {
	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC)
	dec := time.Date(2025, time.December, 24, 0, 0, 0, 0, time.UTC)

	orders := []models.Order{
		fixtureOrder("10.00", jan, models.OrderStatusPending),
		fixtureOrder("20.00", jan, models.OrderStatusPending),
		fixtureOrder("5.00", feb, models.OrderStatusPending),
		fixtureOrder("7.00", dec, models.OrderStatusPending),
	}

	series := MonthlySeries(orders, 12)
	require.Len(t, series, 3)

	assert.Equal(t, 2026, series[0].Year)
	assert.Equal(t, time.February, series[0].Month)
	assert.Equal(t, 1, series[0].Orders)

	assert.Equal(t, time.January, series[1].Month)
	assert.Equal(t, "30.00", series[1].Revenue.StringFixed(2))
	assert.Equal(t, 2, series[1].Orders)

	assert.Equal(t, 2025, series[2].Year)
	assert.Equal(t, time.December, series[2].Month)
}

func TestMonthlySeries_CappedWindow(t *testing.T) {
	var orders []models.Order
	start := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		orders = append(orders, fixtureOrder("1.00", start.AddDate(0, i, 0), models.OrderStatusPending))
	}

	series := MonthlySeries(orders, 12)
	require.Len(t, series, 12)
	// Most recent bucket first.
	assert.Equal(t, time.August, series[0].Month)
	assert.Equal(t, 2025, series[0].Year)
}

func TestTopProducts_RanksByQuantity(t *testing.T) {
	ring := uuid.New()
	necklace := uuid.New()
	bracelet := uuid.New()
	now := time.Now()

	orders := []models.Order{
		fixtureOrder("0", now, models.OrderStatusDelivered,
			fixtureItem(ring, "Gold Ring", 2, "120.00"),
			fixtureItem(necklace, "Pearl Necklace", 1, "340.00"),
		),
		fixtureOrder("0", now, models.OrderStatusProcessing,
			fixtureItem(ring, "Gold Ring", 3, "120.00"),
			fixtureItem(bracelet, "Silver Bracelet", 4, "45.00"),
		),
	}

	top := TopProducts(orders, 2)
	require.Len(t, top, 2)

	assert.Equal(t, "Gold Ring", top[0].ProductName)
	assert.Equal(t, 5, top[0].QuantitySold)
	assert.Equal(t, "600.00", top[0].Revenue.StringFixed(2))

	assert.Equal(t, "Silver Bracelet", top[1].ProductName)
	assert.Equal(t, 4, top[1].QuantitySold)
}

func TestCountByStatus(t *testing.T) {
	now := time.Now()
	orders := []models.Order{
		fixtureOrder("1", now, models.OrderStatusPending),
		fixtureOrder("1", now, models.OrderStatusPending),
		fixtureOrder("1", now, models.OrderStatusShipped),
	}

	counts := CountByStatus(orders)
	assert.Equal(t, int64(2), counts[models.OrderStatusPending])
	assert.Equal(t, int64(1), counts[models.OrderStatusShipped])
	assert.Equal(t, int64(0), counts[models.OrderStatusCancelled])
}
