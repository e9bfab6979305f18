// Package reports derives administrative aggregates from the order ledger.
// Every function is a pure read over the order slice the caller fetched; an
// empty ledger yields zero values, never an error.
package reports

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/aurum/internal/models"
)

// MonthlyRevenue is one calendar-month bucket of the revenue series.
type MonthlyRevenue struct {
	Year    int             `json:"year"`
	Month   time.Month      `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int             `json:"orders"`
}

// ProductSales is one row of the top-products report.
type ProductSales struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	QuantitySold int             `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// TotalRevenue sums order totals over the whole ledger. Cancelled orders are
// included: this is gross booked revenue, exclusion is a caller policy.
func TotalRevenue(orders []models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Total)
	}
	return total
}

// MonthlySeries buckets revenue and order counts by the year and month an
// order was placed, most recent first, capped to limit buckets.
func MonthlySeries(orders []models.Order, limit int) []MonthlyRevenue {
	type key struct {
		year  int
		month time.Month
	}

	buckets := make(map[key]*MonthlyRevenue)
	for _, o := range orders {
		k := key{year: o.PlacedAt.Year(), month: o.PlacedAt.Month()}
		b, ok := buckets[k]
		if !ok {
			b = &MonthlyRevenue{Year: k.year, Month: k.month, Revenue: decimal.Zero}
			buckets[k] = b
		}
		b.Revenue = b.Revenue.Add(o.Total)
		b.Orders++
	}

	series := make([]MonthlyRevenue, 0, len(buckets))
	for _, b := range buckets {
		series = append(series, *b)
	}

	sort.Slice(series, func(i, j int) bool {
		if series[i].Year != series[j].Year {
			return series[i].Year > series[j].Year
		}
		return series[i].Month > series[j].Month
	})

	if limit > 0 && len(series) > limit {
		series = series[:limit]
	}
	return series
}

// TopProducts expands order lines across the ledger, groups them by product
// and returns the limit best sellers by quantity. Revenue per product is
// quantity times the snapshotted unit price.
func TopProducts(orders []models.Order, limit int) []ProductSales {
	byProduct := make(map[string]*ProductSales)
	for _, o := range orders {
		for _, item := range o.Items {
			id := item.ProductName
			if item.ProductID != nil {
				id = item.ProductID.String()
			}

			p, ok := byProduct[id]
			if !ok {
				p = &ProductSales{ProductID: id, ProductName: item.ProductName, Revenue: decimal.Zero}
				byProduct[id] = p
			}
			p.QuantitySold += item.Quantity
			p.Revenue = p.Revenue.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}

	ranking := make([]ProductSales, 0, len(byProduct))
	for _, p := range byProduct {
		ranking = append(ranking, *p)
	}

	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].QuantitySold != ranking[j].QuantitySold {
			return ranking[i].QuantitySold > ranking[j].QuantitySold
		}
		return ranking[i].Revenue.GreaterThan(ranking[j].Revenue)
	})

	if limit > 0 && len(ranking) > limit {
		ranking = ranking[:limit]
	}
	return ranking
}

// CountByStatus returns the order count per fulfillment status.
func CountByStatus(orders []models.Order) map[models.OrderStatus]int64 {
	counts := make(map[models.OrderStatus]int64)
	for _, o := range orders {
		counts[o.OrderStatus]++
	}
	return counts
}
