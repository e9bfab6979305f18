package models

import (
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is the catalog read model. The order flow only reads it to snapshot
// the name and validate the reference; it never mutates catalog state, and
// stock is not decremented when an order is placed (tracked externally).
type Product struct {
	BaseModel
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `gorm:"index" json:"category"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2)" json:"price"`
	Currency    string          `json:"currency"`
	Material    string          `json:"material"`
	Gemstone    string          `json:"gemstone"`
	Images      pq.StringArray  `gorm:"type:text[]" json:"images"`
	InStock     bool            `json:"in_stock"`
	Stock       int             `json:"stock"`
	Featured    bool            `json:"featured"`
}
