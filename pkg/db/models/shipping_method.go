package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingMethod prices a delivery option: a flat base plus a per-kilogram
// component, waived entirely once the order subtotal reaches the
// free-shipping threshold (when one is configured).
type ShippingMethod struct {
	ID                    uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code                  string           `gorm:"column:code;not null;uniqueIndex"`
	Name                  string           `gorm:"column:name;not null"`
	BaseCost              decimal.Decimal  `gorm:"column:base_cost;type:numeric(12,2);not null"`
	PerKgCost             decimal.Decimal  `gorm:"column:per_kg_cost;type:numeric(12,2);not null"`
	FreeShippingThreshold *decimal.Decimal `gorm:"column:free_shipping_threshold;type:numeric(12,2)"`
	CreatedAt             time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
