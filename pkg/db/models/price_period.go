package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricePeriod fixes a product's sale price over a closed date interval.
// EffectiveTo nil means open-ended. Intervals for the same product never
// overlap; the pricing service enforces that in the write path.
type PricePeriod struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID        `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_price_periods_product_from"`
	SalePrice      decimal.Decimal  `gorm:"column:sale_price;type:numeric(12,2);not null"`
	CompareAtPrice *decimal.Decimal `gorm:"column:compare_at_price;type:numeric(12,2)"`
	CostPrice      *decimal.Decimal `gorm:"column:cost_price;type:numeric(12,2)"`
	EffectiveFrom  time.Time        `gorm:"column:effective_from;not null;uniqueIndex:idx_price_periods_product_from"`
	EffectiveTo    *time.Time       `gorm:"column:effective_to"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// Contains reports whether the period's interval covers the given instant.
func (p PricePeriod) Contains(at time.Time) bool {
	if at.Before(p.EffectiveFrom) {
		return false
	}
	if p.EffectiveTo == nil {
		return true
	}
	return !at.After(*p.EffectiveTo)
}

// Overlaps reports whether two periods share at least one instant, treating
// a nil EffectiveTo as extending forever.
func (p PricePeriod) Overlaps(other PricePeriod) bool {
	if p.EffectiveTo != nil && other.EffectiveFrom.After(*p.EffectiveTo) {
		return false
	}
	if other.EffectiveTo != nil && p.EffectiveFrom.After(*other.EffectiveTo) {
		return false
	}
	return true
}
