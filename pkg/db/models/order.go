package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopcore-io/shopcore-backend/pkg/enums"
)

// Order aggregates the financial totals of one checkout. GrandTotal always
// equals ItemsSubtotal + ShippingTotal + TaxTotal - DiscountTotal; the
// aggregator asserts that before the row is ever written, and Validate
// re-checks it on read paths that care.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Status        enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	ItemsSubtotal decimal.Decimal   `gorm:"column:items_subtotal;type:numeric(12,2);not null"`
	ShippingTotal decimal.Decimal   `gorm:"column:shipping_total;type:numeric(12,2);not null"`
	TaxTotal      decimal.Decimal   `gorm:"column:tax_total;type:numeric(12,2);not null"`
	DiscountTotal decimal.Decimal   `gorm:"column:discount_total;type:numeric(12,2);not null"`
	GrandTotal    decimal.Decimal   `gorm:"column:grand_total;type:numeric(12,2);not null"`
	Currency      enums.Currency    `gorm:"column:currency;type:text;not null;default:'USD'"`
	PlacedAt      *time.Time        `gorm:"column:placed_at"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// Validate checks the arithmetic and placement invariants.
func (o Order) Validate() bool {
	for _, component := range []decimal.Decimal{
		o.ItemsSubtotal, o.ShippingTotal, o.TaxTotal, o.DiscountTotal, o.GrandTotal,
	} {
		if component.Sign() < 0 {
			return false
		}
	}
	expected := o.ItemsSubtotal.Add(o.ShippingTotal).Add(o.TaxTotal).Sub(o.DiscountTotal)
	if !o.GrandTotal.Equal(expected) {
		return false
	}
	if o.Status == enums.OrderStatusPending {
		return o.PlacedAt == nil
	}
	return o.PlacedAt != nil
}
