package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopcore-io/shopcore-backend/pkg/enums"
)

// Payment tracks settlement for exactly one order. GatewayReference is the
// identifier the external gateway uses for this payment in its webhook
// events. PaidAt is set once, at the transition into completed, and never
// cleared afterwards.
type Payment struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	GatewayReference string              `gorm:"column:gateway_reference;not null;uniqueIndex"`
	Amount           decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency         enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status           enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	PaidAt           *time.Time          `gorm:"column:paid_at"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// Validate checks the paid_at/status pairing invariant.
func (p Payment) Validate() bool {
	if p.Amount.Sign() <= 0 {
		return false
	}
	if p.Status.RequiresPaidAt() {
		return p.PaidAt != nil
	}
	return p.PaidAt == nil
}
