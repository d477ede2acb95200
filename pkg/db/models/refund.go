package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopcore-io/shopcore-backend/pkg/enums"
)

// Refund applies part of a payment back to the buyer. The sum of applied
// refunds for a payment never exceeds the payment amount; the refund
// processor enforces that inside its write transaction.
type Refund struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID uuid.UUID          `gorm:"column:payment_id;type:uuid;not null;index"`
	Amount    decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Status    enums.RefundStatus `gorm:"column:status;type:refund_status;not null;default:'pending'"`
	Reason    *string            `gorm:"column:reason"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
