package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shopcore-io/shopcore-backend/pkg/enums"
)

// WebhookEvent records a processed gateway notification. The unique
// (reference, status) pair is what makes duplicate at-least-once deliveries
// collapse to a single state change: the insert races inside the same
// transaction as the payment transition.
type WebhookEvent struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Reference  string              `gorm:"column:reference;not null;uniqueIndex:idx_webhook_events_ref_status"`
	Status     enums.GatewayStatus `gorm:"column:status;type:gateway_status;not null;uniqueIndex:idx_webhook_events_ref_status"`
	Amount     decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	PaidAt     *time.Time          `gorm:"column:paid_at"`
	ReceivedAt time.Time           `gorm:"column:received_at;autoCreateTime"`
}
