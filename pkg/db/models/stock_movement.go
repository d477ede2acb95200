package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopcore-io/shopcore-backend/pkg/enums"
)

// StockMovement is one entry in the append-only inventory audit log. Rows
// are created on every ledger mutation and never updated or deleted.
type StockMovement struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	ProductID      uuid.UUID          `gorm:"column:product_id;type:uuid;not null;index"`
	WarehouseID    uuid.UUID          `gorm:"column:warehouse_id;type:uuid;not null;index"`
	Type           enums.MovementType `gorm:"column:type;type:movement_type;not null"`
	QuantityChange int                `gorm:"column:quantity_change;not null"`
	QuantityBefore int                `gorm:"column:quantity_before;not null"`
	QuantityAfter  int                `gorm:"column:quantity_after;not null"`
	ReferenceType  string             `gorm:"column:reference_type;not null"`
	ReferenceID    *uuid.UUID         `gorm:"column:reference_id;type:uuid"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
}
