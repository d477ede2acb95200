package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopcore-io/shopcore-backend/pkg/enums"
)

// StockReservation is a revocable hold on inventory. The row's ID doubles
// as the reservation token handed back to callers. A reservation may span
// several warehouses; Lines records the split.
type StockReservation struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	ProductID       uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index"`
	Qty             int                     `gorm:"column:qty;not null"`
	Status          enums.ReservationStatus `gorm:"column:status;type:reservation_status;not null;default:'active'"`
	DestinationHint *string                 `gorm:"column:destination_hint"`
	ExpiresAt       time.Time               `gorm:"column:expires_at;not null;index"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
	Lines           []StockReservationLine  `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
}

// StockReservationLine is the per-warehouse share of a reservation.
type StockReservationLine struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ReservationID uuid.UUID `gorm:"column:reservation_id;type:uuid;not null;index"`
	WarehouseID   uuid.UUID `gorm:"column:warehouse_id;type:uuid;not null"`
	Qty           int       `gorm:"column:qty;not null"`
}
