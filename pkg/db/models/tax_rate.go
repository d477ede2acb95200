package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRate maps a shipping jurisdiction to its applicable rate, expressed as
// a fraction (0.0800 for 8%).
type TaxRate struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Jurisdiction string          `gorm:"column:jurisdiction;not null;uniqueIndex"`
	Rate         decimal.Decimal `gorm:"column:rate;type:numeric(8,4);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
