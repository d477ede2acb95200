package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the slim catalog reference the transactional core reads. The
// full catalog record (attributes, media, taxonomy) lives outside this
// service; only pricing/shipping fields are projected here.
type Product struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name             string    `gorm:"column:name;not null"`
	WeightGrams      int       `gorm:"column:weight_grams;not null;default:0"`
	ShippingEligible bool      `gorm:"column:shipping_eligible;not null;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
