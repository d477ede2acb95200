package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord tracks available/reserved counts for one product in one
// warehouse. Rows are mutated only through ledger operations; the pair of
// counters is the unit of mutual exclusion for the whole system.
type InventoryRecord struct {
	ProductID         uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	WarehouseID       uuid.UUID `gorm:"column:warehouse_id;type:uuid;primaryKey"`
	AvailableQty      int       `gorm:"column:available_qty;not null;default:0"`
	ReservedQty       int       `gorm:"column:reserved_qty;not null;default:0"`
	LowStockThreshold int       `gorm:"column:low_stock_threshold;not null;default:0"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalQty is derived, never stored.
func (r InventoryRecord) TotalQty() int {
	return r.AvailableQty + r.ReservedQty
}

// LowStock reports whether available stock has fallen to the threshold.
func (r InventoryRecord) LowStock() bool {
	return r.LowStockThreshold > 0 && r.AvailableQty <= r.LowStockThreshold
}
