package inventory

import (
	"sort"

	"github.com/google/uuid"

	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
)

// Allocation is one warehouse's share of a reservation plan.
type Allocation struct {
	WarehouseID uuid.UUID
	Qty         int
}

// AllocationStrategy splits a requested quantity across warehouses. It
// returns nil when the records cannot satisfy the request; it must never
// over-allocate a record's available quantity.
type AllocationStrategy func(records []models.InventoryRecord, qty int) []Allocation

// GreedyLargestFirst fills from the warehouse with the most available
// stock downwards until the request is satisfied. Ties break on warehouse
// id so the plan is deterministic.
func GreedyLargestFirst(records []models.InventoryRecord, qty int) []Allocation {
	if qty <= 0 {
		return nil
	}

	sorted := make([]models.InventoryRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].AvailableQty != sorted[j].AvailableQty {
			return sorted[i].AvailableQty > sorted[j].AvailableQty
		}
		return sorted[i].WarehouseID.String() < sorted[j].WarehouseID.String()
	})

	remaining := qty
	var plan []Allocation
	for _, record := range sorted {
		if remaining == 0 {
			break
		}
		if record.AvailableQty <= 0 {
			continue
		}
		take := record.AvailableQty
		if take > remaining {
			take = remaining
		}
		plan = append(plan, Allocation{WarehouseID: record.WarehouseID, Qty: take})
		remaining -= take
	}
	if remaining > 0 {
		return nil
	}
	return plan
}
