package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
)

func record(warehouseID uuid.UUID, available int) models.InventoryRecord {
	return models.InventoryRecord{
		ProductID:    uuid.New(),
		WarehouseID:  warehouseID,
		AvailableQty: available,
	}
}

func TestGreedyLargestFirstFillsBiggestWarehouseFirst(t *testing.T) {
	t.Parallel()

	big := uuid.New()
	small := uuid.New()
	records := []models.InventoryRecord{record(small, 4), record(big, 10)}

	plan := GreedyLargestFirst(records, 12)
	assert.Equal(t, []Allocation{
		{WarehouseID: big, Qty: 10},
		{WarehouseID: small, Qty: 2},
	}, plan)
}

func TestGreedyLargestFirstSingleWarehouseWhenEnough(t *testing.T) {
	t.Parallel()

	big := uuid.New()
	small := uuid.New()
	records := []models.InventoryRecord{record(small, 4), record(big, 10)}

	plan := GreedyLargestFirst(records, 7)
	assert.Equal(t, []Allocation{{WarehouseID: big, Qty: 7}}, plan)
}

func TestGreedyLargestFirstNilWhenUnsatisfiable(t *testing.T) {
	t.Parallel()

	records := []models.InventoryRecord{record(uuid.New(), 3), record(uuid.New(), 4)}

	assert.Nil(t, GreedyLargestFirst(records, 8))
	assert.Nil(t, GreedyLargestFirst(nil, 1))
	assert.Nil(t, GreedyLargestFirst(records, 0))
}

func TestGreedyLargestFirstSkipsEmptyRecords(t *testing.T) {
	t.Parallel()

	empty := uuid.New()
	stocked := uuid.New()
	records := []models.InventoryRecord{record(empty, 0), record(stocked, 5)}

	plan := GreedyLargestFirst(records, 5)
	assert.Equal(t, []Allocation{{WarehouseID: stocked, Qty: 5}}, plan)
}
