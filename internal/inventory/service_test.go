package inventory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/pkg/config"
	"github.com/shopcore-io/shopcore-backend/pkg/db"
	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	"github.com/shopcore-io/shopcore-backend/pkg/enums"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/migrate"
)

func setupLedgerTest(t *testing.T) (*db.Client, Ledger) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	client, err := db.New(context.Background(), config.DBConfig{DSN: dsn}, true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.DB().AutoMigrate(migrate.AllModels()...))

	ledger, err := NewService(ServiceParams{
		Repo: NewRepository(client.DB()),
		Tx:   client,
	})
	require.NoError(t, err)
	return client, ledger
}

func seedRecord(t *testing.T, client *db.Client, productID, warehouseID uuid.UUID, available int) {
	t.Helper()
	require.NoError(t, client.DB().Create(&models.InventoryRecord{
		ProductID:    productID,
		WarehouseID:  warehouseID,
		AvailableQty: available,
	}).Error)
}

func loadRecord(t *testing.T, client *db.Client, productID, warehouseID uuid.UUID) models.InventoryRecord {
	t.Helper()
	var rec models.InventoryRecord
	require.NoError(t, client.DB().
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&rec).Error)
	return rec
}

func loadMovements(t *testing.T, client *db.Client, productID uuid.UUID, movementType enums.MovementType) []models.StockMovement {
	t.Helper()
	var movements []models.StockMovement
	require.NoError(t, client.DB().
		Where("product_id = ? AND type = ?", productID, movementType).
		Order("created_at ASC").
		Find(&movements).Error)
	return movements
}

func TestReserveSplitsAcrossWarehousesLargestFirst(t *testing.T) {
	t.Parallel()

	client, ledger := setupLedgerTest(t)
	ctx := context.Background()
	productID := uuid.New()
	big := uuid.New()
	small := uuid.New()
	seedRecord(t, client, productID, big, 10)
	seedRecord(t, client, productID, small, 4)

	reservation, err := ledger.Reserve(ctx, ReserveInput{ProductID: productID, Qty: 12})
	require.NoError(t, err)
	require.Len(t, reservation.Lines, 2)
	assert.Equal(t, enums.ReservationStatusActive, reservation.Status)

	bigRec := loadRecord(t, client, productID, big)
	assert.Equal(t, 0, bigRec.AvailableQty)
	assert.Equal(t, 10, bigRec.ReservedQty)

	smallRec := loadRecord(t, client, productID, small)
	assert.Equal(t, 2, smallRec.AvailableQty)
	assert.Equal(t, 2, smallRec.ReservedQty)

	movements := loadMovements(t, client, productID, enums.MovementTypeReserve)
	require.Len(t, movements, 2)
	for _, m := range movements {
		assert.Negative(t, m.QuantityChange)
		assert.Equal(t, m.QuantityBefore+m.QuantityChange, m.QuantityAfter)
		require.NotNil(t, m.ReferenceID)
		assert.Equal(t, reservation.ID, *m.ReferenceID)
	}
}

func TestReserveIsAllOrNothing(t *testing.T) {
	t.Parallel()

	client, ledger := setupLedgerTest(t)
	ctx := context.Background()
	productID := uuid.New()
	first := uuid.New()
	second := uuid.New()
	seedRecord(t, client, productID, first, 3)
	seedRecord(t, client, productID, second, 4)

	_, err := ledger.Reserve(ctx, ReserveInput{ProductID: productID, Qty: 8})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	assert.Equal(t, 3, loadRecord(t, client, productID, first).AvailableQty)
	assert.Equal(t, 4, loadRecord(t, client, productID, second).AvailableQty)
	assert.Empty(t, loadMovements(t, client, productID, enums.MovementTypeReserve))

	var count int64
	require.NoError(t, client.DB().
		Model(&models.StockReservation{}).
		Where("product_id = ?", productID).
		Count(&count).Error)
	assert.Zero(t, count)
}

func TestReserveDepletesStockSequentially(t *testing.T) {
	t.Parallel()

	client, ledger := setupLedgerTest(t)
	ctx := context.Background()
	productID := uuid.New()
	seedRecord(t, client, productID, uuid.New(), 1)

	_, err := ledger.Reserve(ctx, ReserveInput{ProductID: productID, Qty: 1})
	require.NoError(t, err)

	_, err = ledger.Reserve(ctx, ReserveInput{ProductID: productID, Qty: 1})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
}

// staleListState feeds doctored snapshots to ListForProduct so a planned
// allocation can miss its guarded UPDATE, the way a concurrent writer would
// make it miss.
type staleListState struct {
	queue [][]models.InventoryRecord
	calls int
}

type staleListRepo struct {
	Repository
	state *staleListState
}

func (r *staleListRepo) WithTx(tx *gorm.DB) Repository {
	return &staleListRepo{Repository: r.Repository.WithTx(tx), state: r.state}
}

func (r *staleListRepo) ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.InventoryRecord, error) {
	r.state.calls++
	if len(r.state.queue) > 0 {
		records := r.state.queue[0]
		r.state.queue = r.state.queue[1:]
		return records, nil
	}
	return r.Repository.ListForProduct(ctx, productID)
}

func TestReserveRetriesGuardMissAndSucceeds(t *testing.T) {
	t.Parallel()

	client, _ := setupLedgerTest(t)
	ctx := context.Background()
	productID := uuid.New()
	big := uuid.New()
	small := uuid.New()
	seedRecord(t, client, productID, big, 5)
	seedRecord(t, client, productID, small, 1)

	// First snapshot swaps the quantities, so the plan targets the small
	// warehouse and the guarded UPDATE misses.
	state := &staleListState{queue: [][]models.InventoryRecord{{
		{ProductID: productID, WarehouseID: small, AvailableQty: 4},
		{ProductID: productID, WarehouseID: big, AvailableQty: 2},
	}}}
	ledger, err := NewService(ServiceParams{
		Repo:    &staleListRepo{Repository: NewRepository(client.DB()), state: state},
		Tx:      client,
		Backoff: time.Millisecond,
	})
	require.NoError(t, err)

	reservation, err := ledger.Reserve(ctx, ReserveInput{ProductID: productID, Qty: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, state.calls)

	require.Len(t, reservation.Lines, 1)
	assert.Equal(t, big, reservation.Lines[0].WarehouseID)

	bigRec := loadRecord(t, client, productID, big)
	assert.Equal(t, 2, bigRec.AvailableQty)
	assert.Equal(t, 3, bigRec.ReservedQty)
	smallRec := loadRecord(t, client, productID, small)
	assert.Equal(t, 1, smallRec.AvailableQty)
	assert.Equal(t, 0, smallRec.ReservedQty)
}

func TestReserveContendedLastUnitFailsCleanAfterRetry(t *testing.T) {
	t.Parallel()

	client, _ := setupLedgerTest(t)
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()
	seedRecord(t, client, productID, warehouseID, 0)

	// The snapshot still shows the last unit another buyer already took.
	state := &staleListState{queue: [][]models.InventoryRecord{{
		{ProductID: productID, WarehouseID: warehouseID, AvailableQty: 1},
	}}}
	ledger, err := NewService(ServiceParams{
		Repo:    &staleListRepo{Repository: NewRepository(client.DB()), state: state},
		Tx:      client,
		Backoff: time.Millisecond,
	})
	require.NoError(t, err)

	_, err = ledger.Reserve(ctx, ReserveInput{ProductID: productID, Qty: 1})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 2, state.calls)

	rec := loadRecord(t, client, productID, warehouseID)
	assert.Equal(t, 0, rec.AvailableQty)
	assert.Equal(t, 0, rec.ReservedQty)
	assert.Empty(t, loadMovements(t, client, productID, enums.MovementTypeReserve))
}

func TestReserveSurfacesConflictWhenRetriesExhaust(t *testing.T) {
	t.Parallel()

	client, _ := setupLedgerTest(t)
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()
	seedRecord(t, client, productID, warehouseID, 0)

	phantom := []models.InventoryRecord{
		{ProductID: productID, WarehouseID: warehouseID, AvailableQty: 1},
	}
	state := &staleListState{queue: [][]models.InventoryRecord{phantom, phantom, phantom, phantom}}
	ledger, err := NewService(ServiceParams{
		Repo:       &staleListRepo{Repository: NewRepository(client.DB()), state: state},
		Tx:         client,
		MaxRetries: 2,
		Backoff:    time.Millisecond,
	})
	require.NoError(t, err)

	_, err = ledger.Reserve(ctx, ReserveInput{ProductID: productID, Qty: 1})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConcurrencyConflict))
	assert.Equal(t, 3, state.calls)
}

func TestReleaseRestoresExactQuantities(t *testing.T) {
	t.Parallel()

	client, ledger := setupLedgerTest(t)
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()
	seedRecord(t, client, productID, warehouseID, 10)

	reservation, err := ledger.Reserve(ctx, ReserveInput{ProductID: productID, Qty: 5})
	require.NoError(t, err)

	require.NoError(t, ledger.Release(ctx, reservation.ID))

	rec := loadRecord(t, client, productID, warehouseID)
	assert.Equal(t, 10, rec.AvailableQty)
	assert.Equal(t, 0, rec.ReservedQty)

	releases := loadMovements(t, client, productID, enums.MovementTypeRelease)
	require.Len(t, releases, 1)
	assert.Equal(t, 5, releases[0].QuantityChange)

	var stored models.StockReservation
	require.NoError(t, client.DB().First(&stored, "id = ?", reservation.ID).Error)
	assert.Equal(t, enums.ReservationStatusReleased, stored.Status)

	// Releasing again is a no-op, not an error.
	require.NoError(t, ledger.Release(ctx, reservation.ID))
	assert.Len(t, loadMovements(t, client, productID, enums.MovementTypeRelease), 1)
}

func TestCommitConsumesReservedStock(t *testing.T) {
	t.Parallel()

	client, ledger := setupLedgerTest(t)
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()
	seedRecord(t, client, productID, warehouseID, 10)

	reservation, err := ledger.Reserve(ctx, ReserveInput{ProductID: productID, Qty: 4})
	require.NoError(t, err)

	require.NoError(t, ledger.Commit(ctx, reservation.ID))

	rec := loadRecord(t, client, productID, warehouseID)
	assert.Equal(t, 6, rec.AvailableQty)
	assert.Equal(t, 0, rec.ReservedQty)

	commits := loadMovements(t, client, productID, enums.MovementTypeCommit)
	require.Len(t, commits, 1)
	assert.Equal(t, -4, commits[0].QuantityChange)

	// Committing twice is a no-op.
	require.NoError(t, ledger.Commit(ctx, reservation.ID))
	assert.Len(t, loadMovements(t, client, productID, enums.MovementTypeCommit), 1)

	// A committed reservation can no longer be released.
	err = ledger.Release(ctx, reservation.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestReleaseExpiredRestoresOnlyActiveHolds(t *testing.T) {
	t.Parallel()

	client, ledger := setupLedgerTest(t)
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()
	seedRecord(t, client, productID, warehouseID, 10)

	expired, err := ledger.Reserve(ctx, ReserveInput{ProductID: productID, Qty: 3})
	require.NoError(t, err)
	committed, err := ledger.Reserve(ctx, ReserveInput{ProductID: productID, Qty: 2})
	require.NoError(t, err)
	require.NoError(t, ledger.Commit(ctx, committed.ID))

	released, err := ledger.ReleaseExpired(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	rec := loadRecord(t, client, productID, warehouseID)
	assert.Equal(t, 8, rec.AvailableQty)
	assert.Equal(t, 0, rec.ReservedQty)

	var stored models.StockReservation
	require.NoError(t, client.DB().First(&stored, "id = ?", expired.ID).Error)
	assert.Equal(t, enums.ReservationStatusExpired, stored.Status)

	// Nothing left to sweep.
	released, err = ledger.ReleaseExpired(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, released)
}

func TestAdjustSeedsAndGuardsRecords(t *testing.T) {
	t.Parallel()

	client, ledger := setupLedgerTest(t)
	ctx := context.Background()
	productID := uuid.New()
	warehouseID := uuid.New()

	// Negative delta on a missing record is a not-found, not a silent seed.
	_, err := ledger.Adjust(ctx, AdjustInput{ProductID: productID, WarehouseID: warehouseID, Delta: -1, Reason: "damage"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	record, err := ledger.Adjust(ctx, AdjustInput{ProductID: productID, WarehouseID: warehouseID, Delta: 5, Reason: "intake"})
	require.NoError(t, err)
	assert.Equal(t, 5, record.AvailableQty)

	_, err = ledger.Adjust(ctx, AdjustInput{ProductID: productID, WarehouseID: warehouseID, Delta: -10, Reason: "damage"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, 5, loadRecord(t, client, productID, warehouseID).AvailableQty)

	record, err = ledger.Adjust(ctx, AdjustInput{ProductID: productID, WarehouseID: warehouseID, Delta: -2, Reason: "damage"})
	require.NoError(t, err)
	assert.Equal(t, 3, record.AvailableQty)

	adjustments := loadMovements(t, client, productID, enums.MovementTypeAdjustment)
	assert.Len(t, adjustments, 2)
}

func TestLevelsFlagsLowStock(t *testing.T) {
	t.Parallel()

	client, ledger := setupLedgerTest(t)
	ctx := context.Background()
	productID := uuid.New()

	require.NoError(t, client.DB().Create(&models.InventoryRecord{
		ProductID:         productID,
		WarehouseID:       uuid.New(),
		AvailableQty:      2,
		LowStockThreshold: 3,
	}).Error)
	require.NoError(t, client.DB().Create(&models.InventoryRecord{
		ProductID:         productID,
		WarehouseID:       uuid.New(),
		AvailableQty:      9,
		LowStockThreshold: 3,
	}).Error)

	levels, err := ledger.Levels(ctx, productID)
	require.NoError(t, err)
	require.Len(t, levels, 2)

	// ListForProduct orders by available quantity descending.
	assert.False(t, levels[0].LowStock)
	assert.True(t, levels[1].LowStock)
}
