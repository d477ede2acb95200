package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	"github.com/shopcore-io/shopcore-backend/pkg/enums"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
)

// Repository wraps the row-level inventory operations. Counter mutations
// are guarded UPDATEs: the WHERE clause re-checks the precondition so a
// row changed since it was read simply reports zero rows instead of going
// negative.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.InventoryRecord, error)
	FindRecord(ctx context.Context, productID, warehouseID uuid.UUID) (*models.InventoryRecord, error)
	UpsertRecord(ctx context.Context, record *models.InventoryRecord) error

	MoveAvailableToReserved(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (bool, error)
	MoveReservedToAvailable(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (bool, error)
	ConsumeReserved(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (bool, error)
	AdjustAvailable(ctx context.Context, productID, warehouseID uuid.UUID, delta int) (bool, error)

	CreateMovement(ctx context.Context, movement *models.StockMovement) error

	CreateReservation(ctx context.Context, reservation *models.StockReservation) error
	FindReservation(ctx context.Context, id uuid.UUID) (*models.StockReservation, error)
	TransitionReservation(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (bool, error)
	ListExpiredReservations(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListForProduct(ctx context.Context, productID uuid.UUID) ([]models.InventoryRecord, error) {
	var records []models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("available_qty DESC, warehouse_id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) FindRecord(ctx context.Context, productID, warehouseID uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) UpsertRecord(ctx context.Context, record *models.InventoryRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *repository) MoveAvailableToReserved(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET available_qty = available_qty - ?,
			reserved_qty = reserved_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND warehouse_id = ? AND available_qty >= ?
	`, qty, qty, productID, warehouseID, qty)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MoveReservedToAvailable(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET available_qty = available_qty + ?,
			reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND warehouse_id = ? AND reserved_qty >= ?
	`, qty, qty, productID, warehouseID, qty)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ConsumeReserved(ctx context.Context, productID, warehouseID uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET reserved_qty = reserved_qty - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND warehouse_id = ? AND reserved_qty >= ?
	`, qty, productID, warehouseID, qty)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "commit stock")
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) AdjustAvailable(ctx context.Context, productID, warehouseID uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE inventory_records
		SET available_qty = available_qty + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE product_id = ? AND warehouse_id = ? AND available_qty + ? >= 0
	`, delta, productID, warehouseID, delta)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust stock")
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateMovement(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) CreateReservation(ctx context.Context, reservation *models.StockReservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) FindReservation(ctx context.Context, id uuid.UUID) (*models.StockReservation, error) {
	var reservation models.StockReservation
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", id).
		First(&reservation).Error
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) TransitionReservation(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.StockReservation{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "transition reservation")
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListExpiredReservations(ctx context.Context, cutoff time.Time, limit int) ([]models.StockReservation, error) {
	var reservations []models.StockReservation
	q := r.db.WithContext(ctx).
		Preload("Lines").
		Where("status = ?", enums.ReservationStatusActive).
		Where("expires_at <= ?", cutoff).
		Order("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}
