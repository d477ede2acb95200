package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	"github.com/shopcore-io/shopcore-backend/pkg/enums"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
)

const (
	defaultReservationTTL = 30 * time.Minute
	defaultMaxRetries     = 3
	defaultBackoff        = 25 * time.Millisecond
	expiredSweepBatch     = 100

	// Reference types stamped on stock movements.
	refTypeReservation = "reservation"
	refTypeExpiry      = "reservation_expiry"
	refTypeAdjustment  = "adjustment"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Ledger is the only mutation surface for inventory counters. Every
// operation is atomic with respect to the records it touches and appends
// stock movements for the audit trail.
//
// The *InTx variants run inside a caller-owned transaction so order
// orchestration can couple stock effects to its own state changes.
type Ledger interface {
	Reserve(ctx context.Context, input ReserveInput) (*models.StockReservation, error)
	ReserveInTx(ctx context.Context, tx *gorm.DB, input ReserveInput) (*models.StockReservation, error)
	Release(ctx context.Context, token uuid.UUID) error
	ReleaseInTx(ctx context.Context, tx *gorm.DB, token uuid.UUID) error
	Commit(ctx context.Context, token uuid.UUID) error
	CommitInTx(ctx context.Context, tx *gorm.DB, token uuid.UUID) error
	Adjust(ctx context.Context, input AdjustInput) (*models.InventoryRecord, error)
	ReleaseExpired(ctx context.Context, now time.Time) (int, error)
	Levels(ctx context.Context, productID uuid.UUID) ([]StockLevel, error)
}

// ReserveInput describes a stock hold request.
type ReserveInput struct {
	ProductID       uuid.UUID
	Qty             int
	DestinationHint *string
	TTL             time.Duration
}

// AdjustInput describes an operator stock correction.
type AdjustInput struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Delta       int
	Reason      string
}

// StockLevel is a read-model row for one product/warehouse pair.
type StockLevel struct {
	Record   models.InventoryRecord
	LowStock bool
}

// ServiceParams configure the ledger.
type ServiceParams struct {
	Repo           Repository
	Tx             txRunner
	Logger         *logger.Logger
	Allocate       AllocationStrategy
	ReservationTTL time.Duration
	MaxRetries     int
	Backoff        time.Duration
}

type service struct {
	repo       Repository
	tx         txRunner
	logg       *logger.Logger
	allocate   AllocationStrategy
	ttl        time.Duration
	maxRetries int
	backoff    time.Duration
	now        func() time.Time
}

// NewService builds the inventory ledger.
func NewService(params ServiceParams) (Ledger, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Allocate == nil {
		params.Allocate = GreedyLargestFirst
	}
	if params.ReservationTTL <= 0 {
		params.ReservationTTL = defaultReservationTTL
	}
	if params.MaxRetries <= 0 {
		params.MaxRetries = defaultMaxRetries
	}
	if params.Backoff <= 0 {
		params.Backoff = defaultBackoff
	}
	return &service{
		repo:       params.Repo,
		tx:         params.Tx,
		logg:       params.Logger,
		allocate:   params.Allocate,
		ttl:        params.ReservationTTL,
		maxRetries: params.MaxRetries,
		backoff:    params.Backoff,
		now:        time.Now,
	}, nil
}

func (s *service) Reserve(ctx context.Context, input ReserveInput) (*models.StockReservation, error) {
	var reservation *models.StockReservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		reservation, err = s.ReserveInTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *service) ReserveInTx(ctx context.Context, tx *gorm.DB, input ReserveInput) (*models.StockReservation, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required for reserve")
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}

	repo := s.repo.WithTx(tx)
	var reservation *models.StockReservation

	backoff := retry.WithMaxRetries(uint64(s.maxRetries), retry.NewExponential(s.backoff))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		savepoint := fmt.Sprintf("reserve_attempt_%d", attempt)
		tx.SavePoint(savepoint)

		res, err := s.reserveOnce(ctx, repo, input, ttl)
		if err != nil {
			tx.RollbackTo(savepoint)
			if pkgerrors.HasCode(err, pkgerrors.CodeConcurrencyConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		reservation = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// reserveOnce plans an allocation from a snapshot of the product's records
// and applies it with guarded updates. A guard miss means another writer
// got there first; the caller rolls the attempt back and retries against a
// fresh snapshot.
func (s *service) reserveOnce(ctx context.Context, repo Repository, input ReserveInput, ttl time.Duration) (*models.StockReservation, error) {
	records, err := repo.ListForProduct(ctx, input.ProductID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory records")
	}

	available := 0
	for _, record := range records {
		available += record.AvailableQty
	}
	if available < input.Qty {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock across warehouses").
			WithDetails(map[string]any{
				"product_id": input.ProductID,
				"requested":  input.Qty,
				"available":  available,
			})
	}

	plan := s.allocate(records, input.Qty)
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "allocation could not satisfy the request")
	}

	reservation := &models.StockReservation{
		ID:              uuid.New(),
		ProductID:       input.ProductID,
		Qty:             input.Qty,
		Status:          enums.ReservationStatusActive,
		DestinationHint: input.DestinationHint,
		ExpiresAt:       s.now().Add(ttl),
	}

	for _, alloc := range plan {
		ok, err := repo.MoveAvailableToReserved(ctx, input.ProductID, alloc.WarehouseID, alloc.Qty)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "inventory row changed during reserve")
		}

		record, err := repo.FindRecord(ctx, input.ProductID, alloc.WarehouseID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory record")
		}
		movement := &models.StockMovement{
			ProductID:      input.ProductID,
			WarehouseID:    alloc.WarehouseID,
			Type:           enums.MovementTypeReserve,
			QuantityChange: -alloc.Qty,
			QuantityBefore: record.AvailableQty + alloc.Qty,
			QuantityAfter:  record.AvailableQty,
			ReferenceType:  refTypeReservation,
			ReferenceID:    &reservation.ID,
		}
		if err := repo.CreateMovement(ctx, movement); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
		}

		reservation.Lines = append(reservation.Lines, models.StockReservationLine{
			ReservationID: reservation.ID,
			WarehouseID:   alloc.WarehouseID,
			Qty:           alloc.Qty,
		})
	}

	if err := repo.CreateReservation(ctx, reservation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
	}
	return reservation, nil
}

func (s *service) Release(ctx context.Context, token uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ReleaseInTx(ctx, tx, token)
	})
}

func (s *service) ReleaseInTx(ctx context.Context, tx *gorm.DB, token uuid.UUID) error {
	return s.restoreReservation(ctx, tx, token, enums.ReservationStatusReleased, refTypeReservation)
}

func (s *service) Commit(ctx context.Context, token uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.CommitInTx(ctx, tx, token)
	})
}

func (s *service) CommitInTx(ctx context.Context, tx *gorm.DB, token uuid.UUID) error {
	if token == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation token required")
	}
	repo := s.repo.WithTx(tx)

	moved, err := repo.TransitionReservation(ctx, token, enums.ReservationStatusActive, enums.ReservationStatusCommitted)
	if err != nil {
		return err
	}
	if !moved {
		reservation, err := s.loadReservation(ctx, repo, token)
		if err != nil {
			return err
		}
		if reservation.Status == enums.ReservationStatusCommitted {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is no longer active").
			WithDetails(map[string]any{"status": reservation.Status})
	}

	reservation, err := s.loadReservation(ctx, repo, token)
	if err != nil {
		return err
	}
	for _, line := range reservation.Lines {
		ok, err := repo.ConsumeReserved(ctx, reservation.ProductID, line.WarehouseID, line.Qty)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvariant, "reserved quantity below reservation line").
				WithDetails(map[string]any{"reservation_id": token, "warehouse_id": line.WarehouseID})
		}

		record, err := repo.FindRecord(ctx, reservation.ProductID, line.WarehouseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory record")
		}
		movement := &models.StockMovement{
			ProductID:      reservation.ProductID,
			WarehouseID:    line.WarehouseID,
			Type:           enums.MovementTypeCommit,
			QuantityChange: -line.Qty,
			QuantityBefore: record.ReservedQty + line.Qty,
			QuantityAfter:  record.ReservedQty,
			ReferenceType:  refTypeReservation,
			ReferenceID:    &reservation.ID,
		}
		if err := repo.CreateMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
		}
	}
	return nil
}

// restoreReservation moves a reservation's quantities back to available,
// marking it with the given terminal status. Releasing a reservation that
// is already released or expired is a no-op.
func (s *service) restoreReservation(ctx context.Context, tx *gorm.DB, token uuid.UUID, target enums.ReservationStatus, referenceType string) error {
	if token == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation token required")
	}
	repo := s.repo.WithTx(tx)

	moved, err := repo.TransitionReservation(ctx, token, enums.ReservationStatusActive, target)
	if err != nil {
		return err
	}
	if !moved {
		reservation, err := s.loadReservation(ctx, repo, token)
		if err != nil {
			return err
		}
		switch reservation.Status {
		case enums.ReservationStatusReleased, enums.ReservationStatusExpired:
			return nil
		case enums.ReservationStatusCommitted:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "committed reservation cannot be released")
		default:
			return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "reservation changed during release")
		}
	}

	reservation, err := s.loadReservation(ctx, repo, token)
	if err != nil {
		return err
	}
	for _, line := range reservation.Lines {
		ok, err := repo.MoveReservedToAvailable(ctx, reservation.ProductID, line.WarehouseID, line.Qty)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvariant, "reserved quantity below reservation line").
				WithDetails(map[string]any{"reservation_id": token, "warehouse_id": line.WarehouseID})
		}

		record, err := repo.FindRecord(ctx, reservation.ProductID, line.WarehouseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory record")
		}
		movement := &models.StockMovement{
			ProductID:      reservation.ProductID,
			WarehouseID:    line.WarehouseID,
			Type:           enums.MovementTypeRelease,
			QuantityChange: line.Qty,
			QuantityBefore: record.AvailableQty - line.Qty,
			QuantityAfter:  record.AvailableQty,
			ReferenceType:  referenceType,
			ReferenceID:    &reservation.ID,
		}
		if err := repo.CreateMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
		}
	}
	return nil
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.InventoryRecord, error) {
	if input.ProductID == uuid.Nil || input.WarehouseID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product and warehouse ids required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta must not be zero")
	}

	var result *models.InventoryRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindRecord(ctx, input.ProductID, input.WarehouseID); err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory record")
			}
			if input.Delta < 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			seed := &models.InventoryRecord{ProductID: input.ProductID, WarehouseID: input.WarehouseID}
			if err := repo.UpsertRecord(ctx, seed); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory record")
			}
		}

		ok, err := repo.AdjustAvailable(ctx, input.ProductID, input.WarehouseID, input.Delta)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "adjustment would drive available stock negative")
		}

		record, err := repo.FindRecord(ctx, input.ProductID, input.WarehouseID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload inventory record")
		}
		movement := &models.StockMovement{
			ProductID:      input.ProductID,
			WarehouseID:    input.WarehouseID,
			Type:           enums.MovementTypeAdjustment,
			QuantityChange: input.Delta,
			QuantityBefore: record.AvailableQty - input.Delta,
			QuantityAfter:  record.AvailableQty,
			ReferenceType:  refTypeAdjustment,
		}
		if err := repo.CreateMovement(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReleaseExpired reclaims abandoned holds. Each reservation is restored in
// its own transaction so one poisoned row cannot wedge the whole sweep.
func (s *service) ReleaseExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.repo.ListExpiredReservations(ctx, now, expiredSweepBatch)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list expired reservations")
	}

	released := 0
	var errs error
	for _, reservation := range expired {
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.restoreReservation(ctx, tx, reservation.ID, enums.ReservationStatusExpired, refTypeExpiry)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("reservation %s: %w", reservation.ID, err))
			continue
		}
		released++
		if s.logg != nil {
			logCtx := s.logg.WithReservationID(ctx, reservation.ID.String())
			s.logg.Info(logCtx, "expired reservation released")
		}
	}
	return released, errs
}

func (s *service) Levels(ctx context.Context, productID uuid.UUID) ([]StockLevel, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	records, err := s.repo.ListForProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load inventory records")
	}
	levels := make([]StockLevel, 0, len(records))
	for _, record := range records {
		levels = append(levels, StockLevel{Record: record, LowStock: record.LowStock()})
	}
	return levels, nil
}

func (s *service) loadReservation(ctx context.Context, repo Repository, token uuid.UUID) (*models.StockReservation, error) {
	reservation, err := repo.FindReservation(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	return reservation, nil
}
