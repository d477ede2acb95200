package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service resolves effective prices and manages price periods. The read
// path is pure; all overlap validation happens in the write path so
// resolution never has to disambiguate.
type Service interface {
	Resolve(ctx context.Context, productID uuid.UUID, asOf time.Time) (*models.PricePeriod, error)
	AddPeriod(ctx context.Context, input PeriodInput) (*models.PricePeriod, error)
	UpdatePeriod(ctx context.Context, periodID uuid.UUID, input PeriodInput) (*models.PricePeriod, error)
	RemovePeriod(ctx context.Context, periodID uuid.UUID) error
	ListPeriods(ctx context.Context, productID uuid.UUID) ([]models.PricePeriod, error)
}

// PeriodInput carries the fields a caller may set on a price period.
type PeriodInput struct {
	ProductID      uuid.UUID
	SalePrice      decimal.Decimal
	CompareAtPrice *decimal.Decimal
	CostPrice      *decimal.Decimal
	EffectiveFrom  time.Time
	EffectiveTo    *time.Time
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// NewService wires a pricing service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

func (s *service) Resolve(ctx context.Context, productID uuid.UUID, asOf time.Time) (*models.PricePeriod, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	period, err := s.repo.FindActive(ctx, productID, asOf)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNoActivePrice, "no price period covers the requested date").
				WithDetails(map[string]any{"product_id": productID, "asof": asOf.Format(time.RFC3339)})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load active price period")
	}
	return period, nil
}

func (s *service) AddPeriod(ctx context.Context, input PeriodInput) (*models.PricePeriod, error) {
	if err := validatePeriodInput(input); err != nil {
		return nil, err
	}

	candidate := &models.PricePeriod{
		ProductID:      input.ProductID,
		SalePrice:      input.SalePrice,
		CompareAtPrice: input.CompareAtPrice,
		CostPrice:      input.CostPrice,
		EffectiveFrom:  input.EffectiveFrom,
		EffectiveTo:    input.EffectiveTo,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := lockProduct(ctx, repo, input.ProductID); err != nil {
			return err
		}
		if err := checkOverlap(ctx, repo, *candidate, uuid.Nil); err != nil {
			return err
		}
		if err := repo.Create(ctx, candidate); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create price period")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidate, nil
}

func (s *service) UpdatePeriod(ctx context.Context, periodID uuid.UUID, input PeriodInput) (*models.PricePeriod, error) {
	if periodID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period id required")
	}
	if err := validatePeriodInput(input); err != nil {
		return nil, err
	}

	var updated *models.PricePeriod
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := lockProduct(ctx, repo, input.ProductID); err != nil {
			return err
		}
		existing, err := repo.FindByID(ctx, periodID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "price period not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price period")
		}
		if err := s.requireFuture(*existing); err != nil {
			return err
		}
		if existing.ProductID != input.ProductID {
			return pkgerrors.New(pkgerrors.CodeValidation, "price period cannot move between products")
		}

		existing.SalePrice = input.SalePrice
		existing.CompareAtPrice = input.CompareAtPrice
		existing.CostPrice = input.CostPrice
		existing.EffectiveFrom = input.EffectiveFrom
		existing.EffectiveTo = input.EffectiveTo

		if err := checkOverlap(ctx, repo, *existing, existing.ID); err != nil {
			return err
		}
		if err := repo.Update(ctx, existing); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update price period")
		}
		updated = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) RemovePeriod(ctx context.Context, periodID uuid.UUID) error {
	if periodID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "period id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindByID(ctx, periodID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "price period not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price period")
		}
		if err := s.requireFuture(*existing); err != nil {
			return err
		}
		if err := repo.Delete(ctx, existing.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete price period")
		}
		return nil
	})
}

func (s *service) ListPeriods(ctx context.Context, productID uuid.UUID) ([]models.PricePeriod, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	periods, err := s.repo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price periods")
	}
	return periods, nil
}

// requireFuture rejects edits to periods that have already started; those
// are historical facts an order may have snapshotted from.
func (s *service) requireFuture(period models.PricePeriod) error {
	if !period.EffectiveFrom.After(s.now()) {
		return pkgerrors.New(pkgerrors.CodeValidation, "price periods already in effect are immutable")
	}
	return nil
}

func validatePeriodInput(input PeriodInput) error {
	if input.ProductID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.SalePrice.Sign() < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale price must not be negative")
	}
	if input.CompareAtPrice != nil && input.CompareAtPrice.Sign() < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "compare-at price must not be negative")
	}
	if input.CostPrice != nil && input.CostPrice.Sign() < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cost price must not be negative")
	}
	if input.EffectiveFrom.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "effective_from required")
	}
	if input.EffectiveTo != nil && input.EffectiveTo.Before(input.EffectiveFrom) {
		return pkgerrors.New(pkgerrors.CodeValidation, "effective_to must not precede effective_from")
	}
	return nil
}

// lockProduct serializes period writers for one product by taking its row
// lock inside the write transaction. Without it two concurrent writers could
// each scan a snapshot that misses the other's uncommitted period and both
// commit overlapping intervals.
func lockProduct(ctx context.Context, repo Repository, productID uuid.UUID) error {
	locked, err := repo.LockProduct(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
	}
	if !locked {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// checkOverlap scans the product's periods for interval intersection. The
// count per product is small, so a linear pass is enough; lockProduct keeps
// concurrent writers from scanning past each other.
func checkOverlap(ctx context.Context, repo Repository, candidate models.PricePeriod, selfID uuid.UUID) error {
	existing, err := repo.ListByProduct(ctx, candidate.ProductID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list price periods")
	}
	for _, period := range existing {
		if selfID != uuid.Nil && period.ID == selfID {
			continue
		}
		if candidate.Overlaps(period) {
			return pkgerrors.New(pkgerrors.CodeOverlappingPeriod, "period overlaps an existing price period").
				WithDetails(map[string]any{"conflicting_period_id": period.ID})
		}
	}
	return nil
}
