package tax

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
)

// Service resolves the tax rate for a shipping jurisdiction. An unknown
// jurisdiction rates at zero rather than failing the checkout.
type Service interface {
	RateFor(ctx context.Context, jurisdiction string) (decimal.Decimal, error)
}

type service struct {
	db *gorm.DB
}

// NewService wires a tax rate lookup.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{db: db}, nil
}

func (s *service) RateFor(ctx context.Context, jurisdiction string) (decimal.Decimal, error) {
	if jurisdiction == "" {
		return decimal.Zero, nil
	}
	var rate models.TaxRate
	err := s.db.WithContext(ctx).Where("jurisdiction = ?", jurisdiction).First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tax rate")
	}
	return rate.Rate, nil
}
