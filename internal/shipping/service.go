package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/money"
)

// Quote is the input to a shipping estimate: the chargeable weight of the
// order and its items subtotal, used for free-shipping thresholds.
type Quote struct {
	MethodCode  string
	WeightGrams int
	Subtotal    decimal.Decimal
}

// Service prices delivery for an order.
type Service interface {
	Estimate(ctx context.Context, quote Quote) (decimal.Decimal, error)
}

type service struct {
	db *gorm.DB
}

// NewService wires a shipping estimator.
func NewService(db *gorm.DB) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{db: db}, nil
}

func (s *service) Estimate(ctx context.Context, quote Quote) (decimal.Decimal, error) {
	if quote.MethodCode == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "shipping method required")
	}
	if quote.WeightGrams < 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "weight must not be negative")
	}

	var method models.ShippingMethod
	err := s.db.WithContext(ctx).Where("code = ?", quote.MethodCode).First(&method).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "shipping method not found").
				WithDetails(map[string]any{"method_code": quote.MethodCode})
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping method")
	}

	if method.FreeShippingThreshold != nil &&
		quote.Subtotal.GreaterThanOrEqual(*method.FreeShippingThreshold) {
		return decimal.Zero, nil
	}

	kg := decimal.NewFromInt(int64(quote.WeightGrams)).Div(decimal.NewFromInt(1000))
	cost := method.BaseCost.Add(method.PerKgCost.Mul(kg))
	return money.Round2(cost), nil
}
