package refunds

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/internal/orders"
	"github.com/shopcore-io/shopcore-backend/internal/payments"
	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	"github.com/shopcore-io/shopcore-backend/pkg/enums"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service applies refunds against payments. The cumulative applied amount
// for a payment never exceeds the payment amount; a full refund cascades to
// the payment and, when the order's state allows it, to the order.
type Service interface {
	Refund(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, reason *string) (*models.Refund, error)
	List(ctx context.Context, paymentID uuid.UUID) ([]models.Refund, error)
}

// ServiceParams wire the refund processor.
type ServiceParams struct {
	Repo      Repository
	OrderRepo orders.Repository
	Payments  payments.Service
	Tx        txRunner
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	orderRepo orders.Repository
	payments  payments.Service
	tx        txRunner
	logg      *logger.Logger
}

// NewService wires the refund service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("refund repository required")
	}
	if params.OrderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:      params.Repo,
		orderRepo: params.OrderRepo,
		payments:  params.Payments,
		tx:        params.Tx,
		logg:      params.Logger,
	}, nil
}

func (s *service) Refund(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, reason *string) (*models.Refund, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}

	var refund *models.Refund
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		locked, err := repo.LockPayment(ctx, paymentID)
		if err != nil {
			return err
		}
		if !locked {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}

		payment, err := repo.FindPayment(ctx, paymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status != enums.PaymentStatusCompleted && payment.Status != enums.PaymentStatusRefunded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only settled payments can be refunded").
				WithDetails(map[string]any{"payment_status": payment.Status.String()})
		}

		applied, err := repo.SumApplied(ctx, paymentID)
		if err != nil {
			return err
		}
		cumulative := applied.Add(amount)
		if cumulative.GreaterThan(payment.Amount) {
			return pkgerrors.New(pkgerrors.CodeRefundExceeded, "refund would exceed the payment amount").
				WithDetails(map[string]any{
					"payment_amount":  payment.Amount.String(),
					"already_applied": applied.String(),
					"requested":       amount.String(),
				})
		}

		candidate := &models.Refund{
			PaymentID: paymentID,
			Amount:    amount,
			Status:    enums.RefundStatusCompleted,
			Reason:    reason,
		}
		if err := repo.Create(ctx, candidate); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
		}

		if cumulative.Equal(payment.Amount) {
			if err := s.cascadeFullRefund(ctx, tx, repo, payment); err != nil {
				return err
			}
		}
		refund = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"payment_id": paymentID.String(),
			"refund_id":  refund.ID.String(),
			"amount":     amount.String(),
		})
		s.logg.Info(logCtx, "refund applied")
	}
	return refund, nil
}

// cascadeFullRefund marks the payment refunded and moves the order along
// when its state allows a refund.
func (s *service) cascadeFullRefund(ctx context.Context, tx *gorm.DB, repo Repository, payment *models.Payment) error {
	if payment.Status == enums.PaymentStatusCompleted {
		if err := s.payments.MarkRefunded(ctx, tx, payment.ID); err != nil {
			return err
		}
	}

	order, err := repo.FindOrder(ctx, payment.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeInvariant, "payment references a missing order")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !orders.Refundable(order.Status) {
		return nil
	}

	moved, err := s.orderRepo.WithTx(tx).TransitionStatus(ctx, order.ID, order.Status, enums.OrderStatusRefunded, nil)
	if err != nil {
		return err
	}
	if !moved {
		return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "order changed during refund cascade")
	}
	return nil
}

func (s *service) List(ctx context.Context, paymentID uuid.UUID) ([]models.Refund, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	refunds, err := s.repo.ListByPayment(ctx, paymentID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list refunds")
	}
	return refunds, nil
}
