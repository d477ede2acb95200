package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	"github.com/shopcore-io/shopcore-backend/pkg/enums"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// GatewayEvent is the normalized notification forwarded by the external
// webhook receiver. Reference identifies the payment at the gateway.
type GatewayEvent struct {
	Reference string
	Status    enums.GatewayStatus
	Amount    decimal.Decimal
	PaidAt    *time.Time
}

// RegisterInput creates the pending payment an order settles against.
type RegisterInput struct {
	OrderID          uuid.UUID
	GatewayReference string
	Amount           decimal.Decimal
	Currency         enums.Currency
}

// Service owns payment rows and their event-driven lifecycle. Status moves
// only through applyEvent; there is no direct external mutation path.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Payment, error)
	Find(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	// MarkRefunded moves a completed payment to refunded on behalf of the
	// refund processor.
	MarkRefunded(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires the payment service.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx, logg: logg, now: time.Now}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.GatewayReference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway reference required")
	}
	if input.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyUSD
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown currency")
	}

	payment := &models.Payment{
		OrderID:          input.OrderID,
		GatewayReference: input.GatewayReference,
		Amount:           input.Amount,
		Currency:         currency,
		Status:           enums.PaymentStatusPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
	}
	return payment, nil
}

func (s *service) Find(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	if paymentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	payment, err := s.repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return payment, nil
}

func (s *service) MarkRefunded(ctx context.Context, tx *gorm.DB, paymentID uuid.UUID) error {
	repo := s.repo.WithTx(tx)
	payment, err := repo.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return s.transition(ctx, repo, payment, enums.PaymentStatusRefunded, nil)
}

// applyEvent runs one normalized gateway event against the payment it
// references. Stale and duplicate deliveries collapse to no-ops.
func (s *service) applyEvent(ctx context.Context, tx *gorm.DB, event GatewayEvent) error {
	repo := s.repo.WithTx(tx)
	payment, err := repo.FindByReference(ctx, event.Reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no payment for gateway reference").
				WithDetails(map[string]any{"reference": event.Reference})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}

	target, ok := gatewayToPayment[event.Status]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown gateway status").
			WithDetails(map[string]any{"gateway_status": event.Status.String()})
	}

	return s.transition(ctx, repo, payment, target, event.PaidAt)
}

func (s *service) transition(ctx context.Context, repo Repository, payment *models.Payment, target enums.PaymentStatus, eventPaidAt *time.Time) error {
	switch decide(payment.Status, target) {
	case actionNoop:
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"payment_id": payment.ID.String(),
				"current":    payment.Status.String(),
				"target":     target.String(),
			})
			s.logg.Info(logCtx, "stale payment event ignored")
		}
		return nil
	case actionReject:
		return paymentTransitionError(payment.Status, target)
	}

	var paidAt *time.Time
	if target.RequiresPaidAt() && payment.PaidAt == nil {
		stamp := s.now()
		if eventPaidAt != nil {
			stamp = *eventPaidAt
		}
		paidAt = &stamp
	}

	moved, err := repo.TransitionStatus(ctx, payment.ID, payment.Status, target, paidAt)
	if err != nil {
		return err
	}
	if !moved {
		return pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "payment changed during transition")
	}

	payment.Status = target
	if paidAt != nil {
		payment.PaidAt = paidAt
	}
	return nil
}
