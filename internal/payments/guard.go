package payments

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shopcore-io/shopcore-backend/pkg/db/models"
	pkgerrors "github.com/shopcore-io/shopcore-backend/pkg/errors"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
	"github.com/shopcore-io/shopcore-backend/pkg/redis"
)

const (
	guardScope       = "webhook"
	defaultGuardTTL  = 30 * 24 * time.Hour
	guardMarkerValue = "1"
)

// Guard deduplicates gateway deliveries. The redis SETNX is a cheap first
// filter; the unique webhook_events row inserted inside the same transaction
// as the state transition is the one that actually guarantees exactly-once
// application under at-least-once delivery.
type Guard interface {
	Apply(ctx context.Context, event GatewayEvent) error
}

// GuardParams wire the idempotency guard.
type GuardParams struct {
	Repo   Repository
	Tx     txRunner
	Redis  redis.IdempotencyStore
	Logger *logger.Logger
	TTL    time.Duration
}

type guard struct {
	repo     Repository
	tx       txRunner
	redis    redis.IdempotencyStore
	logg     *logger.Logger
	ttl      time.Duration
	payments *service
}

// NewGuard builds the webhook idempotency guard around a payment service.
func NewGuard(params GuardParams, payments Service) (Guard, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	svc, ok := payments.(*service)
	if !ok {
		return nil, fmt.Errorf("payment service implementation required")
	}
	if params.TTL <= 0 {
		params.TTL = defaultGuardTTL
	}
	return &guard{
		repo:     params.Repo,
		tx:       params.Tx,
		redis:    params.Redis,
		logg:     params.Logger,
		ttl:      params.TTL,
		payments: svc,
	}, nil
}

func (g *guard) Apply(ctx context.Context, event GatewayEvent) error {
	if event.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event reference required")
	}
	if !event.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown gateway status")
	}
	if event.Amount.Sign() < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "event amount must not be negative")
	}

	// Fast path. A redis outage only costs the shortcut; the DB row below
	// still dedupes.
	if g.redis != nil {
		key := g.redis.IdempotencyKey(guardScope, event.Reference+":"+event.Status.String())
		fresh, err := g.redis.SetNX(ctx, key, guardMarkerValue, g.ttl)
		if err != nil {
			if g.logg != nil {
				g.logg.Warn(ctx, "webhook idempotency fast path unavailable")
			}
		} else if !fresh {
			g.logDuplicate(ctx, event)
			return nil
		}
	}

	return g.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := g.repo.WithTx(tx)
		recorded, err := repo.RecordEvent(ctx, &models.WebhookEvent{
			Reference: event.Reference,
			Status:    event.Status,
			Amount:    event.Amount,
			PaidAt:    event.PaidAt,
		})
		if err != nil {
			return err
		}
		if !recorded {
			g.logDuplicate(ctx, event)
			return nil
		}
		return g.payments.applyEvent(ctx, tx, event)
	})
}

func (g *guard) logDuplicate(ctx context.Context, event GatewayEvent) {
	if g.logg == nil {
		return
	}
	logCtx := g.logg.WithFields(ctx, map[string]any{
		"reference":      event.Reference,
		"gateway_status": event.Status.String(),
	})
	g.logg.Info(logCtx, "duplicate webhook event swallowed")
}
