package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/shopcore-io/shopcore-backend/internal/inventory"
	"github.com/shopcore-io/shopcore-backend/pkg/logger"
	"github.com/shopcore-io/shopcore-backend/pkg/metrics"
)

const reservationSweepJobName = "reservation_sweep"

// ReservationSweepJob releases stock reservations whose checkout never
// completed, so abandoned carts stop locking up inventory.
type ReservationSweepJob struct {
	ledger  inventory.Ledger
	logg    *logger.Logger
	metrics *metrics.SweepJobMetrics
	now     func() time.Time
}

// NewReservationSweepJob builds the expiry sweep job.
func NewReservationSweepJob(ledger inventory.Ledger, logg *logger.Logger, m *metrics.SweepJobMetrics) (*ReservationSweepJob, error) {
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &ReservationSweepJob{
		ledger:  ledger,
		logg:    logg,
		metrics: m,
		now:     time.Now,
	}, nil
}

// Name implements Job.
func (j *ReservationSweepJob) Name() string {
	return reservationSweepJobName
}

// Run implements Job. Per-reservation failures are aggregated by the ledger;
// the count of successfully released holds is still recorded.
func (j *ReservationSweepJob) Run(ctx context.Context) error {
	released, err := j.ledger.ReleaseExpired(ctx, j.now())
	j.metrics.AddReleased(reservationSweepJobName, released)
	if released > 0 {
		logCtx := j.logg.WithField(ctx, "released", released)
		j.logg.Info(logCtx, "expired reservations reclaimed")
	}
	return err
}
