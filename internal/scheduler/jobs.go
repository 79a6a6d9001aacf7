// Package scheduler runs the periodic circulation sweeps.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"libraryhub/internal/microservices/http-api/service"
)

// OverdueProcessor marks late loans and fines them.
type OverdueProcessor interface {
	ProcessOverdue(ctx context.Context) (*service.SweepReport, error)
}

// ReadyNotifier announces reservations waiting for pickup.
type ReadyNotifier interface {
	NotifyReady(ctx context.Context) (int, error)
}

// Jobs holds the sweep bodies. Each run gets its own timeout.
type Jobs struct {
	loans        OverdueProcessor
	reservations ReadyNotifier
	logger       *zap.Logger
	timeout      time.Duration
}

func NewJobs(loans OverdueProcessor, reservations ReadyNotifier, logger *zap.Logger) *Jobs {
	return &Jobs{
		loans:        loans,
		reservations: reservations,
		logger:       logger,
		timeout:      5 * time.Minute,
	}
}

// ProcessOverdueLoans is the daily overdue sweep.
func (j *Jobs) ProcessOverdueLoans() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.logger.Info("overdue_job_started")
	report, err := j.loans.ProcessOverdue(ctx)
	if err != nil {
		j.logger.Error("overdue_job_failed", zap.Error(err))
		return
	}
	j.logger.Info("overdue_job_finished",
		zap.Int("marked_overdue", report.MarkedOverdue),
		zap.Int("failed", report.Failed),
		zap.String("total_fined", report.TotalFined.StringFixed(2)))
}

// NotifyReadyReservations re-sends pickup notices that did not go out
// when the reservation was promoted.
func (j *Jobs) NotifyReadyReservations() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	sent, err := j.reservations.NotifyReady(ctx)
	if err != nil {
		j.logger.Error("reservation_job_failed", zap.Int("notified", sent), zap.Error(err))
		return
	}
	if sent > 0 {
		j.logger.Info("reservation_job_finished", zap.Int("notified", sent))
	}
}
