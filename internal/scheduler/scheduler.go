package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Schedules struct {
	OverdueSweep     string
	ReservationSweep string
}

// Scheduler wraps a cron runner. A panicking job is recovered and a run
// that is still going when its next tick fires is skipped.
type Scheduler struct {
	cron      *cron.Cron
	jobs      *Jobs
	schedules Schedules
	logger    *zap.Logger
}

func New(jobs *Jobs, schedules Schedules, logger *zap.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	c := cron.New(cron.WithChain(
		cron.Recover(cronLogger),
		cron.SkipIfStillRunning(cronLogger),
	))
	return &Scheduler{cron: c, jobs: jobs, schedules: schedules, logger: logger}
}

// Start registers the jobs and starts the runner. An empty schedule
// disables its job; an invalid one is an error and nothing is started.
func (s *Scheduler) Start() error {
	entries := []struct {
		name string
		spec string
		run  func()
	}{
		{"overdue_sweep", s.schedules.OverdueSweep, s.jobs.ProcessOverdueLoans},
		{"reservation_sweep", s.schedules.ReservationSweep, s.jobs.NotifyReadyReservations},
	}
	for _, e := range entries {
		if e.spec == "" {
			s.logger.Info("job_disabled", zap.String("job", e.name))
			continue
		}
		if _, err := s.cron.AddFunc(e.spec, e.run); err != nil {
			return fmt.Errorf("schedule %s %q: %w", e.name, e.spec, err)
		}
		s.logger.Info("job_scheduled", zap.String("job", e.name), zap.String("schedule", e.spec))
	}
	s.cron.Start()
	return nil
}

// Stop halts the runner; the returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
