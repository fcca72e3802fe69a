package stats

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/leafit/leafit-backend/internal/platform/logger"
)

const refreshTimeout = 30 * time.Second

// Scheduler refreshes the stats snapshot on a cron spec with a seconds field.
type Scheduler struct {
	cron *cron.Cron
	svc  *Service
	log  *logger.Logger
}

func NewScheduler(svc *Service, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		svc:  svc,
		log:  log.With("component", "stats-scheduler"),
	}
}

// Start registers the refresh job and starts the cron loop.
func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("stats scheduler started", "spec", spec)
	return nil
}

// Stop waits for a running refresh to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	start := time.Now()
	snap, err := s.svc.Refresh(ctx)
	if err != nil {
		s.log.Error("stats refresh failed", "error", err)
		return
	}
	s.log.Debug("stats refreshed",
		"diagnoses", snap.Diagnoses,
		"treatments", snap.Treatments,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
