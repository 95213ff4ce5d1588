package metrics

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/dmitrijs2005/chapterhub/internal/logging"
)

// HourlySpec fires on every hour boundary.
const HourlySpec = "0 * * * *"

// GaugeSource reports population gauges keyed by gauge name.
type GaugeSource interface {
	PopulationGauges(ctx context.Context) (map[string]int64, error)
}

// Archiver receives every captured snapshot.
type Archiver interface {
	Archive(ctx context.Context, snap Snapshot) error
}

// Scheduler runs the capture job on a cron schedule.
type Scheduler struct {
	store    *Store
	spec     string
	gauges   GaugeSource
	archiver Archiver
	logger   logging.Logger
	cron     *cron.Cron
}

// NewScheduler wires a capture job for store. gauges and archiver may be nil.
func NewScheduler(store *Store, spec string, gauges GaugeSource, archiver Archiver, logger logging.Logger) *Scheduler {
	if spec == "" {
		spec = HourlySpec
	}
	return &Scheduler{
		store:    store,
		spec:     spec,
		gauges:   gauges,
		archiver: archiver,
		logger:   logger.With("module", "metrics_scheduler"),
		cron:     cron.New(),
	}
}

// RunOnce refreshes gauges, captures one snapshot and archives it. Gauge and
// archive failures are logged; the capture itself always happens.
func (s *Scheduler) RunOnce(ctx context.Context) Snapshot {
	if s.gauges != nil {
		values, err := s.gauges.PopulationGauges(ctx)
		if err != nil {
			s.logger.Warn(ctx, "gauge refresh failed", "error", err)
		}
		for name, v := range values {
			if err := s.store.SetPopulationGauge(name, v); err != nil {
				s.logger.Warn(ctx, "gauge rejected", "gauge", name, "error", err)
			}
		}
	}

	snap := s.store.CaptureSnapshot()

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, snap); err != nil {
			s.logger.Warn(ctx, "snapshot archive failed", "error", err)
		}
	}
	return snap
}

// Run schedules the job and blocks until ctx is done, then waits for a
// running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule snapshot capture: %w", err)
	}

	s.cron.Start()
	s.logger.Info(ctx, "snapshot capture scheduled", "schedule", s.spec)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info(ctx, "snapshot capture stopped")
	return nil
}
