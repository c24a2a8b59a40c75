// Package scheduler periodically re-fetches the archive for a configured
// set of spots, keeping their stored datasets current.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/kitewatch/wind-archive/internal/domain"
	"github.com/kitewatch/wind-archive/internal/observability"
)

// FetchRunner executes one archive fetch end to end.
type FetchRunner interface {
	Fetch(ctx context.Context, req domain.ArchiveRequest) (domain.FetchRecord, domain.Dataset, error)
}

// Scheduler drives periodic refresh fetches.
type Scheduler struct {
	cron    *gocron.Scheduler
	runner  FetchRunner
	logger  *slog.Logger
	metrics *observability.Metrics

	spots        []int
	modelID      int
	stepHours    int
	lookbackDays int
}

// Config holds the refresh parameters.
type Config struct {
	Spots        []int
	ModelID      int
	StepHours    int
	Interval     time.Duration
	LookbackDays int
}

// New creates a scheduler that refreshes the configured spots every interval.
func New(cfg Config, runner FetchRunner, logger *slog.Logger, metrics *observability.Metrics) (*Scheduler, error) {
	if len(cfg.Spots) == 0 {
		return nil, fmt.Errorf("refresh requires at least one spot")
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive")
	}

	s := &Scheduler{
		cron:         gocron.NewScheduler(time.UTC),
		runner:       runner,
		logger:       logger,
		metrics:      metrics,
		spots:        cfg.Spots,
		modelID:      cfg.ModelID,
		stepHours:    cfg.StepHours,
		lookbackDays: cfg.LookbackDays,
	}

	if _, err := s.cron.Every(cfg.Interval).Do(s.refresh); err != nil {
		return nil, fmt.Errorf("schedule refresh job: %w", err)
	}
	return s, nil
}

// Start begins the refresh loop in the background.
func (s *Scheduler) Start() {
	s.logger.Info("refresh scheduler starting",
		"spots", s.spots, "model_id", s.modelID, "lookback_days", s.lookbackDays)
	s.cron.StartAsync()
}

// Stop halts the refresh loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// refresh fetches the lookback window for every configured spot. A failed
// spot is logged and skipped so one bad spot cannot stall the rest.
func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	now := domain.Now().UTC().Truncate(24 * time.Hour)
	from := now.AddDate(0, 0, -s.lookbackDays)

	for _, spotID := range s.spots {
		req := domain.NewArchiveRequest(spotID, s.modelID, from, now)
		if s.stepHours > 0 {
			req.StepHours = s.stepHours
		}

		record, _, err := s.runner.Fetch(ctx, req)
		if err != nil {
			s.logger.Error("refresh fetch failed", "spot_id", spotID, "error", err)
			continue
		}
		s.logger.Info("refresh fetch complete",
			"spot_id", spotID, "fetch_id", record.ID, "points", record.PointCount)
	}

	s.metrics.RefreshRuns.Inc()
}
