// Package pipeline orchestrates the fetch, decode, store, publish flow for
// archive requests.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kitewatch/wind-archive/internal/archive"
	"github.com/kitewatch/wind-archive/internal/chart"
	"github.com/kitewatch/wind-archive/internal/domain"
	"github.com/kitewatch/wind-archive/internal/observability"
)

// ArchiveFetcher retrieves the raw archive HTML for a request.
type ArchiveFetcher interface {
	FetchArchive(ctx context.Context, req domain.ArchiveRequest) (string, error)
}

// DatasetStore persists decoded fetches.
type DatasetStore interface {
	SaveDataset(ctx context.Context, record domain.FetchRecord, dataset domain.Dataset) error
	GetDataset(ctx context.Context, id string) (domain.FetchRecord, domain.Dataset, error)
	ListFetches(ctx context.Context) ([]domain.FetchRecord, error)
}

// PointPublisher pushes decoded points to downstream consumers.
type PointPublisher interface {
	PublishPoints(ctx context.Context, fetchID string, dataset domain.Dataset) error
}

// Service runs archive requests end to end: fetch the page, decode the
// table, store the dataset, and optionally publish the points.
type Service struct {
	fetcher   ArchiveFetcher
	store     DatasetStore
	publisher PointPublisher // nil disables publishing
	logger    *slog.Logger
	metrics   *observability.Metrics
	chartDir  string // empty disables chart file output
	ready     atomic.Bool
}

// New creates a Service. Pass a nil publisher to disable point publishing
// and an empty chartDir to disable per-fetch chart files.
func New(fetcher ArchiveFetcher, store DatasetStore, publisher PointPublisher, logger *slog.Logger, metrics *observability.Metrics, chartDir string) *Service {
	s := &Service{
		fetcher:   fetcher,
		store:     store,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		chartDir:  chartDir,
	}
	if publisher != nil {
		metrics.KafkaEnabled.Set(1)
	}
	return s
}

// Fetch executes one archive request end to end and returns the stored
// record with its decoded dataset.
func (s *Service) Fetch(ctx context.Context, req domain.ArchiveRequest) (domain.FetchRecord, domain.Dataset, error) {
	if err := req.Validate(); err != nil {
		return domain.FetchRecord{}, domain.Dataset{}, fmt.Errorf("archive request: %w", err)
	}

	fetchStart := time.Now()
	html, err := s.fetcher.FetchArchive(ctx, req)
	s.metrics.FetchDuration.Observe(time.Since(fetchStart).Seconds())
	if err != nil {
		s.metrics.FetchesTotal.WithLabelValues("error").Inc()
		return domain.FetchRecord{}, domain.Dataset{}, fmt.Errorf("fetch archive: %w", err)
	}
	s.metrics.FetchesTotal.WithLabelValues("success").Inc()

	decodeStart := time.Now()
	dataset, err := archive.Decode(html, req.StepHours)
	s.metrics.DecodeDuration.Observe(time.Since(decodeStart).Seconds())
	if err != nil {
		if errors.Is(err, archive.ErrTableNotFound) {
			s.metrics.DecodesTotal.WithLabelValues("table_not_found").Inc()
		} else {
			s.metrics.DecodesTotal.WithLabelValues("error").Inc()
		}
		return domain.FetchRecord{}, domain.Dataset{}, fmt.Errorf("decode archive: %w", err)
	}
	s.metrics.DecodesTotal.WithLabelValues("success").Inc()
	s.metrics.PointsDecoded.Add(float64(dataset.Len()))
	s.metrics.DatasetSize.Observe(float64(dataset.Len()))

	dataset.SpotID = req.SpotID
	dataset.ModelID = req.ModelID

	record := domain.FetchRecord{
		ID:         req.FetchID(),
		SpotID:     req.SpotID,
		ModelID:    req.ModelID,
		From:       req.From,
		To:         req.To,
		StepHours:  req.StepHours,
		PointCount: dataset.Len(),
		FetchedAt:  domain.Now(),
	}

	if err := s.store.SaveDataset(ctx, record, dataset); err != nil {
		return domain.FetchRecord{}, domain.Dataset{}, fmt.Errorf("store dataset: %w", err)
	}

	s.publish(ctx, record.ID, dataset)
	s.writeChart(record, dataset)

	s.ready.Store(true)
	s.metrics.ServiceReady.Set(1)
	s.logger.Info("archive fetched",
		"fetch_id", record.ID,
		"spot_id", record.SpotID,
		"model_id", record.ModelID,
		"points", record.PointCount,
	)
	return record, dataset, nil
}

// publish pushes the points downstream. Publish failures are logged but do
// not fail the fetch; the dataset is already stored.
func (s *Service) publish(ctx context.Context, fetchID string, dataset domain.Dataset) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPoints(ctx, fetchID, dataset); err != nil {
		s.logger.Warn("publish points failed", "fetch_id", fetchID, "error", err)
		return
	}
	published := 0
	for _, p := range dataset.Points {
		if p.HasData() {
			published++
		}
	}
	s.metrics.PointsPublished.Add(float64(published))
}

// writeChart renders the per-fetch dashboard into the output directory.
// Like publishing, a failed write is logged but never fails the fetch.
func (s *Service) writeChart(record domain.FetchRecord, dataset domain.Dataset) {
	if s.chartDir == "" || dataset.Len() == 0 {
		return
	}
	path, err := chart.WriteFile(s.chartDir, record, dataset)
	if err != nil {
		s.logger.Warn("chart write failed", "fetch_id", record.ID, "error", err)
		return
	}
	s.logger.Debug("chart written", "fetch_id", record.ID, "path", path)
}

// Dataset loads a stored fetch with its points.
func (s *Service) Dataset(ctx context.Context, id string) (domain.FetchRecord, domain.Dataset, error) {
	return s.store.GetDataset(ctx, id)
}

// Stats loads a stored fetch and computes its summary statistics.
func (s *Service) Stats(ctx context.Context, id string) (domain.FetchRecord, domain.Summary, error) {
	record, dataset, err := s.store.GetDataset(ctx, id)
	if err != nil {
		return domain.FetchRecord{}, domain.Summary{}, err
	}
	return record, domain.Summarize(dataset), nil
}

// Fetches lists stored fetch records, most recent first.
func (s *Service) Fetches(ctx context.Context) ([]domain.FetchRecord, error) {
	return s.store.ListFetches(ctx)
}

// CheckReadiness returns nil once the service has completed a fetch, or when
// storage proves reachable.
func (s *Service) CheckReadiness(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	if _, err := s.store.ListFetches(ctx); err != nil {
		return fmt.Errorf("storage not reachable: %w", err)
	}
	s.ready.Store(true)
	s.metrics.ServiceReady.Set(1)
	return nil
}
