package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/farm-survey-etl/internal/config"
	"github.com/couchcryptid/farm-survey-etl/internal/domain"
	"github.com/couchcryptid/farm-survey-etl/internal/frame"
	"github.com/couchcryptid/farm-survey-etl/internal/observability"
)

// MeansPublisher delivers the aggregated station means to a downstream sink.
type MeansPublisher interface {
	PublishMeans(ctx context.Context, means *domain.StationMeans) error
}

// Weather turns free-text station messages into a per-station table of mean
// measurements: fetch the message CSV, run the ordered pattern table over
// every message, and average the extracted values per (station, kind).
type Weather struct {
	csv       DelimitedSource
	publisher MeansPublisher
	cfg       *config.Pipeline
	patterns  []domain.Pattern
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// NewWeather creates the station-message pipeline. The publisher is optional;
// pass nil to skip downstream delivery.
func NewWeather(csv DelimitedSource, publisher MeansPublisher, cfg *config.Pipeline, patterns []domain.Pattern, logger *slog.Logger, metrics *observability.Metrics) *Weather {
	return &Weather{
		csv:       csv,
		publisher: publisher,
		cfg:       cfg,
		patterns:  patterns,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Weather) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("weather messages have not been processed yet")
	}
	return nil
}

// Run executes one fetch-extract-aggregate cycle. It returns the station
// means and the processed message frame with its derived Measurement and
// Value columns.
func (p *Weather) Run(ctx context.Context) (*domain.StationMeans, *frame.Frame, error) {
	start := time.Now()
	means, processed, err := p.run(ctx)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.metrics.PipelineRuns.WithLabelValues("weather", outcome).Inc()
	p.metrics.StageDuration.WithLabelValues("weather").Observe(time.Since(start).Seconds())
	return means, processed, err
}

func (p *Weather) run(ctx context.Context) (*domain.StationMeans, *frame.Frame, error) {
	f, err := p.csv.Fetch(ctx, p.cfg.WeatherCSVURL)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch weather messages: %w", err)
	}
	p.metrics.RowsIngested.WithLabelValues("weather").Add(float64(f.Len()))
	p.logger.Info("weather messages fetched", "rows", f.Len())

	if err := domain.ProcessMessages(f, p.patterns); err != nil {
		return nil, nil, err
	}
	p.recordExtractionStats(f)

	means, err := domain.AggregateMeans(f)
	if err != nil {
		return nil, nil, err
	}
	p.metrics.MeanCells.Set(float64(len(means.Cells())))
	p.logger.Info("station means aggregated",
		"stations", len(means.Stations()),
		"measurements", len(means.Kinds()),
	)

	if p.publisher != nil {
		if err := p.publisher.PublishMeans(ctx, means); err != nil {
			return nil, nil, fmt.Errorf("publish station means: %w", err)
		}
	}

	p.ready.Store(true)
	return means, f, nil
}

func (p *Weather) recordExtractionStats(f *frame.Frame) {
	for r := 0; r < f.Len(); r++ {
		v, err := f.Value(r, domain.ColMeasurement)
		if err != nil {
			return
		}
		if kind, ok := v.(string); ok {
			p.metrics.ExtractionMatches.WithLabelValues(kind).Inc()
		} else {
			p.metrics.ExtractionMisses.Inc()
		}
	}
}
