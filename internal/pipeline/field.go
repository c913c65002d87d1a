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

// TabularSource reads a SQL query's full result set into a frame.
type TabularSource interface {
	Query(ctx context.Context, query string) (*frame.Frame, error)
}

// DelimitedSource fetches a remote CSV into a frame of string cells.
type DelimitedSource interface {
	Fetch(ctx context.Context, url string) (*frame.Frame, error)
}

// indexColumn is an export artifact of the upstream survey tooling; it carries
// no data and is dropped when present.
const indexColumn = "Unnamed: 0"

// Field corrects and enriches the farm survey: repair the swapped column
// pair, canonicalize crop labels, force elevations non-negative, and attach
// each field's weather station via the mapping CSV.
type Field struct {
	db      TabularSource
	csv     DelimitedSource
	cfg     *config.Pipeline
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// NewField creates the survey-correction pipeline.
func NewField(db TabularSource, csv DelimitedSource, cfg *config.Pipeline, logger *slog.Logger, metrics *observability.Metrics) *Field {
	return &Field{
		db:      db,
		csv:     csv,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Field) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("field survey has not been processed yet")
	}
	return nil
}

// Run executes one extract-correct-join cycle and returns the corrected,
// station-annotated survey frame.
func (p *Field) Run(ctx context.Context) (*frame.Frame, error) {
	start := time.Now()
	f, err := p.run(ctx)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	p.metrics.PipelineRuns.WithLabelValues("field", outcome).Inc()
	p.metrics.StageDuration.WithLabelValues("field").Observe(time.Since(start).Seconds())
	return f, err
}

func (p *Field) run(ctx context.Context) (*frame.Frame, error) {
	f, err := p.db.Query(ctx, p.cfg.SQLQuery)
	if err != nil {
		return nil, fmt.Errorf("extract survey: %w", err)
	}
	p.metrics.RowsIngested.WithLabelValues("survey").Add(float64(f.Len()))
	p.logger.Info("survey extracted", "rows", f.Len())

	if f.Has(indexColumn) {
		if err := f.DropColumn(indexColumn); err != nil {
			return nil, err
		}
	}

	if err := f.Swap(p.cfg.SwapColumns[0], p.cfg.SwapColumns[1]); err != nil {
		return nil, fmt.Errorf("repair swapped columns: %w", err)
	}

	aliased, err := domain.NormalizeCategories(f, p.cfg.CropColumn, p.cfg.CropAliases)
	if err != nil {
		return nil, err
	}
	p.metrics.CorrectionsApplied.WithLabelValues("crop_alias").Add(float64(aliased))

	flipped, err := domain.AbsoluteValues(f, p.cfg.ElevationColumn)
	if err != nil {
		return nil, err
	}
	p.metrics.CorrectionsApplied.WithLabelValues("elevation_abs").Add(float64(flipped))

	p.logger.Info("survey corrected",
		"crop_cells_changed", aliased,
		"elevations_flipped", flipped,
	)

	mapping, err := p.csv.Fetch(ctx, p.cfg.StationMapURL)
	if err != nil {
		return nil, fmt.Errorf("fetch station mapping: %w", err)
	}
	p.metrics.RowsIngested.WithLabelValues("station_map").Add(float64(mapping.Len()))

	if mapping.Has(indexColumn) {
		if err := mapping.DropColumn(indexColumn); err != nil {
			return nil, err
		}
	}

	joined, err := f.LeftJoin(mapping, p.cfg.JoinKey)
	if err != nil {
		return nil, fmt.Errorf("join station mapping: %w", err)
	}

	p.logger.Info("survey joined with station mapping", "rows", joined.Len())
	p.ready.Store(true)
	return joined, nil
}
