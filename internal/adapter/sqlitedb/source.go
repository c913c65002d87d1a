package sqlitedb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/farm-survey-etl/internal/frame"
)

// ErrEmptyResult indicates the survey query matched no rows.
var ErrEmptyResult = errors.New("query returned no rows")

// Source reads survey rows out of a SQLite database file.
// It implements pipeline.TabularSource.
type Source struct {
	path   string
	logger *slog.Logger
}

// NewSource creates a source backed by the SQLite file at path. The file is
// opened per query, so a Source is cheap to construct and needs no Close.
func NewSource(path string, logger *slog.Logger) *Source {
	return &Source{path: path, logger: logger}
}

// Query runs the given SQL and returns the full result set as a frame.
// Column order follows the result set; cell types are whatever the driver
// reports (int64, float64, string, []byte, or nil).
func (s *Source) Query(ctx context.Context, query string) (*frame.Frame, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite3", s.path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db %s: %w", s.path, err)
	}
	defer db.Close()

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("run survey query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}

	f, err := frame.New(cols...)
	if err != nil {
		return nil, fmt.Errorf("build result frame: %w", err)
	}

	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", f.Len(), err)
		}
		for i, v := range vals {
			// The driver hands back []byte for TEXT in some cases.
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		if err := f.AppendRow(vals...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}

	if f.Len() == 0 {
		return nil, ErrEmptyResult
	}

	s.logger.Debug("survey rows loaded", "rows", f.Len(), "columns", len(cols))
	return f, nil
}
