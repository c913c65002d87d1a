package webcsv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/farm-survey-etl/internal/frame"
)

// ErrEmptyFile indicates the fetched CSV carried no data rows.
var ErrEmptyFile = errors.New("csv has no data rows")

// Client fetches CSV files over HTTP and parses them into frames.
// It implements pipeline.DelimitedSource.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a CSV-over-HTTP client with the given request timeout.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch downloads the CSV at url. The first record is the header; every cell
// comes back as a string, as the wire format carries no types. A file with a
// header but no data rows is ErrEmptyFile.
func (c *Client) Fetch(ctx context.Context, url string) (*frame.Frame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	r := csv.NewReader(resp.Body)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv from %s: %w", url, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s: %w", url, ErrEmptyFile)
	}

	f, err := frame.New(records[0]...)
	if err != nil {
		return nil, fmt.Errorf("csv header from %s: %w", url, err)
	}
	for _, rec := range records[1:] {
		cells := make([]any, len(rec))
		for i, v := range rec {
			cells[i] = v
		}
		if err := f.AppendRow(cells...); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("csv fetched", "url", url, "rows", f.Len(), "columns", len(records[0]))
	return f, nil
}
