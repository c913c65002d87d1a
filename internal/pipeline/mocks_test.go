package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/farm-survey-etl/internal/domain"
	"github.com/couchcryptid/farm-survey-etl/internal/frame"
)

type mockTabular struct {
	frame *frame.Frame
	err   error

	gotQuery string
}

func (m *mockTabular) Query(_ context.Context, query string) (*frame.Frame, error) {
	m.gotQuery = query
	return m.frame, m.err
}

// mockDelimited serves a frame per URL so one mock can back both the station
// mapping and the weather messages.
type mockDelimited struct {
	frames map[string]*frame.Frame
	err    error
}

func (m *mockDelimited) Fetch(_ context.Context, url string) (*frame.Frame, error) {
	if m.err != nil {
		return nil, m.err
	}
	f, ok := m.frames[url]
	if !ok {
		return nil, context.DeadlineExceeded
	}
	return f, nil
}

type mockPublisher struct {
	err error

	published *domain.StationMeans
	calls     int
}

func (m *mockPublisher) PublishMeans(_ context.Context, means *domain.StationMeans) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.published = means
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFrame(t *testing.T, cols []string, rows ...[]any) *frame.Frame {
	t.Helper()
	f, err := frame.New(cols...)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, f.AppendRow(r...))
	}
	return f
}
