package webcsv

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serveCSV(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(status)
		io.WriteString(w, body) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch(t *testing.T) {
	client := NewClient(5*time.Second, testLogger())

	t.Run("parses header and rows as strings", func(t *testing.T) {
		srv := serveCSV(t, http.StatusOK,
			"Weather_station_ID,Message\n0,temp: 23.4C\n1,Rainfall: 10mm\n")

		f, err := client.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)

		assert.Equal(t, []string{"Weather_station_ID", "Message"}, f.Columns())
		require.Equal(t, 2, f.Len())

		station, err := f.Value(0, "Weather_station_ID")
		require.NoError(t, err)
		assert.Equal(t, "0", station)

		msg, err := f.Value(1, "Message")
		require.NoError(t, err)
		assert.Equal(t, "Rainfall: 10mm", msg)
	})

	t.Run("quoted fields with commas", func(t *testing.T) {
		srv := serveCSV(t, http.StatusOK,
			"Weather_station_ID,Message\n2,\"temp today, 21C\"\n")

		f, err := client.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)

		msg, err := f.Value(0, "Message")
		require.NoError(t, err)
		assert.Equal(t, "temp today, 21C", msg)
	})

	t.Run("header-only file is empty", func(t *testing.T) {
		srv := serveCSV(t, http.StatusOK, "Weather_station_ID,Message\n")

		_, err := client.Fetch(context.Background(), srv.URL)
		require.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("zero-byte body is empty", func(t *testing.T) {
		srv := serveCSV(t, http.StatusOK, "")

		_, err := client.Fetch(context.Background(), srv.URL)
		require.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("non-200 status", func(t *testing.T) {
		srv := serveCSV(t, http.StatusNotFound, "not here")

		_, err := client.Fetch(context.Background(), srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})

	t.Run("ragged rows surface the parser error", func(t *testing.T) {
		srv := serveCSV(t, http.StatusOK, "a,b\n1,2,3\n")

		_, err := client.Fetch(context.Background(), srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse csv")
	})

	t.Run("context cancellation", func(t *testing.T) {
		srv := serveCSV(t, http.StatusOK, "a,b\n1,2\n")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.Fetch(ctx, srv.URL)
		require.Error(t, err)
	})
}
