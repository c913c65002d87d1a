package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/farm-survey-etl/internal/config"
	"github.com/couchcryptid/farm-survey-etl/internal/domain"
	"github.com/couchcryptid/farm-survey-etl/internal/frame"
	"github.com/couchcryptid/farm-survey-etl/internal/observability"
)

const weatherURL = "http://example.com/weather.csv"

func weatherConfig() *config.Pipeline {
	return &config.Pipeline{WeatherCSVURL: weatherURL}
}

func testPatterns(t *testing.T) []domain.Pattern {
	t.Helper()
	rainfall, err := domain.CompilePattern("Rainfall", `(\d+(?:\.\d+)?)\s?mm`)
	require.NoError(t, err)
	temperature, err := domain.CompilePattern("Temperature", `(-?\d+(?:\.\d+)?)\s?C`)
	require.NoError(t, err)
	return []domain.Pattern{rainfall, temperature}
}

func messageFrame(t *testing.T, rows ...[]any) *frame.Frame {
	t.Helper()
	return newFrame(t, []string{domain.ColStation, domain.ColMessage}, rows...)
}

func TestWeatherRun(t *testing.T) {
	t.Run("extracts and aggregates", func(t *testing.T) {
		csv := &mockDelimited{frames: map[string]*frame.Frame{
			weatherURL: messageFrame(t,
				[]any{"0", "temp: 23.4C"},
				[]any{"0", "temp: 24.6C"},
				[]any{"1", "Rainfall: 10mm"},
				[]any{"1", "sensor offline"},
			),
		}}
		pub := &mockPublisher{}

		p := NewWeather(csv, pub, weatherConfig(), testPatterns(t), testLogger(), observability.NewMetricsForTesting())

		require.Error(t, p.CheckReadiness(context.Background()))

		means, processed, err := p.Run(context.Background())
		require.NoError(t, err)

		// The processed frame keeps every row, including the miss, with
		// derived columns populated.
		require.Equal(t, 4, processed.Len())
		assert.True(t, processed.Has(domain.ColMeasurement))
		assert.True(t, processed.Has(domain.ColValue))
		miss, err := processed.Value(3, domain.ColMeasurement)
		require.NoError(t, err)
		assert.Nil(t, miss)

		temp, ok := means.Mean("0", "Temperature")
		require.True(t, ok)
		assert.InEpsilon(t, 24.0, temp, 1e-9)

		rain, ok := means.Mean("1", "Rainfall")
		require.True(t, ok)
		assert.Equal(t, 10.0, rain)

		assert.Equal(t, 1, pub.calls)
		assert.Same(t, means, pub.published)
		assert.NoError(t, p.CheckReadiness(context.Background()))
	})

	t.Run("runs without a publisher", func(t *testing.T) {
		csv := &mockDelimited{frames: map[string]*frame.Frame{
			weatherURL: messageFrame(t, []any{"0", "temp: 21C"}),
		}}

		p := NewWeather(csv, nil, weatherConfig(), testPatterns(t), testLogger(), observability.NewMetricsForTesting())
		_, _, err := p.Run(context.Background())
		require.NoError(t, err)
	})

	t.Run("fetch failure", func(t *testing.T) {
		csv := &mockDelimited{err: errors.New("upstream down")}

		p := NewWeather(csv, nil, weatherConfig(), testPatterns(t), testLogger(), observability.NewMetricsForTesting())
		_, _, err := p.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fetch weather messages")
		assert.Error(t, p.CheckReadiness(context.Background()))
	})

	t.Run("unparseable matched value is fatal", func(t *testing.T) {
		bad, err := domain.CompilePattern("Rainfall", `(\S+)\s?mm`)
		require.NoError(t, err)
		csv := &mockDelimited{frames: map[string]*frame.Frame{
			weatherURL: messageFrame(t, []any{"0", "rain was heavy mm"}),
		}}

		p := NewWeather(csv, nil, weatherConfig(), []domain.Pattern{bad}, testLogger(), observability.NewMetricsForTesting())
		_, _, err = p.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not numeric")
	})

	t.Run("publish failure fails the run", func(t *testing.T) {
		csv := &mockDelimited{frames: map[string]*frame.Frame{
			weatherURL: messageFrame(t, []any{"0", "temp: 21C"}),
		}}
		pub := &mockPublisher{err: errors.New("broker down")}

		p := NewWeather(csv, pub, weatherConfig(), testPatterns(t), testLogger(), observability.NewMetricsForTesting())
		_, _, err := p.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "publish station means")
		assert.Error(t, p.CheckReadiness(context.Background()))
	})
}
