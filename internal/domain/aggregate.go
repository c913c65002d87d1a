package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/couchcryptid/farm-survey-etl/internal/frame"
)

// ErrNotProcessed reports an aggregation attempt on a frame that has not been
// through ProcessMessages. It is distinct from an empty result: a processed
// frame where nothing matched aggregates to a valid table with no cells.
var ErrNotProcessed = errors.New("messages have not been processed: Measurement/Value columns missing")

// StationMeans is the pivoted aggregation result: stations are the row
// dimension, measurement kinds the column dimension, and each cell holds the
// arithmetic mean of the observations for that pair. Pairs without
// observations have no cell.
type StationMeans struct {
	stations []string
	kinds    []string
	cells    map[string]map[string]float64

	// ComputedAt is stamped from the package clock when the table is built.
	ComputedAt time.Time
}

// MeanCell is one (station, kind, mean) entry in flattened form, used for
// CSV export and publishing.
type MeanCell struct {
	Station     string  `json:"station"`
	Measurement string  `json:"measurement"`
	Mean        float64 `json:"mean"`
}

// AggregateMeans groups processed message rows by (station, measurement kind)
// and computes the mean of Value per group. Rows with null measurement cells
// (extraction misses) are ignored.
func AggregateMeans(f *frame.Frame) (*StationMeans, error) {
	if !f.Has(ColMeasurement) || !f.Has(ColValue) {
		return nil, ErrNotProcessed
	}
	if !f.Has(ColStation) {
		return nil, fmt.Errorf("aggregate means: frame has no %q column", ColStation)
	}

	type acc struct {
		sum   float64
		count int
	}
	sums := map[string]map[string]*acc{}

	for r := 0; r < f.Len(); r++ {
		kindCell, err := f.Value(r, ColMeasurement)
		if err != nil {
			return nil, err
		}
		kind, ok := frame.Text(kindCell)
		if !ok {
			continue
		}
		stationCell, err := f.Value(r, ColStation)
		if err != nil {
			return nil, err
		}
		station, ok := frame.Text(stationCell)
		if !ok {
			continue
		}
		valueCell, err := f.Value(r, ColValue)
		if err != nil {
			return nil, err
		}
		value, ok := frame.Float(valueCell)
		if !ok {
			return nil, fmt.Errorf("aggregate means: row %d: non-numeric value %v for %s", r, valueCell, kind)
		}

		if sums[station] == nil {
			sums[station] = map[string]*acc{}
		}
		if sums[station][kind] == nil {
			sums[station][kind] = &acc{}
		}
		sums[station][kind].sum += value
		sums[station][kind].count++
	}

	out := &StationMeans{
		cells:      make(map[string]map[string]float64, len(sums)),
		ComputedAt: clock.Now(),
	}
	kindSet := map[string]bool{}
	for station, byKind := range sums {
		out.stations = append(out.stations, station)
		out.cells[station] = make(map[string]float64, len(byKind))
		for kind, a := range byKind {
			out.cells[station][kind] = a.sum / float64(a.count)
			kindSet[kind] = true
		}
	}
	sort.Strings(out.stations)
	for kind := range kindSet {
		out.kinds = append(out.kinds, kind)
	}
	sort.Strings(out.kinds)
	return out, nil
}

// Stations returns the row labels in sorted order.
func (m *StationMeans) Stations() []string {
	return append([]string(nil), m.stations...)
}

// Kinds returns the column labels in sorted order.
func (m *StationMeans) Kinds() []string {
	return append([]string(nil), m.kinds...)
}

// Mean returns the mean for a (station, kind) pair. The second result is
// false when the pair had no observations.
func (m *StationMeans) Mean(station, kind string) (float64, bool) {
	byKind, ok := m.cells[station]
	if !ok {
		return 0, false
	}
	v, ok := byKind[kind]
	return v, ok
}

// Cells flattens the table into sorted (station, kind, mean) entries.
func (m *StationMeans) Cells() []MeanCell {
	out := make([]MeanCell, 0, len(m.stations)*len(m.kinds))
	for _, station := range m.stations {
		for _, kind := range m.kinds {
			if v, ok := m.Mean(station, kind); ok {
				out = append(out, MeanCell{Station: station, Measurement: kind, Mean: v})
			}
		}
	}
	return out
}
