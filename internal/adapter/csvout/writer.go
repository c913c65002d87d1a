package csvout

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/farm-survey-etl/internal/domain"
	"github.com/couchcryptid/farm-survey-etl/internal/frame"
)

// WriteFrame writes f to a CSV file at path, creating parent directories as
// needed. Nil cells become empty fields.
func WriteFrame(path string, f *frame.Frame) error {
	w, file, err := open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := w.Write(f.Columns()); err != nil {
		return fmt.Errorf("write header to %s: %w", path, err)
	}

	record := make([]string, len(f.Columns()))
	for i := 0; i < f.Len(); i++ {
		for j, col := range f.Columns() {
			v, err := f.Value(i, col)
			if err != nil {
				return err
			}
			record[j] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row %d to %s: %w", i, path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

// WriteMeans writes the pivoted station-means table: one row per station, one
// column per measurement kind, empty fields where a station never reported
// that kind.
func WriteMeans(path string, means *domain.StationMeans) error {
	w, file, err := open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	kinds := means.Kinds()
	header := append([]string{domain.ColStation}, kinds...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header to %s: %w", path, err)
	}

	record := make([]string, len(header))
	for _, station := range means.Stations() {
		record[0] = station
		for j, kind := range kinds {
			if mean, ok := means.Mean(station, kind); ok {
				record[j+1] = strconv.FormatFloat(mean, 'g', -1, 64)
			} else {
				record[j+1] = ""
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write station %s to %s: %w", station, path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

func open(path string) (*csv.Writer, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output dir for %s: %w", path, err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return csv.NewWriter(file), file, nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
