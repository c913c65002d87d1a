package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/couchcryptid/farm-survey-etl/internal/frame"
)

// NormalizeCategories canonicalizes a categorical column and reports how many
// cells changed. Values are trimmed of surrounding whitespace, then looked up
// in the alias table; known aliases are replaced with their canonical label
// and anything else passes through unchanged. Trimming is part of the
// canonical contract, so "wheat " and "wheat" normalize identically. Null
// cells stay null.
func NormalizeCategories(f *frame.Frame, col string, aliases map[string]string) (int, error) {
	changed := 0
	err := f.Apply(col, func(v any) (any, error) {
		s, ok := frame.Text(v)
		if !ok {
			return v, nil
		}
		out := strings.TrimSpace(s)
		if canonical, known := aliases[out]; known {
			out = canonical
		}
		if out != s {
			changed++
		}
		return out, nil
	})
	if err != nil {
		return 0, fmt.Errorf("normalize categories: %w", err)
	}
	return changed, nil
}

// AbsoluteValues replaces every value in a numeric column with its absolute
// value and reports how many cells were flipped. This corrects a known
// sign-flip bug in the survey export; negative inputs are silently fixed,
// never rejected. Null cells stay null, but a value that is not numeric at
// all is a hard error.
func AbsoluteValues(f *frame.Frame, col string) (int, error) {
	changed := 0
	err := f.Apply(col, func(v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		n, ok := frame.Float(v)
		if !ok {
			return nil, fmt.Errorf("value %v is not numeric", v)
		}
		if n < 0 {
			changed++
		}
		return math.Abs(n), nil
	})
	if err != nil {
		return 0, fmt.Errorf("absolute values: %w", err)
	}
	return changed, nil
}
