package domain

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/couchcryptid/farm-survey-etl/internal/frame"
)

// Column labels shared by the weather pipeline and its sources.
const (
	ColStation     = "Weather_station_ID"
	ColMessage     = "Message"
	ColMeasurement = "Measurement"
	ColValue       = "Value"
)

// Pattern associates a measurement kind with a compiled expression. Patterns
// are carried in ordered slices; slice order is match precedence.
type Pattern struct {
	Kind string
	re   *regexp.Regexp
}

// CompilePattern compiles a pattern table entry. The expression must carry at
// least one capturing group, which is expected to match a numeric literal.
func CompilePattern(kind, expr string) (Pattern, error) {
	if kind == "" {
		return Pattern{}, fmt.Errorf("compile pattern: empty measurement kind")
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return Pattern{}, fmt.Errorf("compile pattern %q: %w", kind, err)
	}
	if re.NumSubexp() == 0 {
		return Pattern{}, fmt.Errorf("compile pattern %q: expression has no capturing group", kind)
	}
	return Pattern{Kind: kind, re: re}, nil
}

// Measurement is one typed reading extracted from a message.
type Measurement struct {
	Kind  string
	Value float64
}

// ExtractMeasurement runs the pattern table against one message in order and
// returns the first match's kind and parsed value. Later patterns are not
// tried once one matches. A message matching no pattern returns (nil, nil).
// A matched group that does not parse as a float is a hard error: the pattern
// table and the data disagree, and skipping silently would hide it.
func ExtractMeasurement(message string, patterns []Pattern) (*Measurement, error) {
	for _, p := range patterns {
		groups := p.re.FindStringSubmatch(message)
		if groups == nil {
			continue
		}
		raw := firstNonEmptyGroup(groups)
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("extract %s: matched group %q is not numeric: %w", p.Kind, raw, err)
		}
		return &Measurement{Kind: p.Kind, Value: value}, nil
	}
	return nil, nil
}

// firstNonEmptyGroup returns the first non-empty capturing group. Pattern
// tables may use alternations where only one branch's group is populated.
func firstNonEmptyGroup(groups []string) string {
	for _, g := range groups[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// ProcessMessages applies the extractor to every row's Message independently
// and populates Measurement and Value columns on the frame. Rows whose
// message matches no pattern keep null cells and are retained.
func ProcessMessages(f *frame.Frame, patterns []Pattern) error {
	if !f.Has(ColMessage) {
		return fmt.Errorf("process messages: frame has no %q column", ColMessage)
	}
	if err := f.AddColumn(ColMeasurement); err != nil {
		return fmt.Errorf("process messages: %w", err)
	}
	if err := f.AddColumn(ColValue); err != nil {
		return fmt.Errorf("process messages: %w", err)
	}

	for r := 0; r < f.Len(); r++ {
		cell, err := f.Value(r, ColMessage)
		if err != nil {
			return err
		}
		message, ok := frame.Text(cell)
		if !ok {
			continue
		}
		m, err := ExtractMeasurement(message, patterns)
		if err != nil {
			return fmt.Errorf("process messages: row %d: %w", r, err)
		}
		if m == nil {
			continue
		}
		if err := f.Set(r, ColMeasurement, m.Kind); err != nil {
			return err
		}
		if err := f.Set(r, ColValue, m.Value); err != nil {
			return err
		}
	}
	return nil
}
