// Package frame provides a small in-memory table of rows with named columns,
// the shape both data sources yield and both pipelines transform. Cells are
// dynamically typed: nil (null), string, float64, or int64.
package frame

import (
	"fmt"
	"strconv"
)

// swapPlaceholder is the default transient label used by Swap. If a source
// table already carries a column with this name, the label is extended with
// underscores until it is unique.
const swapPlaceholder = "__column_swap__"

// Frame is a rectangular table addressed by column label. The zero value is
// not usable; construct with New.
type Frame struct {
	cols  []string
	index map[string]int
	rows  [][]any
}

// New creates an empty Frame with the given column labels.
func New(cols ...string) (*Frame, error) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if c == "" {
			return nil, fmt.Errorf("frame: empty column name at position %d", i)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("frame: duplicate column %q", c)
		}
		index[c] = i
	}
	return &Frame{
		cols:  append([]string(nil), cols...),
		index: index,
	}, nil
}

// Columns returns a copy of the column labels in order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.cols...)
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.rows) }

// Has reports whether a column with the given label exists.
func (f *Frame) Has(col string) bool {
	_, ok := f.index[col]
	return ok
}

// AppendRow adds a row. The number of values must match the column count.
func (f *Frame) AppendRow(values ...any) error {
	if len(values) != len(f.cols) {
		return fmt.Errorf("frame: row has %d values, want %d", len(values), len(f.cols))
	}
	f.rows = append(f.rows, append([]any(nil), values...))
	return nil
}

// Value returns the cell at (row, col).
func (f *Frame) Value(row int, col string) (any, error) {
	i, ok := f.index[col]
	if !ok {
		return nil, fmt.Errorf("frame: no column %q", col)
	}
	if row < 0 || row >= len(f.rows) {
		return nil, fmt.Errorf("frame: row %d out of range [0,%d)", row, len(f.rows))
	}
	return f.rows[row][i], nil
}

// Set overwrites the cell at (row, col).
func (f *Frame) Set(row int, col string, v any) error {
	i, ok := f.index[col]
	if !ok {
		return fmt.Errorf("frame: no column %q", col)
	}
	if row < 0 || row >= len(f.rows) {
		return fmt.Errorf("frame: row %d out of range [0,%d)", row, len(f.rows))
	}
	f.rows[row][i] = v
	return nil
}

// AddColumn appends a new null-filled column.
func (f *Frame) AddColumn(col string) error {
	if col == "" {
		return fmt.Errorf("frame: empty column name")
	}
	if f.Has(col) {
		return fmt.Errorf("frame: column %q already exists", col)
	}
	f.index[col] = len(f.cols)
	f.cols = append(f.cols, col)
	for i := range f.rows {
		f.rows[i] = append(f.rows[i], nil)
	}
	return nil
}

// DropColumn removes a column and its cells.
func (f *Frame) DropColumn(col string) error {
	i, ok := f.index[col]
	if !ok {
		return fmt.Errorf("frame: no column %q", col)
	}
	f.cols = append(f.cols[:i], f.cols[i+1:]...)
	delete(f.index, col)
	for c, j := range f.index {
		if j > i {
			f.index[c] = j - 1
		}
	}
	for r := range f.rows {
		f.rows[r] = append(f.rows[r][:i], f.rows[r][i+1:]...)
	}
	return nil
}

// Rename changes a column label. Cell data stays in place.
func (f *Frame) Rename(from, to string) error {
	i, ok := f.index[from]
	if !ok {
		return fmt.Errorf("frame: no column %q", from)
	}
	if to == "" {
		return fmt.Errorf("frame: empty column name")
	}
	if from == to {
		return nil
	}
	if f.Has(to) {
		return fmt.Errorf("frame: column %q already exists", to)
	}
	delete(f.index, from)
	f.index[to] = i
	f.cols[i] = to
	return nil
}

// Swap exchanges the contents under two column labels: the values addressed by
// a end up addressed by b and vice versa. The exchange rotates labels through
// a transient placeholder, extended with underscores until it collides with no
// existing column. Both columns are validated before the first rename, so the
// frame is either fully swapped or untouched.
func (f *Frame) Swap(a, b string) error {
	if !f.Has(a) {
		return fmt.Errorf("frame: swap: no column %q", a)
	}
	if !f.Has(b) {
		return fmt.Errorf("frame: swap: no column %q", b)
	}
	if a == b {
		return nil
	}

	tmp := swapPlaceholder
	for f.Has(tmp) {
		tmp += "_"
	}

	// None of these renames can fail: both sources exist and both targets are
	// free, which Rename verified preconditions for above.
	_ = f.Rename(a, tmp)
	_ = f.Rename(b, a)
	_ = f.Rename(tmp, b)
	return nil
}

// Apply replaces every cell of a column with fn(cell). The first error aborts
// with the row position attached.
func (f *Frame) Apply(col string, fn func(v any) (any, error)) error {
	i, ok := f.index[col]
	if !ok {
		return fmt.Errorf("frame: no column %q", col)
	}
	for r := range f.rows {
		v, err := fn(f.rows[r][i])
		if err != nil {
			return fmt.Errorf("frame: column %q row %d: %w", col, r, err)
		}
		f.rows[r][i] = v
	}
	return nil
}

// LeftJoin merges another frame on a shared key column. Every row of f is
// preserved: rows without a match carry nulls in the joined columns, and
// duplicate keys on the right fan the row out, one result row per match.
// Null keys never match. The result is a new frame; neither input is mutated.
func (f *Frame) LeftJoin(right *Frame, key string) (*Frame, error) {
	li, ok := f.index[key]
	if !ok {
		return nil, fmt.Errorf("frame: left join: left side has no column %q", key)
	}
	ri, ok := right.index[key]
	if !ok {
		return nil, fmt.Errorf("frame: left join: right side has no column %q", key)
	}

	// Joined columns: all right columns except the key itself.
	joined := make([]int, 0, len(right.cols)-1)
	outCols := append([]string(nil), f.cols...)
	for j, c := range right.cols {
		if j == ri {
			continue
		}
		if f.Has(c) {
			return nil, fmt.Errorf("frame: left join: column %q exists on both sides", c)
		}
		joined = append(joined, j)
		outCols = append(outCols, c)
	}

	byKey := make(map[string][]int, right.Len())
	for r := range right.rows {
		k, ok := joinKey(right.rows[r][ri])
		if !ok {
			continue
		}
		byKey[k] = append(byKey[k], r)
	}

	out, err := New(outCols...)
	if err != nil {
		return nil, err
	}
	for r := range f.rows {
		var matches []int
		if k, ok := joinKey(f.rows[r][li]); ok {
			matches = byKey[k]
		}
		if len(matches) == 0 {
			row := append([]any(nil), f.rows[r]...)
			for range joined {
				row = append(row, nil)
			}
			out.rows = append(out.rows, row)
			continue
		}
		for _, m := range matches {
			row := append([]any(nil), f.rows[r]...)
			for _, j := range joined {
				row = append(row, right.rows[m][j])
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	out, _ := New(f.cols...)
	out.rows = make([][]any, len(f.rows))
	for r := range f.rows {
		out.rows[r] = append([]any(nil), f.rows[r]...)
	}
	return out
}

// joinKey canonicalizes a cell for key comparison. The survey database yields
// int64 identifiers while CSVs yield strings, so numeric values (including
// numeric-looking strings) collapse to one canonical form. Null cells have no
// key.
func joinKey(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	if n, ok := Float(v); ok {
		return strconv.FormatFloat(n, 'g', -1, 64), true
	}
	s, _ := Text(v)
	return s, true
}

// Float converts a cell to float64. Strings are parsed; null and
// unparseable values report false.
func Float(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		parsed, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// Text converts a cell to its string form. Null cells report false.
func Text(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case []byte:
		return string(s), true
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case int:
		return strconv.Itoa(s), true
	default:
		return fmt.Sprint(s), true
	}
}
