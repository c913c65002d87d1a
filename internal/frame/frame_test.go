package frame

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeFrame(t *testing.T, cols []string, rows ...[]any) *Frame {
	t.Helper()
	f, err := New(cols...)
	require.NoError(t, err)
	for _, r := range rows {
		require.NoError(t, f.AppendRow(r...))
	}
	return f
}

func column(t *testing.T, f *Frame, col string) []any {
	t.Helper()
	out := make([]any, 0, f.Len())
	for r := 0; r < f.Len(); r++ {
		v, err := f.Value(r, col)
		require.NoError(t, err)
		out = append(out, v)
	}
	return out
}

func TestNew(t *testing.T) {
	t.Run("duplicate column rejected", func(t *testing.T) {
		_, err := New("A", "B", "A")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"A"`)
	})

	t.Run("empty column rejected", func(t *testing.T) {
		_, err := New("A", "")
		require.Error(t, err)
	})
}

func TestAppendRow_WidthMismatch(t *testing.T) {
	f := makeFrame(t, []string{"A", "B"})
	err := f.AppendRow("only one")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 values, want 2")
}

func TestSwap(t *testing.T) {
	t.Run("exchanges contents under labels", func(t *testing.T) {
		f := makeFrame(t, []string{"Annual_yield", "Crop_type", "Field_ID"},
			[]any{"cassava", 2.1, int64(1)},
			[]any{"tea", 1.7, int64(2)},
		)

		require.NoError(t, f.Swap("Annual_yield", "Crop_type"))

		assert.Equal(t, []any{2.1, 1.7}, column(t, f, "Annual_yield"))
		assert.Equal(t, []any{"cassava", "tea"}, column(t, f, "Crop_type"))
		assert.Equal(t, []any{int64(1), int64(2)}, column(t, f, "Field_ID"))
	})

	t.Run("involutive", func(t *testing.T) {
		f := makeFrame(t, []string{"A", "B"},
			[]any{1.0, "x"},
			[]any{2.0, "y"},
		)
		want := f.Clone()

		require.NoError(t, f.Swap("A", "B"))
		require.NoError(t, f.Swap("A", "B"))

		assert.Equal(t, want.Columns(), f.Columns())
		assert.Equal(t, column(t, want, "A"), column(t, f, "A"))
		assert.Equal(t, column(t, want, "B"), column(t, f, "B"))
	})

	t.Run("placeholder collision extends deterministically", func(t *testing.T) {
		f := makeFrame(t, []string{"A", "B", "__column_swap__", "__column_swap___"},
			[]any{1.0, 2.0, 3.0, 4.0},
		)

		require.NoError(t, f.Swap("A", "B"))

		assert.Equal(t, []any{2.0}, column(t, f, "A"))
		assert.Equal(t, []any{1.0}, column(t, f, "B"))
		assert.Equal(t, []any{3.0}, column(t, f, "__column_swap__"))
		assert.Equal(t, []any{4.0}, column(t, f, "__column_swap___"))
	})

	t.Run("missing column leaves frame untouched", func(t *testing.T) {
		f := makeFrame(t, []string{"A", "B"}, []any{1.0, 2.0})
		err := f.Swap("A", "nope")
		require.Error(t, err)
		assert.Equal(t, []string{"A", "B"}, f.Columns())
		assert.Equal(t, []any{1.0}, column(t, f, "A"))
	})

	t.Run("same column is a no-op", func(t *testing.T) {
		f := makeFrame(t, []string{"A"}, []any{1.0})
		require.NoError(t, f.Swap("A", "A"))
		assert.Equal(t, []any{1.0}, column(t, f, "A"))
	})
}

func TestLeftJoin(t *testing.T) {
	fields := makeFrame(t, []string{"Field_ID", "Crop_type"},
		[]any{int64(1), "tea"},
		[]any{int64(7), "maize"},
		[]any{nil, "banana"},
	)
	mapping := makeFrame(t, []string{"Field_ID", "Weather_station_ID"},
		[]any{"1", int64(4)},
	)

	t.Run("unmatched rows keep nulls, never dropped", func(t *testing.T) {
		out, err := fields.LeftJoin(mapping, "Field_ID")
		require.NoError(t, err)

		assert.Equal(t, []string{"Field_ID", "Crop_type", "Weather_station_ID"}, out.Columns())
		require.Equal(t, 3, out.Len())

		// int64 1 on the left joins string "1" on the right.
		assert.Equal(t, []any{int64(4), nil, nil}, column(t, out, "Weather_station_ID"))

		// Field 7 survives with its own data intact.
		v, err := out.Value(1, "Crop_type")
		require.NoError(t, err)
		assert.Equal(t, "maize", v)
	})

	t.Run("duplicate mapping keys fan out", func(t *testing.T) {
		dup := makeFrame(t, []string{"Field_ID", "Weather_station_ID"},
			[]any{int64(1), "A"},
			[]any{int64(1), "B"},
		)
		out, err := fields.LeftJoin(dup, "Field_ID")
		require.NoError(t, err)
		require.Equal(t, 4, out.Len())
		assert.Equal(t, []any{"A", "B", nil, nil}, column(t, out, "Weather_station_ID"))
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		_, err := fields.LeftJoin(mapping, "Field_ID")
		require.NoError(t, err)
		assert.Equal(t, []string{"Field_ID", "Crop_type"}, fields.Columns())
		assert.Equal(t, 3, fields.Len())
	})

	t.Run("missing key column", func(t *testing.T) {
		_, err := fields.LeftJoin(mapping, "nope")
		require.Error(t, err)
	})

	t.Run("colliding non-key column", func(t *testing.T) {
		clash := makeFrame(t, []string{"Field_ID", "Crop_type"}, []any{int64(1), "x"})
		_, err := fields.LeftJoin(clash, "Field_ID")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "both sides")
	})
}

func TestApply(t *testing.T) {
	f := makeFrame(t, []string{"n"}, []any{1.0}, []any{-2.0})

	t.Run("transforms every cell", func(t *testing.T) {
		err := f.Apply("n", func(v any) (any, error) {
			n, _ := Float(v)
			return n * 10, nil
		})
		require.NoError(t, err)
		assert.Equal(t, []any{10.0, -20.0}, column(t, f, "n"))
	})

	t.Run("error carries row position", func(t *testing.T) {
		boom := errors.New("boom")
		err := f.Apply("n", func(v any) (any, error) { return nil, boom })
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "row 0")
	})
}

func TestAddDropColumn(t *testing.T) {
	f := makeFrame(t, []string{"A", "B"}, []any{1.0, 2.0})

	require.NoError(t, f.AddColumn("C"))
	assert.Equal(t, []any{nil}, column(t, f, "C"))

	require.NoError(t, f.DropColumn("B"))
	assert.Equal(t, []string{"A", "C"}, f.Columns())
	assert.Equal(t, []any{1.0}, column(t, f, "A"))

	err := f.AddColumn("A")
	require.Error(t, err)
}

func TestClone(t *testing.T) {
	f := makeFrame(t, []string{"A"}, []any{"x"})
	c := f.Clone()
	require.NoError(t, c.Set(0, "A", "changed"))

	v, err := f.Value(0, "A")
	require.NoError(t, err)
	assert.Equal(t, "x", v)

	if diff := cmp.Diff([]string{"A"}, c.Columns()); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float64", 1.5, 1.5, true},
		{"int64", int64(3), 3, true},
		{"numeric string", "12.5", 12.5, true},
		{"negative string", "-7", -7, true},
		{"word", "maize", 0, false},
		{"null", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Float(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
		ok   bool
	}{
		{"string", "x", "x", true},
		{"bytes", []byte("y"), "y", true},
		{"int64", int64(7), "7", true},
		{"float", 2.5, "2.5", true},
		{"null", nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Text(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
