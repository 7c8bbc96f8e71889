package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoMatch(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		kind SchemaKind
		want Mapping
	}{
		{
			name: "five columns against point schema",
			rows: [][]string{{"P01", "39.5", "116.3", "4380123.456", "20654321.789"}},
			kind: SchemaPoint,
			want: Mapping{0, 1, 2, 3, 4, -1, -1, -1, -1, -1},
		},
		{
			name: "widest preview row wins",
			rows: [][]string{{"P01", "1"}, {"P02", "1", "2", "3"}},
			kind: SchemaPoint,
			want: Mapping{0, 1, 2, 3, -1, -1, -1, -1, -1, -1},
		},
		{
			name: "surplus columns ignored",
			rows: [][]string{make([]string, 14)},
			kind: SchemaResult,
			want: Mapping{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
		{
			name: "no rows leaves everything unassigned",
			rows: nil,
			kind: SchemaPoint,
			want: Mapping{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AutoMatch(tt.rows, tt.kind))
		})
	}
}

func TestAutoMatchColumns_NamePinnedToFirstColumn(t *testing.T) {
	m := AutoMatchColumns(SchemaCommonPoint, 1)
	assert.Equal(t, 0, m.Column(0))
	assert.Equal(t, 1, m.Assigned())
}

func TestIdentity(t *testing.T) {
	m := Identity(SchemaResult)
	require.Len(t, m, 11)
	for i := range m {
		assert.Equal(t, i, m[i])
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		assignments []int
		want        Mapping
	}{
		{
			name:        "reordered columns",
			assignments: []int{4, 0, 5},
			want:        Mapping{1, -1, -1, -1, 0, 2, -1, -1, -1, -1},
		},
		{
			name:        "not imported columns skipped",
			assignments: []int{0, NotImported, 4, -7},
			want:        Mapping{0, -1, -1, -1, 2, -1, -1, -1, -1, -1},
		},
		{
			name:        "last write wins",
			assignments: []int{0, 4, 4},
			want:        Mapping{0, -1, -1, -1, 2, -1, -1, -1, -1, -1},
		},
		{
			name:        "all unassigned is legal",
			assignments: []int{-1, -1},
			want:        Mapping{-1, -1, -1, -1, -1, -1, -1, -1, -1, -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(SchemaPoint, tt.assignments)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_OutOfRange(t *testing.T) {
	_, err := Resolve(SchemaPoint, []int{0, 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidMapping))
}

func TestMapping_Assignments(t *testing.T) {
	m := Mapping{1, -1, -1, -1, 0, 2, -1, -1, -1, -1}
	assert.Equal(t, []int{4, 0, 5, NotImported}, m.Assignments(4))

	back, err := Resolve(SchemaPoint, m.Assignments(3))
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestStripHeader(t *testing.T) {
	header := Lookup(SchemaPoint).Labels()
	rows := [][]string{header, {"P01", "1"}}

	got, skipped := StripHeader(rows, SchemaPoint)
	assert.True(t, skipped)
	assert.Equal(t, [][]string{{"P01", "1"}}, got)

	got, skipped = StripHeader(rows[1:], SchemaPoint)
	assert.False(t, skipped)
	assert.Len(t, got, 1)

	// A point header is not a result header.
	_, skipped = StripHeader(rows, SchemaResult)
	assert.False(t, skipped)

	_, skipped = StripHeader(nil, SchemaPoint)
	assert.False(t, skipped)
}

func TestEqualHeaders(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want bool
	}{
		{
			name: "exact match",
			a:    []string{"name", "B", "L"},
			b:    []string{"name", "B", "L"},
			want: true,
		},
		{
			name: "case insensitive match",
			a:    []string{"NAME", "SOURCE.B"},
			b:    []string{"name", "source.B"},
			want: true,
		},
		{
			name: "with whitespace trimming",
			a:    []string{"  name  ", " B "},
			b:    []string{"name", "B"},
			want: true,
		},
		{
			name: "row has extra columns",
			a:    []string{"name", "B", "extra"},
			b:    []string{"name", "B"},
			want: true,
		},
		{
			name: "row missing a column",
			a:    []string{"name"},
			b:    []string{"name", "B"},
			want: false,
		},
		{
			name: "different order",
			a:    []string{"B", "name"},
			b:    []string{"name", "B"},
			want: false,
		},
		{
			name: "data row",
			a:    []string{"P01", "39.5"},
			b:    []string{"name", "B"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := equalHeaders(tt.a, tt.b)
			if got != tt.want {
				t.Errorf("equalHeaders(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
