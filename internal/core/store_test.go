package core

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(name string, coords map[Coord]string) Point {
	p := Point{Name: name}
	for c, v := range coords {
		p.Set(c, v)
	}
	return p
}

func populated(t *testing.T, records ...Point) *Store[Point, *Point] {
	t.Helper()
	s := NewStore[Point]()
	s.Populate(records)
	return s
}

func TestNewStore_SingleBlankRow(t *testing.T) {
	s := NewStore[CommonPoint]()
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.IsEmpty())
	assert.Equal(t, SchemaCommonPoint, s.Kind())
}

func TestStore_PopulateEmptyInsertsBlankRow(t *testing.T) {
	s := populated(t, point("P01", nil))
	s.Populate(nil)
	assert.Equal(t, []Point{{}}, s.Records())
}

func TestStore_MergeScenario(t *testing.T) {
	s := populated(t, point("P01", map[Coord]string{CoordX: "1"}))

	res := s.Merge([]Point{
		point("P01", map[Coord]string{CoordY: "2"}),
		point("P02", map[Coord]string{CoordX: "9"}),
	})

	assert.Equal(t, MergeResult{Updated: 1, Appended: 1}, res)
	assert.Equal(t, []Point{
		point("P01", map[Coord]string{CoordX: "1", CoordY: "2"}),
		point("P02", map[Coord]string{CoordX: "9"}),
	}, s.Records())
}

func TestStore_MergeIsIdempotent(t *testing.T) {
	batch := []Point{
		point("P01", map[Coord]string{CoordX: "1", CoordY: "2"}),
		point("P02", map[Coord]string{CoordB: "39.5"}),
		point("", map[Coord]string{CoordZ: "7"}),
	}
	named := batch[:2]

	once := populated(t, point("P00", map[Coord]string{CoordH: "10"}))
	once.Merge(named)

	twice := populated(t, point("P00", map[Coord]string{CoordH: "10"}))
	twice.Merge(named)
	res := twice.Merge(named)

	assert.Equal(t, MergeResult{Updated: 2}, res)
	assert.Equal(t, once.Records(), twice.Records())
}

func TestStore_MergePreservesOrder(t *testing.T) {
	s := populated(t,
		point("A", nil),
		point("B", map[Coord]string{CoordX: "1"}),
		point("C", nil),
	)

	s.Merge([]Point{
		point("Z", nil),
		point("B", map[Coord]string{CoordY: "2"}),
		point("Y", nil),
		point("A", map[Coord]string{CoordX: "3"}),
		point("X", nil),
	})

	var names []string
	for _, p := range s.Records() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"A", "B", "C", "Z", "Y", "X"}, names)
}

func TestStore_MergeNeverBlanksFields(t *testing.T) {
	s := NewStore[CommonPoint]()
	existing := CommonPoint{Name: "P1"}
	existing.Source.X = "1"
	existing.Source.Y = "2"
	s.Populate([]CommonPoint{existing})

	incoming := CommonPoint{Name: "P1"}
	incoming.Target.X = "5"
	s.Merge([]CommonPoint{incoming})

	want := CommonPoint{Name: "P1"}
	want.Source.X = "1"
	want.Source.Y = "2"
	want.Target.X = "5"
	assert.Equal(t, []CommonPoint{want}, s.Records())
}

func TestStore_MergeBlankNamesNeverMatch(t *testing.T) {
	s := populated(t, point("", map[Coord]string{CoordX: "1"}))

	res := s.Merge([]Point{
		point("", map[Coord]string{CoordX: "2"}),
		point("   ", map[Coord]string{CoordX: "3"}),
	})

	assert.Equal(t, MergeResult{Appended: 2}, res)
	assert.Equal(t, 3, s.Len())
}

func TestStore_MergeNameMatching(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		matches  bool
	}{
		{"identical", "P01", true},
		{"surrounding whitespace", "  P01\t", true},
		{"different case", "p01", false},
		{"inner whitespace", "P 01", false},
		{"full-width digits", "P０１", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := populated(t, point("P01", nil))
			res := s.Merge([]Point{point(tt.incoming, map[Coord]string{CoordX: "1"})})
			if tt.matches {
				assert.Equal(t, MergeResult{Updated: 1}, res)
				assert.Equal(t, "P01", s.Records()[0].Name, "stored name is kept")
			} else {
				assert.Equal(t, MergeResult{Appended: 1}, res)
			}
		})
	}
}

func TestStore_MergeFoldsDuplicatesInBatch(t *testing.T) {
	s := populated(t, point("P00", nil))

	res := s.Merge([]Point{
		point("P01", map[Coord]string{CoordX: "1"}),
		point("P01", map[Coord]string{CoordY: "2"}),
	})

	assert.Equal(t, MergeResult{Updated: 1, Appended: 1}, res)
	assert.Equal(t, []Point{
		point("P00", nil),
		point("P01", map[Coord]string{CoordX: "1", CoordY: "2"}),
	}, s.Records())
}

func TestStore_MergeResultKeepsNullCoordinates(t *testing.T) {
	s := NewStore[Result]()
	first := Result{Name: "R1", Error: "ok"}
	first.Target.X = ToFloat8("10")
	s.Populate([]Result{first})

	update := Result{Name: "R1"}
	update.Target.Y = ToFloat8("20")
	s.Merge([]Result{update})

	got := s.Records()[0]
	assert.Equal(t, ToFloat8("10"), got.Target.X)
	assert.Equal(t, ToFloat8("20"), got.Target.Y)
	assert.Equal(t, "ok", got.Error)
}

func TestStore_PreviewMergeDoesNotMutate(t *testing.T) {
	s := populated(t, point("P01", nil))
	before := s.Records()

	res := s.PreviewMerge([]Point{point("P01", nil), point("P02", nil), point("P02", nil)})

	assert.Equal(t, MergeResult{Updated: 2, Appended: 1}, res)
	assert.Equal(t, before, s.Records())
}

func TestStore_ImportRows(t *testing.T) {
	t.Run("blank store is replaced", func(t *testing.T) {
		s := NewStore[Point]()
		rows := ParseRows("P01 1\nP02 2")

		summary, err := s.ImportRows(rows, AutoMatch(rows, SchemaPoint), ModeMerge)
		require.NoError(t, err)
		assert.True(t, summary.Replaced)
		assert.Equal(t, 2, summary.Appended)
		assert.Equal(t, 2, s.Len(), "placeholder row does not survive")
	})

	t.Run("non-empty store is merged", func(t *testing.T) {
		s := populated(t, point("P01", map[Coord]string{CoordX: "1"}))
		rows := ParseRows("P01 5\nP03 6")

		summary, err := s.ImportRows(rows, AutoMatch(rows, SchemaPoint), ModeMerge)
		require.NoError(t, err)
		assert.False(t, summary.Replaced)
		assert.Equal(t, MergeResult{Updated: 1, Appended: 1}, summary.MergeResult)
		assert.Equal(t, "1", s.Records()[0].X)
		assert.Equal(t, "5", s.Records()[0].B)
	})

	t.Run("replace mode discards existing records", func(t *testing.T) {
		s := populated(t, point("OLD", nil))
		rows := ParseRows("P01 5")

		summary, err := s.ImportRows(rows, AutoMatch(rows, SchemaPoint), ModeReplace)
		require.NoError(t, err)
		assert.True(t, summary.Replaced)
		assert.Equal(t, []Point{point("P01", map[Coord]string{CoordB: "5"})}, s.Records())
	})

	t.Run("no valid rows leaves store untouched", func(t *testing.T) {
		s := populated(t, point("P01", nil))
		rows := ParseRows("P09 5")

		summary, err := s.ImportRows(rows, Mapping{}, ModeReplace)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNoValidRows))

		var ie *ImportError
		require.True(t, errors.As(err, &ie))
		assert.Equal(t, 1, ie.Attempted)
		assert.Equal(t, 0, ie.Kept)
		assert.Equal(t, 1, summary.Dropped)
		assert.Equal(t, []Point{point("P01", nil)}, s.Records())
	})

	t.Run("no rows is empty input", func(t *testing.T) {
		s := NewStore[Point]()
		_, err := s.ImportRows(nil, Identity(SchemaPoint), ModeMerge)
		assert.True(t, errors.Is(err, ErrEmptyInput))
	})
}

func TestStore_AddRowAndClear(t *testing.T) {
	s := populated(t, point("P01", nil))
	assert.Equal(t, 2, s.AddRow())
	assert.False(t, s.IsEmpty())

	s.Clear()
	assert.Equal(t, 1, s.Len())
	assert.True(t, s.IsEmpty())
}

func TestStore_PopulateJSON(t *testing.T) {
	s := NewStore[Result]()
	n, err := s.PopulateJSON([]byte(`[{"name":"R1","target":{"X":1.5,"Y":null},"error":""}]`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := s.Records()[0]
	assert.Equal(t, ToFloat8("1.5"), got.Target.X)
	assert.False(t, got.Target.Y.Valid)

	_, err = s.PopulateJSON([]byte(`{"not":"an array"}`))
	assert.Error(t, err)
	assert.Equal(t, 1, s.Len(), "failed populate keeps contents")
}

func TestStore_ImportGuard(t *testing.T) {
	s := NewStore[Point]()
	require.True(t, s.TryAcquireImport())
	assert.False(t, s.TryAcquireImport())
	s.ReleaseImport()
	assert.True(t, s.TryAcquireImport())
	s.ReleaseImport()
}

func TestStore_ConcurrentMerges(t *testing.T) {
	s := NewStore[Point]()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Merge([]Point{point(fmt.Sprintf("P%02d", i%5), map[Coord]string{CoordX: "1"})})
		}(i)
	}
	wg.Wait()

	// One placeholder row plus five distinct names.
	assert.Equal(t, 6, s.Len())
}
