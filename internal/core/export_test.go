package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullPoint(name string) Point {
	p := Point{Name: name}
	p.B = "39.5"
	p.L = "116.25"
	p.H = "48.125"
	p.X = "4380123.456"
	p.Y = "20654321.789"
	p.Z = "12.5"
	p.PlaneX = "1000.25"
	p.PlaneY = "2000.5"
	p.PlaneH = "3.75"
	return p
}

func fullResult(name string) Result {
	r := Result{Name: name, Error: "0.002"}
	for i, c := range Coords {
		r.Target.Set(c, ToFloat8(FormatFixed("100.5", i%3)))
	}
	return r
}

func TestSerialize_HeaderAndRows(t *testing.T) {
	p := Point{Name: "P01"}
	p.B = "39.5"
	p.X = "4380123.456"

	out, err := Serialize[Point]([]Point{p}, "\t", -1)
	require.NoError(t, err)
	assert.Equal(t,
		"name\tB\tL\tH\tX\tY\tZ\tx\ty\th\n"+
			"P01\t39.5\t\t\t4380123.456\t\t\t\t\t\n",
		out)
}

func TestSerialize_Decimals(t *testing.T) {
	p := Point{Name: "P01"}
	p.B = "1.23456"
	p.L = `39°30'00"`

	out, err := Serialize[Point]([]Point{p}, "\t", 3)
	require.NoError(t, err)
	lines := ParseRows(out)
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"P01", "1.235", `39°30'00"`}, lines[1][:3])
}

func TestSerialize_ResultNullsAreEmpty(t *testing.T) {
	r := Result{Name: "R1", Error: "diverged"}
	r.Target.X = ToFloat8("2")

	out, err := Serialize[Result]([]Result{r}, ";", 2)
	require.NoError(t, err)
	assert.Equal(t,
		"name;B;L;H;X;Y;Z;x;y;h;error\n"+
			"R1;;;;2.00;;;;;;diverged\n",
		out)
}

func TestSerialize_CommaQuoting(t *testing.T) {
	records := []Point{{Name: `A,B`}, {Name: `say "hi"`}, {Name: "two\nlines"}}

	out, err := Serialize[Point](records, ",", -1)
	require.NoError(t, err)
	assert.Contains(t, out, "\"A,B\",,,,,,,,,\n")
	assert.Contains(t, out, "\"say \"\"hi\"\"\",,,,,,,,,\n")
	assert.Contains(t, out, "\"two\nlines\",,,,,,,,,\n")
}

func TestSerialize_TabDoesNotQuote(t *testing.T) {
	out, err := Serialize[Point]([]Point{{Name: `A,"B"`}}, "\t", -1)
	require.NoError(t, err)
	assert.Contains(t, out, "\nA,\"B\"\t")
}

func TestSerialize_RoundTrip(t *testing.T) {
	for _, sep := range []string{",", "\t", ";", " "} {
		t.Run("point "+sepName(sep), func(t *testing.T) {
			records := []Point{fullPoint("P01"), fullPoint("P02")}

			out, err := Serialize[Point](records, sep, -1)
			require.NoError(t, err)

			rows, skipped := StripHeader(ParseRows(out), SchemaPoint)
			require.True(t, skipped)
			got, report := Build[Point](rows, Identity(SchemaPoint))
			assert.Equal(t, 0, report.Dropped)
			assert.Equal(t, records, got)
		})
	}

	t.Run("common point", func(t *testing.T) {
		c := CommonPoint{Name: "C1"}
		for i, coord := range Coords {
			c.Source.Set(coord, FormatFixed("10.5", i))
			c.Target.Set(coord, FormatFixed("20.25", i))
		}

		out, err := Serialize[CommonPoint]([]CommonPoint{c}, ",", -1)
		require.NoError(t, err)

		rows, _ := StripHeader(ParseRows(out), SchemaCommonPoint)
		got, _ := Build[CommonPoint](rows, Identity(SchemaCommonPoint))
		assert.Equal(t, []CommonPoint{c}, got)
	})

	t.Run("sparse point shifts left", func(t *testing.T) {
		p := Point{Name: "P1"}
		p.B = "1"
		p.X = "5"

		out, err := Serialize[Point]([]Point{p}, ",", 3)
		require.NoError(t, err)
		assert.Contains(t, out, "\nP1,1.000,,,5.000,,,,,\n")

		// Empty fields collapse on re-import, so X moves into L.
		rows, _ := StripHeader(ParseRows(out), SchemaPoint)
		got, _ := Build[Point](rows, Identity(SchemaPoint))
		require.Len(t, got, 1)
		assert.Equal(t, "1.000", got[0].B)
		assert.Equal(t, "5.000", got[0].L)
		assert.Empty(t, got[0].X)
	})

		t.Run("result up to precision", func(t *testing.T) {
		records := []Result{fullResult("R1")}

		out, err := Serialize[Result](records, ",", 3)
		require.NoError(t, err)

		rows, _ := StripHeader(ParseRows(out), SchemaResult)
		got, _ := Build[Result](rows, Identity(SchemaResult))
		require.Len(t, got, 1)
		for _, c := range Coords {
			assert.InDelta(t, records[0].Target.Get(c).Float64, got[0].Target.Get(c).Float64, 0.0005)
			assert.True(t, got[0].Target.Get(c).Valid)
		}
		assert.Equal(t, "0.002", got[0].Error)
	})
}

func sepName(sep string) string {
	switch sep {
	case ",":
		return "comma"
	case "\t":
		return "tab"
	case ";":
		return "semicolon"
	default:
		return "space"
	}
}

func TestParseSeparator(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", ",", false},
		{"comma", ",", false},
		{"TAB", "\t", false},
		{"semicolon", ";", false},
		{"space", " ", false},
		{"|", "|", false},
		{"pipes", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeparator(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
