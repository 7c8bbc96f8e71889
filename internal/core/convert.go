package core

// convert.go provides conversions between raw cell text and numeric values.
//
// Computed result coordinates are stored as pgtype.Float8 so that a missing
// or non-finite value is an explicit NULL rather than a zero. Common point and
// point coordinates stay text; they may hold degree/minute/second notation
// that only the caller knows how to decode.

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a plain decimal number.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ToFloat8 converts a string to pgtype.Float8.
// Returns invalid for empty, unparseable, or non-finite input.
func ToFloat8(s string) pgtype.Float8 {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return pgtype.Float8{Valid: false}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// Float8Text renders a Float8 with the shortest exact representation,
// or "" when it is NULL.
func Float8Text(f pgtype.Float8) string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Float64, 'f', -1, 64)
}

// FormatFixed renders numeric text with the given number of decimal places.
// Text that is not a plain number (angle notation, remarks) is returned as is;
// a negative precision also leaves the value untouched.
func FormatFixed(s string, decimals int) string {
	s = strings.TrimSpace(s)
	if s == "" || decimals < 0 {
		return s
	}
	f := ToFloat8(s)
	if !f.Valid {
		return s
	}
	return strconv.FormatFloat(f.Float64, 'f', decimals, 64)
}
