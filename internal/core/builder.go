package core

import "strings"

// Build applies a mapping to every raw row and returns the records that carry
// at least one non-blank slot after coercion. Fully blank rows are dropped
// without error; pasted data often contains decorative or spacer lines. A
// Result row whose only cells are unparsable numbers is blank as well.
//
// Tokens beyond the schema's expected column count are ignored. The report
// counts such rows so callers can warn about them.
func Build[R any, P Record[R]](rows [][]string, mapping Mapping) ([]R, BuildReport) {
	kind := kindOf[R, P]()
	slots := slotsOf(kind)
	expected := len(slots)

	report := BuildReport{Attempted: len(rows)}
	out := make([]R, 0, len(rows))

	for _, row := range rows {
		var rec R
		p := P(&rec)

		for i, slot := range slots {
			v := strings.TrimSpace(cell(row, mapping.Column(i)))
			if v == "" {
				continue
			}
			p.setSlot(slot, v)
		}

		if isBlank[R, P](&rec) {
			report.Dropped++
			continue
		}
		if len(row) > expected {
			report.Truncated++
		}
		out = append(out, rec)
	}

	report.Kept = len(out)
	return out, report
}

// cell returns row[col], or "" when col is unassigned or out of range.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}
