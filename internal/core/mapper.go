package core

// mapper.go proposes and resolves column mappings.
//
// AutoMatch is a positional default, not a content classifier: slot i reads
// raw column i, and the name slot is pinned to column 0 because point
// identifiers conventionally come first. Resolve turns the per-column choices
// of a mapping UI into a slot-indexed Mapping.

import (
	"fmt"
	"strings"
)

// Identity returns the mapping slot i -> column i.
func Identity(kind SchemaKind) Mapping {
	m := make(Mapping, len(slotsOf(kind)))
	for i := range m {
		m[i] = i
	}
	return m
}

// AutoMatch proposes a mapping for the given preview rows.
// Slots beyond the widest preview row are left unassigned.
func AutoMatch(previewRows [][]string, kind SchemaKind) Mapping {
	return AutoMatchColumns(kind, MaxColumns(previewRows))
}

// AutoMatchColumns is AutoMatch for a known raw column count.
func AutoMatchColumns(kind SchemaKind, columns int) Mapping {
	slots := slotsOf(kind)
	m := make(Mapping, len(slots))
	for i, slot := range slots {
		switch {
		case columns == 0:
			m[i] = NotImported
		case slot.Kind == SlotName:
			m[i] = 0
		case i < columns:
			m[i] = i
		default:
			m[i] = NotImported
		}
	}
	return m
}

// Resolve inverts per-raw-column assignments into a slot-indexed Mapping.
// assignments[col] is the slot that column feeds, or NotImported (any negative
// value). When two columns claim the same slot the later column wins.
func Resolve(kind SchemaKind, assignments []int) (Mapping, error) {
	slots := slotsOf(kind)
	m := make(Mapping, len(slots))
	for i := range m {
		m[i] = NotImported
	}

	for col, slot := range assignments {
		if slot < 0 {
			continue
		}
		if slot >= len(slots) {
			return nil, fmt.Errorf("%w: column %d targets slot %d, %s has %d slots",
				ErrInvalidMapping, col, slot, kind, len(slots))
		}
		m[slot] = col
	}
	return m, nil
}

// StripHeader drops a leading header row that repeats the schema's export
// labels, so the exporter's own output imports cleanly.
// Returns the remaining rows and whether a header was removed.
func StripHeader(rows [][]string, kind SchemaKind) ([][]string, bool) {
	if len(rows) == 0 {
		return rows, false
	}
	if equalHeaders(rows[0], schemaOf(kind).Labels()) {
		return rows[1:], true
	}
	return rows, false
}

func equalHeaders(a, b []string) bool {
	if len(a) < len(b) {
		return false
	}

	for i := range b {
		if !strings.EqualFold(strings.TrimSpace(a[i]), b[i]) {
			return false
		}
	}
	return true
}
