package core

import (
	"fmt"
	"slices"
	"strings"
)

// Schema is the fixed slot layout of one record family.
// Slot order is also the identity column mapping.
type Schema struct {
	Kind  SchemaKind `json:"kind"`
	Label string     `json:"label"`
	Slots []Slot     `json:"slots"`
}

// ExpectedColumns is the raw column count of a self-describing import.
func (s Schema) ExpectedColumns() int {
	return len(s.Slots)
}

// Labels returns the export header labels in slot order.
func (s Schema) Labels() []string {
	labels := make([]string, len(s.Slots))
	for i, slot := range s.Slots {
		labels[i] = slot.Label
	}
	return labels
}

var registry = map[SchemaKind]Schema{
	SchemaCommonPoint: {
		Kind:  SchemaCommonPoint,
		Label: "Common points",
		Slots: concatSlots(
			[]Slot{nameSlot()},
			coordSlots(GroupSource, "source."),
			coordSlots(GroupTarget, "target."),
		),
	},
	SchemaPoint: {
		Kind:  SchemaPoint,
		Label: "Points",
		Slots: concatSlots(
			[]Slot{nameSlot()},
			coordSlots(GroupPlain, ""),
		),
	},
	SchemaResult: {
		Kind:  SchemaResult,
		Label: "Results",
		Slots: concatSlots(
			[]Slot{nameSlot()},
			coordSlots(GroupTarget, ""),
			[]Slot{{Name: "error", Label: "error", Group: GroupPlain, Kind: SlotError, Type: FieldText}},
		),
	},
}

func nameSlot() Slot {
	return Slot{Name: "name", Label: "name", Group: GroupPlain, Kind: SlotName, Type: FieldText}
}

func coordSlots(group SlotGroup, labelPrefix string) []Slot {
	slots := make([]Slot, len(Coords))
	for i, c := range Coords {
		slots[i] = Slot{
			Name:  c.String(),
			Label: labelPrefix + c.String(),
			Group: group,
			Kind:  SlotCoord,
			Coord: c,
			Type:  FieldNumeric,
		}
	}
	return slots
}

func concatSlots(parts ...[]Slot) []Slot {
	var out []Slot
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Lookup returns a copy of the schema for kind.
// Panics on an unknown kind: callers validate user input with ParseSchemaKind.
func Lookup(kind SchemaKind) Schema {
	s := schemaOf(kind)
	s.Slots = slices.Clone(s.Slots)
	return s
}

// schemaOf returns the registered schema sharing the registry's slot slice.
// Internal readers only; it must never be handed to callers.
func schemaOf(kind SchemaKind) Schema {
	s, ok := registry[kind]
	if !ok {
		panic(fmt.Sprintf("unsupported schema kind: %d", int(kind)))
	}
	return s
}

// slotsOf is the read-only slot list used by the pipeline.
func slotsOf(kind SchemaKind) []Slot {
	return schemaOf(kind).Slots
}

// FieldsFor returns a copy of the ordered slot descriptors of a schema.
func FieldsFor(kind SchemaKind) []Slot {
	return slices.Clone(slotsOf(kind))
}

// ExpectedColumnCount returns how many raw columns an unmapped import expects.
func ExpectedColumnCount(kind SchemaKind) int {
	return len(slotsOf(kind))
}

// Schemas returns all schemas in kind order.
func Schemas() []Schema {
	return []Schema{
		Lookup(SchemaCommonPoint),
		Lookup(SchemaPoint),
		Lookup(SchemaResult),
	}
}

// SlotIndex returns the position of the slot with the given label, or -1.
// Matching is case-sensitive because B/b and X/x are distinct coordinates.
func SlotIndex(kind SchemaKind, label string) int {
	label = strings.TrimSpace(label)
	for i, slot := range slotsOf(kind) {
		if slot.Label == label {
			return i
		}
	}
	return -1
}
