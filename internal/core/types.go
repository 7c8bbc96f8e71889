// Package core provides the business logic for coordinate-data import operations.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// SchemaKind identifies one of the three record families.
type SchemaKind int

const (
	SchemaCommonPoint SchemaKind = iota
	SchemaPoint
	SchemaResult
)

var schemaKindNames = [...]string{"common", "point", "result"}

func (k SchemaKind) String() string {
	if k < 0 || int(k) >= len(schemaKindNames) {
		return fmt.Sprintf("SchemaKind(%d)", int(k))
	}
	return schemaKindNames[k]
}

// MarshalText lets SchemaKind appear as its name in JSON.
func (k SchemaKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseSchemaKind converts user input into a SchemaKind.
// Unlike the registry lookups it returns an error instead of panicking,
// since the value usually comes from a URL or form field.
func ParseSchemaKind(s string) (SchemaKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "common", "commonpoint", "common-point", "common_point", "commons":
		return SchemaCommonPoint, nil
	case "point", "points":
		return SchemaPoint, nil
	case "result", "results":
		return SchemaResult, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSchema, s)
	}
}

// FieldType represents the expected data type for a canonical slot.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumeric
)

func (t FieldType) String() string {
	if t == FieldNumeric {
		return "numeric"
	}
	return "text"
}

func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// SlotGroup tells which coordinate tuple a slot belongs to.
type SlotGroup string

const (
	GroupPlain  SlotGroup = "plain"
	GroupSource SlotGroup = "source"
	GroupTarget SlotGroup = "target"
)

// SlotKind distinguishes the name, coordinate and remark slots.
type SlotKind int

const (
	SlotName SlotKind = iota
	SlotCoord
	SlotError
)

// Coord is one of the nine shared coordinate names.
type Coord int

const (
	CoordB Coord = iota
	CoordL
	CoordH
	CoordX
	CoordY
	CoordZ
	CoordPlaneX
	CoordPlaneY
	CoordPlaneH
)

// Coords lists the coordinates in canonical order.
var Coords = []Coord{CoordB, CoordL, CoordH, CoordX, CoordY, CoordZ, CoordPlaneX, CoordPlaneY, CoordPlaneH}

var coordNames = [...]string{"B", "L", "H", "X", "Y", "Z", "x", "y", "h"}

func (c Coord) String() string {
	if c < 0 || int(c) >= len(coordNames) {
		return fmt.Sprintf("Coord(%d)", int(c))
	}
	return coordNames[c]
}

// Slot describes one canonical attribute position in a schema.
type Slot struct {
	Name  string    `json:"name"`  // Canonical field name: "name", "B".."h", "error"
	Label string    `json:"label"` // Export header label, e.g. "source.B"
	Group SlotGroup `json:"group"`
	Kind  SlotKind  `json:"-"`
	Coord Coord     `json:"-"` // Only meaningful when Kind == SlotCoord
	Type  FieldType `json:"type"`
}

// NotImported marks a slot that no raw column feeds.
const NotImported = -1

// Mapping assigns a raw column index (or NotImported) to every canonical slot,
// indexed by slot position.
type Mapping []int

// Column returns the raw column for a slot, or NotImported.
func (m Mapping) Column(slot int) int {
	if slot < 0 || slot >= len(m) {
		return NotImported
	}
	return m[slot]
}

// Assigned returns the number of slots fed by some column.
func (m Mapping) Assigned() int {
	n := 0
	for _, col := range m {
		if col >= 0 {
			n++
		}
	}
	return n
}

// Assignments inverts the mapping into the per-raw-column form a mapping UI
// shows: for each of the given columns, the first slot it feeds or NotImported.
func (m Mapping) Assignments(columns int) []int {
	out := make([]int, columns)
	for i := range out {
		out[i] = NotImported
	}
	for slot, col := range m {
		if col >= 0 && col < columns && out[col] == NotImported {
			out[col] = slot
		}
	}
	return out
}

// Tuple holds one value per coordinate name.
// The lower-case planar names x, y, h are exposed as PlaneX, PlaneY, PlaneH.
type Tuple[V any] struct {
	B      V `json:"B"`
	L      V `json:"L"`
	H      V `json:"H"`
	X      V `json:"X"`
	Y      V `json:"Y"`
	Z      V `json:"Z"`
	PlaneX V `json:"x"`
	PlaneY V `json:"y"`
	PlaneH V `json:"h"`
}

func (t *Tuple[V]) field(c Coord) *V {
	switch c {
	case CoordB:
		return &t.B
	case CoordL:
		return &t.L
	case CoordH:
		return &t.H
	case CoordX:
		return &t.X
	case CoordY:
		return &t.Y
	case CoordZ:
		return &t.Z
	case CoordPlaneX:
		return &t.PlaneX
	case CoordPlaneY:
		return &t.PlaneY
	case CoordPlaneH:
		return &t.PlaneH
	default:
		panic(fmt.Sprintf("unknown coordinate: %d", int(c)))
	}
}

// Get returns the value stored for c.
func (t Tuple[V]) Get(c Coord) V { return *t.field(c) }

// Set stores v for c.
func (t *Tuple[V]) Set(c Coord, v V) { *t.field(c) = v }

// TextTuple keeps coordinates as entered; angle text such as 39°30'00" is
// decoded later by the caller.
type TextTuple = Tuple[string]

// NumericTuple holds computed coordinates; invalid entries are null.
type NumericTuple = Tuple[pgtype.Float8]

// CommonPoint is a control point known in both the source and target systems.
type CommonPoint struct {
	Name   string    `json:"name"`
	Source TextTuple `json:"source"`
	Target TextTuple `json:"target"`
}

// Point is a single coordinate tuple awaiting transformation.
type Point struct {
	Name string `json:"name"`
	TextTuple
}

// Result is one computed coordinate tuple plus a diagnostic remark.
type Result struct {
	Name   string       `json:"name"`
	Target NumericTuple `json:"target"`
	Error  string       `json:"error"`
}

// Record is the constraint shared by the three record shapes.
// Methods are implemented on the pointer type.
type Record[R any] interface {
	*R
	Kind() SchemaKind
	// Key returns the trimmed name used for upsert matching.
	Key() string
	setSlot(slot Slot, raw string)
	slotText(slot Slot) string
	overlay(src *R)
}

func (p *CommonPoint) Kind() SchemaKind { return SchemaCommonPoint }
func (p *CommonPoint) Key() string      { return strings.TrimSpace(p.Name) }

func (p *CommonPoint) setSlot(slot Slot, raw string) {
	switch slot.Kind {
	case SlotName:
		p.Name = raw
	case SlotCoord:
		if slot.Group == GroupSource {
			p.Source.Set(slot.Coord, raw)
		} else {
			p.Target.Set(slot.Coord, raw)
		}
	}
}

func (p *CommonPoint) slotText(slot Slot) string {
	switch slot.Kind {
	case SlotName:
		return p.Name
	case SlotCoord:
		if slot.Group == GroupSource {
			return p.Source.Get(slot.Coord)
		}
		return p.Target.Get(slot.Coord)
	}
	return ""
}

func (p *CommonPoint) overlay(src *CommonPoint) {
	overlayText(&p.Source, src.Source)
	overlayText(&p.Target, src.Target)
}

func (p *Point) Kind() SchemaKind { return SchemaPoint }
func (p *Point) Key() string      { return strings.TrimSpace(p.Name) }

func (p *Point) setSlot(slot Slot, raw string) {
	switch slot.Kind {
	case SlotName:
		p.Name = raw
	case SlotCoord:
		p.Set(slot.Coord, raw)
	}
}

func (p *Point) slotText(slot Slot) string {
	switch slot.Kind {
	case SlotName:
		return p.Name
	case SlotCoord:
		return p.Get(slot.Coord)
	}
	return ""
}

func (p *Point) overlay(src *Point) {
	overlayText(&p.TextTuple, src.TextTuple)
}

func (r *Result) Kind() SchemaKind { return SchemaResult }
func (r *Result) Key() string      { return strings.TrimSpace(r.Name) }

func (r *Result) setSlot(slot Slot, raw string) {
	switch slot.Kind {
	case SlotName:
		r.Name = raw
	case SlotCoord:
		r.Target.Set(slot.Coord, ToFloat8(raw))
	case SlotError:
		r.Error = raw
	}
}

func (r *Result) slotText(slot Slot) string {
	switch slot.Kind {
	case SlotName:
		return r.Name
	case SlotCoord:
		return Float8Text(r.Target.Get(slot.Coord))
	case SlotError:
		return r.Error
	}
	return ""
}

func (r *Result) overlay(src *Result) {
	for _, c := range Coords {
		if v := src.Target.Get(c); v.Valid {
			r.Target.Set(c, v)
		}
	}
	if strings.TrimSpace(src.Error) != "" {
		r.Error = src.Error
	}
}

// overlayText copies every non-blank coordinate of src into dst.
func overlayText(dst *TextTuple, src TextTuple) {
	for _, c := range Coords {
		if v := src.Get(c); strings.TrimSpace(v) != "" {
			dst.Set(c, v)
		}
	}
}

// kindOf returns the schema of a record type.
func kindOf[R any, P Record[R]]() SchemaKind {
	var zero R
	return P(&zero).Kind()
}

// isBlank reports whether every slot of rec is empty after trimming.
func isBlank[R any, P Record[R]](rec *R) bool {
	p := P(rec)
	for _, slot := range slotsOf(p.Kind()) {
		if strings.TrimSpace(p.slotText(slot)) != "" {
			return false
		}
	}
	return true
}

// BuildReport summarises one RowBuilder pass.
type BuildReport struct {
	Attempted int `json:"attempted"` // Raw rows offered
	Kept      int `json:"kept"`      // Rows that produced a record
	Dropped   int `json:"dropped"`   // Rows blank after mapping
	Truncated int `json:"truncated"` // Rows with more tokens than the schema expects
}

// MergeResult counts how an incoming batch was reconciled.
type MergeResult struct {
	Updated  int `json:"updated"`
	Appended int `json:"appended"`
}

// ImportMode selects how a parsed batch reaches the store.
type ImportMode string

const (
	ModeMerge   ImportMode = "merge"
	ModeReplace ImportMode = "replace"
)

// ParseImportMode validates a mode string; empty means merge.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("invalid import mode %q (use merge or replace)", s)
	}
}

// ImportSummary is what a store reports after applying a batch.
type ImportSummary struct {
	BuildReport
	MergeResult
	Replaced bool `json:"replaced"`
}

// ImportResult is returned to callers of Service.Import.
type ImportResult struct {
	ImportID      string     `json:"importId"`
	Workspace     string     `json:"workspace"`
	Schema        SchemaKind `json:"schema"`
	HeaderSkipped bool       `json:"headerSkipped"`
	Mapping       Mapping    `json:"mapping"`
	ImportSummary
	StoreSize int `json:"storeSize"`
}

// PreviewResult is returned by Service.Preview so a UI can render mapping controls.
type PreviewResult struct {
	Schema        SchemaKind  `json:"schema"`
	Slots         []Slot      `json:"slots"`
	Columns       int         `json:"columns"`
	Rows          [][]string  `json:"rows"`
	TotalRows     int         `json:"totalRows"`
	HeaderSkipped bool        `json:"headerSkipped"`
	Mapping       Mapping     `json:"mapping"`
	Assignments   []int       `json:"assignments"`
	BuildReport   BuildReport `json:"build"`
	Merge         MergeResult `json:"merge"`
}

// TransformRequest is what the remote transform service receives.
type TransformRequest struct {
	CommonPoints []CommonPoint   `json:"commonPoints"`
	Points       []Point         `json:"points"`
	Params       json.RawMessage `json:"params,omitempty"`
}
