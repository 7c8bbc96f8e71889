package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpectedColumnCount(t *testing.T) {
	assert.Equal(t, 19, ExpectedColumnCount(SchemaCommonPoint))
	assert.Equal(t, 10, ExpectedColumnCount(SchemaPoint))
	assert.Equal(t, 11, ExpectedColumnCount(SchemaResult))
}

func TestFieldsFor_Layout(t *testing.T) {
	common := Lookup(SchemaCommonPoint).Labels()
	assert.Equal(t, "name", common[0])
	assert.Equal(t, "source.B", common[1])
	assert.Equal(t, "source.h", common[9])
	assert.Equal(t, "target.B", common[10])
	assert.Equal(t, "target.h", common[18])

	assert.Equal(t,
		[]string{"name", "B", "L", "H", "X", "Y", "Z", "x", "y", "h"},
		Lookup(SchemaPoint).Labels())

	result := FieldsFor(SchemaResult)
	assert.Equal(t, SlotName, result[0].Kind)
	assert.Equal(t, GroupTarget, result[1].Group)
	assert.Equal(t, FieldNumeric, result[1].Type)
	assert.Equal(t, SlotError, result[10].Kind)
	assert.Equal(t, FieldText, result[10].Type)
}

func TestLookup_UnknownKindPanics(t *testing.T) {
	assert.Panics(t, func() { Lookup(SchemaKind(42)) })
}

func TestParseSchemaKind(t *testing.T) {
	tests := []struct {
		in      string
		want    SchemaKind
		wantErr bool
	}{
		{"common", SchemaCommonPoint, false},
		{" Common ", SchemaCommonPoint, false},
		{"commonpoint", SchemaCommonPoint, false},
		{"point", SchemaPoint, false},
		{"points", SchemaPoint, false},
		{"result", SchemaResult, false},
		{"RESULTS", SchemaResult, false},
		{"", 0, true},
		{"datum", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSchemaKind(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownSchema))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlotIndex_CaseSensitive(t *testing.T) {
	assert.Equal(t, 4, SlotIndex(SchemaPoint, "X"))
	assert.Equal(t, 7, SlotIndex(SchemaPoint, "x"))
	assert.Equal(t, 10, SlotIndex(SchemaCommonPoint, "target.B"))
	assert.Equal(t, -1, SlotIndex(SchemaPoint, "target.B"))
}

func TestSchemaKind_MarshalText(t *testing.T) {
	b, err := SchemaResult.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "result", string(b))
	assert.Equal(t, "SchemaKind(9)", SchemaKind(9).String())
}

func TestFieldsFor_ReturnsCopy(t *testing.T) {
	before := FieldsFor(SchemaPoint)
	slots := FieldsFor(SchemaPoint)
	slots[0].Name = "mutated"
	slots[1].Label = "mutated"

	assert.Equal(t, before, FieldsFor(SchemaPoint))
	assert.Equal(t, "B", FieldsFor(SchemaPoint)[1].Label)

	schema := Lookup(SchemaPoint)
	schema.Slots[0].Label = "mutated"
	assert.Equal(t, "name", Lookup(SchemaPoint).Slots[0].Label)
	assert.Equal(t, 0, SlotIndex(SchemaPoint, "name"))
}
