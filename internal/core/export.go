package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Named separators accepted by ParseSeparator.
var separators = map[string]string{
	"comma":     ",",
	"tab":       "\t",
	"semicolon": ";",
	"space":     " ",
}

// ParseSeparator resolves a separator name (comma, tab, semicolon, space) or
// a literal single-character separator. Empty means comma.
func ParseSeparator(s string) (string, error) {
	if s == "" {
		return ",", nil
	}
	if sep, ok := separators[strings.ToLower(s)]; ok {
		return sep, nil
	}
	if len([]rune(s)) == 1 {
		return s, nil
	}
	return "", fmt.Errorf("unknown separator %q", s)
}

// Serialize writes a header line of slot labels followed by one line per
// record. Numeric slots are fixed to decimals places when they parse as a
// finite number; a negative decimals leaves values as stored.
//
// With a comma separator fields are quoted the CSV way. Other separators are
// joined verbatim.
func Serialize[R any, P Record[R]](records []R, sep string, decimals int) (string, error) {
	schema := schemaOf(kindOf[R, P]())

	lines := make([][]string, 0, len(records)+1)
	lines = append(lines, schema.Labels())
	for i := range records {
		p := P(&records[i])
		fields := make([]string, len(schema.Slots))
		for j, slot := range schema.Slots {
			v := p.slotText(slot)
			if slot.Type == FieldNumeric {
				v = FormatFixed(v, decimals)
			}
			fields[j] = v
		}
		lines = append(lines, fields)
	}

	if sep == "," {
		return writeCSV(lines)
	}

	var b strings.Builder
	for _, fields := range lines {
		b.WriteString(strings.Join(fields, sep))
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func writeCSV(lines [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(lines); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return buf.String(), nil
}
