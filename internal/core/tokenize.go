package core

// tokenize.go splits pasted or file-loaded text into raw rows.
//
// No quoting is interpreted on input. A line is first split on runs of
// comma, semicolon or tab; when that yields at most one field the line is
// split on whitespace instead, so both "P01,1.0,2.0" and "P01 1.0 2.0"
// produce three fields without a delimiter setting.

import (
	"regexp"
	"strings"
)

var structuredDelims = regexp.MustCompile(`[,;\t]+`)

// Tokenize splits one line into trimmed, non-empty fields.
func Tokenize(line string) []string {
	fields := splitNonEmpty(structuredDelims.Split(line, -1))
	if len(fields) > 1 {
		return fields
	}
	return strings.Fields(line)
}

func splitNonEmpty(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitLines strips a leading byte-order mark, accepts \r\n or \n endings
// and drops blank lines.
func SplitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// ParseRows tokenizes every non-blank line of text.
func ParseRows(text string) [][]string {
	lines := SplitLines(text)
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, Tokenize(line))
	}
	return rows
}

// MaxColumns returns the width of the widest row.
func MaxColumns(rows [][]string) int {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}
