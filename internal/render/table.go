package render

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// formatTable lays out rows as an aligned markdown table. Column widths use
// display width, not byte length, so CJK-heavy article tables line up. The
// first row is treated as the header and a separator row is inserted after
// it.
func formatTable(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}

	colCount := 0
	for _, row := range rows {
		if len(row) > colCount {
			colCount = len(row)
		}
	}

	// Max display width per column, minimum 3 so the separator keeps its
	// conventional "---".
	colWidths := make([]int, colCount)
	for i := range colWidths {
		colWidths[i] = 3
	}

	for _, row := range rows {
		for i := 0; i < len(row) && i < colCount; i++ {
			if w := runewidth.StringWidth(row[i]); w > colWidths[i] {
				colWidths[i] = w
			}
		}
	}

	writeRow := func(row []string) string {
		var sb strings.Builder

		sb.WriteString("|")

		for j := 0; j < colCount; j++ {
			sb.WriteString(" ")

			content := ""
			if j < len(row) {
				content = row[j]
			}

			sb.WriteString(content)

			if padding := colWidths[j] - runewidth.StringWidth(content); padding > 0 {
				sb.WriteString(strings.Repeat(" ", padding))
			}

			sb.WriteString(" |")
		}

		return sb.String()
	}

	var result []string

	result = append(result, writeRow(rows[0]))

	var sep strings.Builder

	sep.WriteString("|")

	for j := 0; j < colCount; j++ {
		sep.WriteString(" " + strings.Repeat("-", colWidths[j]) + " |")
	}

	result = append(result, sep.String())

	for _, row := range rows[1:] {
		result = append(result, writeRow(row))
	}

	return result
}
