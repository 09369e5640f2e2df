package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column.
type Column struct {
	Title string
	Width int
}

// Row is a slice of cell values.
type Row []string

// Table renders a lipgloss-styled table.
type Table struct {
	Columns []Column
	Rows    []Row
	Marked  int // row rendered with StyleSelected, -1 for none
}

// NewTable creates a new table.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, Marked: -1}
}

// AddRow appends a row.
func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// Render returns the full table as a string. Cells are padded by rune count
// before styling so ANSI codes never affect column widths.
func (t *Table) Render() string {
	header := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	cell := lipgloss.NewStyle().Foreground(ColorValue)

	line := func(style lipgloss.Style, values func(i int) string) string {
		parts := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			parts[i] = style.Render(fit(values(i), col.Width))
		}
		return strings.Join(parts, " ") + "\n"
	}

	var sb strings.Builder
	sb.WriteString(line(header, func(i int) string { return t.Columns[i].Title }))
	sb.WriteString(line(StyleMeta, func(i int) string { return strings.Repeat("-", t.Columns[i].Width) }))
	for r, row := range t.Rows {
		style := cell
		if r == t.Marked {
			style = StyleSelected
		}
		sb.WriteString(line(style, func(i int) string {
			if i < len(row) {
				return row[i]
			}
			return ""
		}))
	}
	return sb.String()
}

// fit pads or truncates s to exactly width runes.
func fit(s string, width int) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}

// KeyValueBlock renders a set of key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-18s", p[0]+":"))
		sb.WriteString("  " + key + " " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(sb.String())
}
