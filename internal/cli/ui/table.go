// Package ui renders colored terminal output for the edmx commands
package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders aligned columns with a bold header
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	noColor bool
}

// TableOptions configures table behavior
type TableOptions struct {
	NoColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, headers []string, opts *TableOptions) *Table {
	t := &Table{writer: w, headers: headers}
	if opts != nil {
		t.noColor = opts.NoColor
	}
	return t
}

// AddRow adds a row. Cells beyond the header count are dropped, missing cells are blank.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = width(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	header := t.color(color.Bold, color.FgCyan)
	for i, h := range t.headers {
		header.Fprint(t.writer, t.cell(h, widths, i))
	}
	fmt.Fprintln(t.writer)

	rule := t.color(color.FgHiBlack)
	for i, w := range widths {
		rule.Fprint(t.writer, t.cell(strings.Repeat("─", w), widths, i))
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i, c := range row {
			fmt.Fprint(t.writer, t.cell(c, widths, i))
		}
		fmt.Fprintln(t.writer)
	}
}

// cell pads all but the last column and appends the column gap
func (t *Table) cell(s string, widths []int, i int) string {
	if i == len(widths)-1 {
		return s
	}
	return padRight(s, widths[i]) + "  "
}

func (t *Table) color(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if t.noColor {
		c.DisableColor()
	}
	return c
}

func width(s string) int {
	return utf8.RuneCountInString(s)
}

func padRight(s string, w int) string {
	if n := width(s); n < w {
		return s + strings.Repeat(" ", w-n)
	}
	return s
}

// KeyValueTable renders "key: value" lines with aligned values
type KeyValueTable struct {
	writer  io.Writer
	keys    []string
	values  []string
	noColor bool
}

// NewKeyValueTable creates a new key-value table
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{writer: w, noColor: noColor}
}

// AddRow adds a key-value pair. Empty values are skipped.
func (t *KeyValueTable) AddRow(key, value string) {
	if value == "" {
		return
	}
	t.keys = append(t.keys, key)
	t.values = append(t.values, value)
}

// Render writes the pairs
func (t *KeyValueTable) Render() {
	keyWidth := 0
	for _, k := range t.keys {
		if w := width(k) + 1; w > keyWidth {
			keyWidth = w
		}
	}
	cyan := color.New(color.FgCyan)
	if t.noColor {
		cyan.DisableColor()
	}
	for i, k := range t.keys {
		cyan.Fprint(t.writer, padRight(k+":", keyWidth))
		fmt.Fprintf(t.writer, " %s\n", t.values[i])
	}
}

// Header writes a bold title underlined by a rule of the same width
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if noColor {
		bold.DisableColor()
		gray.DisableColor()
	}
	bold.Fprintln(w, title)
	gray.Fprintln(w, strings.Repeat("─", width(title)))
}
