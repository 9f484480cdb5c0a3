// Package parser turns statement files into grids of cells and normalizes individual
// cell values (dates, amounts, card names, descriptions).
package parser

import (
	"strconv"
	"strings"
)

// FileType is the declared container type of a statement file
type FileType string

const (
	FileTypeCSV  FileType = "csv"
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLS  FileType = "xls"
)

// Cell is a single raw value from a decoded statement.
// Spreadsheet cells holding numbers keep both the text and the numeric value;
// CSV cells are always text.
type Cell struct {
	Text    string
	Number  float64
	Numeric bool
}

// TextCell builds a text cell
func TextCell(s string) Cell {
	return Cell{Text: s}
}

// NumberCell builds a numeric cell
func NumberCell(v float64) Cell {
	return Cell{Text: strconv.FormatFloat(v, 'f', -1, 64), Number: v, Numeric: true}
}

// String returns the trimmed textual value of the cell
func (c Cell) String() string {
	return strings.TrimSpace(c.Text)
}

// IsBlank reports whether the cell carries no value
func (c Cell) IsBlank() bool {
	return !c.Numeric && strings.TrimSpace(c.Text) == ""
}

// Grid is the rectangular-ish result of decoding a statement file.
// Rows may have different lengths; missing trailing cells are blank.
type Grid struct {
	Rows     [][]Cell
	Sheet    string
	Date1904 bool // workbook uses the 1904 date system
}

// Len returns the number of rows
func (g *Grid) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Rows)
}

// Cell returns the cell at row/col or a blank cell when out of range
func (g *Grid) Cell(row, col int) Cell {
	if g == nil || row < 0 || row >= len(g.Rows) || col < 0 || col >= len(g.Rows[row]) {
		return Cell{}
	}
	return g.Rows[row][col]
}

// RowStrings returns the trimmed text of a row
func (g *Grid) RowStrings(row int) []string {
	if g == nil || row < 0 || row >= len(g.Rows) {
		return nil
	}
	return CellStrings(g.Rows[row])
}

// TextRows returns up to n rows as trimmed strings (all rows when n <= 0)
func (g *Grid) TextRows(n int) [][]string {
	if g == nil {
		return nil
	}
	if n <= 0 || n > len(g.Rows) {
		n = len(g.Rows)
	}
	out := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, CellStrings(g.Rows[i]))
	}
	return out
}

// Text concatenates every non-blank cell of the grid, one row per line
func (g *Grid) Text() string {
	if g == nil {
		return ""
	}
	var b strings.Builder
	for _, row := range g.Rows {
		first := true
		for _, c := range row {
			s := c.String()
			if s == "" {
				continue
			}
			if !first {
				b.WriteByte(' ')
			}
			b.WriteString(s)
			first = false
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// CellStrings converts a row of cells to trimmed strings
func CellStrings(row []Cell) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.String()
	}
	return out
}

// IsBlankRow reports whether every cell of the row is blank
func IsBlankRow(row []Cell) bool {
	for _, c := range row {
		if !c.IsBlank() {
			return false
		}
	}
	return true
}
