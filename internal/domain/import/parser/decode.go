package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoSheets          = errors.New("workbook has no sheets")
)

// Decoder turns raw statement bytes into a grid of cells
type Decoder interface {
	Decode(data []byte, fileType FileType) (*Grid, error)
}

// TabularDecoder decodes csv, xlsx and xls statements
type TabularDecoder struct {
	// MaxRows caps the number of decoded rows (0 = unlimited)
	MaxRows int
}

// NewTabularDecoder creates a decoder without a row cap
func NewTabularDecoder() *TabularDecoder {
	return &TabularDecoder{}
}

// DetectFileType infers the container type from the file name, falling back to magic bytes
func DetectFileType(name string, data []byte) (FileType, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "csv", "txt", "tsv":
		return FileTypeCSV, nil
	case "xlsx", "xlsm":
		return FileTypeXLSX, nil
	case "xls":
		return FileTypeXLS, nil
	}

	switch {
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return FileTypeXLSX, nil
	case bytes.HasPrefix(data, []byte{0xD0, 0xCF, 0x11, 0xE0}):
		return FileTypeXLS, nil
	case len(data) > 0 && !bytes.ContainsRune(data[:min(len(data), 512)], 0):
		return FileTypeCSV, nil
	}

	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// Decode reads the statement into a grid
func (d *TabularDecoder) Decode(data []byte, fileType FileType) (*Grid, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	var (
		grid *Grid
		err  error
	)
	switch fileType {
	case FileTypeCSV:
		grid, err = d.decodeCSV(data)
	case FileTypeXLSX:
		grid, err = d.decodeXLSX(data)
	case FileTypeXLS:
		grid, err = d.decodeXLS(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, fileType)
	}
	if err != nil {
		return nil, err
	}

	trimTrailingBlankRows(grid)
	if grid.Len() == 0 {
		return nil, ErrEmptyFile
	}
	return grid, nil
}

func (d *TabularDecoder) decodeCSV(data []byte) (*Grid, error) {
	data = normalizeCSVBytes(data)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	grid := &Grid{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", len(grid.Rows)+1, err)
		}

		row := make([]Cell, len(record))
		for i, v := range record {
			row[i] = TextCell(v)
		}
		grid.Rows = append(grid.Rows, row)
		if d.MaxRows > 0 && len(grid.Rows) >= d.MaxRows {
			break
		}
	}
	return grid, nil
}

func (d *TabularDecoder) decodeXLSX(data []byte) (*Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := findTransactionSheet(f.GetSheetList())
	if sheetName == "" {
		return nil, ErrNoSheets
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheetName, err)
	}

	grid := &Grid{Sheet: sheetName}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		grid.Date1904 = *props.Date1904
	}

	for _, raw := range rows {
		row := make([]Cell, len(raw))
		for i, v := range raw {
			row[i] = rawSpreadsheetCell(v)
		}
		grid.Rows = append(grid.Rows, row)
		if d.MaxRows > 0 && len(grid.Rows) >= d.MaxRows {
			break
		}
	}
	return grid, nil
}

func (d *TabularDecoder) decodeXLS(data []byte) (*Grid, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("failed to open XLS file: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrNoSheets
	}

	names := make([]string, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		if s := wb.GetSheet(i); s != nil {
			names = append(names, s.Name)
		}
	}
	sheetIdx := 0
	if preferred := findTransactionSheet(names); preferred != "" {
		for i, n := range names {
			if n == preferred {
				sheetIdx = i
				break
			}
		}
	}

	sheet := wb.GetSheet(sheetIdx)
	if sheet == nil {
		return nil, ErrNoSheets
	}

	grid := &Grid{Sheet: sheet.Name}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		r := sheet.Row(i)
		if r == nil {
			grid.Rows = append(grid.Rows, nil)
			continue
		}
		row := make([]Cell, r.LastCol())
		for j := 0; j < r.LastCol(); j++ {
			row[j] = rawSpreadsheetCell(r.Col(j))
		}
		grid.Rows = append(grid.Rows, row)
		if d.MaxRows > 0 && len(grid.Rows) >= d.MaxRows {
			break
		}
	}
	return grid, nil
}

// rawSpreadsheetCell keeps plain numbers numeric so date serials and amounts survive
func rawSpreadsheetCell(v string) Cell {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return Cell{}
	}
	if strings.Trim(trimmed, "0123456789.-") != "" {
		return TextCell(v)
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return Cell{Text: trimmed, Number: n, Numeric: true}
	}
	return TextCell(v)
}

// findTransactionSheet finds the best sheet for transaction data
func findTransactionSheet(sheets []string) string {
	if len(sheets) == 0 {
		return ""
	}

	preferredNames := []string{
		"transactions", "statement", "операції", "операции", "виписка", "выписка",
		"movimentos", "extrato", "data", "sheet1",
	}

	for _, preferred := range preferredNames {
		for _, sheet := range sheets {
			if strings.EqualFold(sheet, preferred) {
				return sheet
			}
		}
	}

	return sheets[0]
}

// normalizeCSVBytes strips a UTF-8 BOM and converts legacy code pages to UTF-8.
// Non-UTF-8 input is read as Windows-1251 when it looks Cyrillic, Latin-1 otherwise.
func normalizeCSVBytes(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return data
	}

	cm := charmap.ISO8859_1
	if looksCyrillic1251(data) {
		cm = charmap.Windows1251
	}
	decoded, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return data
	}
	return decoded
}

// looksCyrillic1251 counts bytes in the 0xC0-0xFF range, where cp1251 keeps А-я
func looksCyrillic1251(data []byte) bool {
	high, letters := 0, 0
	for _, b := range data {
		switch {
		case b >= 0xC0:
			high++
		case (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z'):
			letters++
		}
	}
	return high > letters/4 && high > 0
}

// detectDelimiter picks the candidate that splits the most of the first lines
// into the same number of fields. Single-field lines such as banners are ignored,
// so commas inside descriptions or decimal amounts do not outvote the real delimiter.
func detectDelimiter(data []byte) rune {
	lines := strings.SplitN(string(data), "\n", delimiterSampleLines+1)
	if len(lines) > delimiterSampleLines {
		lines = lines[:delimiterSampleLines]
	}
	sample := strings.Join(lines, "\n")

	best := ','
	bestScore := 0
	for _, d := range []rune{';', '\t', ',', '|'} {
		if score := consistentRows(sample, d); score > bestScore {
			bestScore = score
			best = d
		}
	}
	return best
}

const delimiterSampleLines = 20

// consistentRows reports how many records share the most common field count above one
func consistentRows(sample string, delimiter rune) int {
	reader := csv.NewReader(strings.NewReader(sample))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	counts := make(map[int]int)
	for {
		record, err := reader.Read()
		if err != nil {
			break
		}
		if len(record) > 1 {
			counts[len(record)]++
		}
	}

	score := 0
	for _, n := range counts {
		score = max(score, n)
	}
	return score
}

func trimTrailingBlankRows(g *Grid) {
	for len(g.Rows) > 0 && IsBlankRow(g.Rows[len(g.Rows)-1]) {
		g.Rows = g.Rows[:len(g.Rows)-1]
	}
}
