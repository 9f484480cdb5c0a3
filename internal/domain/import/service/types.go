package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/internal/domain/import/sniffer"
)

var (
	ErrInvalidMapping = errors.New("invalid column mapping")
	ErrFileTooLarge   = errors.New("file too large")
	ErrNoHandler      = errors.New("no handler for file format")
	ErrNoMappingStore = errors.New("mapping store not configured")
)

// Column points at a statement column by header label or zero-based index.
// When both are set the label is checked against the header first.
type Column struct {
	Label string `json:"label,omitempty"`
	Index int    `json:"index"`
}

// ColumnAt selects a column by index
func ColumnAt(index int) *Column {
	return &Column{Index: index}
}

// ColumnNamed selects a column by header label
func ColumnNamed(label string) *Column {
	return &Column{Label: label, Index: -1}
}

func (c *Column) String() string {
	if c == nil {
		return "<none>"
	}
	if c.Label != "" {
		return fmt.Sprintf("%q", c.Label)
	}
	return fmt.Sprintf("#%d", c.Index)
}

// ImportMapping tells the engine which columns hold which transaction fields
type ImportMapping struct {
	DateColumn        *Column `json:"date_column"`
	AmountColumn      *Column `json:"amount_column"`
	DescriptionColumn *Column `json:"description_column,omitempty"`
	CardColumn        *Column `json:"card_column,omitempty"`
	CategoryColumn    *Column `json:"category_column,omitempty"`
	CommentColumn     *Column `json:"comment_column,omitempty"`
	HasHeader         bool    `json:"has_header"`
	HeaderRowIndex    int     `json:"header_row_index"`
	DateFormatHint    string  `json:"date_format_hint,omitempty"`
	DecimalSeparator  string  `json:"decimal_separator,omitempty"` // "," or "."; empty applies the per-cell rule
}

// Validate rejects mappings that cannot produce a transaction
func (m *ImportMapping) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: mapping is nil", ErrInvalidMapping)
	}
	if !validColumn(m.DateColumn, m.HasHeader) {
		return fmt.Errorf("%w: date column is required", ErrInvalidMapping)
	}
	if !validColumn(m.AmountColumn, m.HasHeader) {
		return fmt.Errorf("%w: amount column is required", ErrInvalidMapping)
	}
	if m.HeaderRowIndex < 0 {
		return fmt.Errorf("%w: negative header row", ErrInvalidMapping)
	}
	switch m.DateFormatHint {
	case "", parser.HintDayFirst, parser.HintMonthFirst:
	default:
		return fmt.Errorf("%w: unknown date format %q", ErrInvalidMapping, m.DateFormatHint)
	}
	switch m.DecimalSeparator {
	case "", ",", ".":
	default:
		return fmt.Errorf("%w: unknown decimal separator %q", ErrInvalidMapping, m.DecimalSeparator)
	}
	return nil
}

func validColumn(c *Column, hasHeader bool) bool {
	if c == nil {
		return false
	}
	if c.Index >= 0 {
		return true
	}
	return hasHeader && strings.TrimSpace(c.Label) != ""
}

// ImportError describes one rejected row
type ImportError struct {
	Row     int      `json:"row"` // 1-based row in the file
	Column  string   `json:"column,omitempty"`
	Error   string   `json:"error"`
	RawData []string `json:"raw_data,omitempty"`
}

// ImportSummary aggregates the outcome of a parse
type ImportSummary struct {
	TotalRows         int        `json:"total_rows"`
	SuccessfulImports int        `json:"successful_imports"`
	DuplicatesFound   int        `json:"duplicates_found"`
	ErrorsCount       int        `json:"errors_count"`
	EarliestDate      *time.Time `json:"earliest_date,omitempty"`
	LatestDate        *time.Time `json:"latest_date,omitempty"`
}

// ImportResult is returned by Parse. Duplicates are also present in Transactions.
type ImportResult struct {
	BatchID      string                   `json:"batch_id"`
	Currency     string                   `json:"currency"`
	Mapping      *ImportMapping           `json:"mapping"`
	Transactions []repository.Transaction `json:"transactions"`
	Duplicates   []repository.Transaction `json:"duplicates"`
	Errors       []ImportError            `json:"errors"`
	Summary      ImportSummary            `json:"summary"`
}

// Preview is what a mapping wizard needs to confirm or override a mapping
type Preview struct {
	Columns          []string                 `json:"columns"`
	SampleRows       [][]string               `json:"sample_rows"`
	SuggestedMapping *ImportMapping           `json:"suggested_mapping,omitempty"`
	Analyses         []sniffer.ColumnAnalysis `json:"analyses"`
	HeaderRowIndex   int                      `json:"header_row_index"`
	HeaderFallback   bool                     `json:"header_fallback"`
	Fingerprint      string                   `json:"fingerprint"`
	SavedMapping     bool                     `json:"saved_mapping"`
	Currency         string                   `json:"currency"`
}

// File is an uploaded statement
type File struct {
	Name string
	Data []byte
	Type parser.FileType
}

// NewFile builds a file and detects its type
func NewFile(name string, data []byte) (File, error) {
	ft, err := parser.DetectFileType(name, data)
	if err != nil {
		return File{}, err
	}
	return File{Name: name, Data: data, Type: ft}, nil
}
