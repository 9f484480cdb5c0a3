package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
)

// MaxFileSize caps uploaded statements
const MaxFileSize = 20 << 20

// FormatHandler is a pluggable statement format
type FormatHandler interface {
	SupportedFormats() []parser.FileType
	Validate(file File) error
	Parse(ctx context.Context, file File, mapping *ImportMapping) (*ImportResult, error)
	Preview(ctx context.Context, file File) (*Preview, error)
}

// SpreadsheetHandler handles xlsx, xls and csv statements through the tabular decoder
type SpreadsheetHandler struct {
	decoder    parser.Decoder
	engine     *Engine
	sampleSize int
}

// NewSpreadsheetHandler creates a handler; a nil decoder uses parser.NewTabularDecoder
func NewSpreadsheetHandler(decoder parser.Decoder, engine *Engine, sampleSize int) *SpreadsheetHandler {
	if decoder == nil {
		decoder = parser.NewTabularDecoder()
	}
	if sampleSize <= 0 {
		sampleSize = DefaultSampleRows
	}
	return &SpreadsheetHandler{decoder: decoder, engine: engine, sampleSize: sampleSize}
}

func (h *SpreadsheetHandler) SupportedFormats() []parser.FileType {
	return []parser.FileType{parser.FileTypeXLSX, parser.FileTypeXLS, parser.FileTypeCSV}
}

// Validate checks size and type before decoding
func (h *SpreadsheetHandler) Validate(file File) error {
	if len(file.Data) == 0 {
		return parser.ErrEmptyFile
	}
	if len(file.Data) > MaxFileSize {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(file.Data))
	}
	if !slices.Contains(h.SupportedFormats(), file.Type) {
		return fmt.Errorf("%w: %q", parser.ErrUnsupportedFormat, file.Type)
	}
	return nil
}

func (h *SpreadsheetHandler) decode(file File) (*parser.Grid, error) {
	if err := h.Validate(file); err != nil {
		return nil, err
	}
	grid, err := h.decoder.Decode(file.Data, file.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", file.Name, err)
	}
	return grid, nil
}

// Parse decodes the file and runs the engine over it
func (h *SpreadsheetHandler) Parse(ctx context.Context, file File, mapping *ImportMapping) (*ImportResult, error) {
	grid, err := h.decode(file)
	if err != nil {
		return nil, err
	}
	return h.engine.Parse(ctx, grid, file.Name, mapping)
}

// Preview decodes the file and returns header, samples and suggested mapping
func (h *SpreadsheetHandler) Preview(ctx context.Context, file File) (*Preview, error) {
	grid, err := h.decode(file)
	if err != nil {
		return nil, err
	}
	return h.engine.Preview(ctx, grid, file.Name, h.sampleSize)
}
