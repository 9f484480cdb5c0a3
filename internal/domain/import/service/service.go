package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/internal/domain/import/sniffer"
)

// ImportService routes statement files to format handlers and remembers
// confirmed column mappings by header fingerprint.
type ImportService struct {
	handlers []FormatHandler
	mappings repository.MappingRepository // optional
	logger   *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(logger *slog.Logger, handlers ...FormatHandler) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		handlers: handlers,
		logger:   logger,
	}
}

// WithMappingRepository enables saved mappings
func (s *ImportService) WithMappingRepository(repo repository.MappingRepository) *ImportService {
	s.mappings = repo
	return s
}

// WithHandler registers an additional format handler
func (s *ImportService) WithHandler(h FormatHandler) *ImportService {
	s.handlers = append(s.handlers, h)
	return s
}

func (s *ImportService) handlerFor(file File) (FormatHandler, File, error) {
	if file.Type == "" {
		ft, err := parser.DetectFileType(file.Name, file.Data)
		if err != nil {
			return nil, file, err
		}
		file.Type = ft
	}
	for _, h := range s.handlers {
		if slices.Contains(h.SupportedFormats(), file.Type) {
			return h, file, nil
		}
	}
	return nil, file, fmt.Errorf("%w: %s", ErrNoHandler, file.Type)
}

// ExtractPreview returns columns, sample rows and a mapping for the file. A
// mapping saved for the same header layout replaces the detected suggestion.
func (s *ImportService) ExtractPreview(ctx context.Context, file File) (*Preview, error) {
	h, file, err := s.handlerFor(file)
	if err != nil {
		return nil, err
	}

	preview, err := h.Preview(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("failed to preview %s: %w", file.Name, err)
	}

	if s.mappings == nil || preview.Fingerprint == "" {
		return preview, nil
	}

	saved, err := s.mappings.GetMappingByFingerprint(ctx, preview.Fingerprint)
	switch {
	case errors.Is(err, repository.ErrMappingNotFound):
	case err != nil:
		s.logger.Warn("failed to look up saved mapping",
			slog.String("fingerprint", preview.Fingerprint),
			slog.Any("error", err),
		)
	default:
		mapping := fromBankMapping(saved)
		if mapping.HasHeader {
			// header row comes from the current file
			mapping.HeaderRowIndex = preview.HeaderRowIndex
		}
		preview.SuggestedMapping = mapping
		preview.SavedMapping = true
		s.logger.Debug("using saved mapping", slog.String("fingerprint", preview.Fingerprint))
	}
	return preview, nil
}

// DetectMapping returns the saved or detected mapping for the file
func (s *ImportService) DetectMapping(ctx context.Context, file File) (*ImportMapping, error) {
	preview, err := s.ExtractPreview(ctx, file)
	if err != nil {
		return nil, err
	}
	if preview.SuggestedMapping == nil {
		return nil, sniffer.ErrRequiredColumnsMissing
	}
	return preview.SuggestedMapping, nil
}

// Parse imports the file. Without a mapping, a saved mapping for the header
// layout is used when there is one, otherwise columns are detected.
func (s *ImportService) Parse(ctx context.Context, file File, mapping *ImportMapping) (*ImportResult, error) {
	h, file, err := s.handlerFor(file)
	if err != nil {
		return nil, err
	}

	if mapping == nil && s.mappings != nil {
		if preview, err := s.ExtractPreview(ctx, file); err == nil && preview.SavedMapping {
			mapping = preview.SuggestedMapping
		}
	}

	return h.Parse(ctx, file, mapping)
}

// SaveMapping stores a confirmed mapping for the header fingerprint
func (s *ImportService) SaveMapping(ctx context.Context, fingerprint, bankName string, mapping *ImportMapping) error {
	if s.mappings == nil {
		return ErrNoMappingStore
	}
	if fingerprint == "" {
		return fmt.Errorf("%w: empty fingerprint", ErrInvalidMapping)
	}
	if err := mapping.Validate(); err != nil {
		return err
	}
	if mapping.DateColumn.Index < 0 || mapping.AmountColumn.Index < 0 {
		return fmt.Errorf("%w: saved mappings need column indices", ErrInvalidMapping)
	}

	m := toBankMapping(fingerprint, bankName, mapping)
	if err := s.mappings.SaveMapping(ctx, m); err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	s.logger.Info("mapping saved",
		slog.String("fingerprint", fingerprint),
		slog.String("bank", bankName),
	)
	return nil
}

func toBankMapping(fingerprint, bankName string, mapping *ImportMapping) *repository.BankMapping {
	var bankNamePtr *string
	if bankName != "" {
		bankNamePtr = &bankName
	}
	return &repository.BankMapping{
		Fingerprint:      fingerprint,
		BankName:         bankNamePtr,
		DateCol:          mapping.DateColumn.Index,
		AmountCol:        mapping.AmountColumn.Index,
		DescriptionCol:   optionalIndex(mapping.DescriptionColumn),
		CardCol:          optionalIndex(mapping.CardColumn),
		CategoryCol:      optionalIndex(mapping.CategoryColumn),
		CommentCol:       optionalIndex(mapping.CommentColumn),
		HasHeader:        mapping.HasHeader,
		HeaderRow:        mapping.HeaderRowIndex,
		DateFormat:       mapping.DateFormatHint,
		DecimalSeparator: mapping.DecimalSeparator,
	}
}

func fromBankMapping(m *repository.BankMapping) *ImportMapping {
	return &ImportMapping{
		DateColumn:        ColumnAt(m.DateCol),
		AmountColumn:      ColumnAt(m.AmountCol),
		DescriptionColumn: columnFromIndex(m.DescriptionCol),
		CardColumn:        columnFromIndex(m.CardCol),
		CategoryColumn:    columnFromIndex(m.CategoryCol),
		CommentColumn:     columnFromIndex(m.CommentCol),
		HasHeader:         m.HasHeader,
		HeaderRowIndex:    m.HeaderRow,
		DateFormatHint:    m.DateFormat,
		DecimalSeparator:  m.DecimalSeparator,
	}
}

func optionalIndex(c *Column) *int {
	if c == nil || c.Index < 0 {
		return nil
	}
	idx := c.Index
	return &idx
}

func columnFromIndex(idx *int) *Column {
	if idx == nil {
		return nil
	}
	return ColumnAt(*idx)
}
