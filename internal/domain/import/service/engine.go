// Package service interprets decoded bank statements: it locates the header,
// maps columns to transaction fields, assembles one transaction per data row and
// flags duplicates against previously stored transactions.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/statement-import/internal/domain/import/categorize"
	"github.com/FACorreiaa/statement-import/internal/domain/import/currency"
	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/internal/domain/import/sniffer"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

const (
	DefaultCard       = "Main card"
	DefaultSampleRows = 5

	probeRows  = 20
	tracerName = "github.com/FACorreiaa/statement-import/internal/domain/import/service"
)

// Engine turns a decoded grid into transactions. It is safe for concurrent use;
// every Parse call keeps its own accumulators.
type Engine struct {
	dates           *parser.DateParser
	currencies      *currency.Detector
	resolver        *categorize.Resolver // nil: no category inference
	repo            repository.TransactionRepository
	metrics         *Metrics
	tracer          trace.Tracer
	logger          *slog.Logger
	defaultCard     string
	defaultCategory string
	headerScanRows  int
	now             func() time.Time
}

// NewEngine creates an engine with the default parsers and no duplicate lookups
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		dates:           parser.NewDateParser(),
		currencies:      currency.NewDetector(currency.DefaultRegistry(), "", logger),
		tracer:          otel.Tracer(tracerName),
		logger:          logger,
		defaultCard:     DefaultCard,
		defaultCategory: categorize.DefaultCategory,
		headerScanRows:  sniffer.DefaultHeaderScanRows,
		now:             time.Now,
	}
}

// WithRepository enables duplicate flagging against the repository
func (e *Engine) WithRepository(repo repository.TransactionRepository) *Engine {
	e.repo = repo
	return e
}

// WithCategoryResolver infers categories when no category column is mapped
func (e *Engine) WithCategoryResolver(r *categorize.Resolver) *Engine {
	e.resolver = r
	return e
}

// WithCurrencyDetector replaces the default detector
func (e *Engine) WithCurrencyDetector(d *currency.Detector) *Engine {
	if d != nil {
		e.currencies = d
	}
	return e
}

// WithDateParser replaces the default date parser
func (e *Engine) WithDateParser(p *parser.DateParser) *Engine {
	if p != nil {
		e.dates = p
	}
	return e
}

// WithMetrics records file and row outcomes
func (e *Engine) WithMetrics(m *Metrics) *Engine {
	e.metrics = m
	return e
}

// WithTracer replaces the global otel tracer
func (e *Engine) WithTracer(t trace.Tracer) *Engine {
	if t != nil {
		e.tracer = t
	}
	return e
}

// WithDefaultCard sets the card used when the statement has no card column
func (e *Engine) WithDefaultCard(card string) *Engine {
	if card != "" {
		e.defaultCard = card
	}
	return e
}

// WithDefaultCategory sets the category used when nothing else applies
func (e *Engine) WithDefaultCategory(category string) *Engine {
	if category != "" {
		e.defaultCategory = category
	}
	return e
}

// WithHeaderScanRows sets how many top rows are searched for the header
func (e *Engine) WithHeaderScanRows(n int) *Engine {
	if n > 0 {
		e.headerScanRows = n
	}
	return e
}

// WithClock fixes the time source for metadata and the date plausibility window
func (e *Engine) WithClock(now func() time.Time) *Engine {
	if now != nil {
		e.now = now
		e.dates.Now = now
	}
	return e
}

// Currencies exposes the detector, mainly for its registry
func (e *Engine) Currencies() *currency.Detector {
	return e.currencies
}

type detection struct {
	header   *sniffer.HeaderResult
	analyses []sniffer.ColumnAnalysis
	mapping  *ImportMapping
	err      error // classification failure; header is still valid
}

func (e *Engine) detect(grid *parser.Grid) (*detection, error) {
	if grid.Len() == 0 {
		return nil, parser.ErrEmptyFile
	}

	header, err := sniffer.LocateHeader(grid.TextRows(e.headerScanRows), e.headerScanRows)
	if err != nil {
		return nil, err
	}
	if header.Fallback {
		e.metrics.headerFallback()
		e.logger.Warn("header row chosen by fallback",
			slog.Int("row", header.Index),
			slog.Any("labels", header.RawLabels),
		)
	}

	assignment, analyses, err := sniffer.Classify(header.Labels)
	d := &detection{header: header, analyses: analyses}
	if err != nil {
		d.err = err
		return d, nil
	}

	column := func(f sniffer.Field) *Column {
		idx := assignment.Column(f)
		if idx < 0 {
			return nil
		}
		return &Column{Label: header.RawLabels[idx], Index: idx}
	}

	d.mapping = &ImportMapping{
		DateColumn:        column(sniffer.FieldDate),
		AmountColumn:      column(sniffer.FieldAmount),
		DescriptionColumn: column(sniffer.FieldDescription),
		CardColumn:        column(sniffer.FieldCard),
		CategoryColumn:    column(sniffer.FieldCategory),
		CommentColumn:     column(sniffer.FieldComment),
		HasHeader:         true,
		HeaderRowIndex:    header.Index,
		DateFormatHint:    sniffer.DetectDateFormatHint(textSamples(grid, header.Index+1, assignment.Date)),
		DecimalSeparator:  sniffer.DetectDecimalSeparator(textSamples(grid, header.Index+1, assignment.Amount)),
	}
	return d, nil
}

// textSamples collects non-numeric cells of one column below the header
func textSamples(grid *parser.Grid, start, col int) []string {
	var samples []string
	for i := start; i < grid.Len() && len(samples) < probeRows; i++ {
		c := grid.Cell(i, col)
		if c.Numeric || c.IsBlank() {
			continue
		}
		samples = append(samples, c.String())
	}
	return samples
}

// DetectMapping finds the header and assigns columns. It fails with
// sniffer.ErrNoColumnsDetected or sniffer.ErrRequiredColumnsMissing.
func (e *Engine) DetectMapping(grid *parser.Grid) (*ImportMapping, error) {
	d, err := e.detect(grid)
	if err != nil {
		return nil, err
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.mapping, nil
}

// Preview returns the header, a few sample rows and the suggested mapping.
// A header whose date or amount column cannot be identified still yields a
// preview, with SuggestedMapping left nil for the caller to fill in.
func (e *Engine) Preview(ctx context.Context, grid *parser.Grid, fileName string, sampleSize int) (*Preview, error) {
	_, span := e.tracer.Start(ctx, "import.Preview", trace.WithAttributes(attribute.String("file.name", fileName)))
	defer span.End()

	if sampleSize <= 0 {
		sampleSize = DefaultSampleRows
	}

	d, err := e.detect(grid)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	columns := make([]string, len(d.header.Labels))
	for i, label := range d.header.Labels {
		if label == "" {
			label = fmt.Sprintf("Column %d", i+1)
		}
		columns[i] = label
	}

	var samples [][]string
	for i := d.header.Index + 1; i < grid.Len() && len(samples) < sampleSize; i++ {
		if parser.IsBlankRow(grid.Rows[i]) {
			continue
		}
		samples = append(samples, grid.RowStrings(i))
	}

	if d.err != nil {
		e.logger.Info("preview without suggested mapping", slog.Any("error", d.err))
	}

	return &Preview{
		Columns:          columns,
		SampleRows:       samples,
		SuggestedMapping: d.mapping,
		Analyses:         d.analyses,
		HeaderRowIndex:   d.header.Index,
		HeaderFallback:   d.header.Fallback,
		Fingerprint:      sniffer.Fingerprint(d.header.RawLabels),
		Currency:         e.currencies.Detect(grid.Text(), fileName),
	}, nil
}

// resolvedColumns holds grid indices; -1 means the field is not mapped
type resolvedColumns struct {
	date, amount, description, card, category, comment int
}

func (e *Engine) resolveColumns(grid *parser.Grid, m *ImportMapping) resolvedColumns {
	var header []string
	if m.HasHeader {
		header = grid.RowStrings(m.HeaderRowIndex)
	}
	return resolvedColumns{
		date:        e.resolveColumn(header, m.DateColumn, "date"),
		amount:      e.resolveColumn(header, m.AmountColumn, "amount"),
		description: e.resolveColumn(header, m.DescriptionColumn, "description"),
		card:        e.resolveColumn(header, m.CardColumn, "card"),
		category:    e.resolveColumn(header, m.CategoryColumn, "category"),
		comment:     e.resolveColumn(header, m.CommentColumn, "comment"),
	}
}

// resolveColumn prefers the index when the header agrees with the label, then
// searches the header by label. An unknown label falls back to the first column.
func (e *Engine) resolveColumn(header []string, c *Column, field string) int {
	if c == nil {
		return -1
	}
	label := strings.TrimSpace(c.Label)
	if label == "" || header == nil {
		return c.Index
	}
	if c.Index >= 0 && c.Index < len(header) && strings.EqualFold(header[c.Index], label) {
		return c.Index
	}

	cleaned := sniffer.CleanHeaderLabels(header)
	for _, labels := range [][]string{header, cleaned} {
		for i, h := range labels {
			if strings.EqualFold(h, label) {
				return i
			}
		}
	}

	e.logger.Warn("mapped column label not found in header, using first column",
		slog.String("field", field),
		slog.String("label", label),
	)
	return 0
}

type batchInfo struct {
	id         uuid.UUID
	importedAt time.Time
	source     string
	fileName   string
	currency   string
	fraction   int
	dateOpts   parser.DateOptions
	amountOpts parser.AmountOptions
}

// Parse converts every data row of the grid into a transaction. A nil mapping is
// detected; a supplied mapping is used as given. Row failures are collected in
// the result, only file-level problems are returned as errors.
func (e *Engine) Parse(ctx context.Context, grid *parser.Grid, fileName string, mapping *ImportMapping) (*ImportResult, error) {
	ctx, span := e.tracer.Start(ctx, "import.Parse", trace.WithAttributes(
		attribute.String("file.name", fileName),
		attribute.Int("grid.rows", grid.Len()),
	))
	defer span.End()

	start := e.now()
	result, err := e.parse(ctx, grid, fileName, mapping)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.metrics.fileDone(outcomeFailed, 0)
		e.logger.Error("statement parse failed", slog.String("file", fileName), slog.Any("error", err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("import.transactions", result.Summary.SuccessfulImports),
		attribute.Int("import.duplicates", result.Summary.DuplicatesFound),
		attribute.Int("import.errors", result.Summary.ErrorsCount),
		attribute.String("import.currency", result.Currency),
	)
	e.metrics.fileDone(outcomeOK, e.now().Sub(start).Seconds())
	e.metrics.rows(outcomeImported, result.Summary.SuccessfulImports-result.Summary.DuplicatesFound)
	e.metrics.rows(outcomeDuplicate, result.Summary.DuplicatesFound)
	e.metrics.rows(outcomeError, result.Summary.ErrorsCount)

	e.logger.Info("statement parsed",
		slog.String("file", fileName),
		slog.String("batch_id", result.BatchID),
		slog.String("currency", result.Currency),
		slog.Int("total_rows", result.Summary.TotalRows),
		slog.Int("imported", result.Summary.SuccessfulImports),
		slog.Int("duplicates", result.Summary.DuplicatesFound),
		slog.Int("errors", result.Summary.ErrorsCount),
	)
	return result, nil
}

func (e *Engine) parse(ctx context.Context, grid *parser.Grid, fileName string, mapping *ImportMapping) (*ImportResult, error) {
	if grid.Len() == 0 {
		return nil, parser.ErrEmptyFile
	}

	if mapping == nil {
		detected, err := e.DetectMapping(grid)
		if err != nil {
			return nil, fmt.Errorf("failed to detect columns: %w", err)
		}
		mapping = detected
	} else if err := mapping.Validate(); err != nil {
		return nil, err
	}

	cols := e.resolveColumns(grid, mapping)
	code := e.currencies.Detect(grid.Text(), fileName)
	batch := batchInfo{
		id:         uuid.New(),
		importedAt: e.now(),
		source:     sourceTag(fileName),
		fileName:   fileName,
		currency:   code,
		fraction:   e.currencies.Registry().Fraction(code),
		dateOpts:   parser.DateOptions{Hint: mapping.DateFormatHint, Date1904: grid.Date1904},
		amountOpts: parser.AmountOptions{DecimalComma: mapping.DecimalSeparator == ","},
	}

	result := &ImportResult{
		BatchID:      batch.id.String(),
		Currency:     code,
		Mapping:      mapping,
		Transactions: []repository.Transaction{},
		Duplicates:   []repository.Transaction{},
		Errors:       []ImportError{},
	}

	first := 0
	if mapping.HasHeader {
		first = mapping.HeaderRowIndex + 1
	}

	for i := first; i < grid.Len(); i++ {
		result.Summary.TotalRows++

		tx, rowErr := e.assembleRow(grid, i, cols, batch)
		if rowErr != nil {
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		if tx == nil {
			continue
		}

		if e.repo != nil {
			dups, err := e.repo.FindPotentialDuplicates(ctx, *tx)
			if err != nil {
				e.logger.Warn("duplicate lookup failed",
					slog.Int("row", i+1),
					slog.Any("error", err),
				)
				result.Errors = append(result.Errors, ImportError{
					Row:     i + 1,
					Error:   fmt.Sprintf("duplicate check failed: %v", err),
					RawData: grid.RowStrings(i),
				})
				continue
			}
			if len(dups) > 0 {
				tx.IsDuplicate = true
				result.Duplicates = append(result.Duplicates, *tx)
			}
		}

		result.Transactions = append(result.Transactions, *tx)
		observeDate(&result.Summary, tx.Date)
	}

	result.Summary.SuccessfulImports = len(result.Transactions)
	result.Summary.DuplicatesFound = len(result.Duplicates)
	result.Summary.ErrorsCount = len(result.Errors)
	return result, nil
}

// assembleRow builds the transaction for one grid row. It returns (nil, nil)
// for rows with no date, amount or description.
func (e *Engine) assembleRow(grid *parser.Grid, row int, cols resolvedColumns, batch batchInfo) (tx *repository.Transaction, rowErr *ImportError) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic while assembling row", slog.Int("row", row+1), slog.Any("panic", r))
			tx = nil
			rowErr = &ImportError{
				Row:     row + 1,
				Error:   fmt.Sprintf("unexpected error: %v", r),
				RawData: grid.RowStrings(row),
			}
		}
	}()

	cell := func(idx int) parser.Cell {
		if idx < 0 {
			return parser.Cell{}
		}
		return grid.Cell(row, idx)
	}

	dateCell := cell(cols.date)
	amountCell := cell(cols.amount)
	descCell := cell(cols.description)
	if dateCell.IsBlank() && amountCell.IsBlank() && descCell.IsBlank() {
		return nil, nil
	}

	fail := func(column string, err error) (*repository.Transaction, *ImportError) {
		return nil, &ImportError{
			Row:     row + 1,
			Column:  column,
			Error:   err.Error(),
			RawData: grid.RowStrings(row),
		}
	}

	date, hasTime, err := e.dates.Parse(dateCell, batch.dateOpts)
	if err != nil {
		return fail("date", fmt.Errorf("%w: %q", err, dateCell.String()))
	}

	value, err := parser.ParseAmountWith(amountCell, batch.amountOpts)
	if err != nil {
		return fail("amount", err)
	}

	switch parser.DetectDirection(amountCell.String()) {
	case parser.DirectionIncome:
		value = value.Abs()
	case parser.DirectionExpense:
		value = value.Abs().Neg()
	}
	amount, err := money.MinorUnits(value, batch.fraction)
	if err != nil {
		return fail("amount", fmt.Errorf("%w: %q", err, amountCell.String()))
	}

	original := descCell.String()
	var description, comment string
	if cols.comment >= 0 {
		description = parser.CleanDescription(original)
		comment = cell(cols.comment).String()
	} else {
		d, c := parser.SplitComment(original)
		description = parser.CleanDescription(d)
		comment = c
	}

	card := e.defaultCard
	if cols.card >= 0 {
		card = parser.NormalizeCardName(cell(cols.card).String(), e.defaultCard)
	}

	category := ""
	if cols.category >= 0 {
		category = strings.TrimSpace(cell(cols.category).String())
	} else if e.resolver != nil {
		category = e.resolver.Resolve(description, comment)
	}
	if category == "" {
		category = e.defaultCategory
	}

	return &repository.Transaction{
		ID:                  uuid.New(),
		Date:                date,
		HasTime:             hasTime,
		Card:                card,
		Amount:              amount,
		Currency:            batch.currency,
		Description:         description,
		OriginalDescription: original,
		Category:            category,
		Comment:             comment,
		IsIncome:            amount > 0,
		Metadata: repository.Metadata{
			CreatedAt:     e.now(),
			ImportedAt:    batch.importedAt,
			Source:        batch.source,
			BatchID:       batch.id,
			SchemaVersion: repository.SchemaVersion,
			SourceRow:     row + 1,
			FileName:      batch.fileName,
		},
	}, nil
}

func observeDate(s *ImportSummary, d time.Time) {
	if s.EarliestDate == nil || d.Before(*s.EarliestDate) {
		t := d
		s.EarliestDate = &t
	}
	if s.LatestDate == nil || d.After(*s.LatestDate) {
		t := d
		s.LatestDate = &t
	}
}

func sourceTag(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" {
		return "statement"
	}
	return ext
}

// IsBatchFatal reports whether err aborts a whole file rather than one row
func IsBatchFatal(err error) bool {
	return errors.Is(err, parser.ErrEmptyFile) ||
		errors.Is(err, parser.ErrUnsupportedFormat) ||
		errors.Is(err, sniffer.ErrNoColumnsDetected) ||
		errors.Is(err, sniffer.ErrRequiredColumnsMissing) ||
		errors.Is(err, ErrInvalidMapping)
}
