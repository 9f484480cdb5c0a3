// Package inbox imports statement files dropped into a directory on a cron schedule.
package inbox

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/internal/domain/import/service"
	"github.com/FACorreiaa/statement-import/pkg/storage"
)

const sweepTimeout = 30 * time.Minute

// Importer parses one statement file; *service.ImportService satisfies it
type Importer interface {
	Parse(ctx context.Context, file service.File, mapping *service.ImportMapping) (*service.ImportResult, error)
}

// Report sums up one sweep
type Report struct {
	Files      int // statement files picked up
	Failed     int // files rejected as a whole
	Imported   int // transactions stored
	Duplicates int
	RowErrors  int
}

// Sweeper periodically imports every statement in a directory, stores new
// transactions and moves each file into the archive.
type Sweeper struct {
	cron     *cron.Cron
	dir      string
	schedule string
	importer Importer
	archive  storage.Storage
	repo     repository.TransactionRepository // optional
	logger   *slog.Logger
	mu       sync.Mutex // one sweep at a time
}

// NewSweeper creates a sweeper over dir using a standard 5-field cron schedule
func NewSweeper(dir, schedule string, importer Importer, archive storage.Storage, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	cronLogger := cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	return &Sweeper{
		cron:     c,
		dir:      dir,
		schedule: schedule,
		importer: importer,
		archive:  archive,
		logger:   logger,
	}
}

// WithRepository stores the non-duplicate transactions of every imported file
func (s *Sweeper) WithRepository(repo repository.TransactionRepository) *Sweeper {
	s.repo = repo
	return s
}

// Start schedules the sweep
func (s *Sweeper) Start() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox directory: %w", err)
	}
	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("invalid inbox schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info("inbox sweeper started",
		slog.String("dir", s.dir),
		slog.String("schedule", s.schedule),
	)
	return nil
}

// Stop stops scheduling; the returned context is done when a running sweep finishes
func (s *Sweeper) Stop() context.Context {
	s.logger.Info("inbox sweeper stopping")
	return s.cron.Stop()
}

// RunNow triggers a sweep outside the schedule
func (s *Sweeper) RunNow() {
	go s.run()
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("inbox sweep failed", slog.Any("error", err))
	}
}

// Sweep imports every statement currently in the directory. Hidden files,
// subdirectories and unknown extensions are left alone.
func (s *Sweeper) Sweep(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.pending()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Files++
		s.processFile(ctx, name, report)
	}

	if report.Files > 0 {
		s.logger.Info("inbox sweep completed",
			slog.Int("files", report.Files),
			slog.Int("failed", report.Failed),
			slog.Int("imported", report.Imported),
			slog.Int("duplicates", report.Duplicates),
			slog.Int("row_errors", report.RowErrors),
		)
	}
	return report, nil
}

func (s *Sweeper) pending() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !entry.Type().IsRegular() {
			continue
		}
		if _, err := parser.DetectFileType(name, nil); err != nil {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Sweeper) processFile(ctx context.Context, name string, report *Report) {
	path := filepath.Join(s.dir, name)
	logger := s.logger.With(slog.String("file", name))

	data, err := os.ReadFile(path)
	if err != nil {
		report.Failed++
		logger.Error("failed to read statement", slog.Any("error", err))
		return
	}

	result, err := s.parse(ctx, name, data)
	if err != nil {
		report.Failed++
		logger.Warn("statement rejected", slog.Any("error", err))
		s.archiveAndRemove(ctx, logger, path, uuid.New(), name, storage.StatusFailed, err.Error(), data)
		return
	}

	stored := s.persist(ctx, logger, result)
	report.Imported += stored
	report.Duplicates += result.Summary.DuplicatesFound
	report.RowErrors += result.Summary.ErrorsCount

	batchID, err := uuid.Parse(result.BatchID)
	if err != nil {
		batchID = uuid.New()
	}
	note := fmt.Sprintf("%d stored, %d duplicates, %d row errors, currency %s",
		stored, result.Summary.DuplicatesFound, result.Summary.ErrorsCount, result.Currency)
	s.archiveAndRemove(ctx, logger, path, batchID, name, storage.StatusImported, note, data)
}

func (s *Sweeper) parse(ctx context.Context, name string, data []byte) (*service.ImportResult, error) {
	file, err := service.NewFile(name, data)
	if err != nil {
		return nil, err
	}
	return s.importer.Parse(ctx, file, nil)
}

// persist stores the non-duplicate transactions and returns how many were stored
func (s *Sweeper) persist(ctx context.Context, logger *slog.Logger, result *service.ImportResult) int {
	if s.repo == nil {
		return result.Summary.SuccessfulImports - result.Summary.DuplicatesFound
	}

	stored := 0
	for i := range result.Transactions {
		tx := &result.Transactions[i]
		if tx.IsDuplicate {
			continue
		}
		if err := s.repo.Create(ctx, tx); err != nil {
			logger.Warn("failed to store transaction",
				slog.Int("row", tx.Metadata.SourceRow),
				slog.Any("error", err),
			)
			continue
		}
		stored++
	}
	return stored
}

// archiveAndRemove keeps the file in the inbox when archiving fails, so the next sweep retries it
func (s *Sweeper) archiveAndRemove(ctx context.Context, logger *slog.Logger, path string, id uuid.UUID, name string, status storage.Status, note string, data []byte) {
	if _, err := s.archive.Put(ctx, id, name, status, note, bytes.NewReader(data)); err != nil {
		logger.Error("failed to archive statement", slog.Any("error", err))
		return
	}
	if err := os.Remove(path); err != nil {
		logger.Error("failed to remove statement from inbox", slog.Any("error", err))
	}
}
