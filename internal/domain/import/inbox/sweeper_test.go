package inbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/import/currency"
	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/internal/domain/import/service"
	"github.com/FACorreiaa/statement-import/pkg/storage"
)

const statementCSV = "Дата;Сума;Опис\n" +
	"01.03.2024;-123,45;POS Purchase Shop\n" +
	"02.03.2024;-50,00;Taxi\n" +
	"bad;-1,00;Broken\n"

type fixture struct {
	dir     string
	repo    *repository.MemoryRepository
	archive *storage.LocalStorage
	sweeper *Sweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewMemoryRepository()

	engine := service.NewEngine(logger).
		WithRepository(repo).
		WithCurrencyDetector(currency.NewDetector(nil, "UAH", logger)).
		WithClock(func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) })
	svc := service.NewImportService(logger, service.NewSpreadsheetHandler(nil, engine, 0))

	archive, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	dir := t.TempDir()
	return &fixture{
		dir:     dir,
		repo:    repo,
		archive: archive,
		sweeper: NewSweeper(dir, "@every 1h", svc, archive, logger).WithRepository(repo),
	}
}

func (f *fixture) drop(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644))
}

func TestSweeper_ImportsAndArchives(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.drop(t, "march.csv", statementCSV)

	report, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 2, report.Imported)
	assert.Equal(t, 1, report.RowErrors)

	assert.Len(t, f.repo.Transactions(), 2)
	assert.NoFileExists(t, filepath.Join(f.dir, "march.csv"))

	archived, err := f.archive.List(ctx)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, storage.StatusImported, archived[0].Status)
	assert.Equal(t, "march.csv", archived[0].Name)
	assert.Contains(t, archived[0].Note, "2 stored")

	report, err = f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Files)
}

func TestSweeper_DuplicatesAreNotStoredTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.drop(t, "march.csv", statementCSV)
	_, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)

	f.drop(t, "march-again.csv", statementCSV)
	report, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 2, report.Duplicates)
	assert.Len(t, f.repo.Transactions(), 2)
}

func TestSweeper_RejectedFile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.drop(t, "notes.csv", "just some text\n")

	report, err := f.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Files)
	assert.Equal(t, 1, report.Failed)
	assert.NoFileExists(t, filepath.Join(f.dir, "notes.csv"))

	archived, err := f.archive.List(ctx)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, storage.StatusFailed, archived[0].Status)
	assert.NotEmpty(t, archived[0].Note)
}

func TestSweeper_SkipsOtherEntries(t *testing.T) {
	f := newFixture(t)
	f.drop(t, ".partial.csv", statementCSV)
	f.drop(t, "scan.pdf", "%PDF-1.4")
	require.NoError(t, os.Mkdir(filepath.Join(f.dir, "nested.csv"), 0o755))

	report, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Files)
	assert.FileExists(t, filepath.Join(f.dir, ".partial.csv"))
	assert.FileExists(t, filepath.Join(f.dir, "scan.pdf"))
}

func TestSweeper_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.drop(t, "march.csv", statementCSV)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.sweeper.Sweep(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, report)
	assert.Equal(t, 0, report.Files)
	assert.FileExists(t, filepath.Join(f.dir, "march.csv"))
}

func TestSweeper_MissingDirectory(t *testing.T) {
	f := newFixture(t)
	f.sweeper.dir = filepath.Join(f.dir, "missing")

	_, err := f.sweeper.Sweep(context.Background())
	assert.Error(t, err)
}

func TestSweeper_StartStop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sweeper.Start())
	<-f.sweeper.Stop().Done()

	bad := NewSweeper(t.TempDir(), "not a schedule", f.sweeper.importer, f.archive, nil)
	assert.Error(t, bad.Start())
}
