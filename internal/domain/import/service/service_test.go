package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/import/parser"
	"github.com/FACorreiaa/statement-import/internal/domain/import/repository"
	"github.com/FACorreiaa/statement-import/internal/domain/import/sniffer"
)

const notesCSV = "Дата;Сума;Опис;Нотатка\n" +
	"01.03.2024;-10,00;Coffee;for the team\n"

func newTestService(mappings repository.MappingRepository) *ImportService {
	engine := newTestEngine()
	svc := NewImportService(discardLogger(), NewSpreadsheetHandler(nil, engine, 0))
	if mappings != nil {
		svc.WithMappingRepository(mappings)
	}
	return svc
}

func mustFile(t *testing.T, name, data string) File {
	t.Helper()
	f, err := NewFile(name, []byte(data))
	require.NoError(t, err)
	return f
}

func TestImportService_ExtractPreview(t *testing.T) {
	svc := newTestService(repository.NewMemoryRepository())

	preview, err := svc.ExtractPreview(context.Background(), mustFile(t, "privat.csv", ukrainianCSV))
	require.NoError(t, err)
	assert.False(t, preview.SavedMapping)
	require.NotNil(t, preview.SuggestedMapping)
	assert.NotEmpty(t, preview.Fingerprint)

	mapping, err := svc.DetectMapping(context.Background(), mustFile(t, "privat.csv", ukrainianCSV))
	require.NoError(t, err)
	assert.Equal(t, preview.SuggestedMapping, mapping)
}

func TestImportService_SavedMapping(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryRepository()
	svc := newTestService(store)

	preview, err := svc.ExtractPreview(ctx, mustFile(t, "notes.csv", notesCSV))
	require.NoError(t, err)
	require.NotNil(t, preview.SuggestedMapping)
	assert.Nil(t, preview.SuggestedMapping.CommentColumn)

	confirmed := *preview.SuggestedMapping
	confirmed.CommentColumn = ColumnAt(3)
	require.NoError(t, svc.SaveMapping(ctx, preview.Fingerprint, "Test Bank", &confirmed))

	stored, err := store.GetMappingByFingerprint(ctx, preview.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, stored.BankName)
	assert.Equal(t, "Test Bank", *stored.BankName)
	require.NotNil(t, stored.CommentCol)
	assert.Equal(t, 3, *stored.CommentCol)
	assert.Equal(t, ",", stored.DecimalSeparator)

	// same layout, one banner line higher up
	shifted := mustFile(t, "notes-april.csv", "Виписка по картці\n"+notesCSV)

	again, err := svc.ExtractPreview(ctx, shifted)
	require.NoError(t, err)
	assert.True(t, again.SavedMapping)
	assert.Equal(t, preview.Fingerprint, again.Fingerprint)
	require.NotNil(t, again.SuggestedMapping.CommentColumn)
	assert.Equal(t, 1, again.SuggestedMapping.HeaderRowIndex)
	assert.Equal(t, ",", again.SuggestedMapping.DecimalSeparator)

	result, err := svc.Parse(ctx, shifted, nil)
	require.NoError(t, err)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "for the team", result.Transactions[0].Comment)
	assert.Equal(t, int64(-1000), result.Transactions[0].Amount)
}

func TestImportService_SaveMappingErrors(t *testing.T) {
	ctx := context.Background()
	valid := &ImportMapping{DateColumn: ColumnAt(0), AmountColumn: ColumnAt(1), HasHeader: true}

	err := newTestService(nil).SaveMapping(ctx, "abc", "", valid)
	assert.ErrorIs(t, err, ErrNoMappingStore)

	svc := newTestService(repository.NewMemoryRepository())
	assert.ErrorIs(t, svc.SaveMapping(ctx, "", "", valid), ErrInvalidMapping)
	assert.ErrorIs(t, svc.SaveMapping(ctx, "abc", "", &ImportMapping{DateColumn: ColumnAt(0)}), ErrInvalidMapping)

	labelsOnly := &ImportMapping{DateColumn: ColumnNamed("Дата"), AmountColumn: ColumnNamed("Сума"), HasHeader: true}
	assert.ErrorIs(t, svc.SaveMapping(ctx, "abc", "", labelsOnly), ErrInvalidMapping)

	require.NoError(t, svc.SaveMapping(ctx, "abc", "", valid))
}

type brokenMappings struct{}

func (brokenMappings) GetMappingByFingerprint(context.Context, string) (*repository.BankMapping, error) {
	return nil, errors.New("store offline")
}

func (brokenMappings) SaveMapping(context.Context, *repository.BankMapping) error {
	return errors.New("store offline")
}

func TestImportService_MappingStoreFailure(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(brokenMappings{})
	file := mustFile(t, "privat.csv", ukrainianCSV)

	preview, err := svc.ExtractPreview(ctx, file)
	require.NoError(t, err)
	assert.False(t, preview.SavedMapping)
	assert.NotNil(t, preview.SuggestedMapping)

	result, err := svc.Parse(ctx, file, nil)
	require.NoError(t, err)
	assert.Len(t, result.Transactions, 3)

	err = svc.SaveMapping(ctx, preview.Fingerprint, "", preview.SuggestedMapping)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store offline")
}

func TestImportService_Routing(t *testing.T) {
	ctx := context.Background()

	_, err := NewImportService(discardLogger()).Parse(ctx, mustFile(t, "a.csv", ukrainianCSV), nil)
	assert.ErrorIs(t, err, ErrNoHandler)

	svc := newTestService(nil)
	_, err = svc.Parse(ctx, File{Name: "scan.pdf", Data: []byte{0x25, 0x50, 0x00, 0x01}}, nil)
	assert.ErrorIs(t, err, parser.ErrUnsupportedFormat)

	_, err = svc.DetectMapping(ctx, mustFile(t, "odd.csv", "Foo;Bar;Baz\n1;2;3\n"))
	assert.ErrorIs(t, err, sniffer.ErrRequiredColumnsMissing)
}
