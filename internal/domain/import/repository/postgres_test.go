package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var transactionRowColumns = []string{
	"id", "occurred_at", "has_time", "card", "amount", "currency", "description",
	"original_description", "category", "comment", "is_income", "source", "batch_id",
	"schema_version", "source_row", "file_name", "imported_at", "created_at",
}

func TestPostgresTransactionRepository_FindPotentialDuplicates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresTransactionRepository(mock)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	candidate := Transaction{
		Date:                day.Add(14 * time.Hour),
		Amount:              -15050,
		Currency:            "UAH",
		Description:         "Сільпо",
		OriginalDescription: "POS Сільпо Київ",
	}
	storedID := uuid.New()
	batchID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM imported_transactions`).
		WithArgs(day, int64(-15050), "UAH", "Сільпо", "POS Сільпо Київ").
		WillReturnRows(pgxmock.NewRows(transactionRowColumns).AddRow(
			storedID, day, false, "Monobank", int64(-15050), "UAH", "Сільпо",
			"POS Сільпо Київ", "Groceries", "", false, "xlsx", batchID,
			1, 3, "statement.xlsx", now, now,
		))

	dups, err := repo.FindPotentialDuplicates(context.Background(), candidate)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, storedID, dups[0].ID)
	assert.Equal(t, "Groceries", dups[0].Category)
	assert.Equal(t, batchID, dups[0].Metadata.BatchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransactionRepository_FindPotentialDuplicates_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresTransactionRepository(mock)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`SELECT .+ FROM imported_transactions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)

	_, err = repo.FindPotentialDuplicates(context.Background(), Transaction{Date: time.Now()})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresTransactionRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresTransactionRepository(mock)
	tx := &Transaction{
		Date:     time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		HasTime:  true,
		Amount:   250000,
		Currency: "UAH",
		IsIncome: true,
	}

	args := make([]any, 20)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec(`INSERT INTO imported_transactions`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), tx))
	assert.NotEqual(t, uuid.Nil, tx.ID)
	assert.False(t, tx.Metadata.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMappingRepository_GetMappingByFingerprint(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresMappingRepository(mock)
	id := uuid.New()
	bank := "Monobank"
	desc := 2
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM bank_mappings`).
		WithArgs("abc123").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "fingerprint", "bank_name", "date_col", "amount_col", "description_col",
			"card_col", "category_col", "comment_col", "has_header", "header_row",
			"date_format", "decimal_separator", "created_at", "updated_at",
		}).AddRow(
			id, "abc123", &bank, 0, 3, &desc, (*int)(nil), (*int)(nil), (*int)(nil), true, 4, "DD/MM/YYYY", ",", now, now,
		))

	m, err := repo.GetMappingByFingerprint(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, id, m.ID)
	assert.Equal(t, 3, m.AmountCol)
	require.NotNil(t, m.DescriptionCol)
	assert.Equal(t, 2, *m.DescriptionCol)
	assert.Nil(t, m.CardCol)
	assert.Equal(t, 4, m.HeaderRow)
	assert.Equal(t, ",", m.DecimalSeparator)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMappingRepository_GetMappingByFingerprint_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresMappingRepository(mock)
	mock.ExpectQuery(`SELECT .+ FROM bank_mappings`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetMappingByFingerprint(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrMappingNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresMappingRepository_SaveMapping(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresMappingRepository(mock)
	storedID := uuid.New()
	now := time.Now()
	mapping := &BankMapping{Fingerprint: "abc123", DateCol: 0, AmountCol: 1, HasHeader: true, DateFormat: "DD/MM/YYYY", DecimalSeparator: ","}

	mock.ExpectQuery(`INSERT INTO bank_mappings`).
		WithArgs(pgxmock.AnyArg(), "abc123", mapping.BankName, 0, 1, mapping.DescriptionCol,
			mapping.CardCol, mapping.CategoryCol, mapping.CommentCol, true, 0, "DD/MM/YYYY", ",").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(storedID, now, now))

	require.NoError(t, repo.SaveMapping(context.Background(), mapping))
	assert.Equal(t, storedID, mapping.ID)
	assert.Equal(t, now, mapping.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
