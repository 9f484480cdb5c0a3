package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, occurred_at, has_time, card, amount, currency, description,
	original_description, category, comment, is_income, source, batch_id, schema_version,
	source_row, file_name, imported_at, created_at`

// PostgresTransactionRepository implements TransactionRepository on pgx
type PostgresTransactionRepository struct {
	db DBTX
}

// NewPostgresTransactionRepository creates a new repository over a pool or transaction
func NewPostgresTransactionRepository(db DBTX) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

// FindPotentialDuplicates returns stored transactions on the same day with the same
// amount and currency whose description or original description matches.
func (r *PostgresTransactionRepository) FindPotentialDuplicates(ctx context.Context, candidate Transaction) ([]Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM imported_transactions
		WHERE booking_date = $1
		  AND amount = $2
		  AND currency = $3
		  AND (lower(description) = lower($4)
		       OR ($5 <> '' AND lower(original_description) = lower($5)))
		ORDER BY created_at
		LIMIT 10
	`

	rows, err := r.db.Query(ctx, query,
		candidate.BankDay(),
		candidate.Amount,
		candidate.Currency,
		candidate.Description,
		candidate.OriginalDescription,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicates: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan duplicate: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create stores a transaction, assigning an ID when it has none
func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.Metadata.CreatedAt.IsZero() {
		tx.Metadata.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO imported_transactions (
			id, booking_date, occurred_at, has_time, card, amount, currency, description,
			original_description, category, comment, is_income, is_duplicate, source,
			batch_id, schema_version, source_row, file_name, imported_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.Exec(ctx, query,
		tx.ID, tx.BankDay(), tx.Date, tx.HasTime, tx.Card, tx.Amount, tx.Currency,
		tx.Description, tx.OriginalDescription, tx.Category, tx.Comment, tx.IsIncome,
		tx.IsDuplicate, tx.Metadata.Source, tx.Metadata.BatchID, tx.Metadata.SchemaVersion,
		tx.Metadata.SourceRow, tx.Metadata.FileName, tx.Metadata.ImportedAt, tx.Metadata.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(
		&t.ID, &t.Date, &t.HasTime, &t.Card, &t.Amount, &t.Currency, &t.Description,
		&t.OriginalDescription, &t.Category, &t.Comment, &t.IsIncome, &t.Metadata.Source,
		&t.Metadata.BatchID, &t.Metadata.SchemaVersion, &t.Metadata.SourceRow,
		&t.Metadata.FileName, &t.Metadata.ImportedAt, &t.Metadata.CreatedAt,
	)
	return t, err
}

// PostgresMappingRepository implements MappingRepository on pgx
type PostgresMappingRepository struct {
	db DBTX
}

// NewPostgresMappingRepository creates a new mapping store
func NewPostgresMappingRepository(db DBTX) *PostgresMappingRepository {
	return &PostgresMappingRepository{db: db}
}

// GetMappingByFingerprint returns ErrMappingNotFound when the layout is unknown
func (r *PostgresMappingRepository) GetMappingByFingerprint(ctx context.Context, fingerprint string) (*BankMapping, error) {
	query := `
		SELECT id, fingerprint, bank_name, date_col, amount_col, description_col, card_col,
			category_col, comment_col, has_header, header_row, date_format, decimal_separator,
			created_at, updated_at
		FROM bank_mappings
		WHERE fingerprint = $1
	`

	var m BankMapping
	err := r.db.QueryRow(ctx, query, fingerprint).Scan(
		&m.ID, &m.Fingerprint, &m.BankName, &m.DateCol, &m.AmountCol, &m.DescriptionCol,
		&m.CardCol, &m.CategoryCol, &m.CommentCol, &m.HasHeader, &m.HeaderRow,
		&m.DateFormat, &m.DecimalSeparator, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMappingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mapping: %w", err)
	}
	return &m, nil
}

// SaveMapping creates or replaces the mapping for its fingerprint
func (r *PostgresMappingRepository) SaveMapping(ctx context.Context, mapping *BankMapping) error {
	if mapping.ID == uuid.Nil {
		mapping.ID = uuid.New()
	}

	query := `
		INSERT INTO bank_mappings (
			id, fingerprint, bank_name, date_col, amount_col, description_col, card_col,
			category_col, comment_col, has_header, header_row, date_format, decimal_separator
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (fingerprint) DO UPDATE SET
			bank_name = EXCLUDED.bank_name,
			date_col = EXCLUDED.date_col,
			amount_col = EXCLUDED.amount_col,
			description_col = EXCLUDED.description_col,
			card_col = EXCLUDED.card_col,
			category_col = EXCLUDED.category_col,
			comment_col = EXCLUDED.comment_col,
			has_header = EXCLUDED.has_header,
			header_row = EXCLUDED.header_row,
			date_format = EXCLUDED.date_format,
			decimal_separator = EXCLUDED.decimal_separator,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		mapping.ID, mapping.Fingerprint, mapping.BankName, mapping.DateCol, mapping.AmountCol,
		mapping.DescriptionCol, mapping.CardCol, mapping.CategoryCol, mapping.CommentCol,
		mapping.HasHeader, mapping.HeaderRow, mapping.DateFormat, mapping.DecimalSeparator,
	).Scan(&mapping.ID, &mapping.CreatedAt, &mapping.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}
