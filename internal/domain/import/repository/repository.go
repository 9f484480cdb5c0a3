// Package repository stores imported transactions and learned column mappings.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SchemaVersion is stamped on every imported transaction
const SchemaVersion = 1

// ErrMappingNotFound is returned when no mapping is stored for a fingerprint
var ErrMappingNotFound = errors.New("mapping not found")

// DBTX is the subset of pgxpool.Pool and pgx.Tx used by the Postgres repositories
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Metadata describes where an imported transaction came from
type Metadata struct {
	CreatedAt     time.Time `json:"created_at"`
	ImportedAt    time.Time `json:"imported_at"`
	Source        string    `json:"source"`
	BatchID       uuid.UUID `json:"batch_id"`
	SchemaVersion int       `json:"schema_version"`
	SourceRow     int       `json:"source_row"`
	FileName      string    `json:"file_name,omitempty"`
}

// Transaction is one normalized statement row.
// Amount is in minor units of Currency: negative for expenses, positive for income.
type Transaction struct {
	ID                  uuid.UUID `json:"id"`
	Date                time.Time `json:"date"`
	HasTime             bool      `json:"-"`
	Card                string    `json:"card"`
	Amount              int64     `json:"amount"`
	Currency            string    `json:"currency"`
	Description         string    `json:"description"`
	OriginalDescription string    `json:"original_description"`
	Category            string    `json:"category"`
	Comment             string    `json:"comment,omitempty"`
	IsIncome            bool      `json:"is_income"`
	IsDuplicate         bool      `json:"is_duplicate"`
	Metadata            Metadata  `json:"metadata"`
}

// DateString formats the date as an ISO-8601 calendar date, or as RFC 3339 when
// the statement carried a time of day.
func (t Transaction) DateString() string {
	if t.HasTime {
		return t.Date.Format(time.RFC3339)
	}
	return t.Date.Format("2006-01-02")
}

// MarshalJSON writes Date through DateString
func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias: alias(t), Date: t.DateString()})
}

// BankDay returns the calendar date used for duplicate matching
func (t Transaction) BankDay() time.Time {
	y, m, d := t.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsPotentialDuplicate reports whether two transactions share date, amount and
// currency, and their descriptions match ignoring case.
func IsPotentialDuplicate(stored, candidate Transaction) bool {
	if !stored.BankDay().Equal(candidate.BankDay()) {
		return false
	}
	if stored.Amount != candidate.Amount || !strings.EqualFold(stored.Currency, candidate.Currency) {
		return false
	}
	return strings.EqualFold(stored.Description, candidate.Description) ||
		(candidate.OriginalDescription != "" && strings.EqualFold(stored.OriginalDescription, candidate.OriginalDescription))
}

// TransactionRepository is the store consulted for duplicates
type TransactionRepository interface {
	FindPotentialDuplicates(ctx context.Context, candidate Transaction) ([]Transaction, error)
	Create(ctx context.Context, tx *Transaction) error
}

// BankMapping is a column mapping learned for one header layout
type BankMapping struct {
	ID               uuid.UUID `json:"id"`
	Fingerprint      string    `json:"fingerprint"`
	BankName         *string   `json:"bank_name,omitempty"`
	DateCol          int       `json:"date_col"`
	AmountCol        int       `json:"amount_col"`
	DescriptionCol   *int      `json:"description_col,omitempty"`
	CardCol          *int      `json:"card_col,omitempty"`
	CategoryCol      *int      `json:"category_col,omitempty"`
	CommentCol       *int      `json:"comment_col,omitempty"`
	HasHeader        bool      `json:"has_header"`
	HeaderRow        int       `json:"header_row"`
	DateFormat       string    `json:"date_format"`
	DecimalSeparator string    `json:"decimal_separator"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MappingRepository stores mappings keyed by header fingerprint
type MappingRepository interface {
	GetMappingByFingerprint(ctx context.Context, fingerprint string) (*BankMapping, error)
	SaveMapping(ctx context.Context, mapping *BankMapping) error
}
