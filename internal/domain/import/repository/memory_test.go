package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPotentialDuplicate(t *testing.T) {
	base := Transaction{
		Date:                time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		Amount:              -4500,
		Currency:            "EUR",
		Description:         "Pingo Doce",
		OriginalDescription: "COMPRA PINGO DOCE 1234",
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		want   bool
	}{
		{"identical", func(*Transaction) {}, true},
		{"different time same day", func(c *Transaction) { c.Date = c.Date.Add(5 * time.Hour) }, true},
		{"description case", func(c *Transaction) { c.Description = "PINGO DOCE" }, true},
		{"original description only", func(c *Transaction) { c.Description = "Supermarket" }, true},
		{"other day", func(c *Transaction) { c.Date = c.Date.AddDate(0, 0, 1) }, false},
		{"other amount", func(c *Transaction) { c.Amount = -4501 }, false},
		{"other currency", func(c *Transaction) { c.Currency = "USD" }, false},
		{"other description", func(c *Transaction) {
			c.Description = "Lidl"
			c.OriginalDescription = "LIDL"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := base
			tt.mutate(&candidate)
			assert.Equal(t, tt.want, IsPotentialDuplicate(base, candidate))
		})
	}
}

func TestMemoryRepository_Transactions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	tx := Transaction{Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Amount: -100, Currency: "UAH", Description: "Coffee"}
	dups, err := repo.FindPotentialDuplicates(ctx, tx)
	require.NoError(t, err)
	assert.Empty(t, dups)

	require.NoError(t, repo.Create(ctx, &tx))
	assert.NotEmpty(t, tx.ID)

	dups, err = repo.FindPotentialDuplicates(ctx, tx)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, tx.ID, dups[0].ID)
	assert.Len(t, repo.Transactions(), 1)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = repo.FindPotentialDuplicates(cancelled, tx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryRepository_Mappings(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.GetMappingByFingerprint(ctx, "fp")
	assert.ErrorIs(t, err, ErrMappingNotFound)

	first := &BankMapping{Fingerprint: "fp", AmountCol: 2}
	require.NoError(t, repo.SaveMapping(ctx, first))

	second := &BankMapping{Fingerprint: "fp", AmountCol: 3}
	require.NoError(t, repo.SaveMapping(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := repo.GetMappingByFingerprint(ctx, "fp")
	require.NoError(t, err)
	assert.Equal(t, 3, got.AmountCol)
}

func TestTransaction_JSONDate(t *testing.T) {
	tx := Transaction{Date: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Currency: "UAH"}
	data, err := json.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date":"2024-01-15"`)

	tx.Date = time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	tx.HasTime = true
	data, err = json.Marshal(tx)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"date":"2024-01-15T14:30:00Z"`)
}
