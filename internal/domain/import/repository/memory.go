package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps transactions and mappings in process memory.
// It applies the same duplicate policy as the Postgres repository.
type MemoryRepository struct {
	mu           sync.RWMutex
	transactions []Transaction
	mappings     map[string]BankMapping
}

// NewMemoryRepository creates an empty in-memory store
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{mappings: make(map[string]BankMapping)}
}

// FindPotentialDuplicates scans stored transactions with IsPotentialDuplicate
func (r *MemoryRepository) FindPotentialDuplicates(ctx context.Context, candidate Transaction) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Transaction
	for _, t := range r.transactions {
		if IsPotentialDuplicate(t, candidate) {
			out = append(out, t)
		}
	}
	return out, nil
}

// Create stores a copy of the transaction
func (r *MemoryRepository) Create(ctx context.Context, tx *Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.Metadata.CreatedAt.IsZero() {
		tx.Metadata.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, *tx)
	return nil
}

// Transactions returns everything stored so far
func (r *MemoryRepository) Transactions() []Transaction {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Transaction(nil), r.transactions...)
}

// GetMappingByFingerprint returns ErrMappingNotFound when the layout is unknown
func (r *MemoryRepository) GetMappingByFingerprint(ctx context.Context, fingerprint string) (*BankMapping, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.mappings[fingerprint]
	if !ok {
		return nil, ErrMappingNotFound
	}
	return &m, nil
}

// SaveMapping creates or replaces the mapping for its fingerprint
func (r *MemoryRepository) SaveMapping(ctx context.Context, mapping *BankMapping) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existing, ok := r.mappings[mapping.Fingerprint]; ok {
		mapping.ID = existing.ID
		mapping.CreatedAt = existing.CreatedAt
	} else {
		if mapping.ID == uuid.Nil {
			mapping.ID = uuid.New()
		}
		mapping.CreatedAt = now
	}
	mapping.UpdatedAt = now
	r.mappings[mapping.Fingerprint] = *mapping
	return nil
}
