// Package storage archives statement files after an import attempt, together with
// the outcome of that attempt.
package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("archived file not found")

// Status is the outcome an archived file is filed under
type Status string

const (
	StatusImported Status = "imported"
	StatusFailed   Status = "failed"
)

// FileInfo contains metadata about an archived statement
type FileInfo struct {
	ID        uuid.UUID `json:"id"` // import batch id, or a fresh id for failed files
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Status    Status    `json:"status"`
	Note      string    `json:"note,omitempty"` // import summary or failure reason
	Path      string    `json:"path"`           // relative to the archive root
	CreatedAt time.Time `json:"created_at"`
}

// Storage defines the archive operations
type Storage interface {
	// Put stores a file and returns its metadata
	Put(ctx context.Context, id uuid.UUID, filename string, status Status, note string, r io.Reader) (*FileInfo, error)

	// Open returns a reader for an archived file
	Open(ctx context.Context, id uuid.UUID) (io.ReadCloser, *FileInfo, error)

	// Delete removes a file and its metadata
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns all archived files, oldest first
	List(ctx context.Context) ([]*FileInfo, error)

	// GetInfo returns metadata for a file without opening it
	GetInfo(ctx context.Context, id uuid.UUID) (*FileInfo, error)
}
