package storage

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// ObjectStore persists the original uploaded files. Objects are keyed by
// organization so one tenant's files never shadow another's.
type ObjectStore interface {
	// Put stores an object under the organization's prefix
	Put(ctx context.Context, orgID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) error

	// Remove deletes an object. Removing a missing object is not an error.
	Remove(ctx context.Context, orgID uuid.UUID, filename string) error

	// Stat returns the stored size of the object in bytes
	Stat(ctx context.Context, orgID uuid.UUID, filename string) (int64, error)
}
