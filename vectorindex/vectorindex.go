package vectorindex

import (
	"context"

	"github.com/google/uuid"
)

// Chunk is a unit of indexed text with its tenant and source attribution.
// Every chunk carries the org ID of the uploading organization; the index
// never stores a chunk without one.
type Chunk struct {
	Text         string
	DocumentName string
	Page         int
	OrgID        uuid.UUID
}

// ScoredChunk is a retrieval hit with its similarity score
type ScoredChunk struct {
	Chunk
	Score float32
}

// Index stores embedded chunks and serves tenant-scoped similarity search.
// The org ID is a required parameter on every read and write so that a
// caller cannot express a cross-tenant query.
type Index interface {
	// Upsert indexes the chunks with their vectors and returns the point
	// IDs created, in chunk order. len(vectors) must equal len(chunks).
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) ([]string, error)

	// Search returns the k nearest chunks for the organization.
	// When documentNames is non-empty, results are restricted to chunks
	// from any of the named documents.
	Search(ctx context.Context, orgID uuid.UUID, vector []float32, k int, documentNames []string) ([]ScoredChunk, error)

	// Delete removes points by ID
	Delete(ctx context.Context, ids []string) error

	// DeleteByDocument removes every point of a document within an org.
	// Fallback for records that predate per-point ID tracking.
	DeleteByDocument(ctx context.Context, orgID uuid.UUID, documentName string) error
}
