package models

import (
	"time"

	"github.com/google/uuid"
)

// DocumentStatus represents the lifecycle state of an ingested document
type DocumentStatus string

const (
	DocumentStatusActive DocumentStatus = "active"
)

// Document is the metadata record for an ingested file. A record is only
// persisted after the file's chunks have been indexed; VectorIDs holds the
// vector index point ids created at ingestion so deletion can remove
// exactly the affected vectors.
type Document struct {
	ID              uuid.UUID      `json:"id" db:"id"`
	OrgID           uuid.UUID      `json:"org_id" db:"org_id"`
	Filename        string         `json:"filename" db:"filename"`
	PageCount       int            `json:"page_count" db:"page_count"`
	ChunkCount      int            `json:"chunk_count" db:"chunk_count"`
	VectorIDs       []string       `json:"-" db:"vector_ids"`
	SizeBytes       int64          `json:"size_bytes"` // filled from object storage on list, not persisted
	UploadedBy      string         `json:"uploaded_by" db:"uploaded_by"` // uploader UID
	UploadedByEmail string         `json:"uploaded_by_email" db:"uploaded_by_email"`
	UploadedAt      time.Time      `json:"uploaded_at" db:"uploaded_at"`
	Status          DocumentStatus `json:"status" db:"status"`
}

// TableName returns the table name for the Document model
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a new Document record
func NewDocument(orgID uuid.UUID, filename string, pageCount, chunkCount int, vectorIDs []string, uploaderUID, uploaderEmail string) *Document {
	return &Document{
		ID:              uuid.New(),
		OrgID:           orgID,
		Filename:        filename,
		PageCount:       pageCount,
		ChunkCount:      chunkCount,
		VectorIDs:       vectorIDs,
		UploadedBy:      uploaderUID,
		UploadedByEmail: uploaderEmail,
		UploadedAt:      time.Now(),
		Status:          DocumentStatusActive,
	}
}
