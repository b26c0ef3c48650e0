package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/repositories"
	"go.uber.org/zap"
)

// DocumentRepository implements the repositories.DocumentRepository interface
type DocumentRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB, logger *zap.Logger) repositories.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists a document record
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, org_id, filename, page_count, chunk_count, vector_ids,
			uploaded_by, uploaded_by_email, uploaded_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		doc.ID,
		doc.OrgID,
		doc.Filename,
		doc.PageCount,
		doc.ChunkCount,
		pq.Array(doc.VectorIDs),
		doc.UploadedBy,
		doc.UploadedByEmail,
		doc.UploadedAt,
		doc.Status,
	)

	if err != nil {
		if IsUniqueViolation(err, "documents_org_id_filename_key") {
			return fmt.Errorf("duplicate document filename: %w", err)
		}
		return fmt.Errorf("failed to create document: %w", err)
	}

	r.logger.Debug("document created",
		zap.String("id", doc.ID.String()),
		zap.String("org_id", doc.OrgID.String()),
		zap.String("filename", doc.Filename),
	)
	return nil
}

// GetByOrgAndFilename retrieves a document by filename within an org
func (r *DocumentRepository) GetByOrgAndFilename(ctx context.Context, orgID uuid.UUID, filename string) (*models.Document, error) {
	query := `
		SELECT id, org_id, filename, page_count, chunk_count, vector_ids,
			uploaded_by, uploaded_by_email, uploaded_at, status
		FROM documents
		WHERE org_id = $1 AND filename = $2
	`

	executor := GetExecutor(ctx, r.db)
	doc := &models.Document{}

	err := executor.QueryRowContext(ctx, query, orgID, filename).Scan(
		&doc.ID,
		&doc.OrgID,
		&doc.Filename,
		&doc.PageCount,
		&doc.ChunkCount,
		pq.Array(&doc.VectorIDs),
		&doc.UploadedBy,
		&doc.UploadedByEmail,
		&doc.UploadedAt,
		&doc.Status,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("document not found: %s: %w", filename, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// ListByOrg returns all documents of an organization, newest first
func (r *DocumentRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Document, error) {
	query := `
		SELECT id, org_id, filename, page_count, chunk_count, vector_ids,
			uploaded_by, uploaded_by_email, uploaded_at, status
		FROM documents
		WHERE org_id = $1
		ORDER BY uploaded_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		err := rows.Scan(
			&doc.ID,
			&doc.OrgID,
			&doc.Filename,
			&doc.PageCount,
			&doc.ChunkCount,
			pq.Array(&doc.VectorIDs),
			&doc.UploadedBy,
			&doc.UploadedByEmail,
			&doc.UploadedAt,
			&doc.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docs, nil
}

// Delete removes a document record by ID
func (r *DocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM documents WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("document not found: %s: %w", id, sql.ErrNoRows)
	}

	r.logger.Debug("document deleted", zap.String("id", id.String()))
	return nil
}

// CountByOrg counts documents for an organization
func (r *DocumentRepository) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM documents WHERE org_id = $1`

	executor := GetExecutor(ctx, r.db)
	var count int
	if err := executor.QueryRowContext(ctx, query, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}

	return count, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *DocumentRepository) WithTx(tx repositories.Transaction) repositories.DocumentRepository {
	return &DocumentRepository{
		db:     r.db,
		logger: r.logger,
	}
}
