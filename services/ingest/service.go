package ingest

import (
	"bytes"
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/repositories"
	"github.com/rulebook-ai/backend/repositories/postgres"
	"github.com/rulebook-ai/backend/services"
	"github.com/rulebook-ai/backend/services/authz"
	"github.com/rulebook-ai/backend/services/providers"
	"github.com/rulebook-ai/backend/storage"
	"github.com/rulebook-ai/backend/utils"
	"github.com/rulebook-ai/backend/vectorindex"
	"go.uber.org/zap"
)

// MaxFileSize is the upload size cap in bytes (50 MiB).
const MaxFileSize = 50 * 1024 * 1024

const pdfContentType = "application/pdf"

// Service runs the document ingestion pipeline: validate, store, extract,
// chunk, embed, index, record. Admin-only on both upload and delete.
type Service struct {
	documents repositories.DocumentRepository
	store     storage.ObjectStore
	index     vectorindex.Index
	embedder  providers.Embedder
	extractor Extractor
	chunker   *Chunker
	authz     *authz.Service
	logger    *zap.Logger
}

// NewService creates a new ingestion service
func NewService(
	documents repositories.DocumentRepository,
	store storage.ObjectStore,
	index vectorindex.Index,
	embedder providers.Embedder,
	extractor Extractor,
	chunker *Chunker,
	authzService *authz.Service,
	logger *zap.Logger,
) *Service {
	return &Service{
		documents: documents,
		store:     store,
		index:     index,
		embedder:  embedder,
		extractor: extractor,
		chunker:   chunker,
		authz:     authzService,
		logger:    logger,
	}
}

// Upload ingests a PDF for the organization. The document record is only
// written after the chunks are indexed, so a record always points at live
// vectors. If the record insert fails after indexing, the just-created
// vectors are removed best-effort.
func (s *Service) Upload(ctx context.Context, user *models.User, orgID uuid.UUID, filename string, content []byte) (*models.Document, error) {
	if err := s.authz.RequireAdmin(ctx, user, orgID); err != nil {
		return nil, err
	}

	if err := utils.ValidatePDFFilename(filename); err != nil {
		return nil, services.ErrNotPDF
	}
	if len(content) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "file is empty", nil)
	}
	if len(content) > MaxFileSize {
		return nil, services.ErrFileTooLarge
	}

	if _, err := s.documents.GetByOrgAndFilename(ctx, orgID, filename); err == nil {
		return nil, services.ErrDuplicateDocument
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, services.WrapInternal("failed to check for existing document", err)
	}

	if err := s.store.Put(ctx, orgID, filename, bytes.NewReader(content), int64(len(content)), pdfContentType); err != nil {
		return nil, services.WrapUpstream("object storage error", err)
	}

	pages, err := s.extractor.Extract(ctx, content)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "could not extract text from file", err)
	}

	textChunks := s.chunker.Split(pages)
	if len(textChunks) == 0 {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "document contains no extractable text", nil)
	}

	tagged := Tag(textChunks, orgID, filename)
	texts := make([]string, len(tagged))
	for i, c := range tagged {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, services.WrapUpstream("embedding provider error", err)
	}

	vectorIDs, err := s.index.Upsert(ctx, tagged, vectors)
	if err != nil {
		return nil, services.WrapUpstream("vector index unavailable", err)
	}

	doc := models.NewDocument(orgID, filename, len(pages), len(tagged), vectorIDs, user.UID, user.Email)
	if err := s.documents.Create(ctx, doc); err != nil {
		// The vectors are already live; remove them so retrieval never
		// surfaces chunks of a document with no record.
		if cleanupErr := s.index.Delete(context.WithoutCancel(ctx), vectorIDs); cleanupErr != nil {
			s.logger.Error("failed to clean up vectors after record insert failure",
				zap.String("org_id", orgID.String()),
				zap.String("filename", filename),
				zap.Error(cleanupErr))
		}
		if postgres.IsUniqueViolation(err, "documents_org_id_filename_key") {
			return nil, services.ErrDuplicateDocument
		}
		return nil, services.WrapInternal("failed to record document", err)
	}

	s.logger.Info("document ingested",
		zap.String("org_id", orgID.String()),
		zap.String("filename", filename),
		zap.Int("pages", doc.PageCount),
		zap.Int("chunks", doc.ChunkCount))

	return doc, nil
}

// Delete removes a document: vectors first, then the stored file, then
// the record. Vector deletion prefers the IDs tracked at ingestion and
// falls back to a metadata filter for records without them.
func (s *Service) Delete(ctx context.Context, user *models.User, orgID uuid.UUID, filename string) error {
	if err := s.authz.RequireAdmin(ctx, user, orgID); err != nil {
		return err
	}

	doc, err := s.documents.GetByOrgAndFilename(ctx, orgID, filename)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return services.ErrDocumentNotFound
		}
		return services.WrapInternal("failed to load document", err)
	}

	if len(doc.VectorIDs) > 0 {
		err = s.index.Delete(ctx, doc.VectorIDs)
	} else {
		err = s.index.DeleteByDocument(ctx, orgID, filename)
	}
	if err != nil {
		return services.WrapUpstream("vector index unavailable", err)
	}

	if err := s.store.Remove(ctx, orgID, filename); err != nil {
		s.logger.Warn("failed to remove stored file",
			zap.String("org_id", orgID.String()),
			zap.String("filename", filename),
			zap.Error(err))
	}

	if err := s.documents.Delete(ctx, doc.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return services.ErrDocumentNotFound
		}
		return services.WrapInternal("failed to delete document record", err)
	}

	s.logger.Info("document deleted",
		zap.String("org_id", orgID.String()),
		zap.String("filename", filename))

	return nil
}

// List returns the organization's documents, any member may call it.
// Each document is enriched with the stored file size; a document whose
// file cannot be statted keeps a zero size rather than failing the list.
func (s *Service) List(ctx context.Context, user *models.User, orgID uuid.UUID) ([]*models.Document, error) {
	if _, err := s.authz.Resolve(ctx, user, orgID); err != nil {
		return nil, err
	}

	docs, err := s.documents.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, services.WrapInternal("failed to list documents", err)
	}

	for _, doc := range docs {
		size, err := s.store.Stat(ctx, orgID, doc.Filename)
		if err != nil {
			s.logger.Debug("could not stat stored file",
				zap.String("org_id", orgID.String()),
				zap.String("filename", doc.Filename),
				zap.Error(err))
			continue
		}
		doc.SizeBytes = size
	}
	return docs, nil
}
