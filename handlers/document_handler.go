package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/middleware"
	"github.com/rulebook-ai/backend/services/ingest"
	"github.com/rulebook-ai/backend/utils"
	"go.uber.org/zap"
)

// uploadFormFileField is the multipart form field carrying the document.
const uploadFormFileField = "file"

// DocumentHandler handles document upload, listing and deletion
type DocumentHandler struct {
	ingest *ingest.Service
	logger *zap.Logger
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(ingestService *ingest.Service, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		ingest: ingestService,
		logger: logger,
	}
}

// HandleUpload handles POST /api/v1/organizations/{orgID}/documents
func (h *DocumentHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := middleware.GetUserFromContext(ctx)
	if user == nil {
		_ = utils.WriteUnauthorized(w, "Missing user information")
		return
	}

	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid organization ID", nil)
		return
	}

	// Reject oversized bodies before buffering the file. The limit leaves
	// headroom for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, ingest.MaxFileSize+1<<20)

	file, header, err := r.FormFile(uploadFormFileField)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			_ = utils.WritePayloadTooLarge(w, "File exceeds the maximum allowed size")
			return
		}
		_ = utils.WriteBadRequest(w, "Missing file upload", nil)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			_ = utils.WritePayloadTooLarge(w, "File exceeds the maximum allowed size")
			return
		}
		h.logger.Error("failed to read upload", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "")
		return
	}

	doc, err := h.ingest.Upload(ctx, user, orgID, header.Filename, content)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, doc)
}

// HandleList handles GET /api/v1/organizations/{orgID}/documents
func (h *DocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := middleware.GetUserFromContext(ctx)
	if user == nil {
		_ = utils.WriteUnauthorized(w, "Missing user information")
		return
	}

	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid organization ID", nil)
		return
	}

	docs, err := h.ingest.List(ctx, user, orgID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, docs)
}

// HandleDelete handles DELETE /api/v1/organizations/{orgID}/documents/{filename}
func (h *DocumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := middleware.GetUserFromContext(ctx)
	if user == nil {
		_ = utils.WriteUnauthorized(w, "Missing user information")
		return
	}

	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid organization ID", nil)
		return
	}

	filename := chi.URLParam(r, "filename")
	if filename == "" {
		_ = utils.WriteBadRequest(w, "Missing filename", nil)
		return
	}

	if err := h.ingest.Delete(ctx, user, orgID, filename); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}
