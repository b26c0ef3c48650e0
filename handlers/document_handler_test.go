package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/middleware"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/services/authz"
	"github.com/rulebook-ai/backend/services/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type docHandlerDeps struct {
	orgs        *MockOrganizationRepository
	memberships *MockMembershipRepository
	documents   *MockDocumentRepository
	store       *MockObjectStore
	index       *MockIndex
	embedder    *MockEmbedder
	extractor   *MockExtractor
	handler     *DocumentHandler
}

func newDocHandlerDeps() *docHandlerDeps {
	logger := zap.NewNop()
	orgs := new(MockOrganizationRepository)
	memberships := new(MockMembershipRepository)
	documents := new(MockDocumentRepository)
	store := new(MockObjectStore)
	index := new(MockIndex)
	embedder := new(MockEmbedder)
	extractor := new(MockExtractor)

	authzService := authz.NewService(orgs, memberships, logger)
	ingestService := ingest.NewService(
		documents, store, index, embedder, extractor,
		ingest.NewChunker(ingest.DefaultChunkSize, ingest.DefaultChunkOverlap),
		authzService, logger,
	)

	return &docHandlerDeps{
		orgs:        orgs,
		memberships: memberships,
		documents:   documents,
		store:       store,
		index:       index,
		embedder:    embedder,
		extractor:   extractor,
		handler:     NewDocumentHandler(ingestService, logger),
	}
}

// multipartBody builds a multipart request body with a single file field
func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(uploadFormFileField, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func (d *docHandlerDeps) expectMember(userID, orgID uuid.UUID, role models.Role) {
	org := &models.Organization{ID: orgID, Name: "Acme Corp"}
	d.orgs.On("GetByID", mock.Anything, orgID).Return(org, nil)
	memberRole(d.memberships, userID, orgID, role)
}

func TestHandleUploadDocument(t *testing.T) {
	user := models.NewUser("uid-1", "admin@acme.com", "Admin", "")
	orgID := uuid.New()

	t.Run("uploads a PDF", func(t *testing.T) {
		deps := newDocHandlerDeps()
		deps.expectMember(user.ID, orgID, models.RoleAdmin)

		content := []byte("%PDF-1.4 fake body")
		deps.documents.On("GetByOrgAndFilename", mock.Anything, orgID, "handbook.pdf").
			Return(nil, fmt.Errorf("document not found: %w", sql.ErrNoRows))
		deps.store.On("Put", mock.Anything, orgID, "handbook.pdf", mock.Anything, int64(len(content)), "application/pdf").
			Return(nil)
		deps.extractor.On("Extract", mock.Anything, content).
			Return([]ingest.Page{{Number: 1, Text: "Vacation policy: 20 days."}}, nil)
		deps.embedder.On("EmbedDocuments", mock.Anything, mock.AnythingOfType("[]string")).
			Return([][]float32{{0.1, 0.2}}, nil)
		deps.index.On("Upsert", mock.Anything, mock.Anything, mock.Anything).
			Return([]string{"vec-1"}, nil)
		deps.documents.On("Create", mock.Anything, mock.AnythingOfType("*models.Document")).Return(nil)

		body, contentType := multipartBody(t, "handbook.pdf", content)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/"+orgID.String()+"/documents", body)
		req.Header.Set("Content-Type", contentType)
		req = authedRequest(req, user, orgID.String())
		w := httptest.NewRecorder()

		deps.handler.HandleUpload(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response struct {
			Data models.Document `json:"data"`
		}
		err := json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Equal(t, "handbook.pdf", response.Data.Filename)
		assert.Equal(t, 1, response.Data.PageCount)
		assert.Equal(t, user.UID, response.Data.UploadedBy)

		deps.documents.AssertExpectations(t)
		deps.index.AssertExpectations(t)
	})

	t.Run("employee cannot upload", func(t *testing.T) {
		deps := newDocHandlerDeps()
		deps.expectMember(user.ID, orgID, models.RoleEmployee)

		body, contentType := multipartBody(t, "handbook.pdf", []byte("%PDF-1.4"))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/"+orgID.String()+"/documents", body)
		req.Header.Set("Content-Type", contentType)
		req = authedRequest(req, user, orgID.String())
		w := httptest.NewRecorder()

		deps.handler.HandleUpload(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		deps.store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects non-PDF filename", func(t *testing.T) {
		deps := newDocHandlerDeps()
		deps.expectMember(user.ID, orgID, models.RoleAdmin)

		body, contentType := multipartBody(t, "notes.txt", []byte("plain text"))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/"+orgID.String()+"/documents", body)
		req.Header.Set("Content-Type", contentType)
		req = authedRequest(req, user, orgID.String())
		w := httptest.NewRecorder()

		deps.handler.HandleUpload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate filename conflicts", func(t *testing.T) {
		deps := newDocHandlerDeps()
		deps.expectMember(user.ID, orgID, models.RoleAdmin)

		existing := &models.Document{ID: uuid.New(), OrgID: orgID, Filename: "handbook.pdf"}
		deps.documents.On("GetByOrgAndFilename", mock.Anything, orgID, "handbook.pdf").Return(existing, nil)

		body, contentType := multipartBody(t, "handbook.pdf", []byte("%PDF-1.4"))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/"+orgID.String()+"/documents", body)
		req.Header.Set("Content-Type", contentType)
		req = authedRequest(req, user, orgID.String())
		w := httptest.NewRecorder()

		deps.handler.HandleUpload(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("missing file field", func(t *testing.T) {
		deps := newDocHandlerDeps()

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		require.NoError(t, writer.WriteField("name", "handbook"))
		require.NoError(t, writer.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/organizations/"+orgID.String()+"/documents", &buf)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req = authedRequest(req, user, orgID.String())
		w := httptest.NewRecorder()

		deps.handler.HandleUpload(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleListDocuments(t *testing.T) {
	user := models.NewUser("uid-2", "user@acme.com", "User", "")
	orgID := uuid.New()

	t.Run("lists org documents", func(t *testing.T) {
		deps := newDocHandlerDeps()
		deps.expectMember(user.ID, orgID, models.RoleEmployee)

		docs := []*models.Document{
			{ID: uuid.New(), OrgID: orgID, Filename: "handbook.pdf", PageCount: 12},
			{ID: uuid.New(), OrgID: orgID, Filename: "benefits.pdf", PageCount: 4},
		}
		deps.documents.On("ListByOrg", mock.Anything, orgID).Return(docs, nil)
		deps.store.On("Stat", mock.Anything, orgID, "handbook.pdf").Return(int64(4096), nil)
		deps.store.On("Stat", mock.Anything, orgID, "benefits.pdf").Return(int64(1024), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations/"+orgID.String()+"/documents", nil)
		req = authedRequest(req, user, orgID.String())
		w := httptest.NewRecorder()

		deps.handler.HandleList(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Data []models.Document `json:"data"`
		}
		err := json.NewDecoder(w.Body).Decode(&response)
		require.NoError(t, err)
		assert.Len(t, response.Data, 2)
		assert.Equal(t, int64(4096), response.Data[0].SizeBytes)
	})

	t.Run("non-member is rejected", func(t *testing.T) {
		deps := newDocHandlerDeps()
		org := &models.Organization{ID: orgID, Name: "Acme Corp"}
		deps.orgs.On("GetByID", mock.Anything, orgID).Return(org, nil)
		deps.memberships.On("GetRole", mock.Anything, user.ID, orgID).
			Return(models.Role(""), fmt.Errorf("membership not found: %w", sql.ErrNoRows))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations/"+orgID.String()+"/documents", nil)
		req = authedRequest(req, user, orgID.String())
		w := httptest.NewRecorder()

		deps.handler.HandleList(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestHandleDeleteDocument(t *testing.T) {
	user := models.NewUser("uid-3", "admin@acme.com", "Admin", "")
	orgID := uuid.New()

	deleteRequest := func(filename string) *http.Request {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/organizations/"+orgID.String()+"/documents/"+filename, nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("orgID", orgID.String())
		rctx.URLParams.Add("filename", filename)
		ctx := middleware.WithUser(req.Context(), user)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
		return req.WithContext(ctx)
	}

	t.Run("deletes document and vectors", func(t *testing.T) {
		deps := newDocHandlerDeps()
		deps.expectMember(user.ID, orgID, models.RoleAdmin)

		doc := &models.Document{
			ID:        uuid.New(),
			OrgID:     orgID,
			Filename:  "handbook.pdf",
			VectorIDs: []string{"vec-1", "vec-2"},
		}
		deps.documents.On("GetByOrgAndFilename", mock.Anything, orgID, "handbook.pdf").Return(doc, nil)
		deps.index.On("Delete", mock.Anything, []string{"vec-1", "vec-2"}).Return(nil)
		deps.store.On("Remove", mock.Anything, orgID, "handbook.pdf").Return(nil)
		deps.documents.On("Delete", mock.Anything, doc.ID).Return(nil)

		w := httptest.NewRecorder()
		deps.handler.HandleDelete(w, deleteRequest("handbook.pdf"))

		assert.Equal(t, http.StatusNoContent, w.Code)
		deps.index.AssertExpectations(t)
		deps.documents.AssertExpectations(t)
	})

	t.Run("missing document", func(t *testing.T) {
		deps := newDocHandlerDeps()
		deps.expectMember(user.ID, orgID, models.RoleAdmin)

		deps.documents.On("GetByOrgAndFilename", mock.Anything, orgID, "ghost.pdf").
			Return(nil, fmt.Errorf("document not found: %w", sql.ErrNoRows))

		w := httptest.NewRecorder()
		deps.handler.HandleDelete(w, deleteRequest("ghost.pdf"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("employee cannot delete", func(t *testing.T) {
		deps := newDocHandlerDeps()
		deps.expectMember(user.ID, orgID, models.RoleEmployee)

		w := httptest.NewRecorder()
		deps.handler.HandleDelete(w, deleteRequest("handbook.pdf"))

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
