package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/middleware"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/repositories"
	"github.com/rulebook-ai/backend/services/ingest"
	"github.com/rulebook-ai/backend/services/providers"
	"github.com/rulebook-ai/backend/vectorindex"
	"github.com/stretchr/testify/mock"
)

// MockOrganizationRepository is a mock implementation of OrganizationRepository
type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *MockOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) GetByJoinCode(ctx context.Context, code string) (*models.Organization, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Organization, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) WithTx(tx repositories.Transaction) repositories.OrganizationRepository {
	return m
}

// MockMembershipRepository is a mock implementation of MembershipRepository
type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) AddIfAbsent(ctx context.Context, membership *models.Membership) (bool, error) {
	args := m.Called(ctx, membership)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipRepository) GetRole(ctx context.Context, userID, orgID uuid.UUID) (models.Role, error) {
	args := m.Called(ctx, userID, orgID)
	return args.Get(0).(models.Role), args.Error(1)
}

func (m *MockMembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Membership), args.Error(1)
}

func (m *MockMembershipRepository) WithTx(tx repositories.Transaction) repositories.MembershipRepository {
	return m
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return m
}

// MockDocumentRepository is a mock implementation of DocumentRepository
type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByOrgAndFilename(ctx context.Context, orgID uuid.UUID, filename string) (*models.Document, error) {
	args := m.Called(ctx, orgID, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}

func (m *MockDocumentRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Document, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Document), args.Error(1)
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockDocumentRepository) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func (m *MockDocumentRepository) WithTx(tx repositories.Transaction) repositories.DocumentRepository {
	return m
}

// MockQueryLogRepository is a mock implementation of QueryLogRepository
type MockQueryLogRepository struct {
	mock.Mock
}

func (m *MockQueryLogRepository) Insert(ctx context.Context, log *models.QueryLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *MockQueryLogRepository) Recent(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.QueryLog, error) {
	args := m.Called(ctx, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QueryLog), args.Error(1)
}

func (m *MockQueryLogRepository) TopQuestions(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.QuestionCount, error) {
	args := m.Called(ctx, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.QuestionCount), args.Error(1)
}

func (m *MockQueryLogRepository) AllQuestions(ctx context.Context, orgID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockQueryLogRepository) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func (m *MockQueryLogRepository) WithTx(tx repositories.Transaction) repositories.QueryLogRepository {
	return m
}

// fakeTransaction is a no-op transaction for service wiring in tests
type fakeTransaction struct {
	ctx context.Context
}

func (t *fakeTransaction) Commit() error            { return nil }
func (t *fakeTransaction) Rollback() error          { return nil }
func (t *fakeTransaction) Context() context.Context { return t.ctx }

// fakeTransactionManager runs the function directly without a database
type fakeTransactionManager struct{}

func (f *fakeTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return &fakeTransaction{ctx: ctx}, nil
}

func (f *fakeTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	return fn(ctx, &fakeTransaction{ctx: ctx})
}

// MockObjectStore is a mock implementation of storage.ObjectStore
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, orgID uuid.UUID, filename string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, orgID, filename, reader, size, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) Remove(ctx context.Context, orgID uuid.UUID, filename string) error {
	args := m.Called(ctx, orgID, filename)
	return args.Error(0)
}

func (m *MockObjectStore) Stat(ctx context.Context, orgID uuid.UUID, filename string) (int64, error) {
	args := m.Called(ctx, orgID, filename)
	return args.Get(0).(int64), args.Error(1)
}

// MockIndex is a mock implementation of vectorindex.Index
type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) Upsert(ctx context.Context, chunks []vectorindex.Chunk, vectors [][]float32) ([]string, error) {
	args := m.Called(ctx, chunks, vectors)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockIndex) Search(ctx context.Context, orgID uuid.UUID, vector []float32, k int, documentNames []string) ([]vectorindex.ScoredChunk, error) {
	args := m.Called(ctx, orgID, vector, k, documentNames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vectorindex.ScoredChunk), args.Error(1)
}

func (m *MockIndex) Delete(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockIndex) DeleteByDocument(ctx context.Context, orgID uuid.UUID, documentName string) error {
	args := m.Called(ctx, orgID, documentName)
	return args.Error(0)
}

// MockEmbedder is a mock implementation of providers.Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Name() string { return "mock-embedder" }

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) Dimensions() int { return 4 }

// MockGenerator is a mock implementation of providers.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Name() string { return "mock-generator" }

func (m *MockGenerator) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.ChatResponse), args.Error(1)
}

func (m *MockGenerator) IsAvailable(ctx context.Context) bool { return true }

// MockExtractor is a mock implementation of ingest.Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, content []byte) ([]ingest.Page, error) {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ingest.Page), args.Error(1)
}

// authedRequest attaches the user and an orgID route parameter to the request
func authedRequest(req *http.Request, user *models.User, orgID string) *http.Request {
	ctx := req.Context()
	if user != nil {
		ctx = middleware.WithUser(ctx, user)
	}
	if orgID != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("orgID", orgID)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

// memberRole wires the membership mock for a single user/org pair
func memberRole(memberships *MockMembershipRepository, userID, orgID uuid.UUID, role models.Role) {
	memberships.On("GetRole", mock.Anything, userID, orgID).Return(role, nil)
}
