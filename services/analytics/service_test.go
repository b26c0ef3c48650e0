package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/repositories"
	"github.com/rulebook-ai/backend/services"
	"github.com/rulebook-ai/backend/services/authz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

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
	if logs := args.Get(0); logs != nil {
		return logs.([]*models.QueryLog), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQueryLogRepository) TopQuestions(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.QuestionCount, error) {
	args := m.Called(ctx, orgID, limit)
	if counts := args.Get(0); counts != nil {
		return counts.([]*models.QuestionCount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQueryLogRepository) AllQuestions(ctx context.Context, orgID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, orgID)
	if questions := args.Get(0); questions != nil {
		return questions.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQueryLogRepository) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func (m *MockQueryLogRepository) WithTx(tx repositories.Transaction) repositories.QueryLogRepository {
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
	if doc := args.Get(0); doc != nil {
		return doc.(*models.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentRepository) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Document, error) {
	args := m.Called(ctx, orgID)
	if docs := args.Get(0); docs != nil {
		return docs.([]*models.Document), args.Error(1)
	}
	return nil, args.Error(1)
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

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return m
}

// MockOrganizationRepository backs the authz gate in these tests
type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

func (m *MockOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	args := m.Called(ctx, id)
	if org := args.Get(0); org != nil {
		return org.(*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrganizationRepository) GetByJoinCode(ctx context.Context, joinCode string) (*models.Organization, error) {
	args := m.Called(ctx, joinCode)
	if org := args.Get(0); org != nil {
		return org.(*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrganizationRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Organization, error) {
	args := m.Called(ctx, ids)
	if orgs := args.Get(0); orgs != nil {
		return orgs.([]*models.Organization), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrganizationRepository) WithTx(tx repositories.Transaction) repositories.OrganizationRepository {
	return m
}

// MockMembershipRepository backs the authz gate in these tests
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
	if memberships := args.Get(0); memberships != nil {
		return memberships.([]*models.Membership), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMembershipRepository) WithTx(tx repositories.Transaction) repositories.MembershipRepository {
	return m
}

type analyticsDeps struct {
	queryLogs *MockQueryLogRepository
	documents *MockDocumentRepository
	users     *MockUserRepository
	service   *Service
	user      *models.User
	orgID     uuid.UUID
}

func newAnalyticsDeps(t *testing.T, role models.Role) *analyticsDeps {
	t.Helper()
	logger := zap.NewNop()

	d := &analyticsDeps{
		queryLogs: new(MockQueryLogRepository),
		documents: new(MockDocumentRepository),
		users:     new(MockUserRepository),
		user:      &models.User{ID: uuid.New(), UID: "uid-1"},
		orgID:     uuid.New(),
	}

	orgs := new(MockOrganizationRepository)
	members := new(MockMembershipRepository)
	orgs.On("GetByID", mock.Anything, d.orgID).Return(&models.Organization{ID: d.orgID, Name: "Acme"}, nil)
	members.On("GetRole", mock.Anything, d.user.ID, d.orgID).Return(role, nil)

	authzService := authz.NewService(orgs, members, logger)
	d.service = NewService(d.queryLogs, d.documents, d.users, authzService, logger,
		Config{BufferSize: 16, WorkerCount: 1})
	return d
}

func TestService_Record(t *testing.T) {
	t.Run("entry written by background worker", func(t *testing.T) {
		d := newAnalyticsDeps(t, models.RoleAdmin)

		inserted := make(chan *models.QueryLog, 1)
		d.queryLogs.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			inserted <- args.Get(1).(*models.QueryLog)
		}).Return(nil)

		require.NoError(t, d.service.Start())
		defer func() { _ = d.service.Stop(time.Second) }()

		entry := models.NewQueryLog(d.orgID, "q", "a", "uid-1", "user@acme.test", true)
		d.service.Record(entry)

		select {
		case got := <-inserted:
			assert.Equal(t, "q", got.Question)
		case <-time.After(2 * time.Second):
			t.Fatal("query log was never inserted")
		}
	})

	t.Run("record before start drops entry", func(t *testing.T) {
		d := newAnalyticsDeps(t, models.RoleAdmin)

		d.service.Record(models.NewQueryLog(d.orgID, "q", "a", "uid-1", "", true))

		d.queryLogs.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("stop drains queued entries", func(t *testing.T) {
		d := newAnalyticsDeps(t, models.RoleAdmin)

		d.queryLogs.On("Insert", mock.Anything, mock.Anything).Return(nil)

		require.NoError(t, d.service.Start())
		for i := 0; i < 5; i++ {
			d.service.Record(models.NewQueryLog(d.orgID, "q", "a", "uid-1", "", true))
		}
		require.NoError(t, d.service.Stop(2*time.Second))

		d.queryLogs.AssertNumberOfCalls(t, "Insert", 5)
	})
}

func TestService_GetQueryAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("admin gets recent and common queries", func(t *testing.T) {
		d := newAnalyticsDeps(t, models.RoleAdmin)

		d.queryLogs.On("Recent", ctx, d.orgID, RecentQueryLimit).Return([]*models.QueryLog{
			{Question: "latest question"},
		}, nil)
		d.queryLogs.On("TopQuestions", ctx, d.orgID, CommonQueryLimit).Return([]*models.QuestionCount{
			{Question: "vacation policy?", Count: 7},
		}, nil)

		analytics, err := d.service.GetQueryAnalytics(ctx, d.user, d.orgID, 0)

		assert.NoError(t, err)
		assert.Len(t, analytics.Recent, 1)
		assert.Len(t, analytics.Common, 1)
		d.queryLogs.AssertExpectations(t)
	})

	t.Run("explicit limit reaches the query log", func(t *testing.T) {
		d := newAnalyticsDeps(t, models.RoleAdmin)

		d.queryLogs.On("Recent", ctx, d.orgID, 10).Return([]*models.QueryLog{}, nil)
		d.queryLogs.On("TopQuestions", ctx, d.orgID, CommonQueryLimit).Return([]*models.QuestionCount{}, nil)

		_, err := d.service.GetQueryAnalytics(ctx, d.user, d.orgID, 10)

		assert.NoError(t, err)
		d.queryLogs.AssertExpectations(t)
	})

	t.Run("employee rejected", func(t *testing.T) {
		d := newAnalyticsDeps(t, models.RoleEmployee)

		_, err := d.service.GetQueryAnalytics(ctx, d.user, d.orgID, 0)

		assert.ErrorIs(t, err, services.ErrAdminRequired)
		d.queryLogs.AssertNotCalled(t, "Recent", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_GetWordCloud(t *testing.T) {
	ctx := context.Background()

	t.Run("aggregates org questions", func(t *testing.T) {
		d := newAnalyticsDeps(t, models.RoleAdmin)

		d.queryLogs.On("AllQuestions", ctx, d.orgID).Return([]string{
			"vacation policy details",
			"vacation carryover",
		}, nil)

		words, err := d.service.GetWordCloud(ctx, d.user, d.orgID)

		assert.NoError(t, err)
		assert.Equal(t, "vacation", words[0].Word)
		assert.Equal(t, 2, words[0].Count)
	})

	t.Run("employee rejected", func(t *testing.T) {
		d := newAnalyticsDeps(t, models.RoleEmployee)

		_, err := d.service.GetWordCloud(ctx, d.user, d.orgID)

		assert.ErrorIs(t, err, services.ErrAdminRequired)
	})
}

func TestService_GetStats(t *testing.T) {
	ctx := context.Background()

	t.Run("counts scoped to org", func(t *testing.T) {
		d := newAnalyticsDeps(t, models.RoleAdmin)

		d.documents.On("CountByOrg", ctx, d.orgID).Return(4, nil)
		d.queryLogs.On("CountByOrg", ctx, d.orgID).Return(120, nil)
		d.users.On("CountByOrg", ctx, d.orgID).Return(9, nil)

		stats, err := d.service.GetStats(ctx, d.user, d.orgID)

		assert.NoError(t, err)
		assert.Equal(t, 4, stats.Documents)
		assert.Equal(t, 120, stats.Queries)
		assert.Equal(t, 9, stats.Members)
	})

	t.Run("employee rejected", func(t *testing.T) {
		d := newAnalyticsDeps(t, models.RoleEmployee)

		_, err := d.service.GetStats(ctx, d.user, d.orgID)

		assert.ErrorIs(t, err, services.ErrAdminRequired)
	})
}
