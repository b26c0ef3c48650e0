package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/repositories"
	"github.com/rulebook-ai/backend/services"
	"github.com/rulebook-ai/backend/services/authz"
	"go.uber.org/zap"
)

const (
	// RecentQueryLimit is how many recent queries analytics returns.
	RecentQueryLimit = 100

	// CommonQueryLimit is how many grouped questions analytics returns.
	CommonQueryLimit = 20

	// WordCloudLimit is how many words the word cloud returns.
	WordCloudLimit = 50

	insertTimeout = 5 * time.Second
)

// QueryAnalytics is the admin view of recent and frequently asked questions.
type QueryAnalytics struct {
	Recent []*models.QueryLog      `json:"recent_queries"`
	Common []*models.QuestionCount `json:"common_queries"`
}

// OrgStats are per-organization usage counters.
type OrgStats struct {
	Documents int `json:"total_documents"`
	Queries   int `json:"total_queries"`
	Members   int `json:"total_members"`
}

// Config holds worker pool settings for the query log writer.
type Config struct {
	BufferSize  int
	WorkerCount int
}

// DefaultConfig returns the default worker pool configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  10000,
		WorkerCount: 5,
	}
}

// Service owns the query audit log: asynchronous writes through a
// buffered worker pool, and admin-only read aggregations. Writes are
// best-effort; a full buffer drops the entry with a warning instead of
// slowing down answers.
type Service struct {
	queryLogs   repositories.QueryLogRepository
	documents   repositories.DocumentRepository
	users       repositories.UserRepository
	authz       *authz.Service
	logger      *zap.Logger
	entryChan   chan *models.QueryLog
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// NewService creates a new analytics service
func NewService(
	queryLogs repositories.QueryLogRepository,
	documents repositories.DocumentRepository,
	users repositories.UserRepository,
	authzService *authz.Service,
	logger *zap.Logger,
	config Config,
) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	return &Service{
		queryLogs:   queryLogs,
		documents:   documents,
		users:       users,
		authz:       authzService,
		logger:      logger,
		entryChan:   make(chan *models.QueryLog, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background writers
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("analytics service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started analytics service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop drains pending entries and stops the writers.
func (s *Service) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("analytics service not started")
	}
	s.started = false
	s.mu.Unlock()

	s.logger.Info("stopping analytics service", zap.Int("pending_entries", len(s.entryChan)))

	close(s.entryChan)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("analytics service stopped gracefully")
		s.cancel()
		return nil
	case <-time.After(timeout):
		s.cancel()
		return fmt.Errorf("analytics service stop timeout after %v", timeout)
	}
}

// Record queues a query log entry without blocking. Entries are dropped
// with a warning when the buffer is full.
func (s *Service) Record(entry *models.QueryLog) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		s.logger.Warn("analytics service not started, dropping query log",
			zap.String("org_id", entry.OrgID.String()))
		return
	}
	s.mu.Unlock()

	select {
	case s.entryChan <- entry:
	default:
		s.logger.Warn("query log buffer full, dropping entry",
			zap.String("org_id", entry.OrgID.String()))
	}
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("analytics worker started", zap.Int("worker_id", id))

	for entry := range s.entryChan {
		ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
		if err := s.queryLogs.Insert(ctx, entry); err != nil {
			s.logger.Error("failed to insert query log",
				zap.Int("worker_id", id),
				zap.String("org_id", entry.OrgID.String()),
				zap.Error(err))
		}
		cancel()
	}

	s.logger.Debug("analytics worker stopped", zap.Int("worker_id", id))
}

// Pending returns the number of queued entries, for health reporting.
func (s *Service) Pending() int {
	return len(s.entryChan)
}

// GetQueryAnalytics returns recent and most-asked questions for the org.
// Admin only. A non-positive limit falls back to RecentQueryLimit.
func (s *Service) GetQueryAnalytics(ctx context.Context, user *models.User, orgID uuid.UUID, limit int) (*QueryAnalytics, error) {
	if err := s.authz.RequireAdmin(ctx, user, orgID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = RecentQueryLimit
	}

	recent, err := s.queryLogs.Recent(ctx, orgID, limit)
	if err != nil {
		return nil, services.WrapInternal("failed to load recent queries", err)
	}

	common, err := s.queryLogs.TopQuestions(ctx, orgID, CommonQueryLimit)
	if err != nil {
		return nil, services.WrapInternal("failed to load common queries", err)
	}

	return &QueryAnalytics{Recent: recent, Common: common}, nil
}

// GetWordCloud aggregates question words for the org. Admin only.
func (s *Service) GetWordCloud(ctx context.Context, user *models.User, orgID uuid.UUID) ([]models.WordCount, error) {
	if err := s.authz.RequireAdmin(ctx, user, orgID); err != nil {
		return nil, err
	}

	questions, err := s.queryLogs.AllQuestions(ctx, orgID)
	if err != nil {
		return nil, services.WrapInternal("failed to load questions", err)
	}

	return BuildWordCloud(questions, WordCloudLimit), nil
}

// GetStats returns usage counters for the org. Admin only.
func (s *Service) GetStats(ctx context.Context, user *models.User, orgID uuid.UUID) (*OrgStats, error) {
	if err := s.authz.RequireAdmin(ctx, user, orgID); err != nil {
		return nil, err
	}

	documents, err := s.documents.CountByOrg(ctx, orgID)
	if err != nil {
		return nil, services.WrapInternal("failed to count documents", err)
	}

	queries, err := s.queryLogs.CountByOrg(ctx, orgID)
	if err != nil {
		return nil, services.WrapInternal("failed to count queries", err)
	}

	members, err := s.users.CountByOrg(ctx, orgID)
	if err != nil {
		return nil, services.WrapInternal("failed to count members", err)
	}

	return &OrgStats{
		Documents: documents,
		Queries:   queries,
		Members:   members,
	}, nil
}
