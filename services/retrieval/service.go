package retrieval

import (
	"context"

	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/services"
	"github.com/rulebook-ai/backend/services/providers"
	"github.com/rulebook-ai/backend/vectorindex"
	"go.uber.org/zap"
)

// DefaultTopK is how many chunks a question retrieves.
const DefaultTopK = 3

// Service embeds a question and runs a tenant-scoped similarity search.
// Callers are expected to have resolved membership already; the org ID
// gates every index read regardless.
type Service struct {
	embedder providers.Embedder
	index    vectorindex.Index
	topK     int
	logger   *zap.Logger
}

// NewService creates a new retrieval service
func NewService(embedder providers.Embedder, index vectorindex.Index, topK int, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{
		embedder: embedder,
		index:    index,
		topK:     topK,
		logger:   logger,
	}
}

// Retrieve returns the most similar chunks for the question within the
// organization. documentNames, when non-empty, restricts the search to
// those documents.
func (s *Service) Retrieve(ctx context.Context, orgID uuid.UUID, question string, documentNames []string) ([]vectorindex.ScoredChunk, error) {
	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, services.WrapUpstream("embedding provider error", err)
	}

	hits, err := s.index.Search(ctx, orgID, vector, s.topK, documentNames)
	if err != nil {
		return nil, services.WrapUpstream("vector index unavailable", err)
	}

	s.logger.Debug("retrieval complete",
		zap.String("org_id", orgID.String()),
		zap.Int("hits", len(hits)))

	return hits, nil
}
