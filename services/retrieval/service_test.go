package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/services"
	"github.com/rulebook-ai/backend/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// MockEmbedder is a mock implementation of providers.Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Name() string { return "mock" }

func (m *MockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if vectors := args.Get(0); vectors != nil {
		return vectors.([][]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if vector := args.Get(0); vector != nil {
		return vector.([]float32), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmbedder) Dimensions() int { return 3 }

// MockIndex is a mock implementation of vectorindex.Index
type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) Upsert(ctx context.Context, chunks []vectorindex.Chunk, vectors [][]float32) ([]string, error) {
	args := m.Called(ctx, chunks, vectors)
	if ids := args.Get(0); ids != nil {
		return ids.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIndex) Search(ctx context.Context, orgID uuid.UUID, vector []float32, k int, documentNames []string) ([]vectorindex.ScoredChunk, error) {
	args := m.Called(ctx, orgID, vector, k, documentNames)
	if hits := args.Get(0); hits != nil {
		return hits.([]vectorindex.ScoredChunk), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockIndex) Delete(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

func (m *MockIndex) DeleteByDocument(ctx context.Context, orgID uuid.UUID, documentName string) error {
	args := m.Called(ctx, orgID, documentName)
	return args.Error(0)
}

func TestService_Retrieve(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	t.Run("searches with org scope and default k", func(t *testing.T) {
		embedder := new(MockEmbedder)
		index := new(MockIndex)
		service := NewService(embedder, index, 0, logger)
		orgID := uuid.New()
		vector := []float32{0.1, 0.2, 0.3}

		embedder.On("EmbedQuery", ctx, "vacation days?").Return(vector, nil)
		index.On("Search", ctx, orgID, vector, DefaultTopK, []string(nil)).Return([]vectorindex.ScoredChunk{
			{Chunk: vectorindex.Chunk{Text: "15 vacation days", DocumentName: "handbook.pdf", Page: 4, OrgID: orgID}, Score: 0.92},
		}, nil)

		hits, err := service.Retrieve(ctx, orgID, "vacation days?", nil)

		assert.NoError(t, err)
		assert.Len(t, hits, 1)
		assert.Equal(t, "handbook.pdf", hits[0].DocumentName)
		index.AssertExpectations(t)
	})

	t.Run("document filter passed through", func(t *testing.T) {
		embedder := new(MockEmbedder)
		index := new(MockIndex)
		service := NewService(embedder, index, 5, logger)
		orgID := uuid.New()

		embedder.On("EmbedQuery", ctx, "q").Return([]float32{0.5}, nil)
		index.On("Search", ctx, orgID, []float32{0.5}, 5, []string{"handbook.pdf"}).
			Return([]vectorindex.ScoredChunk{}, nil)

		_, err := service.Retrieve(ctx, orgID, "q", []string{"handbook.pdf"})

		assert.NoError(t, err)
		index.AssertExpectations(t)
	})

	t.Run("multiple document names narrow the search together", func(t *testing.T) {
		embedder := new(MockEmbedder)
		index := new(MockIndex)
		service := NewService(embedder, index, 5, logger)
		orgID := uuid.New()

		names := []string{"handbook.pdf", "travel.pdf"}
		embedder.On("EmbedQuery", ctx, "q").Return([]float32{0.5}, nil)
		index.On("Search", ctx, orgID, []float32{0.5}, 5, names).
			Return([]vectorindex.ScoredChunk{}, nil)

		_, err := service.Retrieve(ctx, orgID, "q", names)

		assert.NoError(t, err)
		index.AssertExpectations(t)
	})

	t.Run("embedder failure surfaces as upstream", func(t *testing.T) {
		embedder := new(MockEmbedder)
		index := new(MockIndex)
		service := NewService(embedder, index, 3, logger)

		embedder.On("EmbedQuery", ctx, "q").Return(nil, fmt.Errorf("http 500"))

		_, err := service.Retrieve(ctx, uuid.New(), "q", nil)

		assert.True(t, services.IsUpstreamError(err))
		index.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("index failure surfaces as upstream", func(t *testing.T) {
		embedder := new(MockEmbedder)
		index := new(MockIndex)
		service := NewService(embedder, index, 3, logger)
		orgID := uuid.New()

		embedder.On("EmbedQuery", ctx, "q").Return([]float32{0.5}, nil)
		index.On("Search", ctx, orgID, []float32{0.5}, 3, []string(nil)).Return(nil, fmt.Errorf("grpc unavailable"))

		_, err := service.Retrieve(ctx, orgID, "q", nil)

		assert.True(t, services.IsUpstreamError(err))
	})
}
