package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrantgo "github.com/qdrant/go-client/qdrant"
	"github.com/rulebook-ai/backend/vectorindex"
	"go.uber.org/zap"
)

// Payload field names for indexed points
const (
	payloadOrgID        = "org_id"
	payloadDocumentName = "document_name"
	payloadPage         = "page"
	payloadText         = "text"
)

// Store implements vectorindex.Index on a Qdrant collection
type Store struct {
	client     *qdrantgo.Client
	collection string
	logger     *zap.Logger
}

// New creates a Store bound to the named collection
func New(client *qdrantgo.Client, collection string, logger *zap.Logger) *Store {
	return &Store{
		client:     client,
		collection: collection,
		logger:     logger,
	}
}

// EnsureCollection creates the collection if it does not exist
func (s *Store) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, c := range collections {
		if c == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrantgo.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrantgo.NewVectorsConfig(&qdrantgo.VectorParams{
			Size:     vectorSize,
			Distance: qdrantgo.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
	}

	s.logger.Info("vector collection created",
		zap.String("collection", s.collection),
		zap.Uint64("vector_size", vectorSize))
	return nil
}

// Upsert indexes the chunks and returns the generated point IDs in order
func (s *Store) Upsert(ctx context.Context, chunks []vectorindex.Chunk, vectors [][]float32) ([]string, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	ids := make([]string, len(chunks))
	points := make([]*qdrantgo.PointStruct, len(chunks))
	for i, chunk := range chunks {
		id := uuid.NewString()
		ids[i] = id
		points[i] = &qdrantgo.PointStruct{
			Id:      qdrantgo.NewID(id),
			Vectors: qdrantgo.NewVectors(vectors[i]...),
			Payload: qdrantgo.NewValueMap(map[string]any{
				payloadOrgID:        chunk.OrgID.String(),
				payloadDocumentName: chunk.DocumentName,
				payloadPage:         int64(chunk.Page),
				payloadText:         chunk.Text,
			}),
		}
	}

	_, err := s.client.Upsert(ctx, &qdrantgo.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
		Wait:           qdrantgo.PtrOf(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert points: %w", err)
	}

	s.logger.Debug("chunks indexed",
		zap.String("collection", s.collection),
		zap.Int("count", len(points)))
	return ids, nil
}

// searchFilter builds the query predicate. The org condition is always
// present; document names narrow the search within the tenant but never
// replace the tenant scoping.
func searchFilter(orgID uuid.UUID, documentNames []string) *qdrantgo.Filter {
	must := []*qdrantgo.Condition{
		qdrantgo.NewMatch(payloadOrgID, orgID.String()),
	}
	if len(documentNames) > 0 {
		must = append(must, qdrantgo.NewMatchKeywords(payloadDocumentName, documentNames...))
	}
	return &qdrantgo.Filter{Must: must}
}

// Search returns the k nearest chunks for the organization
func (s *Store) Search(ctx context.Context, orgID uuid.UUID, vector []float32, k int, documentNames []string) ([]vectorindex.ScoredChunk, error) {
	limit := uint64(k)

	filter := searchFilter(orgID, documentNames)

	points, err := s.client.Query(ctx, &qdrantgo.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrantgo.NewQuery(vector...),
		Limit:          &limit,
		Filter:         filter,
		WithPayload: &qdrantgo.WithPayloadSelector{
			SelectorOptions: &qdrantgo.WithPayloadSelector_Enable{
				Enable: true,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	var results []vectorindex.ScoredChunk
	for _, point := range points {
		hit := vectorindex.ScoredChunk{Score: point.Score}
		hit.OrgID = orgID
		if val, ok := point.Payload[payloadText]; ok {
			hit.Text = val.GetStringValue()
		}
		if val, ok := point.Payload[payloadDocumentName]; ok {
			hit.DocumentName = val.GetStringValue()
		}
		if val, ok := point.Payload[payloadPage]; ok {
			hit.Page = int(val.GetIntegerValue())
		}
		results = append(results, hit)
	}
	return results, nil
}

// Delete removes points by ID
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]*qdrantgo.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrantgo.NewID(id)
	}

	_, err := s.client.Delete(ctx, &qdrantgo.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrantgo.NewPointsSelector(pointIDs...),
		Wait:           qdrantgo.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}

	s.logger.Debug("points deleted",
		zap.String("collection", s.collection),
		zap.Int("count", len(ids)))
	return nil
}

// DeleteByDocument removes every point of a document within an org
func (s *Store) DeleteByDocument(ctx context.Context, orgID uuid.UUID, documentName string) error {
	filter := &qdrantgo.Filter{
		Must: []*qdrantgo.Condition{
			qdrantgo.NewMatch(payloadOrgID, orgID.String()),
			qdrantgo.NewMatch(payloadDocumentName, documentName),
		},
	}

	_, err := s.client.Delete(ctx, &qdrantgo.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrantgo.NewPointsSelectorFilter(filter),
		Wait:           qdrantgo.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("failed to delete document points: %w", err)
	}

	s.logger.Debug("document points deleted",
		zap.String("collection", s.collection),
		zap.String("document", documentName))
	return nil
}
