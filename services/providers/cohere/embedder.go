package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rulebook-ai/backend/services/providers"
)

const (
	defaultBaseURL = "https://api.cohere.com/v1"

	// DefaultModel is used when the config does not name one
	DefaultModel = "embed-english-v3.0"

	// DefaultDimensions is the vector size of the default model
	DefaultDimensions = 1024

	inputTypeDocument = "search_document"
	inputTypeQuery    = "search_query"
)

// CohereEmbedder implements the Embedder interface against the Cohere
// embed API.
type CohereEmbedder struct {
	config     providers.ProviderConfig
	dimensions int
	httpClient *http.Client
}

// NewCohereEmbedder creates a new Cohere embedder
func NewCohereEmbedder(config providers.ProviderConfig) *CohereEmbedder {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &CohereEmbedder{
		config:     config,
		dimensions: DefaultDimensions,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (e *CohereEmbedder) Name() string {
	return "cohere"
}

// Dimensions returns the vector size produced by this embedder
func (e *CohereEmbedder) Dimensions() int {
	return e.dimensions
}

// EmbedDocuments embeds passages for indexing, preserving input order
func (e *CohereEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts, inputTypeDocument)
}

// EmbedQuery embeds a search query
func (e *CohereEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, inputTypeQuery)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, providers.NewProviderError(e.Name(), "EMPTY_RESPONSE", "Response contained no embeddings", 0, false, nil)
	}
	return vectors[0], nil
}

func (e *CohereEmbedder) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	embedReq := &embedRequest{
		Model:     e.config.Model,
		Texts:     texts,
		InputType: inputType,
	}

	reqBody, err := json.Marshal(embedReq)
	if err != nil {
		return nil, providers.NewProviderError(e.Name(), "MARSHAL_ERROR", "Failed to marshal request", 0, false, err)
	}

	var httpResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, providers.NewProviderError(e.Name(), "CANCELLED", "Request cancelled", 0, false, ctx.Err())
			case <-time.After(e.config.RetryDelay * time.Duration(attempt)):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.BaseURL+"/embed", bytes.NewReader(reqBody))
		if err != nil {
			return nil, providers.NewProviderError(e.Name(), "REQUEST_ERROR", "Failed to create request", 0, false, err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+e.config.APIKey)

		httpResp, lastErr = e.httpClient.Do(httpReq)
		if lastErr == nil && httpResp.StatusCode < 500 && httpResp.StatusCode != http.StatusTooManyRequests {
			break
		}

		if httpResp != nil {
			httpResp.Body.Close()
			httpResp = nil
		}
	}

	if lastErr != nil {
		return nil, providers.NewProviderError(e.Name(), "HTTP_ERROR", "HTTP request failed", 0, true, lastErr)
	}
	if httpResp == nil {
		return nil, providers.NewProviderError(e.Name(), "HTTP_ERROR", "Retries exhausted", 0, true, nil)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(e.Name(), "READ_ERROR", "Failed to read response", httpResp.StatusCode, false, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, e.handleErrorResponse(httpResp.StatusCode, respBody)
	}

	var embedResp embedResponse
	if err := json.Unmarshal(respBody, &embedResp); err != nil {
		return nil, providers.NewProviderError(e.Name(), "UNMARSHAL_ERROR", "Failed to unmarshal response", httpResp.StatusCode, false, err)
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, providers.NewProviderError(e.Name(), "EMBEDDING_MISMATCH", "Embedding count does not match input count", httpResp.StatusCode, false, nil)
	}

	return embedResp.Embeddings, nil
}

// handleErrorResponse converts an API error payload into a ProviderError
func (e *CohereEmbedder) handleErrorResponse(statusCode int, body []byte) error {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return providers.NewProviderError(e.Name(), "UNKNOWN_ERROR", string(body), statusCode, false, err)
	}

	retryable := statusCode >= 500 || statusCode == http.StatusTooManyRequests

	return providers.NewProviderError(
		e.Name(),
		"API_ERROR",
		errResp.Message,
		statusCode,
		retryable,
		errors.New(errResp.Message),
	)
}

// Cohere-specific request/response types

type embedRequest struct {
	Model     string   `json:"model"`
	Texts     []string `json:"texts"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	ID         string      `json:"id"`
	Embeddings [][]float32 `json:"embeddings"`
	Texts      []string    `json:"texts"`
}

type errorResponse struct {
	Message string `json:"message"`
}
