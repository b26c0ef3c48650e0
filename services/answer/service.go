package answer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/services"
	"github.com/rulebook-ai/backend/services/authz"
	"github.com/rulebook-ai/backend/services/providers"
	"github.com/rulebook-ai/backend/services/retrieval"
	"go.uber.org/zap"
)

// RefusalAnswer is the canonical reply when the documents do not cover
// the question. Clients and the audit log key off its exact wording.
const RefusalAnswer = "Not mentioned in the uploaded documents."

// refusalMarker is the substring that classifies an answer as a refusal.
const refusalMarker = "Not mentioned"

// citationSnippetLimit caps the citation excerpt length in characters.
const citationSnippetLimit = 200

// Citation points at the indexed chunk an answer drew from.
type Citation struct {
	DocumentName string `json:"document_name"`
	Page         int    `json:"page"`
	Content      string `json:"content"`
}

// Result is a synthesized answer with its supporting citations.
type Result struct {
	Answer    string     `json:"answer"`
	Sources   []Citation `json:"sources"`
	HasAnswer bool       `json:"has_answer"`
}

// QueryRecorder receives completed question/answer pairs for the audit
// log. Recording must never block or fail the caller.
type QueryRecorder interface {
	Record(entry *models.QueryLog)
}

// Service answers questions strictly from an organization's indexed
// documents. When retrieval returns nothing the service refuses without
// ever calling the generator.
type Service struct {
	retrieval *retrieval.Service
	generator providers.Generator
	recorder  QueryRecorder
	authz     *authz.Service
	model     string
	logger    *zap.Logger
}

// NewService creates a new answer service
func NewService(
	retrievalService *retrieval.Service,
	generator providers.Generator,
	recorder QueryRecorder,
	authzService *authz.Service,
	model string,
	logger *zap.Logger,
) *Service {
	return &Service{
		retrieval: retrievalService,
		generator: generator,
		recorder:  recorder,
		authz:     authzService,
		model:     model,
		logger:    logger,
	}
}

// Ask retrieves context for the question within the organization and
// synthesizes a grounded answer. Any member may ask. documentNames,
// when non-empty, restricts retrieval to those documents.
func (s *Service) Ask(ctx context.Context, user *models.User, orgID uuid.UUID, question string, documentNames []string) (*Result, error) {
	role, err := s.authz.Resolve(ctx, user, orgID)
	if err != nil {
		return nil, err
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, services.ErrEmptyQuestion
	}

	hits, err := s.retrieval.Retrieve(ctx, orgID, question, documentNames)
	if err != nil {
		return nil, err
	}

	if len(hits) == 0 {
		s.logger.Debug("no context retrieved, refusing",
			zap.String("org_id", orgID.String()))
		return &Result{
			Answer:    RefusalAnswer,
			Sources:   []Citation{},
			HasAnswer: false,
		}, nil
	}

	var contextParts []string
	citations := make([]Citation, 0, len(hits))
	for i, hit := range hits {
		contextParts = append(contextParts, fmt.Sprintf("[Source %d]\n%s\n", i+1, hit.Text))
		citations = append(citations, Citation{
			DocumentName: hit.DocumentName,
			Page:         hit.Page,
			Content:      truncateSnippet(hit.Text),
		})
	}

	prompt := buildPrompt(role, strings.Join(contextParts, "\n"), question)

	resp, err := s.generator.ChatCompletion(ctx, &providers.ChatRequest{
		Model: s.model,
		Messages: []providers.Message{
			{Role: "user", Content: prompt},
		},
		Temperature: 0.0,
	})
	if err != nil {
		return nil, services.WrapUpstream("generation provider error", err)
	}

	answer := resp.Content
	hasAnswer := !strings.Contains(answer, refusalMarker)

	if s.recorder != nil {
		s.recorder.Record(models.NewQueryLog(orgID, question, answer, user.UID, user.Email, hasAnswer))
	}

	return &Result{
		Answer:    answer,
		Sources:   citations,
		HasAnswer: hasAnswer,
	}, nil
}

func buildPrompt(role models.Role, contextText, question string) string {
	return fmt.Sprintf(`You are a helpful assistant for %ss at their organization. Answer the question ONLY using the provided context below.

CRITICAL RULES:
- If the answer is not in the context, say %q
- Always cite which source ([Source 1], [Source 2]) you used.
- Be concise.

CONTEXT:
%s

QUESTION: %s

ANSWER:`, strings.ToLower(string(role)), RefusalAnswer, contextText, question)
}

func truncateSnippet(text string) string {
	runes := []rune(text)
	if len(runes) <= citationSnippetLimit {
		return text
	}
	return string(runes[:citationSnippetLimit]) + "..."
}
