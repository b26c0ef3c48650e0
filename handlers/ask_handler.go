package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/middleware"
	"github.com/rulebook-ai/backend/services/answer"
	"github.com/rulebook-ai/backend/utils"
	"go.uber.org/zap"
)

// AskRequest is the payload for asking a question. DocumentFilter, when
// present, restricts retrieval to the named documents.
type AskRequest struct {
	Question       string   `json:"question" validate:"required"`
	DocumentFilter []string `json:"document_filter,omitempty"`
}

// AskHandler handles question answering requests
type AskHandler struct {
	answer *answer.Service
	logger *zap.Logger
}

// NewAskHandler creates a new AskHandler
func NewAskHandler(answerService *answer.Service, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		answer: answerService,
		logger: logger,
	}
}

// HandleAsk handles POST /api/v1/organizations/{orgID}/ask
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
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

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Validation failed", validationDetails(err))
		return
	}

	result, err := h.answer.Ask(ctx, user, orgID, req.Question, req.DocumentFilter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, result)
}
