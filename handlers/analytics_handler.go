package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/middleware"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/services/analytics"
	"github.com/rulebook-ai/backend/utils"
	"go.uber.org/zap"
)

// AnalyticsHandler serves the admin analytics views
type AnalyticsHandler struct {
	analytics *analytics.Service
	logger    *zap.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(analyticsService *analytics.Service, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analytics: analyticsService,
		logger:    logger,
	}
}

func (h *AnalyticsHandler) requestScope(w http.ResponseWriter, r *http.Request) (*models.User, uuid.UUID, bool) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		_ = utils.WriteUnauthorized(w, "Missing user information")
		return nil, uuid.Nil, false
	}

	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid organization ID", nil)
		return nil, uuid.Nil, false
	}

	return user, orgID, true
}

// HandleQueries handles GET /api/v1/organizations/{orgID}/analytics/queries
func (h *AnalyticsHandler) HandleQueries(w http.ResponseWriter, r *http.Request) {
	user, orgID, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			_ = utils.WriteBadRequest(w, "Invalid limit parameter", nil)
			return
		}
		limit = parsed
	}

	result, err := h.analytics.GetQueryAnalytics(r.Context(), user, orgID, limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, result)
}

// HandleWordCloud handles GET /api/v1/organizations/{orgID}/analytics/wordcloud
func (h *AnalyticsHandler) HandleWordCloud(w http.ResponseWriter, r *http.Request) {
	user, orgID, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	words, err := h.analytics.GetWordCloud(r.Context(), user, orgID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, words)
}

// HandleStats handles GET /api/v1/organizations/{orgID}/analytics/stats
func (h *AnalyticsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	user, orgID, ok := h.requestScope(w, r)
	if !ok {
		return
	}

	stats, err := h.analytics.GetStats(r.Context(), user, orgID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, stats)
}
