package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/middleware"
	"github.com/rulebook-ai/backend/services/directory"
	"github.com/rulebook-ai/backend/utils"
	"go.uber.org/zap"
)

// CreateOrganizationRequest is the payload for creating an organization
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// JoinOrganizationRequest is the payload for joining by code
type JoinOrganizationRequest struct {
	Code string `json:"code" validate:"required,len=6"`
}

// OrganizationHandler handles organization-related HTTP requests
type OrganizationHandler struct {
	directory *directory.Service
	logger    *zap.Logger
}

// NewOrganizationHandler creates a new OrganizationHandler
func NewOrganizationHandler(directoryService *directory.Service, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		directory: directoryService,
		logger:    logger,
	}
}

// HandleCreate handles POST /api/v1/organizations
func (h *OrganizationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := middleware.GetUserFromContext(ctx)
	if user == nil {
		_ = utils.WriteUnauthorized(w, "Missing user information")
		return
	}

	var req CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Validation failed", validationDetails(err))
		return
	}

	org, err := h.directory.Create(ctx, user, req.Name)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, org)
}

// HandleJoin handles POST /api/v1/organizations/join
func (h *OrganizationHandler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := middleware.GetUserFromContext(ctx)
	if user == nil {
		_ = utils.WriteUnauthorized(w, "Missing user information")
		return
	}

	var req JoinOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Validation failed", validationDetails(err))
		return
	}

	org, err := h.directory.Join(ctx, user, req.Code)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, org)
}

// HandleList handles GET /api/v1/organizations
func (h *OrganizationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := middleware.GetUserFromContext(ctx)
	if user == nil {
		_ = utils.WriteUnauthorized(w, "Missing user information")
		return
	}

	orgs, err := h.directory.List(ctx, user)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, orgs)
}

// HandleDashboard handles GET /api/v1/organizations/{orgID}/dashboard
func (h *OrganizationHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
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

	dashboard, err := h.directory.GetDashboard(ctx, user, orgID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, dashboard)
}
