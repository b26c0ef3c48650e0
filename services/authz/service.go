package authz

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/repositories"
	"github.com/rulebook-ai/backend/services"
	"go.uber.org/zap"
)

// Service resolves a user's role within an organization. Every
// org-scoped operation goes through here before touching data.
type Service struct {
	orgs        repositories.OrganizationRepository
	memberships repositories.MembershipRepository
	logger      *zap.Logger
}

// NewService creates a new authorization service
func NewService(orgs repositories.OrganizationRepository, memberships repositories.MembershipRepository, logger *zap.Logger) *Service {
	return &Service{
		orgs:        orgs,
		memberships: memberships,
		logger:      logger,
	}
}

// Resolve returns the user's role in the organization. It distinguishes
// a missing organization from a missing membership so callers can map
// them to different HTTP statuses.
func (s *Service) Resolve(ctx context.Context, user *models.User, orgID uuid.UUID) (models.Role, error) {
	if user == nil {
		return "", services.ErrUnauthorized
	}

	if _, err := s.orgs.GetByID(ctx, orgID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", services.ErrOrganizationNotFound
		}
		return "", services.WrapInternal("failed to load organization", err)
	}

	role, err := s.memberships.GetRole(ctx, user.ID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("access denied: not a member",
				zap.String("user_id", user.ID.String()),
				zap.String("org_id", orgID.String()))
			return "", services.ErrNotMember
		}
		return "", services.WrapInternal("failed to resolve membership", err)
	}

	return role, nil
}

// RequireAdmin resolves the user's role and rejects non-admins.
func (s *Service) RequireAdmin(ctx context.Context, user *models.User, orgID uuid.UUID) error {
	role, err := s.Resolve(ctx, user, orgID)
	if err != nil {
		return err
	}
	if role != models.RoleAdmin {
		s.logger.Warn("access denied: admin required",
			zap.String("user_id", user.ID.String()),
			zap.String("org_id", orgID.String()),
			zap.String("role", string(role)))
		return services.ErrAdminRequired
	}
	return nil
}
