package directory

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/repositories"
	"github.com/rulebook-ai/backend/repositories/postgres"
	"github.com/rulebook-ai/backend/services"
	"github.com/rulebook-ai/backend/services/authz"
	"go.uber.org/zap"
)

// maxJoinCodeAttempts bounds the retry loop for join code collisions.
// With a 36^6 code space collisions are rare; repeated collisions mean
// something else is wrong.
const maxJoinCodeAttempts = 5

// OrganizationSummary is an organization as seen by one of its members.
// JoinCode is only populated for admins.
type OrganizationSummary struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	JoinCode  string      `json:"join_code,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Permissions are the per-role capability flags shown on the dashboard.
type Permissions struct {
	CanUpload bool `json:"can_upload"`
	CanAsk    bool `json:"can_ask"`
}

// Dashboard is the per-organization landing view for a member.
type Dashboard struct {
	OrgID       uuid.UUID   `json:"org_id"`
	OrgName     string      `json:"org_name"`
	Role        models.Role `json:"role"`
	Permissions Permissions `json:"permissions"`
}

// Service manages organizations and memberships.
type Service struct {
	orgs        repositories.OrganizationRepository
	memberships repositories.MembershipRepository
	txManager   repositories.TransactionManager
	authz       *authz.Service
	logger      *zap.Logger
}

// NewService creates a new directory service
func NewService(
	orgs repositories.OrganizationRepository,
	memberships repositories.MembershipRepository,
	txManager repositories.TransactionManager,
	authzService *authz.Service,
	logger *zap.Logger,
) *Service {
	return &Service{
		orgs:        orgs,
		memberships: memberships,
		txManager:   txManager,
		authz:       authzService,
		logger:      logger,
	}
}

// Create creates an organization and makes the creator its admin. The two
// writes happen in one transaction so a failed membership insert never
// leaves an orphaned organization. Join code collisions are retried with
// a fresh code.
func (s *Service) Create(ctx context.Context, user *models.User, name string) (*models.Organization, error) {
	if user == nil {
		return nil, services.ErrUnauthorized
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.ErrEmptyOrgName
	}

	var created *models.Organization
	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		org, err := models.NewOrganization(name, user.UID)
		if err != nil {
			return nil, services.WrapInternal("failed to generate join code", err)
		}

		err = s.txManager.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) error {
			if err := s.orgs.WithTx(tx).Create(txCtx, org); err != nil {
				return err
			}
			membership := models.NewMembership(user.ID, org.ID, models.RoleAdmin)
			if _, err := s.memberships.WithTx(tx).AddIfAbsent(txCtx, membership); err != nil {
				return err
			}
			return nil
		})

		if err == nil {
			created = org
			break
		}
		if postgres.IsUniqueViolation(err, "organizations_join_code_key") {
			s.logger.Warn("join code collision, retrying",
				zap.String("org_name", name),
				zap.Int("attempt", attempt+1))
			continue
		}
		return nil, services.WrapInternal("failed to create organization", err)
	}

	if created == nil {
		return nil, services.NewDomainError(services.ErrorTypeConflict, "could not allocate a unique join code", nil)
	}

	s.logger.Info("organization created",
		zap.String("org_id", created.ID.String()),
		zap.String("name", created.Name),
		zap.String("created_by", user.UID))

	return created, nil
}

// Join adds the user to the organization identified by the join code as
// an employee. Joining twice is a conflict; the membership insert is
// conditional so concurrent joins cannot race.
func (s *Service) Join(ctx context.Context, user *models.User, code string) (*models.Organization, error) {
	if user == nil {
		return nil, services.ErrUnauthorized
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != models.JoinCodeLength {
		return nil, services.ErrInvalidJoinCode
	}

	org, err := s.orgs.GetByJoinCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrJoinCodeNotFound
		}
		return nil, services.WrapInternal("failed to look up join code", err)
	}

	membership := models.NewMembership(user.ID, org.ID, models.RoleEmployee)
	inserted, err := s.memberships.AddIfAbsent(ctx, membership)
	if err != nil {
		return nil, services.WrapInternal("failed to add membership", err)
	}
	if !inserted {
		return nil, services.ErrAlreadyMember
	}

	s.logger.Info("user joined organization",
		zap.String("org_id", org.ID.String()),
		zap.String("user_id", user.ID.String()))

	// Employees never see the join code.
	org.JoinCode = ""
	return org, nil
}

// List returns every organization the user belongs to, with the user's
// role in each. Join codes are included only where the user is admin.
func (s *Service) List(ctx context.Context, user *models.User) ([]*OrganizationSummary, error) {
	if user == nil {
		return nil, services.ErrUnauthorized
	}

	memberships, err := s.memberships.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, services.WrapInternal("failed to list memberships", err)
	}
	if len(memberships) == 0 {
		return []*OrganizationSummary{}, nil
	}

	ids := make([]uuid.UUID, 0, len(memberships))
	roles := make(map[uuid.UUID]models.Role, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.OrgID)
		roles[m.OrgID] = m.Role
	}

	orgs, err := s.orgs.GetByIDs(ctx, ids)
	if err != nil {
		return nil, services.WrapInternal("failed to load organizations", err)
	}

	summaries := make([]*OrganizationSummary, 0, len(orgs))
	for _, org := range orgs {
		role := roles[org.ID]
		summary := &OrganizationSummary{
			ID:        org.ID,
			Name:      org.Name,
			Role:      role,
			CreatedAt: org.CreatedAt,
		}
		if role == models.RoleAdmin {
			summary.JoinCode = org.JoinCode
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// GetDashboard returns the member's view of an organization: its name,
// the member's role and what the role lets them do.
func (s *Service) GetDashboard(ctx context.Context, user *models.User, orgID uuid.UUID) (*Dashboard, error) {
	role, err := s.authz.Resolve(ctx, user, orgID)
	if err != nil {
		return nil, err
	}

	org, err := s.orgs.GetByID(ctx, orgID)
	if err != nil {
		return nil, services.WrapInternal("failed to load organization", err)
	}

	return &Dashboard{
		OrgID:   org.ID,
		OrgName: org.Name,
		Role:    role,
		Permissions: Permissions{
			CanUpload: role == models.RoleAdmin,
			CanAsk:    true,
		},
	}, nil
}
