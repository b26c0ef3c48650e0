package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/repositories"
	"go.uber.org/zap"
)

// MembershipRepository implements the repositories.MembershipRepository interface
type MembershipRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB, logger *zap.Logger) repositories.MembershipRepository {
	return &MembershipRepository{
		db:     db,
		logger: logger,
	}
}

// AddIfAbsent inserts the membership unless the (user, org) pair exists.
// The conditional insert makes concurrent joins safe: exactly one of two
// racing requests observes an inserted row.
func (r *MembershipRepository) AddIfAbsent(ctx context.Context, m *models.Membership) (bool, error) {
	query := `
		INSERT INTO memberships (user_id, org_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, org_id) DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		m.UserID,
		m.OrgID,
		m.Role,
		m.CreatedAt,
	)

	if err != nil {
		return false, fmt.Errorf("failed to add membership: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	inserted := rowsAffected > 0
	if inserted {
		r.logger.Debug("membership added",
			zap.String("user_id", m.UserID.String()),
			zap.String("org_id", m.OrgID.String()),
			zap.String("role", string(m.Role)),
		)
	}
	return inserted, nil
}

// GetRole returns the user's role within the organization
func (r *MembershipRepository) GetRole(ctx context.Context, userID, orgID uuid.UUID) (models.Role, error) {
	query := `
		SELECT role
		FROM memberships
		WHERE user_id = $1 AND org_id = $2
	`

	executor := GetExecutor(ctx, r.db)
	var role models.Role

	err := executor.QueryRowContext(ctx, query, userID, orgID).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("membership not found: %w", sql.ErrNoRows)
		}
		return "", fmt.Errorf("failed to get role: %w", err)
	}

	return role, nil
}

// ListByUser returns all memberships for a user
func (r *MembershipRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error) {
	query := `
		SELECT user_id, org_id, role, created_at
		FROM memberships
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m := &models.Membership{}
		err := rows.Scan(
			&m.UserID,
			&m.OrgID,
			&m.Role,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating membership rows: %w", err)
	}

	return memberships, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *MembershipRepository) WithTx(tx repositories.Transaction) repositories.MembershipRepository {
	return &MembershipRepository{
		db:     r.db,
		logger: r.logger,
	}
}
