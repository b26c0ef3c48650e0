package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/repositories"
	"go.uber.org/zap"
)

// OrganizationRepository implements the repositories.OrganizationRepository interface
type OrganizationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *DB, logger *zap.Logger) repositories.OrganizationRepository {
	return &OrganizationRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new organization
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (id, name, join_code, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		org.ID,
		org.Name,
		org.JoinCode,
		org.CreatedBy,
		org.CreatedAt,
	)

	if err != nil {
		if IsUniqueViolation(err, "organizations_join_code_key") {
			return fmt.Errorf("join code collision: %w", err)
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}

	r.logger.Debug("organization created", zap.String("id", org.ID.String()), zap.String("name", org.Name))
	return nil
}

// GetByID retrieves an organization by ID
func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	query := `
		SELECT id, name, join_code, created_by, created_at
		FROM organizations
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	org := &models.Organization{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.JoinCode,
		&org.CreatedBy,
		&org.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("organization not found: %s: %w", id, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// GetByJoinCode retrieves an organization by join code, case-insensitively
func (r *OrganizationRepository) GetByJoinCode(ctx context.Context, code string) (*models.Organization, error) {
	query := `
		SELECT id, name, join_code, created_by, created_at
		FROM organizations
		WHERE join_code = $1
	`

	executor := GetExecutor(ctx, r.db)
	org := &models.Organization{}

	err := executor.QueryRowContext(ctx, query, strings.ToUpper(code)).Scan(
		&org.ID,
		&org.Name,
		&org.JoinCode,
		&org.CreatedBy,
		&org.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("organization not found for join code: %w", sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get organization by join code: %w", err)
	}

	return org, nil
}

// GetByIDs retrieves organizations for a set of IDs
func (r *OrganizationRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Organization, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, join_code, created_by, created_at
		FROM organizations
		WHERE id = ANY($1)
		ORDER BY created_at DESC
	`

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, pq.Array(idStrings))
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		org := &models.Organization{}
		err := rows.Scan(
			&org.ID,
			&org.Name,
			&org.JoinCode,
			&org.CreatedBy,
			&org.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating organization rows: %w", err)
	}

	return orgs, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *OrganizationRepository) WithTx(tx repositories.Transaction) repositories.OrganizationRepository {
	return &OrganizationRepository{
		db:     r.db,
		logger: r.logger,
	}
}
