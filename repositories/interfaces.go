package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// OrganizationRepository handles organization data operations
type OrganizationRepository interface {
	// Create creates a new organization
	Create(ctx context.Context, org *models.Organization) error

	// GetByID retrieves an organization by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)

	// GetByJoinCode retrieves an organization by its join code.
	// Matching is case-insensitive; codes are stored uppercase.
	GetByJoinCode(ctx context.Context, code string) (*models.Organization, error)

	// GetByIDs retrieves organizations for a set of IDs
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Organization, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) OrganizationRepository
}

// UserRepository handles user data operations
type UserRepository interface {
	// Upsert inserts the user or refreshes profile fields if the UID exists
	Upsert(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUID retrieves a user by identity-provider subject
	GetByUID(ctx context.Context, uid string) (*models.User, error)

	// GetByID retrieves a user by internal ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// CountByOrg counts distinct members of an organization
	CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// MembershipRepository handles user-organization membership operations
type MembershipRepository interface {
	// AddIfAbsent inserts the membership unless the (user, org) pair already
	// exists. Returns true when a row was inserted, false when the user was
	// already a member.
	AddIfAbsent(ctx context.Context, m *models.Membership) (bool, error)

	// GetRole returns the user's role within the organization.
	// Returns sql.ErrNoRows wrapped when no membership exists.
	GetRole(ctx context.Context, userID, orgID uuid.UUID) (models.Role, error)

	// ListByUser returns all memberships for a user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Membership, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) MembershipRepository
}

// DocumentRepository handles document metadata operations
type DocumentRepository interface {
	// Create persists a document record
	Create(ctx context.Context, doc *models.Document) error

	// GetByOrgAndFilename retrieves a document by filename within an org
	GetByOrgAndFilename(ctx context.Context, orgID uuid.UUID, filename string) (*models.Document, error)

	// ListByOrg returns all documents of an organization, newest first
	ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*models.Document, error)

	// Delete removes a document record by ID
	Delete(ctx context.Context, id uuid.UUID) error

	// CountByOrg counts documents for an organization
	CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) DocumentRepository
}

// QueryLogRepository handles query log operations
type QueryLogRepository interface {
	// Insert inserts a new query log entry
	Insert(ctx context.Context, log *models.QueryLog) error

	// Recent returns the most recent queries for an org, newest first
	Recent(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.QueryLog, error)

	// TopQuestions returns the most frequently asked questions for an org.
	// Ordered by count descending, then by last asked descending.
	TopQuestions(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.QuestionCount, error)

	// AllQuestions returns every logged question text for an org
	AllQuestions(ctx context.Context, orgID uuid.UUID) ([]string, error)

	// CountByOrg counts query log entries for an organization
	CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) QueryLogRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Organizations OrganizationRepository
	Users         UserRepository
	Memberships   MembershipRepository
	Documents     DocumentRepository
	QueryLogs     QueryLogRepository
}
