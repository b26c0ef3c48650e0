package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rulebook-ai/backend/models"
	"github.com/rulebook-ai/backend/repositories"
	"go.uber.org/zap"
)

// QueryLogRepository implements the repositories.QueryLogRepository interface
type QueryLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewQueryLogRepository creates a new query log repository
func NewQueryLogRepository(db *DB, logger *zap.Logger) repositories.QueryLogRepository {
	return &QueryLogRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new query log entry
func (r *QueryLogRepository) Insert(ctx context.Context, log *models.QueryLog) error {
	query := `
		INSERT INTO query_logs (id, org_id, question, answer, user_uid, user_email, has_answer, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.OrgID,
		log.Question,
		log.Answer,
		log.UserUID,
		log.UserEmail,
		log.HasAnswer,
		log.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert query log: %w", err)
	}

	return nil
}

// Recent returns the most recent queries for an org, newest first
func (r *QueryLogRepository) Recent(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.QueryLog, error) {
	query := `
		SELECT id, org_id, question, answer, user_uid, user_email, has_answer, timestamp
		FROM query_logs
		WHERE org_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent queries: %w", err)
	}
	defer rows.Close()

	var logs []*models.QueryLog
	for rows.Next() {
		log := &models.QueryLog{}
		err := rows.Scan(
			&log.ID,
			&log.OrgID,
			&log.Question,
			&log.Answer,
			&log.UserUID,
			&log.UserEmail,
			&log.HasAnswer,
			&log.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating query log rows: %w", err)
	}

	return logs, nil
}

// TopQuestions returns the most frequently asked questions for an org
func (r *QueryLogRepository) TopQuestions(ctx context.Context, orgID uuid.UUID, limit int) ([]*models.QuestionCount, error) {
	query := `
		SELECT question, COUNT(*) AS count, MAX(timestamp) AS last_asked
		FROM query_logs
		WHERE org_id = $1
		GROUP BY question
		ORDER BY count DESC, last_asked DESC
		LIMIT $2
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top questions: %w", err)
	}
	defer rows.Close()

	var counts []*models.QuestionCount
	for rows.Next() {
		qc := &models.QuestionCount{}
		if err := rows.Scan(&qc.Question, &qc.Count, &qc.LastAsked); err != nil {
			return nil, fmt.Errorf("failed to scan question count: %w", err)
		}
		counts = append(counts, qc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating question count rows: %w", err)
	}

	return counts, nil
}

// AllQuestions returns every logged question text for an org
func (r *QueryLogRepository) AllQuestions(ctx context.Context, orgID uuid.UUID) ([]string, error) {
	query := `
		SELECT question
		FROM query_logs
		WHERE org_id = $1
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating question rows: %w", err)
	}

	return questions, nil
}

// CountByOrg counts query log entries for an organization
func (r *QueryLogRepository) CountByOrg(ctx context.Context, orgID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM query_logs WHERE org_id = $1`

	executor := GetExecutor(ctx, r.db)
	var count int
	if err := executor.QueryRowContext(ctx, query, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count query logs: %w", err)
	}

	return count, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *QueryLogRepository) WithTx(tx repositories.Transaction) repositories.QueryLogRepository {
	return &QueryLogRepository{
		db:     r.db,
		logger: r.logger,
	}
}
