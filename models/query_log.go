package models

import (
	"time"

	"github.com/google/uuid"
)

// QueryLog records a single question asked against an organization's
// documents. Logging is best-effort; a missing row never indicates a
// failed answer.
type QueryLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrgID     uuid.UUID `json:"org_id" db:"org_id"`
	Question  string    `json:"question" db:"question"`
	Answer    string    `json:"answer" db:"answer"`
	UserUID   string    `json:"user_uid" db:"user_uid"`
	UserEmail string    `json:"user_email" db:"user_email"`
	HasAnswer bool      `json:"has_answer" db:"has_answer"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the QueryLog model
func (QueryLog) TableName() string {
	return "query_logs"
}

// NewQueryLog creates a new QueryLog entry
func NewQueryLog(orgID uuid.UUID, question, answer, userUID, userEmail string, hasAnswer bool) *QueryLog {
	return &QueryLog{
		ID:        uuid.New(),
		OrgID:     orgID,
		Question:  question,
		Answer:    answer,
		UserUID:   userUID,
		UserEmail: userEmail,
		HasAnswer: hasAnswer,
		Timestamp: time.Now(),
	}
}

// QuestionCount is an aggregate of identical questions for analytics
type QuestionCount struct {
	Question  string    `json:"question"`
	Count     int       `json:"count"`
	LastAsked time.Time `json:"last_asked"`
}

// WordCount is a single word-cloud entry
type WordCount struct {
	Word  string `json:"text"`
	Count int    `json:"value"`
}
