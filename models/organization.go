package models

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
)

// JoinCodeLength is the length of an organization join code.
const JoinCodeLength = 6

// joinCodeAlphabet is the character set for join codes. Codes are stored
// uppercase and matched case-insensitively.
const joinCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Organization represents a tenant in the multi-tenant system.
// The organization is the unit of data isolation: every document, chunk
// and query log row carries its org ID.
type Organization struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	JoinCode  string    `json:"join_code,omitempty" db:"join_code"` // 6-char code, globally unique
	CreatedBy string    `json:"created_by" db:"created_by"`         // UID of the founding admin
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the Organization model
func (Organization) TableName() string {
	return "organizations"
}

// NewOrganization creates a new Organization with a freshly generated join code
func NewOrganization(name, creatorUID string) (*Organization, error) {
	code, err := GenerateJoinCode()
	if err != nil {
		return nil, err
	}
	return &Organization{
		ID:        uuid.New(),
		Name:      name,
		JoinCode:  code,
		CreatedBy: creatorUID,
		CreatedAt: time.Now(),
	}, nil
}

// GenerateJoinCode returns a random 6-character uppercase alphanumeric code
func GenerateJoinCode() (string, error) {
	buf := make([]byte, JoinCodeLength)
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
