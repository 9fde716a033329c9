package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionToken is an opaque bearer credential issued at login. Only the bcrypt
// hash is stored; the prefix narrows the lookup before comparing hashes.
type SessionToken struct {
	ID          uuid.UUID  `db:"id"           json:"id"`
	UserID      uuid.UUID  `db:"user_id"      json:"user_id"`
	TokenHash   string     `db:"token_hash"   json:"-"`
	TokenPrefix string     `db:"token_prefix" json:"-"`
	LastUsedAt  *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	ExpiresAt   time.Time  `db:"expires_at"   json:"expires_at"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}
