package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey represents an issued programmatic credential.
// The Secret field is populated only on issuance; it is never stored in
// retrievable form after the issue response has been returned.
type APIKey struct {
	ID        uuid.UUID  `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Secret    string     `json:"secret,omitempty"`
	KeyPrefix string     `json:"key_prefix"`
	Label     string     `json:"label"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	Revoked   bool       `json:"revoked"`
}

// APIKeyMeta is the listable view of a key: everything except the secret
type APIKeyMeta struct {
	ID        uuid.UUID  `json:"id"`
	Label     string     `json:"label"`
	KeyPrefix string     `json:"key_prefix"`
	CreatedAt time.Time  `json:"created_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
}

// CallerIdentity is the resolved principal behind a verified credential
type CallerIdentity struct {
	OwnerID string
	KeyID   *uuid.UUID // nil for session-authenticated callers
}
