package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/brocketdesign/rakubun-sub003/src/models"
)

// KeyService owns the durable representation of issued API keys:
// create, list, revoke, and authenticate-by-key.
type KeyService struct {
	pool *pgxpool.Pool
}

// NewKeyService creates a new key service
func NewKeyService(pool *pgxpool.Pool) *KeyService {
	return &KeyService{pool: pool}
}

// generateSecret generates a prefixed secret with 256 bits of entropy
func generateSecret(prefix string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return prefix + hex.EncodeToString(raw), nil
}

// Issue creates a new API key for ownerID. The returned APIKey carries the
// full secret; this is the only time it is ever available — afterwards only
// the display prefix is retrievable.
func (ks *KeyService) Issue(ctx context.Context, ownerID, label string) (*models.APIKey, error) {
	ownerID = strings.TrimSpace(ownerID)
	label = strings.TrimSpace(label)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrValidation)
	}
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrValidation)
	}

	secret, err := generateSecret(models.APIKeyPrefix)
	if err != nil {
		return nil, err
	}

	key := &models.APIKey{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Secret:    secret,
		KeyPrefix: secret[:models.APIKeyDisplayLength],
		Label:     label,
		CreatedAt: time.Now(),
	}

	_, err = ks.pool.Exec(ctx, `
		INSERT INTO api_keys (id, owner_id, key_value, key_prefix, label, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6)
	`, key.ID, key.OwnerID, secret, key.KeyPrefix, key.Label, key.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert api key: %w", err)
	}

	return key, nil
}

// List returns metadata for every key ever issued to ownerID, newest first.
// Secrets are never included; revoked keys remain listed for audit history.
func (ks *KeyService) List(ctx context.Context, ownerID string) ([]models.APIKeyMeta, error) {
	rows, err := ks.pool.Query(ctx, `
		SELECT id, label, key_prefix, created_at, last_used
		FROM api_keys
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query api keys: %w", err)
	}
	defer rows.Close()

	var keys []models.APIKeyMeta
	for rows.Next() {
		var m models.APIKeyMeta
		if err := rows.Scan(&m.ID, &m.Label, &m.KeyPrefix, &m.CreatedAt, &m.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, m)
	}

	return keys, rows.Err()
}

// Revoke soft-deletes a key. Ownership is enforced in the query itself so a
// key belonging to another owner is indistinguishable from a missing one.
// Revocation is permanent; a revoked key is never re-activated.
func (ks *KeyService) Revoke(ctx context.Context, ownerID string, keyID uuid.UUID) error {
	result, err := ks.pool.Exec(ctx, `
		UPDATE api_keys SET revoked = true
		WHERE id = $1 AND owner_id = $2 AND revoked = false
	`, keyID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrKeyNotFound
	}

	return nil
}

// AuthenticateByKey resolves the caller identity behind a raw API key secret.
// Every failure mode (empty secret, unknown key, revoked key) returns the
// same ErrAuthentication so callers cannot distinguish them. On success the
// last-used timestamp is touched on a detached goroutine; a lost update under
// concurrent identical requests is accepted and never blocks the caller.
func (ks *KeyService) AuthenticateByKey(ctx context.Context, secret string) (*models.CallerIdentity, error) {
	if secret == "" {
		return nil, ErrAuthentication
	}

	var id uuid.UUID
	var ownerID string
	err := ks.pool.QueryRow(ctx, `
		SELECT id, owner_id FROM api_keys
		WHERE key_value = $1 AND revoked = false
	`, secret).Scan(&id, &ownerID)
	if err != nil {
		return nil, ErrAuthentication
	}

	go ks.touchLastUsed(id)

	return &models.CallerIdentity{OwnerID: ownerID, KeyID: &id}, nil
}

// touchLastUsed updates last_used on its own context so it survives the
// request that triggered it. Best effort: failures are logged and dropped,
// and a race with a concurrent revoke is acceptable (last-write-wins).
func (ks *KeyService) touchLastUsed(keyID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := ks.pool.Exec(ctx, `UPDATE api_keys SET last_used = NOW() WHERE id = $1`, keyID)
	if err != nil {
		log.Warn().Err(err).Str("key_id", keyID.String()).Msg("failed to touch last_used")
	}
}
