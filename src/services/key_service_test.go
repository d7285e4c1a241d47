package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brocketdesign/rakubun-sub003/src/database"
	"github.com/brocketdesign/rakubun-sub003/src/models"
)

func TestGenerateSecret(t *testing.T) {
	secret, err := generateSecret(models.APIKeyPrefix)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(secret, models.APIKeyPrefix))
	// prefix + 32 bytes hex-encoded
	assert.Len(t, secret, len(models.APIKeyPrefix)+64)

	second, err := generateSecret(models.APIKeyPrefix)
	require.NoError(t, err)
	assert.NotEqual(t, secret, second)
}

func TestIssueValidation(t *testing.T) {
	ks := NewKeyService(nil)
	ctx := context.Background()

	_, err := ks.Issue(ctx, "", "CI pipeline")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = ks.Issue(ctx, "owner-1", "   ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestIssueAndAuthenticate(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ks := NewKeyService(tdb.Pool)
		ctx := context.Background()

		key, err := ks.Issue(ctx, "owner-1", "CI pipeline")
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(key.Secret, models.APIKeyPrefix))
		assert.Equal(t, key.Secret[:models.APIKeyDisplayLength], key.KeyPrefix)

		caller, err := ks.AuthenticateByKey(ctx, key.Secret)
		require.NoError(t, err)
		assert.Equal(t, "owner-1", caller.OwnerID)
		require.NotNil(t, caller.KeyID)
		assert.Equal(t, key.ID, *caller.KeyID)
	})
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ks := NewKeyService(tdb.Pool)
		ctx := context.Background()

		key, err := ks.Issue(ctx, "owner-1", "to be revoked")
		require.NoError(t, err)
		require.NoError(t, ks.Revoke(ctx, "owner-1", key.ID))

		unknown, err := generateSecret(models.APIKeyPrefix)
		require.NoError(t, err)

		tests := []struct {
			name   string
			secret string
		}{
			{"empty secret", ""},
			{"unknown secret", unknown},
			{"revoked secret", key.Secret},
			{"prefix only", key.KeyPrefix},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				caller, err := ks.AuthenticateByKey(ctx, tt.secret)
				assert.Nil(t, caller)
				assert.ErrorIs(t, err, ErrAuthentication)
			})
		}
	})
}

func TestAuthenticateTouchesLastUsed(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ks := NewKeyService(tdb.Pool)
		ctx := context.Background()

		key, err := ks.Issue(ctx, "owner-1", "agent")
		require.NoError(t, err)

		_, err = ks.AuthenticateByKey(ctx, key.Secret)
		require.NoError(t, err)

		// The touch runs on a detached goroutine; poll briefly
		deadline := time.Now().Add(3 * time.Second)
		for time.Now().Before(deadline) {
			keys, err := ks.List(ctx, "owner-1")
			require.NoError(t, err)
			require.Len(t, keys, 1)
			if keys[0].LastUsed != nil {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
		t.Fatal("last_used was never updated")
	})
}

func TestListReturnsMetadataOnly(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ks := NewKeyService(tdb.Pool)
		ctx := context.Background()

		first, err := ks.Issue(ctx, "owner-1", "first")
		require.NoError(t, err)
		second, err := ks.Issue(ctx, "owner-1", "second")
		require.NoError(t, err)
		_, err = ks.Issue(ctx, "owner-2", "someone else")
		require.NoError(t, err)

		// Revoked keys stay listed
		require.NoError(t, ks.Revoke(ctx, "owner-1", first.ID))

		keys, err := ks.List(ctx, "owner-1")
		require.NoError(t, err)
		require.Len(t, keys, 2)

		// Newest first
		assert.Equal(t, second.ID, keys[0].ID)
		assert.Equal(t, first.ID, keys[1].ID)

		for _, m := range keys {
			assert.Len(t, m.KeyPrefix, models.APIKeyDisplayLength)
		}
	})
}

func TestRevokeEnforcesOwnership(t *testing.T) {
	database.WithTestDB(t, func(tdb *database.TestDB) {
		ks := NewKeyService(tdb.Pool)
		ctx := context.Background()

		key, err := ks.Issue(ctx, "owner-1", "mine")
		require.NoError(t, err)

		// Someone else's key and a nonexistent key fail identically
		assert.ErrorIs(t, ks.Revoke(ctx, "owner-2", key.ID), ErrKeyNotFound)
		assert.ErrorIs(t, ks.Revoke(ctx, "owner-1", uuid.New()), ErrKeyNotFound)

		require.NoError(t, ks.Revoke(ctx, "owner-1", key.ID))

		// Revocation is permanent and not repeatable
		assert.ErrorIs(t, ks.Revoke(ctx, "owner-1", key.ID), ErrKeyNotFound)

		_, err = ks.AuthenticateByKey(ctx, key.Secret)
		assert.ErrorIs(t, err, ErrAuthentication)
	})
}
