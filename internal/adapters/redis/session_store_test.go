package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/sponsorlink/sponsorlink-web/internal/domain/auth"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
	"github.com/sponsorlink/sponsorlink-web/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))
	ctx := context.Background()

	session := domainauth.Session{
		ID:        "test-session-1",
		UserID:    "user_123",
		Email:     "user@example.com",
		Method:    domainauth.MethodPassword,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(30 * time.Minute),
	}

	require.NoError(t, store.Save(ctx, session))

	retrieved, err := store.Get(ctx, "test-session-1")
	require.NoError(t, err)
	assert.Equal(t, session.UserID, retrieved.UserID)
	assert.Equal(t, session.Email, retrieved.Email)
	assert.Equal(t, session.Method, retrieved.Method)
	assert.WithinDuration(t, session.ExpiresAt, retrieved.ExpiresAt, time.Second)
}

func TestSessionStore_GetNonExistent(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))

	_, err := store.Get(context.Background(), "non-existent")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	_, err = store.Get(context.Background(), "")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestSessionStore_Delete(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))
	ctx := context.Background()

	session := domainauth.Session{ID: "test-session-delete", UserID: "user_123", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, store.Save(ctx, session))
	require.NoError(t, store.Delete(ctx, session.ID))

	_, err := store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
	assert.NoError(t, store.Delete(ctx, ""))
}

func TestSessionStore_SaveExpired(t *testing.T) {
	store := NewSessionStore(setupTestRedis(t))

	err := store.Save(context.Background(), domainauth.Session{ID: "old", ExpiresAt: time.Now().Add(-time.Second)})
	assert.Error(t, err)
}

func TestSessionStore_GetTreatsLogicallyExpiredAsMissing(t *testing.T) {
	client := setupTestRedis(t)
	store := NewSessionStoreWithPrefix(client, "test:session:")
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, store.Save(ctx, domainauth.Session{ID: "s1", UserID: "u", ExpiresAt: now.Add(time.Hour)}))

	store.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)

	exists, err := client.Exists(ctx, "test:session:s1").Result()
	require.NoError(t, err)
	assert.Zero(t, exists, "expired session key is removed")
}
