// ABOUTME: Tests for store setup and identity persistence
// ABOUTME: Covers creation, handle uniqueness, and lookup paths

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// makeIdentity inserts an identity with the given handle and returns it.
func makeIdentity(t *testing.T, s *SQLiteStore, handle string) *Identity {
	t.Helper()
	ident := &Identity{
		ID:           uuid.New().String(),
		Handle:       handle,
		DisplayName:  handle + " display",
		PasswordHash: "$2a$10$fakehashforthetests000000000000000000000000000000000",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateIdentity(context.Background(), ident))
	return ident
}

func TestStore_CreateIdentity(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ident := &Identity{
		ID:           "ident-123",
		Handle:       "ada",
		DisplayName:  "Ada Lovelace",
		AvatarURL:    "https://cdn.example.com/ada.png",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}

	err := store.CreateIdentity(ctx, ident)
	require.NoError(t, err)

	retrieved, err := store.GetIdentity(ctx, "ident-123")
	require.NoError(t, err)
	assert.Equal(t, "ada", retrieved.Handle)
	assert.Equal(t, "Ada Lovelace", retrieved.DisplayName)
	assert.Equal(t, "https://cdn.example.com/ada.png", retrieved.AvatarURL)
}

func TestStore_CreateIdentity_DuplicateHandle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	makeIdentity(t, store, "ada")

	dup := &Identity{
		ID:           uuid.New().String(),
		Handle:       "ada",
		DisplayName:  "Another Ada",
		PasswordHash: "hash",
		CreatedAt:    time.Now().UTC(),
	}
	err := store.CreateIdentity(ctx, dup)
	assert.ErrorIs(t, err, ErrDuplicateIdentity)
}

func TestStore_GetIdentityByHandle(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	ident := makeIdentity(t, store, "grace")

	retrieved, err := store.GetIdentityByHandle(ctx, "grace")
	require.NoError(t, err)
	assert.Equal(t, ident.ID, retrieved.ID)
}

func TestStore_GetIdentity_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetIdentity(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetIdentityByHandle(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListIdentities(t *testing.T) {
	store := setupTestStore(t)

	makeIdentity(t, store, "carol")
	makeIdentity(t, store, "alice")
	makeIdentity(t, store, "bob")

	identities, err := store.ListIdentities(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, identities, 3)
	assert.Equal(t, "alice", identities[0].Handle)
	assert.Equal(t, "bob", identities[1].Handle)
	assert.Equal(t, "carol", identities[2].Handle)
}

func TestPairKey_OrderIndependent(t *testing.T) {
	assert.Equal(t, PairKey("a", "b"), PairKey("b", "a"))
	assert.Equal(t, "a|b", PairKey("b", "a"))
}
