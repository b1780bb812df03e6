// ABOUTME: Tests for conversation find-or-create and summary listing
// ABOUTME: Covers pair-key canonicalization, the concurrent-resolve property, and inbox ordering

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_ResolveConversation_CreatesOnce(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := makeIdentity(t, store, "ada")
	b := makeIdentity(t, store, "bob")

	first, err := store.ResolveConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	// Same pair in either order resolves to the same conversation
	second, err := store.ResolveConversation(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, PairKey(a.ID, b.ID), second.PairKey)
}

func TestStore_ResolveConversation_SameIdentity(t *testing.T) {
	store := setupTestStore(t)

	a := makeIdentity(t, store, "ada")

	_, err := store.ResolveConversation(context.Background(), a.ID, a.ID)
	assert.ErrorIs(t, err, ErrSameParticipant)
}

func TestStore_ResolveConversation_Concurrent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := makeIdentity(t, store, "ada")
	b := makeIdentity(t, store, "bob")

	// Both sides send their first message at the same time. Exactly one
	// conversation may exist afterwards, whatever the interleaving.
	const attempts = 20
	ids := make([]string, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			x, y := a.ID, b.ID
			if i%2 == 1 {
				x, y = y, x
			}
			conv, err := store.ResolveConversation(ctx, x, y)
			if err == nil {
				ids[i] = conv.ID
			}
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, id := range ids {
		if id != "" {
			seen[id] = true
		}
	}
	assert.Len(t, seen, 1, "concurrent resolve must converge on one conversation")
}

func TestStore_GetConversationByPair_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetConversationByPair(context.Background(), "x", "y")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListConversationSummaries(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := makeIdentity(t, store, "ada")
	b := makeIdentity(t, store, "bob")
	c := makeIdentity(t, store, "carol")

	convAB, err := store.ResolveConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)
	convAC, err := store.ResolveConversation(ctx, a.ID, c.ID)
	require.NoError(t, err)

	appendTestMessage(t, store, convAB, a.ID, b.ID, "hi bob")
	time.Sleep(5 * time.Millisecond)
	appendTestMessage(t, store, convAC, c.ID, a.ID, "hi ada, carol here")

	summaries, err := store.ListConversationSummaries(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	// Most recent activity first: carol's conversation on top
	assert.Equal(t, "carol", summaries[0].Partner.Handle)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "hi ada, carol here", summaries[0].LastMessage.Content)

	assert.Equal(t, "bob", summaries[1].Partner.Handle)
	require.NotNil(t, summaries[1].LastMessage)
	assert.Equal(t, "hi bob", summaries[1].LastMessage.Content)

	assert.True(t, summaries[0].UpdatedAt.After(summaries[1].UpdatedAt))
}

func TestStore_ListConversationSummaries_NoMessages(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	a := makeIdentity(t, store, "ada")
	b := makeIdentity(t, store, "bob")

	_, err := store.ResolveConversation(ctx, a.ID, b.ID)
	require.NoError(t, err)

	summaries, err := store.ListConversationSummaries(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "ada", summaries[0].Partner.Handle)
	assert.Nil(t, summaries[0].LastMessage)
}

// appendTestMessage appends a message with a fresh ID and current timestamp.
func appendTestMessage(t *testing.T, s *SQLiteStore, conv *Conversation, sender, recipient, content string) *Message {
	t.Helper()
	msg := &Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       sender,
		RecipientID:    recipient,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, s.AppendMessage(context.Background(), msg))
	return msg
}
