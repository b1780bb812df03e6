// ABOUTME: Tests for notification persistence and unread counting
// ABOUTME: The unread count is always recomputed, never maintained as a counter

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeNotification(t *testing.T, s *SQLiteStore, recipient, sender, kind string) *Notification {
	t.Helper()
	n := &Notification{
		ID:          uuid.New().String(),
		RecipientID: recipient,
		SenderID:    sender,
		Type:        kind,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, s.CreateNotification(context.Background(), n))
	return n
}

func TestStore_CreateNotification_WithRefs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	postID := "post-42"
	commentID := "comment-7"
	n := &Notification{
		ID:          "notif-1",
		RecipientID: "bob",
		SenderID:    "ada",
		Type:        NotificationComment,
		PostID:      &postID,
		CommentID:   &commentID,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.CreateNotification(ctx, n))

	listed, err := store.ListNotifications(ctx, "bob", 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].PostID)
	assert.Equal(t, "post-42", *listed[0].PostID)
	require.NotNil(t, listed[0].CommentID)
	assert.Equal(t, "comment-7", *listed[0].CommentID)
	assert.False(t, listed[0].Read)
}

func TestStore_ListNotifications_NewestFirst(t *testing.T) {
	store := setupTestStore(t)

	makeNotification(t, store, "bob", "ada", NotificationLike)
	time.Sleep(5 * time.Millisecond)
	makeNotification(t, store, "bob", "carol", NotificationReply)
	// Someone else's notification must not leak in
	makeNotification(t, store, "ada", "bob", NotificationLike)

	listed, err := store.ListNotifications(context.Background(), "bob", 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, NotificationReply, listed[0].Type)
	assert.Equal(t, NotificationLike, listed[1].Type)
}

func TestStore_CountUnreadNotifications(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	count, err := store.CountUnreadNotifications(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	makeNotification(t, store, "bob", "ada", NotificationLike)
	makeNotification(t, store, "bob", "ada", NotificationMention)

	count, err = store.CountUnreadNotifications(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.MarkAllNotificationsRead(ctx, "bob"))

	count, err = store.CountUnreadNotifications(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// Marking again stays a no-op
	require.NoError(t, store.MarkAllNotificationsRead(ctx, "bob"))
}
