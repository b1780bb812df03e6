// ABOUTME: Notification fanout: persist the notification, then best-effort push
// ABOUTME: Dispatch failures are logged and swallowed, never surfaced to the trigger

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/devmesh/realtime-gateway/internal/dispatch"
	"github.com/devmesh/realtime-gateway/internal/session"
	"github.com/devmesh/realtime-gateway/internal/store"
)

// NotificationStore defines what the service needs from storage.
type NotificationStore interface {
	GetIdentity(ctx context.Context, id string) (*store.Identity, error)
	GetIdentityByHandle(ctx context.Context, handle string) (*store.Identity, error)
	CreateNotification(ctx context.Context, n *store.Notification) error
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]*store.Notification, error)
	CountUnreadNotifications(ctx context.Context, recipientID string) (int64, error)
	MarkAllNotificationsRead(ctx context.Context, recipientID string) error
}

// EventDispatcher defines what the service needs from the dispatch layer.
type EventDispatcher interface {
	Dispatch(targetID, kind string, payload any) dispatch.Result
}

// Service persists notifications and pushes them to connected recipients.
type Service struct {
	store      NotificationStore
	dispatcher EventDispatcher
	logger     *slog.Logger
}

// New creates a notification service.
func New(st NotificationStore, d EventDispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      st,
		dispatcher: d,
		logger:     logger.With("component", "notify"),
	}
}

// NotificationPayload is the new_notification event body.
type NotificationPayload struct {
	Notification *store.Notification `json:"notification"`
	Type         string              `json:"type"`
	Message      string              `json:"message"`
}

// Notify persists a notification and pushes new_notification to the
// recipient if connected. Called after the triggering domain write has
// already succeeded; a dispatch failure never propagates back.
//
// Self-notification (recipient == sender) is skipped entirely: nobody
// wants to hear about their own like.
func (s *Service) Notify(ctx context.Context, recipientID, senderID, notifType string, postID, commentID *string) (*store.Notification, error) {
	if recipientID == senderID {
		return nil, nil
	}

	sender, err := s.store.GetIdentity(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("looking up sender: %w", err)
	}

	n := &store.Notification{
		ID:          uuid.New().String(),
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        notifType,
		PostID:      postID,
		CommentID:   commentID,
		Read:        false,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("creating notification: %w", err)
	}

	result := s.dispatcher.Dispatch(recipientID, session.EventNewNotification, &NotificationPayload{
		Notification: n,
		Type:         notifType,
		Message:      describe(sender, notifType),
	})
	if result != dispatch.Delivered {
		s.logger.Debug("notification push not delivered",
			"notification_id", n.ID,
			"recipient_id", recipientID,
			"result", result.String(),
		)
	}

	return n, nil
}

// describe builds the human-readable line shown in the client's
// notification tray.
func describe(sender *store.Identity, notifType string) string {
	name := sender.DisplayName
	if name == "" {
		name = sender.Handle
	}
	switch notifType {
	case store.NotificationLike:
		return name + " liked your post"
	case store.NotificationComment:
		return name + " commented on your post"
	case store.NotificationReply:
		return name + " replied to your comment"
	case store.NotificationMention:
		return name + " mentioned you"
	default:
		return name + " sent you a notification"
	}
}

// List returns the recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, recipientID string, limit int) ([]*store.Notification, error) {
	out, err := s.store.ListNotifications(ctx, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	return out, nil
}

// UnreadCount recomputes the unread count at query time. There is no
// cached counter to drift out of sync with the rows.
func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	count, err := s.store.CountUnreadNotifications(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkAllRead marks every notification for the recipient as read.
func (s *Service) MarkAllRead(ctx context.Context, recipientID string) error {
	if err := s.store.MarkAllNotificationsRead(ctx, recipientID); err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}
