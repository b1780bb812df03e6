// ABOUTME: Notification persistence for domain-action fanout
// ABOUTME: Unread counts are recomputed per query, never cached server-side

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateNotification inserts a notification record.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *Notification) error {
	var postID, commentID any
	if n.PostID != nil {
		postID = *n.PostID
	}
	if n.CommentID != nil {
		commentID = *n.CommentID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, recipient_id, sender_id, type, post_id, comment_id, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
	`, n.ID, n.RecipientID, n.SenderID, n.Type, postID, commentID, n.CreatedAt.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}

	s.logger.Debug("created notification", "id", n.ID, "type", n.Type, "recipient", n.RecipientID)
	return nil
}

// ListNotifications returns a recipient's notifications, newest first.
// If limit is 0 or negative, a default limit of 100 is used.
func (s *SQLiteStore) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, recipient_id, sender_id, type, post_id, comment_id, read, created_at
		FROM notifications
		WHERE recipient_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	notifications := []*Notification{}
	for rows.Next() {
		var n Notification
		var postID, commentID sql.NullString
		var createdAtStr string

		if err := rows.Scan(&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &postID, &commentID, &n.Read, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning notification row: %w", err)
		}
		if postID.Valid {
			n.PostID = &postID.String
		}
		if commentID.Valid {
			n.CommentID = &commentID.String
		}
		n.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notification rows: %w", err)
	}
	return notifications, nil
}

// CountUnreadNotifications recomputes the unread count at query time.
// There is deliberately no running counter to drift out of sync.
func (s *SQLiteStore) CountUnreadNotifications(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE recipient_id = ? AND read = 0
	`, recipientID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// MarkAllNotificationsRead flips read=true on every unread notification
// for the recipient. Idempotent.
func (s *SQLiteStore) MarkAllNotificationsRead(ctx context.Context, recipientID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET read = 1 WHERE recipient_id = ? AND read = 0
	`, recipientID)
	if err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}
