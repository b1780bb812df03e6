// ABOUTME: Append-only message log per conversation plus bulk read-receipt updates
// ABOUTME: Append also bumps the parent conversation's last-message reference

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// AppendMessage inserts a message and updates the parent conversation's
// last-message reference and activity timestamp in one transaction.
// Messages are never edited or deleted.
func (s *SQLiteStore) AppendMessage(ctx context.Context, msg *Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := msg.CreatedAt.UTC().Format(timeFormat)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, recipient_id, content, read, created_at)
		VALUES (?, ?, ?, ?, ?, 0, ?)
	`, msg.ID, msg.ConversationID, msg.SenderID, msg.RecipientID, msg.Content, createdAt)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE conversations
		SET last_message_id = ?, updated_at = ?
		WHERE id = ?
	`, msg.ID, createdAt, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing message: %w", err)
	}

	s.logger.Debug("appended message", "id", msg.ID, "conversation_id", msg.ConversationID)
	return nil
}

// GetMessage retrieves a message by ID.
// Returns ErrNotFound if the message doesn't exist.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, sender_id, recipient_id, content, read, created_at
		FROM messages
		WHERE id = ?
	`, id)

	var msg Message
	var createdAtStr string
	err := row.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.RecipientID, &msg.Content, &msg.Read, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	msg.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &msg, nil
}

// ListMessagesByPair returns the messages between two identities in
// chronological order (oldest first). If afterID names an existing message,
// only messages after it are returned, which makes paging restartable.
// Returns an empty slice if the pair has no conversation yet.
func (s *SQLiteStore) ListMessagesByPair(ctx context.Context, identityA, identityB, afterID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	conv, err := s.GetConversationByPair(ctx, identityA, identityB)
	if errors.Is(err, ErrNotFound) {
		return []*Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, conversation_id, sender_id, recipient_id, content, read, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, id ASC
		LIMIT ?
	`
	args := []any{conv.ID, limit}

	if afterID != "" {
		after, err := s.GetMessage(ctx, afterID)
		if err != nil {
			return nil, err
		}
		cursor := after.CreatedAt.UTC().Format(timeFormat)
		query = `
			SELECT id, conversation_id, sender_id, recipient_id, content, read, created_at
			FROM messages
			WHERE conversation_id = ?
			  AND (created_at > ? OR (created_at = ? AND id > ?))
			ORDER BY created_at ASC, id ASC
			LIMIT ?
		`
		args = []any{conv.ID, cursor, cursor, after.ID, limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []*Message{}
	for rows.Next() {
		var msg Message
		var createdAtStr string
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.RecipientID, &msg.Content, &msg.Read, &createdAtStr); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msg.CreatedAt, err = parseTime(createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing message created_at: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}
	return messages, nil
}

// MarkMessagesRead flips read=true on every unread message sent by partner
// to reader, in a single statement. Returns the number of rows changed so
// the caller can decide whether a receipt event is worth emitting.
// Calling again when everything is already read affects zero rows.
func (s *SQLiteStore) MarkMessagesRead(ctx context.Context, readerID, partnerID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE messages
		SET read = 1
		WHERE recipient_id = ? AND sender_id = ? AND read = 0
	`, readerID, partnerID)
	if err != nil {
		return 0, fmt.Errorf("marking messages read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected > 0 {
		s.logger.Debug("marked messages read", "reader", readerID, "partner", partnerID, "count", rowsAffected)
	}
	return rowsAffected, nil
}
