// ABOUTME: Conversation persistence with atomic find-or-create by canonical pair key
// ABOUTME: Guarantees at most one conversation per unordered identity pair

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ResolveConversation finds or creates the conversation for an unordered
// identity pair. The insert is a single statement keyed on the canonical
// pair key, so concurrent first-contact messages from both sides converge
// on one row instead of racing a lookup against an insert.
func (s *SQLiteStore) ResolveConversation(ctx context.Context, identityA, identityB string) (*Conversation, error) {
	if identityA == identityB {
		return nil, ErrSameParticipant
	}

	pa, pb := identityA, identityB
	if pb < pa {
		pa, pb = pb, pa
	}
	key := PairKey(identityA, identityB)
	now := time.Now().UTC().Format(timeFormat)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, pair_key, participant_a, participant_b, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pair_key) DO NOTHING
	`, uuid.New().String(), key, pa, pb, now, now)
	if err != nil {
		return nil, fmt.Errorf("upserting conversation: %w", err)
	}

	conv, err := s.getConversationByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("resolved conversation", "id", conv.ID, "pair_key", key)
	return conv, nil
}

// GetConversation retrieves a conversation by ID.
// Returns ErrNotFound if the conversation doesn't exist.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pair_key, participant_a, participant_b, last_message_id, created_at, updated_at
		FROM conversations
		WHERE id = ?
	`, id)
	return s.scanConversation(row)
}

// GetConversationByPair retrieves the conversation for an identity pair
// without creating one. Returns ErrNotFound if the pair has never talked.
func (s *SQLiteStore) GetConversationByPair(ctx context.Context, identityA, identityB string) (*Conversation, error) {
	return s.getConversationByKey(ctx, PairKey(identityA, identityB))
}

func (s *SQLiteStore) getConversationByKey(ctx context.Context, key string) (*Conversation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, pair_key, participant_a, participant_b, last_message_id, created_at, updated_at
		FROM conversations
		WHERE pair_key = ?
	`, key)
	return s.scanConversation(row)
}

func (s *SQLiteStore) scanConversation(row *sql.Row) (*Conversation, error) {
	var conv Conversation
	var lastMessageID sql.NullString
	var createdAtStr, updatedAtStr string

	err := row.Scan(&conv.ID, &conv.PairKey, &conv.ParticipantA, &conv.ParticipantB, &lastMessageID, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	if lastMessageID.Valid {
		conv.LastMessageID = &lastMessageID.String
	}

	conv.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	conv.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &conv, nil
}

// ListConversationSummaries returns the conversation list for an identity,
// most recent activity first. Each row carries the partner identity and the
// last message so the client can render the inbox in one round trip.
func (s *SQLiteStore) ListConversationSummaries(ctx context.Context, identityID string) ([]*ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			c.updated_at,
			i.id, i.handle, i.display_name, i.avatar_url, i.created_at,
			m.id, m.conversation_id, m.sender_id, m.recipient_id, m.content, m.read, m.created_at
		FROM conversations c
		JOIN identities i
			ON i.id = CASE WHEN c.participant_a = ? THEN c.participant_b ELSE c.participant_a END
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE c.participant_a = ? OR c.participant_b = ?
		ORDER BY c.updated_at DESC
	`, identityID, identityID, identityID)
	if err != nil {
		return nil, fmt.Errorf("querying conversation summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*ConversationSummary
	for rows.Next() {
		var sum ConversationSummary
		var updatedAtStr string
		var partner Identity
		var partnerAvatar sql.NullString
		var partnerCreatedStr string
		var msgID, msgConv, msgSender, msgRecipient, msgContent sql.NullString
		var msgRead sql.NullBool
		var msgCreatedStr sql.NullString

		if err := rows.Scan(
			&updatedAtStr,
			&partner.ID, &partner.Handle, &partner.DisplayName, &partnerAvatar, &partnerCreatedStr,
			&msgID, &msgConv, &msgSender, &msgRecipient, &msgContent, &msgRead, &msgCreatedStr,
		); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}

		if partnerAvatar.Valid {
			partner.AvatarURL = partnerAvatar.String
		}
		partner.CreatedAt, err = parseTime(partnerCreatedStr)
		if err != nil {
			return nil, fmt.Errorf("parsing partner created_at: %w", err)
		}
		sum.Partner = &partner

		sum.UpdatedAt, err = parseTime(updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing updated_at: %w", err)
		}

		if msgID.Valid {
			msg := Message{
				ID:             msgID.String,
				ConversationID: msgConv.String,
				SenderID:       msgSender.String,
				RecipientID:    msgRecipient.String,
				Content:        msgContent.String,
				Read:           msgRead.Bool,
			}
			msg.CreatedAt, err = parseTime(msgCreatedStr.String)
			if err != nil {
				return nil, fmt.Errorf("parsing message created_at: %w", err)
			}
			sum.LastMessage = &msg
		}

		summaries = append(summaries, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating summary rows: %w", err)
	}
	return summaries, nil
}
