// ABOUTME: Central layer for direct messaging: persist first, then push
// ABOUTME: Composes conversation resolution, message append, read receipts, and the typing relay

package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/devmesh/realtime-gateway/internal/dispatch"
	"github.com/devmesh/realtime-gateway/internal/session"
	"github.com/devmesh/realtime-gateway/internal/store"
)

// MessageStore defines what the service needs from storage.
type MessageStore interface {
	GetIdentity(ctx context.Context, id string) (*store.Identity, error)
	ResolveConversation(ctx context.Context, identityA, identityB string) (*store.Conversation, error)
	ListConversationSummaries(ctx context.Context, identityID string) ([]*store.ConversationSummary, error)
	AppendMessage(ctx context.Context, msg *store.Message) error
	ListMessagesByPair(ctx context.Context, identityA, identityB, afterID string, limit int) ([]*store.Message, error)
	MarkMessagesRead(ctx context.Context, readerID, partnerID string) (int64, error)
}

// EventDispatcher defines what the service needs from the dispatch layer.
type EventDispatcher interface {
	Dispatch(targetID, kind string, payload any) dispatch.Result
}

// Service composes the messaging operations. Durable writes happen before
// any push is attempted; a failed push never fails the operation.
type Service struct {
	store      MessageStore
	dispatcher EventDispatcher
	logger     *slog.Logger
}

// New creates a messaging service.
func New(st MessageStore, d EventDispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:      st,
		dispatcher: d,
		logger:     logger.With("component", "messaging"),
	}
}

// SenderSummary is the slice of an identity that rides along with a
// pushed message, so the receiving client can render it without a lookup.
type SenderSummary struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// MessagePayload is the receive_message event body.
type MessagePayload struct {
	Message *store.Message `json:"message"`
	Sender  SenderSummary  `json:"sender"`
}

// TypingPayload identifies who is typing in typing/stop_typing events.
type TypingPayload struct {
	SenderID string `json:"sender_id"`
}

// ReadPayload is the messages_read event body.
type ReadPayload struct {
	ReaderID string `json:"reader_id"`
}

// SendMessage resolves the conversation, appends the message, and pushes
// receive_message to the recipient if connected.
//
// Record first, then act: the message is durable before any dispatch is
// attempted, so an offline recipient finds it in history later.
func (s *Service) SendMessage(ctx context.Context, senderID, recipientID, content string) (*store.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("content is required")
	}

	sender, err := s.store.GetIdentity(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("looking up sender: %w", err)
	}
	if _, err := s.store.GetIdentity(ctx, recipientID); err != nil {
		return nil, fmt.Errorf("looking up recipient: %w", err)
	}

	conv, err := s.store.ResolveConversation(ctx, senderID, recipientID)
	if err != nil {
		return nil, fmt.Errorf("resolving conversation: %w", err)
	}

	msg := &store.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       senderID,
		RecipientID:    recipientID,
		Content:        content,
		Read:           false,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.AppendMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("appending message: %w", err)
	}

	s.logger.Debug("message persisted",
		"message_id", msg.ID,
		"conversation_id", conv.ID,
		"sender_id", senderID,
	)

	result := s.dispatcher.Dispatch(recipientID, session.EventReceiveMessage, &MessagePayload{
		Message: msg,
		Sender: SenderSummary{
			ID:          sender.ID,
			Handle:      sender.Handle,
			DisplayName: sender.DisplayName,
			AvatarURL:   sender.AvatarURL,
		},
	})
	if result != dispatch.Delivered {
		s.logger.Debug("message push not delivered", "message_id", msg.ID, "result", result.String())
	}

	return msg, nil
}

// ListConversations returns the caller's conversation summaries, most
// recent activity first.
func (s *Service) ListConversations(ctx context.Context, identityID string) ([]*store.ConversationSummary, error) {
	summaries, err := s.store.ListConversationSummaries(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return summaries, nil
}

// ListMessages returns the message history with a partner, oldest first.
// afterID restarts a previously interrupted listing; empty means from the
// beginning.
func (s *Service) ListMessages(ctx context.Context, identityID, partnerID, afterID string, limit int) ([]*store.Message, error) {
	msgs, err := s.store.ListMessagesByPair(ctx, identityID, partnerID, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

// MarkRead flips every unread message from partner to reader in one
// update. When anything changed, the partner gets exactly one aggregated
// messages_read event regardless of how many rows flipped. Idempotent.
func (s *Service) MarkRead(ctx context.Context, readerID, partnerID string) error {
	changed, err := s.store.MarkMessagesRead(ctx, readerID, partnerID)
	if err != nil {
		return fmt.Errorf("marking messages read: %w", err)
	}
	if changed == 0 {
		return nil
	}

	s.logger.Debug("messages marked read",
		"reader_id", readerID,
		"partner_id", partnerID,
		"count", changed,
	)
	s.dispatcher.Dispatch(partnerID, session.EventMessagesRead, &ReadPayload{ReaderID: readerID})
	return nil
}

// Typing relays a typing indicator to the recipient. Nothing is stored;
// an offline recipient simply never sees it.
func (s *Service) Typing(senderID, recipientID string) {
	s.dispatcher.Dispatch(recipientID, session.EventTyping, &TypingPayload{SenderID: senderID})
}

// StopTyping relays the explicit stop signal to the recipient.
func (s *Service) StopTyping(senderID, recipientID string) {
	s.dispatcher.Dispatch(recipientID, session.EventStopTyping, &TypingPayload{SenderID: senderID})
}
