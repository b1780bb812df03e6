// ABOUTME: Store interface and data types for realtime-gateway persistence
// ABOUTME: Defines Identity, Conversation, Message, Notification structs and the Store interface

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateIdentity is returned when an identity with the same handle already exists
var ErrDuplicateIdentity = errors.New("identity already exists")

// ErrSameParticipant is returned when a conversation is requested between an identity and itself
var ErrSameParticipant = errors.New("conversation requires two distinct identities")

// Identity mirrors the profile subsystem's user record. The gateway keeps
// only what it needs: credentials for connect-time auth and the fields that
// go into a sender summary.
type Identity struct {
	ID           string
	Handle       string
	DisplayName  string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
}

// Conversation is the durable unit pairing exactly two identities.
// PairKey is the canonical order-independent key; a UNIQUE index on it
// guarantees at most one conversation per pair.
type Conversation struct {
	ID            string
	PairKey       string
	ParticipantA  string
	ParticipantB  string
	LastMessageID *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Message is one direct message within a conversation. Append-only;
// only the read flag is ever mutated, and only from false to true.
type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	RecipientID    string
	Content        string
	Read           bool
	CreatedAt      time.Time
}

// NotificationType constants for notification records
const (
	NotificationLike    = "like"
	NotificationComment = "comment"
	NotificationReply   = "reply"
	NotificationMention = "mention"
)

// Notification records a domain action aimed at a recipient.
// Immutable except for the read flag.
type Notification struct {
	ID          string
	RecipientID string
	SenderID    string
	Type        string // "like", "comment", "reply", "mention"
	PostID      *string
	CommentID   *string
	Read        bool
	CreatedAt   time.Time
}

// Comment is one node of a post's comment tree, stored flat with an
// explicit parent pointer. Tree traversal happens in the comments package.
type Comment struct {
	ID        string
	PostID    string
	AuthorID  string
	ParentID  *string
	Content   string
	Deleted   bool
	CreatedAt time.Time
}

// ConversationSummary is one row of an identity's conversation list:
// the partner plus the most recent message.
type ConversationSummary struct {
	Partner     *Identity
	LastMessage *Message
	UpdatedAt   time.Time
}

// PairKey returns the canonical order-independent key for an identity pair.
// Uses | as delimiter since it's not valid in UUIDs.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// Store defines the interface for realtime-gateway persistence
type Store interface {
	// Identities
	CreateIdentity(ctx context.Context, ident *Identity) error
	GetIdentity(ctx context.Context, id string) (*Identity, error)
	GetIdentityByHandle(ctx context.Context, handle string) (*Identity, error)
	ListIdentities(ctx context.Context, limit int) ([]*Identity, error)

	// Conversations
	ResolveConversation(ctx context.Context, identityA, identityB string) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	GetConversationByPair(ctx context.Context, identityA, identityB string) (*Conversation, error)
	ListConversationSummaries(ctx context.Context, identityID string) ([]*ConversationSummary, error)

	// Messages
	AppendMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, id string) (*Message, error)
	ListMessagesByPair(ctx context.Context, identityA, identityB, afterID string, limit int) ([]*Message, error)
	MarkMessagesRead(ctx context.Context, readerID, partnerID string) (int64, error)

	// Notifications
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]*Notification, error)
	CountUnreadNotifications(ctx context.Context, recipientID string) (int64, error)
	MarkAllNotificationsRead(ctx context.Context, recipientID string) error

	// Comments
	CreateComment(ctx context.Context, c *Comment) error
	GetComment(ctx context.Context, id string) (*Comment, error)
	ListCommentsByPost(ctx context.Context, postID string) ([]*Comment, error)
	MarkCommentsDeleted(ctx context.Context, ids []string) error

	// Close releases any resources held by the store
	Close() error
}
