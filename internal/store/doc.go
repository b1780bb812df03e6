// Package store provides persistence for the realtime gateway.
//
// # Overview
//
// The store is the durable half of the messaging subsystem: identities,
// conversations, messages, notifications, and comments all live here.
// Everything ephemeral (session bindings, typing state) deliberately does
// not.
//
// # Data model
//
//   - Identity: mirror of a profile-subsystem user (handle, display name,
//     avatar, password hash). Needed for connect auth and sender summaries.
//   - Conversation: exactly two participants, keyed by a canonical
//     order-independent pair key. At most one row per unordered pair.
//   - Message: append-only, belongs to one conversation. The read flag is
//     monotonic (false to true) and flipped only by MarkMessagesRead.
//   - Notification: one row per domain action (like, comment, reply,
//     mention). Mutable only through mark-read.
//   - Comment: flat rows with parent pointers; the comments package builds
//     the tree.
//
// # Find-or-create
//
// ResolveConversation is a single-statement upsert on the pair key, not a
// lookup followed by an insert. Two identities sending their first message
// to each other at the same instant land on the same row.
//
// # Implementation
//
// SQLiteStore implements Store using modernc.org/sqlite with WAL mode and
// automatic schema creation. Timestamps are stored as RFC 3339 strings with
// nanosecond precision so chronological ordering survives round-trips.
package store
