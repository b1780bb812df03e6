// Package messaging is the central layer for direct messages.
//
// # Overview
//
// All durable writes flow through here before any real-time push is
// attempted: a message is appended (and its conversation resolved) before
// the recipient's channel sees it, and read receipts are persisted before
// the partner is notified. Push failures are logged and swallowed; the
// triggering operation succeeds as soon as its persistence step does.
//
// # Read receipts
//
// MarkRead covers every unread inbound message from a partner in a single
// update and emits at most one aggregated messages_read event, bounding
// event volume regardless of backlog size.
//
// # Typing relay
//
// The server holds no typing state. typing and stop_typing frames are
// forwarded to the recipient if connected and dropped otherwise; a new
// message from the sender clears the indicator client-side.
package messaging
