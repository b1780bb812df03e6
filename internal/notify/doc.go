// Package notify handles notification fanout for domain actions.
//
// # Overview
//
// A notification is persisted first, then pushed to the recipient's
// channel if one is registered. The push is best-effort: failure is
// logged and swallowed, because the triggering action (the like, the
// comment) already succeeded and must stay that way.
//
// Unread counts are recomputed from the rows on every query. A connected
// client's cached badge can lag server truth until its next fetch; that
// window is accepted and documented, not papered over with a counter.
//
// # Comment fanout
//
// HandleComment notifies the post author, the distinct authors up the
// reply chain, and any @mentioned identities, each at most once per
// comment. The reply chain is walked over the comments arena, never
// recursively.
package notify
