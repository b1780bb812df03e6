// Package dispatch routes events to connected identities.
//
// Dispatch is best-effort by contract: the caller persisted anything
// durable before calling, so an offline target or a full channel is a
// logged drop, never an error. The triggering action (sending a message,
// marking messages read) must succeed regardless of delivery outcome.
package dispatch
