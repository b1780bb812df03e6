// Package session tracks which identities currently hold a live push
// channel.
//
// # Registry
//
// The Registry interface is the only shared mutable structure in the hot
// path. The in-memory implementation assumes a single gateway instance;
// scaling out requires a shared implementation behind the same interface
// (pub/sub backed), which is a known gap, not something this package
// solves.
//
// # Binding lifecycle
//
//   - Register on authenticated connect. Last writer wins: a second
//     connect from the same identity overwrites the binding and orphans
//     the previous channel.
//   - Unregister on disconnect, compare-and-delete so a stale teardown
//     cannot remove a newer binding.
//
// # Channels
//
// A Channel accepts events without blocking. The Conn implementation is a
// buffered Go channel the transport writer drains; when the buffer is
// full the event is dropped, which is acceptable because every durable
// event was persisted before anyone tried to push it.
package session
