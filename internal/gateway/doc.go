// Package gateway wires the realtime messaging server together.
//
// # Overview
//
// The Gateway owns the SQLite store, the in-process session registry,
// the dispatcher, and the messaging and notification services, and
// serves everything over one HTTP listener:
//
//   - JSON API under /api/ (Bearer JWT)
//   - service-to-service hooks under /api/hooks/ (shared secret,
//     duplicate deliveries suppressed by X-Delivery-ID)
//   - admin endpoints under /api/admin/ (admin handles from config)
//   - the WebSocket channel at /api/ws
//
// # Socket lifecycle
//
// A socket connect must present a verifiable token before any
// registration happens. Once accepted, the connection registers a
// session channel (last-writer-wins per identity) and splits into a
// writer draining pushed events and a reader relaying typing frames.
// Disconnect unregisters compare-and-delete style so a stale teardown
// cannot evict a newer login.
package gateway
