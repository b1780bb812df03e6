// ABOUTME: Maps authenticated identities to their currently active push channel
// ABOUTME: In-process implementation; the interface exists so a shared one can replace it

package session

import (
	"log/slog"
	"sync"
)

// Registry maps an identity to its active push channel. At most one
// binding exists per identity: a second connect overwrites the first
// (last-writer-wins), silently orphaning the prior channel.
//
// This implementation is a single-instance map. For a multi-instance
// deployment the interface must be backed by a shared capability
// (pub/sub); the dispatcher does not care which.
type Registry interface {
	Register(identityID string, ch Channel)
	Unregister(identityID string, ch Channel)
	Lookup(identityID string) (Channel, bool)
	Broadcast(event *Event)
}

// InMemoryRegistry implements Registry with a mutex-guarded map.
type InMemoryRegistry struct {
	mu       sync.RWMutex
	channels map[string]Channel
	logger   *slog.Logger
}

// NewInMemoryRegistry creates a registry. Pass nil logger for default.
func NewInMemoryRegistry(logger *slog.Logger) *InMemoryRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryRegistry{
		channels: make(map[string]Channel),
		logger:   logger.With("component", "session"),
	}
}

// Register binds an identity to a channel. An existing binding for the
// same identity is overwritten; the old channel is not closed here, its
// own connection teardown takes care of that.
func (r *InMemoryRegistry) Register(identityID string, ch Channel) {
	r.mu.Lock()
	_, replaced := r.channels[identityID]
	r.channels[identityID] = ch
	total := len(r.channels)
	r.mu.Unlock()

	r.logger.Info("identity connected",
		"identity_id", identityID,
		"replaced", replaced,
		"total_online", total,
	)
}

// Unregister removes the binding for an identity, but only if it still
// points at the given channel. A disconnect of an orphaned connection
// must not evict the identity's newer binding.
func (r *InMemoryRegistry) Unregister(identityID string, ch Channel) {
	r.mu.Lock()
	current, ok := r.channels[identityID]
	if ok && current == ch {
		delete(r.channels, identityID)
	}
	total := len(r.channels)
	removed := ok && current == ch
	r.mu.Unlock()

	if removed {
		r.logger.Info("identity disconnected",
			"identity_id", identityID,
			"total_online", total,
		)
	}
}

// Lookup returns the identity's active channel, if any.
func (r *InMemoryRegistry) Lookup(identityID string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, ok := r.channels[identityID]
	return ch, ok
}

// Broadcast pushes an event to every connected identity. Best effort:
// full or closed channels are skipped.
func (r *InMemoryRegistry) Broadcast(event *Event) {
	// Copy channels under read lock to avoid holding it during sends
	r.mu.RLock()
	targets := make([]Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		targets = append(targets, ch)
	}
	r.mu.RUnlock()

	for _, ch := range targets {
		if !ch.TrySend(event) {
			r.logger.Debug("dropped broadcast for slow connection", "kind", event.Kind)
		}
	}
}

// Online reports how many identities currently hold a binding.
func (r *InMemoryRegistry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.channels)
}

// Ensure InMemoryRegistry implements Registry
var _ Registry = (*InMemoryRegistry)(nil)
