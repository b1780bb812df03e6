// ABOUTME: Fire-and-forget routing of events to a target identity's live channel
// ABOUTME: Absent targets and full buffers are logged and dropped, never surfaced

package dispatch

import (
	"log/slog"

	"github.com/devmesh/realtime-gateway/internal/session"
)

// Result describes the best-effort outcome of a dispatch attempt.
// Callers may log it; they must never fail the triggering action on it.
type Result int

const (
	// Delivered means the event was handed to the target's channel buffer.
	// It says nothing about the client actually reading it.
	Delivered Result = iota
	// TargetOffline means the identity has no registered channel.
	TargetOffline
	// ChannelFull means the target's channel refused the event.
	ChannelFull
)

// String returns a log-friendly name for the result.
func (r Result) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case TargetOffline:
		return "target_offline"
	case ChannelFull:
		return "channel_full"
	default:
		return "unknown"
	}
}

// Dispatcher routes events to identities via the session registry.
// There is no offline queue: durable events were persisted before
// dispatch was attempted, ephemeral ones are meaningless to a target
// that is not watching.
type Dispatcher struct {
	registry session.Registry
	logger   *slog.Logger
}

// New creates a dispatcher. Pass nil logger for default.
func New(registry session.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger.With("component", "dispatch"),
	}
}

// Dispatch pushes an event to the target's channel if one is registered.
// Never blocks on the recipient.
func (d *Dispatcher) Dispatch(targetID, kind string, payload any) Result {
	ch, ok := d.registry.Lookup(targetID)
	if !ok {
		d.logger.Debug("dispatch target offline", "target", targetID, "kind", kind)
		return TargetOffline
	}

	if !ch.TrySend(&session.Event{Kind: kind, Payload: payload}) {
		d.logger.Warn("dispatch channel full, dropping event", "target", targetID, "kind", kind)
		return ChannelFull
	}

	d.logger.Debug("dispatched event", "target", targetID, "kind", kind)
	return Delivered
}

// Broadcast pushes an event to every connected identity.
func (d *Dispatcher) Broadcast(kind string, payload any) {
	d.registry.Broadcast(&session.Event{Kind: kind, Payload: payload})
}
