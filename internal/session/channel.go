// ABOUTME: Buffered push channel bound to one connected identity
// ABOUTME: Sends are non-blocking; a full buffer drops the event

package session

import "sync"

// channelBufferSize is the event buffer for each connected identity.
// Matches the subscriber buffer used elsewhere (64 events).
const channelBufferSize = 64

// Channel is the write side of one identity's live connection. Pushes must
// never block on the recipient: TrySend reports false instead of waiting.
type Channel interface {
	TrySend(event *Event) bool
}

// Conn is the in-process Channel implementation backing a single
// connection. The transport layer drains Events and writes them to the
// wire; Close is idempotent and safe against concurrent TrySend.
type Conn struct {
	mu     sync.Mutex
	events chan *Event
	closed bool
}

// NewConn creates a connection channel with the standard buffer.
func NewConn() *Conn {
	return &Conn{
		events: make(chan *Event, channelBufferSize),
	}
}

// TrySend enqueues an event without blocking.
// Returns false if the connection is closed or its buffer is full.
func (c *Conn) TrySend(event *Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.events <- event:
		return true
	default:
		return false
	}
}

// Events returns the receive side for the transport writer.
// The channel is closed by Close.
func (c *Conn) Events() <-chan *Event {
	return c.events
}

// Close shuts the channel down. Events already buffered are still
// readable; further TrySend calls report false.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.events)
}
