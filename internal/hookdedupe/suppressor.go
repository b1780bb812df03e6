// ABOUTME: Remembers recently seen hook delivery IDs to suppress duplicates
// ABOUTME: Upstream services retry deliveries; a replayed ID must be a no-op

package hookdedupe

import (
	"sync"
	"time"
)

// Suppressor tracks delivery IDs seen within a sliding window. Upstream
// services retry hook deliveries on timeout, so the same delivery ID can
// arrive more than once; the first arrival wins and later ones are
// suppressed.
type Suppressor struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	stop   chan struct{}
	once   sync.Once
}

// New creates a suppressor remembering IDs for the given window.
// A background goroutine sweeps expired entries.
func New(window time.Duration) *Suppressor {
	s := &Suppressor{
		seen:   make(map[string]time.Time),
		window: window,
		stop:   make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

// Duplicate atomically reports whether the delivery ID was already seen
// within the window, marking it as seen if it was not. An empty ID is
// never a duplicate: deliveries without an ID cannot be correlated.
func (s *Suppressor) Duplicate(deliveryID string) bool {
	if deliveryID == "" {
		return false
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if at, ok := s.seen[deliveryID]; ok && now.Sub(at) < s.window {
		return true
	}
	s.seen[deliveryID] = now
	return false
}

// Forget drops a delivery ID so a retry of it is processed again. Callers
// use this when the delivery was claimed by Duplicate but its work failed;
// leaving the ID marked would make the upstream retry a silent no-op.
func (s *Suppressor) Forget(deliveryID string) {
	if deliveryID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, deliveryID)
}

// Len reports how many IDs are currently remembered, expired or not.
func (s *Suppressor) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *Suppressor) sweepLoop() {
	interval := s.window / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *Suppressor) sweep() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, at := range s.seen {
		if now.Sub(at) >= s.window {
			delete(s.seen, id)
		}
	}
}

// Close stops the background sweeper. Safe to call multiple times.
func (s *Suppressor) Close() {
	s.once.Do(func() { close(s.stop) })
}
