// ABOUTME: Tests for hook delivery duplicate suppression
// ABOUTME: Covers first-arrival-wins, window expiry, and empty IDs

package hookdedupe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSuppressor_FirstArrivalWins(t *testing.T) {
	s := New(time.Minute)
	defer s.Close()

	assert.False(t, s.Duplicate("delivery-1"))
	assert.True(t, s.Duplicate("delivery-1"))
	assert.False(t, s.Duplicate("delivery-2"))
}

func TestSuppressor_WindowExpiry(t *testing.T) {
	s := New(20 * time.Millisecond)
	defer s.Close()

	assert.False(t, s.Duplicate("delivery-1"))
	time.Sleep(30 * time.Millisecond)
	assert.False(t, s.Duplicate("delivery-1"), "expired ID is no longer a duplicate")
}

func TestSuppressor_Forget(t *testing.T) {
	s := New(time.Minute)
	defer s.Close()

	assert.False(t, s.Duplicate("delivery-1"))

	// A forgotten ID is processed again, as if the claim never happened
	s.Forget("delivery-1")
	assert.False(t, s.Duplicate("delivery-1"))
	assert.True(t, s.Duplicate("delivery-1"))

	// Forgetting unknown or empty IDs is harmless
	s.Forget("never-seen")
	s.Forget("")
}

func TestSuppressor_EmptyID(t *testing.T) {
	s := New(time.Minute)
	defer s.Close()

	assert.False(t, s.Duplicate(""))
	assert.False(t, s.Duplicate(""), "empty IDs are never correlated")
	assert.Equal(t, 0, s.Len())
}

func TestSuppressor_Sweep(t *testing.T) {
	s := New(10 * time.Millisecond)
	defer s.Close()

	s.Duplicate("a")
	s.Duplicate("b")
	time.Sleep(20 * time.Millisecond)
	s.sweep()
	assert.Equal(t, 0, s.Len())
}

func TestSuppressor_CloseIdempotent(t *testing.T) {
	s := New(time.Minute)
	s.Close()
	s.Close()
}
