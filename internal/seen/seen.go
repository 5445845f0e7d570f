// Package seen implements the deduplication store for delivered frames.
//
// The reliability layer records every (sequence, sender) pair it has handed
// to the application. A redelivery of a recorded pair is re-ACKed — the
// previous ACK may itself have been lost — but never delivered twice.
//
// Sequence numbers alone are not unique across peers; both sides count from
// zero. The sender address is part of the key for exactly that reason.
package seen

import "sync"

// DefaultBound is the entry count at which the store resets.
const DefaultBound = 5000

// Key identifies one delivered frame.
type Key struct {
	Seq    uint16
	Sender string
}

// Store is a concurrent-safe bounded set of delivered-frame keys.
//
// Bounding policy: when an Add would push the store past its bound, the
// whole set is cleared. This is the documented, deliberately crude memory
// cap — after a clear, late redeliveries of old frames can reach the
// application once more. At the default bound that takes thousands of
// in-flight frames, far beyond a two-player session's traffic.
type Store struct {
	mu      sync.Mutex
	entries map[Key]struct{}
	bound   int
}

// New creates a Store. bound <= 0 selects DefaultBound.
func New(bound int) *Store {
	if bound <= 0 {
		bound = DefaultBound
	}
	return &Store{
		entries: make(map[Key]struct{}),
		bound:   bound,
	}
}

// Add records the key. Returns true if it was not already present — i.e.
// the frame is new and should be delivered.
func (s *Store) Add(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.entries[k]; dup {
		return false
	}
	if len(s.entries) >= s.bound {
		s.entries = make(map[Key]struct{})
	}
	s.entries[k] = struct{}{}
	return true
}

// Has reports whether the key was recorded.
func (s *Store) Has(k Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[k]
	return ok
}

// Len returns the current number of recorded keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
