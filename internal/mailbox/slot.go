// Package mailbox implements the single-slot exchange point between managed
// code and the macro engine, and the component that exposes it to macro text.
package mailbox

import "sync"

// Slot holds at most one in-flight value.
//
// Store overwrites unconditionally: the last write wins and nothing queues.
// Fetch does not clear the slot. Callers clear it before and after every round
// trip so a stale value never leaks into an unrelated call. The mutex only
// keeps reads and writes memory-safe; it does not serialize round trips.
type Slot struct {
	mu    sync.Mutex
	value any
	full  bool
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Store replaces the slot's value.
func (s *Slot) Store(v any) {
	s.mu.Lock()
	s.value = v
	s.full = true
	s.mu.Unlock()
}

// Fetch returns the current value, or nil when the slot is empty.
func (s *Slot) Fetch() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Clear empties the slot.
func (s *Slot) Clear() {
	s.mu.Lock()
	s.value = nil
	s.full = false
	s.mu.Unlock()
}

// Full reports whether a value has been stored since the last Clear.
func (s *Slot) Full() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.full
}
