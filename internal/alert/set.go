package alert

import (
	"sort"
	"sync"
)

// TriggerSet tracks the identifiers of triggers that have been sent and not cancelled.
//
// Callers reserve an identifier before talking to the sink and then either commit or
// release the reservation. A reserved identifier cannot be reserved again, so two
// concurrent callers never both send the same trigger or cancellation.
type TriggerSet struct {
	mu      sync.Mutex
	active  map[string]struct{}
	pending map[string]struct{}
}

// NewTriggerSet creates an empty trigger set.
func NewTriggerSet() *TriggerSet {
	return &TriggerSet{
		active:  make(map[string]struct{}),
		pending: make(map[string]struct{}),
	}
}

// Contains reports whether the trigger is active.
func (s *TriggerSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[id]
	return ok
}

// ReserveAdd claims an inactive identifier for sending.
// It returns false when the trigger is already active or another send is in flight.
func (s *TriggerSet) ReserveAdd(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[id]; ok {
		return false
	}
	if _, ok := s.pending[id]; ok {
		return false
	}
	s.pending[id] = struct{}{}
	return true
}

// CommitAdd marks a reserved identifier as active.
func (s *TriggerSet) CommitAdd(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	s.active[id] = struct{}{}
}

// ReserveRemove claims an active identifier for cancellation.
// It returns false when the trigger is not active or another send is in flight.
func (s *TriggerSet) ReserveRemove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.active[id]; !ok {
		return false
	}
	if _, ok := s.pending[id]; ok {
		return false
	}
	s.pending[id] = struct{}{}
	return true
}

// CommitRemove drops a reserved identifier from the active set.
func (s *TriggerSet) CommitRemove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
	delete(s.active, id)
}

// Release abandons a reservation and leaves the active state untouched.
func (s *TriggerSet) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, id)
}

// Clear forgets every active trigger. In-flight reservations are kept.
func (s *TriggerSet) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = make(map[string]struct{})
}

// Len returns the number of active triggers.
func (s *TriggerSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Snapshot returns the active identifiers in sorted order.
func (s *TriggerSet) Snapshot() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	sort.Strings(ids)
	return ids
}
