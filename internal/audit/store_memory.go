package audit

import (
	"context"
	"sync"

	id "datapass/pkg/domain"
)

// InMemoryStore keeps the trail in process memory. Used in tests and as the
// default backend when no database is configured.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.EnrollmentID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.EnrollmentID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.EnrollmentID] = append(s.events[event.EnrollmentID], event)
	return nil
}

func (s *InMemoryStore) ListByEnrollment(_ context.Context, enrollmentID id.EnrollmentID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[enrollmentID]...), nil
}
