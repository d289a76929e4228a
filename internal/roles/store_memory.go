package roles

import (
	"context"
	"sort"
	"sync"

	id "datapass/pkg/domain"
)

// InMemoryStore keeps role grants in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	grants map[grantKey]map[id.UserID]struct{}
}

type grantKey struct {
	role   string
	object string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{grants: make(map[grantKey]map[id.UserID]struct{})}
}

func (s *InMemoryStore) Grant(_ context.Context, role string, subject id.UserID, object string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := grantKey{role: role, object: object}
	if s.grants[key] == nil {
		s.grants[key] = make(map[id.UserID]struct{})
	}
	s.grants[key][subject] = struct{}{}
	return nil
}

func (s *InMemoryStore) HasRole(_ context.Context, role string, subject id.UserID, object string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.grants[grantKey{role: role, object: object}][subject]
	return ok, nil
}

func (s *InMemoryStore) HoldersOf(_ context.Context, role string, object string) ([]id.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	holders := make([]id.UserID, 0, len(s.grants[grantKey{role: role, object: object}]))
	for subject := range s.grants[grantKey{role: role, object: object}] {
		holders = append(holders, subject)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].String() < holders[j].String() })
	return holders, nil
}
