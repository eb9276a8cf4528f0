package profile

import (
	"context"
	"sync"
	"time"

	id "trustbadge/pkg/domain"
	"trustbadge/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.UserID]*Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.UserID]*Profile)}
}

func (s *InMemoryStore) Upsert(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *p
	s.profiles[p.UserID] = &clone
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, userID id.UserID) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (s *InMemoryStore) SetVerified(_ context.Context, userID id.UserID, verified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = &Profile{UserID: userID}
		s.profiles[userID] = p
	}
	p.IsVerified = verified
	p.UpdatedAt = time.Now()
	return nil
}
