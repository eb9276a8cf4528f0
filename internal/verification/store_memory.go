package verification

import (
	"context"
	"sort"
	"sync"

	id "trustbadge/pkg/domain"
	"trustbadge/pkg/platform/sentinel"
)

// InMemoryStore backs tests and single-node development runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.VerificationID]*Request
	current map[id.UserID]id.VerificationID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.VerificationID]*Request),
		current: make(map[id.UserID]id.VerificationID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[req.ID] = req.Clone()
	s.current[req.UserID] = req.ID
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[req.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[req.ID] = req.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, verificationID id.VerificationID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.byID[verificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return req.Clone(), nil
}

func (s *InMemoryStore) FindCurrentByUser(_ context.Context, userID id.UserID) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	verificationID, ok := s.current[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	req, ok := s.byID[verificationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return req.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Request, 0, len(s.byID))
	for _, req := range s.byID {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}
