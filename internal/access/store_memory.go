package access

import (
	"context"
	"sort"
	"sync"
	"time"

	"medgate/pkg/platform/sentinel"
)

// InMemoryGrantStore keeps grants in process memory for tests and local runs.
type InMemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[string]Grant
}

func NewInMemoryGrantStore() *InMemoryGrantStore {
	return &InMemoryGrantStore{grants: make(map[string]Grant)}
}

func (s *InMemoryGrantStore) Insert(_ context.Context, grant Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grants[grant.ID]; ok {
		return sentinel.ErrConflict
	}
	s.grants[grant.ID] = grant
	return nil
}

func (s *InMemoryGrantStore) Get(_ context.Context, id string) (Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grants[id]
	if !ok {
		return Grant{}, sentinel.ErrNotFound
	}
	return g, nil
}

func (s *InMemoryGrantStore) UpdateStatus(_ context.Context, id string, status GrantStatus, reviewedBy string, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if g.Status != StatusPending {
		return sentinel.ErrInvalidState
	}
	g.Status = status
	g.ReviewedBy = reviewedBy
	g.ExpiresAt = expiresAt
	s.grants[id] = g
	return nil
}

func (s *InMemoryGrantStore) ListApprovedForDoctor(_ context.Context, doctorID string) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Grant
	for _, g := range s.grants {
		if g.RequesterID == doctorID && g.Status == StatusApproved {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *InMemoryGrantStore) ListForPatient(_ context.Context, patientID string) ([]Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Grant
	for _, g := range s.grants {
		if g.PatientID == patientID {
			out = append(out, g)
		}
	}
	// Newest first, matching the postgres store's ordering.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
