package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"medgate/pkg/platform/sentinel"
)

// InMemoryStore keeps patient identities in process memory. It mirrors the
// conditional-update semantics of the PostgreSQL store so claim races behave
// identically in tests and production.
type InMemoryStore struct {
	mu       sync.RWMutex
	patients map[string]PatientIdentity // keyed by ID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{patients: make(map[string]PatientIdentity)}
}

func (s *InMemoryStore) FindByIdentifier(_ context.Context, identifier string) (PatientIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.Identifier == identifier {
			return p, nil
		}
	}
	return PatientIdentity{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (PatientIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return PatientIdentity{}, sentinel.ErrNotFound
	}
	return p, nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (PatientIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.Email != "" && strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return PatientIdentity{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindUnclaimedByIdentifier(_ context.Context, identifier string) (PatientIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.patients {
		if p.Identifier == identifier && p.Unclaimed {
			return p, nil
		}
	}
	// Existing-but-claimed and nonexistent are indistinguishable here on
	// purpose; see Store contract.
	return PatientIdentity{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) InsertUnclaimed(_ context.Context, p PatientIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.patients {
		if existing.Identifier == p.Identifier {
			return sentinel.ErrConflict
		}
	}
	s.patients[p.ID] = p
	return nil
}

func (s *InMemoryStore) UpdateClaim(_ context.Context, id, email, credentialHash string, claimedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !p.Unclaimed {
		// Compare-and-swap precondition failed: a concurrent claim won.
		return sentinel.ErrConflict
	}
	for otherID, other := range s.patients {
		if otherID != id && other.Email != "" && strings.EqualFold(other.Email, email) {
			return sentinel.ErrDuplicate
		}
	}
	p.Unclaimed = false
	p.Email = email
	p.CredentialHash = credentialHash
	p.ClaimedAt = &claimedAt
	s.patients[id] = p
	return nil
}

func (s *InMemoryStore) ListCreatedBy(_ context.Context, doctorID string) ([]PatientIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []PatientIdentity
	for _, p := range s.patients {
		if p.CreatedBy(doctorID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *InMemoryStore) DeleteUnclaimedOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for id, p := range s.patients {
		if p.Unclaimed && p.CreatedAt.Before(cutoff) {
			delete(s.patients, id)
			deleted++
		}
	}
	return deleted, nil
}
