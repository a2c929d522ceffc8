// Package records tracks the minimal medical-record directory this subsystem
// needs: which patient owns which record, plus the public lookup codes used
// by the record retrieval flow. Lookup codes share the date+hex identifier
// grammar with patient identifiers but carry the REC prefix, so the two
// namespaces can never collide.
package records

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medgate/pkg/identifier"
	"medgate/pkg/platform/sentinel"
)

// MedicalRecord is the directory entry for one record. Record content lives
// in a different system; this subsystem only resolves ownership.
type MedicalRecord struct {
	ID         string
	PatientID  string
	LookupCode string
	CreatedAt  time.Time
}

// Store resolves record ownership and lookup codes.
type Store interface {
	Insert(ctx context.Context, record MedicalRecord) error
	OwnerOfRecord(ctx context.Context, recordID string) (string, error)
	FindByLookupCode(ctx context.Context, code string) (MedicalRecord, error)
}

// NewRecordEntry builds a directory entry with a fresh REC lookup code.
func NewRecordEntry(patientID string, now time.Time) (MedicalRecord, error) {
	code, err := identifier.Record.Generate(now)
	if err != nil {
		return MedicalRecord{}, fmt.Errorf("generate record lookup code: %w", err)
	}
	return MedicalRecord{
		ID:         uuid.New().String(),
		PatientID:  patientID,
		LookupCode: code,
		CreatedAt:  now,
	}, nil
}

// InMemoryStore keeps the directory in process memory.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]MedicalRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]MedicalRecord)}
}

func (s *InMemoryStore) Insert(_ context.Context, record MedicalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[record.ID]; ok {
		return sentinel.ErrConflict
	}
	s.records[record.ID] = record
	return nil
}

func (s *InMemoryStore) OwnerOfRecord(_ context.Context, recordID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return r.PatientID, nil
}

func (s *InMemoryStore) FindByLookupCode(_ context.Context, code string) (MedicalRecord, error) {
	if !identifier.Record.Validate(code) {
		return MedicalRecord{}, sentinel.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.LookupCode == code {
			return r, nil
		}
	}
	return MedicalRecord{}, sentinel.ErrNotFound
}

// PostgresStore persists the directory in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, record MedicalRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO medical_records (id, patient_id, lookup_code, created_at)
		VALUES ($1, $2, $3, $4)`,
		record.ID, record.PatientID, record.LookupCode, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert medical record entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) OwnerOfRecord(ctx context.Context, recordID string) (string, error) {
	var patientID string
	err := s.pool.QueryRow(ctx,
		`SELECT patient_id FROM medical_records WHERE id = $1`, recordID).Scan(&patientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("resolve record owner: %w", err)
	}
	return patientID, nil
}

func (s *PostgresStore) FindByLookupCode(ctx context.Context, code string) (MedicalRecord, error) {
	if !identifier.Record.Validate(code) {
		return MedicalRecord{}, sentinel.ErrNotFound
	}
	var r MedicalRecord
	err := s.pool.QueryRow(ctx,
		`SELECT id, patient_id, lookup_code, created_at FROM medical_records WHERE lookup_code = $1`, code).
		Scan(&r.ID, &r.PatientID, &r.LookupCode, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MedicalRecord{}, sentinel.ErrNotFound
		}
		return MedicalRecord{}, fmt.Errorf("find record by lookup code: %w", err)
	}
	return r, nil
}
