package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medgate/pkg/platform/sentinel"
)

// PostgresGrantStore persists access grants in PostgreSQL via pgx.
type PostgresGrantStore struct {
	pool *pgxpool.Pool
}

func NewPostgresGrantStore(pool *pgxpool.Pool) *PostgresGrantStore {
	return &PostgresGrantStore{pool: pool}
}

const grantColumns = `id, patient_id, requester_id, status, expires_at, COALESCE(reviewed_by, ''), created_at`

func (s *PostgresGrantStore) Insert(ctx context.Context, grant Grant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO access_grants (id, patient_id, requester_id, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		grant.ID, grant.PatientID, grant.RequesterID, string(grant.Status), grant.ExpiresAt, grant.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert access grant: %w", err)
	}
	return nil
}

func (s *PostgresGrantStore) Get(ctx context.Context, id string) (Grant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+grantColumns+` FROM access_grants WHERE id = $1`, id)
	return scanGrant(row)
}

func (s *PostgresGrantStore) UpdateStatus(ctx context.Context, id string, status GrantStatus, reviewedBy string, expiresAt *time.Time) error {
	// Decided rows are immutable; the status precondition enforces that at
	// the row level, same shape as the claim compare-and-swap.
	tag, err := s.pool.Exec(ctx, `
		UPDATE access_grants
		SET status = $2, reviewed_by = $3, expires_at = $4
		WHERE id = $1 AND status = 'pending'`,
		id, string(status), reviewedBy, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("update grant status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.Get(ctx, id); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresGrantStore) ListApprovedForDoctor(ctx context.Context, doctorID string) ([]Grant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+grantColumns+` FROM access_grants WHERE requester_id = $1 AND status = 'approved'`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list approved grants: %w", err)
	}
	defer rows.Close()
	return collectGrants(rows)
}

func (s *PostgresGrantStore) ListForPatient(ctx context.Context, patientID string) ([]Grant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+grantColumns+` FROM access_grants WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list grants for patient: %w", err)
	}
	defer rows.Close()
	return collectGrants(rows)
}

func collectGrants(rows pgx.Rows) ([]Grant, error) {
	var out []Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

type pgxRow interface {
	Scan(dest ...any) error
}

func scanGrant(row pgxRow) (Grant, error) {
	var g Grant
	var status string
	err := row.Scan(&g.ID, &g.PatientID, &g.RequesterID, &status, &g.ExpiresAt, &g.ReviewedBy, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Grant{}, sentinel.ErrNotFound
		}
		return Grant{}, fmt.Errorf("scan access grant: %w", err)
	}
	g.Status = GrantStatus(status)
	return g, nil
}
