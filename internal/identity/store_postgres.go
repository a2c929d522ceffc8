package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"medgate/pkg/platform/sentinel"
)

// PostgresStore persists patient identities in PostgreSQL via pgx.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const patientColumns = `
	id, identifier, is_unclaimed, created_by_doctor_id,
	COALESCE(email, ''), COALESCE(credential_hash, ''),
	first_name, last_name, date_of_birth, gender, phone, national_id,
	created_at, claimed_at`

func (s *PostgresStore) FindByIdentifier(ctx context.Context, identifier string) (PatientIdentity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE identifier = $1`, identifier)
	return scanPatient(row)
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (PatientIdentity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	return scanPatient(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (PatientIdentity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE lower(email) = lower($1)`, email)
	return scanPatient(row)
}

func (s *PostgresStore) FindUnclaimedByIdentifier(ctx context.Context, identifier string) (PatientIdentity, error) {
	// One query covers both "no such identifier" and "already claimed" so
	// callers cannot tell them apart.
	row := s.pool.QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE identifier = $1 AND is_unclaimed`, identifier)
	return scanPatient(row)
}

func (s *PostgresStore) InsertUnclaimed(ctx context.Context, p PatientIdentity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO patients (
			id, identifier, is_unclaimed, created_by_doctor_id,
			first_name, last_name, date_of_birth, gender, phone, national_id,
			created_at
		) VALUES ($1, $2, true, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Identifier, p.CreatedByDoctorID,
		p.Demographics.FirstName, p.Demographics.LastName, p.Demographics.DateOfBirth,
		p.Demographics.Gender, p.Demographics.Phone, p.Demographics.NationalID,
		p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert unclaimed patient: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateClaim(ctx context.Context, id, email, credentialHash string, claimedAt time.Time) error {
	// The WHERE clause is the compare-and-swap: of two concurrent claims only
	// one sees is_unclaimed=true at commit time.
	tag, err := s.pool.Exec(ctx, `
		UPDATE patients
		SET is_unclaimed = false, email = $2, credential_hash = $3, claimed_at = $4
		WHERE id = $1 AND is_unclaimed`,
		id, email, credentialHash, claimedAt,
	)
	if err != nil {
		// The row passed the CAS but tripped the email uniqueness constraint:
		// another claim took the address between the check and the update.
		if isUniqueViolation(err) {
			return sentinel.ErrDuplicate
		}
		return fmt.Errorf("update patient claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) ListCreatedBy(ctx context.Context, doctorID string) ([]PatientIdentity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+patientColumns+` FROM patients WHERE created_by_doctor_id = $1`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list patients created by doctor: %w", err)
	}
	defer rows.Close()

	var out []PatientIdentity
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteUnclaimedOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	// Precondition and delete are a single statement, so a row claimed after
	// the job started is no longer unclaimed when the delete evaluates it.
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM patients WHERE is_unclaimed AND created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired unclaimed patients: %w", err)
	}
	return tag.RowsAffected(), nil
}

type pgxRow interface {
	Scan(dest ...any) error
}

func scanPatient(row pgxRow) (PatientIdentity, error) {
	var p PatientIdentity
	var doctorID *string
	err := row.Scan(
		&p.ID, &p.Identifier, &p.Unclaimed, &doctorID,
		&p.Email, &p.CredentialHash,
		&p.Demographics.FirstName, &p.Demographics.LastName, &p.Demographics.DateOfBirth,
		&p.Demographics.Gender, &p.Demographics.Phone, &p.Demographics.NationalID,
		&p.CreatedAt, &p.ClaimedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PatientIdentity{}, sentinel.ErrNotFound
		}
		return PatientIdentity{}, fmt.Errorf("scan patient: %w", err)
	}
	if doctorID != nil {
		p.CreatedByDoctorID = *doctorID
	}
	return p, nil
}

// isUniqueViolation reports a PostgreSQL 23505 unique constraint failure.
func isUniqueViolation(err error) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
