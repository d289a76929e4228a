package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"datapass/internal/enrollment/models"
	id "datapass/pkg/domain"
	"datapass/pkg/platform/sentinel"
	txcontext "datapass/pkg/platform/tx"
)

// Postgres persists enrollments in PostgreSQL. Execute serializes concurrent
// transitions on the same record with SELECT ... FOR UPDATE and shares its
// transaction through context so the audit append commits atomically with the
// state change.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const enrollmentColumns = `
	id, variant, state, title, description, siret, organization_name,
	scopes, contacts, documents, terms_accepted, legal_basis,
	applicant_id, linked_token_manager_id, created_at, updated_at
`

func (s *Postgres) Create(ctx context.Context, e *models.Enrollment) error {
	scopes, contacts, documents, err := marshalAggregates(e)
	if err != nil {
		return err
	}
	const query = `
		INSERT INTO enrollments (` + enrollmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(e.ID), e.Variant.String(), string(e.State),
		e.Title, e.Description, e.SIRET, e.OrganizationName,
		scopes, contacts, documents, e.TermsAccepted, e.LegalBasis,
		uuid.UUID(e.ApplicantID), e.LinkedTokenManagerID, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(enrollmentID))
	return scanEnrollment(row)
}

func (s *Postgres) Update(ctx context.Context, e *models.Enrollment) error {
	return s.update(ctx, s.db, e)
}

func (s *Postgres) ListByApplicant(ctx context.Context, applicant id.UserID) ([]*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE applicant_id = $1 ORDER BY created_at`
	return s.list(ctx, query, uuid.UUID(applicant))
}

func (s *Postgres) ListByVariant(ctx context.Context, variant id.Variant) ([]*models.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE variant = $1 ORDER BY created_at`
	return s.list(ctx, query, variant.String())
}

func (s *Postgres) Execute(
	ctx context.Context,
	enrollmentID id.EnrollmentID,
	validate func(e *models.Enrollment) error,
	mutate func(txCtx context.Context, e *models.Enrollment) error,
) (*models.Enrollment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1 FOR UPDATE`
	e, err := scanEnrollment(tx.QueryRowContext(ctx, query, uuid.UUID(enrollmentID)))
	if err != nil {
		return nil, err
	}

	if err := validate(e); err != nil {
		return nil, err
	}

	txCtx := txcontext.WithTx(ctx, tx)
	if err := mutate(txCtx, e); err != nil {
		return nil, err
	}

	if err := s.update(ctx, tx, e); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return e, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Postgres) update(ctx context.Context, db execer, e *models.Enrollment) error {
	scopes, contacts, documents, err := marshalAggregates(e)
	if err != nil {
		return err
	}
	const query = `
		UPDATE enrollments SET
			variant = $2, state = $3, title = $4, description = $5,
			siret = $6, organization_name = $7, scopes = $8, contacts = $9,
			documents = $10, terms_accepted = $11, legal_basis = $12,
			linked_token_manager_id = $13, updated_at = $14
		WHERE id = $1
	`
	res, err := db.ExecContext(ctx, query,
		uuid.UUID(e.ID), e.Variant.String(), string(e.State),
		e.Title, e.Description, e.SIRET, e.OrganizationName,
		scopes, contacts, documents, e.TermsAccepted, e.LegalBasis,
		e.LinkedTokenManagerID, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) list(ctx context.Context, query string, arg any) ([]*models.Enrollment, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []*models.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func marshalAggregates(e *models.Enrollment) (scopes, contacts, documents []byte, err error) {
	if scopes, err = json.Marshal(e.Scopes); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal scopes: %w", err)
	}
	if contacts, err = json.Marshal(e.Contacts); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal contacts: %w", err)
	}
	if documents, err = json.Marshal(e.Documents); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal documents: %w", err)
	}
	return scopes, contacts, documents, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEnrollment(row scanner) (*models.Enrollment, error) {
	var (
		e                          models.Enrollment
		enrollmentID, applicantID  uuid.UUID
		variant, state             string
		scopes, contacts, docsJSON []byte
	)
	err := row.Scan(
		&enrollmentID, &variant, &state, &e.Title, &e.Description,
		&e.SIRET, &e.OrganizationName, &scopes, &contacts, &docsJSON,
		&e.TermsAccepted, &e.LegalBasis, &applicantID,
		&e.LinkedTokenManagerID, &e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan enrollment: %w", err)
	}

	e.ID = id.EnrollmentID(enrollmentID)
	e.ApplicantID = id.UserID(applicantID)
	e.Variant = id.Variant(variant)
	e.State = models.State(state)
	if err := json.Unmarshal(scopes, &e.Scopes); err != nil {
		return nil, fmt.Errorf("unmarshal scopes: %w", err)
	}
	if err := json.Unmarshal(contacts, &e.Contacts); err != nil {
		return nil, fmt.Errorf("unmarshal contacts: %w", err)
	}
	if err := json.Unmarshal(docsJSON, &e.Documents); err != nil {
		return nil, fmt.Errorf("unmarshal documents: %w", err)
	}
	return &e, nil
}
