package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "datapass/pkg/domain"
	txcontext "datapass/pkg/platform/tx"
)

// PostgresStore persists the trail in PostgreSQL. Appends issued inside a
// transaction carried by ctx join that transaction, which is how the engine
// commits state and audit atomically.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) executor(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	const query = `
		INSERT INTO enrollment_events (id, enrollment_id, name, actor_id, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.executor(ctx).ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(event.EnrollmentID),
		event.Name,
		uuid.UUID(event.ActorID),
		event.Comment,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append enrollment event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) ([]Event, error) {
	const query = `
		SELECT enrollment_id, name, actor_id, comment, created_at
		FROM enrollment_events
		WHERE enrollment_id = $1
		ORDER BY created_at ASC
	`
	rows, err := s.executor(ctx).QueryContext(ctx, query, uuid.UUID(enrollmentID))
	if err != nil {
		return nil, fmt.Errorf("list enrollment events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event        Event
			enrollmentID uuid.UUID
			actorID      uuid.UUID
		)
		if err := rows.Scan(&enrollmentID, &event.Name, &actorID, &event.Comment, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan enrollment event: %w", err)
		}
		event.EnrollmentID = id.EnrollmentID(enrollmentID)
		event.ActorID = id.UserID(actorID)
		events = append(events, event)
	}
	return events, rows.Err()
}
