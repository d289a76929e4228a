// Package audit is the append-only trail of enrollment lifecycle events.
// Events are created only as the direct consequence of a committed transition
// and are never updated or deleted.
package audit

import (
	"context"
	"time"

	id "datapass/pkg/domain"
)

// Event records who triggered which transition, when, with an optional
// reviewer comment.
type Event struct {
	EnrollmentID id.EnrollmentID `json:"enrollment_id"`
	Name         string          `json:"name"`
	ActorID      id.UserID       `json:"actor_id"`
	Comment      string          `json:"comment,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Store persists the trail. Implementations must honor a transaction carried
// in ctx (pkg/platform/tx) so the append commits atomically with the state
// change it documents.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEnrollment(ctx context.Context, enrollmentID id.EnrollmentID) ([]Event, error)
}
