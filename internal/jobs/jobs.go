// Package jobs is the notification/job boundary. The lifecycle engine
// enqueues fire-and-forget follow-up work here; delivery is at-least-once and
// nothing ever calls back into the state machine.
package jobs

import (
	"context"
	"time"

	id "datapass/pkg/domain"
)

// Job is one unit of follow-up work tied to an enrollment transition.
type Job struct {
	Kind         string          `json:"kind"`
	EnrollmentID id.EnrollmentID `json:"enrollment_id"`
	ActorID      id.UserID       `json:"actor_id"`
	EnqueuedAt   time.Time       `json:"enqueued_at"`
}

// Queue accepts jobs for out-of-band processing.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}
