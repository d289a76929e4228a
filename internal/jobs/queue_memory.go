package jobs

import (
	"context"
	"log/slog"
)

// InMemoryQueue buffers jobs on a channel for an in-process worker. When the
// buffer is full the job is dropped rather than blocking the transition that
// produced it.
type InMemoryQueue struct {
	inbox  chan Job
	logger *slog.Logger
}

func NewInMemoryQueue(buffer int, logger *slog.Logger) *InMemoryQueue {
	if buffer <= 0 {
		buffer = 256
	}
	return &InMemoryQueue{inbox: make(chan Job, buffer), logger: logger}
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.inbox <- job:
		return nil
	default:
		q.logger.WarnContext(ctx, "job queue full, dropping job",
			"kind", job.Kind,
			"enrollment_id", job.EnrollmentID.String(),
		)
		return nil
	}
}

// Jobs exposes the inbox for a Worker.
func (q *InMemoryQueue) Jobs() <-chan Job { return q.inbox }

// Handler processes one job.
type Handler func(ctx context.Context, job Job) error

// Worker drains a job channel. It keeps background processing testable
// without wiring a broker.
type Worker struct {
	inbox   <-chan Job
	handler Handler
	logger  *slog.Logger
}

func NewWorker(inbox <-chan Job, handler Handler, logger *slog.Logger) *Worker {
	return &Worker{inbox: inbox, handler: handler, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-w.inbox:
			if err := w.handler(ctx, job); err != nil {
				w.logger.ErrorContext(ctx, "job handler failed",
					"kind", job.Kind,
					"enrollment_id", job.EnrollmentID.String(),
					"error", err,
				)
			}
		}
	}
}
