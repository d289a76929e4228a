// Package store persists enrollment aggregates.
package store

import (
	"context"

	"datapass/internal/enrollment/models"
	id "datapass/pkg/domain"
)

// Store is the persistence boundary of the lifecycle engine.
//
// Execute is the callback pattern for atomic validate-then-mutate: the store
// holds the record lock (mutex or SELECT FOR UPDATE) across both callbacks, so
// two concurrent transitions can never both commit from the same stale state.
// The mutate callback receives a context that carries the store's transaction
// when one exists; appends to other tx-aware stores made through that context
// commit or roll back together with the state change.
type Store interface {
	Create(ctx context.Context, e *models.Enrollment) error
	FindByID(ctx context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error)
	Update(ctx context.Context, e *models.Enrollment) error
	ListByApplicant(ctx context.Context, applicant id.UserID) ([]*models.Enrollment, error)
	ListByVariant(ctx context.Context, variant id.Variant) ([]*models.Enrollment, error)
	Execute(
		ctx context.Context,
		enrollmentID id.EnrollmentID,
		validate func(e *models.Enrollment) error,
		mutate func(txCtx context.Context, e *models.Enrollment) error,
	) (*models.Enrollment, error)
}
