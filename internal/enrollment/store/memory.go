package store

import (
	"context"
	"sync"

	"datapass/internal/enrollment/models"
	id "datapass/pkg/domain"
	"datapass/pkg/platform/sentinel"
)

// InMemory keeps enrollments in process memory. The store mutex doubles as
// the record lock for Execute, so validate and mutate run without interleaved
// writers. Used in tests and as the default backend.
type InMemory struct {
	mu          sync.RWMutex
	enrollments map[id.EnrollmentID]*models.Enrollment
}

func NewInMemory() *InMemory {
	return &InMemory{enrollments: make(map[id.EnrollmentID]*models.Enrollment)}
}

func (s *InMemory) Create(_ context.Context, e *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.enrollments[e.ID]; exists {
		return sentinel.ErrConflict
	}
	s.enrollments[e.ID] = clone(e)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, enrollmentID id.EnrollmentID) (*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enrollments[enrollmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e), nil
}

func (s *InMemory) Update(_ context.Context, e *models.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.enrollments[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.enrollments[e.ID] = clone(e)
	return nil
}

func (s *InMemory) ListByApplicant(_ context.Context, applicant id.UserID) ([]*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Enrollment
	for _, e := range s.enrollments {
		if e.ApplicantID == applicant {
			out = append(out, clone(e))
		}
	}
	return out, nil
}

func (s *InMemory) ListByVariant(_ context.Context, variant id.Variant) ([]*models.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Enrollment
	for _, e := range s.enrollments {
		if e.Variant == variant {
			out = append(out, clone(e))
		}
	}
	return out, nil
}

// Execute runs validate then mutate on a working copy under the store lock.
// The copy is published only when both callbacks succeed, so a failing mutate
// leaves the stored record untouched.
func (s *InMemory) Execute(
	ctx context.Context,
	enrollmentID id.EnrollmentID,
	validate func(e *models.Enrollment) error,
	mutate func(txCtx context.Context, e *models.Enrollment) error,
) (*models.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.enrollments[enrollmentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := clone(current)
	if err := validate(working); err != nil {
		return nil, err
	}
	if err := mutate(ctx, working); err != nil {
		return nil, err
	}

	s.enrollments[enrollmentID] = working
	return clone(working), nil
}

func clone(e *models.Enrollment) *models.Enrollment {
	copied := *e
	if e.Scopes != nil {
		copied.Scopes = make(models.Scopes, len(e.Scopes))
		for k, v := range e.Scopes {
			copied.Scopes[k] = v
		}
	}
	copied.Contacts = append(models.Contacts(nil), e.Contacts...)
	copied.Documents = append(models.Documents(nil), e.Documents...)
	return &copied
}
