// Package service is the enrollment lifecycle engine. It owns every state
// mutation of the aggregate: authorization, completeness validation, the
// atomic state+audit commit, and side-effect dispatch.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"datapass/internal/audit"
	"datapass/internal/company"
	enrollmentmetrics "datapass/internal/enrollment/metrics"
	"datapass/internal/enrollment/models"
	"datapass/internal/enrollment/store"
	"datapass/internal/jobs"
	"datapass/internal/roles"
	"datapass/internal/tokenmanager"
	id "datapass/pkg/domain"
	dErrors "datapass/pkg/domain-errors"
	"datapass/pkg/platform/sentinel"
	"datapass/pkg/requestcontext"
)

//go:generate mockgen -destination mocks/tokenmanager.go -package mocks datapass/internal/tokenmanager Client
//go:generate mockgen -destination mocks/company.go -package mocks datapass/internal/company Lookup
//go:generate mockgen -destination mocks/jobs.go -package mocks datapass/internal/jobs Queue

// Service orchestrates the enrollment lifecycle. All collaborators are
// injected capabilities; the engine holds no ambient global state.
type Service struct {
	enrollments store.Store
	trail       audit.Store
	roles       roles.Store
	jobs        jobs.Queue
	tokens      tokenmanager.Client
	companies   company.Lookup
	logger      *slog.Logger
	metrics     *enrollmentmetrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *enrollmentmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTokenManager(client tokenmanager.Client) Option {
	return func(s *Service) { s.tokens = client }
}

func WithCompanyLookup(lookup company.Lookup) Option {
	return func(s *Service) { s.companies = lookup }
}

// New constructs the lifecycle engine.
func New(enrollments store.Store, trail audit.Store, roleStore roles.Store, queue jobs.Queue, opts ...Option) *Service {
	s := &Service{
		enrollments: enrollments,
		trail:       trail,
		roles:       roleStore,
		jobs:        queue,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRequest is the intake payload for a new draft. Scopes arrive loosely
// typed and are normalized exactly once here, before anything reads them.
type CreateRequest struct {
	Variant       string          `json:"variant"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	SIRET         string          `json:"siret"`
	Scopes        map[string]any  `json:"scopes"`
	Contacts      models.Contacts `json:"contacts"`
	TermsAccepted bool            `json:"terms_accepted"`
	LegalBasis    string          `json:"legal_basis"`
}

// Create registers a new draft in the initial state and grants the actor the
// applicant role on it.
func (s *Service) Create(ctx context.Context, actor models.Actor, req CreateRequest) (*models.Enrollment, error) {
	variant, err := id.ParseVariant(strings.TrimSpace(req.Variant))
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	e, err := models.NewEnrollment(id.EnrollmentID(uuid.New()), variant, actor.ID, now)
	if err != nil {
		return nil, err
	}
	e.Title = strings.TrimSpace(req.Title)
	e.Description = req.Description
	e.SIRET = strings.TrimSpace(req.SIRET)
	e.Scopes = models.NormalizeScopes(req.Scopes)
	e.Contacts = req.Contacts
	e.TermsAccepted = req.TermsAccepted
	e.LegalBasis = req.LegalBasis

	if err := s.enrollments.Create(ctx, e); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create enrollment")
	}
	if err := s.roles.Grant(ctx, roles.RoleApplicant, actor.ID, e.ID.String()); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant applicant role")
	}
	return e, nil
}

// UpdateRequest carries draft edits. Nil fields are left untouched.
type UpdateRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	SIRET         *string          `json:"siret"`
	Scopes        map[string]any   `json:"scopes"`
	Contacts      *models.Contacts `json:"contacts"`
	TermsAccepted *bool            `json:"terms_accepted"`
	LegalBasis    *string          `json:"legal_basis"`
}

// UpdateDraft edits a draft's content. Only the applicant may edit, and only
// while the enrollment is pending; review freezes the content.
func (s *Service) UpdateDraft(ctx context.Context, enrollmentID id.EnrollmentID, actor models.Actor, req UpdateRequest) (*models.Enrollment, error) {
	e, err := s.enrollments.Execute(ctx, enrollmentID,
		func(e *models.Enrollment) error {
			party, err := s.RoleOf(ctx, e, actor.ID)
			if err != nil {
				return err
			}
			if party != models.PartyApplicant {
				return dErrors.New(dErrors.CodeUnauthorized, "only the applicant may edit the request")
			}
			if !e.Editable() {
				return dErrors.New(dErrors.CodeConflict, "the request can no longer be edited")
			}
			return nil
		},
		func(txCtx context.Context, e *models.Enrollment) error {
			if req.Title != nil {
				e.Title = strings.TrimSpace(*req.Title)
			}
			if req.Description != nil {
				e.Description = *req.Description
			}
			if req.SIRET != nil {
				e.SIRET = strings.TrimSpace(*req.SIRET)
				e.OrganizationName = ""
			}
			if req.Scopes != nil {
				e.Scopes = models.NormalizeScopes(req.Scopes)
			}
			if req.Contacts != nil {
				e.Contacts = *req.Contacts
			}
			if req.TermsAccepted != nil {
				e.TermsAccepted = *req.TermsAccepted
			}
			if req.LegalBasis != nil {
				e.LegalBasis = *req.LegalBasis
			}
			e.UpdatedAt = requestcontext.Now(txCtx)
			return nil
		},
	)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return e, nil
}

// Get loads an enrollment, restricted to its parties.
func (s *Service) Get(ctx context.Context, enrollmentID id.EnrollmentID, actorID id.UserID) (*models.Enrollment, error) {
	e, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	party, err := s.RoleOf(ctx, e, actorID)
	if err != nil {
		return nil, err
	}
	if party == models.PartyNone {
		return nil, dErrors.New(dErrors.CodeNotFound, "enrollment not found")
	}
	return e, nil
}

// Trail returns the audit history of an enrollment, restricted to its
// parties.
func (s *Service) Trail(ctx context.Context, enrollmentID id.EnrollmentID, actorID id.UserID) ([]audit.Event, error) {
	if _, err := s.Get(ctx, enrollmentID, actorID); err != nil {
		return nil, err
	}
	events, err := s.trail.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load enrollment history")
	}
	return events, nil
}

func wrapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "enrollment not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "enrollment was modified concurrently")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "enrollment store failure")
	}
}
