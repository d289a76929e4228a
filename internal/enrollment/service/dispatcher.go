package service

import (
	"context"

	"datapass/internal/enrollment/models"
	"datapass/internal/enrollment/variants"
	"datapass/internal/jobs"
	"datapass/internal/tokenmanager"
	dErrors "datapass/pkg/domain-errors"
	"datapass/pkg/requestcontext"
)

// dispatch fires the side effect declared for (variant, event), if any. The
// state change is already committed when this runs: optional failures degrade
// to warnings on the result, mandatory ones (token registration) come back as
// a CodeSideEffect error.
func (s *Service) dispatch(ctx context.Context, result *TransitionResult, event models.Event, actor models.Actor) error {
	e := result.Enrollment
	profile, ok := variants.Get(e.Variant)
	if !ok {
		return nil
	}
	effect, ok := profile.EffectFor(event)
	if !ok {
		// No handler for this (variant, event) pair is a legitimate outcome.
		return nil
	}

	err := s.runEffect(ctx, result, effect, actor)
	if err == nil {
		return nil
	}

	s.metrics.IncrementSideEffectFailure(string(effect.Kind))
	s.logger.ErrorContext(ctx, "side effect failed after commit",
		"enrollment_id", e.ID.String(),
		"event", string(event),
		"kind", string(effect.Kind),
		"mandatory", effect.Mandatory,
		"error", err,
	)
	if effect.Mandatory {
		return dErrors.Wrap(err, dErrors.CodeSideEffect,
			"the transition was committed but its "+string(effect.Kind)+" side effect failed")
	}
	result.Warnings = append(result.Warnings, string(effect.Kind)+" side effect failed")
	return nil
}

func (s *Service) runEffect(ctx context.Context, result *TransitionResult, effect variants.Effect, actor models.Actor) error {
	e := result.Enrollment
	switch effect.Kind {
	case variants.EffectGrantRole:
		return s.roles.Grant(ctx, effect.Role, actor.ID, e.ID.String())

	case variants.EffectEnqueueJob:
		return s.jobs.Enqueue(ctx, jobs.Job{
			Kind:         effect.JobKind,
			EnrollmentID: e.ID,
			ActorID:      actor.ID,
			EnqueuedAt:   requestcontext.Now(ctx),
		})

	case variants.EffectRegisterToken:
		return s.registerToken(ctx, result, actor)

	default:
		return dErrors.New(dErrors.CodeInternal, "unknown side effect kind: "+string(effect.Kind))
	}
}

// registerToken registers the validated enrollment with the external token
// manager and persists the returned identifier. The call is synchronous and
// never retried here; a duplicate registration must not be produced by the
// engine.
func (s *Service) registerToken(ctx context.Context, result *TransitionResult, actor models.Actor) error {
	e := result.Enrollment
	if s.tokens == nil {
		return dErrors.New(dErrors.CodeInternal, "token manager is not configured")
	}

	externalID, err := s.tokens.Subscribe(ctx, e.Variant, tokenmanager.Registration{
		Name:                    e.OrganizationName + " - " + e.ID.String(),
		TechnicalContactEmail:   e.Contacts.EmailOf(models.ContactTechnique),
		FunctionnalContactEmail: e.Contacts.EmailOf(models.ContactMetier),
		AuthorEmail:             actor.Email,
		DataPassID:              e.ID.String(),
		Scopes:                  e.Scopes.GrantedNames(),
	})
	if err != nil {
		return err
	}

	e.LinkTokenManager(externalID, requestcontext.Now(ctx))
	if err := s.enrollments.Update(ctx, e); err != nil {
		return err
	}
	return nil
}
