package service

import (
	"context"
	"errors"

	"datapass/internal/audit"
	"datapass/internal/enrollment/models"
	"datapass/internal/enrollment/variants"
	id "datapass/pkg/domain"
	dErrors "datapass/pkg/domain-errors"
	"datapass/pkg/platform/sentinel"
	"datapass/pkg/requestcontext"
)

// TransitionResult is the outcome of a committed transition. Warnings carry
// optional side-effect failures; the state change they follow is already
// durable.
type TransitionResult struct {
	Enrollment *models.Enrollment
	Warnings   []string
}

// AttemptTransition drives one lifecycle transition end to end:
//
//  1. resolve the edge for (event, current state); no edge is an invalid
//     transition
//  2. check the actor's party against the edge's requirement
//  3. run the variant's validation rules for the target state
//  4. commit the new state together with exactly one audit event, atomically
//  5. dispatch the side effect declared for (variant, event)
//
// Steps 1-3 run under the record lock and never leave partial state. A
// mandatory side-effect failure in step 5 returns both the committed result
// and a CodeSideEffect error: the state change is durable and is not rolled
// back, there is no automatic reversal of the external call.
func (s *Service) AttemptTransition(
	ctx context.Context,
	enrollmentID id.EnrollmentID,
	event models.Event,
	actor models.Actor,
	req models.TransitionRequest,
) (*TransitionResult, error) {
	committed, err := s.enrollments.Execute(ctx, enrollmentID,
		func(e *models.Enrollment) error {
			return s.checkTransition(ctx, e, event, actor)
		},
		func(txCtx context.Context, e *models.Enrollment) error {
			now := requestcontext.Now(txCtx)
			if event != models.EventLoop {
				target, err := models.TargetState(event, e.State)
				if err != nil {
					return err
				}
				e.ApplyTransition(target, now)
			}
			return s.trail.Append(txCtx, audit.Event{
				EnrollmentID: e.ID,
				Name:         string(event),
				ActorID:      actor.ID,
				Comment:      req.Comment,
				CreatedAt:    now,
			})
		},
	)
	if err != nil {
		s.metrics.IncrementRejected(string(dErrors.CodeOf(wrapStoreErr(err))))
		return nil, wrapStoreErr(err)
	}

	s.metrics.IncrementCommitted(string(event))
	result := &TransitionResult{Enrollment: committed}

	if err := s.dispatch(ctx, result, event, actor); err != nil {
		return result, err
	}
	return result, nil
}

// checkTransition runs the pre-commit checks (steps 1-3) against the locked
// record. It mutates nothing but the working copy's resolved organization
// name, which only becomes durable if the commit goes through.
func (s *Service) checkTransition(ctx context.Context, e *models.Enrollment, event models.Event, actor models.Actor) error {
	target, err := models.TargetState(event, e.State)
	if err != nil {
		return err
	}
	if event == models.EventRequestTechnicalInputs {
		if err := s.checkTechnicalInputsOffered(e); err != nil {
			return err
		}
	}

	party, err := s.RoleOf(ctx, e, actor.ID)
	if err != nil {
		return err
	}
	if !satisfies(party, models.RequiredParty(event)) {
		return dErrors.New(dErrors.CodeUnauthorized, "actor is not allowed to trigger "+string(event))
	}

	// The loop event never changes state and therefore re-validates nothing.
	if event == models.EventLoop {
		return nil
	}

	if target == models.StateSent {
		if err := s.resolveOrganization(ctx, e); err != nil {
			return err
		}
	}
	if violations := variants.Validate(e, actor, target); len(violations) > 0 {
		// Several violations can share a field (one per missing contact
		// kind); keep them all rather than the first.
		fields := make(map[string]string, len(violations))
		for _, v := range violations {
			if prior, taken := fields[v.Field]; taken {
				fields[v.Field] = prior + "; " + v.Message
			} else {
				fields[v.Field] = v.Message
			}
		}
		return dErrors.NewValidation(fields)
	}
	return nil
}

// checkTechnicalInputsOffered enforces that the technical-inputs leg is only
// offered by providers running the full workflow.
func (s *Service) checkTechnicalInputsOffered(e *models.Enrollment) error {
	profile, ok := variants.Get(e.Variant)
	if !ok {
		return dErrors.New(dErrors.CodeInvalidTransition, "technical inputs are not available without a provider")
	}
	if profile.ShortWorkflow {
		return dErrors.New(dErrors.CodeInvalidTransition,
			"provider "+e.Variant.String()+" does not use technical inputs")
	}
	return nil
}

func satisfies(party, required models.Party) bool {
	switch required {
	case models.PartyAny:
		return party == models.PartyApplicant || party == models.PartyProviderAdmin
	default:
		return party == required
	}
}

// resolveOrganization fills in the legal name from the company registry when
// it is still missing. An unknown identifier is left unresolved for the
// validation rules to report; registry outages abort the attempt instead.
func (s *Service) resolveOrganization(ctx context.Context, e *models.Enrollment) error {
	if s.companies == nil || e.OrganizationName != "" || e.SIRET == "" {
		return nil
	}
	name, err := s.companies.LegalName(ctx, e.SIRET)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "company lookup failed")
	}
	e.OrganizationName = name
	return nil
}
