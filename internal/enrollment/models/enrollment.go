package models

import (
	"time"

	id "datapass/pkg/domain"
	dErrors "datapass/pkg/domain-errors"
)

// Enrollment is the aggregate root for an access request against a data
// provider.
//
// Invariants:
//   - State only changes along the declared transition graph, and only
//     through the lifecycle engine
//   - Every committed transition has exactly one audit event
//   - Variant is immutable after creation; an abstract (variant-less) draft
//     can exist but never leaves StatePending
//   - Scopes hold canonical booleans; coercion happened at intake
type Enrollment struct {
	ID      id.EnrollmentID `json:"id"`
	Variant id.Variant      `json:"variant"`
	State   State           `json:"state"`

	// Title is the human-readable name of the administrative procedure the
	// request is for.
	Title       string `json:"title"`
	Description string `json:"description"`

	// SIRET is the national business identifier of the organization on whose
	// behalf the request is made. OrganizationName is resolved from it by the
	// company-lookup collaborator during validation.
	SIRET            string `json:"siret"`
	OrganizationName string `json:"organization_name,omitempty"`

	Scopes    Scopes    `json:"scopes"`
	Contacts  Contacts  `json:"contacts"`
	Documents Documents `json:"documents,omitempty"`

	// TermsAccepted records acceptance of the provider's terms of use.
	TermsAccepted bool `json:"terms_accepted"`
	// LegalBasis is a free-text legal-basis reference. An attached document of
	// type DocumentLegalBasis is an accepted alternative.
	LegalBasis string `json:"legal_basis,omitempty"`

	ApplicantID id.UserID `json:"applicant_id"`

	// LinkedTokenManagerID is set once the external token manager accepted the
	// registration triggered by validation.
	LinkedTokenManagerID string `json:"linked_token_manager_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEnrollment constructs a draft in the initial state. The variant may be
// abstract at this point; it then has to be set through UpdateDraft before the
// draft can be submitted.
func NewEnrollment(enrollmentID id.EnrollmentID, variant id.Variant, applicant id.UserID, now time.Time) (*Enrollment, error) {
	if enrollmentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "enrollment id is required")
	}
	if applicant.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "applicant is required")
	}
	if !variant.IsAbstract() && !variant.IsRegistered() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown variant: "+variant.String())
	}
	return &Enrollment{
		ID:          enrollmentID,
		Variant:     variant,
		State:       StatePending,
		ApplicantID: applicant,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ApplyTransition moves the aggregate to the target state. Callers must have
// resolved the target through TargetState; this method does not re-check the
// graph.
func (e *Enrollment) ApplyTransition(to State, now time.Time) {
	e.State = to
	e.UpdatedAt = now
}

// LinkTokenManager records the identifier returned by the external token
// manager.
func (e *Enrollment) LinkTokenManager(externalID string, now time.Time) {
	e.LinkedTokenManagerID = externalID
	e.UpdatedAt = now
}

// Editable reports whether the applicant may still change the request's
// content. Content is frozen once the provider starts reviewing.
func (e *Enrollment) Editable() bool {
	return e.State == StatePending
}

// Actor is the user attempting a transition, as established by the
// authentication boundary. EmailVerified gates entering the review queue.
type Actor struct {
	ID            id.UserID
	Email         string
	EmailVerified bool
}

// TransitionRequest is the caller-supplied payload of a transition attempt.
type TransitionRequest struct {
	Comment string `json:"comment,omitempty"`
}
