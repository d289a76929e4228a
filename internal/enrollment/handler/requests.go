package handler

import (
	"strings"

	"datapass/internal/enrollment/models"
	"datapass/internal/enrollment/service"
	id "datapass/pkg/domain"
	dErrors "datapass/pkg/domain-errors"
)

const (
	maxTitleLen       = 255
	maxDescriptionLen = 4000
	maxCommentLen     = 2000
)

// CreateEnrollmentRequest is the HTTP request body for POST /enrollments.
type CreateEnrollmentRequest struct {
	Variant       string          `json:"variant"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	SIRET         string          `json:"siret"`
	Scopes        map[string]any  `json:"scopes"`
	Contacts      models.Contacts `json:"contacts"`
	TermsAccepted bool            `json:"terms_accepted"`
	LegalBasis    string          `json:"legal_basis"`
}

// Validate validates and normalizes the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateEnrollmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if len(r.Title) > maxTitleLen {
		return dErrors.New(dErrors.CodeValidation, "title is too long")
	}
	if len(r.Description) > maxDescriptionLen {
		return dErrors.New(dErrors.CodeValidation, "description is too long")
	}

	r.Variant = strings.TrimSpace(r.Variant)
	if _, err := id.ParseVariant(r.Variant); err != nil {
		return err
	}

	r.Title = strings.TrimSpace(r.Title)
	r.SIRET = strings.TrimSpace(r.SIRET)
	return nil
}

// ToServiceRequest converts the validated body to a service request.
func (r *CreateEnrollmentRequest) ToServiceRequest() service.CreateRequest {
	return service.CreateRequest{
		Variant:       r.Variant,
		Title:         r.Title,
		Description:   r.Description,
		SIRET:         r.SIRET,
		Scopes:        r.Scopes,
		Contacts:      r.Contacts,
		TermsAccepted: r.TermsAccepted,
		LegalBasis:    r.LegalBasis,
	}
}

// UpdateEnrollmentRequest is the HTTP request body for
// PATCH /enrollments/{enrollmentID}. Absent fields leave the draft untouched.
type UpdateEnrollmentRequest struct {
	Title         *string          `json:"title"`
	Description   *string          `json:"description"`
	SIRET         *string          `json:"siret"`
	Scopes        map[string]any   `json:"scopes"`
	Contacts      *models.Contacts `json:"contacts"`
	TermsAccepted *bool            `json:"terms_accepted"`
	LegalBasis    *string          `json:"legal_basis"`
}

// Validate validates and normalizes the request.
func (r *UpdateEnrollmentRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.Title != nil {
		if len(*r.Title) > maxTitleLen {
			return dErrors.New(dErrors.CodeValidation, "title is too long")
		}
		trimmed := strings.TrimSpace(*r.Title)
		r.Title = &trimmed
	}
	if r.Description != nil && len(*r.Description) > maxDescriptionLen {
		return dErrors.New(dErrors.CodeValidation, "description is too long")
	}
	if r.SIRET != nil {
		trimmed := strings.TrimSpace(*r.SIRET)
		r.SIRET = &trimmed
	}
	return nil
}

// ToServiceRequest converts the validated body to a service request.
func (r *UpdateEnrollmentRequest) ToServiceRequest() service.UpdateRequest {
	return service.UpdateRequest{
		Title:         r.Title,
		Description:   r.Description,
		SIRET:         r.SIRET,
		Scopes:        r.Scopes,
		Contacts:      r.Contacts,
		TermsAccepted: r.TermsAccepted,
		LegalBasis:    r.LegalBasis,
	}
}

// TransitionBody is the HTTP request body for
// POST /enrollments/{enrollmentID}/{event}. An empty body is valid; only
// refusals and change requests usually carry a comment.
type TransitionBody struct {
	Comment string `json:"comment"`
}

// Validate validates and normalizes the request.
func (r *TransitionBody) Validate() error {
	if r == nil {
		return nil
	}
	if len(r.Comment) > maxCommentLen {
		return dErrors.New(dErrors.CodeValidation, "comment is too long")
	}
	r.Comment = strings.TrimSpace(r.Comment)
	return nil
}

// ToTransitionRequest converts the body to the domain transition payload.
func (r *TransitionBody) ToTransitionRequest() models.TransitionRequest {
	return models.TransitionRequest{Comment: r.Comment}
}
