package handler

import (
	"errors"

	"datapass/internal/enrollment/models"
	"datapass/internal/enrollment/service"
	dErrors "datapass/pkg/domain-errors"
)

// TransitionResponse is the HTTP response for a committed transition.
type TransitionResponse struct {
	Enrollment *models.Enrollment `json:"enrollment"`
	State      string             `json:"state"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// FromResult converts a transition result to an HTTP response.
func FromResult(result *service.TransitionResult) *TransitionResponse {
	return &TransitionResponse{
		Enrollment: result.Enrollment,
		State:      string(result.Enrollment.State),
		Warnings:   result.Warnings,
	}
}

// SideEffectFailureResponse reports a transition whose state change committed
// but whose mandatory side effect failed. Unlike other error responses it
// carries the enrollment, because the record did move.
type SideEffectFailureResponse struct {
	Error       string             `json:"error"`
	Description string             `json:"error_description"`
	Enrollment  *models.Enrollment `json:"enrollment"`
	State       string             `json:"state"`
}

// FromFailedSideEffect converts a committed-but-degraded transition to its
// HTTP response.
func FromFailedSideEffect(result *service.TransitionResult, err error) *SideEffectFailureResponse {
	description := "side effect failed"
	var de *dErrors.Error
	if errors.As(err, &de) {
		description = de.Message
	}
	return &SideEffectFailureResponse{
		Error:       string(dErrors.CodeSideEffect),
		Description: description,
		Enrollment:  result.Enrollment,
		State:       string(result.Enrollment.State),
	}
}
