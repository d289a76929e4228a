// Package domain holds domain primitives shared across packages: typed IDs and
// the provider variant enum. Construct values via the Parse* functions at trust
// boundaries; direct casting bypasses validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "datapass/pkg/domain-errors"
)

// EnrollmentID identifies an enrollment aggregate.
type EnrollmentID uuid.UUID

// UserID identifies a user account.
type UserID uuid.UUID

// ParseEnrollmentID validates external input into an EnrollmentID.
func ParseEnrollmentID(s string) (EnrollmentID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return EnrollmentID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid enrollment id")
	}
	return EnrollmentID(u), nil
}

// ParseUserID validates external input into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	return UserID(u), nil
}

func (id EnrollmentID) String() string { return uuid.UUID(id).String() }
func (id EnrollmentID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText renders the ID as its canonical UUID string. Defined types do
// not inherit methods from uuid.UUID, so without these encoding/json would
// fall back to serializing the underlying [16]byte as an array.
func (id EnrollmentID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *EnrollmentID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}

func (id UserID) String() string { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(data []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(data)
}
