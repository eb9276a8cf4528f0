// Package domain holds typed identifiers shared across services. Construct IDs
// via the ParseXxxID functions at trust boundaries; direct casting bypasses
// validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "trustbadge/pkg/domain-errors"
)

// UserID identifies the account that owns a profile and its verifications.
type UserID uuid.UUID

// VerificationID identifies a single verification submission.
type VerificationID uuid.UUID

// NewVerificationID allocates a fresh verification identifier.
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }

// ParseUserID validates external input into a UserID.
//
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID(uuid.Nil), err
	}
	return UserID(u), nil
}

// ParseVerificationID validates external input into a VerificationID.
func ParseVerificationID(s string) (VerificationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return VerificationID(uuid.Nil), err
	}
	return VerificationID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid uuid")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil uuid")
	}
	return u, nil
}

func (id UserID) String() string { return uuid.UUID(id).String() }

// IsZero reports whether the ID is the nil UUID.
func (id UserID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }

func (id VerificationID) String() string { return uuid.UUID(id).String() }

func (id VerificationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
