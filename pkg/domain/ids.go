package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "chatguard/pkg/domain-errors"
)

// UserID identifies a chat participant. It is owned by the external user directory.
type UserID uuid.UUID

// ViolationID identifies a single ViolationEvent.
type ViolationID uuid.UUID

// maxIDLength bounds input before handing it to the UUID parser.
const maxIDLength = 64

func parseUUID(kind, s string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" is required")
	}
	if len(s) > maxIDLength {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return parsed, nil
}

// ParseUserID validates a user identifier at a trust boundary.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user_id", s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseViolationID validates a violation identifier at a trust boundary.
func ParseViolationID(s string) (ViolationID, error) {
	u, err := parseUUID("violation_id", s)
	if err != nil {
		return ViolationID{}, err
	}
	return ViolationID(u), nil
}

// NewViolationID returns a fresh random identifier.
func NewViolationID() ViolationID {
	return ViolationID(uuid.New())
}

func (id UserID) String() string      { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ViolationID) String() string { return uuid.UUID(id).String() }
func (id ViolationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets typed IDs serialise as plain UUID strings in JSON payloads.
func (id UserID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id ViolationID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *ViolationID) UnmarshalText(b []byte) error {
	parsed, err := ParseViolationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
