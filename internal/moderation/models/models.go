package models

import (
	"time"

	id "chatguard/pkg/domain"
)

// Category classifies an off-platform contact attempt.
type Category string

const (
	CategoryPhoneNumber    Category = "PHONE_NUMBER"
	CategoryContactSharing Category = "CONTACT_SHARING"
	CategoryEmail          Category = "EMAIL"
	CategorySocialMedia    Category = "SOCIAL_MEDIA"
)

// IsValid checks if the category is one of the supported enum values.
func (c Category) IsValid() bool {
	switch c {
	case CategoryPhoneNumber, CategoryContactSharing, CategoryEmail, CategorySocialMedia:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// UserStatus is the account state owned by the user directory.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// IsValid checks if the status is one of the supported enum values.
func (s UserStatus) IsValid() bool {
	return s == UserStatusActive || s == UserStatusSuspended
}

// StrikeNumber is the 1..3 severity of a violation inside the window.
type StrikeNumber int

const (
	StrikeFirst  StrikeNumber = 1
	StrikeSecond StrikeNumber = 2
	StrikeFinal  StrikeNumber = 3
)

// Label returns the stored strike label, e.g. "STRIKE_2".
func (s StrikeNumber) Label() string {
	switch s {
	case StrikeFirst:
		return "STRIKE_1"
	case StrikeSecond:
		return "STRIKE_2"
	case StrikeFinal:
		return "STRIKE_3"
	}
	return "STRIKE_UNKNOWN"
}

// IsValid checks the strike is inside the ladder.
func (s StrikeNumber) IsValid() bool {
	return s >= StrikeFirst && s <= StrikeFinal
}

// Evidence is what the detector saw: every matched category (in priority
// order) and the matched fragments per category.
type Evidence struct {
	Categories []Category            `json:"categories"`
	Matches    map[Category][]string `json:"matches,omitempty"`
}

// ViolationEvent is an immutable ledger record of a blocked message.
type ViolationEvent struct {
	ID           id.ViolationID `json:"id"`
	UserID       id.UserID      `json:"user_id"`
	Category     Category       `json:"category"`
	StrikeNumber StrikeNumber   `json:"strike_number"`
	StrikeLabel  string         `json:"strike_label"`
	Description  string         `json:"description"`
	Evidence     Evidence       `json:"evidence"`
	CreatedAt    time.Time      `json:"created_at"`
}

// EnforcementStatus is the derived, never-stored view of a user's standing.
type EnforcementStatus struct {
	UserID      id.UserID    `json:"user_id"`
	Status      UserStatus   `json:"status"`
	WindowCount int          `json:"window_count"`
	NextStrike  StrikeNumber `json:"next_strike"`
	WindowStart time.Time    `json:"window_start"`
}
