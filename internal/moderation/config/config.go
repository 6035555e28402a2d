// Package config holds the enforcement policy knobs. Business rules live in
// services; stores never read this.
package config

import (
	"time"

	"chatguard/internal/moderation/models"
)

// Config is the full moderation policy.
type Config struct {
	Enforcement EnforcementConfig
	Lock        LockConfig
	Notice      NoticeConfig
}

// EnforcementConfig controls the strike ladder.
type EnforcementConfig struct {
	// Window is the sliding lookback used to count prior violations.
	Window time.Duration
	// MaxStrike saturates the ladder; reaching it suspends the account.
	MaxStrike models.StrikeNumber
	// AppealURL is shown to suspended senders.
	AppealURL string
	// Reasons maps the primary category to the user-facing block reason.
	Reasons map[models.Category]string
}

// LockConfig controls per-user serialisation of count-then-append.
type LockConfig struct {
	// TTL bounds how long a distributed lock may be held if its owner dies.
	TTL time.Duration
	// WaitTimeout bounds how long a send waits for a busy lock before failing closed.
	WaitTimeout time.Duration
	// RetryInterval is the poll interval for distributed lock acquisition.
	RetryInterval time.Duration
}

// NoticeConfig controls best-effort notice dispatch.
type NoticeConfig struct {
	MaxRetries   uint64
	RetryBackoff time.Duration
	Timeout      time.Duration
}

// DefaultConfig returns the production policy.
func DefaultConfig() *Config {
	return &Config{
		Enforcement: EnforcementConfig{
			Window:    30 * 24 * time.Hour,
			MaxStrike: models.StrikeFinal,
			AppealURL: "https://support.example.com/appeals",
			Reasons: map[models.Category]string{
				models.CategoryPhoneNumber:    "Sharing phone numbers is not allowed. Please keep communication on the platform.",
				models.CategoryContactSharing: "Asking to move the conversation off the platform is not allowed.",
				models.CategoryEmail:          "Sharing email addresses is not allowed. Please keep communication on the platform.",
				models.CategorySocialMedia:    "Sharing social media profiles or links is not allowed.",
			},
		},
		Lock: LockConfig{
			TTL:           5 * time.Second,
			WaitTimeout:   2 * time.Second,
			RetryInterval: 25 * time.Millisecond,
		},
		Notice: NoticeConfig{
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			Timeout:      2 * time.Second,
		},
	}
}

// WindowStart returns the inclusive lower bound of the window ending at now.
func (c EnforcementConfig) WindowStart(now time.Time) time.Time {
	return now.Add(-c.Window)
}

// StrikeFor computes min(prior+1, MaxStrike).
func (c EnforcementConfig) StrikeFor(priorCount int) models.StrikeNumber {
	return min(models.StrikeNumber(priorCount+1), c.MaxStrike)
}

// ReasonFor returns the user-facing reason for a primary category.
func (c EnforcementConfig) ReasonFor(category models.Category) string {
	if reason, ok := c.Reasons[category]; ok {
		return reason
	}
	return "This message appears to share contact details and was not sent."
}
