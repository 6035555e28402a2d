package models

import id "chatguard/pkg/domain"

// Outcome names the gate's terminal state for a send attempt.
type Outcome string

const (
	OutcomeAllowed       Outcome = "allowed"
	OutcomePolicyBlocked Outcome = "policy_blocked"
	OutcomeSuspended     Outcome = "suspended"
	OutcomeUnavailable   Outcome = "unavailable"
)

// ReasonAccountSuspended is the fixed reason returned to suspended senders.
const ReasonAccountSuspended = "Account suspended"

// Decision is the result of evaluating one send attempt.
//
// Shapes:
//   - allowed:        {allowed:true}
//   - policy-blocked: {allowed:false, reason, detected_patterns, strike_number}
//   - suspended:      {allowed:false, blocked:true, reason:"Account suspended"}
type Decision struct {
	Allowed          bool           `json:"allowed"`
	Blocked          bool           `json:"blocked,omitempty"`
	Reason           string         `json:"reason,omitempty"`
	DetectedPatterns []Category     `json:"detected_patterns,omitempty"`
	StrikeNumber     StrikeNumber   `json:"strike_number,omitempty"`
	ViolationID      id.ViolationID `json:"violation_id,omitzero"`
	AppealURL        string         `json:"appeal_url,omitempty"`
	Outcome          Outcome        `json:"-"`
}

// Allow returns the decision for a clean message.
func Allow() *Decision {
	return &Decision{Allowed: true, Outcome: OutcomeAllowed}
}

// RejectSuspended returns the decision for a suspended sender.
func RejectSuspended(appealURL string) *Decision {
	return &Decision{
		Allowed:   false,
		Blocked:   true,
		Reason:    ReasonAccountSuspended,
		AppealURL: appealURL,
		Outcome:   OutcomeSuspended,
	}
}

// RejectPolicy returns the decision for a message that violated policy.
func RejectPolicy(reason string, patterns []Category, strike StrikeNumber, violationID id.ViolationID) *Decision {
	return &Decision{
		Allowed:          false,
		Reason:           reason,
		DetectedPatterns: patterns,
		StrikeNumber:     strike,
		ViolationID:      violationID,
		Outcome:          OutcomePolicyBlocked,
	}
}

// RejectUnavailable is the fail-closed decision used when enforcement could
// not complete.
func RejectUnavailable() *Decision {
	return &Decision{
		Allowed: false,
		Reason:  "Message could not be sent right now. Please try again shortly.",
		Outcome: OutcomeUnavailable,
	}
}
