package models

import (
	"time"

	uuid "github.com/satori/go.uuid"
)

type OutcomeState string

const (
	OutcomeStatePending           = OutcomeState("pending")
	OutcomeStateRequeued          = OutcomeState("requeued")
	OutcomeStateSubmitted         = OutcomeState("submitted")
	OutcomeStateInvalidCredential = OutcomeState("invalid_credential")
	OutcomeStateSubmissionFailed  = OutcomeState("submission_failed")
)

// Final reports whether the work item left the queue for good.
func (s OutcomeState) Final() bool {
	switch s {
	case OutcomeStateSubmitted, OutcomeStateInvalidCredential, OutcomeStateSubmissionFailed:
		return true
	}
	return false
}

// Outcome records what happened to one credential. The credential itself is
// never stored.
type Outcome struct {
	ID     uuid.UUID
	Worker int
	// Empty when the credential could not be parsed
	Address   string
	State     OutcomeState
	TxHash    string
	Error     string
	Requeues  int
	UpdatedAt time.Time
}
