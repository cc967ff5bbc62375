package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

const (
	StatusUnknown ConfirmationStatus = iota
	StatusProcessed
	StatusConfirmed
	StatusFinalized
	StatusFailed
)

var statusString = map[ConfirmationStatus]string{
	StatusUnknown:   "unknown",
	StatusProcessed: "processed",
	StatusConfirmed: "confirmed",
	StatusFinalized: "finalized",
	StatusFailed:    "failed",
}

type ConfirmationStatus int

func (s ConfirmationStatus) String() string {
	return statusString[s]
}

// Reached returns whether the status satisfies the target commitment.
func (s ConfirmationStatus) Reached(target ConfirmationStatus) bool {
	if s == StatusUnknown || s == StatusFailed {
		return false
	}
	return s >= target
}

// ParseConfirmationStatus accepts processed, confirmed or finalized.
func ParseConfirmationStatus(str string) (ConfirmationStatus, bool) {
	for status, s := range statusString {
		if s == str && status != StatusUnknown && status != StatusFailed {
			return status, true
		}
	}
	return StatusUnknown, false
}

// Receipt is the outcome of a successful submission.
type Receipt struct {
	IntentID    string
	Signature   solana.Signature
	Anchor      RecencyAnchor
	SubmittedAt time.Time
}
