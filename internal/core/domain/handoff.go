package domain

import (
	"fmt"
	"time"
)

const (
	HandoffPending HandoffStatus = iota
	HandoffComplete
	HandoffSubmitted
	HandoffRejected
)

var handoffStatusString = map[HandoffStatus]string{
	HandoffPending:   "pending",
	HandoffComplete:  "complete",
	HandoffSubmitted: "submitted",
	HandoffRejected:  "rejected",
}

type HandoffStatus int

func (s HandoffStatus) String() string {
	return handoffStatusString[s]
}

func ParseHandoffStatus(str string) (HandoffStatus, error) {
	for status, s := range handoffStatusString {
		if s == str {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown handoff status %q", str)
}

// Handoff is a relay mailbox entry: the latest known payload of an intent
// with the signers still missing and, once submitted, the outcome.
type Handoff struct {
	ID              string
	Payload         string
	FeePayer        string
	RequiredSigners []string
	MissingSigners  []string
	AnchorKind      AnchorKind
	Status          HandoffStatus
	TxSignature     string
	Reason          string
	CreatedAt       int64
	UpdatedAt       int64
}

// NewHandoff returns a new record for the given intent.
func NewHandoff(intent *Intent, now time.Time) (*Handoff, error) {
	h := &Handoff{
		ID:        intent.ID(),
		FeePayer:  intent.FeePayer().String(),
		CreatedAt: now.Unix(),
	}
	for _, s := range intent.RequiredSigners() {
		h.RequiredSigners = append(h.RequiredSigners, s.String())
	}
	if err := h.Update(intent, now); err != nil {
		return nil, err
	}
	return h, nil
}

// Intent parses the stored payload.
func (h *Handoff) Intent() (*Intent, error) {
	return DeserializeIntent([]byte(h.Payload))
}

// Update replaces the payload with the given copy of the intent.
func (h *Handoff) Update(intent *Intent, now time.Time) error {
	if intent.ID() != h.ID {
		return ErrIntentMismatch
	}
	if h.IsFinal() {
		return fmt.Errorf(
			"%w: %s as tx %s", ErrHandoffSubmitted, h.ID, h.TxSignature,
		)
	}
	payload, err := intent.Serialize()
	if err != nil {
		return err
	}

	missing := make([]string, 0)
	for _, s := range intent.MissingSigners() {
		missing = append(missing, s.String())
	}

	h.Payload = string(payload)
	h.MissingSigners = missing
	h.AnchorKind = intent.Anchor().Kind
	h.Status = HandoffPending
	if len(missing) == 0 {
		h.Status = HandoffComplete
	}
	h.UpdatedAt = now.Unix()
	return nil
}

func (h *Handoff) MarkSubmitted(txSignature string, now time.Time) {
	h.Status = HandoffSubmitted
	h.TxSignature = txSignature
	h.Reason = ""
	h.UpdatedAt = now.Unix()
}

func (h *Handoff) MarkRejected(reason string, now time.Time) {
	h.Status = HandoffRejected
	h.Reason = reason
	h.UpdatedAt = now.Unix()
}

func (h *Handoff) IsFinal() bool {
	return h.Status == HandoffSubmitted
}

// IsExpired returns whether the record hasn't been touched for longer than
// the given retention.
func (h *Handoff) IsExpired(now time.Time, retention time.Duration) bool {
	return now.Sub(time.Unix(h.UpdatedAt, 0)) > retention
}
