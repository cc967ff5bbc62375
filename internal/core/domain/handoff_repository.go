package domain

import (
	"context"
	"fmt"
)

const (
	HandoffAdded HandoffEventType = iota
	HandoffSigned
	HandoffSent
	HandoffFailed
	HandoffDeleted
)

var (
	ErrHandoffNotFound  = fmt.Errorf("handoff not found")
	ErrHandoffSubmitted = fmt.Errorf("handoff already submitted")

	handoffEventString = map[HandoffEventType]string{
		HandoffAdded:   "HandoffAdded",
		HandoffSigned:  "HandoffSigned",
		HandoffSent:    "HandoffSubmitted",
		HandoffFailed:  "HandoffRejected",
		HandoffDeleted: "HandoffDeleted",
	}
)

type HandoffEventType int

func (t HandoffEventType) String() string {
	return handoffEventString[t]
}

// HandoffEvent holds info about an event occured within the repository.
type HandoffEvent struct {
	EventType HandoffEventType
	Handoff   *Handoff
}

// EventTypeForStatus maps the status reached by an updated handoff to the
// event published for it.
func EventTypeForStatus(status HandoffStatus) HandoffEventType {
	switch status {
	case HandoffSubmitted:
		return HandoffSent
	case HandoffRejected:
		return HandoffFailed
	default:
		return HandoffSigned
	}
}

// HandoffRepository is the abstraction for any kind of database intended
// to persist Handoffs.
type HandoffRepository interface {
	// AddHandoff adds the provided handoff to the repository by preventing
	// duplicates.
	// Generates a HandoffAdded event if successful.
	AddHandoff(ctx context.Context, handoff *Handoff) (bool, error)
	// GetHandoff returns the Handoff identified by the given intent id.
	GetHandoff(ctx context.Context, id string) (*Handoff, error)
	// ListHandoffs returns all handoffs with one of the given statuses, all
	// of them if none is given.
	ListHandoffs(
		ctx context.Context, statuses ...HandoffStatus,
	) ([]*Handoff, error)
	// UpdateHandoff allows to commit multiple changes to the same Handoff in
	// a transactional way.
	// Generates an event matching the new status if successful.
	UpdateHandoff(
		ctx context.Context, id string,
		updateFn func(h *Handoff) (*Handoff, error),
	) error
	// DeleteHandoffs removes the given handoffs and returns how many were
	// actually deleted.
	// Generates a HandoffDeleted event for each of them.
	DeleteHandoffs(ctx context.Context, ids []string) (int, error)
	// GetEventChannel retunrs the channel of HandoffEvents.
	GetEventChannel() chan HandoffEvent
}
