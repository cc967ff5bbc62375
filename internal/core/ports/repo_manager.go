package ports

import (
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

type HandoffEventHandler func(event domain.HandoffEvent)

// RepoManager is the abstraction for any kind of service intended to manage
// domain repositories implementations of the same concrete type.
type RepoManager interface {
	// HandoffRepository returns the handoff repository.
	HandoffRepository() domain.HandoffRepository

	// RegisterHandlerForHandoffEvent registers an handler function, executed
	// whenever the given event type occurs.
	RegisterHandlerForHandoffEvent(
		eventType domain.HandoffEventType, handler HandoffEventHandler,
	)

	// Reset brings all the repos to their initial state by deleting any persisted data.
	Reset()

	// Close closes the connection with all concrete repositories
	// implementations.
	Close()
}
