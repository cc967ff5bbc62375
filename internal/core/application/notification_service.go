package application

import (
	"context"

	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

// Notification service has the very simple task of making the event channel
// of the used domain.HandoffRepository accessible by external clients so that
// the parties of an intent get real-time updates on the relay mailbox.
type NotificationService struct {
	repoManager ports.RepoManager
}

func NewNotificationService(
	repoManager ports.RepoManager,
) *NotificationService {
	return &NotificationService{repoManager}
}

func (ns *NotificationService) GetHandoffChannel(
	ctx context.Context,
) (chan domain.HandoffEvent, error) {
	return ns.repoManager.HandoffRepository().GetEventChannel(), nil
}
