package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/application"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/inmemory"
)

func TestNotificationService(t *testing.T) {
	repoManager := inmemory.NewRepoManager()
	svc := application.NewNotificationService(repoManager)

	chEvents, err := svc.GetHandoffChannel(ctx)
	require.NoError(t, err)

	received := make(chan domain.HandoffEvent, 1)
	go func() {
		for event := range chEvents {
			received <- event
			return
		}
	}()

	alice, bob := newKey(t), newKey(t)
	intent, err := application.NewAssemblerService(nil).BuildIntent(
		transferIxs(alice, bob), bob.PublicKey(),
		domain.ShortLivedAnchor(randomBlockhash(t)),
	)
	require.NoError(t, err)
	handoff, err := domain.NewHandoff(intent, time.Now())
	require.NoError(t, err)

	done, err := repoManager.HandoffRepository().AddHandoff(ctx, handoff)
	require.NoError(t, err)
	require.True(t, done)

	select {
	case event := <-received:
		require.Equal(t, domain.HandoffAdded, event.EventType)
		require.Equal(t, intent.ID(), event.Handoff.ID)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}
