package db_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
	dbbadger "github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/badger"
	"github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/vulpemventures/cosigner/internal/infrastructure/storage/db/postgres"
)

// Postgres repositories are tested only if COSIGNER_TEST_PG is set, against
// the db started with the default credentials of the daemon.
const pgTestEnv = "COSIGNER_TEST_PG"

var pgTestConfig = postgresdb.DbConfig{
	DbUser:             "root",
	DbPassword:         "secret",
	DbHost:             "127.0.0.1",
	DbPort:             5432,
	DbName:             "cosignerd-db-test",
	MigrationSourceURL: "file://../postgres/migration",
}

func TestHandoffRepository(t *testing.T) {
	repositories, err := newHandoffRepositories(
		func(repoType string) ports.HandoffEventHandler {
			return func(event domain.HandoffEvent) {
				t.Logf(
					"received event from %s repo: {EventType: %s, Handoff: "+
						"{ID: %s, Status: %s}}\n", repoType, event.EventType,
					event.Handoff.ID, event.Handoff.Status,
				)
			}
		},
	)
	require.NoError(t, err)

	for name, repo := range repositories {
		t.Run(name, func(t *testing.T) {
			testHandoffRepository(t, repo)
		})
	}
}

func testHandoffRepository(t *testing.T, repo domain.HandoffRepository) {
	newHandoff, intent, sender := randomHandoff(t)
	otherHandoff, _, _ := randomHandoff(t)
	id := newHandoff.ID
	wrongID := randomHash().String()

	t.Run("add_handoff", func(t *testing.T) {
		done, err := repo.AddHandoff(ctx, newHandoff)
		require.NoError(t, err)
		require.True(t, done)

		done, err = repo.AddHandoff(ctx, newHandoff)
		require.NoError(t, err)
		require.False(t, done)

		done, err = repo.AddHandoff(ctx, otherHandoff)
		require.NoError(t, err)
		require.True(t, done)
	})

	t.Run("get_handoff", func(t *testing.T) {
		handoff, err := repo.GetHandoff(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, handoff)
		require.Equal(t, newHandoff.ID, handoff.ID)
		require.Equal(t, newHandoff.Payload, handoff.Payload)
		require.Equal(t, newHandoff.FeePayer, handoff.FeePayer)
		require.Equal(t, newHandoff.RequiredSigners, handoff.RequiredSigners)
		require.ElementsMatch(t, newHandoff.MissingSigners, handoff.MissingSigners)
		require.Equal(t, domain.AnchorShortLived, handoff.AnchorKind)
		require.Equal(t, domain.HandoffPending, handoff.Status)

		stored, err := handoff.Intent()
		require.NoError(t, err)
		require.Equal(t, intent.ID(), stored.ID())

		handoff, err = repo.GetHandoff(ctx, wrongID)
		require.ErrorIs(t, err, domain.ErrHandoffNotFound)
		require.Nil(t, handoff)
	})

	t.Run("update_handoff", func(t *testing.T) {
		signed, err := intent.Sign(sender)
		require.NoError(t, err)

		err = repo.UpdateHandoff(
			ctx, id, func(h *domain.Handoff) (*domain.Handoff, error) {
				if err := h.Update(signed, time.Now()); err != nil {
					return nil, err
				}
				return h, nil
			},
		)
		require.NoError(t, err)

		handoff, err := repo.GetHandoff(ctx, id)
		require.NoError(t, err)
		require.Len(t, handoff.MissingSigners, 1)
		require.Equal(t, handoff.FeePayer, handoff.MissingSigners[0])

		err = repo.UpdateHandoff(
			ctx, id, func(h *domain.Handoff) (*domain.Handoff, error) {
				return nil, errSomethingWentWrong
			},
		)
		require.EqualError(t, errSomethingWentWrong, err.Error())

		err = repo.UpdateHandoff(
			ctx, wrongID, func(h *domain.Handoff) (*domain.Handoff, error) {
				return h, nil
			},
		)
		require.ErrorIs(t, err, domain.ErrHandoffNotFound)
	})

	t.Run("list_handoffs", func(t *testing.T) {
		err := repo.UpdateHandoff(
			ctx, otherHandoff.ID, func(h *domain.Handoff) (*domain.Handoff, error) {
				h.MarkRejected("Blockhash not found", time.Now())
				return h, nil
			},
		)
		require.NoError(t, err)

		handoffs, err := repo.ListHandoffs(ctx)
		require.NoError(t, err)
		require.Len(t, handoffs, 2)

		handoffs, err = repo.ListHandoffs(ctx, domain.HandoffPending)
		require.NoError(t, err)
		require.Len(t, handoffs, 1)
		require.Equal(t, id, handoffs[0].ID)

		handoffs, err = repo.ListHandoffs(
			ctx, domain.HandoffRejected, domain.HandoffSubmitted,
		)
		require.NoError(t, err)
		require.Len(t, handoffs, 1)
		require.Equal(t, otherHandoff.ID, handoffs[0].ID)
		require.Equal(t, "Blockhash not found", handoffs[0].Reason)

		handoffs, err = repo.ListHandoffs(ctx, domain.HandoffComplete)
		require.NoError(t, err)
		require.Empty(t, handoffs)
	})

	t.Run("delete_handoffs", func(t *testing.T) {
		count, err := repo.DeleteHandoffs(ctx, []string{id, wrongID})
		require.NoError(t, err)
		require.Equal(t, 1, count)

		count, err = repo.DeleteHandoffs(ctx, []string{id})
		require.NoError(t, err)
		require.Zero(t, count)

		handoffs, err := repo.ListHandoffs(ctx)
		require.NoError(t, err)
		require.Len(t, handoffs, 1)
	})
}

func newHandoffRepositories(
	handlerFactory func(repoType string) ports.HandoffEventHandler,
) (map[string]domain.HandoffRepository, error) {
	inmemoryRepoManager := inmemory.NewRepoManager()
	badgerRepoManager, err := dbbadger.NewRepoManager("", nil)
	if err != nil {
		return nil, err
	}

	handlers := []ports.HandoffEventHandler{
		handlerFactory("badger"), handlerFactory("inmemory"),
	}
	repoManagers := []ports.RepoManager{badgerRepoManager, inmemoryRepoManager}

	for i, handler := range handlers {
		repoManager := repoManagers[i]
		repoManager.RegisterHandlerForHandoffEvent(domain.HandoffAdded, handler)
		repoManager.RegisterHandlerForHandoffEvent(domain.HandoffSigned, handler)
		repoManager.RegisterHandlerForHandoffEvent(domain.HandoffSent, handler)
		repoManager.RegisterHandlerForHandoffEvent(domain.HandoffFailed, handler)
		repoManager.RegisterHandlerForHandoffEvent(domain.HandoffDeleted, handler)
	}

	repositories := map[string]domain.HandoffRepository{
		"inmemory": inmemoryRepoManager.HandoffRepository(),
		"badger":   badgerRepoManager.HandoffRepository(),
	}

	if _, ok := os.LookupEnv(pgTestEnv); ok {
		pgRepoManager, err := postgresdb.NewRepoManager(pgTestConfig)
		if err != nil {
			return nil, err
		}
		pgRepoManager.Reset()

		handler := handlerFactory("postgres")
		for _, eventType := range []domain.HandoffEventType{
			domain.HandoffAdded, domain.HandoffSigned, domain.HandoffSent,
			domain.HandoffFailed, domain.HandoffDeleted,
		} {
			pgRepoManager.RegisterHandlerForHandoffEvent(eventType, handler)
		}
		repositories["postgres"] = pgRepoManager.HandoffRepository()
	}

	return repositories, nil
}
