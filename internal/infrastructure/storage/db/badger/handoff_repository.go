package dbbadger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dgraph-io/badger/v4"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"
	"github.com/vulpemventures/cosigner/internal/core/domain"
)

type handoffRepository struct {
	store            *badgerhold.Store
	chEvents         chan domain.HandoffEvent
	externalChEvents chan domain.HandoffEvent
	lock             *sync.Mutex

	log func(format string, a ...interface{})
}

func NewHandoffRepository(store *badgerhold.Store) domain.HandoffRepository {
	return newHandoffRepository(store)
}

func newHandoffRepository(store *badgerhold.Store) *handoffRepository {
	chEvents := make(chan domain.HandoffEvent)
	externalChEvents := make(chan domain.HandoffEvent)
	lock := &sync.Mutex{}
	logFn := func(format string, a ...interface{}) {
		format = fmt.Sprintf("handoff repository: %s", format)
		log.Debugf(format, a...)
	}
	return &handoffRepository{store, chEvents, externalChEvents, lock, logFn}
}

func (r *handoffRepository) AddHandoff(
	ctx context.Context, handoff *domain.Handoff,
) (bool, error) {
	done, err := r.insertHandoff(ctx, handoff)
	if done {
		go r.publishEvent(domain.HandoffEvent{
			EventType: domain.HandoffAdded,
			Handoff:   handoff,
		})
	}
	return done, err
}

func (r *handoffRepository) GetHandoff(
	ctx context.Context, id string,
) (*domain.Handoff, error) {
	return r.getHandoff(ctx, id)
}

func (r *handoffRepository) ListHandoffs(
	ctx context.Context, statuses ...domain.HandoffStatus,
) ([]*domain.Handoff, error) {
	query := &badgerhold.Query{}
	if len(statuses) > 0 {
		values := make([]interface{}, 0, len(statuses))
		for _, s := range statuses {
			values = append(values, s)
		}
		query = badgerhold.Where("Status").In(values...)
	}

	handoffs, err := r.findHandoffs(ctx, query)
	if err != nil {
		return nil, err
	}

	list := make([]*domain.Handoff, 0, len(handoffs))
	for i := range handoffs {
		list = append(list, &handoffs[i])
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt < list[j].CreatedAt
	})
	return list, nil
}

func (r *handoffRepository) UpdateHandoff(
	ctx context.Context, id string,
	updateFn func(h *domain.Handoff) (*domain.Handoff, error),
) error {
	var updatedHandoff *domain.Handoff
	update := func(ctx context.Context) error {
		handoff, err := r.getHandoff(ctx, id)
		if err != nil {
			return err
		}
		if updatedHandoff, err = updateFn(handoff); err != nil {
			return err
		}
		return r.updateHandoff(ctx, *updatedHandoff)
	}

	var err error
	if ctx.Value("tx") != nil {
		err = update(ctx)
	} else {
		err = r.store.Badger().Update(func(txn *badger.Txn) error {
			return update(context.WithValue(ctx, "tx", txn))
		})
	}
	if err != nil {
		return err
	}

	go r.publishEvent(domain.HandoffEvent{
		EventType: domain.EventTypeForStatus(updatedHandoff.Status),
		Handoff:   updatedHandoff,
	})
	return nil
}

func (r *handoffRepository) DeleteHandoffs(
	ctx context.Context, ids []string,
) (int, error) {
	count := 0
	for _, id := range ids {
		handoff, err := r.getHandoff(ctx, id)
		if err != nil {
			if err == domain.ErrHandoffNotFound {
				continue
			}
			return count, err
		}

		done, err := r.deleteHandoff(ctx, id)
		if err != nil {
			return count, err
		}
		if !done {
			continue
		}
		count++

		go r.publishEvent(domain.HandoffEvent{
			EventType: domain.HandoffDeleted,
			Handoff:   handoff,
		})
	}
	return count, nil
}

func (r *handoffRepository) GetEventChannel() chan domain.HandoffEvent {
	return r.externalChEvents
}

func (r *handoffRepository) insertHandoff(
	ctx context.Context, handoff *domain.Handoff,
) (bool, error) {
	var err error
	if ctx.Value("tx") != nil {
		t := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxInsert(t, handoff.ID, *handoff)
	} else {
		err = r.store.Insert(handoff.ID, *handoff)
	}

	if err != nil {
		if err == badgerhold.ErrKeyExists {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (r *handoffRepository) getHandoff(
	ctx context.Context, id string,
) (*domain.Handoff, error) {
	var err error
	var handoff domain.Handoff

	if ctx.Value("tx") != nil {
		t := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxGet(t, id, &handoff)
	} else {
		err = r.store.Get(id, &handoff)
	}

	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrHandoffNotFound
		}
		return nil, err
	}

	return &handoff, nil
}

func (r *handoffRepository) findHandoffs(
	ctx context.Context, query *badgerhold.Query,
) ([]domain.Handoff, error) {
	var list []domain.Handoff
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxFind(tx, &list, query)
	} else {
		err = r.store.Find(&list, query)
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}

func (r *handoffRepository) updateHandoff(
	ctx context.Context, handoff domain.Handoff,
) error {
	if ctx.Value("tx") != nil {
		t := ctx.Value("tx").(*badger.Txn)
		return r.store.TxUpdate(t, handoff.ID, handoff)
	}
	return r.store.Update(handoff.ID, handoff)
}

func (r *handoffRepository) deleteHandoff(
	ctx context.Context, id string,
) (bool, error) {
	var err error
	if ctx.Value("tx") != nil {
		tx := ctx.Value("tx").(*badger.Txn)
		err = r.store.TxDelete(tx, id, domain.Handoff{})
	} else {
		err = r.store.Delete(id, domain.Handoff{})
	}
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *handoffRepository) publishEvent(event domain.HandoffEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.log("publish event %s", event.EventType)
	r.chEvents <- event

	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *handoffRepository) reset() {
	r.store.Badger().DropAll()
}

func (r *handoffRepository) close() {
	r.store.Close()
	close(r.chEvents)
	close(r.externalChEvents)
}
