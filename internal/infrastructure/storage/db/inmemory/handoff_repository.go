package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/vulpemventures/cosigner/internal/core/domain"
)

type handoffInmemoryStore struct {
	handoffs map[string]domain.Handoff
	lock     *sync.RWMutex
}

type handoffRepository struct {
	store            *handoffInmemoryStore
	chEvents         chan domain.HandoffEvent
	externalChEvents chan domain.HandoffEvent
	chLock           *sync.Mutex
}

func NewHandoffRepository() domain.HandoffRepository {
	return newHandoffRepository()
}

func newHandoffRepository() *handoffRepository {
	return &handoffRepository{
		store: &handoffInmemoryStore{
			handoffs: make(map[string]domain.Handoff),
			lock:     &sync.RWMutex{},
		},
		chEvents:         make(chan domain.HandoffEvent),
		externalChEvents: make(chan domain.HandoffEvent),
		chLock:           &sync.Mutex{},
	}
}

func (r *handoffRepository) AddHandoff(
	_ context.Context, handoff *domain.Handoff,
) (bool, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.handoffs[handoff.ID]; ok {
		return false, nil
	}

	r.store.handoffs[handoff.ID] = copyHandoff(*handoff)

	go r.publishEvent(domain.HandoffEvent{
		EventType: domain.HandoffAdded,
		Handoff:   handoff,
	})

	return true, nil
}

func (r *handoffRepository) GetHandoff(
	_ context.Context, id string,
) (*domain.Handoff, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	return r.getHandoff(id)
}

func (r *handoffRepository) ListHandoffs(
	_ context.Context, statuses ...domain.HandoffStatus,
) ([]*domain.Handoff, error) {
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	list := make([]*domain.Handoff, 0, len(r.store.handoffs))
	for _, h := range r.store.handoffs {
		if !hasStatus(h.Status, statuses) {
			continue
		}
		handoff := copyHandoff(h)
		list = append(list, &handoff)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt < list[j].CreatedAt
	})
	return list, nil
}

func (r *handoffRepository) UpdateHandoff(
	_ context.Context, id string,
	updateFn func(h *domain.Handoff) (*domain.Handoff, error),
) error {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	handoff, err := r.getHandoff(id)
	if err != nil {
		return err
	}

	updatedHandoff, err := updateFn(handoff)
	if err != nil {
		return err
	}

	r.store.handoffs[id] = copyHandoff(*updatedHandoff)

	go r.publishEvent(domain.HandoffEvent{
		EventType: domain.EventTypeForStatus(updatedHandoff.Status),
		Handoff:   updatedHandoff,
	})

	return nil
}

func (r *handoffRepository) DeleteHandoffs(
	_ context.Context, ids []string,
) (int, error) {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	count := 0
	for _, id := range ids {
		h, ok := r.store.handoffs[id]
		if !ok {
			continue
		}
		delete(r.store.handoffs, id)
		count++

		handoff := h
		go r.publishEvent(domain.HandoffEvent{
			EventType: domain.HandoffDeleted,
			Handoff:   &handoff,
		})
	}
	return count, nil
}

func (r *handoffRepository) GetEventChannel() chan domain.HandoffEvent {
	return r.externalChEvents
}

func (r *handoffRepository) getHandoff(id string) (*domain.Handoff, error) {
	h, ok := r.store.handoffs[id]
	if !ok {
		return nil, domain.ErrHandoffNotFound
	}
	handoff := copyHandoff(h)
	return &handoff, nil
}

func (r *handoffRepository) publishEvent(event domain.HandoffEvent) {
	r.chLock.Lock()
	defer r.chLock.Unlock()

	r.chEvents <- event
	// send over channel without blocking in case nobody is listening.
	select {
	case r.externalChEvents <- event:
	default:
	}
}

func (r *handoffRepository) reset() {
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	r.store.handoffs = make(map[string]domain.Handoff)
}

func (r *handoffRepository) close() {
	close(r.chEvents)
	close(r.externalChEvents)
}

func copyHandoff(h domain.Handoff) domain.Handoff {
	h.RequiredSigners = append([]string{}, h.RequiredSigners...)
	h.MissingSigners = append([]string{}, h.MissingSigners...)
	return h
}

func hasStatus(status domain.HandoffStatus, statuses []domain.HandoffStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
