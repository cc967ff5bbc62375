package inmemory

import (
	"sync"
	"time"

	"github.com/vulpemventures/cosigner/internal/core/domain"
	"github.com/vulpemventures/cosigner/internal/core/ports"
)

type repoManager struct {
	handoffRepository *handoffRepository

	handoffEventHandlers *handlerMap
}

func NewRepoManager() ports.RepoManager {
	handoffRepo := newHandoffRepository()

	rm := &repoManager{
		handoffRepository:    handoffRepo,
		handoffEventHandlers: newHandlerMap(),
	}

	go rm.listenToHandoffEvents()

	return rm
}

func (rm *repoManager) HandoffRepository() domain.HandoffRepository {
	return rm.handoffRepository
}

func (rm *repoManager) RegisterHandlerForHandoffEvent(
	eventType domain.HandoffEventType, handler ports.HandoffEventHandler,
) {
	rm.handoffEventHandlers.set(int(eventType), handler)
}

func (rm *repoManager) listenToHandoffEvents() {
	for event := range rm.handoffRepository.chEvents {
		time.Sleep(time.Millisecond)

		if handlers, ok := rm.handoffEventHandlers.get(int(event.EventType)); ok {
			for i := range handlers {
				handler := handlers[i]
				go handler.(ports.HandoffEventHandler)(event)
			}
		}
	}
}

func (rm *repoManager) Reset() {
	rm.handoffRepository.reset()
}

func (rm *repoManager) Close() {
	rm.handoffRepository.close()
}

// handlerMap is a util type to prevent race conditions when registering
// or retrieving handlers for events.
type handlerMap struct {
	handlersByEventType map[int][]interface{}
	lock                *sync.RWMutex
}

func newHandlerMap() *handlerMap {
	return &handlerMap{
		handlersByEventType: make(map[int][]interface{}),
		lock:                &sync.RWMutex{},
	}
}

func (m *handlerMap) set(key int, val interface{}) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.handlersByEventType[key] = append(m.handlersByEventType[key], val)
}

func (m *handlerMap) get(key int) ([]interface{}, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	val, ok := m.handlersByEventType[key]
	return val, ok
}
