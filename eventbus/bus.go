package eventbus

import (
	"sync"

	"github.com/unidir/unidir/logging"
)

// An EventBus takes events and forwards them to handlers matched by
// name.  Delivery for one event name is serialized: ledger events for a
// channel must not race each other through the reconciliation handlers.
// Duplicate delivery is allowed; handlers are expected to be idempotent.
type EventBus struct {
	handlers     map[string][]func(Event)
	eventMutexes map[string]*sync.Mutex
	mutex        sync.Mutex
}

// NewEventBus creates a bus with no handlers.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers:     map[string][]func(Event){},
		eventMutexes: map[string]*sync.Mutex{},
	}
}

// RegisterHandler registers an event handler function by event name.
func (b *EventBus) RegisterHandler(eventName string, hFunc func(Event)) {
	b.mutex.Lock()
	if _, ok := b.handlers[eventName]; !ok {
		b.handlers[eventName] = make([]func(Event), 0)
		b.eventMutexes[eventName] = new(sync.Mutex)
	}
	b.handlers[eventName] = append(b.handlers[eventName], hFunc)
	logging.Infof("Registered handler for %s\n", eventName)
	b.mutex.Unlock()
}

// CountHandlers is a convenience function.
func (b *EventBus) CountHandlers(name string) int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.handlers[name])
}

// Publish sends an event to the relevant handlers, synchronously.
// Returns once every handler has seen it.
func (b *EventBus) Publish(event Event) {
	name := event.Name()
	logging.Debugf("eventbus: published %s\n", name)

	// Copy the handler list so a handler registering more handlers
	// doesn't deadlock us.
	b.mutex.Lock()
	em, present := b.eventMutexes[name]
	if !present {
		b.mutex.Unlock()
		return
	}
	src := b.handlers[name]
	hs := make([]func(Event), len(src))
	copy(hs, src)
	b.mutex.Unlock()

	em.Lock()
	for _, h := range hs {
		h(event)
	}
	em.Unlock()
}

// PublishAsync fires the event off without waiting for handlers.
func (b *EventBus) PublishAsync(event Event) {
	go b.Publish(event)
}
