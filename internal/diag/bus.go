package diag

import (
	"sync"
	"time"
)

type subscription struct {
	id      SubscriptionID
	handler Handler
}

// Bus is an asynchronous diagnostic event bus. Publishing never blocks the
// live loop beyond queueing; handlers run on the bus worker with panic
// isolation so a broken listener cannot take the agent down.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]subscription
	nextID      SubscriptionID

	queue  chan Event
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewBus creates a bus with the given queue depth and starts its worker.
func NewBus(bufferSize int) *Bus {
	b := &Bus{
		subscribers: make(map[EventType][]subscription),
		nextID:      1,
		queue:       make(chan Event, bufferSize),
		stopCh:      make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(t EventType, h Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subscribers[t] = append(b.subscribers[t], subscription{id: id, handler: h})
	return id
}

// Unsubscribe removes a handler by its subscription ID.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, subs := range b.subscribers {
		for i, s := range subs {
			if s.id == id {
				b.subscribers[t] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish queues an event, stamping it if the caller did not.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	select {
	case b.queue <- e:
	case <-b.stopCh:
	}
}

// Emit is Publish with inline construction, the common call site shape.
func (b *Bus) Emit(t EventType, data map[string]interface{}) {
	b.Publish(Event{Type: t, Data: data})
}

// Stop drains queued events and stops the worker.
func (b *Bus) Stop() {
	close(b.stopCh)
	b.wg.Wait()
}

func (b *Bus) run() {
	defer b.wg.Done()
	for {
		select {
		case e := <-b.queue:
			b.dispatch(e)
		case <-b.stopCh:
			for {
				select {
				case e := <-b.queue:
					b.dispatch(e)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	subs := b.subscribers[e.Type]
	handlers := make([]Handler, len(subs))
	for i, s := range subs {
		handlers[i] = s.handler
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.safeCall(h, e)
	}
}

func (b *Bus) safeCall(h Handler, e Event) {
	defer func() {
		recover()
	}()
	h(e)
}
