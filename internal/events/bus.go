package events

import "sync"

type Action string

const (
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// TopicCollectionStatus carries collection status transitions for the
// websocket stream. Entity-named topics carry CMS lifecycle events.
const TopicCollectionStatus = "collection:status"

// Event is one CMS lifecycle notification (or an internal status change).
type Event struct {
	Entity string         `json:"entity"`
	Action Action         `json:"action"`
	Record map[string]any `json:"record"`
}

type Handler func(Event)

// Bus is a minimal in-process pub/sub used to fan CMS lifecycle events out to
// the trigger registry and status changes out to the websocket hub.
// Handlers run on their own goroutine so a slow subscriber cannot stall the
// publisher.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[int]Handler
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for one topic and returns its cancel func.
// Cancelling twice is a no-op.
func (b *Bus) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.next
	b.next++
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[ev.Entity]))
	for _, h := range b.subs[ev.Entity] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		go h(ev)
	}
}
