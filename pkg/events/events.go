package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventDomainCreated              EventType = "domain.created"
	EventDomainDeleted              EventType = "domain.deleted"
	EventDomainGroupCreated         EventType = "domain_group.created"
	EventDomainGroupVersionsChanged EventType = "domain_group.versions_changed"
	EventDomainGroupDeleted         EventType = "domain_group.deleted"
	EventRingGroupCreated           EventType = "ring_group.created"
	EventRingGroupModeChanged       EventType = "ring_group.mode_changed"
	EventRingGroupDeleted           EventType = "ring_group.deleted"
	EventRingCreated                EventType = "ring.created"
	EventRingDeleted                EventType = "ring.deleted"
	EventHostCreated                EventType = "host.created"
	EventHostDeleted                EventType = "host.deleted"
	EventHostStateChanged           EventType = "host.state_changed"
	EventHostCommandQueueChanged    EventType = "host.command_queue_changed"
	EventHostDomainsChanged         EventType = "host.domains_changed"
)

// Metadata keys
const (
	MetaDomain      = "domain"
	MetaDomainGroup = "domain_group"
	MetaRingGroup   = "ring_group"
	MetaRing        = "ring"
	MetaHost        = "host"
	MetaState       = "state"
	MetaCommand     = "command"
)

// Event represents a change in coordinator state
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Message   string
	Metadata  map[string]string
}

// NewEvent creates an event with a fresh ID
func NewEvent(t EventType, message string, metadata map[string]string) *Event {
	return &Event{
		ID:       uuid.New().String(),
		Type:     t,
		Message:  message,
		Metadata: metadata,
	}
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker fans coordinator changes out to subscribers. Delivery is best effort:
// a subscriber whose buffer is full misses the event.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]filter
	eventCh     chan *Event
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// filter is the set of event types a subscriber wants; nil means all
type filter map[EventType]bool

func (f filter) matches(t EventType) bool {
	return f == nil || f[t]
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]filter),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// Subscribe returns a channel receiving events of the given types, or of
// every type when none are given
func (b *Broker) Subscribe(types ...EventType) Subscriber {
	var f filter
	if len(types) > 0 {
		f = make(filter, len(types))
		for _, t := range types {
			f[t] = true
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = f
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscribers[sub]; ok {
		delete(b.subscribers, sub)
		close(sub)
	}
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	// Set timestamp if not set
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub, f := range b.subscribers {
		if !f.matches(event.Type) {
			continue
		}
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip. Consumers re-read state on their next tick.
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
