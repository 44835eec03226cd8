package bus

import (
	"sync"
	"sync/atomic"

	"arceus-fleet/backend/app/events"
	"arceus-fleet/backend/global"
)

// Handler consumes one delivered event.
type Handler func(events.Event)

const subQueueSize = 256

// kindAll is the internal key for SubscribeAll subscriptions.
const kindAll events.Kind = "*"

// Subscription is one registered listener. Delivery for a subscription
// happens on its own goroutine, so per-kind publish order is preserved
// and a slow handler never blocks publishers.
type Subscription struct {
	kind    events.Kind
	ch      chan events.Event
	done    chan struct{}
	handler atomic.Value // Handler
	cancel  sync.Once
	bus     *Bus
}

// Swap replaces the handler. Events already queued are delivered to the
// new handler; no resubscription needed.
func (s *Subscription) Swap(h Handler) {
	if h != nil {
		s.handler.Store(h)
	}
}

// Cancel removes the subscription. Idempotent, safe during delivery.
// The queue channel is never closed so a concurrent Publish cannot
// panic; leftover queued events are simply dropped.
func (s *Subscription) Cancel() {
	s.cancel.Do(func() {
		s.bus.remove(s)
		close(s.done)
	})
}

func (s *Subscription) run() {
	for {
		select {
		case <-s.done:
			return
		case e := <-s.ch:
			select {
			case <-s.done:
				return
			default:
			}
			if h, ok := s.handler.Load().(Handler); ok {
				h(e)
			}
		}
	}
}

// Bus is the in-process event channel: named publish/subscribe with
// ordered delivery per event kind. No cross-kind ordering is promised.
type Bus struct {
	mu   sync.RWMutex
	subs map[events.Kind][]*Subscription
}

func New() *Bus {
	return &Bus{subs: make(map[events.Kind][]*Subscription)}
}

// Subscribe registers a handler for one event kind.
func (b *Bus) Subscribe(kind events.Kind, h Handler) *Subscription {
	return b.add(kind, h)
}

// SubscribeAll registers a handler observing every published event.
func (b *Bus) SubscribeAll(h Handler) *Subscription {
	return b.add(kindAll, h)
}

func (b *Bus) add(kind events.Kind, h Handler) *Subscription {
	s := &Subscription{kind: kind, ch: make(chan events.Event, subQueueSize), done: make(chan struct{}), bus: b}
	s.handler.Store(h)
	b.mu.Lock()
	b.subs[kind] = append(b.subs[kind], s)
	b.mu.Unlock()
	go s.run()
	return s
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	list := b.subs[s.kind]
	for i, cur := range list {
		if cur == s {
			b.subs[s.kind] = append(list[:i], list[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
}

// Publish delivers e to every subscriber of its kind plus the wildcard
// subscribers. A subscriber whose queue is full misses the event; we log
// and move on rather than block the publisher. Such a miss stays missed
// until the consumer resyncs from a full snapshot.
func (b *Bus) Publish(e events.Event) {
	kind := e.Kind()
	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs[kind])+len(b.subs[kindAll]))
	targets = append(targets, b.subs[kind]...)
	targets = append(targets, b.subs[kindAll]...)
	b.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.ch <- e:
		default:
			global.Logger.Warn().Str("event", string(kind)).Msg("subscriber queue full, event dropped")
		}
	}
}
