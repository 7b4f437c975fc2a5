package suit

import "github.com/oklog/ulid/v2"

// Well-known event names on the runtime bus.
const (
	// EventRequestCompleted is broadcast with a Completion whenever a
	// network or push operation finishes successfully.
	EventRequestCompleted = "request:completed"
)

// Callback receives a broadcast payload.
type Callback func(payload any)

// Liveness decides whether a subscriber reference still points into the
// live document. A nil Liveness treats every subscriber as live.
type Liveness func(Ref) bool

// Subscription is one registered callback. Delivery to a subscription with
// a subscriber stops as soon as the subscriber leaves the document; Cancel
// stops it explicitly.
type Subscription struct {
	bus        *EventBus
	event      string
	subscriber Ref
	cb         Callback
}

// Cancel removes the subscription from its bus.
func (s *Subscription) Cancel() {
	if s.bus == nil {
		return
	}
	s.bus.remove(s)
	s.bus = nil
}

// EventBus is a synchronous publish/subscribe channel. It is not safe for
// concurrent use.
type EventBus struct {
	id   string
	live Liveness
	subs map[string][]*Subscription
}

// NewEventBus creates a bus gating delivery with live.
func NewEventBus(live Liveness) *EventBus {
	return &EventBus{
		id:   "events." + ulid.Make().String(),
		live: live,
		subs: make(map[string][]*Subscription),
	}
}

// ID returns the bus identifier.
func (b *EventBus) ID() string {
	return b.id
}

// On registers cb for event. subscriber is optional; when set, cb only
// receives broadcasts while the subscriber resolves to a live node.
func (b *EventBus) On(event string, subscriber Ref, cb Callback) *Subscription {
	s := &Subscription{bus: b, event: event, subscriber: subscriber, cb: cb}
	b.subs[event] = append(b.subs[event], s)
	return s
}

// Broadcast delivers payload to the subscriptions of event in registration
// order and returns how many callbacks ran. Liveness is evaluated per
// subscription at delivery time.
func (b *EventBus) Broadcast(event string, payload any) int {
	subs := b.subs[event]
	if len(subs) == 0 {
		return 0
	}
	snapshot := make([]*Subscription, len(subs))
	copy(snapshot, subs)

	delivered := 0
	for _, s := range snapshot {
		if s.bus == nil {
			continue
		}
		if s.subscriber != nil && b.live != nil && !b.live(s.subscriber) {
			continue
		}
		s.cb(payload)
		delivered++
	}
	return delivered
}

// Prune cancels every subscription whose subscriber is no longer live and
// returns how many were dropped.
func (b *EventBus) Prune() int {
	if b.live == nil {
		return 0
	}
	dropped := 0
	for event, subs := range b.subs {
		kept := subs[:0]
		for _, s := range subs {
			if s.subscriber != nil && !b.live(s.subscriber) {
				s.bus = nil
				dropped++
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) == 0 {
			delete(b.subs, event)
		} else {
			b.subs[event] = kept
		}
	}
	return dropped
}

// Len returns the number of subscriptions registered for event.
func (b *EventBus) Len(event string) int {
	return len(b.subs[event])
}

func (b *EventBus) remove(target *Subscription) {
	subs := b.subs[target.event]
	for i, s := range subs {
		if s == target {
			b.subs[target.event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[target.event]) == 0 {
		delete(b.subs, target.event)
	}
}
