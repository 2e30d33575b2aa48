// Package eventbus is the internal publish/subscribe fabric of spec.md §4.9
// connecting the Graph Store, Scheduler and Loop Cache to external
// subscribers. Each subscriber gets its own buffered channel and a cancel
// function, the same per-connection channel-wrapper shape the teacher uses
// for its websocket-backed RPC connections (modules/electrum before its
// removal - see DESIGN.md) generalized from one transport connection to one
// logical subscription.
package eventbus

import (
	"sync"

	"github.com/nftbarter/tradeloop-engine/modules"
	"github.com/nftbarter/tradeloop-engine/types"
)

// subscriberBufferSize bounds how far a slow subscriber can lag before the
// bus starts dropping events to it rather than blocking the publisher.
const subscriberBufferSize = 64

// Bus satisfies modules.EventBus.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	graph    map[types.TenantID]map[int]chan types.GraphChangeEvent
	filtered map[types.TenantID]map[int]*subscription
}

type subscription struct {
	ch     chan modules.Event
	filter types.EventFilter
}

// New returns an empty, ready-to-use Bus.
func New() *Bus {
	return &Bus{
		graph:    make(map[types.TenantID]map[int]chan types.GraphChangeEvent),
		filtered: make(map[types.TenantID]map[int]*subscription),
	}
}

// PublishGraphChange satisfies modules.EventBus.
func (b *Bus) PublishGraphChange(evt types.GraphChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.graph[evt.Tenant] {
		select {
		case ch <- evt:
		default:
		}
	}
}

// PublishLoopDiscovered satisfies modules.EventBus.
func (b *Bus) PublishLoopDiscovered(evt types.LoopDiscoveredEvent) {
	b.publish(evt.Tenant, modules.Event{Discovered: &evt}, func(f types.EventFilter) bool {
		return matchesDiscovered(f, evt)
	})
}

// PublishLoopInvalidated satisfies modules.EventBus.
func (b *Bus) PublishLoopInvalidated(evt types.LoopInvalidatedEvent) {
	b.publish(evt.Tenant, modules.Event{Invalidated: &evt}, func(f types.EventFilter) bool {
		return !f.OnlyLoopDiscovered
	})
}

func (b *Bus) publish(tenant types.TenantID, evt modules.Event, match func(types.EventFilter) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.filtered[tenant] {
		if !match(sub.filter) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
		}
	}
}

// matchesDiscovered applies an EventFilter's wallet/item/collection
// narrowing to a loop_discovered event. A zero-value filter matches
// everything (spec.md §4.7).
func matchesDiscovered(f types.EventFilter, evt types.LoopDiscoveredEvent) bool {
	if f.OnlyLoopInvalidated {
		return false
	}
	if f.Wallet == "" && f.Item == "" && f.Collection == "" {
		return true
	}
	for _, step := range evt.Loop.Loop.Steps {
		if f.Wallet != "" && (step.From == f.Wallet || step.To == f.Wallet) {
			return true
		}
		for _, item := range step.Items {
			if f.Item != "" && item.ID == f.Item {
				return true
			}
			if f.Collection != "" && item.CollectionID == f.Collection {
				return true
			}
		}
	}
	return false
}

// SubscribeGraphChange satisfies modules.EventBus.
func (b *Bus) SubscribeGraphChange(tenant types.TenantID) (<-chan types.GraphChangeEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan types.GraphChangeEvent, subscriberBufferSize)
	if b.graph[tenant] == nil {
		b.graph[tenant] = make(map[int]chan types.GraphChangeEvent)
	}
	b.graph[tenant][id] = ch
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.graph[tenant]; ok {
			delete(set, id)
		}
		close(ch)
	}
	return ch, cancel
}

// Subscribe satisfies modules.EventBus.
func (b *Bus) Subscribe(tenant types.TenantID, filter types.EventFilter) (<-chan modules.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	sub := &subscription{ch: make(chan modules.Event, subscriberBufferSize), filter: filter}
	if b.filtered[tenant] == nil {
		b.filtered[tenant] = make(map[int]*subscription)
	}
	b.filtered[tenant][id] = sub
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.filtered[tenant]; ok {
			delete(set, id)
		}
		close(sub.ch)
	}
	return sub.ch, cancel
}
