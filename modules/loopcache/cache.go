// Package loopcache implements the Loop Cache of spec.md §4.5: a
// fingerprint-keyed, TTL+LRU cache of scored trade loops with single-flight
// builder semantics, predicate-based invalidation, and a paginated list
// query.
package loopcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/nftbarter/tradeloop-engine/modules"
	"github.com/nftbarter/tradeloop-engine/types"
)

// Cache satisfies modules.LoopCache for a single tenant.
type Cache struct {
	tenant types.TenantID
	clock  modules.Clock
	bus    modules.EventBus // may be nil

	mu            sync.Mutex
	entries       *lru.Cache
	byWallet      map[types.WalletID]map[types.LoopFingerprint]struct{}
	byItem        map[types.ItemID]map[types.LoopFingerprint]struct{}
	lastRecompute time.Time

	sf singleflight.Group
}

// New returns a Cache bounded to maxEntries, with bus optionally receiving
// loop_discovered/loop_invalidated events as they happen. clock defaults to
// modules.RealClock{} if nil.
func New(tenant types.TenantID, maxEntries int, clock modules.Clock, bus modules.EventBus) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = types.DefaultTenantConfig().CacheMaxEntries
	}
	if clock == nil {
		clock = modules.RealClock{}
	}
	c := &Cache{
		tenant:   tenant,
		clock:    clock,
		bus:      bus,
		byWallet: make(map[types.WalletID]map[types.LoopFingerprint]struct{}),
		byItem:   make(map[types.ItemID]map[types.LoopFingerprint]struct{}),
	}
	entries, err := lru.NewWithEvict(maxEntries, c.onEvicted)
	if err != nil {
		return nil, fmt.Errorf("loopcache: %w", err)
	}
	c.entries = entries
	return c, nil
}

// onEvicted keeps the secondary indices consistent when the LRU cap forces
// out the least-recently-used entry. This is housekeeping, not a business
// invalidation, so no event is published (spec.md §4.5 ties loop_invalidated
// to ownership/want changes and explicit policy/TTL reasons, not cache
// pressure).
func (c *Cache) onEvicted(key, value interface{}) {
	loop := value.(types.CachedLoop)
	c.unindex(loop)
}

// GetOrBuild satisfies modules.LoopCache.
func (c *Cache) GetOrBuild(ctx context.Context, fp types.LoopFingerprint, build func(ctx context.Context) (types.CachedLoop, error)) (types.CachedLoop, error) {
	if loop, ok := c.peek(fp); ok && !loop.Expired(c.clock.Now()) {
		return loop, nil
	}
	if build == nil {
		return types.CachedLoop{}, types.ErrCacheMiss
	}

	v, err, _ := c.sf.Do(string(fp), func() (interface{}, error) {
		loop, buildErr := build(ctx)
		if buildErr != nil {
			return types.CachedLoop{}, buildErr
		}
		c.Store(loop)
		return loop, nil
	})
	if err != nil {
		return types.CachedLoop{}, fmt.Errorf("%w: %v", types.ErrBuilderFailed, err)
	}
	return v.(types.CachedLoop), nil
}

func (c *Cache) peek(fp types.LoopFingerprint) (types.CachedLoop, bool) {
	v, ok := c.entries.Get(fp)
	if !ok {
		return types.CachedLoop{}, false
	}
	return v.(types.CachedLoop), true
}

// Store satisfies modules.LoopCache.
func (c *Cache) Store(loop types.CachedLoop) {
	c.mu.Lock()
	c.lastRecompute = c.clock.Now()
	c.entries.Add(loop.Fingerprint, loop)
	c.index(loop)
	c.mu.Unlock()

	if c.bus != nil {
		c.bus.PublishLoopDiscovered(types.LoopDiscoveredEvent{
			Tenant: c.tenant,
			Loop:   loop,
			At:     c.clock.Now(),
		})
	}
}

// Invalidate satisfies modules.LoopCache.
func (c *Cache) Invalidate(pred func(types.CachedLoop) (bool, types.InvalidationReason)) {
	c.mu.Lock()
	var toRemove []types.CachedLoop
	var reasons []types.InvalidationReason
	for _, key := range c.entries.Keys() {
		v, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		loop := v.(types.CachedLoop)
		if remove, reason := pred(loop); remove {
			toRemove = append(toRemove, loop)
			reasons = append(reasons, reason)
		}
	}
	for _, loop := range toRemove {
		c.entries.Remove(loop.Fingerprint)
		c.unindex(loop)
	}
	c.mu.Unlock()

	if c.bus == nil {
		return
	}
	now := c.clock.Now()
	for i, loop := range toRemove {
		c.bus.PublishLoopInvalidated(types.LoopInvalidatedEvent{
			Tenant:      c.tenant,
			Fingerprint: loop.Fingerprint,
			Reason:      reasons[i],
			At:          now,
		})
	}
}

// Len satisfies modules.LoopCache.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) index(loop types.CachedLoop) {
	for _, step := range loop.Loop.Steps {
		c.addTo(c.byWallet, step.From, loop.Fingerprint)
		c.addTo(c.byWallet, step.To, loop.Fingerprint)
		for _, item := range step.Items {
			c.addToItem(item.ID, loop.Fingerprint)
		}
	}
}

func (c *Cache) unindex(loop types.CachedLoop) {
	for _, step := range loop.Loop.Steps {
		c.removeFrom(c.byWallet, step.From, loop.Fingerprint)
		c.removeFrom(c.byWallet, step.To, loop.Fingerprint)
		for _, item := range step.Items {
			c.removeFromItem(item.ID, loop.Fingerprint)
		}
	}
}

func (c *Cache) addTo(idx map[types.WalletID]map[types.LoopFingerprint]struct{}, w types.WalletID, fp types.LoopFingerprint) {
	if idx[w] == nil {
		idx[w] = make(map[types.LoopFingerprint]struct{})
	}
	idx[w][fp] = struct{}{}
}

func (c *Cache) removeFrom(idx map[types.WalletID]map[types.LoopFingerprint]struct{}, w types.WalletID, fp types.LoopFingerprint) {
	if set, ok := idx[w]; ok {
		delete(set, fp)
		if len(set) == 0 {
			delete(idx, w)
		}
	}
}

func (c *Cache) addToItem(item types.ItemID, fp types.LoopFingerprint) {
	if c.byItem[item] == nil {
		c.byItem[item] = make(map[types.LoopFingerprint]struct{})
	}
	c.byItem[item][fp] = struct{}{}
}

func (c *Cache) removeFromItem(item types.ItemID, fp types.LoopFingerprint) {
	if set, ok := c.byItem[item]; ok {
		delete(set, fp)
		if len(set) == 0 {
			delete(c.byItem, item)
		}
	}
}
