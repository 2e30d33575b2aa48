// Package tenant implements the Tenant Isolation Layer of spec.md §4.8:
// each tenant gets its own Graph Store, Loop Cache and metric counters;
// the worker pool, event bus and fingerprinter stay shared across
// tenants and live outside this package.
package tenant

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/nftbarter/tradeloop-engine/modules"
	"github.com/nftbarter/tradeloop-engine/types"
)

// Metrics holds the per-tenant counters spec.md §4.8/§6 calls for
// (recompute duration, cache hit/miss, budget-exhausted count). No
// external metrics sink is wired - these are plain struct counters a
// caller can read for logging or a future exporter, matching the
// teacher's own logging-of-counters style rather than a metrics library.
type Metrics struct {
	RecomputeCount     uint64
	RecomputeNanos     uint64
	CacheHits          uint64
	CacheMisses        uint64
	BudgetExhaustedHit uint64
}

// RecordRecompute adds one completed recompute's wall-clock duration.
func (m *Metrics) RecordRecompute(d int64) {
	atomic.AddUint64(&m.RecomputeCount, 1)
	atomic.AddUint64(&m.RecomputeNanos, uint64(d))
}

// RecordCacheHit/RecordCacheMiss/RecordBudgetExhausted are the remaining
// counters' single-field bumps.
func (m *Metrics) RecordCacheHit()        { atomic.AddUint64(&m.CacheHits, 1) }
func (m *Metrics) RecordCacheMiss()       { atomic.AddUint64(&m.CacheMisses, 1) }
func (m *Metrics) RecordBudgetExhausted() { atomic.AddUint64(&m.BudgetExhaustedHit, 1) }

// Snapshot returns a point-in-time copy safe to log or serialize.
func (m *Metrics) Snapshot() Metrics {
	return Metrics{
		RecomputeCount:     atomic.LoadUint64(&m.RecomputeCount),
		RecomputeNanos:     atomic.LoadUint64(&m.RecomputeNanos),
		CacheHits:          atomic.LoadUint64(&m.CacheHits),
		CacheMisses:        atomic.LoadUint64(&m.CacheMisses),
		BudgetExhaustedHit: atomic.LoadUint64(&m.BudgetExhaustedHit),
	}
}

// usage is an approximate, monotonically-tracked upper bound on a
// tenant's item/want counts. Wallet count is read directly off the Graph
// Store's snapshot instead, since that is exact and already maintained
// there; items and wants are not separately indexed by the store (an
// item only becomes visible once it has an owner, and a removed want
// simply stops appearing in future deltas), so this package keeps a running
// total of the item/want counts of every admitted submission (an item or
// want submitted again is counted again) as a
// conservative stand-in for "how much state this tenant has accumulated".
type usage struct {
	items int64
	wants int64
}

// Container bundles one tenant's isolated state: its Graph Store, Loop
// Cache, resolved configuration, quotas and metrics.
type Container struct {
	Tenant  types.TenantID
	Store   modules.GraphStore
	Cache   modules.LoopCache
	Config  types.TenantConfig
	Metrics *Metrics

	usage usage
}

// CheckQuota reports types.ErrQuotaExceeded if admitting an ingestion call
// that adds newWallets/newItems/newWants would push the tenant past its
// configured Quotas. A zero quota field means "no limit" (types.Quotas).
func (c *Container) CheckQuota(newWallets, newItems, newWants int) error {
	q := c.Config.Quotas
	if q.MaxWallets > 0 {
		if len(c.Store.Snapshot().Wallets())+newWallets > q.MaxWallets {
			return types.ErrQuotaExceeded
		}
	}
	if q.MaxItems > 0 {
		if int(atomic.LoadInt64(&c.usage.items))+newItems > q.MaxItems {
			return types.ErrQuotaExceeded
		}
	}
	if q.MaxWants > 0 {
		if int(atomic.LoadInt64(&c.usage.wants))+newWants > q.MaxWants {
			return types.ErrQuotaExceeded
		}
	}
	if q.MaxLoopsCached > 0 && c.Cache.Len() > q.MaxLoopsCached {
		return types.ErrQuotaExceeded
	}
	return nil
}

// RecordUsage folds newly-admitted items/wants into the high-water mark
// CheckQuota compares against. Call only after ApplyDelta has succeeded.
func (c *Container) RecordUsage(newItems, newWants int) {
	atomic.AddInt64(&c.usage.items, int64(newItems))
	atomic.AddInt64(&c.usage.wants, int64(newWants))
}

// RecomputeDeadline satisfies the time-quota half of spec.md §4.8
// ("in-flight enumerations respect the time quota").
func (c *Container) RecomputeDeadline() (deadline int64, ok bool) {
	if c.Config.Quotas.MaxRecomputeTime <= 0 {
		return 0, false
	}
	return int64(c.Config.Quotas.MaxRecomputeTime), true
}

// Factory constructs the concrete GraphStore/LoopCache pair for a newly
// registered tenant. Kept as an injected function so tests can swap in
// lightweight fakes without this package importing graphstore's DeltaSink
// wiring directly.
type Factory struct {
	NewStore func(tenant types.TenantID) modules.GraphStore
	NewCache func(tenant types.TenantID, cfg types.TenantConfig, clock modules.Clock, bus modules.EventBus) (modules.LoopCache, error)
	Clock    modules.Clock
	Bus      modules.EventBus
}

// Registry is the Tenant Isolation Layer: it resolves a tenant id to its
// Container, creating one lazily on first use with the tenant's
// configured (or default) limits. It also satisfies modules.TenantRegistry
// so it can be handed directly to collaborators that only need config
// resolution.
type Registry struct {
	factory Factory
	configs modules.TenantRegistry // optional external config source; may be nil

	mu         sync.RWMutex
	containers map[types.TenantID]*Container
}

// NewRegistry returns an empty Registry. configs may be nil, in which
// case every tenant gets types.DefaultTenantConfig().
func NewRegistry(factory Factory, configs modules.TenantRegistry) *Registry {
	return &Registry{
		factory:    factory,
		configs:    configs,
		containers: make(map[types.TenantID]*Container),
	}
}

// Config satisfies modules.TenantRegistry.
func (r *Registry) Config(ctx context.Context, tenant types.TenantID) (types.TenantConfig, error) {
	if r.configs != nil {
		return r.configs.Config(ctx, tenant)
	}
	return types.DefaultTenantConfig(), nil
}

// Get returns the tenant's Container, creating it on first access.
func (r *Registry) Get(ctx context.Context, tenant types.TenantID) (*Container, error) {
	r.mu.RLock()
	c, ok := r.containers[tenant]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.containers[tenant]; ok {
		return c, nil
	}

	cfg, err := r.Config(ctx, tenant)
	if err != nil {
		return nil, err
	}
	cfg = cfg.Clamp()

	cache, err := r.factory.NewCache(tenant, cfg, r.factory.Clock, r.factory.Bus)
	if err != nil {
		return nil, err
	}

	c = &Container{
		Tenant:  tenant,
		Store:   r.factory.NewStore(tenant),
		Cache:   cache,
		Config:  cfg,
		Metrics: &Metrics{},
	}
	r.containers[tenant] = c
	return c, nil
}

// Tenants lists every tenant with a live Container, for admin/ops surfaces.
func (r *Registry) Tenants() []types.TenantID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.TenantID, 0, len(r.containers))
	for t := range r.containers {
		out = append(out, t)
	}
	return out
}

// Close shuts down every tenant's Graph Store (closing any replay log it
// holds) and returns the first error encountered, continuing to close
// the rest.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, c := range r.containers {
		if err := c.Store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ modules.TenantRegistry = (*Registry)(nil)
