package types

import "time"

// Quotas bounds a single tenant's resource consumption (spec.md §4.8).
// Exceeding any quota returns ErrQuotaExceeded on the offending ingestion
// call; zero means "no limit".
type Quotas struct {
	MaxWallets       int
	MaxItems         int
	MaxWants         int
	MaxLoopsCached   int
	MaxRecomputeTime time.Duration
}

// TenantConfig carries the per-tenant tunables enumerated in spec.md §6.
// Values are resolved against engine-wide defaults by the Tenant Isolation
// Layer when a tenant is first registered.
type TenantConfig struct {
	MaxLoopLength          int           // hard cap 20, default 10
	MinScore               float64       // loops below are never cached
	DebounceWindow         time.Duration // coalescing window, default 250ms; the scheduler applies one process-wide window (scheduler.Config.DebounceWindow) and does not read this per-tenant value
	RecomputeDeadline      time.Duration // per-recompute time budget
	CacheTTL               time.Duration // loop freshness window, default 10m
	CacheMaxEntries        int           // LRU cap
	PerTenantQueueCap      int           // before collapse to full rescan; the scheduler applies one process-wide cap (scheduler.Config.QueueCap) and does not read this per-tenant value
	CollectionExpansionCap int           // passed to the enumerator as EnumerationLimits.CollectionExpansionCap; the enumerator does not apply it, so collection-wants are not capped

	Quotas Quotas
}

// DefaultMaxLoopLength and HardMaxLoopLength are the cycle-length
// bounds fixed by spec.md §4.3.
const (
	DefaultMaxLoopLength = 10
	HardMaxLoopLength    = 20
)

// DefaultTenantConfig returns the spec-mandated defaults (spec.md §4.6, §4.5, §6).
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		MaxLoopLength:          DefaultMaxLoopLength,
		MinScore:               0,
		DebounceWindow:         250 * time.Millisecond,
		RecomputeDeadline:      2 * time.Second,
		CacheTTL:               10 * time.Minute,
		CacheMaxEntries:        10000,
		PerTenantQueueCap:      64,
		CollectionExpansionCap: 256,
		Quotas: Quotas{
			MaxWallets:       100000,
			MaxItems:         1000000,
			MaxWants:         1000000,
			MaxLoopsCached:   10000,
			MaxRecomputeTime: 2 * time.Second,
		},
	}
}

// Clamp enforces the hard invariants on a TenantConfig that a tenant's own
// override cannot relax (the length hard cap of spec.md §4.3).
func (c TenantConfig) Clamp() TenantConfig {
	if c.MaxLoopLength <= 0 {
		c.MaxLoopLength = DefaultMaxLoopLength
	}
	if c.MaxLoopLength > HardMaxLoopLength {
		c.MaxLoopLength = HardMaxLoopLength
	}
	if c.CollectionExpansionCap <= 0 {
		c.CollectionExpansionCap = DefaultTenantConfig().CollectionExpansionCap
	}
	return c
}

// EngineOptions bundles the process-wide tunables of spec.md §6 that are not
// per-tenant.
type EngineOptions struct {
	WorkerPoolSize int // global parallelism, target: number of CPU cores
}
