// Package config loads the engine's on-disk configuration: process-wide
// tunables plus optional per-tenant overrides of the spec-mandated defaults
// (spec.md §6). It plays the role cmd/rivinecg/pkg/config plays in the
// teacher - a TOML-marshaled settings struct with a generator for a
// ready-to-edit default file - generalized from genesis/chain-constants
// generation to per-tenant engine tuning.
package config

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pelletier/go-toml"

	"github.com/nftbarter/tradeloop-engine/types"
)

func millis(n int64) time.Duration  { return time.Duration(n) * time.Millisecond }
func seconds(n int64) time.Duration { return time.Duration(n) * time.Second }

// EngineConfig is the top-level on-disk configuration file: process-wide
// options plus a named table of per-tenant overrides.
type EngineConfig struct {
	Engine  types.EngineOptions
	Logging Logging
	Persist Persist
	Tenants map[string]TenantOverride
}

// Logging controls persist.Logger's verbosity and file location.
type Logging struct {
	Verbose bool
	LogDir  string
}

// Persist controls where the delta-log replay store is kept. Filename
// empty means persistence is disabled (graphstore.Store gets a nil sink).
type Persist struct {
	Filename string
}

// TenantOverride is a TOML-friendly mirror of types.TenantConfig: every
// field is a pointer so an absent key in the file means "use the engine
// default" rather than "set to the zero value".
type TenantOverride struct {
	MaxLoopLength          *int
	MinScore               *float64
	DebounceWindowMillis   *int64
	RecomputeDeadlineMs    *int64
	CacheTTLSeconds        *int64
	CacheMaxEntries        *int
	PerTenantQueueCap      *int
	CollectionExpansionCap *int

	MaxWallets       *int
	MaxItems         *int
	MaxWants         *int
	MaxLoopsCached   *int
	MaxRecomputeTime *int64
}

// DefaultEngineConfig returns a ready-to-run configuration: the spec
// defaults for every tenant, a fixed worker pool of 4, and persistence
// disabled.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Engine: types.EngineOptions{
			WorkerPoolSize: 4,
		},
		Logging: Logging{
			Verbose: false,
			LogDir:  "logs",
		},
		Tenants: make(map[string]TenantOverride),
	}
}

// Load reads and parses filename into an EngineConfig. A missing file is
// not an error: the caller gets DefaultEngineConfig back.
func Load(filename string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()
	raw, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return EngineConfig{}, fmt.Errorf("config: could not read %s: %w", filename, err)
	}
	if err := toml.Unmarshal(raw, &cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("config: could not parse %s: %w", filename, err)
	}
	if cfg.Tenants == nil {
		cfg.Tenants = make(map[string]TenantOverride)
	}
	return cfg, nil
}

// Save marshals cfg to filename as TOML, creating or truncating it.
func Save(filename string, cfg EngineConfig) error {
	raw, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: could not marshal config: %w", err)
	}
	return os.WriteFile(filename, raw, 0644)
}

// Registry adapts an EngineConfig's per-tenant overrides into a
// modules.TenantRegistry, resolving a tenant id to a fully-clamped
// types.TenantConfig.
type Registry struct {
	mu      sync.RWMutex
	tenants map[string]TenantOverride
}

// NewRegistry builds a Registry from the Tenants table of an already-loaded
// EngineConfig.
func NewRegistry(cfg EngineConfig) *Registry {
	tenants := make(map[string]TenantOverride, len(cfg.Tenants))
	for k, v := range cfg.Tenants {
		tenants[k] = v
	}
	return &Registry{tenants: tenants}
}

// Config satisfies modules.TenantRegistry: it overlays any override found
// for tenant onto types.DefaultTenantConfig and clamps the result.
func (r *Registry) Config(ctx context.Context, tenant types.TenantID) (types.TenantConfig, error) {
	r.mu.RLock()
	override, ok := r.tenants[string(tenant)]
	r.mu.RUnlock()

	cfg := types.DefaultTenantConfig()
	if ok {
		applyOverride(&cfg, override)
	}
	return cfg.Clamp(), nil
}

// SetOverride installs or replaces tenant's override, taking effect on the
// next Config call.
func (r *Registry) SetOverride(tenant types.TenantID, override TenantOverride) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[string(tenant)] = override
}

func applyOverride(cfg *types.TenantConfig, o TenantOverride) {
	if o.MaxLoopLength != nil {
		cfg.MaxLoopLength = *o.MaxLoopLength
	}
	if o.MinScore != nil {
		cfg.MinScore = *o.MinScore
	}
	if o.DebounceWindowMillis != nil {
		cfg.DebounceWindow = millis(*o.DebounceWindowMillis)
	}
	if o.RecomputeDeadlineMs != nil {
		cfg.RecomputeDeadline = millis(*o.RecomputeDeadlineMs)
	}
	if o.CacheTTLSeconds != nil {
		cfg.CacheTTL = seconds(*o.CacheTTLSeconds)
	}
	if o.CacheMaxEntries != nil {
		cfg.CacheMaxEntries = *o.CacheMaxEntries
	}
	if o.PerTenantQueueCap != nil {
		cfg.PerTenantQueueCap = *o.PerTenantQueueCap
	}
	if o.CollectionExpansionCap != nil {
		cfg.CollectionExpansionCap = *o.CollectionExpansionCap
	}
	if o.MaxWallets != nil {
		cfg.Quotas.MaxWallets = *o.MaxWallets
	}
	if o.MaxItems != nil {
		cfg.Quotas.MaxItems = *o.MaxItems
	}
	if o.MaxWants != nil {
		cfg.Quotas.MaxWants = *o.MaxWants
	}
	if o.MaxLoopsCached != nil {
		cfg.Quotas.MaxLoopsCached = *o.MaxLoopsCached
	}
	if o.MaxRecomputeTime != nil {
		cfg.Quotas.MaxRecomputeTime = millis(*o.MaxRecomputeTime)
	}
}
