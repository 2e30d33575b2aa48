// Package modules declares the interfaces shared between the engine's
// internal components (Graph Store, Enumerator, Scoring & Filter, Loop
// Cache, Scheduler, Event Bus, Persistent Trade Service) and the external
// collaborators it consumes from (NFTMetadataProvider, BlockchainAdapter,
// TenantRegistry, Clock). It plays the role modules/transactionpool.go and
// modules/wallet.go play in the teacher: a dependency-free package that
// concrete implementations import, and that callers code against.
package modules

import (
	"context"
	"time"

	"github.com/nftbarter/tradeloop-engine/types"
)

type (
	// GraphStore is the per-tenant adjacency and reverse-want index
	// described in spec.md §4.1. A concrete GraphStore is always scoped to
	// exactly one tenant; the Tenant Isolation Layer owns one instance per
	// tenant.
	GraphStore interface {
		// ApplyDelta atomically applies delta, returning the perturbation
		// set: wallets whose outgoing or incoming edges changed.
		ApplyDelta(ctx context.Context, delta types.GraphDelta) (perturbed []types.WalletID, snapshotVer uint64, err error)

		// Snapshot returns a cheap, immutable view for enumeration.
		Snapshot() GraphSnapshot

		// Close releases any resources (e.g. a replay log) held by the store.
		Close() error
	}

	// GraphSnapshot is an immutable view of a tenant's want-graph at a
	// point in time (spec.md §4.1, §5 "Snapshot isolation").
	GraphSnapshot interface {
		Tenant() types.TenantID
		Version() uint64
		Wallets() []types.WalletID
		NeighborsOut(w types.WalletID) []types.WalletID
		NeighborsIn(w types.WalletID) []types.WalletID
		ItemsJustifying(from, to types.WalletID) []types.ItemRef
		Owner(item types.ItemID) (types.WalletID, bool)
		OwnsItem(w types.WalletID, item types.ItemID) bool
		Wants(w types.WalletID, item types.ItemRef) bool
	}

	// Enumerator produces candidate trade loops from a snapshot, seeded by
	// the wallets a delta perturbed (spec.md §4.3).
	Enumerator interface {
		Enumerate(ctx context.Context, snap GraphSnapshot, seeds []types.WalletID, limits EnumerationLimits) EnumerationResult
	}

	// Scorer applies the viability score and tenant policy filter
	// (spec.md §4.4). Implementations must be deterministic and must not
	// mutate shared state.
	Scorer interface {
		Score(loop types.TradeLoop) float64
		Accept(loop types.TradeLoop, score float64) bool
	}

	// LoopCache is the fingerprint-keyed, TTL+LRU, single-flight cache of
	// scored loops (spec.md §4.5).
	LoopCache interface {
		GetOrBuild(ctx context.Context, fp types.LoopFingerprint, build func(ctx context.Context) (types.CachedLoop, error)) (types.CachedLoop, error)
		Store(loop types.CachedLoop)
		Invalidate(pred func(types.CachedLoop) (bool, types.InvalidationReason))
		List(ctx context.Context, q types.TradeQuery) (types.TradePage, error)
		Len() int
	}

	// Scheduler coalesces GraphChangeEvents into per-tenant recompute tasks
	// and runs them on a fair, bounded worker pool (spec.md §4.6).
	Scheduler interface {
		Notify(evt types.GraphChangeEvent)
		Start(ctx context.Context)
		Stop()
	}

	// EventBus is the internal publish/subscribe fabric connecting the
	// Graph Store, Scheduler and Loop Cache to external subscribers
	// (spec.md §4.9 data flow; §9 "Event listeners... explicit event bus").
	EventBus interface {
		PublishGraphChange(types.GraphChangeEvent)
		PublishLoopDiscovered(types.LoopDiscoveredEvent)
		PublishLoopInvalidated(types.LoopInvalidatedEvent)

		SubscribeGraphChange(tenant types.TenantID) (ch <-chan types.GraphChangeEvent, cancel func())
		Subscribe(tenant types.TenantID, filter types.EventFilter) (ch <-chan Event, cancel func())
	}

	// Event is the tagged union delivered to subscribe() callers
	// (spec.md §6 "Event stream frames").
	Event struct {
		Discovered  *types.LoopDiscoveredEvent
		Invalidated *types.LoopInvalidatedEvent
	}

	// EnumerationLimits bounds a single enumeration call (spec.md §4.3).
	EnumerationLimits struct {
		MaxLoopLen             int
		MaxLoopsPerCall        int
		TimeBudget             time.Duration
		CollectionExpansionCap int
		MinScoreUpperBound     float64
	}

	// EnumerationResult is what a bounded enumeration call produces.
	EnumerationResult struct {
		Loops        []types.TradeLoop
		Exhausted    bool   // true if TimeBudget or MaxLoopsPerCall cut the search short
		Continuation []byte // opaque token listing the seeds not yet processed (no mid-search DFS state), valid only if Exhausted
	}

	// NFTMetadataProvider resolves an item address to metadata. Consumed
	// only at ingestion time; the Enumerator never calls it directly
	// (spec.md §5 "Shared resources").
	NFTMetadataProvider interface {
		Resolve(ctx context.Context, item types.ItemID) (collection types.CollectionID, ok bool, err error)
	}

	// BlockchainAdapter materializes an abstract TradeLoop into a
	// chain-specific atomic-swap payload. Opaque to discovery (spec.md §1).
	BlockchainAdapter interface {
		Materialize(ctx context.Context, loop types.TradeLoop) (payload []byte, err error)
	}

	// TenantRegistry resolves a tenant id to its configuration/limits
	// (spec.md §1).
	TenantRegistry interface {
		Config(ctx context.Context, tenant types.TenantID) (types.TenantConfig, error)
	}

	// Clock is injected everywhere wall time is observed, so tests can
	// control debounce windows, TTLs and deadlines deterministically.
	Clock interface {
		Now() time.Time
		After(d time.Duration) <-chan time.Time
	}

	// ItemValuer supplies the non-negative value figure the Scoring &
	// Filter component uses for its fairness/dispersion term (spec.md §4.4).
	ItemValuer interface {
		Value(ctx context.Context, item types.ItemRef) (float64, error)
	}
)
