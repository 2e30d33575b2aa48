// Package tradeservice implements the Persistent Trade Service façade of
// spec.md §4.7: the single surface external HTTP/CLI collaborators use to
// ingest inventory/want/transfer events, query cached trade loops, and
// subscribe to the event stream. Every mutating call constructs a
// GraphDelta, applies it to the tenant's Graph Store, notifies the
// Scheduler of the resulting perturbation, and returns synchronously -
// discovery itself always happens asynchronously on the Scheduler's
// worker pool.
package tradeservice

import (
	"context"
	"time"

	"github.com/nftbarter/tradeloop-engine/modules"
	"github.com/nftbarter/tradeloop-engine/modules/tenant"
	"github.com/nftbarter/tradeloop-engine/types"
)

// InventoryMode selects whether submit_inventory merges into or replaces
// a wallet's owned set (spec.md §4.7 "mode is a parameter").
type InventoryMode int

const (
	InventoryMerge InventoryMode = iota
	InventoryReplace
)

// Service is the Persistent Trade Service façade.
type Service struct {
	registry  *tenant.Registry
	scheduler modules.Scheduler
	bus       modules.EventBus
	clock     modules.Clock
}

// New wires a Service over an already-constructed Tenant Registry,
// Scheduler and Event Bus. clock defaults to modules.RealClock{} if nil.
func New(registry *tenant.Registry, scheduler modules.Scheduler, bus modules.EventBus, clock modules.Clock) *Service {
	if clock == nil {
		clock = modules.RealClock{}
	}
	return &Service{registry: registry, scheduler: scheduler, bus: bus, clock: clock}
}

// SubmitInventory satisfies spec.md §4.7's submit_inventory.
func (s *Service) SubmitInventory(ctx context.Context, t types.TenantID, wallet types.WalletID, items []types.ItemRef, mode InventoryMode) error {
	c, err := s.registry.Get(ctx, t)
	if err != nil {
		return err
	}
	if err := c.CheckQuota(1, len(items), 0); err != nil {
		return err
	}

	kind := types.DeltaInventoryMerge
	if mode == InventoryReplace {
		kind = types.DeltaInventoryReplace
	}
	delta := types.GraphDelta{Tenant: t, Kind: kind, Wallet: wallet, Items: items}
	return s.commit(ctx, c, delta, len(items), 0)
}

// SubmitWants satisfies spec.md §4.7's submit_wants.
func (s *Service) SubmitWants(ctx context.Context, t types.TenantID, wallet types.WalletID, specificItems []types.ItemID, collections []types.CollectionID) error {
	c, err := s.registry.Get(ctx, t)
	if err != nil {
		return err
	}
	newWants := len(specificItems) + len(collections)
	if err := c.CheckQuota(1, 0, newWants); err != nil {
		return err
	}

	delta := types.GraphDelta{
		Tenant: t,
		Kind:   types.DeltaWantsMerge,
		Wallet: wallet,
		Wants:  types.WantSet{SpecificItems: specificItems, Collections: collections},
	}
	return s.commit(ctx, c, delta, 0, newWants)
}

// Transfer satisfies spec.md §4.7's transfer.
func (s *Service) Transfer(ctx context.Context, t types.TenantID, item types.ItemID, from, to types.WalletID) error {
	c, err := s.registry.Get(ctx, t)
	if err != nil {
		return err
	}
	delta := types.GraphDelta{Tenant: t, Kind: types.DeltaTransfer, Item: item, From: from, To: to}
	return s.commit(ctx, c, delta, 0, 0)
}

// RemoveWallet tears down a wallet's inventory and wants entirely. Not
// named as its own bullet in spec.md §4.7 but DeltaRemoveWallet exists in
// the delta model §4.1 defines and needs a call site somewhere; submit_
// inventory/wants only ever add, so this is the façade's home for it.
func (s *Service) RemoveWallet(ctx context.Context, t types.TenantID, wallet types.WalletID) error {
	c, err := s.registry.Get(ctx, t)
	if err != nil {
		return err
	}
	delta := types.GraphDelta{Tenant: t, Kind: types.DeltaRemoveWallet, Wallet: wallet}
	return s.commit(ctx, c, delta, 0, 0)
}

// commit applies delta, records quota usage, publishes the graph-change
// event, notifies the Scheduler of the resulting perturbation, and - per
// the Graph Store -> Event Bus -> Loop Cache dependency of spec.md §4.5 -
// invalidates any cached loop an ownership-changing delta perturbed, so no
// read after this call can observe a loop built on stale ownership
// (spec.md Invariant 1, "Invalidation promptness").
func (s *Service) commit(ctx context.Context, c *tenant.Container, delta types.GraphDelta, newItems, newWants int) error {
	perturbed, ver, err := c.Store.ApplyDelta(ctx, delta)
	if err != nil {
		return err
	}
	c.RecordUsage(newItems, newWants)

	evt := types.GraphChangeEvent{
		Tenant:      delta.Tenant,
		Perturbed:   perturbed,
		SnapshotVer: ver,
		At:          s.clock.Now(),
	}
	if s.bus != nil {
		s.bus.PublishGraphChange(evt)
	}
	if s.scheduler != nil {
		s.scheduler.Notify(evt)
	}
	invalidateOnOwnershipChange(c, delta, perturbed)
	return nil
}

// invalidateOnOwnershipChange removes any cached loop whose step set
// intersects the (wallet, item) pairs an ownership-changing delta
// perturbed (spec.md §4.5's eviction policy). submit_wants never changes
// ownership, so it is not an invalidation trigger here.
func invalidateOnOwnershipChange(c *tenant.Container, delta types.GraphDelta, perturbed []types.WalletID) {
	switch delta.Kind {
	case types.DeltaTransfer, types.DeltaInventoryMerge, types.DeltaInventoryReplace, types.DeltaRemoveWallet:
	default:
		return
	}

	wallets := make(map[types.WalletID]struct{}, len(perturbed))
	for _, w := range perturbed {
		wallets[w] = struct{}{}
	}
	items := map[types.ItemID]struct{}{}
	if delta.Kind == types.DeltaTransfer {
		items[delta.Item] = struct{}{}
	}
	for _, item := range delta.Items {
		items[item.ID] = struct{}{}
	}

	c.Cache.Invalidate(func(loop types.CachedLoop) (bool, types.InvalidationReason) {
		for _, step := range loop.Loop.Steps {
			if _, ok := wallets[step.From]; ok {
				return true, types.ReasonOwnerChanged
			}
			if _, ok := wallets[step.To]; ok {
				return true, types.ReasonOwnerChanged
			}
			for _, item := range step.Items {
				if _, ok := items[item.ID]; ok {
					return true, types.ReasonOwnerChanged
				}
			}
		}
		return false, 0
	})
}

// QueryTrades satisfies spec.md §4.7's query_trades. Queries never fail
// because of a failed recompute (spec.md §7 "Propagation policy") - they
// always return whatever the Loop Cache currently holds.
func (s *Service) QueryTrades(ctx context.Context, t types.TenantID, q types.TradeQuery) (types.TradePage, error) {
	c, err := s.registry.Get(ctx, t)
	if err != nil {
		return types.TradePage{}, err
	}
	page, err := c.Cache.List(ctx, q)
	if err != nil {
		return types.TradePage{}, err
	}
	if len(page.Loops) > 0 {
		c.Metrics.RecordCacheHit()
	} else {
		c.Metrics.RecordCacheMiss()
	}
	return page, nil
}

// Subscribe satisfies spec.md §4.7's subscribe.
func (s *Service) Subscribe(ctx context.Context, t types.TenantID, filter types.EventFilter) (<-chan modules.Event, func(), error) {
	if s.bus == nil {
		return nil, func() {}, types.ErrUnknownTenant
	}
	ch, cancel := s.bus.Subscribe(t, filter)
	return ch, cancel, nil
}

// Freshness reports how long ago the tenant's Loop Cache last stored a
// loop, the freshness indicator that accompanies query results. A
// recompute that stores no loop does not reset it; it is 0 when the cache
// has never stored one.
func (s *Service) Freshness(ctx context.Context, t types.TenantID) (time.Duration, error) {
	c, err := s.registry.Get(ctx, t)
	if err != nil {
		return 0, err
	}
	page, err := c.Cache.List(ctx, types.TradeQuery{Limit: 1})
	if err != nil {
		return 0, err
	}
	if page.LastRecompute.IsZero() {
		return 0, nil
	}
	return s.clock.Now().Sub(page.LastRecompute), nil
}
