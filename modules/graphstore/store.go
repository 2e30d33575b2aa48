// Package graphstore implements the per-tenant Graph Store of spec.md §4.1:
// the want-graph state (owners, inventories, want sets, cached adjacency)
// and the apply_delta/snapshot operations built on top of it. It plays the
// role modules/transactionpool played in the teacher - the single piece of
// mutable, lock-guarded state the rest of the engine reads through
// snapshots - generalized from "unconfirmed transaction set" to "per-tenant
// want-graph".
package graphstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/nftbarter/tradeloop-engine/modules"
	"github.com/nftbarter/tradeloop-engine/types"
)

type walletPair struct {
	from, to types.WalletID
}

// DeltaSink is the optional append-only replay log a Store writes committed
// deltas to (spec.md §6 "Persistence boundary (optional)"). persist.DeltaLog
// implements it; nil means no persistence.
type DeltaSink interface {
	Append(tenant types.TenantID, seq uint64, delta types.GraphDelta) error
}

// Store is a single tenant's Graph Store. The zero value is not usable; use
// New. A Store is safe for concurrent use: apply_delta serializes writers,
// snapshot readers clone state under a brief read lock and never block the
// writer (spec.md §5).
type Store struct {
	tenant types.TenantID
	sink   DeltaSink

	// writerTok is a 1-buffered token channel that implements apply_delta's
	// context-deadline acquire semantics (ErrTimeout). mu is the actual
	// state lock: Lock during mutation, RLock while Snapshot clones.
	writerTok chan struct{}
	mu        sync.RWMutex

	version uint64

	owners          map[types.ItemID]types.WalletID
	inventory       map[types.WalletID]map[types.ItemID]struct{}
	itemCollection  map[types.ItemID]types.CollectionID
	collectionItems map[types.CollectionID]map[types.ItemID]struct{}

	specificWants   map[types.WalletID]map[types.ItemID]struct{}
	collectionWants map[types.WalletID]map[types.CollectionID]struct{}

	wantedBy          map[types.ItemID]map[types.WalletID]struct{}
	collectionWanters map[types.CollectionID]map[types.WalletID]struct{}

	// adjacency/edgeLabels cache ONLY the specific-want edges; collection-
	// derived edges are resolved on demand (spec.md §4.1 "MUST NOT
	// enumerate all members eagerly").
	adjacencyOut map[types.WalletID]map[types.WalletID]struct{}
	adjacencyIn  map[types.WalletID]map[types.WalletID]struct{}
	edgeLabels   map[walletPair]map[types.ItemID]struct{}
}

// New returns a ready-to-use, empty Graph Store for tenant. sink may be nil.
func New(tenant types.TenantID, sink DeltaSink) *Store {
	s := &Store{
		tenant:            tenant,
		sink:              sink,
		writerTok:         make(chan struct{}, 1),
		owners:            make(map[types.ItemID]types.WalletID),
		inventory:         make(map[types.WalletID]map[types.ItemID]struct{}),
		itemCollection:    make(map[types.ItemID]types.CollectionID),
		collectionItems:   make(map[types.CollectionID]map[types.ItemID]struct{}),
		specificWants:     make(map[types.WalletID]map[types.ItemID]struct{}),
		collectionWants:   make(map[types.WalletID]map[types.CollectionID]struct{}),
		wantedBy:          make(map[types.ItemID]map[types.WalletID]struct{}),
		collectionWanters: make(map[types.CollectionID]map[types.WalletID]struct{}),
		adjacencyOut:      make(map[types.WalletID]map[types.WalletID]struct{}),
		adjacencyIn:       make(map[types.WalletID]map[types.WalletID]struct{}),
		edgeLabels:        make(map[walletPair]map[types.ItemID]struct{}),
	}
	s.writerTok <- struct{}{}
	return s
}

// Close releases the store's replay-log handle, if any.
func (s *Store) Close() error {
	if closer, ok := s.sink.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// acquireWriter implements the ctx-deadline writer-lock semantics required
// by apply_delta (spec.md §5 "An ingestion call that cannot acquire the
// writer lock within its deadline fails with Timeout").
func (s *Store) acquireWriter(ctx context.Context) error {
	select {
	case <-s.writerTok:
		return nil
	case <-ctx.Done():
		return types.ErrTimeout
	}
}

func (s *Store) releaseWriter() {
	s.writerTok <- struct{}{}
}

// ApplyDelta satisfies modules.GraphStore.
func (s *Store) ApplyDelta(ctx context.Context, delta types.GraphDelta) ([]types.WalletID, uint64, error) {
	if err := delta.Validate(); err != nil {
		return nil, s.currentVersion(), err
	}
	if delta.Tenant != s.tenant {
		return nil, s.currentVersion(), types.ErrTenantMismatch
	}
	if err := s.acquireWriter(ctx); err != nil {
		return nil, s.currentVersion(), err
	}
	defer s.releaseWriter()

	s.mu.Lock()
	var perturbed map[types.WalletID]struct{}
	switch delta.Kind {
	case types.DeltaInventoryMerge:
		perturbed = s.applyInventory(delta.Wallet, delta.Items, false)
	case types.DeltaInventoryReplace:
		perturbed = s.applyInventory(delta.Wallet, delta.Items, true)
	case types.DeltaWantsMerge:
		perturbed = s.applyWants(delta.Wallet, delta.Wants)
	case types.DeltaTransfer:
		owner, ok := s.owners[delta.Item]
		if !ok || owner != delta.From {
			s.mu.Unlock()
			if !ok {
				return nil, s.currentVersion(), types.ErrUnknownID
			}
			return nil, s.currentVersion(), types.ErrConsistencyConflict
		}
		perturbed = s.applyTransfer(delta.Item, delta.From, delta.To)
	case types.DeltaRemoveWallet:
		perturbed = s.applyRemoveWallet(delta.Wallet)
	default:
		s.mu.Unlock()
		return nil, s.currentVersion(), types.ErrInvalidDelta
	}
	s.version++
	ver := s.version
	s.mu.Unlock()

	if s.sink != nil {
		if err := s.sink.Append(s.tenant, ver, delta); err != nil {
			return nil, ver, fmt.Errorf("graphstore: replay log append failed: %w", err)
		}
	}

	out := make([]types.WalletID, 0, len(perturbed))
	for w := range perturbed {
		out = append(out, w)
	}
	return out, ver, nil
}

func (s *Store) currentVersion() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot satisfies modules.GraphStore. It clones the store's maps under a
// brief read lock so the writer is never blocked by a long-lived reader
// (spec.md §5).
func (s *Store) Snapshot() modules.GraphSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &snapshot{
		tenant:            s.tenant,
		version:           s.version,
		owners:            cloneWalletMap(s.owners),
		inventory:         cloneSetOfSet(s.inventory),
		itemCollection:    cloneCollectionMap(s.itemCollection),
		collectionItems:   cloneItemSetOfSet(s.collectionItems),
		specificWants:     cloneSetOfSet(s.specificWants),
		collectionWants:   cloneCollectionSetOfSet(s.collectionWants),
		collectionWanters: cloneWalletSetOfSet(s.collectionWanters),
		adjacencyOut:      cloneWalletSetOfSet(s.adjacencyOut),
		adjacencyIn:       cloneWalletSetOfSet(s.adjacencyIn),
		edgeLabels:        clonePairMap(s.edgeLabels),
	}
}
