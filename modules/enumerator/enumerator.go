// Package enumerator implements the Cycle Enumerator of spec.md §4.3:
// Tarjan's SCC decomposition followed by Johnson's elementary-circuits
// algorithm restricted to each non-trivial SCC, seeded from the wallets a
// delta perturbed.
package enumerator

import (
	"context"
	"sort"
	"time"

	"github.com/nftbarter/tradeloop-engine/modules"
	"github.com/nftbarter/tradeloop-engine/types"
)

// Enumerator satisfies modules.Enumerator. It holds no state between calls;
// every call re-derives SCCs from the snapshot it is given.
type Enumerator struct{}

// New returns a ready-to-use Enumerator.
func New() *Enumerator { return &Enumerator{} }

// Enumerate satisfies modules.Enumerator.
func (e *Enumerator) Enumerate(ctx context.Context, snap modules.GraphSnapshot, seeds []types.WalletID, limits modules.EnumerationLimits) modules.EnumerationResult {
	maxLen := limits.MaxLoopLen
	if maxLen <= 0 || maxLen > types.HardMaxLoopLength {
		maxLen = types.HardMaxLoopLength
	}
	var deadline time.Time
	if limits.TimeBudget > 0 {
		deadline = time.Now().Add(limits.TimeBudget)
	}

	sccs := stronglyConnectedComponents(snap)
	sccOf := map[types.WalletID]map[types.WalletID]struct{}{}
	for _, scc := range sccs {
		set := make(map[types.WalletID]struct{}, len(scc))
		for _, w := range scc {
			set[w] = struct{}{}
		}
		for _, w := range scc {
			sccOf[w] = set
		}
	}

	// nil/empty seeds is the scheduler's "full rescan" signal (spec.md
	// §4.6 backpressure path) - seed from every wallet in the snapshot
	// rather than discovering nothing.
	if len(seeds) == 0 {
		seeds = snap.Wallets()
	}

	var loops []types.TradeLoop
	exhausted := false
	var remaining []types.WalletID

	for i, seed := range seeds {
		if exceeded(ctx, deadline) {
			exhausted = true
			remaining = seeds[i:]
			break
		}
		sccSet, ok := sccOf[seed]
		if !ok {
			continue // seed is not on any cycle
		}
		cs := &circuitSearch{
			snap:     snap,
			sccSet:   sccSet,
			start:    seed,
			maxLen:   maxLen,
			deadline: deadline,
			ctx:      ctx,
			blocked:  map[types.WalletID]bool{},
			blist:    map[types.WalletID]map[types.WalletID]struct{}{},
			emit: func(loop types.TradeLoop) bool {
				loops = append(loops, loop)
				if limits.MaxLoopsPerCall > 0 && len(loops) >= limits.MaxLoopsPerCall {
					return false
				}
				return true
			},
		}
		cs.run()
		if cs.stopped {
			exhausted = true
			if len(loops) >= limits.MaxLoopsPerCall && limits.MaxLoopsPerCall > 0 {
				remaining = seeds[i+1:]
			} else {
				remaining = seeds[i:]
			}
			break
		}
	}

	var continuationToken []byte
	if exhausted {
		continuationToken = encodeContinuation(continuation{RemainingSeeds: remaining})
	}

	return modules.EnumerationResult{
		Loops:        loops,
		Exhausted:    exhausted,
		Continuation: continuationToken,
	}
}

func exceeded(ctx context.Context, deadline time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	return !deadline.IsZero() && time.Now().After(deadline)
}

// circuitSearch runs Johnson's circuit procedure from a single start vertex
// over the subgraph induced by sccSet, branching at every edge over its
// distinct item choices (spec.md §4.3 step 3).
type circuitSearch struct {
	snap     modules.GraphSnapshot
	sccSet   map[types.WalletID]struct{}
	start    types.WalletID
	maxLen   int
	deadline time.Time
	ctx      context.Context

	blocked map[types.WalletID]bool
	blist   map[types.WalletID]map[types.WalletID]struct{}

	path      []types.WalletID
	pathItems []types.ItemRef

	emit    func(types.TradeLoop) bool
	stopped bool
}

func (cs *circuitSearch) run() {
	cs.circuit(cs.start)
}

func (cs *circuitSearch) circuit(v types.WalletID) bool {
	if cs.stopped {
		return false
	}
	if exceeded(cs.ctx, cs.deadline) {
		cs.stopped = true
		return false
	}

	found := false
	cs.blocked[v] = true
	cs.path = append(cs.path, v)

	neighbors := cs.snap.NeighborsOut(v)
	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })

	for _, w := range neighbors {
		if _, inSCC := cs.sccSet[w]; !inSCC {
			continue
		}
		choices := collectEdgeItems(cs.snap, v, w)
		if len(choices) == 0 {
			continue
		}

		if w == cs.start {
			if len(cs.path) >= 2 {
				for _, item := range choices {
					loop := cs.buildLoop(append(cs.pathItems, item))
					found = true
					if !cs.emit(loop) {
						cs.stopped = true
						cs.path = cs.path[:len(cs.path)-1]
						return found
					}
				}
			}
			continue
		}

		if cs.blocked[w] {
			continue
		}
		if len(cs.path) >= cs.maxLen {
			continue
		}
		for _, item := range choices {
			cs.pathItems = append(cs.pathItems, item)
			if cs.circuit(w) {
				found = true
			}
			cs.pathItems = cs.pathItems[:len(cs.pathItems)-1]
			if cs.stopped {
				cs.path = cs.path[:len(cs.path)-1]
				return found
			}
		}
	}

	if found {
		cs.unblock(v)
	} else {
		for _, w := range neighbors {
			if _, inSCC := cs.sccSet[w]; !inSCC {
				continue
			}
			if cs.blist[w] == nil {
				cs.blist[w] = map[types.WalletID]struct{}{}
			}
			cs.blist[w][v] = struct{}{}
		}
	}
	cs.path = cs.path[:len(cs.path)-1]
	return found
}

func (cs *circuitSearch) unblock(v types.WalletID) {
	cs.blocked[v] = false
	for w := range cs.blist[v] {
		delete(cs.blist[v], w)
		if cs.blocked[w] {
			cs.unblock(w)
		}
	}
}

// buildLoop converts the wallet path (want-graph order: edge i is
// path[i] -> path[(i+1)%m], with items[i] the item chosen for that edge)
// into trade-direction steps, where each owner hands its item to the
// wanter that sits before it in the want-graph order.
func (cs *circuitSearch) buildLoop(items []types.ItemRef) types.TradeLoop {
	m := len(cs.path)
	steps := make([]types.TradeLoopStep, m)
	for k := 0; k < m; k++ {
		from := cs.path[(k+1)%m]
		to := cs.path[k]
		steps[m-1-k] = types.TradeLoopStep{From: from, To: to, Items: []types.ItemRef{items[k]}}
	}
	return types.TradeLoop{Tenant: cs.snap.Tenant(), Steps: steps}
}

// collectEdgeItems resolves edge_labels[u,v] plus any on-the-fly
// collection-want expansion, then orders choices per spec.md §4.3 step 5:
// explicit wants before collection-derived wants, then lex-smallest item id.
func collectEdgeItems(snap modules.GraphSnapshot, u, v types.WalletID) []types.ItemRef {
	items := snap.ItemsJustifying(u, v)
	sort.Slice(items, func(i, j int) bool {
		iExplicit := snap.Wants(u, types.ItemRef{ID: items[i].ID})
		jExplicit := snap.Wants(u, types.ItemRef{ID: items[j].ID})
		if iExplicit != jExplicit {
			return iExplicit
		}
		return items[i].ID < items[j].ID
	})
	return items
}
