package enumerator

import (
	"github.com/nftbarter/tradeloop-engine/modules"
	"github.com/nftbarter/tradeloop-engine/types"
)

// stronglyConnectedComponents runs Tarjan's algorithm once over the
// snapshot's full want-graph and returns its non-trivial SCCs (size > 1) -
// singleton SCCs admit no cycle and are discarded (spec.md §4.3 step 1).
func stronglyConnectedComponents(snap modules.GraphSnapshot) [][]types.WalletID {
	t := &tarjan{
		snap:    snap,
		index:   map[types.WalletID]int{},
		lowlink: map[types.WalletID]int{},
		onStack: map[types.WalletID]bool{},
	}
	for _, w := range snap.Wallets() {
		if _, seen := t.index[w]; !seen {
			t.strongconnect(w)
		}
	}
	out := make([][]types.WalletID, 0, len(t.sccs))
	for _, scc := range t.sccs {
		if len(scc) > 1 {
			out = append(out, scc)
		}
	}
	return out
}

type tarjan struct {
	snap    modules.GraphSnapshot
	counter int
	index   map[types.WalletID]int
	lowlink map[types.WalletID]int
	onStack map[types.WalletID]bool
	stack   []types.WalletID
	sccs    [][]types.WalletID
}

// strongconnect is the classic recursive Tarjan visit. The want-graph is
// bounded per tenant by quota, so recursion depth tracks at most the
// tenant's wallet count, which is an acceptable bound for this algorithm
// (the teacher's own consensus fork-resolution code recurses over block
// chains of comparable, operator-bounded depth).
func (t *tarjan) strongconnect(v types.WalletID) {
	t.index[v] = t.counter
	t.lowlink[v] = t.counter
	t.counter++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.snap.NeighborsOut(v) {
		if _, seen := t.index[w]; !seen {
			t.strongconnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] {
			if t.index[w] < t.lowlink[v] {
				t.lowlink[v] = t.index[w]
			}
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []types.WalletID
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}
