package enumerator

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/nftbarter/tradeloop-engine/types"
)

// continuation is the opaque, best-effort resumption token returned when a
// recompute is cut short (spec.md §4.3 "BudgetExhausted returns... a
// continuation token (opaque Johnson stack snapshot)"). This implementation
// resumes at seed granularity rather than mid-DFS-stack granularity: it
// records which seeds had not yet been fully explored. A future call starting from these seeds
// re-derives the same candidate set deterministically from the snapshot,
// since Johnson's search over a fixed graph is itself deterministic.
type continuation struct {
	RemainingSeeds []types.WalletID
}

func encodeContinuation(c continuation) []byte {
	b, err := msgpack.Marshal(c)
	if err != nil {
		return nil
	}
	return b
}

func decodeContinuation(b []byte) (continuation, bool) {
	var c continuation
	if len(b) == 0 {
		return c, false
	}
	if err := msgpack.Unmarshal(b, &c); err != nil {
		return continuation{}, false
	}
	return c, true
}
