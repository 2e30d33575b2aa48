// Package fingerprint computes the canonical, rotation-invariant,
// direction-sensitive identifier of a trade loop described in spec.md §4.2.
// It is a pure function package: no shared state, no I/O.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/nftbarter/tradeloop-engine/types"
)

// unitSep cannot appear in an opaque id (ids are validated to be plain
// strings at the ingestion boundary; spec.md caps them at 128 bytes and
// nowhere permits control characters, so ASCII unit separator is safe as a
// field delimiter here).
const unitSep = "\x1f"
const stepSep = "\x1e"

// tuple is the canonical per-step representation the fingerprint hashes:
// (from, to, sorted item ids).
type tuple struct {
	from, to string
	itemIDs  []string
}

// Compute returns the loop's fingerprint: rotate the step sequence so its
// lex-smallest "from" wallet starts, breaking ties by choosing the rotation
// whose full serialized form is lex-smallest, then hash with SHA-256
// (spec.md §3, §4.2). Reversing every step's direction yields a different
// fingerprint because "from"/"to" are not swapped when canonicalizing.
func Compute(loop types.TradeLoop) types.LoopFingerprint {
	if len(loop.Steps) == 0 {
		return ""
	}
	tuples := make([]tuple, len(loop.Steps))
	for i, s := range loop.Steps {
		ids := make([]string, len(s.Items))
		for j, it := range s.Items {
			ids[j] = string(it.ID)
		}
		sort.Strings(ids)
		tuples[i] = tuple{from: string(s.From), to: string(s.To), itemIDs: ids}
	}

	best := serialize(tuples)
	for rot := 1; rot < len(tuples); rot++ {
		rotated := rotate(tuples, rot)
		candidate := serialize(rotated)
		if candidate < best {
			best = candidate
		}
	}

	sum := sha256.Sum256([]byte(best))
	return types.LoopFingerprint(hex.EncodeToString(sum[:]))
}

func rotate(in []tuple, n int) []tuple {
	out := make([]tuple, len(in))
	for i := range in {
		out[i] = in[(i+n)%len(in)]
	}
	return out
}

func serialize(tuples []tuple) string {
	parts := make([]string, len(tuples))
	for i, t := range tuples {
		parts[i] = t.from + unitSep + t.to + unitSep + strings.Join(t.itemIDs, unitSep)
	}
	return strings.Join(parts, stepSep)
}

// CanonicalStart returns the wallet the fingerprint's canonical rotation
// begins from - the lex-smallest "from" wallet in the loop, useful for
// debugging/log lines without recomputing the full digest.
func CanonicalStart(loop types.TradeLoop) types.WalletID {
	if len(loop.Steps) == 0 {
		return ""
	}
	best := loop.Steps[0].From
	for _, s := range loop.Steps[1:] {
		if s.From < best {
			best = s.From
		}
	}
	return best
}
