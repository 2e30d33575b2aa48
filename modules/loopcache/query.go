package loopcache

import (
	"context"
	"encoding/base64"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nftbarter/tradeloop-engine/types"
)

const defaultPageLimit = 50

type cursor struct {
	Offset int
}

func encodeCursor(c cursor) string {
	b, err := msgpack.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(s string) (cursor, bool) {
	if s == "" {
		return cursor{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return cursor{}, false
	}
	var c cursor
	if err := msgpack.Unmarshal(raw, &c); err != nil {
		return cursor{}, false
	}
	return c, true
}

// List satisfies modules.LoopCache.
func (c *Cache) List(ctx context.Context, q types.TradeQuery) (types.TradePage, error) {
	if err := ctx.Err(); err != nil {
		return types.TradePage{}, err
	}

	c.mu.Lock()
	candidates := c.candidateFingerprints(q)
	now := c.clock.Now()
	loops := make([]types.CachedLoop, 0, len(candidates))
	for fp := range candidates {
		v, ok := c.entries.Peek(fp)
		if !ok {
			continue
		}
		loop := v.(types.CachedLoop)
		if loop.Expired(now) {
			continue
		}
		if loop.Score < q.MinScore {
			continue
		}
		if q.Collection != "" && !loopHasCollection(loop, q.Collection) {
			continue
		}
		loops = append(loops, loop)
	}
	lastRecompute := c.lastRecompute
	c.mu.Unlock()

	sort.Slice(loops, func(i, j int) bool { return loops[i].Fingerprint < loops[j].Fingerprint })

	start, _ := decodeCursor(q.Cursor)
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}

	offset := start.Offset
	if offset > len(loops) {
		offset = len(loops)
	}
	end := offset + limit
	if end > len(loops) {
		end = len(loops)
	}
	page := loops[offset:end]

	var next string
	if end < len(loops) {
		next = encodeCursor(cursor{Offset: end})
	}

	return types.TradePage{
		Loops:         page,
		NextCursor:    next,
		LastRecompute: lastRecompute,
	}, nil
}

func (c *Cache) candidateFingerprints(q types.TradeQuery) map[types.LoopFingerprint]struct{} {
	switch {
	case q.Wallet != "":
		return cloneFPSet(c.byWallet[q.Wallet])
	case q.Item != "":
		return cloneFPSet(c.byItem[q.Item])
	default:
		out := make(map[types.LoopFingerprint]struct{})
		for _, k := range c.entries.Keys() {
			out[k.(types.LoopFingerprint)] = struct{}{}
		}
		return out
	}
}

func cloneFPSet(in map[types.LoopFingerprint]struct{}) map[types.LoopFingerprint]struct{} {
	out := make(map[types.LoopFingerprint]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func loopHasCollection(loop types.CachedLoop, coll types.CollectionID) bool {
	for _, step := range loop.Loop.Steps {
		for _, item := range step.Items {
			if item.CollectionID == coll {
				return true
			}
		}
	}
	return false
}
