package types

import "time"

// TradeQuery filters a query_trades call (spec.md §4.7). Zero values mean
// "no filter on this field". Cursor is the opaque pagination token returned
// by a previous page; Limit bounds the page size.
type TradeQuery struct {
	Wallet     WalletID
	Item       ItemID
	Collection CollectionID
	MinScore   float64
	Limit      int
	Cursor     string
}

// TradePage is one paginated page of cached loops plus a freshness
// indicator: LastRecompute is the time the tenant's Loop Cache last stored a
// loop (zero if it never has); a recompute that stores nothing does not
// update it (spec.md §7 "queries never fail because of a failed recompute").
type TradePage struct {
	Loops         []CachedLoop
	NextCursor    string
	LastRecompute time.Time
}
