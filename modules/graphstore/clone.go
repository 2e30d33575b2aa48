package graphstore

import "github.com/nftbarter/tradeloop-engine/types"

func cloneWalletMap(in map[types.ItemID]types.WalletID) map[types.ItemID]types.WalletID {
	out := make(map[types.ItemID]types.WalletID, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneCollectionMap(in map[types.ItemID]types.CollectionID) map[types.ItemID]types.CollectionID {
	out := make(map[types.ItemID]types.CollectionID, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneSetOfSet(in map[types.WalletID]map[types.ItemID]struct{}) map[types.WalletID]map[types.ItemID]struct{} {
	out := make(map[types.WalletID]map[types.ItemID]struct{}, len(in))
	for k, set := range in {
		out[k] = cloneItemSet(set)
	}
	return out
}

func cloneItemSet(in map[types.ItemID]struct{}) map[types.ItemID]struct{} {
	out := make(map[types.ItemID]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func cloneItemSetOfSet(in map[types.CollectionID]map[types.ItemID]struct{}) map[types.CollectionID]map[types.ItemID]struct{} {
	out := make(map[types.CollectionID]map[types.ItemID]struct{}, len(in))
	for k, set := range in {
		out[k] = cloneItemSet(set)
	}
	return out
}

func cloneCollectionSetOfSet(in map[types.WalletID]map[types.CollectionID]struct{}) map[types.WalletID]map[types.CollectionID]struct{} {
	out := make(map[types.WalletID]map[types.CollectionID]struct{}, len(in))
	for k, set := range in {
		s := make(map[types.CollectionID]struct{}, len(set))
		for c := range set {
			s[c] = struct{}{}
		}
		out[k] = s
	}
	return out
}

func cloneWalletSetOfSet[K comparable](in map[K]map[types.WalletID]struct{}) map[K]map[types.WalletID]struct{} {
	out := make(map[K]map[types.WalletID]struct{}, len(in))
	for k, set := range in {
		s := make(map[types.WalletID]struct{}, len(set))
		for w := range set {
			s[w] = struct{}{}
		}
		out[k] = s
	}
	return out
}

func clonePairMap(in map[walletPair]map[types.ItemID]struct{}) map[walletPair]map[types.ItemID]struct{} {
	out := make(map[walletPair]map[types.ItemID]struct{}, len(in))
	for k, set := range in {
		out[k] = cloneItemSet(set)
	}
	return out
}
