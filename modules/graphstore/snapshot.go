package graphstore

import "github.com/nftbarter/tradeloop-engine/types"

// snapshot is an immutable, fully-cloned view of a Store at one version. It
// satisfies modules.GraphSnapshot. Collection-derived edges are resolved on
// demand here rather than cached, per spec.md §4.1.
type snapshot struct {
	tenant  types.TenantID
	version uint64

	owners          map[types.ItemID]types.WalletID
	inventory       map[types.WalletID]map[types.ItemID]struct{}
	itemCollection  map[types.ItemID]types.CollectionID
	collectionItems map[types.CollectionID]map[types.ItemID]struct{}

	specificWants     map[types.WalletID]map[types.ItemID]struct{}
	collectionWants   map[types.WalletID]map[types.CollectionID]struct{}
	collectionWanters map[types.CollectionID]map[types.WalletID]struct{}

	adjacencyOut map[types.WalletID]map[types.WalletID]struct{}
	adjacencyIn  map[types.WalletID]map[types.WalletID]struct{}
	edgeLabels   map[walletPair]map[types.ItemID]struct{}
}

func (s *snapshot) Tenant() types.TenantID { return s.tenant }

func (s *snapshot) Version() uint64 { return s.version }

func (s *snapshot) Wallets() []types.WalletID {
	seen := make(map[types.WalletID]struct{})
	for w := range s.inventory {
		seen[w] = struct{}{}
	}
	for w := range s.specificWants {
		seen[w] = struct{}{}
	}
	for w := range s.collectionWants {
		seen[w] = struct{}{}
	}
	out := make([]types.WalletID, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	return out
}

// collectionNeighborsOut resolves, for wallet w, the owners reachable
// through w's collection wants: for each collection c that w wants, every
// item in c not owned by w contributes its owner as a neighbor.
func (s *snapshot) collectionNeighborsOut(w types.WalletID) map[types.WalletID]struct{} {
	out := map[types.WalletID]struct{}{}
	owned := s.inventory[w]
	for coll := range s.collectionWants[w] {
		for item := range s.collectionItems[coll] {
			if _, mine := owned[item]; mine {
				continue
			}
			if owner, ok := s.owners[item]; ok && owner != w {
				out[owner] = struct{}{}
			}
		}
	}
	return out
}

func (s *snapshot) NeighborsOut(w types.WalletID) []types.WalletID {
	seen := map[types.WalletID]struct{}{}
	for to := range s.adjacencyOut[w] {
		seen[to] = struct{}{}
	}
	for to := range s.collectionNeighborsOut(w) {
		seen[to] = struct{}{}
	}
	out := make([]types.WalletID, 0, len(seen))
	for to := range seen {
		out = append(out, to)
	}
	return out
}

func (s *snapshot) NeighborsIn(w types.WalletID) []types.WalletID {
	seen := map[types.WalletID]struct{}{}
	for from := range s.adjacencyIn[w] {
		seen[from] = struct{}{}
	}
	// Collection-derived incoming edges: any wallet that wants a collection
	// containing an item w owns.
	owned := s.inventory[w]
	for item := range owned {
		coll, ok := s.itemCollection[item]
		if !ok {
			continue
		}
		for wanter := range s.collectionWanters[coll] {
			if wanter != w {
				seen[wanter] = struct{}{}
			}
		}
	}
	out := make([]types.WalletID, 0, len(seen))
	for from := range seen {
		out = append(out, from)
	}
	return out
}

func (s *snapshot) ItemsJustifying(from, to types.WalletID) []types.ItemRef {
	var out []types.ItemRef
	if labels, ok := s.edgeLabels[walletPair{from, to}]; ok {
		for item := range labels {
			out = append(out, types.ItemRef{ID: item, CollectionID: s.itemCollection[item]})
		}
	}
	owned := s.inventory[to]
	for coll := range s.collectionWants[from] {
		for item := range s.collectionItems[coll] {
			if _, already := owned[item]; !already {
				continue
			}
			if _, labeled := s.edgeLabels[walletPair{from, to}][item]; labeled {
				continue
			}
			out = append(out, types.ItemRef{ID: item, CollectionID: coll})
		}
	}
	return out
}

func (s *snapshot) Owner(item types.ItemID) (types.WalletID, bool) {
	w, ok := s.owners[item]
	return w, ok
}

func (s *snapshot) OwnsItem(w types.WalletID, item types.ItemID) bool {
	_, ok := s.inventory[w][item]
	return ok
}

func (s *snapshot) Wants(w types.WalletID, item types.ItemRef) bool {
	if _, ok := s.specificWants[w][item.ID]; ok {
		return true
	}
	if item.CollectionID == "" {
		return false
	}
	_, ok := s.collectionWants[w][item.CollectionID]
	return ok
}
