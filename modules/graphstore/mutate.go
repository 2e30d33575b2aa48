package graphstore

import "github.com/nftbarter/tradeloop-engine/types"

// applyInventory implements DeltaInventoryMerge/DeltaInventoryReplace. It
// must hold s.mu (write-locked) on entry.
func (s *Store) applyInventory(wallet types.WalletID, items []types.ItemRef, replace bool) map[types.WalletID]struct{} {
	perturbed := map[types.WalletID]struct{}{}

	if replace {
		for item := range s.inventory[wallet] {
			s.releaseOwnership(item, wallet, perturbed)
		}
		delete(s.inventory, wallet)
	}

	if s.inventory[wallet] == nil {
		s.inventory[wallet] = make(map[types.ItemID]struct{})
	}
	for _, ref := range items {
		if prevOwner, ok := s.owners[ref.ID]; ok && prevOwner != wallet {
			s.releaseOwnership(ref.ID, prevOwner, perturbed)
		}
		s.owners[ref.ID] = wallet
		s.inventory[wallet][ref.ID] = struct{}{}
		if ref.HasCollection() {
			s.registerCollectionMembership(ref.ID, ref.CollectionID)
		}
		s.onItemGainedOwner(ref.ID, wallet, perturbed)
	}
	perturbed[wallet] = struct{}{}
	return perturbed
}

// releaseOwnership removes item from prevOwner's inventory/ownership and
// perturbs whoever's edges depended on prevOwner holding it.
func (s *Store) releaseOwnership(item types.ItemID, prevOwner types.WalletID, perturbed map[types.WalletID]struct{}) {
	delete(s.owners, item)
	if set := s.inventory[prevOwner]; set != nil {
		delete(set, item)
	}
	for wanter := range s.wantedBy[item] {
		s.removeEdge(wanter, prevOwner, item)
		perturbed[wanter] = struct{}{}
	}
	if coll, ok := s.itemCollection[item]; ok {
		for wanter := range s.collectionWanters[coll] {
			perturbed[wanter] = struct{}{}
		}
	}
	perturbed[prevOwner] = struct{}{}
}

// onItemGainedOwner wires the new edges that exist now that owner holds
// item: every wallet with a specific want on item gets a cached edge to
// owner; every wallet wanting item's collection is perturbed (its edge is
// resolved lazily, per spec.md §4.1's lazy-perturbation rule).
func (s *Store) onItemGainedOwner(item types.ItemID, owner types.WalletID, perturbed map[types.WalletID]struct{}) {
	for wanter := range s.wantedBy[item] {
		if wanter == owner {
			continue
		}
		s.addEdge(wanter, owner, item)
		perturbed[wanter] = struct{}{}
	}
	if coll, ok := s.itemCollection[item]; ok {
		for wanter := range s.collectionWanters[coll] {
			perturbed[wanter] = struct{}{}
		}
	}
}

func (s *Store) registerCollectionMembership(item types.ItemID, coll types.CollectionID) {
	if _, ok := s.itemCollection[item]; ok {
		return // collection membership is immutable once known (spec.md §3)
	}
	s.itemCollection[item] = coll
	if s.collectionItems[coll] == nil {
		s.collectionItems[coll] = make(map[types.ItemID]struct{})
	}
	s.collectionItems[coll][item] = struct{}{}
}

// applyWants implements DeltaWantsMerge.
func (s *Store) applyWants(wallet types.WalletID, wants types.WantSet) map[types.WalletID]struct{} {
	perturbed := map[types.WalletID]struct{}{wallet: {}}

	if s.specificWants[wallet] == nil {
		s.specificWants[wallet] = make(map[types.ItemID]struct{})
	}
	for _, item := range wants.SpecificItems {
		if _, already := s.specificWants[wallet][item]; already {
			continue
		}
		s.specificWants[wallet][item] = struct{}{}
		if s.wantedBy[item] == nil {
			s.wantedBy[item] = make(map[types.WalletID]struct{})
		}
		s.wantedBy[item][wallet] = struct{}{}
		if owner, ok := s.owners[item]; ok && owner != wallet {
			s.addEdge(wallet, owner, item)
		}
	}

	if s.collectionWants[wallet] == nil {
		s.collectionWants[wallet] = make(map[types.CollectionID]struct{})
	}
	for _, coll := range wants.Collections {
		s.collectionWants[wallet][coll] = struct{}{}
		if s.collectionWanters[coll] == nil {
			s.collectionWanters[coll] = make(map[types.WalletID]struct{})
		}
		s.collectionWanters[coll][wallet] = struct{}{}
	}
	return perturbed
}

// applyTransfer implements DeltaTransfer.
func (s *Store) applyTransfer(item types.ItemID, from, to types.WalletID) map[types.WalletID]struct{} {
	perturbed := map[types.WalletID]struct{}{from: {}, to: {}}

	if owner, ok := s.owners[item]; !ok || owner != from {
		// Conflicting concurrent transfer of the same item; caller retries
		// against the returned snapshot version (spec.md §4.1).
		perturbed[from] = struct{}{}
		return perturbed
	}

	for wanter := range s.wantedBy[item] {
		s.removeEdge(wanter, from, item)
		perturbed[wanter] = struct{}{}
	}
	if coll, ok := s.itemCollection[item]; ok {
		for wanter := range s.collectionWanters[coll] {
			perturbed[wanter] = struct{}{}
		}
	}

	delete(s.owners, item)
	if set := s.inventory[from]; set != nil {
		delete(set, item)
	}
	s.owners[item] = to
	if s.inventory[to] == nil {
		s.inventory[to] = make(map[types.ItemID]struct{})
	}
	s.inventory[to][item] = struct{}{}

	for wanter := range s.wantedBy[item] {
		if wanter == to {
			continue
		}
		s.addEdge(wanter, to, item)
		perturbed[wanter] = struct{}{}
	}
	return perturbed
}

// applyRemoveWallet implements DeltaRemoveWallet: tears down wallet's
// inventory and want sets entirely.
func (s *Store) applyRemoveWallet(wallet types.WalletID) map[types.WalletID]struct{} {
	perturbed := map[types.WalletID]struct{}{wallet: {}}

	for item := range s.inventory[wallet] {
		s.releaseOwnership(item, wallet, perturbed)
	}
	delete(s.inventory, wallet)

	for to := range s.adjacencyOut[wallet] {
		perturbed[to] = struct{}{}
	}

	for item := range s.specificWants[wallet] {
		if owner, ok := s.owners[item]; ok {
			s.removeEdge(wallet, owner, item)
		}
		if set := s.wantedBy[item]; set != nil {
			delete(set, wallet)
		}
	}
	delete(s.specificWants, wallet)

	for coll := range s.collectionWants[wallet] {
		if set := s.collectionWanters[coll]; set != nil {
			delete(set, wallet)
		}
	}
	delete(s.collectionWants, wallet)

	delete(s.adjacencyOut, wallet)
	for other, set := range s.adjacencyIn {
		if _, ok := set[wallet]; ok {
			delete(set, wallet)
			perturbed[other] = struct{}{}
		}
	}
	delete(s.adjacencyIn, wallet)

	return perturbed
}

func (s *Store) addEdge(from, to types.WalletID, item types.ItemID) {
	if s.adjacencyOut[from] == nil {
		s.adjacencyOut[from] = make(map[types.WalletID]struct{})
	}
	s.adjacencyOut[from][to] = struct{}{}
	if s.adjacencyIn[to] == nil {
		s.adjacencyIn[to] = make(map[types.WalletID]struct{})
	}
	s.adjacencyIn[to][from] = struct{}{}

	key := walletPair{from, to}
	if s.edgeLabels[key] == nil {
		s.edgeLabels[key] = make(map[types.ItemID]struct{})
	}
	s.edgeLabels[key][item] = struct{}{}
}

func (s *Store) removeEdge(from, to types.WalletID, item types.ItemID) {
	key := walletPair{from, to}
	if labels, ok := s.edgeLabels[key]; ok {
		delete(labels, item)
		if len(labels) == 0 {
			delete(s.edgeLabels, key)
			if set := s.adjacencyOut[from]; set != nil {
				delete(set, to)
			}
			if set := s.adjacencyIn[to]; set != nil {
				delete(set, from)
			}
		}
	}
}
