package graphstore

import (
	"context"
	"testing"

	"github.com/nftbarter/tradeloop-engine/types"
)

func mustApply(t *testing.T, s *Store, d types.GraphDelta) []types.WalletID {
	t.Helper()
	perturbed, _, err := s.ApplyDelta(context.Background(), d)
	if err != nil {
		t.Fatalf("ApplyDelta(%s) failed: %v", d.Kind, err)
	}
	return perturbed
}

func TestSimpleThreeCycleEdges(t *testing.T) {
	s := New("t1", nil)

	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaInventoryMerge, Wallet: "A", Items: []types.ItemRef{{ID: "x1"}}})
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaInventoryMerge, Wallet: "B", Items: []types.ItemRef{{ID: "y1"}}})
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaInventoryMerge, Wallet: "C", Items: []types.ItemRef{{ID: "z1"}}})

	// A wants B's item, B wants C's item, C wants A's item.
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaWantsMerge, Wallet: "A", Wants: types.WantSet{SpecificItems: []types.ItemID{"y1"}}})
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaWantsMerge, Wallet: "B", Wants: types.WantSet{SpecificItems: []types.ItemID{"z1"}}})
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaWantsMerge, Wallet: "C", Wants: types.WantSet{SpecificItems: []types.ItemID{"x1"}}})

	snap := s.Snapshot()
	assertContains(t, snap.NeighborsOut("A"), "B")
	assertContains(t, snap.NeighborsOut("B"), "C")
	assertContains(t, snap.NeighborsOut("C"), "A")

	items := snap.ItemsJustifying("A", "B")
	if len(items) != 1 || items[0].ID != "y1" {
		t.Fatalf("ItemsJustifying(A,B) = %v, want [y1]", items)
	}
}

func TestTransferInvalidatesEdge(t *testing.T) {
	s := New("t1", nil)
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaInventoryMerge, Wallet: "B", Items: []types.ItemRef{{ID: "y1"}}})
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaWantsMerge, Wallet: "A", Wants: types.WantSet{SpecificItems: []types.ItemID{"y1"}}})

	snap := s.Snapshot()
	assertContains(t, snap.NeighborsOut("A"), "B")

	perturbed := mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaTransfer, Item: "y1", From: "B", To: "C"})
	assertContains(t, perturbed, "A")
	assertContains(t, perturbed, "B")
	assertContains(t, perturbed, "C")

	snap2 := s.Snapshot()
	if contains(snap2.NeighborsOut("A"), "B") {
		t.Fatal("edge A->B survived the transfer out of B")
	}
	assertContains(t, snap2.NeighborsOut("A"), "C")
}

func TestCollectionWantResolvedLazily(t *testing.T) {
	s := New("t1", nil)
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaInventoryMerge, Wallet: "B", Items: []types.ItemRef{{ID: "y1", CollectionID: "coolcats"}}})
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaWantsMerge, Wallet: "A", Wants: types.WantSet{Collections: []types.CollectionID{"coolcats"}}})

	snap := s.Snapshot()
	assertContains(t, snap.NeighborsOut("A"), "B")

	// A already owns y1 -> the collection want must not create a self-edge.
	s2 := New("t1", nil)
	mustApply(t, s2, types.GraphDelta{Tenant: "t1", Kind: types.DeltaInventoryMerge, Wallet: "A", Items: []types.ItemRef{{ID: "y1", CollectionID: "coolcats"}}})
	mustApply(t, s2, types.GraphDelta{Tenant: "t1", Kind: types.DeltaWantsMerge, Wallet: "A", Wants: types.WantSet{Collections: []types.CollectionID{"coolcats"}}})
	if contains(s2.Snapshot().NeighborsOut("A"), "A") {
		t.Fatal("collection want produced a self-loop for an already-owned item")
	}
}

func TestRemoveWalletTearsDownEdges(t *testing.T) {
	s := New("t1", nil)
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaInventoryMerge, Wallet: "B", Items: []types.ItemRef{{ID: "y1"}}})
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaWantsMerge, Wallet: "A", Wants: types.WantSet{SpecificItems: []types.ItemID{"y1"}}})
	mustApply(t, s, types.GraphDelta{Tenant: "t1", Kind: types.DeltaRemoveWallet, Wallet: "B"})

	snap := s.Snapshot()
	if contains(snap.NeighborsOut("A"), "B") {
		t.Fatal("edge to a removed wallet survived")
	}
	if _, ok := snap.Owner("y1"); ok {
		t.Fatal("removed wallet's item still has an owner")
	}
}

func TestTenantMismatchRejected(t *testing.T) {
	s := New("t1", nil)
	_, _, err := s.ApplyDelta(context.Background(), types.GraphDelta{Tenant: "other", Kind: types.DeltaInventoryMerge, Wallet: "A", Items: []types.ItemRef{{ID: "x1"}}})
	if err != types.ErrTenantMismatch {
		t.Fatalf("got %v, want ErrTenantMismatch", err)
	}
}

func TestInvalidDeltaRejected(t *testing.T) {
	s := New("t1", nil)
	_, _, err := s.ApplyDelta(context.Background(), types.GraphDelta{Tenant: "t1", Kind: types.DeltaTransfer, Item: "x1", From: "A", To: "A"})
	if err == nil {
		t.Fatal("expected an error for a self-transfer")
	}
}

func contains(list []types.WalletID, w types.WalletID) bool {
	for _, v := range list {
		if v == w {
			return true
		}
	}
	return false
}

func assertContains(t *testing.T, list []types.WalletID, w types.WalletID) {
	t.Helper()
	if !contains(list, w) {
		t.Fatalf("%v does not contain %s", list, w)
	}
}
