package scheduler_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nftbarter/tradeloop-engine/modules/scheduler"
	"github.com/nftbarter/tradeloop-engine/types"
)

// fakeClock lets tests control exactly when a debounce window elapses
// instead of racing against a real timer: After returns a channel that
// only fires once fire() is called, so a test can issue every Notify it
// wants coalesced before letting the debounce goroutine proceed.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiting []chan time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(0, 0)} }

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	f.mu.Lock()
	f.waiting = append(f.waiting, ch)
	f.mu.Unlock()
	return ch
}

// fire releases every debounce wait currently outstanding.
func (f *fakeClock) fire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.waiting {
		ch <- f.now
	}
	f.waiting = nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestCoalescesMultipleNotifiesIntoOneRecompute(t *testing.T) {
	var calls int32
	var lastSeeds []types.WalletID
	var mu sync.Mutex
	clock := newFakeClock()

	s := scheduler.New(scheduler.Config{
		Clock: clock,
		Recompute: func(ctx context.Context, tenant types.TenantID, seeds []types.WalletID) {
			atomic.AddInt32(&calls, 1)
			mu.Lock()
			lastSeeds = seeds
			mu.Unlock()
		},
		WorkerPoolSize: 2,
	})
	s.Start(context.Background())
	defer s.Stop()

	s.Notify(types.GraphChangeEvent{Tenant: "t1", Perturbed: []types.WalletID{"A"}})
	s.Notify(types.GraphChangeEvent{Tenant: "t1", Perturbed: []types.WalletID{"B"}})
	clock.fire()

	waitFor(t, func() bool { return atomic.LoadInt32(&calls) >= 1 })
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("got %d recomputes, want exactly 1 coalesced run", calls)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(lastSeeds) != 2 {
		t.Fatalf("got %d seeds, want both A and B merged into one run", len(lastSeeds))
	}
}

func TestFollowUpRunsAfterInFlightRecomputeCompletes(t *testing.T) {
	var calls int32
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	clock := newFakeClock()

	s := scheduler.New(scheduler.Config{
		Clock: clock,
		Recompute: func(ctx context.Context, tenant types.TenantID, seeds []types.WalletID) {
			n := atomic.AddInt32(&calls, 1)
			started <- struct{}{}
			if n == 1 {
				<-release
			}
		},
		WorkerPoolSize: 1,
	})
	s.Start(context.Background())
	defer s.Stop()

	s.Notify(types.GraphChangeEvent{Tenant: "t1", Perturbed: []types.WalletID{"A"}})
	clock.fire()
	<-started // first run has started and is now blocked on release

	// A notify that arrives mid-run must not be dropped; it should produce
	// a follow-up run once the in-flight one completes, with no further
	// debounce wait required.
	s.Notify(types.GraphChangeEvent{Tenant: "t1", Perturbed: []types.WalletID{"B"}})
	close(release)

	waitFor(t, func() bool { return atomic.LoadInt32(&calls) >= 2 })
}

func TestBackpressureCollapsesToFullRescan(t *testing.T) {
	var gotFullScan bool
	var mu sync.Mutex
	firstStarted := make(chan struct{})
	block := make(chan struct{})
	clock := newFakeClock()

	s := scheduler.New(scheduler.Config{
		Clock: clock,
		Recompute: func(ctx context.Context, tenant types.TenantID, seeds []types.WalletID) {
			mu.Lock()
			if seeds == nil {
				gotFullScan = true
			}
			mu.Unlock()
			select {
			case firstStarted <- struct{}{}:
			default:
			}
			<-block
		},
		QueueCap:       2,
		WorkerPoolSize: 1,
	})
	s.Start(context.Background())
	defer s.Stop()

	// First notify starts a run that we hold open with block, so the
	// second and third batches of notifies accumulate in "pending" on the
	// tenant queue instead of being drained immediately.
	s.Notify(types.GraphChangeEvent{Tenant: "t1", Perturbed: []types.WalletID{"seed"}})
	clock.fire()
	<-firstStarted

	s.Notify(types.GraphChangeEvent{Tenant: "t1", Perturbed: []types.WalletID{"A", "B"}})
	s.Notify(types.GraphChangeEvent{Tenant: "t1", Perturbed: []types.WalletID{"C"}})

	close(block)
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotFullScan
	})
}

func TestTenantsAreIndependentQueues(t *testing.T) {
	seen := make(map[types.TenantID]int)
	var mu sync.Mutex
	clock := newFakeClock()

	s := scheduler.New(scheduler.Config{
		Clock: clock,
		Recompute: func(ctx context.Context, tenant types.TenantID, seeds []types.WalletID) {
			mu.Lock()
			seen[tenant]++
			mu.Unlock()
		},
		WorkerPoolSize: 2,
	})
	s.Start(context.Background())
	defer s.Stop()

	s.Notify(types.GraphChangeEvent{Tenant: "tenantA", Perturbed: []types.WalletID{"A"}})
	s.Notify(types.GraphChangeEvent{Tenant: "tenantB", Perturbed: []types.WalletID{"B"}})
	clock.fire()

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["tenantA"] >= 1 && seen["tenantB"] >= 1
	})
}
