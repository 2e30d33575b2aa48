// Package scheduler implements the Background Discovery Scheduler of
// spec.md §4.6: it coalesces GraphChangeEvents into per-tenant recompute
// tasks and runs them on a bounded, round-robin-fair worker pool with a
// per-tenant concurrency cap of 1.
package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nftbarter/tradeloop-engine/modules"
	"github.com/nftbarter/tradeloop-engine/types"
)

// state is a tenant queue's position in the idle/pending/running machine
// described in spec.md §4.6.
type state int

const (
	stateIdle state = iota
	statePending
	stateRunning
)

// Recompute is invoked once per coalesced batch of perturbed wallets for a
// tenant. It should run the Enumerator/Scorer/Loop Cache pipeline and
// return only once that pipeline has finished (or ctx expired) - the
// scheduler uses its return to decide whether to immediately re-queue a
// pending follow-up.
type Recompute func(ctx context.Context, tenant types.TenantID, seeds []types.WalletID)

// tenantQueue tracks one tenant's coalescing window and pending seed set.
type tenantQueue struct {
	mu       sync.Mutex
	state    state
	pending  map[types.WalletID]struct{}
	fullScan bool
}

// Scheduler satisfies modules.Scheduler.
type Scheduler struct {
	clock     modules.Clock
	recompute Recompute
	debounce  time.Duration
	deadline  time.Duration
	queueCap  int
	poolSize  int

	mu      sync.Mutex
	queues  map[types.TenantID]*tenantQueue
	ready   chan types.TenantID // round-robin dispatch queue
	readyIn map[types.TenantID]struct{}

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Config bundles the per-process and per-tenant-default tunables a
// Scheduler needs before any tenant has registered an override.
type Config struct {
	Clock          modules.Clock
	Recompute      Recompute
	DebounceWindow time.Duration
	Deadline       time.Duration
	QueueCap       int
	WorkerPoolSize int
}

// New returns a Scheduler that has not yet been started.
func New(cfg Config) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = modules.RealClock{}
	}
	debounce := cfg.DebounceWindow
	if debounce <= 0 {
		debounce = types.DefaultTenantConfig().DebounceWindow
	}
	deadline := cfg.Deadline
	if deadline <= 0 {
		deadline = types.DefaultTenantConfig().RecomputeDeadline
	}
	queueCap := cfg.QueueCap
	if queueCap <= 0 {
		queueCap = types.DefaultTenantConfig().PerTenantQueueCap
	}
	poolSize := cfg.WorkerPoolSize
	if poolSize <= 0 {
		poolSize = 4
	}
	return &Scheduler{
		clock:     clock,
		recompute: cfg.Recompute,
		debounce:  debounce,
		deadline:  deadline,
		queueCap:  queueCap,
		poolSize:  poolSize,
		queues:    make(map[types.TenantID]*tenantQueue),
		ready:     make(chan types.TenantID, 4096),
		readyIn:   make(map[types.TenantID]struct{}),
	}
}

// Notify satisfies modules.Scheduler. It is called from the Graph Store's
// commit path and must never block on worker availability - it only
// updates the tenant's coalescing state and, on the first event of a new
// window, arms a debounce timer.
func (s *Scheduler) Notify(evt types.GraphChangeEvent) {
	q := s.queueFor(evt.Tenant)

	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.fullScan {
		if len(q.pending)+len(evt.Perturbed) > s.queueCap {
			q.fullScan = true
			q.pending = nil
		} else {
			if q.pending == nil {
				q.pending = make(map[types.WalletID]struct{}, len(evt.Perturbed))
			}
			for _, w := range evt.Perturbed {
				q.pending[w] = struct{}{}
			}
		}
	}

	switch q.state {
	case stateIdle:
		q.state = statePending
		tenant := evt.Tenant
		go func() {
			<-s.clock.After(s.debounce)
			s.enqueue(tenant)
		}()
	case statePending:
		// a debounce wait is already running for this window; the window
		// is anchored to its first event rather than reset per-event, so
		// continuous low-rate traffic cannot starve the tenant's queue.
	case stateRunning:
		// a follow-up is scheduled once the in-flight run completes
		// (spec.md §4.6 "cancellation" paragraph) - marked implicitly by
		// pending already being non-empty/fullScan set, handled in runOne.
	}
}

func (s *Scheduler) queueFor(tenant types.TenantID) *tenantQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[tenant]
	if !ok {
		q = &tenantQueue{}
		s.queues[tenant] = q
	}
	return q
}

// enqueue moves a tenant from pending to the dispatch queue. Called from
// the debounce timer's goroutine.
func (s *Scheduler) enqueue(tenant types.TenantID) {
	q := s.queueFor(tenant)
	q.mu.Lock()
	if q.state == stateRunning {
		// the worker that's currently running will notice fresh pending
		// state when it finishes and re-enqueue; nothing to do here.
		q.mu.Unlock()
		return
	}
	q.state = statePending
	q.mu.Unlock()

	s.mu.Lock()
	if _, already := s.readyIn[tenant]; !already {
		s.readyIn[tenant] = struct{}{}
		s.ready <- tenant
	}
	s.mu.Unlock()
}

// Start satisfies modules.Scheduler: it launches the fixed-size worker
// pool. Each worker pulls the next ready tenant in round-robin order
// (spec.md §4.6 "fairness across tenants... round-robin") and serializes
// recompute for that tenant while it holds the slot.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.poolSize; i++ {
		g.Go(func() error {
			s.worker(gctx)
			return nil
		})
	}
	s.group = g
}

func (s *Scheduler) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case tenant := <-s.ready:
			s.runOne(ctx, tenant)
		}
	}
}

func (s *Scheduler) runOne(ctx context.Context, tenant types.TenantID) {
	q := s.queueFor(tenant)

	q.mu.Lock()
	seeds, fullScan := q.pending, q.fullScan
	q.pending = nil
	q.fullScan = false
	q.state = stateRunning
	s.mu.Lock()
	delete(s.readyIn, tenant)
	s.mu.Unlock()
	q.mu.Unlock()

	runCtx := ctx
	var done context.CancelFunc
	if s.deadline > 0 {
		runCtx, done = context.WithTimeout(ctx, s.deadline)
	}
	if s.recompute != nil {
		var seedList []types.WalletID
		if fullScan {
			seedList = nil // nil seeds is the Enumerator's "full rescan" signal
		} else {
			seedList = make([]types.WalletID, 0, len(seeds))
			for w := range seeds {
				seedList = append(seedList, w)
			}
		}
		s.recompute(runCtx, tenant, seedList)
	}
	if done != nil {
		done()
	}

	q.mu.Lock()
	hasFollowUp := len(q.pending) > 0 || q.fullScan
	if hasFollowUp {
		q.state = statePending
	} else {
		q.state = stateIdle
	}
	q.mu.Unlock()

	if hasFollowUp {
		s.enqueue(tenant)
	}
}

// Stop satisfies modules.Scheduler. It signals every worker to exit and
// blocks until they have, but does not wait for any in-flight recompute
// beyond its own deadline - callers that need a clean drain should call
// Stop after the recompute deadline has had a chance to elapse.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.group != nil {
		s.group.Wait()
	}
}
