package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/nftbarter/tradeloop-engine/build"
	"github.com/nftbarter/tradeloop-engine/config"
	"github.com/nftbarter/tradeloop-engine/modules"
	"github.com/nftbarter/tradeloop-engine/modules/enumerator"
	"github.com/nftbarter/tradeloop-engine/modules/eventbus"
	"github.com/nftbarter/tradeloop-engine/modules/fingerprint"
	"github.com/nftbarter/tradeloop-engine/modules/graphstore"
	"github.com/nftbarter/tradeloop-engine/modules/loopcache"
	"github.com/nftbarter/tradeloop-engine/modules/scheduler"
	"github.com/nftbarter/tradeloop-engine/modules/scoring"
	"github.com/nftbarter/tradeloop-engine/modules/tenant"
	"github.com/nftbarter/tradeloop-engine/modules/tradeservice"
	"github.com/nftbarter/tradeloop-engine/persist"
	"github.com/nftbarter/tradeloop-engine/types"
)

// Engine bundles every running component the daemon owns, so a caller (the
// cmd/tradeloopd CLI, or a test) can reach the Service and shut everything
// down in the right order.
type Engine struct {
	Service  *tradeservice.Service
	Registry *tenant.Registry

	sched    modules.Scheduler
	deltaLog *persist.DeltaLog
	logger   *persist.Logger
	cancel   context.CancelFunc
}

// NewEngine wires the Graph Store, Loop Cache, Scheduler, Event Bus, Tenant
// Isolation Layer and Persistent Trade Service together per cfg, the way
// rivined.StartDaemon wired Gateway/ConsensusSet/TransactionPool/Wallet.
// Loading progress is printed the same "(n/N) Loading ..." way.
func NewEngine(cfg Config) (*Engine, error) {
	const totalSteps = 5
	step := 0
	next := func(name string) {
		step++
		fmt.Printf("(%d/%d) Loading %s...\n", step, totalSteps, name)
	}

	if err := ensureDir(cfg.RootPersistentDir); err != nil {
		return nil, err
	}

	next("logger")
	logger, err := persist.NewFileLogger("tradeloopd", cfg.logPath(), cfg.VerboseLogging)
	if err != nil {
		return nil, err
	}

	next("engine configuration")
	engineCfg, err := config.Load(cfg.configFilePath())
	if err != nil {
		logger.Close()
		return nil, err
	}
	registry := config.NewRegistry(engineCfg)

	var deltaLog *persist.DeltaLog
	if !cfg.DisablePersistence {
		next("replay log")
		deltaLog, err = persist.OpenDeltaLog(cfg.deltaLogPath())
		if err != nil {
			logger.Close()
			return nil, err
		}
	} else {
		step++
	}

	next("event bus and scheduler")
	bus := eventbus.New()
	enum := enumerator.New()

	factory := tenant.Factory{
		NewStore: func(tid types.TenantID) modules.GraphStore {
			var sink graphstore.DeltaSink
			if deltaLog != nil {
				sink = deltaLog
			}
			return graphstore.New(tid, sink)
		},
		NewCache: func(tid types.TenantID, tcfg types.TenantConfig, clock modules.Clock, bus modules.EventBus) (modules.LoopCache, error) {
			return loopcache.New(tid, tcfg.CacheMaxEntries, clock, bus)
		},
		Clock: modules.RealClock{},
		Bus:   bus,
	}
	tenants := tenant.NewRegistry(factory, registry)

	recompute := func(ctx context.Context, tid types.TenantID, seeds []types.WalletID) {
		c, err := tenants.Get(ctx, tid)
		if err != nil {
			logger.Println("recompute: could not resolve tenant", tid, ":", err)
			return
		}
		runRecompute(ctx, c, enum, seeds, logger)
	}

	sched := scheduler.New(scheduler.Config{
		Clock:          modules.RealClock{},
		Recompute:      recompute,
		WorkerPoolSize: engineCfg.Engine.WorkerPoolSize,
	})

	next("trade service")
	svc := tradeservice.New(tenants, sched, bus, modules.RealClock{})

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	return &Engine{
		Service:  svc,
		Registry: tenants,
		sched:    sched,
		deltaLog: deltaLog,
		logger:   logger,
		cancel:   cancel,
	}, nil
}

// runRecompute performs one tenant's discovery pass seeded from the wallets
// the triggering delta perturbed (or every wallet in the snapshot, on a
// scheduler-driven full rescan): enumerate, score every candidate, and store
// the accepted ones in its Loop Cache (which itself publishes
// loop_discovered on the event bus). Failures are logged, never panicked -
// spec.md's Scheduler contract says a recompute failure must not take down
// the worker pool or other tenants.
func runRecompute(ctx context.Context, c *tenant.Container, enum *enumerator.Enumerator, seeds []types.WalletID, logger *persist.Logger) {
	started := time.Now()
	snap := c.Store.Snapshot()

	limits := modules.EnumerationLimits{
		MaxLoopLen:             c.Config.MaxLoopLength,
		MaxLoopsPerCall:        1000,
		TimeBudget:             c.Config.RecomputeDeadline,
		CollectionExpansionCap: c.Config.CollectionExpansionCap,
		MinScoreUpperBound:     c.Config.MinScore,
	}
	result := enum.Enumerate(ctx, snap, seeds, limits)

	scorer := scoring.New(scoring.Policy{MinScore: c.Config.MinScore}, nil)

	for _, loop := range result.Loops {
		score := scorer.Score(loop)
		if !scorer.Accept(loop, score) {
			continue
		}
		c.Cache.Store(types.CachedLoop{
			Fingerprint: fingerprint.Compute(loop),
			Loop:        loop,
			Score:       score,
			CreatedAt:   started,
			TTL:         c.Config.CacheTTL,
			Status:      types.StatusFresh,
		})
	}
	c.Metrics.RecordRecompute(int64(time.Since(started)))
}

// Close shuts every owned component down in reverse dependency order.
func (e *Engine) Close() error {
	e.cancel()
	e.sched.Stop()
	errRegistry := e.Registry.Close()
	var errDelta, errLog error
	if e.deltaLog != nil {
		errDelta = e.deltaLog.Close()
	}
	if e.logger != nil {
		errLog = e.logger.Close()
	}
	return build.JoinErrors([]error{errRegistry, errDelta, errLog}, ", and ")
}

// StartDaemon builds an Engine per cfg and blocks until a termination signal
// is received, then shuts the engine down. It only returns once shutdown is
// complete, mirroring rivined.StartDaemon's run-until-signal contract.
func StartDaemon(cfg Config) error {
	cfg, err := ProcessConfig(cfg)
	if err != nil {
		return err
	}

	fmt.Println("Loading...")
	loadStart := time.Now()

	engine, err := NewEngine(cfg)
	if err != nil {
		return err
	}

	fmt.Println("Finished loading in", time.Since(loadStart).Seconds(), "seconds")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan
	fmt.Println("\rCaught stop signal, quitting...")

	return engine.Close()
}
