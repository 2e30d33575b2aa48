package main

import (
	"github.com/nftbarter/tradeloop-engine/pkg/daemon"
)

// main starts the Tradeloop Engine daemon: a process wiring the Graph
// Store, Scheduler, Loop Cache, Event Bus and Tenant Isolation Layer into a
// single running engine, following the teacher daemon's setup-then-block
// structure (see pkg/daemon.SetupDefaultDaemon / StartDaemon).
func main() {
	cfg := daemon.DefaultConfig()
	daemon.SetupDefaultDaemon(cfg)
}
