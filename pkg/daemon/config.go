// Package daemon wires the engine's internal components (Graph Store,
// Enumerator, Scoring & Filter, Loop Cache, Scheduler, Event Bus, Tenant
// Isolation Layer, Persistent Trade Service) into a single running process,
// the way rivined wired Gateway/ConsensusSet/TransactionPool/Wallet/
// BlockCreator into siad. There is no HTTP API layer: spec.md's Non-goals
// exclude external-facing transport, so this package's "server" is the
// in-process Service plus its background Scheduler loop.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config contains all configurable variables for tradeloopd.
type Config struct {
	// ConfigFile is the TOML file read for engine/tenant tuning. Missing
	// is not an error: config.Load falls back to spec defaults.
	ConfigFile string

	// RootPersistentDir is the parent directory under which the replay
	// log and log files are created.
	RootPersistentDir string

	// VerboseLogging enables persist.Logger's Debugln output.
	VerboseLogging bool

	// DisablePersistence skips opening a delta-log replay store entirely,
	// running the engine with in-memory-only Graph Stores.
	DisablePersistence bool
}

// DefaultConfig returns the default daemon configuration.
func DefaultConfig() Config {
	return Config{
		ConfigFile:        "tradeloopd.toml",
		RootPersistentDir: "",
		VerboseLogging:    false,
	}
}

// ProcessConfig checks the configuration values and performs cleanup on
// incorrect-but-allowed values.
func ProcessConfig(cfg Config) (Config, error) {
	if cfg.RootPersistentDir == "" {
		cfg.RootPersistentDir = "."
	}
	return cfg, nil
}

func (cfg Config) deltaLogPath() string {
	return filepath.Join(cfg.RootPersistentDir, "deltas.db")
}

func (cfg Config) logPath() string {
	return filepath.Join(cfg.RootPersistentDir, "tradeloopd.log")
}

func (cfg Config) configFilePath() string {
	if filepath.IsAbs(cfg.ConfigFile) {
		return cfg.ConfigFile
	}
	return filepath.Join(cfg.RootPersistentDir, cfg.ConfigFile)
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("daemon: could not create %s: %w", dir, err)
	}
	return nil
}
