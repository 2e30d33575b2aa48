package config

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nftbarter/tradeloop-engine/types"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Engine.WorkerPoolSize != 4 {
		t.Fatalf("got worker pool size %d, want the default of 4", cfg.Engine.WorkerPoolSize)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "engine.toml")
	maxWallets := 500

	cfg := DefaultEngineConfig()
	cfg.Engine.WorkerPoolSize = 8
	cfg.Tenants["tenant-a"] = TenantOverride{MaxWallets: &maxWallets}

	if err := Save(filename, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(filename)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Engine.WorkerPoolSize != 8 {
		t.Fatalf("got worker pool size %d, want 8", loaded.Engine.WorkerPoolSize)
	}
	override, ok := loaded.Tenants["tenant-a"]
	if !ok || override.MaxWallets == nil || *override.MaxWallets != 500 {
		t.Fatalf("got %+v, want tenant-a's MaxWallets override of 500", override)
	}
}

func TestRegistryConfigAppliesOverrideAndClamps(t *testing.T) {
	maxLoopLength := 99 // above the hard cap, must be clamped
	minScore := 0.5

	cfg := DefaultEngineConfig()
	cfg.Tenants["t1"] = TenantOverride{
		MaxLoopLength: &maxLoopLength,
		MinScore:      &minScore,
	}
	reg := NewRegistry(cfg)

	got, err := reg.Config(context.Background(), types.TenantID("t1"))
	if err != nil {
		t.Fatal(err)
	}
	if got.MaxLoopLength != types.HardMaxLoopLength {
		t.Fatalf("got MaxLoopLength %d, want it clamped to the hard cap %d", got.MaxLoopLength, types.HardMaxLoopLength)
	}
	if got.MinScore != 0.5 {
		t.Fatalf("got MinScore %v, want 0.5", got.MinScore)
	}
}

func TestRegistryConfigFallsBackToDefaultsForUnknownTenant(t *testing.T) {
	reg := NewRegistry(DefaultEngineConfig())
	got, err := reg.Config(context.Background(), types.TenantID("unknown"))
	if err != nil {
		t.Fatal(err)
	}
	want := types.DefaultTenantConfig().Clamp()
	if got != want {
		t.Fatalf("got %+v, want the clamped defaults %+v", got, want)
	}
}
