package daemon

import "testing"

func TestProcessConfigDefaultsEmptyRootDir(t *testing.T) {
	cfg, err := ProcessConfig(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RootPersistentDir != "." {
		t.Fatalf("got RootPersistentDir %q, want the current directory default", cfg.RootPersistentDir)
	}
}

func TestProcessConfigKeepsExplicitRootDir(t *testing.T) {
	cfg, err := ProcessConfig(Config{RootPersistentDir: "/var/lib/tradeloopd"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.RootPersistentDir != "/var/lib/tradeloopd" {
		t.Fatalf("got RootPersistentDir %q, want the caller's explicit value preserved", cfg.RootPersistentDir)
	}
}

func TestConfigFilePathJoinsRootDirForRelativePaths(t *testing.T) {
	cfg := Config{RootPersistentDir: "/data", ConfigFile: "engine.toml"}
	if got, want := cfg.configFilePath(), "/data/engine.toml"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestConfigFilePathKeepsAbsolutePaths(t *testing.T) {
	cfg := Config{RootPersistentDir: "/data", ConfigFile: "/etc/tradeloopd/engine.toml"}
	if got, want := cfg.configFilePath(), "/etc/tradeloopd/engine.toml"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
