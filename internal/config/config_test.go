package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.ListenAddr == "" {
		t.Fatal("Default().ListenAddr is empty")
	}
	if cfg.IdleShutdown <= 0 {
		t.Fatal("Default().IdleShutdown must be positive")
	}
	if cfg.CacheTTL <= 0 {
		t.Fatal("Default().CacheTTL must be positive")
	}
}

func TestLoadWithoutConfigFileReturnsDefaults(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != Default().ListenAddr {
		t.Fatalf("ListenAddr = %q, want default %q", cfg.ListenAddr, Default().ListenAddr)
	}
}

func TestLoadReadsProjectYAML(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".mu"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "listen_addr: 127.0.0.1:9999\ncache_ttl: 1m\n"
	if err := os.WriteFile(filepath.Join(root, ".mu", "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9999" {
		t.Fatalf("ListenAddr = %q, want 127.0.0.1:9999", cfg.ListenAddr)
	}
	if cfg.CacheTTL != time.Minute {
		t.Fatalf("CacheTTL = %v, want 1m", cfg.CacheTTL)
	}
	// A value the yaml file does not override should retain its default.
	if cfg.Debounce != Default().Debounce {
		t.Fatalf("Debounce = %v, want default %v", cfg.Debounce, Default().Debounce)
	}
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".mu"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "listen_addr: 127.0.0.1:9999\n"
	if err := os.WriteFile(filepath.Join(root, ".mu", "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MU_LISTEN_ADDR", "127.0.0.1:8888")
	cfg, err := Load(root)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:8888" {
		t.Fatalf("ListenAddr = %q, want env override 127.0.0.1:8888", cfg.ListenAddr)
	}
}

func TestLoadProjectConfigDefaultsOnMissingFile(t *testing.T) {
	cfg := LoadProjectConfig(t.TempDir())
	if cfg == nil {
		t.Fatal("LoadProjectConfig returned nil")
	}
	if len(cfg.Ignore) != 0 {
		t.Fatalf("Ignore = %v, want empty default", cfg.Ignore)
	}
}

func TestLoadProjectConfigReadsIgnoreList(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".mu"), 0o755); err != nil {
		t.Fatal(err)
	}
	yaml := "ignore:\n  - vendor\n  - node_modules\nwatch:\n  debounce: 50ms\n"
	if err := os.WriteFile(filepath.Join(root, ".mu", "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := LoadProjectConfig(root)
	if len(cfg.Ignore) != 2 || cfg.Ignore[0] != "vendor" || cfg.Ignore[1] != "node_modules" {
		t.Fatalf("Ignore = %v, want [vendor node_modules]", cfg.Ignore)
	}
	if cfg.Watch.Debounce != 50*time.Millisecond {
		t.Fatalf("Watch.Debounce = %v, want 50ms", cfg.Watch.Debounce)
	}
}
