package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.Address != ":8080" {
		t.Fatalf("address = %q", cfg.Address)
	}
	if cfg.Rebuild.MaxDepth != 4 || cfg.Rebuild.Concurrency != 4 {
		t.Fatalf("rebuild defaults = %+v", cfg.Rebuild)
	}
	if cfg.PresignTTL != time.Hour {
		t.Fatalf("presign ttl = %v", cfg.PresignTTL)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("address: \":9090\"\nbucket: \"translator-ingests\"\nsnapshotPath: \"/var/cache/kgx/metrics.json\"\nrebuild:\n  maxDepth: 2\n  interval: \"30m\"\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address != ":9090" || cfg.Bucket != "translator-ingests" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Rebuild.MaxDepth != 2 || cfg.Rebuild.Interval != 30*time.Minute {
		t.Fatalf("rebuild = %+v", cfg.Rebuild)
	}
	// Unset fields keep their defaults.
	if cfg.Rebuild.Concurrency != 4 || cfg.Region != "us-east-1" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address != ":8080" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("KGX_BUCKET", "other-bucket")
	t.Setenv("KGX_MAX_DEPTH", "6")
	t.Setenv("KGX_REBUILD_BACKGROUND", "yes")
	t.Setenv("KGX_PRESIGN_TTL", "15m")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bucket != "other-bucket" {
		t.Fatalf("bucket = %q", cfg.Bucket)
	}
	if cfg.Rebuild.MaxDepth != 6 || !cfg.Rebuild.Background {
		t.Fatalf("rebuild = %+v", cfg.Rebuild)
	}
	if cfg.PresignTTL != 15*time.Minute {
		t.Fatalf("presign ttl = %v", cfg.PresignTTL)
	}
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	t.Setenv("KGX_MAX_DEPTH", "banana")
	t.Setenv("KGX_PATH_STYLE", "maybe")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Rebuild.MaxDepth != 4 || cfg.PathStyle {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
	cfg.Bucket = "translator-ingests"
	if err := Validate(cfg); err != nil {
		t.Fatalf("validate: %v", err)
	}
	cfg.Rebuild.MaxDepth = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for zero depth")
	}
}
