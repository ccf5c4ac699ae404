package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for kgx-storage.
//
// YAML example:
//   address: ":8080"
//   bucket: "translator-ingests"
//   region: "us-east-1"
//   snapshotPath: "metrics.json"
//   rebuild:
//     maxDepth: 4
//     concurrency: 4
//     interval: "1h"
//
// Environment overrides:
//   KGX_CONFIG path to YAML config file; if empty, loader tries ./config.yaml then defaults.
//   KGX_ADDR overrides Address when set.
//   KGX_BACKEND selects the store backend ("s3" or "fs").
//   KGX_BUCKET overrides Bucket.
//   KGX_REGION overrides Region.
//   KGX_S3_ENDPOINT overrides Endpoint.
//   KGX_SNAPSHOT overrides SnapshotPath.
//   KGX_ACCESS_KEY / KGX_SECRET_KEY override static credentials.
type Config struct {
	Address      string        `yaml:"address"`
	Backend      string        `yaml:"backend"` // "s3" (default) or "fs"
	FSRoot       string        `yaml:"fsRoot,omitempty"`
	Bucket       string        `yaml:"bucket"`
	Region       string        `yaml:"region"`
	Endpoint     string        `yaml:"endpoint,omitempty"`  // custom S3 endpoint (MinIO etc.)
	PathStyle    bool          `yaml:"pathStyle,omitempty"` // path-style addressing for S3 compatibles
	AccessKey    string        `yaml:"accessKey,omitempty"` // empty uses the default credential chain
	SecretKey    string        `yaml:"secretKey,omitempty"`
	SnapshotPath string        `yaml:"snapshotPath"`
	PresignTTL   time.Duration `yaml:"presignTTL"`
	Rebuild      RebuildConfig `yaml:"rebuild"`
	Tracing      TracingConfig `yaml:"tracing"`
	OIDC         OIDCConfig    `yaml:"oidc"` // admin endpoint OIDC verification
}

// RebuildConfig controls the metrics rebuild job.
type RebuildConfig struct {
	MaxDepth    int           `yaml:"maxDepth"`          // crawl depth bound
	Concurrency int           `yaml:"concurrency"`       // parallel prefix aggregations
	Interval    time.Duration `yaml:"interval"`          // background cadence (server mode)
	Background  bool          `yaml:"background"`        // run periodically inside the server
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`                // OTLP collector endpoint (host:port or URL)
	Protocol    string  `yaml:"protocol,omitempty"`      // "grpc" (default) or "http"
	SampleRatio float64 `yaml:"sampleRatio,omitempty"`   // 0.0 - 1.0
	ServiceName string  `yaml:"serviceName,omitempty"`   // override service.name; default "kgx-storage"
}

// OIDCConfig configures admin endpoint OIDC verification (disabled by default).
type OIDCConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Issuer   string `yaml:"issuer,omitempty"`
	ClientID string `yaml:"clientID,omitempty"`
	Audience string `yaml:"audience,omitempty"`
	JWKSURL  string `yaml:"jwksURL,omitempty"`
}

// Default returns a Config with safe, local defaults.
func Default() Config {
	return Config{
		Address:      ":8080",
		Backend:      "s3",
		Region:       "us-east-1",
		SnapshotPath: "metrics.json",
		PresignTTL:   time.Hour,
		Rebuild: RebuildConfig{
			MaxDepth:    4,
			Concurrency: 4,
			Interval:    time.Hour,
			Background:  false,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			Protocol:    "grpc",
			SampleRatio: 0.0,
			ServiceName: "kgx-storage",
		},
	}
}

// Load reads configuration from path. If path is empty, it attempts to read
// ./config.yaml; if not found, returns Default() with env overrides applied.
func Load(path string) (Config, error) {
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path == "" {
		return applyEnvOverrides(Default()), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return applyEnvOverrides(Default()), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return applyEnvOverrides(cfg), nil
}

// Validate checks settings that have no usable default.
func Validate(cfg Config) error {
	switch cfg.Backend {
	case "", "s3":
		if strings.TrimSpace(cfg.Bucket) == "" {
			return errors.New("config: bucket is required")
		}
	case "fs":
		if strings.TrimSpace(cfg.FSRoot) == "" {
			return errors.New("config: fsRoot is required for the fs backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", cfg.Backend)
	}
	if cfg.Rebuild.MaxDepth <= 0 {
		return errors.New("config: rebuild.maxDepth must be positive")
	}
	return nil
}

func applyEnvOverrides(cfg Config) Config {
	if v := os.Getenv("KGX_ADDR"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("KGX_BACKEND"); v != "" {
		cfg.Backend = strings.TrimSpace(v)
	}
	if v := os.Getenv("KGX_FS_ROOT"); v != "" {
		cfg.FSRoot = strings.TrimSpace(v)
	}
	if v := os.Getenv("KGX_BUCKET"); v != "" {
		cfg.Bucket = strings.TrimSpace(v)
	}
	if v := os.Getenv("KGX_REGION"); v != "" {
		cfg.Region = strings.TrimSpace(v)
	}
	if v := os.Getenv("KGX_S3_ENDPOINT"); v != "" {
		cfg.Endpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("KGX_PATH_STYLE"); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.PathStyle = b
		}
	}
	if v := os.Getenv("KGX_ACCESS_KEY"); v != "" {
		cfg.AccessKey = v
	}
	if v := os.Getenv("KGX_SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("KGX_SNAPSHOT"); v != "" {
		cfg.SnapshotPath = strings.TrimSpace(v)
	}
	if v := os.Getenv("KGX_PRESIGN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PresignTTL = d
		}
	}
	if v := os.Getenv("KGX_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Rebuild.MaxDepth = n
		}
	}
	if v := os.Getenv("KGX_REBUILD_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Rebuild.Concurrency = n
		}
	}
	if v := os.Getenv("KGX_REBUILD_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Rebuild.Interval = d
		}
	}
	if v := os.Getenv("KGX_REBUILD_BACKGROUND"); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.Rebuild.Background = b
		}
	}
	if v := os.Getenv("KGX_TRACING_ENABLED"); v != "" {
		if b, ok := parseBool(v); ok {
			cfg.Tracing.Enabled = b
		}
	}
	if v := os.Getenv("KGX_TRACING_ENDPOINT"); v != "" {
		cfg.Tracing.Endpoint = strings.TrimSpace(v)
	}
	return cfg
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	}
	return false, false
}
