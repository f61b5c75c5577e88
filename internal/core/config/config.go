package config

import (
	"fmt"
	"strings"
	"time"

	coreagg "github.com/aevon-lab/resampler/internal/core/aggregation"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "RESAMPLER_"

// Config represents the top-level application config plus the loaded aggregation setups.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Cache       CacheConfig       `koanf:"cache"`
	Aggregation AggregationConfig `koanf:"aggregation"`

	// Setups is populated by Load from aggregation.setup_dir.
	Setups *coreagg.FileSystemSetupRepository `koanf:"-"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

// DatabaseConfig configures the Postgres run ledger. When disabled, runs are kept in memory.
type DatabaseConfig struct {
	Enabled      bool   `koanf:"enabled"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

type AggregationConfig struct {
	Enabled           bool          `koanf:"enabled"`
	DataDir           string        `koanf:"data_dir"`
	SetupDir          string        `koanf:"setup_dir"`
	ScopePath         string        `koanf:"scope_path"`
	CronInterval      time.Duration `koanf:"cron_interval"`
	WorkerCount       int           `koanf:"worker_count"`
	ChannelBufferSize int           `koanf:"channel_buffer_size"`
	ChunkBytes        int           `koanf:"chunk_bytes"`
	CommitRetries     int           `koanf:"commit_retries"`
	CommitRetryDelay  time.Duration `koanf:"commit_retry_delay"`
	QualityThreshold  float64       `koanf:"quality_threshold"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.port":                     8080,
		"server.host":                     "0.0.0.0",
		"server.mode":                     "release",
		"database.enabled":                false,
		"database.dsn":                    "",
		"database.max_open_conns":         10,
		"database.max_idle_conns":         5,
		"database.auto_migrate":           true,
		"cache.enabled":                   true,
		"cache.dir":                       "./data/cache",
		"aggregation.enabled":             true,
		"aggregation.data_dir":            "./data/aggregation",
		"aggregation.setup_dir":           "./config/aggregations",
		"aggregation.scope_path":          "/",
		"aggregation.cron_interval":       "1h",
		"aggregation.worker_count":        4,
		"aggregation.channel_buffer_size": 4,
		"aggregation.chunk_bytes":         4 << 20,
		"aggregation.commit_retries":      10,
		"aggregation.commit_retry_delay":  "2s",
		"aggregation.quality_threshold":   0.99,
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if c.Database.Enabled {
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required when database.enabled is set")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns < 0 {
			return fmt.Errorf("database.max_idle_conns must be >= 0")
		}
	}

	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Dir) == "" {
		return fmt.Errorf("cache.dir is required when cache.enabled is set")
	}

	agg := c.Aggregation
	if strings.TrimSpace(agg.DataDir) == "" {
		return fmt.Errorf("aggregation.data_dir is required")
	}
	if !strings.HasPrefix(agg.ScopePath, "/") {
		return fmt.Errorf("invalid aggregation.scope_path %q (must start with /)", agg.ScopePath)
	}
	if agg.Enabled && agg.CronInterval <= 0 {
		return fmt.Errorf("aggregation.cron_interval must be > 0")
	}
	if agg.WorkerCount <= 0 {
		return fmt.Errorf("aggregation.worker_count must be > 0")
	}
	if agg.ChannelBufferSize <= 0 {
		return fmt.Errorf("aggregation.channel_buffer_size must be > 0")
	}
	if agg.ChunkBytes <= 0 {
		return fmt.Errorf("aggregation.chunk_bytes must be > 0")
	}
	if agg.CommitRetries <= 0 {
		return fmt.Errorf("aggregation.commit_retries must be > 0")
	}
	if agg.CommitRetryDelay < 0 {
		return fmt.Errorf("aggregation.commit_retry_delay must be >= 0")
	}
	if agg.QualityThreshold < 0 || agg.QualityThreshold > 1 {
		return fmt.Errorf("invalid aggregation.quality_threshold %v (must be within [0, 1])", agg.QualityThreshold)
	}

	return nil
}

// Load parses config from defaults, file and env, validates it, then loads the
// aggregation setups from aggregation.setup_dir.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range defaults() {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setups, err := coreagg.NewFileSystemSetupRepository(cfg.Aggregation.SetupDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load aggregation setups: %w", err)
	}
	cfg.Setups = setups

	return &cfg, nil
}
