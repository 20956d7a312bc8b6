// Package config defines all configuration structures for the ipsignal
// workbench.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"

	"github.com/ipbench/ipsignal/internal/infrastructure/monitoring/logging"
)

// CacheConfig selects and parameterises the per-patent record store.
type CacheConfig struct {
	// Backend is "filesystem" or "redis".
	Backend string `mapstructure:"backend"`

	// Dir is the root directory for the filesystem backend.  Each record
	// kind gets a subdirectory with one JSON file per patent.
	Dir string `mapstructure:"dir"`
}

// RedisConfig holds Redis connection parameters for the redis cache backend.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection parameters for the relational
// snapshot store.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// MinIOConfig holds S3-compatible object-storage parameters for report
// archival.  Upload is skipped entirely when Enabled is false.
type MinIOConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// PatentsViewConfig holds parameters for the upstream patent-metadata API.
type PatentsViewConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`

	// RequestInterval is the minimum spacing between requests; the upstream
	// quota allows roughly one request per second.
	RequestInterval time.Duration `mapstructure:"request_interval"`

	// BackoffBase is the initial retry delay after a 429/5xx; it doubles on
	// each retry up to MaxRetries attempts.
	BackoffBase time.Duration `mapstructure:"backoff_base"`
	MaxRetries  int           `mapstructure:"max_retries"`

	Timeout time.Duration `mapstructure:"timeout"`
}

// PipelineConfig holds inputs shared by the batch commands.
type PipelineConfig struct {
	// SnapshotPath is the portfolio snapshot JSON (the authoritative patent
	// list for a run).
	SnapshotPath string `mapstructure:"snapshot_path"`

	// TaxonomyPath is the competitor taxonomy JSON.
	TaxonomyPath string `mapstructure:"taxonomy_path"`

	// GroundTruthPath is an optional alternate classification export used by
	// validation mode.  May be empty or point at a missing file.
	GroundTruthPath string `mapstructure:"ground_truth_path"`

	// TopCompetitors is the N for the per-run top competitor breakdown.
	TopCompetitors int `mapstructure:"top_competitors"`
}

// SectorPattern maps a CPC code prefix to a sector.
type SectorPattern struct {
	Prefix string `mapstructure:"prefix"`
	Sector string `mapstructure:"sector"`
	Name   string `mapstructure:"name"`
}

// SectorConfig holds the sector assignment inputs.
type SectorConfig struct {
	// TermAssignmentsPath is the externally computed term-cluster sector
	// assignment JSON (patent_id → sector).  Optional.
	TermAssignmentsPath string `mapstructure:"term_assignments_path"`

	// Patterns are CPC-prefix rules, tried longest-prefix-first.
	Patterns []SectorPattern `mapstructure:"patterns"`

	// ClassFallback are broad 4-character CPC class rules applied when no
	// pattern matches.
	ClassFallback []SectorPattern `mapstructure:"class_fallback"`
}

// NormalizerConfig describes how a raw signal value maps into [0,1].
type NormalizerConfig struct {
	// Type is "linear", "sqrt", "pow", or "likert".
	Type string `mapstructure:"type"`

	// Max is the cap for linear/sqrt/pow normalization.
	Max float64 `mapstructure:"max"`

	// Exp is the exponent for pow normalization.
	Exp float64 `mapstructure:"exp"`
}

// ProfileConfig is a named weighting profile.  Weights need not sum to 1;
// they are renormalized per patent by the weight actually present.
type ProfileConfig struct {
	Weights map[string]float64 `mapstructure:"weights"`

	// ApplyYearMultiplier scales the profile score by
	// 0.3 + 0.7*(years/15)^0.8, favouring patents with runway.
	ApplyYearMultiplier bool `mapstructure:"apply_year_multiplier"`
}

// ScoringConfig holds the composite scorer's data-driven policy.
type ScoringConfig struct {
	Normalizers map[string]NormalizerConfig `mapstructure:"normalizers"`
	Profiles    map[string]ProfileConfig    `mapstructure:"profiles"`
}

// ExportConfig holds report emission parameters.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// MetricsConfig enables the Prometheus listener for long batch runs.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// Config is the root configuration structure for the workbench.
type Config struct {
	Cache       CacheConfig       `mapstructure:"cache"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Database    DatabaseConfig    `mapstructure:"database"`
	MinIO       MinIOConfig       `mapstructure:"minio"`
	PatentsView PatentsViewConfig `mapstructure:"patentsview"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Sector      SectorConfig      `mapstructure:"sector"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Export      ExportConfig      `mapstructure:"export"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Log         logging.LogConfig `mapstructure:"log"`
}

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers treat any error as fatal
// and refuse to start the run.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "filesystem":
		if c.Cache.Dir == "" {
			return fmt.Errorf("config: cache.dir is required for the filesystem backend")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: cache.backend %q is invalid; expected filesystem|redis", c.Cache.Backend)
	}

	if c.Pipeline.TopCompetitors < 1 {
		return fmt.Errorf("config: pipeline.top_competitors must be >= 1, got %d", c.Pipeline.TopCompetitors)
	}

	if c.PatentsView.RequestInterval <= 0 {
		return fmt.Errorf("config: patentsview.request_interval must be positive")
	}
	if c.PatentsView.MaxRetries < 0 {
		return fmt.Errorf("config: patentsview.max_retries must be >= 0, got %d", c.PatentsView.MaxRetries)
	}

	if len(c.Scoring.Profiles) == 0 {
		return fmt.Errorf("config: scoring.profiles must define at least one profile")
	}
	for name, p := range c.Scoring.Profiles {
		if len(p.Weights) == 0 {
			return fmt.Errorf("config: scoring profile %q has no weights", name)
		}
		for signal, w := range p.Weights {
			if w < 0 {
				return fmt.Errorf("config: scoring profile %q weight for %q is negative", name, signal)
			}
		}
	}
	for signal, n := range c.Scoring.Normalizers {
		switch n.Type {
		case "linear", "sqrt", "pow":
			if n.Max <= 0 {
				return fmt.Errorf("config: normalizer for %q needs max > 0", signal)
			}
		case "likert":
		default:
			return fmt.Errorf("config: normalizer for %q has invalid type %q", signal, n.Type)
		}
	}

	for _, p := range c.Sector.ClassFallback {
		if len(p.Prefix) != 4 {
			return fmt.Errorf("config: sector class_fallback prefix %q must be 4 characters", p.Prefix)
		}
	}

	if c.MinIO.Enabled {
		if c.MinIO.Endpoint == "" || c.MinIO.Bucket == "" {
			return fmt.Errorf("config: minio.endpoint and minio.bucket are required when minio.enabled")
		}
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}

	return nil
}
