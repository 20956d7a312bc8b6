package config

import "time"

// ApplyDefaults fills every unset field of cfg with the workbench defaults.
// The scoring defaults reproduce the additive weighting engine's three
// standard profiles; the unified ranking score is their unweighted mean.
func ApplyDefaults(cfg *Config) {
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "filesystem"
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = "cache"
	}

	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "ipsignal:"
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = 5 * time.Second
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = 3 * time.Second
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = 3 * time.Second
	}

	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 4
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "internal/infrastructure/database/postgres/migrations"
	}

	if cfg.PatentsView.BaseURL == "" {
		cfg.PatentsView.BaseURL = "https://search.patentsview.org/api/v1"
	}
	if cfg.PatentsView.RequestInterval == 0 {
		cfg.PatentsView.RequestInterval = 1200 * time.Millisecond
	}
	if cfg.PatentsView.BackoffBase == 0 {
		cfg.PatentsView.BackoffBase = 2 * time.Second
	}
	if cfg.PatentsView.MaxRetries == 0 {
		cfg.PatentsView.MaxRetries = 5
	}
	if cfg.PatentsView.Timeout == 0 {
		cfg.PatentsView.Timeout = 30 * time.Second
	}

	if cfg.Pipeline.SnapshotPath == "" {
		cfg.Pipeline.SnapshotPath = "output/streaming-candidates.json"
	}
	if cfg.Pipeline.TaxonomyPath == "" {
		cfg.Pipeline.TaxonomyPath = "config/competitor-taxonomy.json"
	}
	if cfg.Pipeline.TopCompetitors == 0 {
		cfg.Pipeline.TopCompetitors = 20
	}

	if len(cfg.Sector.ClassFallback) == 0 {
		cfg.Sector.ClassFallback = defaultClassFallback()
	}

	if len(cfg.Scoring.Normalizers) == 0 {
		cfg.Scoring.Normalizers = DefaultNormalizers()
	}
	if len(cfg.Scoring.Profiles) == 0 {
		cfg.Scoring.Profiles = DefaultProfiles()
	}

	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "output/exports"
	}

	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9190"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
}

// defaultClassFallback is the broad CPC class table used when no configured
// prefix pattern matches a patent's codes.
func defaultClassFallback() []SectorPattern {
	return []SectorPattern{
		{Prefix: "H04L", Sector: "networking", Name: "Network Transmission"},
		{Prefix: "H04W", Sector: "wireless", Name: "Wireless Communication"},
		{Prefix: "H04N", Sector: "media", Name: "Video & Imaging"},
		{Prefix: "G06F", Sector: "computing", Name: "Computing & Data Processing"},
		{Prefix: "G06N", Sector: "ai", Name: "Machine Learning & AI"},
		{Prefix: "G06Q", Sector: "commerce", Name: "Business Methods"},
		{Prefix: "H01L", Sector: "semiconductor", Name: "Semiconductor Devices"},
		{Prefix: "G11C", Sector: "memory", Name: "Memory & Storage"},
		{Prefix: "H03M", Sector: "coding", Name: "Coding & Modulation"},
	}
}

// DefaultNormalizers maps each registered signal to its normalization
// policy.  The sqrt cap is deliberate for heavy-tailed citation counts; the
// exact formula stays configurable rather than hard-coded.
func DefaultNormalizers() map[string]NormalizerConfig {
	return map[string]NormalizerConfig{
		"competitor_citations": {Type: "sqrt", Max: 50},
		"competitor_count":     {Type: "linear", Max: 10},
		"forward_citations":    {Type: "sqrt", Max: 500},
		"years_remaining":      {Type: "pow", Max: 15, Exp: 1.5},

		"eligibility_score":         {Type: "likert"},
		"validity_score":            {Type: "likert"},
		"claim_breadth":             {Type: "likert"},
		"enforcement_clarity":       {Type: "likert"},
		"design_around_difficulty":  {Type: "likert"},
		"market_relevance_score":    {Type: "likert"},
		"ipr_risk_score":            {Type: "likert"},
		"prosecution_quality_score": {Type: "likert"},
	}
}

// DefaultProfiles returns the three standard weighting profiles.  They
// differ only in how far they lean on competitive evidence versus legal
// merit; the unified score averages all three to dampen any single
// weighting philosophy.
func DefaultProfiles() map[string]ProfileConfig {
	return map[string]ProfileConfig{
		"aggressive": {
			ApplyYearMultiplier: true,
			Weights: map[string]float64{
				"competitor_citations":      0.25,
				"competitor_count":          0.10,
				"forward_citations":         0.05,
				"years_remaining":           0.05,
				"eligibility_score":         0.15,
				"validity_score":            0.10,
				"claim_breadth":             0.05,
				"enforcement_clarity":       0.10,
				"market_relevance_score":    0.10,
				"ipr_risk_score":            0.025,
				"prosecution_quality_score": 0.025,
			},
		},
		"moderate": {
			ApplyYearMultiplier: true,
			Weights: map[string]float64{
				"competitor_citations":      0.15,
				"competitor_count":          0.05,
				"forward_citations":         0.10,
				"years_remaining":           0.05,
				"eligibility_score":         0.15,
				"validity_score":            0.15,
				"claim_breadth":             0.10,
				"enforcement_clarity":       0.10,
				"market_relevance_score":    0.10,
				"ipr_risk_score":            0.025,
				"prosecution_quality_score": 0.025,
			},
		},
		"conservative": {
			ApplyYearMultiplier: true,
			Weights: map[string]float64{
				"competitor_citations":      0.10,
				"competitor_count":          0.05,
				"forward_citations":         0.05,
				"years_remaining":           0.05,
				"eligibility_score":         0.20,
				"validity_score":            0.20,
				"claim_breadth":             0.10,
				"enforcement_clarity":       0.10,
				"market_relevance_score":    0.05,
				"ipr_risk_score":            0.05,
				"prosecution_quality_score": 0.05,
			},
		},
	}
}
