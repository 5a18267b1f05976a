// Package config loads the radar configuration from a YAML file. Secrets
// (API keys, bot tokens) come from the environment, never from the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"dexradar/internal/budget"
	"dexradar/internal/domain"
	"dexradar/internal/funnel"
)

// Config is the full radar configuration.
type Config struct {
	Slicing    SlicingConfig          `yaml:"slicing"`
	Sources    []SourceConfig         `yaml:"sources"`
	Collector  CollectorConfig        `yaml:"collector"`
	Endpoints  EndpointsConfig        `yaml:"endpoints"`
	Thresholds ThresholdsConfig       `yaml:"thresholds"`
	Scoring    ScoringConfig          `yaml:"scoring"`
	Quotas     map[string]QuotaConfig `yaml:"quotas"`
	Storage    StorageConfig          `yaml:"storage"`
	Telegram   TelegramConfig         `yaml:"telegram"`
}

// SlicingConfig bounds the pair-age range and slice width.
type SlicingConfig struct {
	MinAgeDays float64 `yaml:"min_age_days"`
	MaxAgeDays float64 `yaml:"max_age_days"`
	SliceDays  float64 `yaml:"slice_days"`
}

// SourceConfig describes one subgraph source.
type SourceConfig struct {
	Name           string  `yaml:"name"`
	EndpointID     string  `yaml:"endpoint_id"`
	Schema         string  `yaml:"schema"`
	ChainID        string  `yaml:"chain_id"`
	LiquidityFloor float64 `yaml:"liquidity_floor"`
	Active         bool    `yaml:"active"`
	Priority       int     `yaml:"priority"`
}

// CollectorConfig tunes the pagination loop.
type CollectorConfig struct {
	PageSize    int `yaml:"page_size"`
	MaxPages    int `yaml:"max_pages"`
	PageDelayMS int `yaml:"page_delay_ms"`
}

// EndpointsConfig lists collaborator base URLs.
type EndpointsConfig struct {
	SubgraphBaseURL  string `yaml:"subgraph_base_url"`
	ScreenerBaseURL  string `yaml:"screener_base_url"`
	SecurityBaseURL  string `yaml:"security_base_url"`
	ExplorerBaseURL  string `yaml:"explorer_base_url"`
	LivestreamURL    string `yaml:"livestream_url"`
}

// ThresholdsConfig holds the funnel stage parameters.
type ThresholdsConfig struct {
	OnChainMinScore   int      `yaml:"onchain_min_score"`
	OnChainMax        int      `yaml:"onchain_max"`
	EnrichTopK        int      `yaml:"enrich_top_k"`
	EnrichBaseBar     int      `yaml:"enrich_base_bar"`
	EnrichHighBar     int      `yaml:"enrich_high_bar"`
	QuotaLowWatermark int      `yaml:"quota_low_watermark"`
	AlertMinScore     int      `yaml:"alert_min_score"`
	Alertable         []string `yaml:"alertable"`
}

// ScoringConfig tunes tier resolution.
type ScoringConfig struct {
	StrongMinCriteria int `yaml:"strong_min_criteria"`
}

// QuotaConfig limits one external service. Zero means unlimited.
type QuotaConfig struct {
	PerMinute int `yaml:"per_minute"`
	PerDay    int `yaml:"per_day"`
}

// StorageConfig selects persistence backends. Empty DSN disables a backend.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickHouseDSN string `yaml:"clickhouse_dsn"`
}

// TelegramConfig enables alert delivery to a chat. The bot token comes from
// the TELEGRAM_BOT_TOKEN environment variable.
type TelegramConfig struct {
	Enabled bool  `yaml:"enabled"`
	ChatID  int64 `yaml:"chat_id"`
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in defaults; Load overlays the file on top.
func Default() *Config {
	return &Config{
		Slicing: SlicingConfig{MinAgeDays: 30, MaxAgeDays: 90, SliceDays: 10},
		Collector: CollectorConfig{
			PageSize:    100,
			MaxPages:    20,
			PageDelayMS: 500,
		},
		Thresholds: ThresholdsConfig{
			OnChainMinScore:   40,
			OnChainMax:        50,
			EnrichTopK:        20,
			EnrichBaseBar:     55,
			EnrichHighBar:     75,
			QuotaLowWatermark: 50,
			AlertMinScore:     70,
			Alertable:         []string{string(domain.RecStrongBuy), string(domain.RecBuy)},
		},
		Scoring: ScoringConfig{StrongMinCriteria: 3},
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Slicing.MinAgeDays < 0 {
		return fmt.Errorf("slicing: min_age_days %.1f must be >= 0", c.Slicing.MinAgeDays)
	}
	if c.Slicing.MaxAgeDays <= c.Slicing.MinAgeDays {
		return fmt.Errorf("slicing: max_age_days %.1f must exceed min_age_days %.1f",
			c.Slicing.MaxAgeDays, c.Slicing.MinAgeDays)
	}
	if c.Slicing.SliceDays <= 0 {
		return fmt.Errorf("slicing: slice_days %.1f must be positive", c.Slicing.SliceDays)
	}

	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}
		if !domain.SchemaVariant(src.Schema).IsValid() {
			return fmt.Errorf("sources[%d] %s: unknown schema %q", i, src.Name, src.Schema)
		}
		if src.ChainID == "" {
			return fmt.Errorf("sources[%d] %s: chain_id is required", i, src.Name)
		}
	}

	if c.Thresholds.EnrichHighBar < c.Thresholds.EnrichBaseBar {
		return fmt.Errorf("thresholds: enrich_high_bar %d must be >= enrich_base_bar %d",
			c.Thresholds.EnrichHighBar, c.Thresholds.EnrichBaseBar)
	}

	if c.Telegram.Enabled && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram: chat_id is required when enabled")
	}
	return nil
}

// SourceDescriptors converts the source entries to domain descriptors.
func (c *Config) SourceDescriptors() []domain.SourceDescriptor {
	out := make([]domain.SourceDescriptor, 0, len(c.Sources))
	for _, src := range c.Sources {
		out = append(out, domain.SourceDescriptor{
			Name:           src.Name,
			EndpointID:     src.EndpointID,
			Schema:         domain.SchemaVariant(src.Schema),
			ChainID:        src.ChainID,
			LiquidityFloor: src.LiquidityFloor,
			Active:         src.Active,
			Priority:       src.Priority,
		})
	}
	return out
}

// FunnelThresholds converts the threshold entries to funnel parameters.
func (c *Config) FunnelThresholds() funnel.Thresholds {
	t := funnel.Thresholds{
		OnChainMinScore:   c.Thresholds.OnChainMinScore,
		OnChainMax:        c.Thresholds.OnChainMax,
		EnrichTopK:        c.Thresholds.EnrichTopK,
		EnrichBaseBar:     c.Thresholds.EnrichBaseBar,
		EnrichHighBar:     c.Thresholds.EnrichHighBar,
		QuotaLowWatermark: c.Thresholds.QuotaLowWatermark,
		AlertMinScore:     c.Thresholds.AlertMinScore,
	}
	for _, rec := range c.Thresholds.Alertable {
		t.Alertable = append(t.Alertable, domain.Recommendation(rec))
	}
	return t
}

// QuotaTable converts the quota entries to a budget quota table.
func (c *Config) QuotaTable() map[string]budget.Quota {
	out := make(map[string]budget.Quota, len(c.Quotas))
	for svc, q := range c.Quotas {
		out[svc] = budget.Quota{PerMinute: q.PerMinute, PerDay: q.PerDay}
	}
	return out
}

// PageDelay returns the collector politeness delay.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.Collector.PageDelayMS) * time.Millisecond
}
