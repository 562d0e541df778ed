// Package config loads cloudsync configuration from a YAML file with
// CLOUDSYNC_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full cloudsync configuration.
type Config struct {
	// Cloud endpoint and identity.
	BaseURL   string `mapstructure:"base_url"`
	TenantID  string `mapstructure:"tenant_id"`
	ProjectID string `mapstructure:"project_id"`

	// TokenEnv names the environment variable holding the bearer token.
	TokenEnv string `mapstructure:"token_env"`

	// ProjectRoot is the absolute root that path redaction strips.
	ProjectRoot string `mapstructure:"project_root"`

	// DataDir holds drift.db, bridge.db and cortex.db.
	DataDir string `mapstructure:"data_dir"`

	// StatePath is where the sync state file lives.
	StatePath string `mapstructure:"state_path"`

	// Upload tuning.
	BatchSize      int           `mapstructure:"batch_size"`
	Concurrency    int           `mapstructure:"concurrency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Load reads configuration from path (optional; empty means defaults
// and environment only) and applies CLOUDSYNC_* overrides, e.g.
// CLOUDSYNC_BASE_URL, CLOUDSYNC_TENANT_ID.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Registering every key (even the empty ones) lets AutomaticEnv
	// surface CLOUDSYNC_* overrides through Unmarshal.
	v.SetDefault("base_url", "")
	v.SetDefault("tenant_id", "")
	v.SetDefault("project_id", "")
	v.SetDefault("project_root", "")
	v.SetDefault("token_env", "CLOUDSYNC_TOKEN")
	v.SetDefault("data_dir", ".cloudsync")
	v.SetDefault("state_path", ".cloudsync/sync-state.json")
	v.SetDefault("batch_size", 500)
	v.SetDefault("concurrency", 4)
	v.SetDefault("request_timeout", 30*time.Second)

	v.SetEnvPrefix("CLOUDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the fields a push needs are present and sane.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if c.ProjectID == "" {
		return fmt.Errorf("project_id is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive (got %d)", c.BatchSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive (got %d)", c.Concurrency)
	}
	return nil
}
