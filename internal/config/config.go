// Package config resolves sweep settings from compiled-in defaults, an
// optional TOML file and SWEEP_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/younsl/idlesweep/internal/lifecycle"
	"github.com/younsl/idlesweep/pkg/pricing"
)

// Environment overrides
const (
	EnvConfigPath       = "SWEEP_CONFIG"
	EnvTopicARN         = "SWEEP_TOPIC_ARN"
	EnvLedgerTable      = "SWEEP_LEDGER_TABLE"
	EnvDryRun           = "SWEEP_DRY_RUN"
	EnvGraceDays        = "SWEEP_GRACE_DAYS"
	EnvSnapshotAgeDays  = "SWEEP_SNAPSHOT_AGE_DAYS"
	EnvMetricsNamespace = "SWEEP_METRICS_NAMESPACE"
	EnvLogLevel         = "SWEEP_LOG_LEVEL"
	EnvLogFormat        = "SWEEP_LOG_FORMAT"
	EnvRegion           = "AWS_REGION"
)

const (
	DefaultRegion          = "ap-south-1"
	DefaultTopicARN        = "arn:aws:sns:ap-south-1:000000000000:cost-alerts-topic"
	DefaultLedgerTable     = "CostOptimizationLog"
	DefaultGraceDays       = 7
	DefaultSnapshotAgeDays = 90
)

// Config holds every setting of a sweep run
type Config struct {
	Region      string `toml:"region"`
	TopicARN    string `toml:"topic_arn"`
	LedgerTable string `toml:"ledger_table"`

	// CloudWatch namespace for run metrics; empty disables metrics
	MetricsNamespace string `toml:"metrics_namespace"`

	TagKey          string `toml:"tag_key"`
	TagPrefix       string `toml:"tag_prefix"`
	GraceDays       int    `toml:"grace_days"`
	SnapshotAgeDays int    `toml:"snapshot_age_days"`
	DryRun          bool   `toml:"dry_run"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`

	Prices pricing.Table `toml:"prices"`
}

// Default returns the compiled-in settings
func Default() Config {
	return Config{
		Region:          DefaultRegion,
		TopicARN:        DefaultTopicARN,
		LedgerTable:     DefaultLedgerTable,
		TagKey:          lifecycle.DefaultTagKey,
		TagPrefix:       lifecycle.DefaultValuePrefix,
		GraceDays:       DefaultGraceDays,
		SnapshotAgeDays: DefaultSnapshotAgeDays,
		LogLevel:        "info",
		LogFormat:       "logfmt",
		Prices:          pricing.DefaultTable(),
	}
}

// Load overlays the TOML file at path (if any) and the environment on the
// defaults. The file path falls back to SWEEP_CONFIG.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv(EnvConfigPath))
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides settings from environment variables found by lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvRegion, &c.Region)
	str(EnvTopicARN, &c.TopicARN)
	str(EnvLedgerTable, &c.LedgerTable)
	str(EnvMetricsNamespace, &c.MetricsNamespace)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvLogFormat, &c.LogFormat)

	if v, ok := lookup(EnvDryRun); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvDryRun, v, err)
		}
		c.DryRun = b
	}
	for key, dst := range map[string]*int{
		EnvGraceDays:       &c.GraceDays,
		EnvSnapshotAgeDays: &c.SnapshotAgeDays,
	} {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}
	return nil
}

// Validate rejects settings that would make the lifecycle unsafe
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.TagKey) == "" {
		errs = append(errs, errors.New("tag_key must not be empty"))
	}
	if strings.TrimSpace(c.TagPrefix) == "" {
		errs = append(errs, errors.New("tag_prefix must not be empty"))
	}
	if c.GraceDays <= 0 {
		errs = append(errs, fmt.Errorf("grace_days must be positive, got %d", c.GraceDays))
	}
	if c.SnapshotAgeDays <= 0 {
		errs = append(errs, fmt.Errorf("snapshot_age_days must be positive, got %d", c.SnapshotAgeDays))
	}
	if strings.TrimSpace(c.Region) == "" {
		errs = append(errs, errors.New("region must not be empty"))
	}
	if err := validatePrices(c.Prices); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func validatePrices(t pricing.Table) error {
	for volumeType, rate := range t.VolumePerGBMonth {
		if rate < 0 {
			return fmt.Errorf("price for volume type %s must not be negative", volumeType)
		}
	}
	if t.DefaultVolumePerGBMonth < 0 || t.SnapshotPerGBMonth < 0 || t.AddressPerHour < 0 || t.HoursPerMonth < 0 {
		return errors.New("prices must not be negative")
	}
	return nil
}

// Tag returns the configured deadline tag
func (c Config) Tag() lifecycle.Tag {
	return lifecycle.Tag{Key: c.TagKey, Prefix: c.TagPrefix}
}
