package config

import (
	"fmt"
	"slices"
	"time"
)

// Config represents a cargoexec.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Cargo             string            `yaml:"cargo"`
	ManifestPath      string            `yaml:"manifest_path"`
	TargetDir         string            `yaml:"target_dir"`
	Target            string            `yaml:"target"`
	Package           string            `yaml:"package"`
	Release           bool              `yaml:"release"`
	Features          []string          `yaml:"features"`
	AllFeatures       bool              `yaml:"all_features"`
	NoDefaultFeatures bool              `yaml:"no_default_features"`
	Strict            bool              `yaml:"strict"`
	Print             bool              `yaml:"print"`
	LogLevel          string            `yaml:"log_level"`
	Timeout           Duration          `yaml:"timeout"`
	Env               map[string]string `yaml:"env,omitempty"`
	EnvFile           string            `yaml:"env_file"`
	MetricsFile       string            `yaml:"metrics_file"`
	Adapter           AdapterConfig     `yaml:"adapter"`
}

// AdapterConfig holds notification adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	d.Duration = parsed
	return nil
}

// EnvPairs returns Env as sorted key/value pairs so builds see variables
// in a deterministic order.
func (c *Config) EnvPairs() [][2]string {
	return SortedPairs(c.Env)
}

// SortedPairs returns m as key/value pairs sorted by key, or nil if m is empty.
func SortedPairs(m map[string]string) [][2]string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, m[k]})
	}
	return pairs
}
