// Package config provides configuration management for the leaks-collector tool.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Walker WalkerConfig `mapstructure:"walker"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Log    LogConfig    `mapstructure:"log"`
}

// WalkerConfig holds the retention-path walker's tunables.
type WalkerConfig struct {
	DefaultMergeDepth int            `mapstructure:"default_merge_depth"`
	MaxBacktracks     int            `mapstructure:"max_backtracks"`
	MaxPathsPerTarget int            `mapstructure:"max_paths_per_target"`
	Anchors           []AnchorConfig `mapstructure:"anchors"`
}

// AnchorConfig names a class whose presence on a candidate path lifts the
// merge depth by Offset, the closer to the target the anchor is found.
type AnchorConfig struct {
	ClassName string `mapstructure:"class_name"`
	Offset    int    `mapstructure:"offset"`
}

// CacheConfig holds reverse-index cache configuration.
type CacheConfig struct {
	Suffix      string `mapstructure:"suffix"`
	Compression string `mapstructure:"compression"` // "zstd" | "gzip" | "none"
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path. An empty path
// searches standard locations; if none is found, defaults are used.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/leaks-collector")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// use defaults
		} else if os.IsNotExist(err) {
			// use defaults
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LEAKS_COLLECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from raw bytes (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults reproduces the walker's defaults exactly: a default merge
// depth of 3, up to 10 backtracks per walk, a cap of 100 paths per target,
// and a single seeded anchor on Disposer at offset 4.
func setDefaults(v *viper.Viper) {
	v.SetDefault("walker.default_merge_depth", 3)
	v.SetDefault("walker.max_backtracks", 10)
	v.SetDefault("walker.max_paths_per_target", 100)
	v.SetDefault("walker.anchors", []map[string]interface{}{
		{"class_name": "Disposer", "offset": 4},
	})

	v.SetDefault("cache.suffix", ".ri")
	v.SetDefault("cache.compression", "zstd")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Walker.DefaultMergeDepth < 0 {
		return fmt.Errorf("walker.default_merge_depth must be non-negative")
	}
	if c.Walker.MaxBacktracks < 0 {
		return fmt.Errorf("walker.max_backtracks must be non-negative")
	}
	if c.Walker.MaxPathsPerTarget < 1 {
		return fmt.Errorf("walker.max_paths_per_target must be at least 1")
	}
	switch c.Cache.Compression {
	case "zstd", "gzip", "none":
	default:
		return fmt.Errorf("unsupported cache compression: %s", c.Cache.Compression)
	}
	return nil
}
