// Package config loads the hampel service configuration.
//
// Values are layered, later layers win: defaults, the YAML file, HAMPEL_*
// environment variables and finally command line flags that were set.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ardanlabs/hampel/hampel"
)

// EnvPrefix is the prefix of configuration environment variables.
// HAMPEL_FILTER_WINDOW_SIZE sets filter.window_size.
const EnvPrefix = "HAMPEL_"

// Filter holds the Hampel filter parameters.
type Filter struct {
	WindowSize int     `koanf:"window_size"`
	NSigma     float64 `koanf:"n_sigma"`
	C          float64 `koanf:"c"`
}

// Params returns the filter as hampel parameters.
func (f Filter) Params() hampel.Params {
	return hampel.Params{
		WindowSize: f.WindowSize,
		NSigma:     f.NSigma,
		C:          f.C,
	}
}

// Config is the service configuration.
type Config struct {
	Filter   Filter `koanf:"filter"`
	DBFile   string `koanf:"db_file"`
	GRPCAddr string `koanf:"grpc_addr"`
	HTTPAddr string `koanf:"http_addr"`
	LogLevel string `koanf:"log_level"`
}

// Default returns the default configuration.
func Default() Config {
	p := hampel.DefaultParams()
	return Config{
		Filter: Filter{
			WindowSize: p.WindowSize,
			NSigma:     p.NSigma,
			C:          p.C,
		},
		DBFile:   "hampel.db",
		GRPCAddr: "localhost:9999",
		HTTPAddr: ":8080",
		LogLevel: "info",
	}
}

func defaults() map[string]interface{} {
	cfg := Default()
	return map[string]interface{}{
		"filter.window_size": cfg.Filter.WindowSize,
		"filter.n_sigma":     cfg.Filter.NSigma,
		"filter.c":           cfg.Filter.C,
		"db_file":            cfg.DBFile,
		"grpc_addr":          cfg.GRPCAddr,
		"http_addr":          cfg.HTTPAddr,
		"log_level":          cfg.LogLevel,
	}
}

// Load loads the configuration. path is an optional YAML file, flags are
// optional as well. Flag names map to keys by replacing "-" with "_" and
// the filter flags (window-size, n-sigma, c) go under "filter.".
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load configuration file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load command line arguments: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// envKey maps HAMPEL_FILTER_WINDOW_SIZE to filter.window_size.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if strings.HasPrefix(key, "filter_") {
		key = "filter." + strings.TrimPrefix(key, "filter_")
	}
	return key
}

var filterFlags = map[string]bool{
	"window-size": true,
	"n-sigma":     true,
	"c":           true,
}

// flagKey only passes flags that were set, so their defaults don't hide the
// file and environment. Values are strings, Unmarshal converts them.
func flagKey(f *pflag.Flag) (string, interface{}) {
	if !f.Changed {
		return "", nil
	}

	key := strings.ReplaceAll(f.Name, "-", "_")
	if filterFlags[f.Name] {
		key = "filter." + key
	}
	return key, f.Value.String()
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Filter.Params().Validate(); err != nil {
		return err
	}

	if c.DBFile == "" {
		return errors.New("empty db_file")
	}

	if c.GRPCAddr == "" && c.HTTPAddr == "" {
		return errors.New("empty grpc_addr and http_addr")
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	return nil
}

// Logger returns a production logger at the configured level.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
