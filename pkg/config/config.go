// Package config provides the configuration system for datstats.
//
// Values come from, in increasing priority: built-in defaults, an optional
// config file (any format viper understands), DATSTATS_* environment
// variables, and command line flags.
//
// The configuration is organized into logical sections:
//   - Input: how the stats file is decoded
//   - Output: how the report is rendered
//   - Observability: logging, metrics and tracing
//
// Example usage:
//
//	v, err := config.NewViper(configFile, cmd.Flags())
//	if err != nil {
//	    return err
//	}
//	cfg, err := config.Load(v)
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/datstats/pkg/compression"
	"github.com/ajitpratap0/datstats/pkg/errors"
	"github.com/ajitpratap0/datstats/pkg/report"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "DATSTATS"

// Keys shared by the config file, the environment and the flags.
const (
	KeyFormat      = "format"
	KeyCompression = "compression"
	KeyLogLevel    = "log_level"
	KeyLogEncoding = "log_encoding"
	KeyMetricsFile = "metrics_file"
	KeyTrace       = "trace"
)

// flagNames maps config keys to the flag that overrides them
var flagNames = map[string]string{
	KeyFormat:      "format",
	KeyCompression: "compression",
	KeyLogLevel:    "log-level",
	KeyLogEncoding: "log-encoding",
	KeyMetricsFile: "metrics-file",
	KeyTrace:       "trace",
}

// Config is the complete datstats configuration. The sections are grouped in
// Go only: a config file uses the flat keys (format, compression, log_level,
// log_encoding, metrics_file, trace).
type Config struct {
	// Input settings control how the stats file is decoded
	Input InputConfig `mapstructure:",squash" yaml:",inline"`

	// Output settings control how the report is rendered
	Output OutputConfig `mapstructure:",squash" yaml:",inline"`

	// Observability settings for logging, metrics and tracing
	Observability ObservabilityConfig `mapstructure:",squash" yaml:",inline"`
}

// InputConfig contains stats file decoding settings
type InputConfig struct {
	// Compression selects the decompressor (auto, none, gzip, zstd, lz4, snappy, s2)
	Compression string `mapstructure:"compression" yaml:"compression"`
}

// OutputConfig contains report settings
type OutputConfig struct {
	// Format selects the report format (text, json, yaml)
	Format string `mapstructure:"format" yaml:"format"`
}

// ObservabilityConfig contains logging, metrics and tracing settings
type ObservabilityConfig struct {
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// LogEncoding selects console or json log lines
	LogEncoding string `mapstructure:"log_encoding" yaml:"log_encoding"`
	// MetricsFile receives Prometheus text exposition after a run; empty disables it
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`
	// EnableTracing writes spans to stderr
	EnableTracing bool `mapstructure:"trace" yaml:"trace"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Compression: string(compression.Auto),
		},
		Output: OutputConfig{
			Format: string(report.FormatText),
		},
		Observability: ObservabilityConfig{
			LogLevel:    "error",
			LogEncoding: "console",
		},
	}
}

// NewViper builds a viper instance with defaults, the optional config file,
// the environment and flags bound. flags may be nil.
func NewViper(configFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()

	def := Default()
	v.SetDefault(KeyFormat, def.Output.Format)
	v.SetDefault(KeyCompression, def.Input.Compression)
	v.SetDefault(KeyLogLevel, def.Observability.LogLevel)
	v.SetDefault(KeyLogEncoding, def.Observability.LogEncoding)
	v.SetDefault(KeyMetricsFile, def.Observability.MetricsFile)
	v.SetDefault(KeyTrace, def.Observability.EnableTracing)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagNames {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to bind flag").
						WithDetail("flag", name)
				}
			}
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file").
				WithDetail("path", configFile)
		}
	}

	return v, nil
}

// Load resolves the configuration from v and validates it
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to decode configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration for correctness
func (c *Config) Validate() error {
	if _, err := compression.ParseAlgorithm(c.Input.Compression); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid input configuration").
			WithDetail("key", KeyCompression)
	}
	if _, err := report.New(c.Output.Format); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid output configuration").
			WithDetail("key", KeyFormat)
	}
	switch c.Observability.LogEncoding {
	case "", "console", "json":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "log_encoding must be console or json, got %q", c.Observability.LogEncoding).
			WithDetail("key", KeyLogEncoding)
	}
	return nil
}

// CompressionAlgorithm returns the parsed input compression
func (i *InputConfig) CompressionAlgorithm() compression.Algorithm {
	a, err := compression.ParseAlgorithm(i.Compression)
	if err != nil {
		return compression.Auto
	}
	return a
}
