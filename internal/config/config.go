// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads the bridge host configuration.
//
// Values are layered, later sources overriding earlier ones key by key:
// built-in defaults, a YAML file, BRIDGEHOST_* environment variables and
// finally command line flags that were set explicitly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/internal/logging"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BRIDGEHOST_"

// Default values.
const (
	DefaultLogFormat   = "json"
	DefaultLogLevel    = "info"
	DefaultMetricsAddr = "127.0.0.1:9100"
)

// Preload names a library loaded at start up.
type Preload struct {
	Name string `koanf:"name" yaml:"name" json:"name" jsonschema:"minLength=1,description=Library name"`
	Kind string `koanf:"kind" yaml:"kind,omitempty" json:"kind,omitempty" jsonschema:"description=Bridge kind (middleware payload entitlement plugin); empty classifies the library"`
	Path string `koanf:"path" yaml:"path,omitempty" json:"path,omitempty" jsonschema:"description=Library file; empty searches the search path"`
	// Open opens a middleware bridge after loading it.
	Open bool `koanf:"open" yaml:"open,omitempty" json:"open,omitempty" jsonschema:"description=Open a middleware bridge after loading"`
	// Start starts an opened middleware bridge in the background.
	Start bool `koanf:"start" yaml:"start,omitempty" json:"start,omitempty" jsonschema:"description=Start an opened middleware bridge in the background"`
}

// Config is the bridge host configuration.
type Config struct {
	SearchPath      []string  `koanf:"search_path" yaml:"search_path,omitempty" json:"search_path,omitempty" env:"SEARCH_PATH" envSeparator:":" jsonschema:"description=Directories searched for bridge libraries"`
	PropertiesFiles []string  `koanf:"properties_files" yaml:"properties_files,omitempty" json:"properties_files,omitempty" env:"PROPERTIES_FILES" envSeparator:"," jsonschema:"description=.properties files loaded before discovery"`
	HostVersion     string    `koanf:"host_version" yaml:"host_version,omitempty" json:"host_version,omitempty" env:"HOST_VERSION" jsonschema:"description=Host API version checked against library minimum versions"`
	SignalCapacity  int       `koanf:"signal_capacity" yaml:"signal_capacity,omitempty" json:"signal_capacity,omitempty" env:"SIGNAL_CAPACITY" jsonschema:"minimum=0,description=Signals per library kind; 0 selects the default"`
	SlotCapacity    int       `koanf:"slot_capacity" yaml:"slot_capacity,omitempty" json:"slot_capacity,omitempty" env:"SLOT_CAPACITY" jsonschema:"minimum=0,description=Callbacks per signal; 0 selects the default"`
	Discover        bool      `koanf:"discover" yaml:"discover" json:"discover,omitempty" env:"DISCOVER" jsonschema:"description=Load every bridge library found on the search path"`
	MetricsAddr     string    `koanf:"metrics_addr" yaml:"metrics_addr,omitempty" json:"metrics_addr,omitempty" env:"METRICS_ADDR" jsonschema:"description=Metrics and health listen address; empty disables"`
	LogFormat       string    `koanf:"log_format" yaml:"log_format,omitempty" json:"log_format,omitempty" env:"LOG_FORMAT" jsonschema:"enum=json,enum=text"`
	LogLevel        string    `koanf:"log_level" yaml:"log_level,omitempty" json:"log_level,omitempty" env:"LOG_LEVEL" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	Preload         []Preload `koanf:"preload" yaml:"preload,omitempty" json:"preload,omitempty" jsonschema:"description=Libraries loaded at start up in order"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		HostVersion: library.DefaultHostVersion,
		Discover:    true,
		MetricsAddr: DefaultMetricsAddr,
		LogFormat:   DefaultLogFormat,
		LogLevel:    DefaultLogLevel,
	}
}

// Load builds the configuration from path, the environment and flags. An
// empty path skips the file; a missing file is an error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, oops.In("config").With("path", path).Wrapf(err, "config file")
		}
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.In("config").With("path", path).Wrapf(err, "load config file")
		}
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, oops.In("config").With("path", path).Wrapf(err, "decode config file")
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, oops.In("config").Wrapf(err, "parse environment")
	}

	if flags != nil {
		k := koanf.New(".")
		provider := posflag.ProviderWithFlag(flags, ".", k, changedFlag(flags))
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.In("config").Wrapf(err, "load flags")
		}
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, oops.In("config").Wrapf(err, "decode flags")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// changedFlag maps explicitly set flags to config keys ("search-path" to
// "search_path") and drops the rest, so flag defaults never override the
// file or the environment.
func changedFlag(flags *pflag.FlagSet) func(f *pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		if !f.Changed {
			return "", nil
		}
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.LogFormat != "json" && c.LogFormat != "text" {
		errs = append(errs, fmt.Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.SignalCapacity < 0 {
		errs = append(errs, fmt.Errorf("signal_capacity must not be negative, got %d", c.SignalCapacity))
	}
	if c.SlotCapacity < 0 {
		errs = append(errs, fmt.Errorf("slot_capacity must not be negative, got %d", c.SlotCapacity))
	}
	if c.HostVersion != "" {
		if _, err := semver.NewVersion(c.HostVersion); err != nil {
			errs = append(errs, fmt.Errorf("host_version %q: %w", c.HostVersion, err))
		}
	}
	for i, p := range c.Preload {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("preload[%d]: name is required", i))
		}
		kind, err := library.ParseKind(p.Kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("preload[%d]: %w", i, err))
			continue
		}
		if (p.Open || p.Start) && kind != library.KindMiddleware {
			errs = append(errs, fmt.Errorf("preload[%d]: open and start need kind middleware", i))
		}
		if p.Start && !p.Open {
			errs = append(errs, fmt.Errorf("preload[%d]: start needs open", i))
		}
	}
	if len(errs) > 0 {
		return oops.In("config").Wrap(errors.Join(errs...))
	}
	return nil
}

// RegistryOptions returns the registry options the configuration selects.
func (c *Config) RegistryOptions() []library.Option {
	opts := []library.Option{
		library.WithHostVersion(c.HostVersion),
		library.WithSignalCapacity(c.SignalCapacity),
		library.WithSlotCapacity(c.SlotCapacity),
	}
	if len(c.SearchPath) > 0 {
		opts = append(opts, library.WithSearchPath(c.SearchPath...))
	}
	return opts
}
