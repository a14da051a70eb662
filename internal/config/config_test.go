// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/bridgehost/internal/config"
	"github.com/holomush/bridgehost/internal/library"
)

const sampleYAML = `
search_path:
  - /opt/bridges
  - /usr/lib/bridges
properties_files:
  - /etc/bridgehost/mama.properties
host_version: 6.4.0
signal_capacity: 16
log_format: text
log_level: debug
metrics_addr: ""
preload:
  - name: wmw
    kind: middleware
    open: true
    start: true
  - name: wombatmsg
    kind: payload
  - name: audit
    path: /opt/bridges/mamaauditimpl.lua
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringSlice("search-path", nil, "")
	fs.String("log-format", config.DefaultLogFormat, "")
	fs.String("metrics-addr", config.DefaultMetricsAddr, "")
	fs.Int("slot-capacity", 0, "")
	fs.Bool("discover", true, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, library.DefaultHostVersion, cfg.HostVersion)
	assert.True(t, cfg.Discover)
}

func TestLoad_File(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"/opt/bridges", "/usr/lib/bridges"}, cfg.SearchPath)
	assert.Equal(t, []string{"/etc/bridgehost/mama.properties"}, cfg.PropertiesFiles)
	assert.Equal(t, "6.4.0", cfg.HostVersion)
	assert.Equal(t, 16, cfg.SignalCapacity)
	assert.Equal(t, 0, cfg.SlotCapacity)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Empty(t, cfg.MetricsAddr)
	assert.True(t, cfg.Discover, "keys absent from the file keep their defaults")
	require.Len(t, cfg.Preload, 3)
	assert.Equal(t, config.Preload{Name: "wmw", Kind: "middleware", Open: true, Start: true}, cfg.Preload[0])
	assert.Equal(t, "/opt/bridges/mamaauditimpl.lua", cfg.Preload[2].Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("BRIDGEHOST_SEARCH_PATH", "/env/a:/env/b")
	t.Setenv("BRIDGEHOST_LOG_FORMAT", "json")
	t.Setenv("BRIDGEHOST_SLOT_CAPACITY", "8")
	t.Setenv("BRIDGEHOST_DISCOVER", "false")

	cfg, err := config.Load(writeConfig(t, sampleYAML), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"/env/a", "/env/b"}, cfg.SearchPath)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 8, cfg.SlotCapacity)
	assert.False(t, cfg.Discover)
	assert.Equal(t, 16, cfg.SignalCapacity, "unset variables keep the file value")
}

func TestLoad_ChangedFlagsOverrideEverything(t *testing.T) {
	t.Setenv("BRIDGEHOST_LOG_FORMAT", "json")

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--search-path=/flag/a,/flag/b", "--slot-capacity=4", "--log-format=text"}))

	cfg, err := config.Load(writeConfig(t, sampleYAML), fs)
	require.NoError(t, err)

	assert.Equal(t, []string{"/flag/a", "/flag/b"}, cfg.SearchPath)
	assert.Equal(t, 4, cfg.SlotCapacity)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsAddr, "unchanged flag defaults do not override the file")
	assert.True(t, cfg.Discover)
}

func TestLoad_InvalidValues(t *testing.T) {
	_, err := config.Load(writeConfig(t, "log_format: xml\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_format")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"defaults", func(*config.Config) {}, ""},
		{"text format", func(c *config.Config) { c.LogFormat = "text" }, ""},
		{"bad format", func(c *config.Config) { c.LogFormat = "xml" }, "log_format"},
		{"bad level", func(c *config.Config) { c.LogLevel = "loud" }, "log_level"},
		{"negative signals", func(c *config.Config) { c.SignalCapacity = -1 }, "signal_capacity"},
		{"negative slots", func(c *config.Config) { c.SlotCapacity = -1 }, "slot_capacity"},
		{"bad host version", func(c *config.Config) { c.HostVersion = "six" }, "host_version"},
		{"empty host version", func(c *config.Config) { c.HostVersion = "" }, ""},
		{"preload without name", func(c *config.Config) {
			c.Preload = []config.Preload{{Kind: "payload"}}
		}, "name is required"},
		{"preload bad kind", func(c *config.Config) {
			c.Preload = []config.Preload{{Name: "x", Kind: "gateway"}}
		}, "preload[0]"},
		{"open non middleware", func(c *config.Config) {
			c.Preload = []config.Preload{{Name: "x", Kind: "payload", Open: true}}
		}, "need kind middleware"},
		{"start without open", func(c *config.Config) {
			c.Preload = []config.Preload{{Name: "x", Kind: "middleware", Start: true}}
		}, "start needs open"},
		{"open middleware", func(c *config.Config) {
			c.Preload = []config.Preload{{Name: "x", Kind: "middleware", Open: true, Start: true}}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRegistryOptions(t *testing.T) {
	cfg := config.Default()
	cfg.HostVersion = "6.0.0"
	cfg.SignalCapacity = 2
	cfg.SearchPath = []string{t.TempDir()}

	reg := library.New(cfg.RegistryOptions()...)
	assert.Equal(t, "6.0.0", reg.HostVersion())

	tm, err := reg.TypeManager(library.KindPayload)
	require.NoError(t, err)
	_, err = tm.Signals().Create()
	require.Error(t, err, "load and unload signals fill a capacity of two")
}

func TestGenerateSchema(t *testing.T) {
	data, err := config.GenerateSchema()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(data, &schema))
	assert.Equal(t, config.SchemaID, schema["$id"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"search_path", "host_version", "signal_capacity", "log_format", "preload"} {
		assert.Contains(t, props, key)
	}
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{"sample", sampleYAML, false},
		{"minimal", "discover: false\n", false},
		{"unknown key", "colour: blue\n", true},
		{"wrong type", "signal_capacity: many\n", true},
		{"negative capacity", "slot_capacity: -2\n", true},
		{"bad enum", "log_format: xml\n", true},
		{"preload without name", "preload:\n  - kind: payload\n", true},
		{"empty", "", true},
		{"not yaml", "a: [b\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := config.ValidateSchema([]byte(tt.yaml))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}
