// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/internal/library/librarytest"
)

// bridgesDir writes an audit plugin, a wombatmsg payload and a wmw
// middleware script into a fresh directory.
func bridgesDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	librarytest.WriteLua(t, dir, library.KindPlugin, "audit", nil)
	librarytest.WriteLua(t, dir, library.KindPayload, "wombatmsg", nil)
	librarytest.WriteLua(t, dir, library.KindMiddleware, "wmw", map[string]string{
		"Bridge_getName":             `return "wmw"`,
		"Bridge_getVersion":          `return "2.1.0"`,
		"Bridge_getDefaultPayloadId": `return "W"`,
	})
	return dir
}

func findEntry(entries []listEntry, name string) (listEntry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return listEntry{}, false
}

func TestListCommand_JSON(t *testing.T) {
	isolate(t)
	dir := bridgesDir(t)

	output, err := execute(t, "list", "--search-path", dir, "-o", "json")
	require.NoError(t, err)

	var entries []listEntry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))

	audit, ok := findEntry(entries, "audit")
	require.True(t, ok, "audit missing from %s", output)
	assert.Equal(t, "plugin", audit.Kind)
	assert.Equal(t, filepath.Join(dir, "mamaauditimpl.lua"), audit.Path)
	assert.NotEmpty(t, audit.InstanceID)

	wmw, ok := findEntry(entries, "wmw")
	require.True(t, ok, "wmw missing from %s", output)
	assert.Equal(t, "middleware", wmw.Kind)
	assert.Equal(t, "W", wmw.ID)

	payload, ok := findEntry(entries, "wombatmsg")
	require.True(t, ok, "wombatmsg missing from %s", output)
	assert.Equal(t, "payload", payload.Kind)
	assert.Equal(t, "W", payload.ID)
}

func TestListCommand_Selector(t *testing.T) {
	isolate(t)
	dir := bridgesDir(t)

	output, err := execute(t, "list", "kind == middleware", "--search-path", dir, "-o", "yaml")
	require.NoError(t, err)

	var entries []listEntry
	require.NoError(t, yaml.Unmarshal([]byte(output), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "wmw", entries[0].Name)
}

func TestListCommand_Table(t *testing.T) {
	isolate(t)
	dir := bridgesDir(t)

	output, err := execute(t, "list", "--search-path", dir)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"), "header row: %q", lines[0])
	assert.Contains(t, output, "audit")
	assert.Contains(t, output, "wmw")
}

func TestListCommand_NoDiscovery(t *testing.T) {
	isolate(t)
	dir := bridgesDir(t)

	output, err := execute(t, "list", "--search-path", dir, "--discover=false", "-o", "json")
	require.NoError(t, err)

	var entries []listEntry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))
	_, ok := findEntry(entries, "audit")
	assert.False(t, ok)
}

func TestListCommand_IgnoredByProperties(t *testing.T) {
	isolate(t)
	dir := bridgesDir(t)
	props := filepath.Join(t.TempDir(), "mama.properties")
	require.NoError(t, os.WriteFile(props, []byte("mama.library.audit.ignore=true\n"), 0o600))

	output, err := execute(t, "list", "--search-path", dir, "--properties-files", props, "-o", "json")
	require.NoError(t, err)

	var entries []listEntry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))
	_, ok := findEntry(entries, "audit")
	assert.False(t, ok, "ignored libraries are not loaded")
	_, ok = findEntry(entries, "wmw")
	assert.True(t, ok)
}

func TestListCommand_InvalidSelector(t *testing.T) {
	isolate(t)

	_, err := execute(t, "list", "colour == blue")
	require.Error(t, err)
}

func TestListCommand_UnknownFormat(t *testing.T) {
	isolate(t)
	dir := bridgesDir(t)

	_, err := execute(t, "list", "--search-path", dir, "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestInspectCommand(t *testing.T) {
	isolate(t)
	dir := bridgesDir(t)

	output, err := execute(t, "inspect", "wmw", "--search-path", dir, "--open", "-o", "json")
	require.NoError(t, err)

	var result struct {
		Name            string   `json:"name"`
		Kind            string   `json:"kind"`
		BridgeName      string   `json:"bridge_name"`
		BridgeVersion   string   `json:"bridge_version"`
		ID              string   `json:"id"`
		DefaultPayloads []string `json:"default_payloads"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, "wmw", result.Name)
	assert.Equal(t, "middleware", result.Kind)
	assert.Equal(t, "wmw", result.BridgeName)
	assert.Equal(t, "2.1.0", result.BridgeVersion)
	assert.Equal(t, "W", result.ID)
	assert.Equal(t, []string{"wombatmsg"}, result.DefaultPayloads)
}

func TestInspectCommand_YAMLWithPath(t *testing.T) {
	isolate(t)
	path := librarytest.WriteLua(t, t.TempDir(), library.KindPlugin, "audit", nil)

	output, err := execute(t, "inspect", "audit", "--path", path, "--kind", "plugin")
	require.NoError(t, err)

	var desc library.Description
	require.NoError(t, yaml.Unmarshal([]byte(output), &desc))
	assert.Equal(t, "audit", desc.Name)
	assert.Equal(t, "plugin", desc.Kind)
	assert.Equal(t, path, desc.Path)
	assert.Equal(t, "Unknown", desc.Author)
}

func TestInspectCommand_NotFound(t *testing.T) {
	isolate(t)

	_, err := execute(t, "inspect", "missing", "--search-path", t.TempDir())
	require.Error(t, err)
}

func TestInspectCommand_BadKind(t *testing.T) {
	isolate(t)

	_, err := execute(t, "inspect", "audit", "--kind", "gateway")
	require.Error(t, err)
}

func TestSymbolsCommand(t *testing.T) {
	isolate(t)

	output, err := execute(t, "symbols", "plugin", "--library", "audit")
	require.NoError(t, err)
	assert.Contains(t, output, "SYMBOL")
	assert.Contains(t, output, "auditPlugin_initHook")
}

func TestSymbolsCommand_JSON(t *testing.T) {
	isolate(t)

	output, err := execute(t, "symbols", "entitlement", "-o", "json")
	require.NoError(t, err)

	var entries []symbolEntry
	require.NoError(t, json.Unmarshal([]byte(output), &entries))
	infos, err := library.Symbols(library.KindEntitlement)
	require.NoError(t, err)
	require.Len(t, entries, len(infos))
	for i, info := range infos {
		assert.Equal(t, info.Func, entries[i].Symbol)
		assert.Equal(t, info.Required, entries[i].Required)
	}
}

func TestSymbolsCommand_UnknownKind(t *testing.T) {
	_, err := execute(t, "symbols", "gateway")
	require.Error(t, err)
}

func TestSchemaCommand(t *testing.T) {
	output, err := execute(t, "schema")
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &schema))
	assert.Contains(t, schema, "properties")
}

func TestSchemaValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte("search_path:\n  - /opt/bridges\nlog_level: debug\n"), 0o600))
	require.NoError(t, os.WriteFile(bad, []byte("log_level: loud\n"), 0o600))

	output, err := execute(t, "schema", "validate", good)
	require.NoError(t, err)
	assert.Contains(t, output, good+": ok")

	_, err = execute(t, "schema", "validate", bad)
	require.Error(t, err)

	_, err = execute(t, "schema", "validate", filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
