// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package discovery finds bridge libraries on a search path and loads them
// into a registry.
package discovery

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/internal/property"
	"github.com/holomush/bridgehost/pkg/bridge"
	"github.com/holomush/bridgehost/pkg/errutil"
)

// LibraryPattern matches bridge library file names.
const LibraryPattern = "{libmama*impl.so,mama*impl.so,libmama*impl.dylib,mama*impl.lua,mama*impl.plugin.so,mama*impl.bridge,mama*impl}"

// PropertiesPattern matches property files loaded before libraries.
const PropertiesPattern = "*.properties"

// Candidate is a bridge library file found on the search path.
type Candidate struct {
	Name string
	Path string
	// Ignored is set when mama.library.<name>.ignore is true.
	Ignored bool
	// Shadowed is set when a library of the same name was found earlier on
	// the search path.
	Shadowed bool
}

// Failure is a candidate that could not be loaded.
type Failure struct {
	Candidate Candidate
	Err       error
}

// Report summarises a LoadAll run.
type Report struct {
	Loaded   []*library.Library
	Skipped  []Candidate
	Failures []Failure
}

// Scanner lists bridge libraries in directories.
type Scanner struct {
	props      *property.Store
	libraries  glob.Glob
	properties glob.Glob
}

// NewScanner creates a scanner. Property files found while scanning are
// merged into props, which may be nil to skip them.
func NewScanner(props *property.Store) *Scanner {
	return &Scanner{
		props:      props,
		libraries:  glob.MustCompile(LibraryPattern),
		properties: glob.MustCompile(PropertiesPattern),
	}
}

// LibraryName extracts the library name from a file name matching
// LibraryPattern. It reports false for other names.
func LibraryName(file string) (string, bool) {
	base := strings.TrimPrefix(filepath.Base(file), "lib")
	if !strings.HasPrefix(base, "mama") {
		return "", false
	}
	base = strings.TrimPrefix(base, "mama")
	i := strings.LastIndex(base, "impl")
	if i <= 0 {
		return "", false
	}
	return base[:i], true
}

// Scan lists the bridge libraries in dirs in search order. Missing
// directories are skipped. Within a directory property files are loaded
// first so they can mark libraries as ignored.
func (s *Scanner) Scan(ctx context.Context, dirs []string) ([]Candidate, error) {
	var out []Candidate
	seen := make(map[string]bool)
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return out, oops.In("discovery").Code(bridge.StatusTimeout.Code()).Wrap(err)
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				slog.Debug("skipping missing bridge directory", "dir", dir)
				continue
			}
			return out, oops.In("discovery").Code(bridge.StatusPlatform.Code()).With("dir", dir).
				Wrapf(err, "read bridge directory")
		}
		if err := s.loadProperties(dir, entries); err != nil {
			return out, err
		}
		for _, entry := range entries {
			c, ok := s.candidate(dir, entry)
			if !ok {
				continue
			}
			c.Shadowed = seen[c.Name]
			seen[c.Name] = true
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Scanner) loadProperties(dir string, entries []os.DirEntry) error {
	if s.props == nil {
		return nil
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && s.properties.Match(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	for _, f := range files {
		if err := s.props.LoadFile(f); err != nil {
			return err
		}
		slog.Debug("loaded bridge properties", "file", f)
	}
	return nil
}

func (s *Scanner) candidate(dir string, entry os.DirEntry) (Candidate, bool) {
	if entry.IsDir() || !s.libraries.Match(entry.Name()) {
		return Candidate{}, false
	}
	name, ok := LibraryName(entry.Name())
	if !ok {
		return Candidate{}, false
	}
	if filepath.Ext(entry.Name()) == "" {
		info, err := entry.Info()
		if err != nil || info.Mode()&0o111 == 0 {
			return Candidate{}, false
		}
	}
	c := Candidate{Name: name, Path: filepath.Join(dir, entry.Name())}
	if s.props != nil {
		c.Ignored = s.props.LibraryBool(name, "", property.Ignore)
	}
	return c, true
}

// LoadAll scans dirs and loads every candidate into reg, classifying each by
// the entry points it exports. Failures are logged and reported but do not
// stop the run; only a failed scan returns an error.
func LoadAll(ctx context.Context, reg *library.Registry, dirs []string) (Report, error) {
	var report Report
	candidates, err := NewScanner(reg.Properties()).Scan(ctx, dirs)
	if err != nil {
		return report, err
	}
	for _, c := range candidates {
		if c.Ignored || c.Shadowed {
			slog.Info("skipping bridge library",
				"library", c.Name, "path", c.Path,
				"ignored", c.Ignored, "shadowed", c.Shadowed)
			report.Skipped = append(report.Skipped, c)
			continue
		}
		lib, err := reg.Load(ctx, c.Name, library.KindUnknown, c.Path)
		if err != nil {
			errutil.LogError(slog.Default(), "failed to load bridge library", err)
			report.Failures = append(report.Failures, Failure{Candidate: c, Err: err})
			continue
		}
		slog.Info("loaded bridge library",
			"library", lib.Name(), "kind", lib.Kind().String(), "path", c.Path)
		report.Loaded = append(report.Loaded, lib)
	}
	return report, nil
}
