// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package property provides the read-only key/value namespace bridges are
// configured through.
//
// Library properties are looked up through a three level hierarchy:
//
//	mama.library.<name>.<property>
//	mama.library.<kind>.<property>
//	mama.library.default.<property>
//
// so a setting can target one library, every library of a kind, or every
// library. Bridge-specific variants ("bridge_version") fall back to the
// generic property ("version") when absent.
package property

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

const delim = "."

// LibraryPrefix is the namespace of library properties.
const LibraryPrefix = "mama.library"

// DefaultScope is the last level of the library property hierarchy.
const DefaultScope = "default"

// Generic library property names.
const (
	Ignore      = "ignore"
	ID          = "id"
	Name        = "name"
	Description = "description"
	Author      = "author"
	URI         = "uri"
	License     = "license"
	Version     = "version"
	MamaVersion = "mama_version"
)

// BridgePrefix marks bridge-specific variants of generic properties.
const BridgePrefix = "bridge_"

// Store is a property namespace backed by koanf.
//
// Store is safe for concurrent use.
type Store struct {
	k     *koanf.Koanf
	files []string
	mu    sync.RWMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{k: koanf.New(delim)}
}

// LoadFile merges a .properties file into the store. Later files override
// earlier ones key by key.
func (s *Store) LoadFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.k.Load(file.Provider(filepath.Clean(path)), Parser{}); err != nil {
		return oops.In("property").With("path", path).Wrap(err)
	}
	s.files = append(s.files, path)
	return nil
}

// LoadBytes merges .properties content into the store.
func (s *Store) LoadBytes(data []byte) error {
	m, err := Parser{}.Unmarshal(data)
	if err != nil {
		return oops.In("property").Wrap(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.k.Load(rawProvider(m), nil); err != nil {
		return oops.In("property").Wrap(err)
	}
	return nil
}

// Files returns the files loaded so far, in load order.
func (s *Store) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.files...)
}

// Set stores a single value.
func (s *Store) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.k.Set(key, value); err != nil {
		return oops.In("property").With("key", key).Wrap(err)
	}
	return nil
}

// Get returns the value of key. Keys that only exist as the parent of other
// keys are reported absent.
func (s *Store) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch v := s.k.Get(key).(type) {
	case string:
		return v, true
	case nil, map[string]interface{}:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

// Keys returns every leaf key, sorted.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.k.Keys()
	sort.Strings(keys)
	return keys
}

// Key builds a library property key.
func Key(scope, prop string) string {
	return LibraryPrefix + delim + scope + delim + prop
}

// Library resolves prop for the library name of the given kind through the
// name -> kind -> default hierarchy.
func (s *Store) Library(name, kind, prop string) (string, bool) {
	for _, scope := range []string{name, kind, DefaultScope} {
		if scope == "" {
			continue
		}
		if v, ok := s.Get(Key(scope, prop)); ok {
			return v, true
		}
	}
	return "", false
}

// LibraryBool resolves a boolean library property. Unparseable values are
// reported as false.
func (s *Store) LibraryBool(name, kind, prop string) bool {
	v, ok := s.Library(name, kind, prop)
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// Bridge resolves the bridge-specific variant of prop, falling back to prop
// itself.
func (s *Store) Bridge(name, kind, prop string) (string, bool) {
	if v, ok := s.Library(name, kind, BridgePrefix+prop); ok {
		return v, true
	}
	return s.Library(name, kind, prop)
}
