// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package property

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/knadh/koanf/maps"
	"github.com/magiconair/properties"
)

// Parser is a koanf parser for Java-style .properties files. Keys are split
// on '.' so that koanf paths address them directly.
type Parser struct{}

// Unmarshal parses .properties bytes into a nested map. Variable expansion
// is disabled: values are taken literally.
func (Parser) Unmarshal(b []byte) (map[string]interface{}, error) {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(b)
	if err != nil {
		return nil, fmt.Errorf("parse properties: %w", err)
	}
	flat := make(map[string]interface{}, p.Len())
	for _, key := range p.Keys() {
		v, _ := p.Get(key)
		flat[key] = v
	}
	return maps.Unflatten(flat, delim), nil
}

// Marshal writes a nested map as sorted .properties lines.
func (Parser) Marshal(m map[string]interface{}) ([]byte, error) {
	flat, _ := maps.Flatten(m, nil, delim)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	p := properties.NewProperties()
	p.DisableExpansion = true
	for _, k := range keys {
		if _, _, err := p.Set(k, fmt.Sprint(flat[k])); err != nil {
			return nil, fmt.Errorf("set %s: %w", k, err)
		}
	}
	var buf bytes.Buffer
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return nil, fmt.Errorf("write properties: %w", err)
	}
	return buf.Bytes(), nil
}

// rawProvider is a koanf provider over an already parsed map.
type rawProvider map[string]interface{}

func (p rawProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("raw provider does not support ReadBytes")
}

func (p rawProvider) Read() (map[string]interface{}, error) {
	return maps.Copy(p), nil
}
