// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package rpc opens out-of-process bridges: executables built with
// pkg/bridgesdk, launched and spoken to with HashiCorp's go-plugin over
// net/rpc. Blocking entry points (a middleware start) only block the calling
// goroutine; other calls proceed concurrently on the same connection.
package rpc

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	hashiplug "github.com/hashicorp/go-plugin"
	"github.com/samber/oops"

	"github.com/holomush/bridgehost/internal/dl"
	"github.com/holomush/bridgehost/pkg/bridge"
	"github.com/holomush/bridgehost/pkg/bridgesdk"
)

// PluginClient wraps go-plugin client for testability.
type PluginClient interface {
	// Client returns the RPC client protocol.
	Client() (hashiplug.ClientProtocol, error)
	// Kill terminates the bridge process.
	Kill()
}

// ClientFactory creates plugin clients.
type ClientFactory interface {
	// NewClient creates a client for the given executable path.
	NewClient(execPath string) PluginClient
}

// DefaultClientFactory creates real go-plugin clients.
type DefaultClientFactory struct{}

// NewClient creates a real go-plugin client.
func (f *DefaultClientFactory) NewClient(execPath string) PluginClient {
	return hashiplug.NewClient(&hashiplug.ClientConfig{
		HandshakeConfig: bridgesdk.HandshakeConfig,
		Plugins: map[string]hashiplug.Plugin{
			bridgesdk.PluginName: &bridgesdk.Plugin{},
		},
		Cmd:              exec.Command(execPath), // #nosec G204 -- execPath comes from library discovery
		AllowedProtocols: []hashiplug.Protocol{hashiplug.ProtocolNetRPC},
	})
}

// symbolClient is the part of bridgesdk.RPCClient the loader uses.
type symbolClient interface {
	Symbols() ([]string, error)
	Call(ctx context.Context, symbol string, args []any, nret int) ([]any, error)
}

// Loader launches bridge executables.
type Loader struct {
	factory ClientFactory
}

// Compile-time interface check.
var _ dl.Loader = (*Loader)(nil)

// NewLoader creates a loader that launches real processes.
func NewLoader() *Loader {
	return &Loader{factory: &DefaultClientFactory{}}
}

// NewLoaderWithFactory creates a loader with a custom client factory (for testing).
// Panics if factory is nil.
func NewLoaderWithFactory(factory ClientFactory) *Loader {
	if factory == nil {
		panic("rpc: factory cannot be nil")
	}
	return &Loader{factory: factory}
}

// Open launches the executable at path and lists its symbols.
func (l *Loader) Open(_ context.Context, name, path string) (dl.Library, error) {
	client := l.factory.NewClient(path)

	proto, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, oops.In("rpc").Code(bridge.StatusPlatform.Code()).
			With("library", name).With("path", path).Hint("failed to connect to bridge").Wrap(err)
	}

	raw, err := proto.Dispense(bridgesdk.PluginName)
	if err != nil {
		client.Kill()
		return nil, oops.In("rpc").Code(bridge.StatusPlatform.Code()).
			With("library", name).Hint("failed to dispense bridge").Wrap(err)
	}

	sc, ok := raw.(symbolClient)
	if !ok {
		client.Kill()
		return nil, oops.In("rpc").Code(bridge.StatusPlatform.Code()).
			With("library", name).Errorf("bridge %s dispensed %T", name, raw)
	}

	names, err := sc.Symbols()
	if err != nil {
		client.Kill()
		return nil, oops.In("rpc").Code(bridge.StatusPlatform.Code()).With("library", name).Wrap(err)
	}

	symbols := make(map[string]struct{}, len(names))
	for _, n := range names {
		symbols[n] = struct{}{}
	}
	return &library{name: name, path: path, client: client, rpc: sc, symbols: symbols}, nil
}

type library struct {
	name    string
	path    string
	client  PluginClient
	rpc     symbolClient
	symbols map[string]struct{}
	mu      sync.RWMutex
	closed  bool
}

func (lib *library) Path() string { return lib.path }

func (lib *library) Lookup(name string) (dl.Symbol, error) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	if lib.closed {
		return nil, dl.ErrLibraryClosed
	}
	if _, ok := lib.symbols[name]; !ok {
		return nil, fmt.Errorf("%w: %s in %s", dl.ErrSymbolNotFound, name, lib.path)
	}
	return &remoteFunc{lib: lib, name: name}, nil
}

func (lib *library) Close() error {
	lib.mu.Lock()
	defer lib.mu.Unlock()
	if lib.closed {
		return dl.ErrLibraryClosed
	}
	lib.closed = true
	lib.client.Kill()
	return nil
}

type remoteFunc struct {
	lib  *library
	name string
}

func (f *remoteFunc) Call(ctx context.Context, args []any, nret int) ([]any, error) {
	f.lib.mu.RLock()
	closed := f.lib.closed
	f.lib.mu.RUnlock()
	if closed {
		return nil, dl.ErrLibraryClosed
	}
	results, err := f.lib.rpc.Call(ctx, f.name, args, nret)
	if err != nil {
		return nil, oops.In("rpc").With("library", f.lib.name).With("symbol", f.name).Wrap(err)
	}
	return results, nil
}
