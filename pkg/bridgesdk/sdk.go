// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package bridgesdk provides the SDK for building out-of-process bridges.
//
// An out-of-process bridge is an executable that exports the same symbols a
// shared-object bridge would, as Go functions keyed by symbol name. The host
// launches it with HashiCorp's go-plugin, lists its symbols and calls them
// over net/rpc, so the executable can be written against any backend SDK
// without sharing an address space with the host.
//
// Example usage:
//
//	package main
//
//	import (
//		"github.com/holomush/bridgehost/pkg/bridge"
//		"github.com/holomush/bridgehost/pkg/bridgesdk"
//	)
//
//	func main() {
//		bridgesdk.Serve(&bridgesdk.ServeConfig{
//			Exports: bridgesdk.Exports{
//				"loopbackBridge_open":  func() bridge.Status { return bridge.StatusOK },
//				"loopbackBridge_close": func() bridge.Status { return bridge.StatusOK },
//			},
//		})
//	}
//
// Function arguments and results are limited to integers, floats, bools and
// strings (including named types such as bridge.Status and bridge.Handle).
package bridgesdk

import (
	"context"
	"fmt"
	"net/rpc"
	"reflect"
	"sort"

	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/holomush/bridgehost/internal/dl"
)

// PluginName is the name the bridge is dispensed under.
const PluginName = "bridge"

// HandshakeConfig is the go-plugin handshake configuration.
// Both host and bridges must use the same values.
var HandshakeConfig = hashiplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "BRIDGEHOST_BRIDGE",
	MagicCookieValue: "bridgehost-v1",
}

// Exports maps symbol names to Go functions.
type Exports map[string]any

// ServeConfig configures the bridge server.
type ServeConfig struct {
	// Exports are the bridge's symbols.
	// Required; Serve will panic if empty.
	Exports Exports
}

// Serve starts the bridge server. This should be called from main().
// It blocks and never returns under normal operation.
func Serve(config *ServeConfig) {
	if config == nil {
		panic("bridgesdk: config cannot be nil")
	}
	if len(config.Exports) == 0 {
		panic("bridgesdk: config.Exports cannot be empty")
	}
	if err := config.Exports.validate(); err != nil {
		panic("bridgesdk: " + err.Error())
	}
	hashiplug.Serve(&hashiplug.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins: map[string]hashiplug.Plugin{
			PluginName: &Plugin{Exports: config.Exports},
		},
	})
}

func (e Exports) validate() error {
	for name, fn := range e {
		if reflect.TypeOf(fn) == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
			return fmt.Errorf("export %q is %T, not a function", name, fn)
		}
	}
	return nil
}

// Plugin implements go-plugin's net/rpc Plugin interface. The host side only
// uses Client; Exports is used by the bridge process.
type Plugin struct {
	Exports Exports
}

// Server returns the RPC server (called by bridge process).
func (p *Plugin) Server(*hashiplug.MuxBroker) (interface{}, error) {
	return &RPCServer{exports: p.Exports}, nil
}

// Client returns the RPC client (called by host process).
func (p *Plugin) Client(_ *hashiplug.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}

// Empty is the argument of parameterless RPC methods.
type Empty struct{}

// CallArgs is the request of a symbol call.
type CallArgs struct {
	Symbol string
	Args   []any
	NRet   int
}

// CallReply is the response of a symbol call.
type CallReply struct {
	Results []any
}

// RPCServer serves a bridge's exports over net/rpc.
type RPCServer struct {
	exports Exports
}

// Symbols lists the exported symbol names.
func (s *RPCServer) Symbols(_ Empty, reply *[]string) error {
	names := make([]string, 0, len(s.exports))
	for name := range s.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	*reply = names
	return nil
}

// Call invokes one export.
func (s *RPCServer) Call(args CallArgs, reply *CallReply) error {
	fn, ok := s.exports[args.Symbol]
	if !ok {
		return fmt.Errorf("%w: %s", dl.ErrSymbolNotFound, args.Symbol)
	}
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.NumIn() != len(args.Args) {
		return fmt.Errorf("%s takes %d arguments, got %d", args.Symbol, ft.NumIn(), len(args.Args))
	}
	if ft.NumOut() != args.NRet {
		return fmt.Errorf("%s returns %d values, caller expects %d", args.Symbol, ft.NumOut(), args.NRet)
	}

	in := make([]reflect.Value, len(args.Args))
	for i, a := range args.Args {
		v, err := dl.FromWire(a, ft.In(i))
		if err != nil {
			return fmt.Errorf("%s argument %d: %w", args.Symbol, i, err)
		}
		in[i] = v
	}

	out := fv.Call(in)
	reply.Results = make([]any, len(out))
	for i, v := range out {
		w, err := dl.ToWire(v)
		if err != nil {
			return fmt.Errorf("%s result %d: %w", args.Symbol, i, err)
		}
		reply.Results[i] = w
	}
	return nil
}

// RPCClient calls a bridge's exports over net/rpc.
type RPCClient struct {
	client *rpc.Client
}

// Symbols lists the bridge's exported symbol names.
func (c *RPCClient) Symbols() ([]string, error) {
	var names []string
	if err := c.client.Call("Plugin.Symbols", Empty{}, &names); err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return names, nil
}

// Call invokes symbol and waits for its results or for ctx to end. An
// abandoned call keeps running in the bridge process.
func (c *RPCClient) Call(ctx context.Context, symbol string, args []any, nret int) ([]any, error) {
	reply := &CallReply{}
	call := c.client.Go("Plugin.Call", CallArgs{Symbol: symbol, Args: args, NRet: nret}, reply, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		if call.Error != nil {
			return nil, fmt.Errorf("call %s: %w", symbol, call.Error)
		}
		return reply.Results, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("call %s: %w", symbol, ctx.Err())
	}
}
