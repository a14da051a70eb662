// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rpc

import (
	"context"
	"errors"
	"net"
	netrpc "net/rpc"
	"testing"
	"time"

	hashiplug "github.com/hashicorp/go-plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/bridgehost/internal/dl"
	"github.com/holomush/bridgehost/pkg/bridge"
	"github.com/holomush/bridgehost/pkg/bridgesdk"
	"github.com/holomush/bridgehost/pkg/errutil"
)

// mockClientProtocol implements hashiplug.ClientProtocol for testing.
type mockClientProtocol struct {
	dispensed   interface{}
	dispenseErr error
}

func (m *mockClientProtocol) Close() error { return nil }
func (m *mockClientProtocol) Dispense(_ string) (interface{}, error) {
	if m.dispenseErr != nil {
		return nil, m.dispenseErr
	}
	return m.dispensed, nil
}
func (m *mockClientProtocol) Ping() error { return nil }

// mockPluginClient implements PluginClient for testing.
type mockPluginClient struct {
	protocol  *mockClientProtocol
	killed    int
	clientErr error
}

func (m *mockPluginClient) Client() (hashiplug.ClientProtocol, error) {
	if m.clientErr != nil {
		return nil, m.clientErr
	}
	return m.protocol, nil
}

func (m *mockPluginClient) Kill() { m.killed++ }

type mockClientFactory struct {
	client *mockPluginClient
	paths  []string
}

func (f *mockClientFactory) NewClient(path string) PluginClient {
	f.paths = append(f.paths, path)
	return f.client
}

// pipeClient serves exports over an in-memory net/rpc connection and returns
// the host side of it.
func pipeClient(t *testing.T, exports bridgesdk.Exports) interface{} {
	t.Helper()
	p := &bridgesdk.Plugin{Exports: exports}
	impl, err := p.Server(nil)
	require.NoError(t, err)

	server := netrpc.NewServer()
	require.NoError(t, server.RegisterName("Plugin", impl))
	hostConn, bridgeConn := net.Pipe()
	go server.ServeConn(bridgeConn)

	client := netrpc.NewClient(hostConn)
	t.Cleanup(func() { _ = client.Close() })
	raw, err := p.Client(nil, client)
	require.NoError(t, err)
	return raw
}

func newLoader(t *testing.T, exports bridgesdk.Exports) (*Loader, *mockPluginClient) {
	t.Helper()
	mock := &mockPluginClient{protocol: &mockClientProtocol{dispensed: pipeClient(t, exports)}}
	return NewLoaderWithFactory(&mockClientFactory{client: mock}), mock
}

func TestNewLoaderWithFactory_NilFactory(t *testing.T) {
	assert.Panics(t, func() { NewLoaderWithFactory(nil) })
}

func TestLoader_OpenListsSymbols(t *testing.T) {
	loader, mock := newLoader(t, bridgesdk.Exports{
		"loopBridge_open":    func() bridge.Status { return bridge.StatusOK },
		"loopBridge_getName": func() string { return "loop" },
		"loopBridgeMamaTransport_create": func(h bridge.Handle, name string) bridge.Status {
			if h == 0 || name == "" {
				return bridge.StatusNullArg
			}
			return bridge.StatusOK
		},
	})

	lib, err := loader.Open(context.Background(), "loop", "/bridges/mamaloopimpl.bridge")
	require.NoError(t, err)
	assert.Equal(t, "/bridges/mamaloopimpl.bridge", lib.Path())

	_, err = lib.Lookup("loopBridge_close")
	assert.ErrorIs(t, err, dl.ErrSymbolNotFound)

	sym, err := lib.Lookup("loopBridgeMamaTransport_create")
	require.NoError(t, err)
	c := sym.(dl.Callable)

	out, err := c.Call(context.Background(), []any{uint64(1), "tport"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(bridge.StatusOK)}, out)

	out, err = c.Call(context.Background(), []any{uint64(0), "tport"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(bridge.StatusNullArg)}, out)

	_, err = c.Call(context.Background(), []any{uint64(1)}, 1)
	assert.Error(t, err, "argument count mismatch")

	require.NoError(t, lib.Close())
	assert.Equal(t, 1, mock.killed)
	_, err = c.Call(context.Background(), nil, 1)
	assert.ErrorIs(t, err, dl.ErrLibraryClosed)
	assert.ErrorIs(t, lib.Close(), dl.ErrLibraryClosed)
}

func TestLoader_CallHonoursContext(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	loader, _ := newLoader(t, bridgesdk.Exports{
		"loopBridge_start": func() bridge.Status {
			<-release
			return bridge.StatusOK
		},
	})
	lib, err := loader.Open(context.Background(), "loop", "/bridges/loop")
	require.NoError(t, err)
	sym, err := lib.Lookup("loopBridge_start")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = sym.(dl.Callable).Call(ctx, nil, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoader_OpenFailures(t *testing.T) {
	tests := []struct {
		name string
		mock *mockPluginClient
	}{
		{"client error", &mockPluginClient{clientErr: errors.New("exec failed")}},
		{"dispense error", &mockPluginClient{protocol: &mockClientProtocol{dispenseErr: errors.New("no such plugin")}}},
		{"wrong type", &mockPluginClient{protocol: &mockClientProtocol{dispensed: "not a client"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewLoaderWithFactory(&mockClientFactory{client: tt.mock})

			_, err := loader.Open(context.Background(), "loop", "/bridges/loop")
			errutil.AssertStatus(t, err, bridge.StatusPlatform)
			assert.Equal(t, 1, tt.mock.killed)
		})
	}
}
