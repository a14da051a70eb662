// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/internal/library/librarytest"
	"github.com/holomush/bridgehost/pkg/bridge"
)

func newRegistry(t *testing.T) *library.Registry {
	t.Helper()
	reg := library.New()
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	reg.Static().Register("wmw", librarytest.NewMiddleware("wmw").Symbols(nil))
	reg.Static().Register("qpid", librarytest.NewMiddleware("qpid").Symbols(nil))
	reg.Static().Register("wombatmsg", librarytest.Stub(library.KindPayload, "wombatmsg", nil))
	return reg
}

func load(t *testing.T, reg *library.Registry, name string, kind library.Kind) *library.Library {
	t.Helper()
	lib, err := reg.Load(context.Background(), name, kind, "")
	require.NoError(t, err)
	return lib
}

func TestRegistryCollector(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	wmw := load(t, reg, "wmw", library.KindMiddleware)
	load(t, reg, "qpid", library.KindMiddleware)
	load(t, reg, "wombatmsg", library.KindPayload)

	mm, err := reg.Middleware()
	require.NoError(t, err)
	require.NoError(t, mm.Open(ctx, wmw))
	require.NoError(t, mm.Open(ctx, wmw))
	require.NoError(t, mm.Start(ctx, wmw))

	expected := `
# HELP bridgehost_libraries Loaded bridge libraries by kind
# TYPE bridgehost_libraries gauge
bridgehost_libraries{kind="entitlement"} 0
bridgehost_libraries{kind="middleware"} 2
bridgehost_libraries{kind="payload"} 1
bridgehost_libraries{kind="plugin"} 0
# HELP bridgehost_middleware_active_bridges Number of open middleware bridges
# TYPE bridgehost_middleware_active_bridges gauge
bridgehost_middleware_active_bridges 1
# HELP bridgehost_middleware_open_count Open count of each loaded middleware bridge
# TYPE bridgehost_middleware_open_count gauge
bridgehost_middleware_open_count{library="qpid"} 0
bridgehost_middleware_open_count{library="wmw"} 2
# HELP bridgehost_middleware_start_count Start count of each loaded middleware bridge
# TYPE bridgehost_middleware_start_count gauge
bridgehost_middleware_start_count{library="qpid"} 0
bridgehost_middleware_start_count{library="wmw"} 1
`
	c := NewRegistryCollector(reg)
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))

	require.NoError(t, mm.Stop(ctx, wmw))
	require.NoError(t, mm.Close(ctx, wmw))
	require.NoError(t, mm.Close(ctx, wmw))
	assert.Equal(t, 0.0, gaugeValue(t, c, "bridgehost_middleware_active_bridges"))
}

func gaugeValue(t *testing.T, c prometheus.Collector, name string) float64 {
	t.Helper()
	r := prometheus.NewPedanticRegistry()
	require.NoError(t, r.Register(c))
	families, err := r.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestMetrics_Observe(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(t)
	m := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, m.Observe(reg))

	wmw := load(t, reg, "wmw", library.KindMiddleware)
	load(t, reg, "wombatmsg", library.KindPayload)
	mm, err := reg.Middleware()
	require.NoError(t, err)
	require.NoError(t, mm.Open(ctx, wmw))
	require.NoError(t, mm.Start(ctx, wmw))
	require.NoError(t, mm.Stop(ctx, wmw))
	require.NoError(t, mm.Close(ctx, wmw))
	require.NoError(t, reg.Unload(ctx, "wombatmsg", library.KindPayload))

	count := func(kind, event string) float64 {
		return testutil.ToFloat64(m.LifecycleEvents.WithLabelValues(kind, event))
	}
	assert.Equal(t, 1.0, count("middleware", EventLoad))
	assert.Equal(t, 1.0, count("middleware", EventStart))
	assert.Equal(t, 1.0, count("middleware", EventStop))
	assert.Equal(t, 0.0, count("middleware", EventUnload))
	assert.Equal(t, 1.0, count("payload", EventLoad))
	assert.Equal(t, 1.0, count("payload", EventUnload))
	assert.Equal(t, 0.0, count("plugin", EventLoad))
}

func TestMetrics_RecordLoadFailure(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordLoadFailure(nil)
	m.RecordLoadFailure(oops.Code(bridge.StatusNotFound.Code()).Errorf("missing"))
	m.RecordLoadFailure(oops.Code(bridge.StatusNotFound.Code()).Errorf("missing again"))
	m.RecordLoadFailure(bridge.StatusNoBridgeImpl.Err())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LoadFailures.WithLabelValues("NOT_FOUND")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LoadFailures.WithLabelValues("NO_BRIDGE_IMPL")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LoadFailures.WithLabelValues("OK")))
}
