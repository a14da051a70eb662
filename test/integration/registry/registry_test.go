// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/bridgehost/internal/discovery"
	"github.com/holomush/bridgehost/internal/library"
	"github.com/holomush/bridgehost/internal/library/librarytest"
	"github.com/holomush/bridgehost/internal/property"
	"github.com/holomush/bridgehost/internal/selector"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// recorder collects signal notifications in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) observe(reg *library.Registry, event string, id func(*library.TypeManager) library.SignalID) {
	for _, kind := range library.Kinds() {
		tm, err := reg.TypeManager(kind)
		Expect(err).NotTo(HaveOccurred())
		sig := id(tm)
		if sig < 0 {
			continue
		}
		Expect(tm.Signals().Register(sig, library.NewCallback(func(lib *library.Library, _ any) bool {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, event+" "+lib.Name())
			return true
		}), nil)).To(Succeed())
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

var _ = Describe("Lua bridges", func() {
	var (
		ctx   context.Context
		dir   string
		props *property.Store
		reg   *library.Registry
		rec   *recorder
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		librarytest.WriteLua(GinkgoT(), dir, library.KindPayload, "wombatmsg", map[string]string{
			"Payload_getType": `return "W"`,
		})
		librarytest.WriteLua(GinkgoT(), dir, library.KindMiddleware, "wmw", map[string]string{
			"Bridge_getName":             `return "wmw"`,
			"Bridge_getVersion":          `return "3.0.0"`,
			"Bridge_getDefaultPayloadId": `return "wombatmsg"`,
		})
		librarytest.WriteLua(GinkgoT(), dir, library.KindEntitlement, "oea", nil)
		librarytest.WriteLua(GinkgoT(), dir, library.KindPlugin, "audit", nil)
		Expect(os.WriteFile(filepath.Join(dir, "bridges.properties"), []byte(
			"mama.library.wmw.author=NYSE Technologies\n"+
				"mama.library.middleware.license=LGPL-2.1\n",
		), 0o600)).To(Succeed())

		props = property.NewStore()
		reg = library.New(library.WithProperties(props), library.WithSearchPath(dir))
		rec = &recorder{}
		rec.observe(reg, "load", (*library.TypeManager).LoadSignal)
		rec.observe(reg, "unload", (*library.TypeManager).UnloadSignal)
		rec.observe(reg, "start", (*library.TypeManager).StartSignal)
		rec.observe(reg, "stop", (*library.TypeManager).StopSignal)
	})

	AfterEach(func() {
		Expect(reg.Close(ctx)).To(Succeed())
	})

	It("discovers, classifies and describes every library", func() {
		report, err := discovery.LoadAll(ctx, reg, []string{dir})
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Failures).To(BeEmpty())
		Expect(report.Loaded).To(HaveLen(4))

		kinds := map[string]library.Kind{}
		for _, lib := range report.Loaded {
			kinds[lib.Name()] = lib.Kind()
		}
		Expect(kinds).To(Equal(map[string]library.Kind{
			"wombatmsg": library.KindPayload,
			"wmw":       library.KindMiddleware,
			"oea":       library.KindEntitlement,
			"audit":     library.KindPlugin,
		}))

		wmw, err := reg.Get("wmw", library.KindMiddleware)
		Expect(err).NotTo(HaveOccurred())
		desc, err := reg.Describe(wmw)
		Expect(err).NotTo(HaveOccurred())
		Expect(desc.Author).To(Equal("NYSE Technologies"))
		Expect(desc.License).To(Equal("LGPL-2.1"))
		Expect(desc.BridgeVer).To(Equal("3.0.0"))
		Expect(desc.Path).To(Equal(filepath.Join(dir, "mamawmwimpl.lua")))
	})

	It("filters loaded libraries with selectors", func() {
		_, err := discovery.LoadAll(ctx, reg, []string{dir})
		Expect(err).NotTo(HaveOccurred())

		sel, err := selector.Parse(`prop.license == "LGPL-2.1" or kind == plugin`)
		Expect(err).NotTo(HaveOccurred())
		libs, err := reg.List(library.KindUnknown, sel.Predicate(reg))
		Expect(err).NotTo(HaveOccurred())

		names := make([]string, len(libs))
		for i, lib := range libs {
			names[i] = lib.Name()
		}
		Expect(names).To(ConsistOf("wmw", "audit"))
	})

	It("runs the middleware lifecycle and tears down in dependency order", func() {
		wmw, err := reg.Load(ctx, "wmw", library.KindMiddleware, "")
		Expect(err).NotTo(HaveOccurred())
		_, err = reg.Load(ctx, "audit", library.KindPlugin, "")
		Expect(err).NotTo(HaveOccurred())

		mm, err := reg.Middleware()
		Expect(err).NotTo(HaveOccurred())
		Expect(mm.Open(ctx, wmw)).To(Succeed())
		Expect(mm.DefaultPayloads(wmw)).To(Equal([]string{"wombatmsg"}))

		pm, err := reg.Payload()
		Expect(err).NotTo(HaveOccurred())
		payload, err := reg.Get("wombatmsg", library.KindPayload)
		Expect(err).NotTo(HaveOccurred())
		id, err := pm.ID(payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(id).To(Equal(byte('W')))

		Expect(mm.Start(ctx, wmw)).To(Succeed())
		Expect(mm.StartCount(wmw)).To(Equal(1))
		Expect(mm.Stop(ctx, wmw)).To(Succeed())
		Expect(mm.Stop(ctx, wmw)).NotTo(Succeed())

		Expect(reg.Close(ctx)).To(Succeed())
		Expect(rec.snapshot()).To(Equal([]string{
			"load wmw",
			"load audit",
			"load wombatmsg",
			"start wmw",
			"stop wmw",
			"unload audit",
			"unload wmw",
			"unload wombatmsg",
		}))
	})

	It("refuses a library whose minimum version is newer than the host", func() {
		librarytest.WriteLua(GinkgoT(), dir, library.KindMiddleware, "future", map[string]string{
			"Bridge_getMinVersion": `return "99.0.0"`,
		})
		_, err := reg.Load(ctx, "future", library.KindMiddleware, "")
		Expect(err).To(HaveOccurred())
		Expect(bridge.StatusOf(err)).To(Equal(bridge.StatusVersionMismatch))
	})

	It("rejects a script that misses required entry points", func() {
		Expect(os.WriteFile(filepath.Join(dir, "mamahalfimpl.lua"),
			[]byte("function halfBridge_open() return 0 end\n"), 0o600)).To(Succeed())
		_, err := reg.Load(ctx, "half", library.KindUnknown, "")
		Expect(err).To(HaveOccurred())
		_, err = reg.Get("half", library.KindMiddleware)
		Expect(bridge.StatusOf(err)).To(Equal(bridge.StatusNotFound))
	})
})

var _ = Describe("Out-of-process bridges", func() {
	var (
		ctx context.Context
		reg *library.Registry
	)

	BeforeEach(func() {
		if loopbackDir == "" {
			Skip("go toolchain not available to build the loopback bridge")
		}
		ctx = context.Background()
		reg = library.New(library.WithSearchPath(loopbackDir))
	})

	AfterEach(func() {
		if reg != nil {
			Expect(reg.Close(ctx)).To(Succeed())
		}
	})

	It("starts in the background and stops over RPC", func() {
		lib, err := reg.Load(ctx, "loopback", library.KindUnknown, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(lib.Kind()).To(Equal(library.KindMiddleware))

		mm, err := reg.Middleware()
		Expect(err).NotTo(HaveOccurred())
		Expect(mm.Open(ctx, lib)).To(Succeed())

		done := make(chan error, 1)
		Expect(mm.StartInBackground(ctx, lib, func(_ *library.Library, err error) {
			done <- err
		})).To(Succeed())
		Eventually(func() int { return mm.StartCount(lib) }).Should(Equal(1))
		// Bridge_start blocks in the bridge process until Bridge_stop arrives.
		Consistently(done, 200*time.Millisecond).ShouldNot(Receive())

		Expect(mm.Stop(ctx, lib)).To(Succeed())
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))

		desc, err := reg.Describe(lib)
		Expect(err).NotTo(HaveOccurred())
		Expect(desc.BridgeName).To(Equal("loopback"))
		Expect(desc.BridgeVer).To(Equal("1.0.0"))

		Expect(mm.Close(ctx, lib)).To(Succeed())
	})
})
