// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

// Package registry_test exercises the bridge registry end to end against
// bridges on disk: Lua scripts and an out-of-process bridge executable.
package registry_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

func TestRegistry(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Registry Integration Suite")
}

// loopbackDir holds the loopback bridge executable, empty when it could not
// be built.
var loopbackDir string

var _ = BeforeSuite(func() {
	goBin, err := exec.LookPath("go")
	if err != nil {
		return
	}
	loopbackDir = GinkgoT().TempDir()
	out := filepath.Join(loopbackDir, "mamaloopbackimpl")
	cmd := exec.Command(goBin, "build", "-o", out, "./plugins/loopback") // #nosec G204 -- fixed arguments
	cmd.Dir = filepath.Join("..", "..", "..")
	cmd.Stdout = GinkgoWriter
	cmd.Stderr = GinkgoWriter
	Expect(cmd.Run()).To(Succeed())
	info, err := os.Stat(out)
	Expect(err).NotTo(HaveOccurred())
	Expect(info.Mode() & 0o111).NotTo(BeZero())
})
