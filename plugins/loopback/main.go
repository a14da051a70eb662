// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package main implements the loopback middleware bridge, an out-of-process
// bridge that delivers published messages to subscriptions on the same
// topic inside its own process.
//
// Build it next to the host's other bridges:
//
//	go build -o /opt/bridges/mamaloopbackimpl ./plugins/loopback
//
// The file name without extension and with the execute bit set is what
// discovery recognises as an out-of-process bridge named "loopback".
package main

import (
	"github.com/holomush/bridgehost/pkg/bridgesdk"
)

func main() {
	bridgesdk.Serve(&bridgesdk.ServeConfig{
		Exports: newLoopback().exports(name),
	})
}
