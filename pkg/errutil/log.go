// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil logs and asserts on the oops errors the bridge host
// returns.
package errutil

import (
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/bridgehost/pkg/bridge"
)

// LogError logs err at error level. Oops errors contribute their code,
// context and the bridge status they carry; other errors only their text.
func LogError(logger *slog.Logger, msg string, err error) {
	if err == nil {
		return
	}
	attrs := []any{"error", err.Error()}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		logger.Error(msg, attrs...)
		return
	}
	if code := oopsErr.Code(); code != nil {
		attrs = append(attrs, "code", code)
		if status := bridge.StatusOf(err); status != bridge.StatusSystem || code == bridge.StatusSystem.Code() {
			attrs = append(attrs, "status", status.String())
		}
	}
	if domain := oopsErr.Domain(); domain != "" {
		attrs = append(attrs, "domain", domain)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	logger.Error(msg, attrs...)
}
