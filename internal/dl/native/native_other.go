// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build !(darwin || linux || freebsd)

package native

import (
	"context"

	"github.com/holomush/bridgehost/internal/dl"
)

// Loader reports dl.ErrUnsupported on platforms without dlopen.
type Loader struct {
	Global bool
}

// Open always fails.
func (l *Loader) Open(_ context.Context, _, _ string) (dl.Library, error) {
	return nil, dl.ErrUnsupported
}
