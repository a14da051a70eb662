// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build !(darwin || linux || freebsd)

package goplugin

import (
	"context"

	"github.com/holomush/bridgehost/internal/dl"
)

// Loader reports dl.ErrUnsupported on platforms without Go plugins.
type Loader struct{}

// Open always fails.
func (Loader) Open(_ context.Context, _, _ string) (dl.Library, error) {
	return nil, dl.ErrUnsupported
}
