// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/bridgehost/pkg/bridge"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// newInstanceID returns the id of a newly loaded library. Ids of libraries
// loaded later sort after earlier ones, so a library unloaded and loaded
// again is told apart from its previous incarnation.
func newInstanceID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// ParseInstanceID parses the instance id of a library as printed by
// Library.InstanceID().String().
func ParseInstanceID(s string) (ulid.ULID, error) {
	id, err := ulid.Parse(s)
	if err != nil {
		return ulid.ULID{}, oops.In("library").Code(bridge.StatusInvalidArg.Code()).
			With("instance_id", s).Wrapf(err, "invalid instance id %q", s)
	}
	return id, nil
}
