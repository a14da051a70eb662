// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package library

import (
	"github.com/samber/oops"

	"github.com/holomush/bridgehost/internal/property"
	"github.com/holomush/bridgehost/pkg/bridge"
)

// Identifiers of well-known bridges that predate the id property.
var (
	legacyPayloadIDs = map[string]byte{
		"wombatmsg": 'W',
		"tibrvmsg":  'R',
		"fastmsg":   'F',
		"qpidmsg":   'Q',
		"solacemsg": 'S',
		"avismsg":   'A',
		"xmlmsg":    'X',
		"omnmmsg":   'O',
	}
	legacyMiddlewareIDs = map[string]byte{
		"wmw":       'W',
		"lbm":       'L',
		"tibrv":     'R',
		"avis":      'A',
		"qpid":      'Q',
		"solace":    'S',
		"tick42blp": 'B',
	}
	legacyEntitlementIDs = map[string]byte{
		"noop": 'N',
		"oea":  'O',
	}
)

// A kind has 255 ids; 0 means no id. Automatic assignment hands out
// printable ASCII first.
const (
	firstAutoID = '!'
	lastAutoID  = '~'
	maxID       = 255
)

// autoIDs is the order in which free ids are handed out.
var autoIDs = func() []byte {
	ids := make([]byte, 0, maxID)
	for c := firstAutoID; c <= lastAutoID; c++ {
		ids = append(ids, byte(c))
	}
	for c := 1; c <= maxID; c++ {
		if c < firstAutoID || c > lastAutoID {
			ids = append(ids, byte(c))
		}
	}
	return ids
}()

// idSource tells how an id was chosen.
type idSource string

const (
	idFromProperty idSource = "property"
	idFromLegacy   idSource = "legacy"
	idFromBridge   idSource = "bridge"
	idFromFree     idSource = "free"
)

// idAssigner derives the single character id of a library. It must be used
// with the manager lock held.
type idAssigner struct {
	tm     *TypeManager
	legacy map[string]byte
	// idOf returns the id of a loaded library, 0 if it has none.
	idOf func(*Library) byte
}

// assign picks the id of lib: the id property, then the legacy mapping, then
// the id the bridge declares, then the first free id. An id explicitly
// chosen by any of the first three that is already taken fails the load.
func (a idAssigner) assign(lib *Library, declared byte) (byte, error) {
	id, src, err := a.preferred(lib, declared)
	if err != nil {
		return 0, err
	}
	if src != idFromFree {
		if other := a.owner(id, lib); other != nil {
			return 0, oops.In("library").Code(bridge.StatusDuplicateID.Code()).
				With("library", lib.name).With("conflict", other.name).
				With("id", string(rune(id))).With("source", string(src)).
				Errorf("%s libraries %s and %s both claim id %q", a.tm.kind, other.name, lib.name, rune(id))
		}
		return id, nil
	}
	for _, c := range autoIDs {
		if a.owner(c, lib) == nil {
			return c, nil
		}
	}
	return 0, oops.In("library").Code(bridge.StatusResourceExhausted.Code()).
		With("library", lib.name).With("capacity", maxID).
		Errorf("no free %s id left for %s", a.tm.kind, lib.name)
}

func (a idAssigner) preferred(lib *Library, declared byte) (byte, idSource, error) {
	if v, ok := a.tm.reg.props.Library(lib.name, a.tm.kind.String(), property.ID); ok {
		if len(v) != 1 {
			return 0, "", oops.In("library").Code(bridge.StatusInvalidArg.Code()).
				With("library", lib.name).With("id", v).
				Errorf("id property of %s must be a single character, got %q", lib.name, v)
		}
		return v[0], idFromProperty, nil
	}
	if id, ok := a.legacy[lib.name]; ok {
		return id, idFromLegacy, nil
	}
	if declared != 0 {
		return declared, idFromBridge, nil
	}
	return 0, idFromFree, nil
}

// owner returns the loaded library other than self that holds id.
func (a idAssigner) owner(id byte, self *Library) *Library {
	for _, lib := range a.tm.libs {
		if lib != self && a.idOf(lib) == id {
			return lib
		}
	}
	return nil
}

// byID finds the loaded library holding id.
func (a idAssigner) byID(id byte) (*Library, error) {
	a.tm.mu.RLock()
	defer a.tm.mu.RUnlock()
	if lib := a.owner(id, nil); lib != nil && id != 0 {
		return lib, nil
	}
	return nil, oops.In("library").Code(bridge.StatusNotFound.Code()).
		With("id", string(rune(id))).Errorf("no %s library with id %q", a.tm.kind, rune(id))
}
