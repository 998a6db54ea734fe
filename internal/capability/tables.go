// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package capability

import (
	"log/slog"
	"runtime"
	"sync"
	"unsafe"

	"github.com/RaidcoreGG/Nexus-sub000/internal/cabi"
)

// Tables builds each table version at most once and hands out the cached
// instance on every later request.
type Tables struct {
	api *api

	mu    sync.Mutex
	built map[Version]Table
}

// NewTables creates a table cache forwarding to svc.
func NewTables(svc Services) *Tables {
	logger := svc.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tables{
		api:   &api{svc: svc, logger: logger},
		built: make(map[Version]Table),
	}
}

// Acquire returns the table for version v, building it on first use.
// The V3 packet handler slot is cleared before the table is returned.
func (t *Tables) Acquire(v Version) (Table, error) {
	if !v.Known() {
		return nil, ErrUnknownVersion(v)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tbl, ok := t.built[v]
	if !ok {
		tbl = t.build(v)
		t.built[v] = tbl
	}
	if v3, ok := tbl.(*V3Table); ok {
		v3.resetPacketHandler()
	}
	return tbl, nil
}

// Built returns how many distinct versions have been built so far.
func (t *Tables) Built() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.built)
}

func (t *Tables) build(v Version) Table {
	switch v {
	case V1:
		return &V1Table{api: t.api}
	case V2:
		return &V2Table{V1Table: V1Table{api: t.api}}
	default:
		return &V3Table{V2Table: V2Table{V1Table: V1Table{api: t.api}}}
	}
}

// NativePointer returns the address of the C-layout rendition of tbl.
// The rendition is built once and lives as long as the process.
func NativePointer(tbl Table) (uintptr, error) {
	if !cabi.Supported {
		return 0, ErrNativeUnsupported
	}
	c := tbl.cell()
	c.once.Do(func() {
		slots := tbl.layout()
		words := make([]uintptr, len(slots))
		for i, fn := range slots {
			if fn != nil {
				words[i] = cabi.NewCallback(fn)
			}
		}
		pinMu.Lock()
		pinner.Pin(&words[0])
		pinMu.Unlock()
		c.words = words
	})
	return uintptr(unsafe.Pointer(&c.words[0])), nil
}

// pinner holds every native table for the process lifetime.
var (
	pinMu  sync.Mutex
	pinner runtime.Pinner
)
