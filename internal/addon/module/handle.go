// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package module

import (
	"sync"

	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
)

// Phase is where a Handle is in its lifetime.
type Phase int

// Handle phases, in the only order they may occur.
const (
	PhaseLoaded Phase = iota
	PhaseUnloading
	PhaseVerified
	PhaseFreed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseLoaded:
		return "loaded"
	case PhaseUnloading:
		return "unloading"
	case PhaseVerified:
		return "verified"
	case PhaseFreed:
		return "freed"
	default:
		return "unknown"
	}
}

// Handle owns one opened Library.
//
// A Handle can only be released through a *Verified token, and the only
// way to obtain one is to run reference verification on an *Unloading
// token. This keeps a module from being freed while the host may still
// hold pointers into it. A Handle whose load entry was never called can
// skip the sequence with Abandon.
type Handle struct {
	lib Library
	rng Range

	mu      sync.Mutex
	phase   Phase
	entered bool
}

// NewHandle takes ownership of lib.
func NewHandle(lib Library) *Handle {
	return &Handle{lib: lib, rng: lib.Range()}
}

// Range returns the address range of the module.
func (h *Handle) Range() Range {
	return h.rng
}

// Phase returns the current phase.
func (h *Handle) Phase() Phase {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.phase
}

// Definitions queries the module for its metadata.
func (h *Handle) Definitions() (*Definitions, error) {
	h.mu.Lock()
	if h.phase != PhaseLoaded {
		defer h.mu.Unlock()
		return nil, ErrInvalidPhase("query", h.phase)
	}
	h.mu.Unlock()
	return h.lib.Definitions()
}

// Enter calls the module's load entry with table. It may be called once.
func (h *Handle) Enter(table capability.Table) error {
	h.mu.Lock()
	if h.phase != PhaseLoaded || h.entered {
		defer h.mu.Unlock()
		return ErrInvalidPhase("enter", h.phase)
	}
	h.entered = true
	h.mu.Unlock()

	if err := h.lib.Load(table); err != nil {
		return ErrCallFailed("load", err)
	}
	return nil
}

// Entered reports whether the load entry has been called.
func (h *Handle) Entered() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entered
}

// Abandon releases a module whose load entry was never called.
func (h *Handle) Abandon() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.phase != PhaseLoaded || h.entered {
		return ErrInvalidPhase("abandon", h.phase)
	}
	h.phase = PhaseFreed
	return h.lib.Close()
}

// BeginUnload moves the handle into the unloading phase.
func (h *Handle) BeginUnload() (*Unloading, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.phase != PhaseLoaded {
		return nil, ErrInvalidPhase("unload", h.phase)
	}
	h.phase = PhaseUnloading
	return &Unloading{h: h}, nil
}

// Verified returns the release token once verification has completed.
func (h *Handle) Verified() (*Verified, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.phase != PhaseVerified {
		return nil, false
	}
	return &Verified{h: h}, true
}

// Unloading is held while a module's unload entry runs.
type Unloading struct {
	h *Handle
}

// Call invokes the module's unload entry if its load entry ever ran.
func (u *Unloading) Call() error {
	if !u.h.Entered() {
		return nil
	}
	if err := u.h.lib.Unload(); err != nil {
		return ErrCallFailed("unload", err)
	}
	return nil
}

// Verify runs scrub over the module's address range and returns the
// release token together with the number of references scrub removed.
func (u *Unloading) Verify(scrub func(Range) int) (*Verified, int) {
	n := 0
	if scrub != nil {
		n = scrub(u.h.rng)
	}
	u.h.mu.Lock()
	u.h.phase = PhaseVerified
	u.h.mu.Unlock()
	return &Verified{h: u.h}, n
}

// Verified permits releasing a module.
type Verified struct {
	h *Handle
}

// Free releases the module. It succeeds at most once.
func (v *Verified) Free() error {
	v.h.mu.Lock()
	defer v.h.mu.Unlock()
	if v.h.phase != PhaseVerified {
		return ErrInvalidPhase("free", v.h.phase)
	}
	v.h.phase = PhaseFreed
	return v.h.lib.Close()
}
