// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

//go:build darwin || linux || windows

package cabi

import "github.com/ebitengine/purego"

// Supported reports whether native calls are possible on this platform.
const Supported = true

// Call invokes the C function at fn with the given word-sized arguments
// and returns its first return register.
func Call(fn uintptr, args ...uintptr) uintptr {
	if fn == 0 {
		return 0
	}
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1
}

// NewCallback exposes a Go function to native code. The number of
// callbacks a process may create is limited, so callers should create
// each callback once and reuse it.
func NewCallback(fn any) uintptr {
	return purego.NewCallback(fn)
}
