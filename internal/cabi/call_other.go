// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

//go:build !darwin && !linux && !windows

package cabi

// Supported reports whether native calls are possible on this platform.
const Supported = false

// Call is a no-op on platforms without native call support.
func Call(uintptr, ...uintptr) uintptr {
	return 0
}

// NewCallback returns zero on platforms without native call support.
func NewCallback(any) uintptr {
	return 0
}
