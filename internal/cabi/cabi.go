// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package cabi holds the small set of helpers used to cross the C ABI
// boundary between the host and natively loaded addon modules.
package cabi

import "unsafe"

// maxStringLen bounds how far GoString scans for a terminator.
const maxStringLen = 1 << 16

// GoString copies the NUL-terminated string at p into Go memory.
// A zero pointer yields the empty string.
func GoString(p uintptr) string {
	if p == 0 {
		return ""
	}
	base := unsafe.Pointer(p) //nolint:govet // p is a C pointer owned by the addon
	n := 0
	for n < maxStringLen && *(*byte)(unsafe.Add(base, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(base), n))
}

// GoBytes copies n bytes starting at p into a new Go slice.
func GoBytes(p uintptr, n int) []byte {
	if p == 0 || n <= 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(p)), n)) //nolint:govet // p is a C pointer owned by the addon
	return out
}

// Bool converts a C truthy value.
func Bool(v uintptr) bool {
	return v != 0
}

// FromBool converts a Go bool into a C truthy value.
func FromBool(v bool) uintptr {
	if v {
		return 1
	}
	return 0
}
