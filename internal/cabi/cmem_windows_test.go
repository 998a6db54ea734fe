// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

//go:build windows

package cabi_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"
)

const cBytesSize = 4096

// cBytes copies b into memory outside the Go heap, the way an addon's
// strings arrive, and returns its address.
func cBytes(t *testing.T, b []byte) uintptr {
	t.Helper()
	require.LessOrEqual(t, len(b), cBytesSize)
	addr, err := windows.VirtualAlloc(0, cBytesSize, windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	require.NoError(t, err)
	t.Cleanup(func() { _ = windows.VirtualFree(addr, 0, windows.MEM_RELEASE) })
	copy(unsafe.Slice((*byte)(unsafe.Pointer(addr)), cBytesSize), b) //nolint:govet // VirtualAlloc memory is not managed by Go
	return addr
}
