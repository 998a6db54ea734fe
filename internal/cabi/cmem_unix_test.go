// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

//go:build unix

package cabi_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// cBytes copies b into anonymous memory outside the Go heap, the way an
// addon's strings arrive, and returns its address.
func cBytes(t *testing.T, b []byte) uintptr {
	t.Helper()
	mem, err := unix.Mmap(-1, 0, unix.Getpagesize(), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	require.NoError(t, err)
	t.Cleanup(func() { _ = unix.Munmap(mem) })
	require.LessOrEqual(t, len(b), len(mem))
	copy(mem, b)
	return uintptr(unsafe.Pointer(&mem[0]))
}
