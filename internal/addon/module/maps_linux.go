// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

//go:build linux

package module

import (
	"os"
	"path/filepath"
)

func mappedRange(path string, _ uintptr) Range {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return Range{}
	}
	if target, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = target
	}
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return Range{}
	}
	defer func() { _ = f.Close() }()
	return parseMappedRange(f, resolved)
}
