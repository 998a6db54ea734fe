// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

//go:build darwin

package module

// mappedRange is not resolved on darwin; reference verification is
// skipped for modules with an empty range.
func mappedRange(string, uintptr) Range {
	return Range{}
}
