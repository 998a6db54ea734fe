// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

//go:build !darwin && !linux && !windows

package module

// NativeOpener rejects every module on platforms without native loading.
type NativeOpener struct{}

// Open always fails.
func (NativeOpener) Open(path string) (Library, error) {
	return nil, ErrUnsupported(path)
}
