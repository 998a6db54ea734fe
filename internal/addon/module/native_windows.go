// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

//go:build windows

package module

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

func dlopen(path string) (uintptr, error) {
	h, err := windows.LoadLibraryEx(path, 0, windows.LOAD_WITH_ALTERED_SEARCH_PATH)
	return uintptr(h), err
}

func dlsym(handle uintptr, name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(handle), name)
}

func dlclose(handle uintptr) error {
	return windows.FreeLibrary(windows.Handle(handle))
}

func mappedRange(_ string, handle uintptr) Range {
	var info windows.ModuleInfo
	err := windows.GetModuleInformation(windows.CurrentProcess(), windows.Handle(handle), &info, uint32(unsafe.Sizeof(info)))
	if err != nil {
		return Range{}
	}
	return Range{Base: info.BaseOfDll, End: info.BaseOfDll + uintptr(info.SizeOfImage)}
}
