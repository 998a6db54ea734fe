// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

//go:build darwin || linux || windows

package module

import (
	"unsafe"

	"github.com/RaidcoreGG/Nexus-sub000/internal/cabi"
	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
)

// rawVersion mirrors the C version struct.
type rawVersion struct {
	Major    int16
	Minor    int16
	Build    int16
	Revision int16
}

// rawDefinition mirrors the C struct returned by GetAddonDef. It lives in
// module memory and must not be touched after the module is closed.
type rawDefinition struct {
	Signature   int32
	APIVersion  uint32
	Name        uintptr
	Version     rawVersion
	Author      uintptr
	Description uintptr
	Load        uintptr
	Unload      uintptr
	Flags       uint32
	Provider    uint32
	UpdateLink  uintptr
}

func (r *rawDefinition) copy() *Definitions {
	return &Definitions{
		Signature:  r.Signature,
		APIVersion: r.APIVersion,
		Name:       cabi.GoString(r.Name),
		Version: Version{
			Major:    uint16(r.Version.Major),
			Minor:    uint16(r.Version.Minor),
			Build:    uint16(r.Version.Build),
			Revision: uint16(r.Version.Revision),
		},
		Author:      cabi.GoString(r.Author),
		Description: cabi.GoString(r.Description),
		Flags:       Flags(r.Flags),
		Provider:    Provider(r.Provider),
		UpdateLink:  cabi.GoString(r.UpdateLink),
		HasLoad:     r.Load != 0,
		HasUnload:   r.Unload != 0,
	}
}

// NativeOpener opens shared libraries exporting GetAddonDef.
type NativeOpener struct{}

// Open maps the library at path into the process.
func (NativeOpener) Open(path string) (Library, error) {
	handle, err := dlopen(path)
	if err != nil {
		return nil, ErrOpenFailed(path, err)
	}
	return &nativeLibrary{path: path, handle: handle, rng: mappedRange(path, handle)}, nil
}

type nativeLibrary struct {
	path   string
	handle uintptr
	rng    Range
	raw    *rawDefinition
}

func (l *nativeLibrary) Definitions() (*Definitions, error) {
	sym, err := dlsym(l.handle, ExportName)
	if err != nil || sym == 0 {
		return nil, ErrMissingExport(l.path)
	}
	ptr := cabi.Call(sym)
	if ptr == 0 {
		return nil, ErrNoDefinitions(l.path)
	}
	l.raw = (*rawDefinition)(unsafe.Pointer(ptr)) //nolint:govet // module-owned memory
	return l.raw.copy(), nil
}

func (l *nativeLibrary) Load(table capability.Table) error {
	if l.raw == nil || l.raw.Load == 0 {
		return ErrNoDefinitions(l.path)
	}
	ptr, err := capability.NativePointer(table)
	if err != nil {
		return err
	}
	cabi.Call(l.raw.Load, ptr)
	return nil
}

func (l *nativeLibrary) Unload() error {
	if l.raw == nil || l.raw.Unload == 0 {
		return nil
	}
	cabi.Call(l.raw.Unload)
	return nil
}

func (l *nativeLibrary) Range() Range {
	return l.rng
}

func (l *nativeLibrary) Close() error {
	l.raw = nil
	return dlclose(l.handle)
}
