// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package module opens addon modules and tracks the lifetime of each
// opened module through a loaded, unloading, verified and freed sequence.
//
// A module can be a native shared library exporting GetAddonDef, an
// out-of-process addon executable served over the addonsdk protocol, or a
// sandboxed Lua script. All are presented to the rest of the host as a
// Library.
package module

import (
	"fmt"
	"strings"

	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
)

// ExportName is the symbol every native addon exports.
const ExportName = "GetAddonDef"

// Flags are the behavior bits an addon declares.
type Flags uint32

// Definition flags.
const (
	FlagNone                 Flags = 0
	FlagVolatile             Flags = 1 << 0
	FlagDisableHotloading    Flags = 1 << 1
	FlagOnlyLoadDuringLaunch Flags = 1 << 2
	FlagSyncUnload           Flags = 1 << 3
)

// Has reports whether every bit in f is set.
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// String lists the set flags.
func (fl Flags) String() string {
	if fl == FlagNone {
		return "none"
	}
	var parts []string
	for _, f := range []struct {
		flag Flags
		name string
	}{
		{FlagVolatile, "volatile"},
		{FlagDisableHotloading, "disable-hotloading"},
		{FlagOnlyLoadDuringLaunch, "only-load-during-launch"},
		{FlagSyncUnload, "sync-unload"},
	} {
		if fl.Has(f.flag) {
			parts = append(parts, f.name)
		}
	}
	return strings.Join(parts, "|")
}

// Provider selects where an addon's updates come from.
type Provider uint32

// Update providers.
const (
	ProviderNone Provider = iota
	ProviderRaidcore
	ProviderGitHub
	ProviderDirect
	ProviderSelf
)

// String returns the provider name.
func (p Provider) String() string {
	switch p {
	case ProviderNone:
		return "none"
	case ProviderRaidcore:
		return "raidcore"
	case ProviderGitHub:
		return "github"
	case ProviderDirect:
		return "direct"
	case ProviderSelf:
		return "self"
	default:
		return fmt.Sprintf("provider(%d)", uint32(p))
	}
}

// Version is a four part addon version.
type Version struct {
	Major    uint16 `json:"Major"`
	Minor    uint16 `json:"Minor"`
	Build    uint16 `json:"Build"`
	Revision uint16 `json:"Revision"`
}

// String formats the version as major.minor.build.revision.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// Compare returns -1, 0 or 1 as v is older than, equal to or newer than o.
func (v Version) Compare(o Version) int {
	for _, pair := range [][2]uint16{
		{v.Major, o.Major},
		{v.Minor, o.Minor},
		{v.Build, o.Build},
		{v.Revision, o.Revision},
	} {
		switch {
		case pair[0] < pair[1]:
			return -1
		case pair[0] > pair[1]:
			return 1
		}
	}
	return 0
}

// Definitions is a host-owned copy of the metadata an addon exports.
// It stays valid after the module that produced it is freed.
type Definitions struct {
	Signature   int32    `json:"signature"`
	APIVersion  uint32   `json:"api_version"`
	Name        string   `json:"name"`
	Version     Version  `json:"version"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Flags       Flags    `json:"flags"`
	Provider    Provider `json:"provider"`
	UpdateLink  string   `json:"update_link,omitempty"`
	HasLoad     bool     `json:"-"`
	HasUnload   bool     `json:"-"`
}

// Validate checks the minimum fields every addon must export. Version
// is a value, so 0.0.0.0 is a declared version.
func (d *Definitions) Validate() error {
	var missing []string
	if d.Name == "" {
		missing = append(missing, "name")
	}
	if d.Author == "" {
		missing = append(missing, "author")
	}
	if d.Description == "" {
		missing = append(missing, "description")
	}
	if !d.HasLoad {
		missing = append(missing, "load")
	}
	if len(missing) > 0 {
		return ErrInvalidDefinitions(d.Name, missing)
	}
	return nil
}

// Clone returns a copy of d.
func (d *Definitions) Clone() *Definitions {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

// Locked reports whether the addon cannot be unloaded at runtime.
func (d *Definitions) Locked() bool {
	return !d.HasUnload || d.Flags.Has(FlagDisableHotloading)
}

// Range is the half-open address range [Base, End) a module occupies.
type Range struct {
	Base uintptr
	End  uintptr
}

// Empty reports whether the range covers no addresses.
func (r Range) Empty() bool {
	return r.End <= r.Base
}

// Contains reports whether addr lies inside r.
func (r Range) Contains(addr uintptr) bool {
	return addr >= r.Base && addr < r.End
}

// Library is an opened addon module.
type Library interface {
	// Definitions queries the module for its exported metadata.
	Definitions() (*Definitions, error)
	// Load invokes the addon's load entry with table.
	Load(table capability.Table) error
	// Unload invokes the addon's unload entry. Modules without one return nil.
	Unload() error
	// Range reports the addresses the module occupies; empty when unknown.
	Range() Range
	// Close releases the module.
	Close() error
}

// Opener opens modules from disk.
type Opener interface {
	Open(path string) (Library, error)
}
