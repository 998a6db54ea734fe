// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package moduletest provides an in-memory module opener for tests.
//
// Fake modules are ordinary files; their content selects which Spec the
// opener uses, so rewriting a file with different content behaves like
// shipping a new build of the addon.
package moduletest

import (
	"errors"
	"os"
	"sync"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
)

// Spec describes how a fake module behaves.
type Spec struct {
	// Definitions is returned from the export; nil means the export is missing.
	Definitions *module.Definitions
	// Range is the address range the module claims to occupy.
	Range module.Range
	// LoadErr is returned from the load entry.
	LoadErr error
	// OnLoad runs inside the load entry.
	OnLoad func(capability.Table)
	// OnUnload runs inside the unload entry.
	OnUnload func()
}

// Def returns valid definitions for a test addon.
func Def(signature int32, name string, major uint16) *module.Definitions {
	return &module.Definitions{
		Signature:   signature,
		APIVersion:  uint32(capability.V3),
		Name:        name,
		Version:     module.Version{Major: major},
		Author:      "tests",
		Description: name + " test addon",
		HasLoad:     true,
		HasUnload:   true,
	}
}

// Opener opens fake modules by file content.
type Opener struct {
	mu     sync.Mutex
	specs  map[string]Spec
	opened map[string][]*Library
}

// NewOpener creates an empty Opener.
func NewOpener() *Opener {
	return &Opener{specs: map[string]Spec{}, opened: map[string][]*Library{}}
}

// Define registers the behavior of files whose content is content.
func (o *Opener) Define(content string, spec Spec) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.specs[content] = spec
}

// Open implements module.Opener.
func (o *Opener) Open(path string) (module.Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, module.ErrOpenFailed(path, err)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	spec, ok := o.specs[string(data)]
	if !ok {
		return nil, module.ErrOpenFailed(path, errors.New("not a module"))
	}
	lib := &Library{path: path, spec: spec}
	o.opened[path] = append(o.opened[path], lib)
	return lib, nil
}

// Opened returns every library opened from path, oldest first.
func (o *Opener) Opened(path string) []*Library {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Library(nil), o.opened[path]...)
}

// Last returns the most recent library opened from path.
func (o *Opener) Last(path string) *Library {
	libs := o.Opened(path)
	if len(libs) == 0 {
		return nil
	}
	return libs[len(libs)-1]
}

// Library is a fake opened module.
type Library struct {
	path string
	spec Spec

	mu      sync.Mutex
	loads   int
	unloads int
	closed  bool
	table   capability.Table
}

// Definitions implements module.Library.
func (l *Library) Definitions() (*module.Definitions, error) {
	if l.spec.Definitions == nil {
		return nil, module.ErrMissingExport(l.path)
	}
	return l.spec.Definitions.Clone(), nil
}

// Load implements module.Library.
func (l *Library) Load(table capability.Table) error {
	l.mu.Lock()
	l.loads++
	l.table = table
	l.mu.Unlock()
	if l.spec.OnLoad != nil {
		l.spec.OnLoad(table)
	}
	return l.spec.LoadErr
}

// Unload implements module.Library.
func (l *Library) Unload() error {
	if l.spec.OnUnload != nil {
		l.spec.OnUnload()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unloads++
	return nil
}

// Range implements module.Library.
func (l *Library) Range() module.Range {
	return l.spec.Range
}

// Close implements module.Library.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Loads returns how often the load entry ran.
func (l *Library) Loads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

// Unloads returns how often the unload entry ran.
func (l *Library) Unloads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unloads
}

// Closed reports whether the module was released.
func (l *Library) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Table returns the table passed to the load entry.
func (l *Library) Table() capability.Table {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.table
}

var (
	_ module.Opener  = (*Opener)(nil)
	_ module.Library = (*Library)(nil)
)
