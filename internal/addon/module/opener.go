// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package module

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// Openers routes each path to the native, process or script opener by
// extension.
type Openers struct {
	Native  Opener
	Process Opener
	Script  Opener
}

// DefaultOpeners returns the platform native opener plus process and
// script openers logging to logger.
func DefaultOpeners(logger *slog.Logger) *Openers {
	return &Openers{
		Native:  NativeOpener{},
		Process: NewProcessOpener(logger),
		Script:  NewScriptOpener(logger),
	}
}

// Open opens path with the opener matching its extension.
func (o *Openers) Open(path string) (Library, error) {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ProcessExt) && o.Process != nil {
		return o.Process.Open(path)
	}
	if strings.EqualFold(ext, ScriptExt) && o.Script != nil {
		return o.Script.Open(path)
	}
	if o.Native == nil {
		return nil, ErrUnsupported(path)
	}
	return o.Native.Open(path)
}

var _ Opener = (*Openers)(nil)
