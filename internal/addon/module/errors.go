// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package module

import (
	"strings"

	"github.com/samber/oops"
)

// Error codes for module failures.
const (
	CodeOpenFailed         = "MODULE_OPEN_FAILED"
	CodeMissingExport      = "MODULE_MISSING_EXPORT"
	CodeNoDefinitions      = "MODULE_NO_DEFINITIONS"
	CodeInvalidDefinitions = "MODULE_INVALID_DEFINITIONS"
	CodeCallFailed         = "MODULE_CALL_FAILED"
	CodeInvalidPhase       = "MODULE_INVALID_PHASE"
	CodeUnsupported        = "MODULE_UNSUPPORTED"
)

// ErrOpenFailed creates an error for a module the OS refused to open.
func ErrOpenFailed(path string, cause error) error {
	return oops.Code(CodeOpenFailed).
		With("path", path).
		Wrapf(cause, "open module")
}

// ErrMissingExport creates an error for a module lacking the addon export.
func ErrMissingExport(path string) error {
	return oops.Code(CodeMissingExport).
		With("path", path).
		With("export", ExportName).
		Errorf("module does not export %s", ExportName)
}

// ErrNoDefinitions creates an error for a module whose export returned nothing.
func ErrNoDefinitions(path string) error {
	return oops.Code(CodeNoDefinitions).
		With("path", path).
		Errorf("module returned no definitions")
}

// ErrInvalidDefinitions creates an error for definitions missing required fields.
func ErrInvalidDefinitions(name string, missing []string) error {
	return oops.Code(CodeInvalidDefinitions).
		With("name", name).
		With("missing", strings.Join(missing, ",")).
		Errorf("definitions missing required fields: %s", strings.Join(missing, ", "))
}

// ErrCallFailed creates an error for a failed call into an addon entry point.
func ErrCallFailed(entry string, cause error) error {
	return oops.Code(CodeCallFailed).
		With("entry", entry).
		Wrapf(cause, "call %s", entry)
}

// ErrInvalidPhase creates an error for an operation attempted out of sequence.
func ErrInvalidPhase(op string, current Phase) error {
	return oops.Code(CodeInvalidPhase).
		With("operation", op).
		With("phase", current.String()).
		Errorf("cannot %s a module that is %s", op, current)
}

// ErrUnsupported creates an error for module kinds this platform cannot open.
func ErrUnsupported(path string) error {
	return oops.Code(CodeUnsupported).
		With("path", path).
		Errorf("native modules are not supported on this platform")
}
