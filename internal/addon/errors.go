// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"github.com/samber/oops"
)

// Error codes for addon lifecycle failures.
const (
	CodeIncompatible    = "ADDON_INCOMPATIBLE"
	CodeLoadFailure     = "ADDON_LOAD_FAILURE"
	CodeIncompatibleAPI = "ADDON_INCOMPATIBLE_API"
	CodeDuplicate       = "ADDON_DUPLICATE"
	CodeLocked          = "ADDON_LOCKED"
	CodeNotFound        = "ADDON_NOT_FOUND"
	CodeHoldsModule     = "ADDON_HOLDS_MODULE"
	CodeUnknownAction   = "ADDON_UNKNOWN_ACTION"
	CodeFilesystem      = "ADDON_FILESYSTEM"
	CodeUpdateFailed    = "ADDON_UPDATE_FAILED"
	CodeConfig          = "ADDON_CONFIG"
	CodeNotRunning      = "ADDON_LOADER_NOT_RUNNING"
	CodeAlreadyRunning  = "ADDON_LOADER_ALREADY_RUNNING"
)

// ErrLoadFailure creates an error for a module the OS could not load.
func ErrLoadFailure(path string, cause error) error {
	return oops.Code(CodeLoadFailure).
		With("path", path).
		Wrapf(cause, "load addon")
}

// ErrIncompatible creates an error for a module that does not meet the export contract.
func ErrIncompatible(path string, cause error) error {
	return oops.Code(CodeIncompatible).
		With("path", path).
		Wrapf(cause, "incompatible addon")
}

// ErrUpdateFailed creates an error for an update check or download that failed.
func ErrUpdateFailed(path string, cause error) error {
	return oops.Code(CodeUpdateFailed).
		With("path", path).
		Wrapf(cause, "update addon")
}

// ErrIncompatibleAPI creates an error for a module requesting an unknown table version.
func ErrIncompatibleAPI(path string, version uint32, cause error) error {
	return oops.Code(CodeIncompatibleAPI).
		With("path", path).
		With("api_version", version).
		Wrapf(cause, "incompatible api version %d", version)
}

// ErrDuplicate creates an error for a second addon declaring a loaded signature.
func ErrDuplicate(path string, signature int32, holder string) error {
	return oops.Code(CodeDuplicate).
		With("path", path).
		With("signature", signature).
		With("holder", holder).
		Errorf("signature %d already held by %s", signature, holder)
}

// ErrLocked creates an error for unloading an addon that cannot be unloaded at runtime.
func ErrLocked(name string) error {
	return oops.Code(CodeLocked).
		With("addon", name).
		Errorf("addon %s cannot be unloaded while running; it will be disabled on next start", name)
}

// ErrNotFound creates an error for an untracked path.
func ErrNotFound(path string) error {
	return oops.Code(CodeNotFound).
		With("path", path).
		Errorf("no addon tracked at %s", path)
}

// ErrHoldsModule creates an error for removing an addon that still holds a module.
func ErrHoldsModule(path string) error {
	return oops.Code(CodeHoldsModule).
		With("path", path).
		Errorf("addon at %s still holds a module", path)
}

// ErrUnknownAction creates an error for an action name that cannot be requested.
func ErrUnknownAction(name string) error {
	return oops.Code(CodeUnknownAction).
		With("action", name).
		Errorf("unknown addon action %q", name)
}

// ErrFilesystem wraps a filesystem failure on path.
func ErrFilesystem(op, path string, cause error) error {
	return oops.Code(CodeFilesystem).
		With("operation", op).
		With("path", path).
		Wrapf(cause, "%s", op)
}

// ErrConfig wraps a failure reading or writing the addon config.
func ErrConfig(path string, cause error) error {
	return oops.Code(CodeConfig).
		With("path", path).
		Wrapf(cause, "addon config")
}

// ErrNotRunning creates an error for a request made before Start or after Shutdown.
func ErrNotRunning() error {
	return oops.Code(CodeNotRunning).Errorf("addon loader is not running")
}

// ErrAlreadyRunning creates an error for starting a loader twice.
func ErrAlreadyRunning() error {
	return oops.Code(CodeAlreadyRunning).Errorf("addon loader already started")
}
