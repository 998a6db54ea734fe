// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package capability

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes for capability table failures.
const (
	CodeUnknownVersion = "CAPABILITY_UNKNOWN_VERSION"
)

// ErrNativeUnsupported is returned when a native table is requested on a
// platform that cannot call into native code.
var ErrNativeUnsupported = errors.New("native capability tables are not supported on this platform")

// ErrUnknownVersion creates an error for a table version the host does not provide.
func ErrUnknownVersion(v Version) error {
	return oops.Code(CodeUnknownVersion).
		With("api_version", uint32(v)).
		Errorf("unsupported capability table version %d", uint32(v))
}
