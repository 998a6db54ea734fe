// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package errutil_test

import (
	"testing"

	"github.com/samber/oops"

	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

func TestAssertErrorCodeMatches(t *testing.T) {
	err := oops.Code("ADDON_DUPLICATE").Errorf("duplicate signature")
	errutil.AssertErrorCode(t, err, "ADDON_DUPLICATE")
}

func TestAssertErrorContextMatches(t *testing.T) {
	err := oops.With("signature", int32(7)).Errorf("duplicate signature")
	errutil.AssertErrorContext(t, err, "signature", int32(7))
}
