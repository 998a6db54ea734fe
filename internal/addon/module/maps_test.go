// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package module

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleMaps = `55d0c0a00000-55d0c0a02000 r--p 00000000 08:01 1 /usr/bin/nexus
7f1a00000000-7f1a00010000 r--p 00000000 08:01 42 /opt/nexus/addons/foo.so
7f1a00010000-7f1a00030000 r-xp 00010000 08:01 42 /opt/nexus/addons/foo.so
7f1a00030000-7f1a00038000 rw-p 00030000 08:01 42 /opt/nexus/addons/foo.so
7f1a00040000-7f1a00050000 r--p 00000000 08:01 43 /opt/nexus/addons/foo bar.so
7fff00000000-7fff00021000 rw-p 00000000 00:00 0 [stack]
`

func TestParseMappedRange(t *testing.T) {
	rng := parseMappedRange(strings.NewReader(sampleMaps), "/opt/nexus/addons/foo.so")
	assert.Equal(t, Range{Base: 0x7f1a00000000, End: 0x7f1a00038000}, rng)
}

func TestParseMappedRangeWithSpaces(t *testing.T) {
	rng := parseMappedRange(strings.NewReader(sampleMaps), "/opt/nexus/addons/foo bar.so")
	assert.Equal(t, Range{Base: 0x7f1a00040000, End: 0x7f1a00050000}, rng)
}

func TestParseMappedRangeUnknownPath(t *testing.T) {
	rng := parseMappedRange(strings.NewReader(sampleMaps), "/opt/nexus/addons/missing.so")
	assert.True(t, rng.Empty())
}
