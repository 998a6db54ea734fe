// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package module

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// parseMappedRange returns the span of every mapping in a
// /proc/<pid>/maps listing whose pathname is path.
func parseMappedRange(r io.Reader, path string) Range {
	var rng Range
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 6 {
			continue
		}
		if strings.Join(fields[5:], " ") != path {
			continue
		}
		lo, hi, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		start, err := strconv.ParseUint(lo, 16, 64)
		if err != nil {
			continue
		}
		end, err := strconv.ParseUint(hi, 16, 64)
		if err != nil {
			continue
		}
		if rng.Empty() || uintptr(start) < rng.Base {
			rng.Base = uintptr(start)
		}
		if uintptr(end) > rng.End {
			rng.End = uintptr(end)
		}
	}
	return rng
}
