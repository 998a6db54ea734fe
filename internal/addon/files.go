// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/RaidcoreGG/Nexus-sub000/internal/update"
)

// File suffixes next to an addon file.
const (
	OldSuffix       = ".old"
	UninstallSuffix = ".uninstall"
)

// DefaultPatterns are the file names considered addon candidates.
var DefaultPatterns = []string{"*.dll", "*.so", "*.dylib", "*.addon", "*.lua"}

// Matcher decides which directory entries are addon candidates.
type Matcher struct {
	globs []glob.Glob
}

// NewMatcher compiles case-insensitive file name patterns.
func NewMatcher(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	m := &Matcher{globs: make([]glob.Glob, 0, len(patterns))}
	for _, p := range patterns {
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, oops.Code(CodeConfig).With("pattern", p).Wrapf(err, "compile candidate pattern")
		}
		m.globs = append(m.globs, g)
	}
	return m, nil
}

// Match reports whether name looks like an addon file.
func (m *Matcher) Match(name string) bool {
	lower := strings.ToLower(filepath.Base(name))
	for _, g := range m.globs {
		if g.Match(lower) {
			return true
		}
	}
	return false
}

// isCandidate reports whether path resolves to a non-empty regular file.
// Links are followed; dangling links are not candidates.
func isCandidate(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Size() > 0
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// removeIfExists deletes path, treating an absent file as success.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ErrFilesystem("remove", path, err)
	}
	return nil
}

// updateSwap replaces path with a staged path+".update". The previous
// file is kept as path+".old" until the next swap. It reports whether a
// swap took place.
func updateSwap(path string) (bool, error) {
	old := path + OldSuffix
	if err := removeIfExists(old); err != nil {
		return false, err
	}

	staged := path + update.UpdateSuffix
	if !exists(staged) {
		return false, nil
	}
	if exists(path) {
		if err := os.Rename(path, old); err != nil {
			return false, ErrFilesystem("rename to old", path, err)
		}
	}
	if err := os.Rename(staged, path); err != nil {
		// Put the previous build back so the addon stays usable.
		if exists(old) {
			_ = os.Rename(old, path)
		}
		return false, ErrFilesystem("rename staged update", staged, err)
	}
	return true, nil
}
