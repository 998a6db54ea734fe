// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package resources lets addons share opaque pointers by name.
package resources

import (
	"log/slog"
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// Store maps resource names to pointers. It is safe for concurrent use.
type Store struct {
	m      cmap.ConcurrentMap[string, uintptr]
	logger *slog.Logger
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{m: cmap.New[uintptr](), logger: logger}
}

// Share publishes ptr under name, replacing any previous pointer.
func (s *Store) Share(name string, ptr uintptr) {
	s.m.Upsert(name, ptr, func(exists bool, old, next uintptr) uintptr {
		if exists && old != next {
			s.logger.Warn("resource conflict: overwriting shared pointer", "resource", name)
		}
		return next
	})
}

// Get returns the pointer shared under name, or zero.
func (s *Store) Get(name string) uintptr {
	ptr, _ := s.m.Get(name)
	return ptr
}

// Remove withdraws name.
func (s *Store) Remove(name string) {
	s.m.Remove(name)
}

// Names returns every shared resource name, sorted.
func (s *Store) Names() []string {
	names := s.m.Keys()
	sort.Strings(names)
	return names
}

// Name identifies the store in reference verification reports.
func (s *Store) Name() string { return "resources" }

// VerifyNoReferencesIn withdraws every resource pointing into [base, end)
// and returns how many were withdrawn.
func (s *Store) VerifyNoReferencesIn(base, end uintptr) int {
	removed := 0
	for name := range s.m.Items() {
		gone := s.m.RemoveCb(name, func(_ string, ptr uintptr, exists bool) bool {
			return exists && ptr >= base && ptr < end
		})
		if gone {
			removed++
			s.logger.Warn("removed stale shared resource", "resource", name)
		}
	}
	return removed
}
