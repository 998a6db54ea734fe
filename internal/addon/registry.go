// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"slices"
	"strings"
)

// Registry is the ordered set of tracked addons. It is not safe for
// concurrent use; the Loader serializes all access.
type Registry struct {
	addons []*Addon
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add starts tracking a. An addon already tracked at a.Path is replaced
// in place.
func (r *Registry) Add(a *Addon) {
	if a.Path != "" {
		for i, cur := range r.addons {
			if cur.Path == a.Path {
				r.addons[i] = a
				return
			}
		}
	}
	r.addons = append(r.addons, a)
}

// Len returns the number of tracked addons, placeholders included.
func (r *Registry) Len() int {
	return len(r.addons)
}

// All returns the tracked addons in order. The slice is a copy.
func (r *Registry) All() []*Addon {
	return slices.Clone(r.addons)
}

// FindByPath returns the addon tracked at path.
func (r *Registry) FindByPath(path string) *Addon {
	if path == "" {
		return nil
	}
	for _, a := range r.addons {
		if a.Path == path {
			return a
		}
	}
	return nil
}

// FindHolder returns the addon other than except whose loaded module
// declares signature. An addon still waiting for its unload holds it.
func (r *Registry) FindHolder(signature int32, except *Addon) *Addon {
	if signature == 0 {
		return nil
	}
	for _, a := range r.addons {
		if a == except || !(a.IsLoaded() || a.IsWaitingForUnload) {
			continue
		}
		if a.Signature == signature {
			return a
		}
	}
	return nil
}

// FindBySignature returns the first tracked file whose loaded
// definitions declare signature.
func (r *Registry) FindBySignature(signature int32) *Addon {
	if signature == 0 {
		return nil
	}
	for _, a := range r.addons {
		if a.Signature == signature && !a.IsPlaceholder() {
			return a
		}
	}
	return nil
}

// FindPlaceholder returns the placeholder restored for signature.
func (r *Registry) FindPlaceholder(signature int32) *Addon {
	if signature == 0 {
		return nil
	}
	for _, a := range r.addons {
		if a.IsPlaceholder() && a.MatchSignature == signature {
			return a
		}
	}
	return nil
}

// FindByContentHash returns an addon whose file has the given digest.
func (r *Registry) FindByContentHash(hash string) *Addon {
	if hash == "" {
		return nil
	}
	for _, a := range r.addons {
		if a.ContentHash == hash && !a.IsPlaceholder() {
			return a
		}
	}
	return nil
}

// Remove stops tracking the addon at path. An addon still holding a
// module cannot be removed.
func (r *Registry) Remove(path string) error {
	a := r.FindByPath(path)
	if a == nil {
		return ErrNotFound(path)
	}
	if a.Module != nil {
		return ErrHoldsModule(path)
	}
	r.delete(a)
	return nil
}

func (r *Registry) delete(target *Addon) {
	r.addons = slices.DeleteFunc(r.addons, func(a *Addon) bool { return a == target })
}

// Sort orders addons for display: those disabled until update last, then
// by normalized name, favorites first among equal names.
func (r *Registry) Sort() {
	slices.SortStableFunc(r.addons, func(a, b *Addon) int {
		if a.IsDisabledUntilUpdate != b.IsDisabledUntilUpdate {
			if a.IsDisabledUntilUpdate {
				return 1
			}
			return -1
		}
		if c := strings.Compare(a.sortName(), b.sortName()); c != 0 {
			return c
		}
		switch {
		case a.IsFavorite == b.IsFavorite:
			return 0
		case a.IsFavorite:
			return -1
		default:
			return 1
		}
	})
}
