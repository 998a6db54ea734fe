// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package keybinds stores the keybinds addons register and dispatches
// key presses to their handlers.
package keybinds

import (
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"unsafe"

	"github.com/samber/oops"

	"github.com/RaidcoreGG/Nexus-sub000/internal/cabi"
)

// Keybind associates an identifier with a key combination and handler.
type Keybind struct {
	ID      string  `json:"id"`
	Bind    string  `json:"bind"`
	Handler uintptr `json:"-"`
}

// Invoker calls a keybind handler.
type Invoker func(handler uintptr, id string, released bool)

// Registry manages keybind registration and lookup.
// It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	binds  map[string]Keybind
	invoke Invoker
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithInvoker replaces how handlers are called.
func WithInvoker(invoke Invoker) Option {
	return func(r *Registry) {
		r.invoke = invoke
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty registry that calls native handlers.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		binds:  make(map[string]Keybind),
		invoke: nativeInvoke,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func nativeInvoke(handler uintptr, id string, released bool) {
	cid := append([]byte(id), 0)
	cabi.Call(handler, uintptr(unsafe.Pointer(&cid[0])), cabi.FromBool(released))
	runtime.KeepAlive(cid)
}

// Register adds a keybind. When id already exists its handler is replaced
// and the stored bind is kept, so user customizations survive reloads.
func (r *Registry) Register(id, bind string, handler uintptr) error {
	if id == "" {
		return oops.Code(CodeInvalidID).Errorf("keybind id cannot be empty")
	}
	normalized, err := ParseBind(bind)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.binds[id]; ok {
		if existing.Handler != 0 && existing.Handler != handler {
			r.logger.Warn("keybind conflict: overwriting existing handler", "id", id)
		}
		existing.Handler = handler
		r.binds[id] = existing
		return nil
	}
	r.binds[id] = Keybind{ID: id, Bind: normalized, Handler: handler}
	return nil
}

// Deregister detaches the handler of id. The bind itself is retained.
func (r *Registry) Deregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if kb, ok := r.binds[id]; ok {
		kb.Handler = 0
		r.binds[id] = kb
	}
}

// Set rebinds id. Two keybinds may not share a non-empty bind.
func (r *Registry) Set(id, bind string) error {
	normalized, err := ParseBind(bind)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kb, ok := r.binds[id]
	if !ok {
		return oops.Code(CodeNotFound).With("id", id).Errorf("keybind %s not found", id)
	}
	if normalized != Unbound {
		for other, okb := range r.binds {
			if other != id && okb.Bind == normalized {
				return oops.Code(CodeConflict).
					With("id", id).
					With("bind", normalized).
					With("conflict", other).
					Errorf("bind %s already used by %s", normalized, other)
			}
		}
	}
	kb.Bind = normalized
	r.binds[id] = kb
	return nil
}

// Get retrieves a keybind by id.
func (r *Registry) Get(id string) (Keybind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kb, ok := r.binds[id]
	return kb, ok
}

// All returns every keybind sorted by id.
func (r *Registry) All() []Keybind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Keybind, 0, len(r.binds))
	for _, kb := range r.binds {
		out = append(out, kb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Trigger calls the handler bound to bind and reports whether one ran.
func (r *Registry) Trigger(bind string, released bool) bool {
	normalized, err := ParseBind(bind)
	if err != nil || normalized == Unbound {
		return false
	}

	r.mu.RLock()
	var hit Keybind
	for _, kb := range r.binds {
		if kb.Bind == normalized && kb.Handler != 0 {
			hit = kb
			break
		}
	}
	r.mu.RUnlock()

	if hit.Handler == 0 {
		return false
	}
	r.invoke(hit.Handler, hit.ID, released)
	return true
}

// Name identifies the registry in reference verification reports.
func (r *Registry) Name() string { return "keybinds" }

// VerifyNoReferencesIn detaches every handler inside [base, end) and
// returns how many were detached.
func (r *Registry) VerifyNoReferencesIn(base, end uintptr) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, kb := range r.binds {
		if kb.Handler >= base && kb.Handler < end && kb.Handler != 0 {
			kb.Handler = 0
			r.binds[id] = kb
			removed++
			r.logger.Warn("removed stale keybind handler", "id", id)
		}
	}
	return removed
}
