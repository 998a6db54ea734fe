// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package render holds the per-frame and raw input callbacks addons register.
package render

import (
	"log/slog"
	"sync"

	"github.com/RaidcoreGG/Nexus-sub000/internal/cabi"
	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
)

// Invoker calls a callback with the given arguments.
type Invoker func(callback uintptr, args ...uintptr) uintptr

// Registry stores render pass and input callbacks.
type Registry struct {
	mu     sync.RWMutex
	passes map[capability.RenderKind][]uintptr
	input  []uintptr
	invoke Invoker
	logger *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithInvoker replaces how callbacks are called.
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

// NewRegistry creates an empty registry that calls native callbacks.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		passes: make(map[capability.RenderKind][]uintptr),
		invoke: cabi.Call,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register attaches callback to the kind pass.
func (r *Registry) Register(kind capability.RenderKind, callback uintptr) {
	if callback == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes[kind] = appendUnique(r.passes[kind], callback)
}

// Deregister detaches callback from every pass.
func (r *Registry) Deregister(callback uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for kind, cbs := range r.passes {
		r.passes[kind] = without(cbs, callback)
	}
}

// RegisterInput attaches a raw input handler.
func (r *Registry) RegisterInput(callback uintptr) {
	if callback == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.input = appendUnique(r.input, callback)
}

// DeregisterInput detaches a raw input handler.
func (r *Registry) DeregisterInput(callback uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.input = without(r.input, callback)
}

// Callbacks returns a copy of the callbacks attached to kind.
func (r *Registry) Callbacks(kind capability.RenderKind) []uintptr {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]uintptr(nil), r.passes[kind]...)
}

// Render calls every callback of the kind pass in registration order.
func (r *Registry) Render(kind capability.RenderKind) {
	for _, cb := range r.Callbacks(kind) {
		r.invoke(cb)
	}
}

// DispatchInput offers a window message to every input handler. A handler
// returning zero consumes the message; DispatchInput then returns true.
func (r *Registry) DispatchInput(hwnd, msg, wparam, lparam uintptr) bool {
	r.mu.RLock()
	handlers := append([]uintptr(nil), r.input...)
	r.mu.RUnlock()

	for _, cb := range handlers {
		if r.invoke(cb, hwnd, msg, wparam, lparam) == 0 {
			return true
		}
	}
	return false
}

// Name identifies the registry in reference verification reports.
func (r *Registry) Name() string { return "render" }

// VerifyNoReferencesIn removes every callback inside [base, end) and
// returns how many were removed.
func (r *Registry) VerifyNoReferencesIn(base, end uintptr) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for kind, cbs := range r.passes {
		kept := cbs[:0]
		for _, cb := range cbs {
			if cb >= base && cb < end {
				removed++
				r.logger.Warn("removed stale render callback", "pass", kind.String(), "callback", cb)
				continue
			}
			kept = append(kept, cb)
		}
		r.passes[kind] = kept
	}

	kept := r.input[:0]
	for _, cb := range r.input {
		if cb >= base && cb < end {
			removed++
			r.logger.Warn("removed stale input handler", "callback", cb)
			continue
		}
		kept = append(kept, cb)
	}
	r.input = kept
	return removed
}

func appendUnique(list []uintptr, v uintptr) []uintptr {
	for _, cb := range list {
		if cb == v {
			return list
		}
	}
	return append(list, v)
}

func without(list []uintptr, v uintptr) []uintptr {
	out := make([]uintptr, 0, len(list))
	for _, cb := range list {
		if cb != v {
			out = append(out, cb)
		}
	}
	return out
}
