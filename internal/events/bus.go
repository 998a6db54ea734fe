// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package events delivers named events between addons.
package events

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/RaidcoreGG/Nexus-sub000/internal/cabi"
)

// Invoker calls an event callback with the raised payload.
type Invoker func(callback, payload uintptr)

// OwnerResolver returns the signature of the addon whose module contains
// addr, or zero when no loaded addon contains it.
type OwnerResolver func(addr uintptr) int32

// Bus distributes raised events to subscribed callbacks. Callbacks run
// synchronously on the raising goroutine.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]uintptr
	owner  OwnerResolver
	invoke Invoker
	logger *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithInvoker replaces how callbacks are called.
func WithInvoker(invoke Invoker) Option {
	return func(b *Bus) {
		b.invoke = invoke
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// NewBus creates an empty bus that calls native callbacks.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs: make(map[string][]uintptr),
		invoke: func(callback, payload uintptr) {
			cabi.Call(callback, payload)
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetOwnerResolver installs the resolver used by RaiseTargeted.
func (b *Bus) SetOwnerResolver(owner OwnerResolver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.owner = owner
}

// Subscribe adds callback to name. Subscribing twice is a no-op.
func (b *Bus) Subscribe(name string, callback uintptr) {
	if callback == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, cb := range b.subs[name] {
		if cb == callback {
			return
		}
	}
	b.subs[name] = append(b.subs[name], callback)
}

// Unsubscribe removes callback from name.
func (b *Bus) Unsubscribe(name string, callback uintptr) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, cb := range subs {
		if cb == callback {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[name]) == 0 {
		delete(b.subs, name)
	}
}

// Raise calls every callback subscribed to name.
func (b *Bus) Raise(name string, payload uintptr) {
	for _, cb := range b.snapshot(name) {
		b.invoke(cb, payload)
	}
}

// RaiseTargeted calls only the callbacks of name owned by signature.
func (b *Bus) RaiseTargeted(signature int32, name string, payload uintptr) {
	b.mu.RLock()
	owner := b.owner
	b.mu.RUnlock()
	if owner == nil {
		b.logger.Debug("targeted event dropped: no owner resolver", "event", name, "signature", signature)
		return
	}
	for _, cb := range b.snapshot(name) {
		if owner(cb) == signature {
			b.invoke(cb, payload)
		}
	}
}

// Subscribers returns a copy of the callbacks subscribed to name.
func (b *Bus) Subscribers(name string) []uintptr {
	return b.snapshot(name)
}

// Events returns the names with at least one subscriber, sorted.
func (b *Bus) Events() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.subs))
	for name := range b.subs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name identifies the bus in reference verification reports.
func (b *Bus) Name() string { return "events" }

// VerifyNoReferencesIn removes every callback inside [base, end) and
// returns how many were removed.
func (b *Bus) VerifyNoReferencesIn(base, end uintptr) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for name, subs := range b.subs {
		kept := subs[:0]
		for _, cb := range subs {
			if cb >= base && cb < end {
				removed++
				b.logger.Warn("removed stale event subscription", "event", name, "callback", cb)
				continue
			}
			kept = append(kept, cb)
		}
		if len(kept) == 0 {
			delete(b.subs, name)
		} else {
			b.subs[name] = kept
		}
	}
	return removed
}

func (b *Bus) snapshot(name string) []uintptr {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]uintptr(nil), b.subs[name]...)
}
