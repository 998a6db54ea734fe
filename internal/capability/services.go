// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package capability

import "log/slog"

// RenderKind selects which render pass a callback is attached to.
type RenderKind int32

// Render passes.
const (
	RenderPre RenderKind = iota
	RenderMain
	RenderPost
	RenderOptions
)

// String returns the render pass name.
func (k RenderKind) String() string {
	switch k {
	case RenderPre:
		return "pre"
	case RenderMain:
		return "main"
	case RenderPost:
		return "post"
	case RenderOptions:
		return "options"
	default:
		return "unknown"
	}
}

// LogLevel is the severity an addon attaches to a log line.
type LogLevel int32

// Addon log levels.
const (
	LogOff LogLevel = iota
	LogCritical
	LogWarning
	LogInfo
	LogDebug
	LogTrace
)

// LevelTrace sits below slog.LevelDebug for addon trace output.
const LevelTrace = slog.LevelDebug - 4

// SlogLevel maps an addon log level onto slog.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogCritical:
		return slog.LevelError
	case LogWarning:
		return slog.LevelWarn
	case LogInfo:
		return slog.LevelInfo
	case LogDebug:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// EventBus delivers named events between addons.
type EventBus interface {
	Raise(name string, payload uintptr)
	RaiseTargeted(signature int32, name string, payload uintptr)
	Subscribe(name string, callback uintptr)
	Unsubscribe(name string, callback uintptr)
}

// KeybindRegistry stores keybind handlers.
type KeybindRegistry interface {
	Register(id, bind string, handler uintptr) error
	Deregister(id string)
}

// ResourceStore shares opaque pointers between addons by name.
type ResourceStore interface {
	Share(name string, ptr uintptr)
	Get(name string) uintptr
	Remove(name string)
}

// RenderRegistry stores per-frame render and raw input callbacks.
type RenderRegistry interface {
	Register(kind RenderKind, callback uintptr)
	Deregister(callback uintptr)
	RegisterInput(callback uintptr)
	DeregisterInput(callback uintptr)
}

// PacketSender transmits addon packets to a named peer.
type PacketSender interface {
	Send(target string, payload []byte) bool
}

// Services are the host subsystems tables forward to. Any field may be nil.
type Services struct {
	Logger    *slog.Logger
	Events    EventBus
	Keybinds  KeybindRegistry
	Resources ResourceStore
	Render    RenderRegistry
	Network   PacketSender
}
