// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"strings"

	"github.com/samber/oops"
)

// State is the load state of an addon.
type State int

// Addon states.
const (
	StateNone State = iota
	StateNotLoaded
	StateNotLoadedDuplicate
	StateNotLoadedIncompatible
	StateNotLoadedIncompatibleAPI
	StateLoaded
	StateLoadedLocked
)

var stateNames = map[State]string{
	StateNone:                     "None",
	StateNotLoaded:                "NotLoaded",
	StateNotLoadedDuplicate:       "NotLoadedDuplicate",
	StateNotLoadedIncompatible:    "NotLoadedIncompatible",
	StateNotLoadedIncompatibleAPI: "NotLoadedIncompatibleApi",
	StateLoaded:                   "Loaded",
	StateLoadedLocked:             "LoadedLocked",
}

// String returns the state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for st, name := range stateNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return oops.Errorf("unknown addon state %q", string(text))
}

// Loaded reports whether the state holds a live module.
func (s State) Loaded() bool {
	return s == StateLoaded || s == StateLoadedLocked
}

// Incompatible reports whether the module was rejected for its contents.
func (s State) Incompatible() bool {
	return s == StateNotLoadedIncompatible || s == StateNotLoadedIncompatibleAPI
}

// Action is a lifecycle operation queued for an addon path.
type Action int

// Queued actions.
const (
	ActionNone Action = iota
	ActionLoad
	ActionUnload
	ActionReload
	ActionFree
	ActionFreeThenLoad
	ActionUninstall
)

var actionNames = map[Action]string{
	ActionNone:         "none",
	ActionLoad:         "load",
	ActionUnload:       "unload",
	ActionReload:       "reload",
	ActionFree:         "free",
	ActionFreeThenLoad: "free-then-load",
	ActionUninstall:    "uninstall",
}

// String returns the action name.
func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAction parses a user-requestable action name. Free actions are
// internal and cannot be requested.
func ParseAction(name string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "load":
		return ActionLoad, nil
	case "unload":
		return ActionUnload, nil
	case "reload":
		return ActionReload, nil
	case "uninstall":
		return ActionUninstall, nil
	default:
		return ActionNone, ErrUnknownAction(name)
	}
}

// Priority orders competing requests for the same path.
type Priority int

// Queue priorities.
const (
	// PriorityAutomatic marks actions the host decided on by itself.
	PriorityAutomatic Priority = iota
	// PriorityManual marks actions a user requested.
	PriorityManual
	// PrioritySystem marks the follow-up of an unload; it is never dropped.
	PrioritySystem
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityAutomatic:
		return "automatic"
	case PriorityManual:
		return "manual"
	case PrioritySystem:
		return "system"
	default:
		return "unknown"
	}
}
