// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
)

// Addon is one tracked addon: a file in the addon directory, or a
// placeholder restored from config for an addon not currently present.
// Fields are only read or written while the owning Loader's lock is held.
type Addon struct {
	// Path is the module file; empty for placeholders.
	Path string
	// Signature is the signature declared by the loaded definitions.
	Signature int32
	// MatchSignature correlates the addon with its persisted config entry.
	MatchSignature int32
	// ContentHash is the hex MD5 of the file when it was last loaded.
	ContentHash string
	// Module is the opened module, nil when none is held.
	Module *module.Handle
	// Range is where Module is mapped; empty when unknown.
	Range module.Range
	// Definitions belong to the held module; nil when none is held.
	Definitions *module.Definitions
	// Metadata is the last set of definitions read from the file. It
	// outlives the module for display and update checks.
	Metadata *module.Definitions
	State    State

	IsPausingUpdates      bool
	IsDisabledUntilUpdate bool
	IsFlaggedForDisable   bool
	IsFlaggedForEnable    bool
	IsFlaggedForUninstall bool
	IsWaitingForUnload    bool
	IsCheckingForUpdates  bool
	IsFavorite            bool
	AllowPrereleases      bool

	// wantsLoad is the persisted user preference.
	wantsLoad bool
	// reloadAfterFree is cleared when a pending reload is cancelled.
	reloadAfterFree bool
	// loadedOnce is set after the first load attempt this session.
	loadedOnce bool
}

// newAddon tracks a freshly discovered file. New addons load by default.
func newAddon(path string) *Addon {
	return &Addon{Path: path, State: StateNone, wantsLoad: true}
}

// newPlaceholder restores a persisted entry whose file has not been seen.
func newPlaceholder(e ConfigEntry) *Addon {
	return &Addon{
		MatchSignature:        e.Signature,
		State:                 StateNone,
		IsPausingUpdates:      e.IsPausingUpdates,
		IsDisabledUntilUpdate: e.IsDisabledUntilUpdate,
		AllowPrereleases:      e.AllowPrereleases,
		IsFavorite:            e.IsFavorite,
		wantsLoad:             e.IsLoaded,
	}
}

// IsPlaceholder reports whether the addon has no file.
func (a *Addon) IsPlaceholder() bool {
	return a.Path == ""
}

// IsLoaded reports whether a live module is held.
func (a *Addon) IsLoaded() bool {
	return a.State.Loaded()
}

// meta returns the live definitions, or the last known ones.
func (a *Addon) meta() *module.Definitions {
	if a.Definitions != nil {
		return a.Definitions
	}
	return a.Metadata
}

// DisplayName is the definitions name, falling back to the file name.
func (a *Addon) DisplayName() string {
	if d := a.meta(); d != nil && d.Name != "" {
		return d.Name
	}
	if a.Path != "" {
		return filepath.Base(a.Path)
	}
	return ""
}

// adopt takes over the persisted preferences of placeholder p.
func (a *Addon) adopt(p *Addon) {
	a.MatchSignature = p.MatchSignature
	a.IsPausingUpdates = p.IsPausingUpdates
	a.IsDisabledUntilUpdate = p.IsDisabledUntilUpdate
	a.AllowPrereleases = p.AllowPrereleases
	a.IsFavorite = p.IsFavorite
	a.wantsLoad = p.wantsLoad
}

// shouldLoad reports whether a load attempt should start the addon.
func (a *Addon) shouldLoad() bool {
	switch {
	case a.IsFlaggedForEnable:
		return true
	case a.IsFlaggedForDisable:
		return false
	default:
		return a.wantsLoad
	}
}

// persistedLoaded is the IsLoaded value written to config.
func (a *Addon) persistedLoaded() bool {
	switch {
	case a.IsFlaggedForDisable:
		return false
	case a.IsFlaggedForEnable:
		return true
	default:
		return a.wantsLoad
	}
}

// configEntry returns the persisted form of a.
func (a *Addon) configEntry() ConfigEntry {
	sig := a.Signature
	if sig == 0 {
		sig = a.MatchSignature
	}
	return ConfigEntry{
		Signature:             sig,
		IsLoaded:              a.persistedLoaded(),
		IsPausingUpdates:      a.IsPausingUpdates,
		IsDisabledUntilUpdate: a.IsDisabledUntilUpdate,
		AllowPrereleases:      a.AllowPrereleases,
		IsFavorite:            a.IsFavorite,
	}
}

// sortName normalizes the display name for ordering.
func (a *Addon) sortName() string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, a.DisplayName())
}

// Info is a read-only snapshot of an addon for display.
type Info struct {
	Path                  string `json:"path" yaml:"path"`
	Signature             int32  `json:"signature" yaml:"signature"`
	Name                  string `json:"name" yaml:"name"`
	Version               string `json:"version,omitempty" yaml:"version,omitempty"`
	Author                string `json:"author,omitempty" yaml:"author,omitempty"`
	Description           string `json:"description,omitempty" yaml:"description,omitempty"`
	State                 State  `json:"state" yaml:"state"`
	Flags                 string `json:"flags,omitempty" yaml:"flags,omitempty"`
	Provider              string `json:"provider,omitempty" yaml:"provider,omitempty"`
	ContentHash           string `json:"content_hash,omitempty" yaml:"content_hash,omitempty"`
	IsFavorite            bool   `json:"favorite" yaml:"favorite"`
	IsPausingUpdates      bool   `json:"pausing_updates" yaml:"pausing_updates"`
	AllowPrereleases      bool   `json:"allow_prereleases" yaml:"allow_prereleases"`
	IsDisabledUntilUpdate bool   `json:"disabled_until_update" yaml:"disabled_until_update"`
	IsFlaggedForDisable   bool   `json:"flagged_for_disable" yaml:"flagged_for_disable"`
	IsFlaggedForEnable    bool   `json:"flagged_for_enable" yaml:"flagged_for_enable"`
	IsFlaggedForUninstall bool   `json:"flagged_for_uninstall" yaml:"flagged_for_uninstall"`
	IsWaitingForUnload    bool   `json:"waiting_for_unload" yaml:"waiting_for_unload"`
	IsCheckingForUpdates  bool   `json:"checking_for_updates" yaml:"checking_for_updates"`
}

// Info returns a snapshot of a.
func (a *Addon) Info() Info {
	info := Info{
		Path:                  a.Path,
		Signature:             a.Signature,
		Name:                  a.DisplayName(),
		State:                 a.State,
		ContentHash:           a.ContentHash,
		IsFavorite:            a.IsFavorite,
		IsPausingUpdates:      a.IsPausingUpdates,
		AllowPrereleases:      a.AllowPrereleases,
		IsDisabledUntilUpdate: a.IsDisabledUntilUpdate,
		IsFlaggedForDisable:   a.IsFlaggedForDisable,
		IsFlaggedForEnable:    a.IsFlaggedForEnable,
		IsFlaggedForUninstall: a.IsFlaggedForUninstall,
		IsWaitingForUnload:    a.IsWaitingForUnload,
		IsCheckingForUpdates:  a.IsCheckingForUpdates,
	}
	if d := a.meta(); d != nil {
		info.Version = d.Version.String()
		info.Author = d.Author
		info.Description = d.Description
		info.Flags = d.Flags.String()
		info.Provider = d.Provider.String()
	}
	return info
}
