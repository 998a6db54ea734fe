// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"context"
	"log/slog"
	"os"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
	"github.com/RaidcoreGG/Nexus-sub000/internal/update"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

// Lifecycle operations. Every function in this file must be called with
// mu held.

// load opens the file at path and, if it qualifies, starts the addon.
// Rejections are recorded in the addon's state; the returned error is
// the reason.
func (l *Loader) load(_ context.Context, path string) error {
	a := l.registry.FindByPath(path)
	if a == nil {
		a = newAddon(path)
		l.registry.Add(a)
	}
	if a.IsLoaded() || a.IsWaitingForUnload || a.IsFlaggedForUninstall {
		return nil
	}

	swapped, err := updateSwap(path)
	if err != nil {
		errutil.LogWarn(l.logger, "update swap failed", err, "path", path)
	}
	if !isCandidate(path) {
		l.forget(a)
		return ErrNotFound(path)
	}

	hash, err := update.HashFile(path)
	if err != nil {
		return ErrFilesystem("hash", path, err)
	}
	changed := a.ContentHash != "" && a.ContentHash != hash
	if a.State.Incompatible() && !changed && !swapped {
		// Rejected for its contents; only new bytes can change that.
		return nil
	}
	a.ContentHash = hash

	lib, err := l.opener.Open(path)
	if err != nil {
		a.State = StateNotLoadedIncompatible
		return ErrLoadFailure(path, err)
	}
	h := module.NewHandle(lib)

	defs, err := h.Definitions()
	if err == nil {
		err = defs.Validate()
	}
	if err != nil {
		l.abandon(h)
		a.State = StateNotLoadedIncompatible
		return ErrIncompatible(path, err)
	}

	if a.MatchSignature != defs.Signature {
		if p := l.registry.FindPlaceholder(defs.Signature); p != nil {
			a.adopt(p)
			l.registry.delete(p)
		}
	}
	if holder := l.registry.FindHolder(defs.Signature, a); holder != nil {
		l.abandon(h)
		a.Metadata = defs
		a.Signature = defs.Signature
		a.State = StateNotLoadedDuplicate
		return ErrDuplicate(path, defs.Signature, holder.Path)
	}

	a.Metadata = defs
	a.Signature = defs.Signature
	a.MatchSignature = defs.Signature
	if changed || swapped {
		a.IsDisabledUntilUpdate = false
	}
	if !a.loadedOnce {
		a.loadedOnce = true
		if l.envChanged && !swapped && defs.Flags.Has(module.FlagVolatile) {
			a.IsDisabledUntilUpdate = true
		}
	}

	if v := capability.Version(defs.APIVersion); !v.Known() {
		l.abandon(h)
		a.State = StateNotLoadedIncompatibleAPI
		return ErrIncompatibleAPI(path, defs.APIVersion, capability.ErrUnknownVersion(v))
	}

	switch {
	case a.IsDisabledUntilUpdate:
		l.abandon(h)
		a.State = StateNotLoaded
		l.logger.Info("addon disabled until update", "addon", a.DisplayName())
		l.save()
		l.scheduleUpdateCheck(a, false)
		return nil
	case !a.shouldLoad():
		l.abandon(h)
		a.State = StateNotLoaded
		l.save()
		l.scheduleUpdateCheck(a, false)
		return nil
	case defs.Flags.Has(module.FlagOnlyLoadDuringLaunch) && !l.launchWindow:
		l.abandon(h)
		a.State = StateNotLoaded
		a.IsFlaggedForEnable = true
		l.logger.Info("addon loads on next start", "addon", a.DisplayName())
		l.save()
		return nil
	}

	table, err := l.tables.Acquire(capability.Version(defs.APIVersion))
	if err != nil {
		l.abandon(h)
		a.State = StateNotLoadedIncompatibleAPI
		return ErrIncompatibleAPI(path, defs.APIVersion, err)
	}

	a.Module = h
	a.Definitions = defs
	a.Range = h.Range()
	a.State = StateLoaded
	if defs.Locked() {
		a.State = StateLoadedLocked
	}
	l.publishOwners()

	if err := h.Enter(table); err != nil {
		l.release(a, h)
		a.State = StateNotLoadedIncompatible
		return ErrLoadFailure(path, err)
	}

	a.IsFlaggedForEnable = false
	a.wantsLoad = true
	l.logger.Info("addon loaded",
		"addon", a.DisplayName(),
		"version", defs.Version.String(),
		"signature", a.Signature,
		"state", a.State.String(),
	)
	l.save()
	l.scheduleUpdateCheck(a, false)
	return nil
}

// unload stops the addon. Unless the addon asks for a synchronous unload
// or the host is shutting down, the unload entry runs on a background task
// and the module is freed by a later Free action.
func (l *Loader) unload(_ context.Context, a *Addon, reload bool) error {
	if a.IsWaitingForUnload {
		a.reloadAfterFree = reload
		return nil
	}
	if !a.IsLoaded() {
		return nil
	}
	if a.State == StateLoadedLocked && !l.shuttingDown {
		if !reload {
			a.IsFlaggedForDisable = true
			a.IsFlaggedForEnable = false
			l.save()
		}
		return ErrLocked(a.DisplayName())
	}

	u, err := a.Module.BeginUnload()
	if err != nil {
		return err
	}
	scrub := l.scrubber(a.DisplayName())

	if l.shuttingDown || a.Definitions.Flags.Has(module.FlagSyncUnload) {
		if err := u.Call(); err != nil {
			errutil.LogWarn(l.logger, "addon unload entry failed", err, "addon", a.DisplayName())
		}
		v, _ := u.Verify(scrub)
		a.reloadAfterFree = reload
		return l.free(a, v)
	}

	a.IsWaitingForUnload = true
	a.reloadAfterFree = reload
	path, name := a.Path, a.DisplayName()
	follow := ActionFree
	if reload {
		follow = ActionFreeThenLoad
	}
	run := func(_ context.Context, logger *slog.Logger) {
		if err := u.Call(); err != nil {
			errutil.LogWarn(logger, "addon unload entry failed", err, "addon", name)
		}
		_, n := u.Verify(scrub)
		logger.Debug("addon unloaded", "addon", name, "stale_references", n)
		l.queue.Enqueue(path, follow, PrioritySystem)
	}
	if !l.submit("unload", run) {
		run(l.ctx, l.logger)
	}
	return nil
}

// freeQueued releases a module whose unload has been verified.
func (l *Loader) freeQueued(path string) error {
	a := l.registry.FindByPath(path)
	if a == nil || a.Module == nil {
		return nil
	}
	v, ok := a.Module.Verified()
	if !ok {
		return module.ErrInvalidPhase("free", a.Module.Phase())
	}
	return l.free(a, v)
}

// free releases the module and applies any pending reload or uninstall.
func (l *Loader) free(a *Addon, v *module.Verified) error {
	if err := v.Free(); err != nil {
		errutil.LogWarn(l.logger, "failed to release module", err, "addon", a.DisplayName())
	}
	a.Module = nil
	a.Definitions = nil
	a.Range = module.Range{}
	a.State = StateNotLoaded
	a.IsWaitingForUnload = false
	l.publishOwners()
	l.logger.Info("addon unloaded", "addon", a.DisplayName())

	if a.IsFlaggedForUninstall {
		// The detector deletes the marker and drops the entry.
		a.reloadAfterFree = false
		l.save()
		return nil
	}

	reload := a.reloadAfterFree && !l.shuttingDown
	a.reloadAfterFree = false
	l.save()
	if reload {
		return l.load(l.ctx, a.Path)
	}
	return nil
}

// release takes down a module whose load entry failed.
func (l *Loader) release(a *Addon, h *module.Handle) {
	u, err := h.BeginUnload()
	if err == nil {
		v, _ := u.Verify(l.scrubber(a.DisplayName()))
		if err := v.Free(); err != nil {
			errutil.LogWarn(l.logger, "failed to release module", err, "addon", a.DisplayName())
		}
	}
	a.Module = nil
	a.Definitions = nil
	a.Range = module.Range{}
	l.publishOwners()
}

func (l *Loader) abandon(h *module.Handle) {
	if err := h.Abandon(); err != nil {
		errutil.LogWarn(l.logger, "failed to release module", err)
	}
}

// reload unloads the addon and loads it again once freed.
func (l *Loader) reload(ctx context.Context, path string) error {
	a := l.registry.FindByPath(path)
	if a == nil || (!a.IsLoaded() && !a.IsWaitingForUnload) {
		return l.load(ctx, path)
	}
	if a.State == StateLoadedLocked && !a.IsWaitingForUnload {
		return ErrLocked(a.DisplayName())
	}
	return l.unload(ctx, a, true)
}

// uninstall deletes the addon's file. A loaded addon's file is renamed
// aside and deleted once the module is gone.
func (l *Loader) uninstall(ctx context.Context, path string) error {
	a := l.registry.FindByPath(path)
	if a == nil {
		return ErrNotFound(path)
	}

	if a.IsLoaded() || a.IsWaitingForUnload {
		marker := path + UninstallSuffix
		if err := os.Rename(path, marker); err != nil {
			return ErrFilesystem("rename for uninstall", path, err)
		}
		a.IsFlaggedForUninstall = true
		a.reloadAfterFree = false
		l.save()
		if a.State == StateLoaded && !a.IsWaitingForUnload {
			return l.unload(ctx, a, false)
		}
		return nil
	}

	l.removeFiles(path, path+update.UpdateSuffix, path+OldSuffix)
	l.registry.delete(a)
	l.save()
	l.logger.Info("addon uninstalled", "path", path)
	return nil
}

func (l *Loader) removeFiles(paths ...string) {
	for _, p := range paths {
		if err := removeIfExists(p); err != nil {
			errutil.LogWarn(l.logger, "failed to remove addon file", err)
		}
	}
}

// forget drops an addon whose file is gone. Addons with a known
// signature become placeholders so their preferences survive.
func (l *Loader) forget(a *Addon) {
	if a.Module != nil {
		return
	}
	sig := a.Signature
	if sig == 0 {
		sig = a.MatchSignature
	}
	if sig == 0 || a.IsFlaggedForUninstall || l.registry.FindPlaceholder(sig) != nil {
		l.registry.delete(a)
		return
	}
	a.Path = ""
	a.MatchSignature = sig
	a.Signature = 0
	a.ContentHash = ""
	a.Definitions = nil
	a.Metadata = nil
	a.State = StateNone
	a.IsFlaggedForDisable = false
	a.IsFlaggedForEnable = false
	a.loadedOnce = false
}

// scrubber returns the verification step run after an addon unloads.
func (l *Loader) scrubber(name string) func(module.Range) int {
	scrubbers := l.scrub
	logger := l.logger
	return func(r module.Range) int {
		if r.Empty() {
			return 0
		}
		total := 0
		for _, s := range scrubbers {
			n := s.VerifyNoReferencesIn(r.Base, r.End)
			if n == 0 {
				continue
			}
			RecordStaleReferences(s.Name(), n)
			logger.Warn("addon left references behind",
				"addon", name,
				"subsystem", s.Name(),
				"count", n,
			)
			total += n
		}
		return total
	}
}
