// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/RaidcoreGG/Nexus-sub000/internal/update"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

// Reconcile compares the registry with the addon directory and queues
// the actions that bring them back in line. It never loads or unloads
// anything itself.
func (l *Loader) Reconcile() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, a := range l.registry.All() {
		if a.IsPlaceholder() || a.IsFlaggedForUninstall || a.IsWaitingForUnload {
			continue
		}
		l.reconcileTracked(a)
	}
	l.scanDirectory()
	l.pruneUninstalled()
}

// pruneUninstalled drops uninstalled addons once their module is
// released and the marker file is gone.
func (l *Loader) pruneUninstalled() {
	for _, a := range l.registry.All() {
		if !a.IsFlaggedForUninstall || a.Module != nil || a.IsWaitingForUnload {
			continue
		}
		if exists(a.Path + UninstallSuffix) {
			continue
		}
		l.registry.delete(a)
		l.logger.Info("addon uninstalled", "path", a.Path)
	}
}

func (l *Loader) reconcileTracked(a *Addon) {
	if a.State == StateLoadedLocked {
		return
	}
	if !isCandidate(a.Path) && !exists(a.Path+update.UpdateSuffix) {
		if a.IsLoaded() {
			l.queue.Enqueue(a.Path, ActionUnload, PriorityAutomatic)
			return
		}
		l.forget(a)
		return
	}

	swapped := false
	if exists(a.Path + update.UpdateSuffix) {
		if a.IsLoaded() {
			var err error
			if swapped, err = updateSwap(a.Path); err != nil {
				errutil.LogWarn(l.logger, "update swap failed", err, "addon", a.DisplayName())
				return
			}
		} else {
			// Load swaps before opening the file.
			l.queue.Enqueue(a.Path, ActionLoad, PriorityAutomatic)
			return
		}
	}

	hash, err := update.HashFile(a.Path)
	if err != nil {
		errutil.LogWarn(l.logger, "failed to hash addon", ErrFilesystem("hash", a.Path, err))
		return
	}
	if !swapped && hash == a.ContentHash {
		return
	}

	if a.IsLoaded() {
		l.logger.Info("addon changed on disk", "addon", a.DisplayName(), "swapped", swapped)
		l.queue.Enqueue(a.Path, ActionReload, PriorityAutomatic)
		return
	}
	l.queue.Enqueue(a.Path, ActionLoad, PriorityAutomatic)
}

func (l *Loader) scanDirectory() {
	entries, err := os.ReadDir(l.cfg.Dir)
	if err != nil {
		errutil.LogWarn(l.logger, "failed to scan addon directory", ErrFilesystem("scan", l.cfg.Dir, err))
		return
	}

	for _, e := range entries {
		name := e.Name()
		path := filepath.Join(l.cfg.Dir, name)

		if strings.HasSuffix(name, UninstallSuffix) {
			if a := l.registry.FindByPath(strings.TrimSuffix(path, UninstallSuffix)); a != nil && a.Module != nil {
				continue
			}
			if err := removeIfExists(path); err != nil {
				l.logger.Debug("uninstall marker not removed yet", "path", path, "error", err)
			}
			continue
		}
		if !l.matcher.Match(name) || l.registry.FindByPath(path) != nil {
			continue
		}
		if !isCandidate(path) {
			continue
		}
		hash, err := update.HashFile(path)
		if err != nil {
			errutil.LogWarn(l.logger, "failed to hash addon", ErrFilesystem("hash", path, err))
			continue
		}
		if l.registry.FindByContentHash(hash) != nil {
			continue
		}
		l.queue.Enqueue(path, ActionLoad, PriorityAutomatic)
	}
}

// watch runs detector passes after directory events settle and on every
// scan interval.
func (l *Loader) watch(ctx context.Context) {
	defer l.wg.Done()

	var events <-chan fsnotify.Event
	var errs <-chan error
	w, err := fsnotify.NewWatcher()
	if err == nil {
		err = w.Add(l.cfg.Dir)
	}
	if err != nil {
		errutil.LogWarn(l.logger, "directory watch unavailable, relying on rescans",
			ErrFilesystem("watch", l.cfg.Dir, err))
	} else {
		events, errs = w.Events, w.Errors
	}
	if w != nil {
		defer func() { _ = w.Close() }()
	}

	var tick <-chan time.Time
	if l.cfg.ScanInterval > 0 {
		ticker := time.NewTicker(l.cfg.ScanInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	debounce := time.NewTimer(time.Hour)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			debounce.Reset(l.cfg.Debounce)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			l.logger.Warn("directory watch error", "error", err)
		case <-l.notify:
			debounce.Reset(l.cfg.Debounce)
		case <-debounce.C:
			l.Reconcile()
		case <-tick:
			l.Reconcile()
		}
	}
}
