// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
	"github.com/RaidcoreGG/Nexus-sub000/internal/update"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

var tracer = otel.Tracer("nexus/addon")

// dispatch drains the queue whenever it is signalled.
func (l *Loader) dispatch(ctx context.Context) {
	defer l.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.queue.Ready():
		case res := <-l.results:
			l.mu.Lock()
			l.applyUpdate(res)
			l.mu.Unlock()
		}
		l.ProcessQueue(ctx)
	}
}

// ProcessQueue runs every queued action in one pass under the registry
// lock. Actions queued during the pass run in the same pass, except Free
// and FreeThenLoad, which wait for the next one.
func (l *Loader) ProcessQueue(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	l.drainResults()
	n := l.drainQueue(ctx)
	l.registry.Sort()
	recordStates(l.registry.All())
	if n > 0 {
		RecordQueuePass(time.Since(start))
	}
}

// drainQueue executes queued actions until the queue is empty. Must be
// called with mu held.
func (l *Loader) drainQueue(ctx context.Context) int {
	l.queue.BeginPass()
	defer l.queue.EndPass()

	n := 0
	for {
		item, ok := l.queue.Pop()
		if !ok {
			return n
		}
		n++
		l.execute(ctx, item)
	}
}

func (l *Loader) execute(ctx context.Context, item QueuedAction) {
	if l.shuttingDown && item.Action != ActionFree && item.Action != ActionFreeThenLoad {
		l.logger.Debug("dropping action during shutdown", "action", item.Action.String(), "path", item.Path)
		return
	}

	ctx, span := tracer.Start(ctx, "addon."+item.Action.String(),
		trace.WithAttributes(
			attribute.String("addon.path", item.Path),
			attribute.String("addon.priority", item.Priority.String()),
		),
	)
	defer span.End()

	if item.Priority == PriorityManual {
		l.applyPreference(item)
	}

	var err error
	switch item.Action {
	case ActionLoad:
		err = l.load(ctx, item.Path)
	case ActionUnload:
		if a := l.registry.FindByPath(item.Path); a != nil {
			err = l.unload(ctx, a, false)
		}
	case ActionReload:
		err = l.reload(ctx, item.Path)
	case ActionFree, ActionFreeThenLoad:
		err = l.freeQueued(item.Path)
	case ActionUninstall:
		err = l.uninstall(ctx, item.Path)
	default:
		err = ErrUnknownAction(item.Action.String())
	}
	RecordAction(item.Action, err)

	if a := l.registry.FindByPath(item.Path); a != nil {
		span.SetAttributes(attribute.String("addon.state", a.State.String()))
	}
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	level := slog.LevelWarn
	if errutil.Code(err) == CodeLocked {
		level = slog.LevelInfo
	}
	errutil.Log(l.logger, level, "addon action failed", err, "action", item.Action.String())
}

// applyPreference records what a user asked for so it survives restarts.
func (l *Loader) applyPreference(item QueuedAction) {
	a := l.registry.FindByPath(item.Path)
	if a == nil {
		return
	}
	switch item.Action {
	case ActionLoad, ActionReload:
		a.wantsLoad = true
		a.IsFlaggedForDisable = false
	case ActionUnload:
		a.wantsLoad = false
		a.IsFlaggedForEnable = false
	}
}

// drainResults applies every completed update check. Must be called with
// mu held.
func (l *Loader) drainResults() {
	for {
		select {
		case res := <-l.results:
			l.applyUpdate(res)
		default:
			return
		}
	}
}

// applyUpdate reacts to a finished update check. A staged build is
// loaded straight away only if the addon is running or waiting for it;
// otherwise the next detector pass swaps it in.
func (l *Loader) applyUpdate(res update.Result) {
	a := l.registry.FindByPath(res.Path)
	if a == nil {
		return
	}
	a.IsCheckingForUpdates = false

	switch {
	case res.Err != nil:
		RecordUpdateCheck(res.Provider.String(), "error")
		errutil.LogWarn(l.logger, "update check failed", ErrUpdateFailed(res.Path, res.Err),
			"addon", a.DisplayName())
		return
	case !res.Available:
		RecordUpdateCheck(res.Provider.String(), "none")
		return
	}

	RecordUpdateCheck(res.Provider.String(), "available")
	l.logger.Info("addon update staged", "addon", a.DisplayName(), "version", res.Version.String())
	switch {
	case a.IsLoaded() && !a.IsWaitingForUnload:
		l.queue.Enqueue(a.Path, ActionReload, PriorityAutomatic)
	case a.IsDisabledUntilUpdate:
		l.queue.Enqueue(a.Path, ActionLoad, PriorityAutomatic)
	}
}

// scheduleUpdateCheck starts a background update check for a. Must be
// called with mu held.
func (l *Loader) scheduleUpdateCheck(a *Addon, force bool) bool {
	defs := a.meta()
	if l.updater == nil || defs == nil || a.IsCheckingForUpdates {
		return false
	}
	if defs.Provider == module.ProviderNone {
		return false
	}
	if a.IsPausingUpdates && !force {
		return false
	}

	req := update.Request{
		Path:             a.Path,
		Signature:        a.Signature,
		Name:             a.DisplayName(),
		Version:          defs.Version,
		ContentHash:      a.ContentHash,
		Provider:         defs.Provider,
		UpdateLink:       defs.UpdateLink,
		AllowPrereleases: a.AllowPrereleases,
	}
	updater := l.updater
	started := l.submit("update-check", func(ctx context.Context, logger *slog.Logger) {
		ctx, span := tracer.Start(ctx, "addon.update_check",
			trace.WithAttributes(
				attribute.String("addon.path", req.Path),
				attribute.String("addon.provider", req.Provider.String()),
			),
		)
		defer span.End()

		logger.Debug("checking for update", "addon", req.Name, "provider", req.Provider.String())
		res := updater.Check(ctx, req)
		if res.Err != nil {
			span.RecordError(res.Err)
		}
		select {
		case l.results <- res:
		case <-ctx.Done():
		}
	})
	if started {
		a.IsCheckingForUpdates = true
	}
	return started
}
