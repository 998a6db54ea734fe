// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/samber/oops"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
	"github.com/RaidcoreGG/Nexus-sub000/internal/update"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

// Defaults for loader timing.
const (
	DefaultDebounce     = 250 * time.Millisecond
	DefaultScanInterval = 5 * time.Second
	DefaultWorkers      = 4
	releaseTimeout      = 5 * time.Second
)

// TableSource hands out capability tables by version.
type TableSource interface {
	Acquire(v capability.Version) (capability.Table, error)
}

// Updater checks for and stages addon updates.
type Updater interface {
	Check(ctx context.Context, req update.Request) update.Result
}

// ReferenceScrubber is implemented by every subsystem that stores
// addon-supplied callbacks. After an addon unloads, the loader asks each
// scrubber to drop anything pointing into the module's address range.
type ReferenceScrubber interface {
	Name() string
	VerifyNoReferencesIn(base, end uintptr) int
}

// Config configures a Loader.
type Config struct {
	// Dir is the addon directory.
	Dir string
	// ConfigPath is where addon preferences are persisted.
	ConfigPath string
	// EnvironmentPath records the host environment version between runs.
	EnvironmentPath string
	// EnvironmentVersion identifies the current host environment. Volatile
	// addons are disabled until updated when it changes.
	EnvironmentVersion string
	// Patterns select addon files by name.
	Patterns []string
	// Debounce coalesces bursts of filesystem events.
	Debounce time.Duration
	// ScanInterval is the period of full rescans; zero disables them.
	ScanInterval time.Duration
	// LaunchWindow is how long after Start launch-only addons may load.
	// Zero closes the window once the startup pass completes.
	LaunchWindow time.Duration
	// Workers bounds concurrent unload and update tasks.
	Workers int
}

// Deps are the collaborators a Loader calls into.
type Deps struct {
	Opener    module.Opener
	Tables    TableSource
	Updater   Updater
	Scrubbers []ReferenceScrubber
	Logger    *slog.Logger
}

type owner struct {
	rng       module.Range
	signature int32
}

// Loader owns the addon registry, the action queue and the dispatcher
// that drains it. All registry mutation happens on the dispatcher while
// mu is held for a whole queue pass.
type Loader struct {
	cfg     Config
	opener  module.Opener
	tables  TableSource
	updater Updater
	scrub   []ReferenceScrubber
	logger  *slog.Logger
	matcher *Matcher

	mu       sync.Mutex
	registry *Registry
	// launchWindow is open until EndLaunchWindow.
	launchWindow bool
	// envChanged is computed once at Start.
	envChanged bool
	// stopping refuses new background tasks.
	stopping bool
	// shuttingDown forces synchronous unloads and suppresses config saves.
	shuttingDown bool

	queue   *Queue
	results chan update.Result
	notify  chan struct{}
	owners  atomic.Pointer[[]owner]

	pool        *ants.Pool
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	tasks       sync.WaitGroup
	launchTimer *time.Timer

	started atomic.Bool
	stopped atomic.Bool
	running atomic.Bool
}

// New creates a loader. Nothing is loaded until Start.
func New(cfg Config, deps Deps) (*Loader, error) {
	if cfg.Dir == "" {
		return nil, oops.Code(CodeConfig).Errorf("addon directory is required")
	}
	if deps.Opener == nil {
		return nil, oops.Code(CodeConfig).Errorf("module opener is required")
	}
	if deps.Tables == nil {
		return nil, oops.Code(CodeConfig).Errorf("capability tables are required")
	}
	cfg.Dir = filepath.Clean(cfg.Dir)
	if abs, err := filepath.Abs(cfg.Dir); err == nil {
		cfg.Dir = abs
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(cfg.Dir, ConfigFile)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "addons")

	matcher, err := NewMatcher(cfg.Patterns)
	if err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(cfg.Workers,
		ants.WithPanicHandler(func(p any) {
			logger.Error("addon task panicked", "panic", p)
		}),
	)
	if err != nil {
		return nil, oops.Code(CodeConfig).Wrapf(err, "create task pool")
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &Loader{
		cfg:          cfg,
		opener:       deps.Opener,
		tables:       deps.Tables,
		updater:      deps.Updater,
		scrub:        deps.Scrubbers,
		logger:       logger,
		matcher:      matcher,
		registry:     NewRegistry(),
		launchWindow: true,
		queue:        NewQueue(),
		results:      make(chan update.Result, 64),
		notify:       make(chan struct{}, 1),
		pool:         pool,
		ctx:          ctx,
		cancel:       cancel,
	}
	empty := []owner{}
	l.owners.Store(&empty)
	return l, nil
}

// Dir returns the addon directory.
func (l *Loader) Dir() string {
	return l.cfg.Dir
}

// Start restores persisted preferences, loads every addon present, then
// starts the dispatcher and directory watcher.
func (l *Loader) Start(ctx context.Context) error {
	if l.stopped.Load() {
		return ErrNotRunning()
	}
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning()
	}
	if err := os.MkdirAll(l.cfg.Dir, 0o750); err != nil {
		return ErrFilesystem("create addon directory", l.cfg.Dir, err)
	}

	cfg, err := ReadConfig(l.cfg.ConfigPath)
	if err != nil {
		errutil.LogWarn(l.logger, "ignoring unreadable addon config", err)
	}
	changed, err := EnvironmentChanged(l.cfg.EnvironmentPath, l.cfg.EnvironmentVersion)
	if err != nil {
		errutil.LogWarn(l.logger, "environment version not recorded", err)
	}
	if changed {
		l.logger.Info("host environment changed", "version", l.cfg.EnvironmentVersion)
	}

	l.mu.Lock()
	l.envChanged = changed
	for _, e := range cfg {
		if e.Signature == 0 || l.registry.FindPlaceholder(e.Signature) != nil {
			continue
		}
		l.registry.Add(newPlaceholder(e))
	}
	l.mu.Unlock()

	l.Reconcile()
	l.ProcessQueue(ctx)

	if l.cfg.LaunchWindow <= 0 {
		l.EndLaunchWindow()
	} else {
		l.launchTimer = time.AfterFunc(l.cfg.LaunchWindow, l.EndLaunchWindow)
	}

	l.wg.Add(2)
	go l.dispatch(l.ctx)
	go l.watch(l.ctx)
	l.running.Store(true)

	l.logger.Info("addon loader started", "dir", l.cfg.Dir, "addons", len(l.Addons()))
	return nil
}

// Shutdown stops background work and unloads every addon, locked ones
// included. Config is not saved past this point.
func (l *Loader) Shutdown(ctx context.Context) error {
	if !l.stopped.CompareAndSwap(false, true) {
		return nil
	}
	l.running.Store(false)
	l.cancel()
	if l.launchTimer != nil {
		l.launchTimer.Stop()
	}

	var errs []error
	if err := waitGroup(ctx, &l.wg); err != nil {
		errs = append(errs, oops.Wrapf(err, "wait for dispatcher"))
	}

	l.mu.Lock()
	l.stopping = true
	l.mu.Unlock()
	if err := waitGroup(ctx, &l.tasks); err != nil {
		errs = append(errs, oops.Wrapf(err, "wait for addon tasks"))
	}

	l.mu.Lock()
	l.shuttingDown = true
	l.drainQueue(ctx)
	for _, a := range l.registry.All() {
		if a.IsLoaded() && !a.IsWaitingForUnload {
			if err := l.unload(ctx, a, false); err != nil {
				errutil.LogWarn(l.logger, "unload at shutdown failed", err, "addon", a.DisplayName())
			}
		}
	}
	l.publishOwners()
	l.mu.Unlock()

	if err := l.pool.ReleaseTimeout(releaseTimeout); err != nil {
		errs = append(errs, oops.Wrapf(err, "release task pool"))
	}
	l.logger.Info("addon loader stopped")

	if len(errs) > 0 {
		return oops.Join(errs...)
	}
	return nil
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether the dispatcher is running.
func (l *Loader) Ready() bool {
	return l.running.Load()
}

// Enqueue requests action for the addon at path on behalf of a user.
func (l *Loader) Enqueue(path string, action Action) error {
	if l.stopped.Load() {
		return ErrNotRunning()
	}
	switch action {
	case ActionLoad, ActionUnload, ActionReload, ActionUninstall:
	default:
		return ErrUnknownAction(action.String())
	}
	resolved, err := l.resolve(path)
	if err != nil {
		return err
	}
	l.queue.Enqueue(resolved, action, PriorityManual)
	return nil
}

// Notify asks the detector for a pass after the debounce window.
func (l *Loader) Notify() {
	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// EndLaunchWindow stops launch-only addons from loading until next start.
func (l *Loader) EndLaunchWindow() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.launchWindow {
		l.launchWindow = false
		l.logger.Debug("launch window closed")
	}
}

// Addons returns a snapshot of every addon backed by a file.
func (l *Loader) Addons() []Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Info, 0, l.registry.Len())
	for _, a := range l.registry.All() {
		if !a.IsPlaceholder() {
			out = append(out, a.Info())
		}
	}
	return out
}

// Addon returns the snapshot of the addon at path.
func (l *Loader) Addon(path string) (Info, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	path, err := l.resolve(path)
	if err != nil {
		return Info{}, err
	}
	a := l.registry.FindByPath(path)
	if a == nil {
		return Info{}, ErrNotFound(path)
	}
	return a.Info(), nil
}

// Enable lifts disable-until-update and queues a load.
func (l *Loader) Enable(path string) error {
	err := l.withAddon(path, func(a *Addon) {
		a.IsDisabledUntilUpdate = false
		a.IsFlaggedForDisable = false
	})
	if err != nil {
		return err
	}
	return l.Enqueue(path, ActionLoad)
}

// Disable queues an unload that is remembered across restarts.
func (l *Loader) Disable(path string) error {
	if err := l.withAddon(path, func(*Addon) {}); err != nil {
		return err
	}
	return l.Enqueue(path, ActionUnload)
}

// Uninstall queues removal of the tracked addon at path.
func (l *Loader) Uninstall(path string) error {
	if err := l.withAddon(path, func(*Addon) {}); err != nil {
		return err
	}
	return l.Enqueue(path, ActionUninstall)
}

// SetFavorite marks the addon at path as a favorite.
func (l *Loader) SetFavorite(path string, on bool) error {
	return l.withAddon(path, func(a *Addon) {
		a.IsFavorite = on
		l.registry.Sort()
		l.save()
	})
}

// SetPauseUpdates stops or resumes automatic update checks.
func (l *Loader) SetPauseUpdates(path string, on bool) error {
	return l.withAddon(path, func(a *Addon) {
		a.IsPausingUpdates = on
		l.save()
	})
}

// SetAllowPrereleases toggles prerelease builds for the addon at path.
func (l *Loader) SetAllowPrereleases(path string, on bool) error {
	return l.withAddon(path, func(a *Addon) {
		a.AllowPrereleases = on
		l.save()
	})
}

// CheckForUpdates starts an update check even when updates are paused.
func (l *Loader) CheckForUpdates(path string) error {
	var err error
	werr := l.withAddon(path, func(a *Addon) {
		if !l.scheduleUpdateCheck(a, true) {
			err = oops.Code(CodeUpdateFailed).
				With("path", a.Path).
				Errorf("update check not started")
		}
	})
	if werr != nil {
		return werr
	}
	return err
}

// OwnerOf returns the signature of the loaded addon whose module contains
// addr, or zero.
func (l *Loader) OwnerOf(addr uintptr) int32 {
	for _, o := range *l.owners.Load() {
		if o.rng.Contains(addr) {
			return o.signature
		}
	}
	return 0
}

// WaitForTasks blocks until every background task has finished.
func (l *Loader) WaitForTasks() {
	l.tasks.Wait()
}

func (l *Loader) withAddon(path string, fn func(*Addon)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	path, err := l.resolve(path)
	if err != nil {
		return err
	}
	a := l.registry.FindByPath(path)
	if a == nil {
		return ErrNotFound(path)
	}
	fn(a)
	return nil
}

// resolve maps a bare file name onto the addon directory. Only addon
// files directly inside the directory resolve.
func (l *Loader) resolve(path string) (string, error) {
	if path == "" {
		return "", ErrNotFound(path)
	}
	if !filepath.IsAbs(path) && filepath.Dir(path) == "." {
		path = filepath.Join(l.cfg.Dir, path)
	}
	path = filepath.Clean(path)
	if filepath.Dir(path) != l.cfg.Dir || !l.matcher.Match(filepath.Base(path)) {
		return "", ErrNotFound(path)
	}
	return path, nil
}

// save persists preferences. Must be called with mu held.
func (l *Loader) save() {
	if l.shuttingDown {
		return
	}
	if err := WriteConfig(l.cfg.ConfigPath, snapshotConfig(l.registry.All())); err != nil {
		errutil.LogWarn(l.logger, "failed to save addon config", err)
	}
}

// publishOwners refreshes the address ranges used by OwnerOf. Must be
// called with mu held.
func (l *Loader) publishOwners() {
	var owners []owner
	for _, a := range l.registry.All() {
		if a.Module != nil && !a.Range.Empty() {
			owners = append(owners, owner{rng: a.Range, signature: a.Signature})
		}
	}
	l.owners.Store(&owners)
}

// submit runs fn on the task pool. Must be called with mu held.
func (l *Loader) submit(kind string, fn func(ctx context.Context, logger *slog.Logger)) bool {
	if l.stopping {
		return false
	}
	logger := l.logger.With("task", kind, "task_id", ulid.Make().String())
	l.tasks.Add(1)
	task := func() {
		defer l.tasks.Done()
		fn(l.ctx, logger)
	}
	if err := l.pool.Submit(task); err != nil {
		logger.Debug("task pool unavailable, running detached", "error", err)
		go task()
	}
	return true
}
