// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package module

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
)

// ScriptExt is the extension of Lua script addons.
const ScriptExt = ".lua"

// ScriptTable is the global a script addon defines to describe itself.
const ScriptTable = "addon"

// DefaultScriptTimeout bounds each call into a script addon.
const DefaultScriptTimeout = 5 * time.Second

// scriptLibraries are the only Lua libraries opened for script addons.
// os, io, debug and package stay closed.
var scriptLibraries = []struct {
	name string
	fn   lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// unsafeBaseFunctions reach the filesystem and are removed from base.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load"}

// newScriptState creates a sandboxed Lua state.
func newScriptState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range scriptLibraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, err
		}
	}
	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}
	return L, nil
}

// ScriptOpener runs Lua script addons inside the host process.
type ScriptOpener struct {
	logger  *slog.Logger
	timeout time.Duration
}

// ScriptOption configures a ScriptOpener.
type ScriptOption func(*ScriptOpener)

// WithScriptTimeout replaces the per-call time limit.
func WithScriptTimeout(d time.Duration) ScriptOption {
	return func(o *ScriptOpener) {
		o.timeout = d
	}
}

// NewScriptOpener creates an opener for Lua script addons.
func NewScriptOpener(logger *slog.Logger, opts ...ScriptOption) *ScriptOpener {
	if logger == nil {
		logger = slog.Default()
	}
	o := &ScriptOpener{logger: logger, timeout: DefaultScriptTimeout}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open reads and runs the script at path. The script must define the
// global addon table.
func (o *ScriptOpener) Open(path string) (Library, error) {
	code, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, ErrOpenFailed(path, err)
	}
	L, err := newScriptState()
	if err != nil {
		return nil, ErrOpenFailed(path, err)
	}

	lib := &scriptLibrary{path: path, L: L, timeout: o.timeout, logger: o.logger.With("script", filepath.Base(path))}
	if err := lib.call(func() error { return L.DoString(string(code)) }); err != nil {
		L.Close()
		return nil, ErrOpenFailed(path, err)
	}
	if _, ok := L.GetGlobal(ScriptTable).(*lua.LTable); !ok {
		L.Close()
		return nil, ErrNoDefinitions(path)
	}
	return lib, nil
}

type scriptLibrary struct {
	mu      sync.Mutex
	path    string
	L       *lua.LState
	timeout time.Duration
	logger  *slog.Logger
	def     *Definitions
	closed  bool
}

// call runs fn with the per-call time limit installed on the state.
func (l *scriptLibrary) call(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	l.L.SetContext(ctx)
	defer l.L.RemoveContext()
	return fn()
}

func (l *scriptLibrary) table() (*lua.LTable, error) {
	if l.closed {
		return nil, errors.New("script is closed")
	}
	tbl, ok := l.L.GetGlobal(ScriptTable).(*lua.LTable)
	if !ok {
		return nil, ErrNoDefinitions(l.path)
	}
	return tbl, nil
}

func (l *scriptLibrary) Definitions() (*Definitions, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tbl, err := l.table()
	if err != nil {
		return nil, err
	}
	version, err := scriptVersion(tbl.RawGetString("version"))
	if err != nil {
		return nil, ErrCallFailed(ScriptTable, err)
	}
	l.def = &Definitions{
		Signature:   int32(scriptNumber(tbl, "signature")),
		APIVersion:  uint32(scriptNumber(tbl, "api_version")),
		Name:        scriptString(tbl, "name"),
		Version:     version,
		Author:      scriptString(tbl, "author"),
		Description: scriptString(tbl, "description"),
		Flags:       Flags(scriptNumber(tbl, "flags")),
		Provider:    Provider(scriptNumber(tbl, "provider")),
		UpdateLink:  scriptString(tbl, "update_link"),
		HasLoad:     isScriptFunction(tbl, "load"),
		HasUnload:   isScriptFunction(tbl, "unload"),
	}
	return l.def.Clone(), nil
}

func (l *scriptLibrary) Load(table capability.Table) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tbl, err := l.table()
	if err != nil {
		return err
	}
	l.L.SetGlobal("nexus", l.hostModule(table))

	fn, ok := tbl.RawGetString("load").(*lua.LFunction)
	if !ok {
		return nil
	}
	if err := l.call(func() error {
		return l.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lua.LNumber(table.Version()))
	}); err != nil {
		return ErrCallFailed("load", err)
	}
	return nil
}

func (l *scriptLibrary) Unload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tbl, err := l.table()
	if err != nil {
		return err
	}
	fn, ok := tbl.RawGetString("unload").(*lua.LFunction)
	if !ok {
		return nil
	}
	if err := l.call(func() error {
		return l.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true})
	}); err != nil {
		return ErrCallFailed("unload", err)
	}
	return nil
}

// Range is empty: scripts own no native code.
func (l *scriptLibrary) Range() Range {
	return Range{}
}

func (l *scriptLibrary) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		l.L.Close()
	}
	return nil
}

type scriptLogger interface {
	Log(level capability.LogLevel, channel, message string)
}

type scriptEvents interface {
	RaiseEvent(name string, payload uintptr)
}

// hostModule builds the nexus global handed to a script on load.
func (l *scriptLibrary) hostModule(table capability.Table) *lua.LTable {
	L := l.L
	mod := L.NewTable()
	mod.RawSetString("api_version", lua.LNumber(table.Version()))
	for name, level := range map[string]capability.LogLevel{
		"LOG_CRITICAL": capability.LogCritical,
		"LOG_WARNING":  capability.LogWarning,
		"LOG_INFO":     capability.LogInfo,
		"LOG_DEBUG":    capability.LogDebug,
		"LOG_TRACE":    capability.LogTrace,
	} {
		mod.RawSetString(name, lua.LNumber(level))
	}

	channel := filepath.Base(l.path)
	if l.def != nil && l.def.Name != "" {
		channel = l.def.Name
	}

	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		level := capability.LogLevel(L.CheckInt(1))
		msg := L.CheckString(2)
		if lg, ok := table.(scriptLogger); ok {
			lg.Log(level, channel, msg)
		}
		return 0
	}))
	mod.RawSetString("raise", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if ev, ok := table.(scriptEvents); ok {
			ev.RaiseEvent(name, 0)
		} else {
			l.logger.Debug("events unavailable to script", "event", name)
		}
		return 0
	}))
	return mod
}

func scriptString(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

func scriptNumber(tbl *lua.LTable, key string) float64 {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

func isScriptFunction(tbl *lua.LTable, key string) bool {
	_, ok := tbl.RawGetString(key).(*lua.LFunction)
	return ok
}

// scriptVersion accepts "major.minor.build.revision" or a table with
// those keys.
func scriptVersion(v lua.LValue) (Version, error) {
	switch val := v.(type) {
	case lua.LString:
		parts := strings.Split(string(val), ".")
		if len(parts) > 4 {
			return Version{}, errors.New("version has more than four parts")
		}
		var nums [4]uint16
		for i, p := range parts {
			n, err := strconv.ParseUint(p, 10, 16)
			if err != nil {
				return Version{}, err
			}
			nums[i] = uint16(n)
		}
		return Version{Major: nums[0], Minor: nums[1], Build: nums[2], Revision: nums[3]}, nil
	case *lua.LTable:
		return Version{
			Major:    uint16(scriptNumber(val, "major")),
			Minor:    uint16(scriptNumber(val, "minor")),
			Build:    uint16(scriptNumber(val, "build")),
			Revision: uint16(scriptNumber(val, "revision")),
		}, nil
	default:
		return Version{}, nil
	}
}
