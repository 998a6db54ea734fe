// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package control

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

type call struct {
	op   string
	path string
	on   bool
}

type fakeAddons struct {
	mu    sync.Mutex
	calls []call
	infos map[string]addon.Info
	err   error
}

func newFakeAddons(infos ...addon.Info) *fakeAddons {
	f := &fakeAddons{infos: map[string]addon.Info{}}
	for _, info := range infos {
		f.infos[info.Path] = info
	}
	return f
}

func (f *fakeAddons) record(op, path string, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: op, path: path, on: on})
	return f.err
}

func (f *fakeAddons) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeAddons) Dir() string { return "/addons" }
func (f *fakeAddons) Ready() bool { return true }

func (f *fakeAddons) Addons() []addon.Info {
	out := make([]addon.Info, 0, len(f.infos))
	for _, info := range f.infos {
		out = append(out, info)
	}
	return out
}

func (f *fakeAddons) Addon(path string) (addon.Info, error) {
	info, ok := f.infos[path]
	if !ok {
		return addon.Info{}, addon.ErrNotFound(path)
	}
	return info, nil
}

func (f *fakeAddons) Enqueue(path string, action addon.Action) error {
	return f.record(action.String(), path, true)
}
func (f *fakeAddons) Enable(path string) error  { return f.record("enable", path, true) }
func (f *fakeAddons) Disable(path string) error { return f.record("disable", path, true) }
func (f *fakeAddons) CheckForUpdates(path string) error {
	return f.record("check", path, true)
}
func (f *fakeAddons) SetFavorite(path string, on bool) error {
	return f.record("favorite", path, on)
}
func (f *fakeAddons) SetPauseUpdates(path string, on bool) error {
	return f.record("pause", path, on)
}
func (f *fakeAddons) SetAllowPrereleases(path string, on bool) error {
	return f.record("prereleases", path, on)
}

// socketDir creates a short directory under /tmp; Unix socket paths are
// length-limited and t.TempDir can exceed the limit.
func socketDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "nexus-ctl-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}

func serve(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleHealth(t *testing.T) {
	s := NewServer("", nil, nil)

	w := serve(t, s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var health HealthResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	_, err := time.Parse(time.RFC3339, health.Timestamp)
	assert.NoError(t, err)
}

func TestHandleStatus_CountsStates(t *testing.T) {
	addons := newFakeAddons(
		addon.Info{Path: "/addons/a.dll", State: addon.StateLoaded},
		addon.Info{Path: "/addons/b.dll", State: addon.StateLoaded},
		addon.Info{Path: "/addons/c.dll", State: addon.StateNotLoadedDuplicate},
	)
	s := NewServer("", addons, nil)

	w := serve(t, s, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, w.Code)

	var status StatusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.True(t, status.Running)
	assert.True(t, status.Ready)
	assert.Positive(t, status.PID)
	assert.Equal(t, "/addons", status.AddonsDir)
	assert.Equal(t, 3, status.Addons)
	assert.Equal(t, map[string]int{"Loaded": 2, "NotLoadedDuplicate": 1}, status.States)
}

func TestHandleShutdown_TriggersCallback(t *testing.T) {
	done := make(chan struct{})
	s := NewServer("", nil, func() { close(done) })

	w := serve(t, s, http.MethodPost, "/shutdown")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ShutdownResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "shutdown initiated", resp.Message)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown callback was not called")
	}
}

func TestHandleShutdown_NilCallback(t *testing.T) {
	s := NewServer("", nil, nil)
	w := serve(t, s, http.MethodPost, "/shutdown")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleList(t *testing.T) {
	addons := newFakeAddons(addon.Info{Path: "/addons/a.dll", Name: "Alpha", State: addon.StateLoaded})
	s := NewServer("", addons, nil)

	w := serve(t, s, http.MethodGet, "/addons")
	require.Equal(t, http.StatusOK, w.Code)

	var infos []addon.Info
	require.NoError(t, json.NewDecoder(w.Body).Decode(&infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "Alpha", infos[0].Name)
	assert.Equal(t, addon.StateLoaded, infos[0].State)
}

func TestHandleInfo(t *testing.T) {
	addons := newFakeAddons(addon.Info{Path: "/addons/a.dll", Name: "Alpha"})
	s := NewServer("", addons, nil)

	w := serve(t, s, http.MethodGet, "/addons/info?path=/addons/a.dll")
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(t, s, http.MethodGet, "/addons/info?path=/addons/missing.dll")
	assert.Equal(t, http.StatusNotFound, w.Code)
	var e ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	assert.Equal(t, addon.CodeNotFound, e.Code)
}

func TestHandleAction_Dispatch(t *testing.T) {
	tests := []struct {
		target string
		want   call
	}{
		{"/addons/load?path=a.dll", call{"load", "a.dll", true}},
		{"/addons/unload?path=a.dll", call{"unload", "a.dll", true}},
		{"/addons/reload?path=a.dll", call{"reload", "a.dll", true}},
		{"/addons/uninstall?path=a.dll", call{"uninstall", "a.dll", true}},
		{"/addons/enable?path=a.dll", call{"enable", "a.dll", true}},
		{"/addons/disable?path=a.dll", call{"disable", "a.dll", true}},
		{"/addons/check-updates?path=a.dll", call{"check", "a.dll", true}},
		{"/addons/favorite?path=a.dll&on=false", call{"favorite", "a.dll", false}},
		{"/addons/pause-updates?path=a.dll", call{"pause", "a.dll", true}},
		{"/addons/prereleases?path=a.dll&on=1", call{"prereleases", "a.dll", true}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			addons := newFakeAddons()
			s := NewServer("", addons, nil)

			w := serve(t, s, http.MethodPost, tt.target)
			require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
			assert.Equal(t, []call{tt.want}, addons.Calls())
		})
	}
}

func TestHandleAction_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		target string
		status int
		code   string
	}{
		{"missing path", "/addons/load", http.StatusBadRequest, ""},
		{"bad toggle", "/addons/favorite?path=a.dll&on=maybe", http.StatusBadRequest, ""},
		{"unknown action", "/addons/explode?path=a.dll", http.StatusBadRequest, addon.CodeUnknownAction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addons := newFakeAddons()
			s := NewServer("", addons, nil)

			w := serve(t, s, http.MethodPost, tt.target)
			assert.Equal(t, tt.status, w.Code)
			var e ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
			assert.Equal(t, tt.code, e.Code)
			assert.Empty(t, addons.Calls())
		})
	}
}

func TestHandleAction_MapsLoaderErrors(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{addon.ErrLocked("Alpha"), http.StatusConflict},
		{addon.ErrNotRunning(), http.StatusServiceUnavailable},
		{addon.ErrNotFound("/addons/a.dll"), http.StatusNotFound},
		{addon.ErrFilesystem("rename", "/addons/a.dll", os.ErrPermission), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(errutil.Code(tt.err), func(t *testing.T) {
			addons := newFakeAddons()
			addons.err = tt.err
			s := NewServer("", addons, nil)

			w := serve(t, s, http.MethodPost, "/addons/disable?path=a.dll")
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHandlers_WithoutLoader(t *testing.T) {
	s := NewServer("", nil, nil)

	for _, target := range []string{"/addons", "/addons/info?path=a.dll"} {
		w := serve(t, s, http.MethodGet, target)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
	}
	w := serve(t, s, http.MethodPost, "/addons/load?path=a.dll")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	path, err := SocketPath()
	require.NoError(t, err)
	assert.Equal(t, "/run/user/1000/nexus/nexus.sock", path)
}

func TestSocketPath_FallbackWithoutRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("XDG_STATE_HOME", "/custom/state")

	path, err := SocketPath()
	require.NoError(t, err)
	assert.Equal(t, "/custom/state/nexus/run/nexus.sock", path)
}

func TestWriteJSON_ReturnsErrorForUnencodableValue(t *testing.T) {
	w := httptest.NewRecorder()
	err := writeJSON(w, http.StatusOK, make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode JSON response")
}

func TestStop_LogsSocketFileRemovalError(t *testing.T) {
	var logBuf bytes.Buffer
	original := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelWarn})))
	defer slog.SetDefault(original)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep"), nil, 0o600))

	s := NewServer(dir, nil, nil)
	require.NoError(t, s.Stop(context.Background()))

	assert.Contains(t, logBuf.String(), "failed to remove control socket file")
	assert.Contains(t, logBuf.String(), "component=control")
}

func TestStop_WithoutStart(t *testing.T) {
	s := NewServer("", nil, nil)
	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.running.Load())
}

func TestServer_ClientRoundTrip(t *testing.T) {
	path := filepath.Join(socketDir(t), SocketName)
	addons := newFakeAddons(addon.Info{Path: "/addons/a.dll", Name: "Alpha", State: addon.StateLoaded})

	var shutdown atomic.Bool
	s := NewServer(path, addons, func() { shutdown.Store(true) })
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.NotZero(t, info.Mode()&os.ModeSocket)

	ctx := context.Background()
	client := NewClient(path)

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Addons)

	infos, err := client.Addons(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "Alpha", infos[0].Name)

	one, err := client.Addon(ctx, "/addons/a.dll")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", one.Name)

	require.NoError(t, client.Action(ctx, "reload", "a.dll"))
	require.NoError(t, client.Toggle(ctx, ActionFavorite, "a.dll", false))
	assert.Equal(t, []call{{"reload", "a.dll", true}, {"favorite", "a.dll", false}}, addons.Calls())

	_, err = client.Addon(ctx, "/addons/missing.dll")
	errutil.AssertErrorCode(t, err, CodeRequestFailed)
	errutil.AssertErrorContext(t, err, "host_code", addon.CodeNotFound)

	require.NoError(t, client.Shutdown(ctx))
	assert.Eventually(t, shutdown.Load, time.Second, 10*time.Millisecond)
}

func TestServer_StartReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(socketDir(t), SocketName)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	s := NewServer(path, nil, nil)
	require.NoError(t, s.Start())
	defer func() { _ = s.Stop(context.Background()) }()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSocket)
}

func TestServer_StopRemovesSocket(t *testing.T) {
	path := filepath.Join(socketDir(t), SocketName)
	s := NewServer(path, nil, nil)
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop(context.Background()))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
