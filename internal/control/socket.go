// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package control serves the host's management API over a Unix socket.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/samber/oops"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon"
	"github.com/RaidcoreGG/Nexus-sub000/internal/xdg"
)

// SocketName is the file name of the control socket inside the runtime directory.
const SocketName = "nexus.sock"

// HealthResponse is returned by the /health endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// StatusResponse is returned by the /status endpoint.
type StatusResponse struct {
	Running       bool           `json:"running"`
	Ready         bool           `json:"ready"`
	PID           int            `json:"pid"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	AddonsDir     string         `json:"addons_dir,omitempty"`
	Addons        int            `json:"addons"`
	States        map[string]int `json:"states,omitempty"`
}

// ShutdownResponse is returned by the /shutdown endpoint.
type ShutdownResponse struct {
	Message string `json:"message"`
}

// ShutdownFunc is called when shutdown is requested.
type ShutdownFunc func()

// Addons is the loader surface the control socket drives.
type Addons interface {
	Dir() string
	Ready() bool
	Addons() []addon.Info
	Addon(path string) (addon.Info, error)
	Enqueue(path string, action addon.Action) error
	Enable(path string) error
	Disable(path string) error
	CheckForUpdates(path string) error
	SetFavorite(path string, on bool) error
	SetPauseUpdates(path string, on bool) error
	SetAllowPrereleases(path string, on bool) error
}

// Server runs HTTP over a Unix socket for process and addon management.
type Server struct {
	socketPath   string
	addons       Addons
	logger       *slog.Logger
	startTime    time.Time
	listener     net.Listener
	httpServer   *http.Server
	shutdownFunc ShutdownFunc
	running      atomic.Bool
}

// NewServer creates a control server listening on socketPath.
// An empty socketPath selects the default from SocketPath.
func NewServer(socketPath string, addons Addons, shutdownFunc ShutdownFunc) *Server {
	s := &Server{
		socketPath:   socketPath,
		addons:       addons,
		logger:       slog.Default().With("component", "control"),
		startTime:    time.Now(),
		shutdownFunc: shutdownFunc,
	}
	s.running.Store(true)
	return s
}

// SocketPath returns the default path of the control socket.
func SocketPath() (string, error) {
	runtimeDir, err := xdg.RuntimeDir()
	if err != nil {
		return "", oops.Wrapf(err, "get runtime directory")
	}
	return filepath.Join(runtimeDir, SocketName), nil
}

// Path returns the socket path the server listens on.
func (s *Server) Path() string {
	return s.socketPath
}

// Handler returns the HTTP routes served on the socket.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /shutdown", s.handleShutdown)
	mux.HandleFunc("GET /addons", s.handleList)
	mux.HandleFunc("GET /addons/info", s.handleInfo)
	mux.HandleFunc("POST /addons/{action}", s.handleAction)
	return mux
}

// Start begins listening on the Unix socket.
func (s *Server) Start() error {
	if s.socketPath == "" {
		path, err := SocketPath()
		if err != nil {
			return err
		}
		s.socketPath = path
	}

	if err := xdg.EnsureDir(filepath.Dir(s.socketPath)); err != nil {
		return oops.Wrapf(err, "create runtime directory")
	}

	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return oops.With("path", s.socketPath).Wrapf(err, "remove existing socket")
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return oops.With("path", s.socketPath).Wrapf(err, "listen on socket")
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		_ = listener.Close()
		return oops.With("path", s.socketPath).Wrapf(err, "set socket permissions")
	}

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control socket server error", "error", err)
		}
	}()

	s.logger.Info("control socket listening", "path", s.socketPath)
	return nil
}

// Stop gracefully shuts down the control socket server.
func (s *Server) Stop(ctx context.Context) error {
	s.running.Store(false)

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return oops.With("operation", "shutdown_control_socket").Wrap(err)
		}
	}

	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Warn("failed to close control socket listener", "error", err)
		}
	}

	if s.socketPath != "" {
		if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove control socket file",
				"path", s.socketPath,
				"error", err,
			)
		}
	}

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Error("failed to write health response", "error", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Running:       s.running.Load(),
		PID:           os.Getpid(),
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
	}
	if s.addons != nil {
		infos := s.addons.Addons()
		resp.Ready = s.addons.Ready()
		resp.AddonsDir = s.addons.Dir()
		resp.Addons = len(infos)
		resp.States = make(map[string]int)
		for _, info := range infos {
			resp.States[info.State.String()]++
		}
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Error("failed to write status response", "error", err)
	}
}

func (s *Server) handleShutdown(w http.ResponseWriter, _ *http.Request) {
	resp := ShutdownResponse{
		Message: "shutdown initiated",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Error("failed to write shutdown response", "error", err)
	}

	if s.shutdownFunc != nil {
		go s.shutdownFunc()
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return oops.Wrapf(err, "failed to encode JSON response")
	}
	return nil
}
