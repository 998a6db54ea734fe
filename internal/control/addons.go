// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package control

import (
	"net/http"
	"strconv"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

// Control actions beyond the queued lifecycle actions.
const (
	ActionEnable       = "enable"
	ActionDisable      = "disable"
	ActionCheckUpdates = "check-updates"
	ActionFavorite     = "favorite"
	ActionPauseUpdates = "pause-updates"
	ActionPrereleases  = "prereleases"
)

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ActionResponse acknowledges an accepted addon action.
type ActionResponse struct {
	Action string `json:"action"`
	Path   string `json:"path"`
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	if s.addons == nil {
		s.writeError(w, addon.ErrNotRunning())
		return
	}
	if err := writeJSON(w, http.StatusOK, s.addons.Addons()); err != nil {
		s.logger.Error("failed to write addon list", "error", err)
	}
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	if s.addons == nil {
		s.writeError(w, addon.ErrNotRunning())
		return
	}
	path := r.URL.Query().Get("path")
	info, err := s.addons.Addon(path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, info); err != nil {
		s.logger.Error("failed to write addon info", "error", err)
	}
}

// handleAction serves POST /addons/{action}?path=...[&on=true|false].
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if s.addons == nil {
		s.writeError(w, addon.ErrNotRunning())
		return
	}

	name := r.PathValue("action")
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondError(w, http.StatusBadRequest, ErrorResponse{Error: "path is required"})
		return
	}

	on := true
	if v := r.URL.Query().Get("on"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, ErrorResponse{Error: "on must be true or false"})
			return
		}
		on = parsed
	}

	var err error
	switch name {
	case ActionEnable:
		err = s.addons.Enable(path)
	case ActionDisable:
		err = s.addons.Disable(path)
	case ActionCheckUpdates:
		err = s.addons.CheckForUpdates(path)
	case ActionFavorite:
		err = s.addons.SetFavorite(path, on)
	case ActionPauseUpdates:
		err = s.addons.SetPauseUpdates(path, on)
	case ActionPrereleases:
		err = s.addons.SetAllowPrereleases(path, on)
	default:
		var action addon.Action
		action, err = addon.ParseAction(name)
		if err == nil {
			err = s.addons.Enqueue(path, action)
		}
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("addon action accepted", "action", name, "path", path)
	if err := writeJSON(w, http.StatusAccepted, ActionResponse{Action: name, Path: path}); err != nil {
		s.logger.Error("failed to write action response", "error", err)
	}
}

// statusFor maps an addon error code onto an HTTP status.
func statusFor(code string) int {
	switch code {
	case addon.CodeNotFound:
		return http.StatusNotFound
	case addon.CodeUnknownAction:
		return http.StatusBadRequest
	case addon.CodeLocked, addon.CodeUpdateFailed:
		return http.StatusConflict
	case addon.CodeNotRunning:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errutil.Code(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		errutil.LogError(s.logger, "control request failed", err)
	}
	s.respondError(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func (s *Server) respondError(w http.ResponseWriter, status int, resp ErrorResponse) {
	if err := writeJSON(w, status, resp); err != nil {
		s.logger.Error("failed to write error response", "error", err)
	}
}
