// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level with its oops code and context expanded.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	Log(logger, slog.LevelError, msg, err, attrs...)
}

// LogWarn logs err at warning level with its oops code and context expanded.
func LogWarn(logger *slog.Logger, msg string, err error, attrs ...any) {
	Log(logger, slog.LevelWarn, msg, err, attrs...)
}

// Log logs err at the given level. Extra attrs are appended after the
// error details. Non-oops errors are logged by their string form.
func Log(logger *slog.Logger, level slog.Level, msg string, err error, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), level, msg, append(Attrs(err), attrs...)...)
}

// Attrs returns the structured attributes describing err.
func Attrs(err error) []any {
	if err == nil {
		return nil
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return []any{"error", err}
	}
	attrs := []any{"error", oopsErr.Error()}
	if code := oopsErr.Code(); code != nil && code != "" {
		attrs = append(attrs, "code", code)
	}
	if ctx := oopsErr.Context(); len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	return attrs
}

// Code returns the oops code attached to err, or the empty string.
func Code(err error) string {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}
	code, _ := oopsErr.Code().(string)
	return code
}
