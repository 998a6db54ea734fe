// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// EnvironmentFile is the default name of the recorded environment.
const EnvironmentFile = "environment.json"

type environmentRecord struct {
	Version string `json:"Version"`
}

// EnvironmentChanged reports whether the environment recorded at path
// differs from current, then records current. An absent record or empty
// current version counts as unchanged.
func EnvironmentChanged(path, current string) (bool, error) {
	if path == "" || current == "" {
		return false, nil
	}

	var rec environmentRecord
	data, err := os.ReadFile(path) //nolint:gosec // path is the configured state location
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, writeEnvironment(path, current)
	case err != nil:
		return false, ErrFilesystem("read environment", path, err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		// An unreadable record is replaced rather than trusted.
		return false, writeEnvironment(path, current)
	}
	if rec.Version == current {
		return false, nil
	}
	return true, writeEnvironment(path, current)
}

func writeEnvironment(path, version string) error {
	data, err := json.Marshal(environmentRecord{Version: version})
	if err != nil {
		return ErrFilesystem("encode environment", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return ErrFilesystem("create state directory", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ErrFilesystem("write environment", path, err)
	}
	return nil
}
