// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirsFromEnv(t *testing.T) {
	tests := []struct {
		name string
		env  string
		dir  string
		fn   func() (string, error)
		want string
	}{
		{"config", "XDG_CONFIG_HOME", "/custom/config", ConfigDir, "/custom/config/nexus"},
		{"data", "XDG_DATA_HOME", "/custom/data", DataDir, "/custom/data/nexus"},
		{"state", "XDG_STATE_HOME", "/custom/state", StateDir, "/custom/state/nexus"},
		{"runtime", "XDG_RUNTIME_DIR", "/custom/runtime", RuntimeDir, "/custom/runtime/nexus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.dir)
			got, err := tt.fn()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirsDefault(t *testing.T) {
	t.Setenv("HOME", "/home/testuser")
	for _, env := range []string{"XDG_CONFIG_HOME", "XDG_DATA_HOME", "XDG_STATE_HOME", "XDG_RUNTIME_DIR"} {
		t.Setenv(env, "")
	}

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"config", ConfigDir, "/home/testuser/.config/nexus"},
		{"data", DataDir, "/home/testuser/.local/share/nexus"},
		{"state", StateDir, "/home/testuser/.local/state/nexus"},
		{"runtime", RuntimeDir, "/home/testuser/.local/state/nexus/run"},
		{"addons", AddonsDir, "/home/testuser/.local/share/nexus/addons"},
		{"config file", ConfigFile, "/home/testuser/.config/nexus/nexus.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnsureDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c")

	require.NoError(t, EnsureDir(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	require.NoError(t, EnsureDir(path), "existing directory is fine")
}
