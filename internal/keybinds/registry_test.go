// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package keybinds_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaidcoreGG/Nexus-sub000/internal/keybinds"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

type call struct {
	handler  uintptr
	id       string
	released bool
}

func newRegistry() (*keybinds.Registry, *[]call) {
	var calls []call
	r := keybinds.NewRegistry(keybinds.WithInvoker(func(h uintptr, id string, released bool) {
		calls = append(calls, call{h, id, released})
	}))
	return r, &calls
}

func TestParseBind(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"k", "K", false},
		{"shift + ctrl+k", "CTRL+SHIFT+K", false},
		{"Alt+Shift+F1", "ALT+SHIFT+F1", false},
		{"control+menu+x", "CTRL+ALT+X", false},
		{"", keybinds.Unbound, false},
		{"(null)", keybinds.Unbound, false},
		{"CTRL+", "", true},
		{"CTRL+SHIFT", "", true},
		{"A+B", "", true},
		{"ctrl++k", "", true},
		{"+k", "", true},
		{"  shift +  f5 ", "SHIFT+F5", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := keybinds.ParseBind(tt.in)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, keybinds.CodeInvalidBind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegisterAndTrigger(t *testing.T) {
	r, calls := newRegistry()
	require.NoError(t, r.Register("KB_TOGGLE", "ctrl+k", 0x100))

	assert.True(t, r.Trigger("CTRL+K", false))
	assert.True(t, r.Trigger("k+ctrl", true))
	assert.False(t, r.Trigger("ALT+K", false))

	assert.Equal(t, []call{{0x100, "KB_TOGGLE", false}, {0x100, "KB_TOGGLE", true}}, *calls)
}

func TestRegisterKeepsCustomBind(t *testing.T) {
	r, _ := newRegistry()
	require.NoError(t, r.Register("KB_TOGGLE", "CTRL+K", 0x100))
	require.NoError(t, r.Set("KB_TOGGLE", "ALT+J"))

	r.Deregister("KB_TOGGLE")
	kb, ok := r.Get("KB_TOGGLE")
	require.True(t, ok)
	assert.Zero(t, kb.Handler)

	require.NoError(t, r.Register("KB_TOGGLE", "CTRL+K", 0x200))
	kb, _ = r.Get("KB_TOGGLE")
	assert.Equal(t, "ALT+J", kb.Bind)
	assert.Equal(t, uintptr(0x200), kb.Handler)
}

func TestRegisterRejectsBadInput(t *testing.T) {
	r, _ := newRegistry()
	errutil.AssertErrorCode(t, r.Register("", "K", 1), keybinds.CodeInvalidID)
	errutil.AssertErrorCode(t, r.Register("KB", "CTRL+", 1), keybinds.CodeInvalidBind)
}

func TestSetConflicts(t *testing.T) {
	r, _ := newRegistry()
	require.NoError(t, r.Register("KB_A", "CTRL+A", 1))
	require.NoError(t, r.Register("KB_B", "CTRL+B", 2))

	err := r.Set("KB_B", "ctrl+a")
	errutil.AssertErrorCode(t, err, keybinds.CodeConflict)
	errutil.AssertErrorContext(t, err, "conflict", "KB_A")

	errutil.AssertErrorCode(t, r.Set("KB_MISSING", "CTRL+C"), keybinds.CodeNotFound)
	require.NoError(t, r.Set("KB_B", ""))
}

func TestVerifyNoReferencesIn(t *testing.T) {
	r, calls := newRegistry()
	require.NoError(t, r.Register("KB_IN", "CTRL+A", 0x1100))
	require.NoError(t, r.Register("KB_OUT", "CTRL+B", 0x3000))

	assert.Equal(t, 1, r.VerifyNoReferencesIn(0x1000, 0x2000))
	assert.False(t, r.Trigger("CTRL+A", false))
	assert.True(t, r.Trigger("CTRL+B", false))
	assert.Len(t, *calls, 1)

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "KB_IN", all[0].ID)
}
