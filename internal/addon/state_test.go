// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

func TestStateText(t *testing.T) {
	data, err := json.Marshal(map[string]addon.State{"s": addon.StateNotLoadedIncompatibleAPI})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"NotLoadedIncompatibleApi"}`, string(data))

	var decoded map[string]addon.State
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, addon.StateNotLoadedIncompatibleAPI, decoded["s"])

	var s addon.State
	assert.Error(t, s.UnmarshalText([]byte("Sleeping")))
	assert.Equal(t, "Unknown", addon.State(99).String())
}

func TestStatePredicates(t *testing.T) {
	assert.True(t, addon.StateLoaded.Loaded())
	assert.True(t, addon.StateLoadedLocked.Loaded())
	assert.False(t, addon.StateNotLoaded.Loaded())
	assert.True(t, addon.StateNotLoadedIncompatible.Incompatible())
	assert.False(t, addon.StateNotLoadedDuplicate.Incompatible())
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want addon.Action
	}{
		{"load", addon.ActionLoad},
		{" Unload ", addon.ActionUnload},
		{"RELOAD", addon.ActionReload},
		{"uninstall", addon.ActionUninstall},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := addon.ParseAction(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"free", "free-then-load", ""} {
		_, err := addon.ParseAction(bad)
		errutil.AssertErrorCode(t, err, addon.CodeUnknownAction)
	}
}
