// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon"
	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module/moduletest"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

func named(path, name string) *addon.Addon {
	return &addon.Addon{Path: path, Definitions: &module.Definitions{Name: name}}
}

func names(addons []*addon.Addon) []string {
	out := make([]string, len(addons))
	for i, a := range addons {
		out[i] = a.DisplayName()
	}
	return out
}

func TestRegistrySortOrder(t *testing.T) {
	r := addon.NewRegistry()

	duu := named("/a/zeta.dll", "Zeta")
	duu.IsDisabledUntilUpdate = true
	fav := named("/a/arc2.dll", "ARC")
	fav.IsFavorite = true

	r.Add(duu)
	r.Add(named("/a/mumble.dll", "Mumble Link"))
	r.Add(named("/a/arc1.dll", "arc"))
	r.Add(fav)
	r.Add(named("/a/boon.dll", "Boon-Table"))

	r.Sort()

	assert.Equal(t, []string{"ARC", "arc", "Boon-Table", "Mumble Link", "Zeta"}, names(r.All()))
}

func TestRegistryFindHolderIgnoresDuplicatesAndSelf(t *testing.T) {
	r := addon.NewRegistry()

	holder := named("/a/foo.dll", "Foo")
	holder.Signature = 7
	holder.State = addon.StateLoaded
	dup := named("/a/bar.dll", "Foo")
	dup.Signature = 7
	dup.State = addon.StateNotLoadedDuplicate
	r.Add(holder)
	r.Add(dup)

	assert.Same(t, holder, r.FindHolder(7, dup))
	assert.Nil(t, r.FindHolder(7, holder))
	assert.Nil(t, r.FindHolder(0, nil))
}

func TestRegistryFindHolderRequiresLoadedModule(t *testing.T) {
	r := addon.NewRegistry()

	unloaded := named("/a/foo.dll", "Foo")
	unloaded.Signature = 7
	unloaded.State = addon.StateNotLoaded
	r.Add(unloaded)
	assert.Nil(t, r.FindHolder(7, nil))

	locked := named("/a/bar.dll", "Bar")
	locked.Signature = 7
	locked.State = addon.StateLoadedLocked
	r.Add(locked)
	assert.Same(t, locked, r.FindHolder(7, nil))
}

func TestRegistryFindBySignature(t *testing.T) {
	r := addon.NewRegistry()
	r.Add(&addon.Addon{Signature: 4})
	a := named("/a/foo.dll", "Foo")
	a.Signature = 4
	r.Add(a)

	assert.Same(t, a, r.FindBySignature(4))
	assert.Nil(t, r.FindBySignature(5))
	assert.Nil(t, r.FindBySignature(0))
}

func TestRegistryAddReplacesSamePath(t *testing.T) {
	r := addon.NewRegistry()
	r.Add(named("/a/foo.dll", "Old"))
	r.Add(named("/a/bar.dll", "Bar"))
	r.Add(&addon.Addon{})
	r.Add(&addon.Addon{})

	replacement := named("/a/foo.dll", "New")
	r.Add(replacement)

	assert.Equal(t, 4, r.Len())
	assert.Same(t, replacement, r.FindByPath("/a/foo.dll"))
	assert.Same(t, replacement, r.All()[0])
}

func TestRegistryFindPlaceholder(t *testing.T) {
	r := addon.NewRegistry()
	p := &addon.Addon{MatchSignature: 9}
	r.Add(p)
	r.Add(&addon.Addon{Path: "/a/x.dll", MatchSignature: 9})

	assert.Same(t, p, r.FindPlaceholder(9))
	assert.Nil(t, r.FindPlaceholder(10))
	assert.Nil(t, r.FindByPath(""))
}

func TestRegistryFindByContentHash(t *testing.T) {
	r := addon.NewRegistry()
	a := &addon.Addon{Path: "/a/x.dll", ContentHash: "abc"}
	r.Add(a)
	r.Add(&addon.Addon{ContentHash: "def"})

	assert.Same(t, a, r.FindByContentHash("abc"))
	assert.Nil(t, r.FindByContentHash("def"))
	assert.Nil(t, r.FindByContentHash(""))
}

func TestRegistryRemoveRefusesLoadedModule(t *testing.T) {
	r := addon.NewRegistry()

	opener := moduletest.NewOpener()
	lib, err := opener.Open(writeModule(t, t.TempDir(), "x.dll", "x", opener, moduletest.Spec{
		Definitions: moduletest.Def(1, "X", 1),
	}))
	require.NoError(t, err)

	held := &addon.Addon{Path: "/a/held.dll", Module: module.NewHandle(lib)}
	r.Add(held)
	r.Add(&addon.Addon{Path: "/a/free.dll"})

	errutil.AssertErrorCode(t, r.Remove("/a/held.dll"), addon.CodeHoldsModule)
	require.NoError(t, r.Remove("/a/free.dll"))
	errutil.AssertErrorCode(t, r.Remove("/a/free.dll"), addon.CodeNotFound)
	assert.Equal(t, 1, r.Len())
}

func TestAddonInfo(t *testing.T) {
	a := &addon.Addon{
		Path:        "/a/foo.dll",
		Signature:   3,
		State:       addon.StateLoadedLocked,
		Definitions: moduletest.Def(3, "Foo", 2),
		IsFavorite:  true,
	}
	a.Definitions.Flags = module.FlagVolatile | module.FlagSyncUnload

	info := a.Info()
	assert.Equal(t, "Foo", info.Name)
	assert.Equal(t, "2.0.0.0", info.Version)
	assert.Equal(t, "volatile|sync-unload", info.Flags)
	assert.Equal(t, addon.StateLoadedLocked, info.State)
	assert.True(t, info.IsFavorite)

	bare := &addon.Addon{Path: "/a/bare.dll"}
	assert.Equal(t, "bare.dll", bare.Info().Name)
	assert.Empty(t, bare.Info().Version)
}
