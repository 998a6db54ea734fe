// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package module_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module/moduletest"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

func TestDefinitionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*module.Definitions)
		missing string
	}{
		{"valid", func(*module.Definitions) {}, ""},
		{"no name", func(d *module.Definitions) { d.Name = "" }, "name"},
		{"zero version", func(d *module.Definitions) { d.Version = module.Version{} }, ""},
		{"no author", func(d *module.Definitions) { d.Author = "" }, "author"},
		{"no description", func(d *module.Definitions) { d.Description = "" }, "description"},
		{"no load entry", func(d *module.Definitions) { d.HasLoad = false }, "load"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := moduletest.Def(9, "Foo", 1)
			tt.mutate(def)
			err := def.Validate()
			if tt.missing == "" {
				require.NoError(t, err)
				return
			}
			errutil.AssertErrorCode(t, err, module.CodeInvalidDefinitions)
			errutil.AssertErrorContext(t, err, "missing", tt.missing)
		})
	}
}

func TestDefinitionsLocked(t *testing.T) {
	def := moduletest.Def(1, "Foo", 1)
	assert.False(t, def.Locked())

	def.Flags = module.FlagDisableHotloading
	assert.True(t, def.Locked())

	def.Flags = module.FlagNone
	def.HasUnload = false
	assert.True(t, def.Locked())
}

func TestDefinitionsCloneIsIndependent(t *testing.T) {
	def := moduletest.Def(1, "Foo", 1)
	clone := def.Clone()
	clone.Name = "Bar"
	assert.Equal(t, "Foo", def.Name)

	var nilDef *module.Definitions
	assert.Nil(t, nilDef.Clone())
}

func TestVersionCompare(t *testing.T) {
	v := func(a, b, c, d uint16) module.Version { return module.Version{Major: a, Minor: b, Build: c, Revision: d} }

	assert.Equal(t, 0, v(1, 2, 3, 4).Compare(v(1, 2, 3, 4)))
	assert.Equal(t, -1, v(1, 2, 3, 4).Compare(v(1, 2, 3, 5)))
	assert.Equal(t, 1, v(2, 0, 0, 0).Compare(v(1, 9, 9, 9)))
	assert.Equal(t, "1.2.3.4", v(1, 2, 3, 4).String())
	assert.Equal(t, "0.0.0.0", module.Version{}.String())
}

func TestFlags(t *testing.T) {
	f := module.FlagVolatile | module.FlagSyncUnload
	assert.True(t, f.Has(module.FlagVolatile))
	assert.False(t, f.Has(module.FlagDisableHotloading))
	assert.Equal(t, "volatile|sync-unload", f.String())
	assert.Equal(t, "none", module.FlagNone.String())
}

func TestRange(t *testing.T) {
	r := module.Range{Base: 0x10, End: 0x20}
	assert.True(t, r.Contains(0x10))
	assert.True(t, r.Contains(0x1f))
	assert.False(t, r.Contains(0x20))
	assert.False(t, r.Empty())
	assert.True(t, module.Range{}.Empty())
}
