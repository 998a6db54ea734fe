// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package module_test

import (
	"errors"
	"log/slog"
	"testing"

	hashiplug "github.com/hashicorp/go-plugin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/addonsdk"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/errutil"
)

type stubAddon struct {
	def     addonsdk.Definition
	loaded  uint32
	unloads int
}

func (s *stubAddon) Definition() (addonsdk.Definition, error) { return s.def, nil }
func (s *stubAddon) Load(v uint32) error                      { s.loaded = v; return nil }
func (s *stubAddon) Unload() error                            { s.unloads++; return nil }

type stubProtocol struct {
	dispensed any
	err       error
}

func (p *stubProtocol) Close() error { return nil }
func (p *stubProtocol) Ping() error  { return nil }
func (p *stubProtocol) Dispense(string) (interface{}, error) {
	return p.dispensed, p.err
}

type stubClient struct {
	proto  *stubProtocol
	err    error
	killed bool
}

func (c *stubClient) Client() (hashiplug.ClientProtocol, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.proto, nil
}

func (c *stubClient) Kill() { c.killed = true }

func processOpener(c *stubClient) *module.ProcessOpener {
	return module.NewProcessOpener(slog.Default(), module.WithClientFactory(func(string) module.PluginClient {
		return c
	}))
}

func TestProcessOpenerLifecycle(t *testing.T) {
	addon := &stubAddon{def: addonsdk.Definition{
		Signature:   0x99,
		APIVersion:  2,
		Name:        "Proc",
		Version:     addonsdk.Version{Major: 1},
		Author:      "tests",
		Description: "process addon",
		Flags:       uint32(module.FlagSyncUnload),
		HasUnload:   true,
	}}
	client := &stubClient{proto: &stubProtocol{dispensed: addon}}

	lib, err := processOpener(client).Open("addons/proc.addon")
	require.NoError(t, err)

	def, err := lib.Definitions()
	require.NoError(t, err)
	require.NoError(t, def.Validate())
	assert.Equal(t, int32(0x99), def.Signature)
	assert.True(t, def.Flags.Has(module.FlagSyncUnload))
	assert.True(t, lib.Range().Empty())

	tbl, err := capability.NewTables(capability.Services{}).Acquire(capability.V2)
	require.NoError(t, err)
	require.NoError(t, lib.Load(tbl))
	assert.Equal(t, uint32(2), addon.loaded)

	require.NoError(t, lib.Unload())
	assert.Equal(t, 1, addon.unloads)

	require.NoError(t, lib.Close())
	assert.True(t, client.killed)
}

func TestProcessOpenerFailures(t *testing.T) {
	t.Run("client start fails", func(t *testing.T) {
		client := &stubClient{err: errors.New("handshake failed")}
		_, err := processOpener(client).Open("addons/proc.addon")
		errutil.AssertErrorCode(t, err, module.CodeOpenFailed)
		assert.True(t, client.killed)
	})

	t.Run("dispensed value is not an addon", func(t *testing.T) {
		client := &stubClient{proto: &stubProtocol{dispensed: "nope"}}
		_, err := processOpener(client).Open("addons/proc.addon")
		errutil.AssertErrorCode(t, err, module.CodeOpenFailed)
		assert.True(t, client.killed)
	})
}
