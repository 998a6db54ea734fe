// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package addonsdk_test

import (
	"errors"
	"net"
	"net/rpc"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RaidcoreGG/Nexus-sub000/pkg/addonsdk"
)

type fakeAddon struct {
	loadedWith uint32
	unloaded   bool
	loadErr    error
}

func (f *fakeAddon) Definition() (addonsdk.Definition, error) {
	return addonsdk.Definition{
		Signature:   0x55,
		APIVersion:  2,
		Name:        "Fake",
		Version:     addonsdk.Version{Major: 1, Minor: 2},
		Author:      "tests",
		Description: "a fake addon",
		HasUnload:   true,
	}, nil
}

func (f *fakeAddon) Load(apiVersion uint32) error {
	f.loadedWith = apiVersion
	return f.loadErr
}

func (f *fakeAddon) Unload() error {
	f.unloaded = true
	return nil
}

func dialPipe(t *testing.T, impl addonsdk.Addon) addonsdk.Addon {
	t.Helper()
	srv := rpc.NewServer()
	raw, err := (&addonsdk.RPCPlugin{Impl: impl}).Server(nil)
	require.NoError(t, err)
	require.NoError(t, srv.RegisterName("Plugin", raw))

	serverConn, clientConn := net.Pipe()
	go srv.ServeConn(serverConn)

	client := rpc.NewClient(clientConn)
	t.Cleanup(func() { _ = client.Close() })

	dispensed, err := (&addonsdk.RPCPlugin{}).Client(nil, client)
	require.NoError(t, err)
	addon, ok := dispensed.(addonsdk.Addon)
	require.True(t, ok)
	return addon
}

func TestRPCRoundTrip(t *testing.T) {
	impl := &fakeAddon{}
	addon := dialPipe(t, impl)

	def, err := addon.Definition()
	require.NoError(t, err)
	assert.Equal(t, int32(0x55), def.Signature)
	assert.Equal(t, "Fake", def.Name)
	assert.Equal(t, uint16(2), def.Version.Minor)
	assert.True(t, def.HasUnload)

	require.NoError(t, addon.Load(2))
	assert.Equal(t, uint32(2), impl.loadedWith)

	require.NoError(t, addon.Unload())
	assert.True(t, impl.unloaded)
}

func TestRPCPropagatesLoadError(t *testing.T) {
	addon := dialPipe(t, &fakeAddon{loadErr: errors.New("no renderer")})

	err := addon.Load(3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no renderer")
}

func TestServeRequiresAddon(t *testing.T) {
	assert.Panics(t, func() { addonsdk.Serve(&addonsdk.ServeConfig{}) })
	assert.Panics(t, func() { addonsdk.Serve(nil) })
}

func TestHandshakeConfig(t *testing.T) {
	assert.Equal(t, uint(1), addonsdk.HandshakeConfig.ProtocolVersion)
	assert.Equal(t, "NEXUS_ADDON", addonsdk.HandshakeConfig.MagicCookieKey)
}
