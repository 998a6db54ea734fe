// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package addonsdk provides the SDK for building out-of-process Nexus addons.
//
// Process addons are ordinary executables that talk to the host over
// net/rpc using the HashiCorp go-plugin framework. The host treats them
// like native modules: it reads their definition, hands them a capability
// table version on load, and asks them to unload before stopping them.
//
// Example usage:
//
//	package main
//
//	import "github.com/RaidcoreGG/Nexus-sub000/pkg/addonsdk"
//
//	type Clock struct{}
//
//	func (Clock) Definition() (addonsdk.Definition, error) {
//		return addonsdk.Definition{
//			Signature:   0x7A11,
//			APIVersion:  3,
//			Name:        "Clock",
//			Version:     addonsdk.Version{Major: 1},
//			Author:      "Nexus Contributors",
//			Description: "Shows the local time",
//			HasUnload:   true,
//		}, nil
//	}
//
//	func (Clock) Load(uint32) error { return nil }
//	func (Clock) Unload() error     { return nil }
//
//	func main() {
//		addonsdk.Serve(&addonsdk.ServeConfig{Addon: Clock{}})
//	}
package addonsdk

import (
	"net/rpc"

	hashiplug "github.com/hashicorp/go-plugin"
)

// PluginName is the name the addon is dispensed under.
const PluginName = "addon"

// HandshakeConfig is the go-plugin handshake configuration.
// Both host and addons must use the same values.
var HandshakeConfig = hashiplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "NEXUS_ADDON",
	MagicCookieValue: "nexus-addon-v1",
}

// Version is a four part addon version.
type Version struct {
	Major    uint16
	Minor    uint16
	Build    uint16
	Revision uint16
}

// Definition describes a process addon to the host.
type Definition struct {
	Signature   int32
	APIVersion  uint32
	Name        string
	Version     Version
	Author      string
	Description string
	Flags       uint32
	Provider    uint32
	UpdateLink  string
	// HasUnload must be true for the addon to be unloadable at runtime.
	HasUnload bool
}

// Addon is the interface process addons implement.
type Addon interface {
	// Definition returns the addon's metadata.
	Definition() (Definition, error)
	// Load is called once with the capability table version granted.
	Load(apiVersion uint32) error
	// Unload is called before the host stops the addon.
	Unload() error
}

// ServeConfig configures the addon server.
type ServeConfig struct {
	// Addon is the implementation to serve.
	// Required; Serve will panic if nil.
	Addon Addon
}

// Serve starts the addon server. This should be called from main().
// It blocks and never returns under normal operation.
func Serve(config *ServeConfig) {
	if config == nil {
		panic("addonsdk: config cannot be nil")
	}
	if config.Addon == nil {
		panic("addonsdk: config.Addon cannot be nil")
	}
	hashiplug.Serve(&hashiplug.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins:         PluginSet(config.Addon),
	})
}

// PluginSet returns the go-plugin set for impl. The host passes a nil impl.
func PluginSet(impl Addon) hashiplug.PluginSet {
	return hashiplug.PluginSet{PluginName: &RPCPlugin{Impl: impl}}
}

// RPCPlugin implements go-plugin's Plugin interface over net/rpc.
type RPCPlugin struct {
	Impl Addon
}

// Server returns the RPC server (called by the addon process).
func (p *RPCPlugin) Server(*hashiplug.MuxBroker) (interface{}, error) {
	return &RPCServer{Impl: p.Impl}, nil
}

// Client returns an Addon backed by c (called by the host process).
func (p *RPCPlugin) Client(_ *hashiplug.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &RPCClient{client: c}, nil
}

// Empty is the placeholder argument and reply for calls without data.
type Empty struct{}

// RPCServer exposes an Addon over net/rpc.
type RPCServer struct {
	Impl Addon
}

// Definition serves Addon.Definition.
func (s *RPCServer) Definition(_ Empty, resp *Definition) error {
	def, err := s.Impl.Definition()
	if err != nil {
		return err
	}
	*resp = def
	return nil
}

// Load serves Addon.Load.
func (s *RPCServer) Load(apiVersion uint32, _ *Empty) error {
	return s.Impl.Load(apiVersion)
}

// Unload serves Addon.Unload.
func (s *RPCServer) Unload(_ Empty, _ *Empty) error {
	return s.Impl.Unload()
}

// RPCClient is the host side of an Addon.
type RPCClient struct {
	client *rpc.Client
}

// Definition calls the remote Addon.Definition.
func (c *RPCClient) Definition() (Definition, error) {
	var def Definition
	err := c.client.Call("Plugin.Definition", Empty{}, &def)
	return def, err
}

// Load calls the remote Addon.Load.
func (c *RPCClient) Load(apiVersion uint32) error {
	return c.client.Call("Plugin.Load", apiVersion, &Empty{})
}

// Unload calls the remote Addon.Unload.
func (c *RPCClient) Unload() error {
	return c.client.Call("Plugin.Unload", Empty{}, &Empty{})
}

var (
	_ Addon            = (*RPCClient)(nil)
	_ hashiplug.Plugin = (*RPCPlugin)(nil)
)
