// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package module

import (
	"errors"
	"log/slog"
	"os/exec"

	"github.com/hashicorp/go-hclog"
	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/RaidcoreGG/Nexus-sub000/internal/capability"
	"github.com/RaidcoreGG/Nexus-sub000/pkg/addonsdk"
)

// ProcessExt is the extension of out-of-process addon executables.
const ProcessExt = ".addon"

// PluginClient is the subset of *hashiplug.Client the process opener uses.
type PluginClient interface {
	Client() (hashiplug.ClientProtocol, error)
	Kill()
}

// ClientFactory starts the addon executable at path.
type ClientFactory func(path string) PluginClient

// ProcessOpener starts addon executables and talks to them over net/rpc.
type ProcessOpener struct {
	factory ClientFactory
}

// ProcessOption configures a ProcessOpener.
type ProcessOption func(*ProcessOpener)

// WithClientFactory replaces how addon processes are started.
func WithClientFactory(f ClientFactory) ProcessOption {
	return func(o *ProcessOpener) {
		o.factory = f
	}
}

// NewProcessOpener creates an opener whose go-plugin output goes to logger.
func NewProcessOpener(logger *slog.Logger, opts ...ProcessOption) *ProcessOpener {
	if logger == nil {
		logger = slog.Default()
	}
	hlog := hclog.New(&hclog.LoggerOptions{
		Name:   "addon-process",
		Output: slog.NewLogLogger(logger.Handler(), slog.LevelDebug).Writer(),
		Level:  hclog.Info,
	})
	o := &ProcessOpener{
		factory: func(path string) PluginClient {
			return hashiplug.NewClient(&hashiplug.ClientConfig{
				HandshakeConfig:  addonsdk.HandshakeConfig,
				Plugins:          addonsdk.PluginSet(nil),
				Cmd:              exec.Command(path), //nolint:gosec // path comes from the addon directory scan
				AllowedProtocols: []hashiplug.Protocol{hashiplug.ProtocolNetRPC},
				Logger:           hlog,
			})
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open starts the executable at path and connects to it.
func (o *ProcessOpener) Open(path string) (Library, error) {
	client := o.factory(path)
	proto, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, ErrOpenFailed(path, err)
	}
	raw, err := proto.Dispense(addonsdk.PluginName)
	if err != nil {
		client.Kill()
		return nil, ErrOpenFailed(path, err)
	}
	addon, ok := raw.(addonsdk.Addon)
	if !ok {
		client.Kill()
		return nil, ErrOpenFailed(path, errors.New("dispensed plugin is not an addon"))
	}
	return &processLibrary{path: path, client: client, addon: addon}, nil
}

type processLibrary struct {
	path   string
	client PluginClient
	addon  addonsdk.Addon
	def    *Definitions
}

func (l *processLibrary) Definitions() (*Definitions, error) {
	d, err := l.addon.Definition()
	if err != nil {
		return nil, ErrCallFailed(ExportName, err)
	}
	l.def = &Definitions{
		Signature:  d.Signature,
		APIVersion: d.APIVersion,
		Name:       d.Name,
		Version: Version{
			Major:    d.Version.Major,
			Minor:    d.Version.Minor,
			Build:    d.Version.Build,
			Revision: d.Version.Revision,
		},
		Author:      d.Author,
		Description: d.Description,
		Flags:       Flags(d.Flags),
		Provider:    Provider(d.Provider),
		UpdateLink:  d.UpdateLink,
		HasLoad:     true,
		HasUnload:   d.HasUnload,
	}
	return l.def.Clone(), nil
}

func (l *processLibrary) Load(table capability.Table) error {
	return l.addon.Load(uint32(table.Version()))
}

func (l *processLibrary) Unload() error {
	if l.def != nil && !l.def.HasUnload {
		return nil
	}
	return l.addon.Unload()
}

// Range is empty: a process addon shares no memory with the host.
func (l *processLibrary) Range() Range {
	return Range{}
}

func (l *processLibrary) Close() error {
	l.client.Kill()
	return nil
}
