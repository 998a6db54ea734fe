// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon"
	"github.com/RaidcoreGG/Nexus-sub000/internal/control"
	"github.com/RaidcoreGG/Nexus-sub000/internal/logging"
	"github.com/RaidcoreGG/Nexus-sub000/internal/xdg"
)

// Default values for run command flags.
const (
	defaultLogFormat     = "json"
	defaultLogLevel      = "info"
	defaultMetricsAddr   = "127.0.0.1:9100"
	defaultAPIBaseURL    = "https://api.raidcore.gg"
	defaultGitHubBaseURL = "https://api.github.com"
)

// hostConfig holds settings for the run command. Values come from the
// YAML config file and are overridden by flags the user set explicitly.
type hostConfig struct {
	AddonsDir          string        `koanf:"addons-dir"`
	StateDir           string        `koanf:"state-dir"`
	LogFormat          string        `koanf:"log-format"`
	LogLevel           string        `koanf:"log-level"`
	MetricsAddr        string        `koanf:"metrics-addr"`
	ControlSocket      string        `koanf:"control-socket"`
	APIBaseURL         string        `koanf:"api-base-url"`
	GitHubBaseURL      string        `koanf:"github-base-url"`
	EnvironmentVersion string        `koanf:"environment-version"`
	Debounce           time.Duration `koanf:"debounce"`
	ScanInterval       time.Duration `koanf:"scan-interval"`
	LaunchWindow       time.Duration `koanf:"launch-window"`
	UpdateWorkers      int           `koanf:"update-workers"`
	CandidatePatterns  []string      `koanf:"candidate-patterns"`
}

// registerHostFlags adds every hostConfig key to flags.
func registerHostFlags(flags *pflag.FlagSet) {
	flags.String("addons-dir", "", "addon directory (default: XDG_DATA_HOME/nexus/addons)")
	flags.String("state-dir", "", "directory for addons.json and environment.json (default: XDG_STATE_HOME/nexus)")
	flags.String("log-format", defaultLogFormat, "log format (json or text)")
	flags.String("log-level", defaultLogLevel, "log level (trace, debug, info, warn, error)")
	flags.String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	flags.String("control-socket", "", "control socket path (default: XDG_RUNTIME_DIR/nexus/nexus.sock)")
	flags.String("api-base-url", defaultAPIBaseURL, "Raidcore API base URL for update checks")
	flags.String("github-base-url", defaultGitHubBaseURL, "GitHub API base URL for update checks")
	flags.String("environment-version", "", "host environment version; volatile addons are disabled when it changes")
	flags.Duration("debounce", addon.DefaultDebounce, "delay coalescing bursts of filesystem events")
	flags.Duration("scan-interval", addon.DefaultScanInterval, "period of full addon directory rescans (0 = events only)")
	flags.Duration("launch-window", 0, "how long launch-only addons may load after start")
	flags.Int("update-workers", addon.DefaultWorkers, "concurrent unload and update check tasks")
	flags.StringSlice("candidate-patterns", addon.DefaultPatterns, "glob patterns selecting addon files")
}

// loadHostConfig merges the config file at path with flags.
// An empty path loads the default config file if it exists.
func loadHostConfig(path string, flags *pflag.FlagSet) (*hostConfig, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		def, err := xdg.ConfigFile()
		if err != nil {
			return nil, err
		}
		path = def
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.With("path", path).Wrapf(err, "load config file")
		}
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, oops.Wrapf(err, "load flags")
	}

	cfg := &hostConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.With("path", path).Wrapf(err, "decode config")
	}
	if err := cfg.resolveDirs(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveDirs fills unset directories and the socket path with their
// XDG defaults.
func (cfg *hostConfig) resolveDirs() error {
	if cfg.AddonsDir == "" {
		dir, err := xdg.AddonsDir()
		if err != nil {
			return err
		}
		cfg.AddonsDir = dir
	}
	if cfg.StateDir == "" {
		dir, err := xdg.StateDir()
		if err != nil {
			return err
		}
		cfg.StateDir = dir
	}
	if cfg.ControlSocket == "" {
		path, err := control.SocketPath()
		if err != nil {
			return err
		}
		cfg.ControlSocket = path
	}
	return nil
}

// Validate checks that the configuration is valid.
func (cfg *hostConfig) Validate() error {
	if cfg.AddonsDir == "" {
		return oops.Errorf("addons-dir is required")
	}
	if cfg.StateDir == "" {
		return oops.Errorf("state-dir is required")
	}
	if cfg.ControlSocket == "" {
		return oops.Errorf("control-socket is required")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return oops.Errorf("log-format must be 'json' or 'text', got %q", cfg.LogFormat)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return oops.Wrapf(err, "log-level")
	}
	if cfg.Debounce < 0 {
		return oops.Errorf("debounce must not be negative, got %s", cfg.Debounce)
	}
	if cfg.ScanInterval < 0 {
		return oops.Errorf("scan-interval must not be negative, got %s", cfg.ScanInterval)
	}
	if cfg.LaunchWindow < 0 {
		return oops.Errorf("launch-window must not be negative, got %s", cfg.LaunchWindow)
	}
	if cfg.UpdateWorkers < 1 {
		return oops.Errorf("update-workers must be at least 1, got %d", cfg.UpdateWorkers)
	}
	if len(cfg.CandidatePatterns) == 0 {
		return oops.Errorf("candidate-patterns must not be empty")
	}
	if _, err := addon.NewMatcher(cfg.CandidatePatterns); err != nil {
		return oops.Wrapf(err, "candidate-patterns")
	}
	return nil
}

// loaderConfig maps the host settings onto the addon loader.
func (cfg *hostConfig) loaderConfig() addon.Config {
	return addon.Config{
		Dir:                cfg.AddonsDir,
		ConfigPath:         filepath.Join(cfg.StateDir, addon.ConfigFile),
		EnvironmentPath:    filepath.Join(cfg.StateDir, addon.EnvironmentFile),
		EnvironmentVersion: cfg.EnvironmentVersion,
		Patterns:           cfg.CandidatePatterns,
		Debounce:           cfg.Debounce,
		ScanInterval:       cfg.ScanInterval,
		LaunchWindow:       cfg.LaunchWindow,
		Workers:            cfg.UpdateWorkers,
	}
}

// ensureDirs creates the addon and state directories.
func (cfg *hostConfig) ensureDirs() error {
	for _, dir := range []string{cfg.AddonsDir, cfg.StateDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return oops.With("path", dir).Wrapf(err, "create directory")
		}
	}
	return nil
}
