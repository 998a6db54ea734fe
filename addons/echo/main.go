// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package main implements an echo process addon for Nexus.
// It logs each lifecycle call the host makes, which makes it handy for
// watching hot reloads: rebuild it into the addon directory and the host
// unloads the running copy and loads the new one.
//
// Build with:
//
//	go build -o "$XDG_DATA_HOME/nexus/addons/echo.addon" ./addons/echo
package main

import (
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/RaidcoreGG/Nexus-sub000/pkg/addonsdk"
)

// signature identifies the echo addon across versions.
const signature int32 = 0x0EC40

type echo struct {
	logger   hclog.Logger
	loadedAt time.Time
}

func (e *echo) Definition() (addonsdk.Definition, error) {
	return addonsdk.Definition{
		Signature:   signature,
		APIVersion:  3,
		Name:        "Echo",
		Version:     addonsdk.Version{Major: 1, Minor: 0, Build: 0, Revision: 1},
		Author:      "Nexus Contributors",
		Description: "Logs every lifecycle call it receives",
		HasUnload:   true,
	}, nil
}

func (e *echo) Load(apiVersion uint32) error {
	e.loadedAt = time.Now()
	e.logger.Info("echo loaded", "api_version", apiVersion, "pid", os.Getpid())
	return nil
}

func (e *echo) Unload() error {
	e.logger.Info("echo unloading", "loaded_for", time.Since(e.loadedAt).Round(time.Millisecond).String())
	return nil
}

func main() {
	// go-plugin forwards stderr to the host's log.
	logger := hclog.New(&hclog.LoggerOptions{
		Name:       "echo",
		Level:      hclog.Info,
		Output:     os.Stderr,
		JSONFormat: true,
	})

	addonsdk.Serve(&addonsdk.ServeConfig{Addon: &echo{logger: logger}})
}
