// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

// Package update checks addon update sources and stages new builds next
// to the installed file. Staged builds are applied by the addon loader.
package update

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"
	"io"
	"os"

	"github.com/samber/oops"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
)

// File suffixes used while staging updates.
const (
	UpdateSuffix = ".update"
	PartSuffix   = ".update.part"
)

// Error codes for update failures.
const (
	CodeCheckFailed     = "UPDATE_CHECK_FAILED"
	CodeDownloadFailed  = "UPDATE_DOWNLOAD_FAILED"
	CodeInvalidDownload = "UPDATE_INVALID_DOWNLOAD"
	CodeHashFailed      = "UPDATE_HASH_FAILED"
)

// Fetcher retrieves JSON documents and files.
type Fetcher interface {
	Get(ctx context.Context, endpoint string) (json.RawMessage, error)
	Download(ctx context.Context, path, endpoint string) error
}

// Request describes the installed addon to check.
type Request struct {
	Path             string
	Signature        int32
	Name             string
	Version          module.Version
	ContentHash      string
	Provider         module.Provider
	UpdateLink       string
	AllowPrereleases bool
}

// Release is a build a provider offers.
type Release struct {
	Version module.Version
	URL     string
	// MD5 is the expected digest of the download, when the provider knows it.
	MD5 string
}

// Result is the outcome of one update check.
type Result struct {
	Path     string
	Provider module.Provider
	// Available is set when a new build was staged at Path+UpdateSuffix.
	Available bool
	Version   module.Version
	Err       error
}

// Provider checks one kind of update source.
type Provider interface {
	// Check returns the newest release and whether it supersedes the
	// installed build.
	Check(ctx context.Context, req Request) (Release, bool, error)
}

// HashFile returns the hex MD5 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path) //nolint:gosec // addon paths come from the addon directory
	if err != nil {
		return "", oops.Code(CodeHashFailed).With("path", path).Wrap(err)
	}
	defer func() { _ = f.Close() }()

	h := md5.New() //nolint:gosec // content fingerprint
	if _, err := io.Copy(h, f); err != nil {
		return "", oops.Code(CodeHashFailed).With("path", path).Wrap(err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
