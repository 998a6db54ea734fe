// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package update

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
)

// manifest is the document served by the Raidcore API and by addons that
// host their own update manifest.
type manifest struct {
	Version  module.Version `json:"Version"`
	Download string         `json:"Download"`
	MD5      string         `json:"MD5,omitempty"`
}

func fetchManifest(ctx context.Context, f Fetcher, endpoint string) (manifest, error) {
	raw, err := f.Get(ctx, endpoint)
	if err != nil {
		return manifest{}, err
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return manifest{}, oops.Code(CodeCheckFailed).With("endpoint", endpoint).Wrapf(err, "decode manifest")
	}
	return m, nil
}

func (m manifest) release(current module.Version) (Release, bool) {
	if m.Download == "" || m.Version.Compare(current) <= 0 {
		return Release{}, false
	}
	return Release{Version: m.Version, URL: m.Download, MD5: strings.ToLower(m.MD5)}, true
}

// RaidcoreProvider checks the first-party addon API by signature.
type RaidcoreProvider struct {
	Fetcher Fetcher
}

// Check implements Provider.
func (p RaidcoreProvider) Check(ctx context.Context, req Request) (Release, bool, error) {
	m, err := fetchManifest(ctx, p.Fetcher, fmt.Sprintf("addons/%d", req.Signature))
	if err != nil {
		return Release{}, false, err
	}
	rel, ok := m.release(req.Version)
	return rel, ok, nil
}

// SelfProvider reads a manifest from the addon's own update link.
type SelfProvider struct {
	Fetcher Fetcher
}

// Check implements Provider.
func (p SelfProvider) Check(ctx context.Context, req Request) (Release, bool, error) {
	if req.UpdateLink == "" {
		return Release{}, false, nil
	}
	m, err := fetchManifest(ctx, p.Fetcher, req.UpdateLink)
	if err != nil {
		return Release{}, false, err
	}
	rel, ok := m.release(req.Version)
	return rel, ok, nil
}

// githubRelease is the subset of the GitHub releases API the provider reads.
type githubRelease struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
	Assets     []struct {
		Name string `json:"name"`
		URL  string `json:"browser_download_url"`
	} `json:"assets"`
}

// GitHubProvider checks the releases of the repository in the update link.
type GitHubProvider struct {
	Fetcher Fetcher
}

// Check implements Provider. Tags are compared as semantic versions
// against major.minor.build of the installed addon; prereleases are only
// considered when the request allows them.
func (p GitHubProvider) Check(ctx context.Context, req Request) (Release, bool, error) {
	repo := strings.Trim(strings.TrimPrefix(req.UpdateLink, "https://github.com/"), "/")
	if repo == "" {
		return Release{}, false, nil
	}
	raw, err := p.Fetcher.Get(ctx, "repos/"+repo+"/releases")
	if err != nil {
		return Release{}, false, err
	}
	var releases []githubRelease
	if err := json.Unmarshal(raw, &releases); err != nil {
		return Release{}, false, oops.Code(CodeCheckFailed).With("repo", repo).Wrapf(err, "decode releases")
	}

	current := semver.New(uint64(req.Version.Major), uint64(req.Version.Minor), uint64(req.Version.Build), "", "")
	var (
		best    *semver.Version
		bestRel githubRelease
	)
	for _, r := range releases {
		if r.Draft || (r.Prerelease && !req.AllowPrereleases) {
			continue
		}
		v, err := semver.NewVersion(r.TagName)
		if err != nil {
			continue
		}
		if v.Prerelease() != "" && !req.AllowPrereleases {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRel = v, r
		}
	}
	if best == nil || !best.GreaterThan(current) {
		return Release{}, false, nil
	}

	url := ""
	ext := filepath.Ext(req.Path)
	for _, a := range bestRel.Assets {
		if strings.EqualFold(filepath.Ext(a.Name), ext) {
			url = a.URL
			break
		}
	}
	if url == "" {
		return Release{}, false, nil
	}
	return Release{
		Version: module.Version{
			Major: uint16(best.Major()),
			Minor: uint16(best.Minor()),
			Build: uint16(best.Patch()),
		},
		URL: url,
	}, true, nil
}

// DirectProvider compares the installed file against the digest published
// at the update link plus ".md5sum".
type DirectProvider struct {
	Fetcher Fetcher
}

// Check implements Provider.
func (p DirectProvider) Check(ctx context.Context, req Request) (Release, bool, error) {
	if req.UpdateLink == "" {
		return Release{}, false, nil
	}
	tmp, err := os.CreateTemp("", "nexus-md5sum-*")
	if err != nil {
		return Release{}, false, oops.Code(CodeCheckFailed).Wrap(err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	defer func() { _ = os.Remove(name) }()

	if err := p.Fetcher.Download(ctx, name, req.UpdateLink+".md5sum"); err != nil {
		return Release{}, false, err
	}
	data, err := os.ReadFile(name) //nolint:gosec // temp file created above
	if err != nil {
		return Release{}, false, oops.Code(CodeCheckFailed).Wrap(err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return Release{}, false, oops.Code(CodeCheckFailed).
			With("link", req.UpdateLink).
			Errorf("empty md5sum")
	}
	remote := strings.ToLower(fields[0])
	if strings.EqualFold(remote, req.ContentHash) {
		return Release{}, false, nil
	}
	return Release{URL: req.UpdateLink, MD5: remote}, true, nil
}

var (
	_ Provider = RaidcoreProvider{}
	_ Provider = SelfProvider{}
	_ Provider = GitHubProvider{}
	_ Provider = DirectProvider{}
)
