// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Nexus Contributors

package update

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/oops"

	"github.com/RaidcoreGG/Nexus-sub000/internal/addon/module"
)

// Orchestrator selects the provider for each request and stages what it
// downloads. It never touches the installed file itself.
type Orchestrator struct {
	providers  map[module.Provider]Provider
	downloader Fetcher
	logger     *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithProvider registers p for kind.
func WithProvider(kind module.Provider, p Provider) Option {
	return func(o *Orchestrator) {
		o.providers[kind] = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an orchestrator downloading through downloader.
func NewOrchestrator(downloader Fetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		providers:  make(map[module.Provider]Provider),
		downloader: downloader,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sources are the fetchers for each kind of update source.
type Sources struct {
	Raidcore Fetcher
	GitHub   Fetcher
	Web      Fetcher
}

// NewDefaultOrchestrator registers all four providers.
func NewDefaultOrchestrator(src Sources, opts ...Option) *Orchestrator {
	base := []Option{
		WithProvider(module.ProviderRaidcore, RaidcoreProvider{Fetcher: src.Raidcore}),
		WithProvider(module.ProviderGitHub, GitHubProvider{Fetcher: src.GitHub}),
		WithProvider(module.ProviderDirect, DirectProvider{Fetcher: src.Web}),
		WithProvider(module.ProviderSelf, SelfProvider{Fetcher: src.Web}),
	}
	return NewOrchestrator(src.Web, append(base, opts...)...)
}

// Check asks the addon's provider for a newer build and stages it at
// req.Path+UpdateSuffix. Requests without a known provider report no update.
func (o *Orchestrator) Check(ctx context.Context, req Request) Result {
	res := Result{Path: req.Path, Provider: req.Provider}
	p, ok := o.providers[req.Provider]
	if !ok {
		return res
	}

	rel, newer, err := p.Check(ctx, req)
	if err != nil {
		res.Err = oops.Code(CodeCheckFailed).
			With("addon", req.Name).
			With("provider", req.Provider.String()).
			Wrap(err)
		return res
	}
	if !newer {
		o.logger.Debug("addon is up to date", "addon", req.Name, "provider", req.Provider.String())
		return res
	}

	staged, err := o.stage(ctx, req, rel)
	if err != nil {
		res.Err = err
		return res
	}
	res.Available = staged
	res.Version = rel.Version
	return res
}

func (o *Orchestrator) stage(ctx context.Context, req Request, rel Release) (bool, error) {
	part := req.Path + PartSuffix
	if err := o.downloader.Download(ctx, part, rel.URL); err != nil {
		return false, oops.Code(CodeDownloadFailed).
			With("addon", req.Name).
			With("url", rel.URL).
			Wrap(err)
	}

	discard := func() { _ = os.Remove(part) }

	info, err := os.Stat(part)
	if err != nil || info.Size() == 0 {
		discard()
		return false, oops.Code(CodeInvalidDownload).
			With("addon", req.Name).
			With("url", rel.URL).
			Errorf("downloaded file is empty")
	}
	sum, err := HashFile(part)
	if err != nil {
		discard()
		return false, err
	}
	if rel.MD5 != "" && !strings.EqualFold(sum, rel.MD5) {
		discard()
		return false, oops.Code(CodeInvalidDownload).
			With("addon", req.Name).
			With("expected", rel.MD5).
			With("actual", sum).
			Errorf("downloaded file digest mismatch")
	}
	if strings.EqualFold(sum, req.ContentHash) {
		discard()
		return false, nil
	}
	if err := os.Rename(part, req.Path+UpdateSuffix); err != nil {
		discard()
		return false, oops.Code(CodeDownloadFailed).With("addon", req.Name).Wrap(err)
	}
	o.logger.Info("update staged",
		"addon", req.Name,
		"from", req.Version.String(),
		"to", rel.Version.String())
	return true, nil
}
