package manager

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/scout-sh/scoutbin/internal/cache"
	"github.com/scout-sh/scoutbin/internal/platform"
	"github.com/scout-sh/scoutbin/internal/registry"
	"github.com/scout-sh/scoutbin/internal/semver"
)

// Install performs a full download-and-install: select a release, find
// the platform asset, stream it into the cache directory, extract the
// executable, re-validate it, and only then persist metadata. Any
// failure before the metadata write leaves no partial-success state
// observable to a later resolution call.
func (m *Manager) Install(ctx context.Context, opts Options) (string, error) {
	desc, err := platform.Resolve()
	if err != nil {
		return "", err
	}

	release, err := m.selectRelease(ctx, opts.Version)
	if err != nil {
		return "", err
	}

	assetName := desc.AssetName(m.cfg.BinaryName, release.Version())
	asset := release.FindAsset(assetName)
	if asset == nil {
		return "", &NoMatchingAssetError{AssetName: assetName, Tag: release.TagName}
	}

	if err := os.MkdirAll(m.store.BinDir(), 0o755); err != nil {
		return "", fmt.Errorf("manager: prepare cache dir: %w", err)
	}

	archivePath := m.store.ArchivePath(assetName)
	logrus.WithFields(logrus.Fields{
		"version": release.Version(),
		"asset":   assetName,
	}).Info("downloading release asset")

	if err := m.fetcher.Download(ctx, asset, archivePath, opts.OnProgress); err != nil {
		os.Remove(archivePath)
		return "", err
	}

	exeName := desc.ExecutableName(m.cfg.BinaryName)
	if err := m.fetcher.ExtractExecutable(archivePath, m.store.BinDir(), exeName); err != nil {
		os.Remove(archivePath)
		return "", err
	}
	os.Remove(archivePath)

	binPath := m.store.BinaryPath(exeName)
	if !m.Valid(ctx, binPath) {
		return "", fmt.Errorf("manager: installed binary %s failed validation", binPath)
	}

	now := m.now()
	meta := &cache.Metadata{
		Version:         release.Version(),
		InstalledAt:     now,
		LastUpdateCheck: now,
		Source:          cache.SourceDownload,
	}
	if err := m.store.Save(meta); err != nil {
		return "", err
	}

	m.setResolved(binPath)
	logrus.WithField("version", release.Version()).Info("installed scout binary")
	return binPath, nil
}

// Refresh brings the cached install up to the best currently-available
// compatible version. When nothing newer exists and no refresh is
// forced, only the last-checked timestamp moves.
func (m *Manager) Refresh(ctx context.Context, opts Options) (string, error) {
	meta, err := m.store.Load()
	if err != nil {
		return "", err
	}
	if meta == nil {
		return m.Install(ctx, opts)
	}

	target := opts.Version
	if target == "" {
		best, err := m.bestAvailable(ctx)
		if err != nil {
			return "", err
		}
		target = best
	}

	if semver.Compare(target, meta.Version) == 0 && !opts.ForceRefresh {
		if err := m.store.Touch(m.now()); err != nil {
			return "", err
		}
		return m.store.BinaryPath(m.exeName()), nil
	}

	return m.Install(ctx, Options{Version: target, OnProgress: opts.OnProgress})
}

// updateOutcome makes the best-effort background update's result
// explicit: the caller examines it and deliberately discards failures.
type updateOutcome struct {
	path string
	err  error
}

func (m *Manager) tryUpdate(ctx context.Context) updateOutcome {
	path, err := m.Refresh(ctx, Options{})
	return updateOutcome{path: path, err: err}
}

// selectRelease picks the exact pinned release, or the highest release
// compatible with the target range from the stable listing.
func (m *Manager) selectRelease(ctx context.Context, pinned string) (*registry.Release, error) {
	if pinned != "" {
		return m.registry.ReleaseByTag(ctx, pinned)
	}

	releases, err := m.registry.ListReleases(ctx)
	if err != nil {
		return nil, err
	}

	versions := make([]string, 0, len(releases))
	for _, rel := range releases {
		versions = append(versions, rel.Version())
	}

	best, ok := semver.SelectHighestCompatible(versions, m.cfg.TargetRange)
	if !ok {
		return nil, &NoCompatibleReleaseError{TargetRange: m.cfg.TargetRange, Available: versions}
	}

	for i := range releases {
		if releases[i].Version() == best {
			return &releases[i], nil
		}
	}
	// Unreachable: best came from the same listing.
	return nil, &NoCompatibleReleaseError{TargetRange: m.cfg.TargetRange, Available: versions}
}

// bestAvailable returns the highest compatible version in the current
// stable listing.
func (m *Manager) bestAvailable(ctx context.Context) (string, error) {
	releases, err := m.registry.ListReleases(ctx)
	if err != nil {
		return "", err
	}
	versions := make([]string, 0, len(releases))
	for _, rel := range releases {
		versions = append(versions, rel.Version())
	}
	best, ok := semver.SelectHighestCompatible(versions, m.cfg.TargetRange)
	if !ok {
		return "", &NoCompatibleReleaseError{TargetRange: m.cfg.TargetRange, Available: versions}
	}
	return best, nil
}
