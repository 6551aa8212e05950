package manager_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scout-sh/scoutbin/internal/cache"
	"github.com/scout-sh/scoutbin/internal/config"
	"github.com/scout-sh/scoutbin/internal/installer"
	"github.com/scout-sh/scoutbin/internal/manager"
	"github.com/scout-sh/scoutbin/internal/platform"
	"github.com/scout-sh/scoutbin/internal/registry"
)

type fakeRegistry struct {
	releases  []registry.Release
	listErr   error
	listCalls int
	tagCalls  int
}

func (f *fakeRegistry) ListReleases(ctx context.Context) ([]registry.Release, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.releases, nil
}

func (f *fakeRegistry) ReleaseByTag(ctx context.Context, tag string) (*registry.Release, error) {
	f.tagCalls++
	want := "v" + trimV(tag)
	for i := range f.releases {
		if f.releases[i].TagName == want {
			return &f.releases[i], nil
		}
	}
	return nil, &registry.StatusError{Code: 404, URL: tag}
}

func trimV(tag string) string {
	if len(tag) > 0 && tag[0] == 'v' {
		return tag[1:]
	}
	return tag
}

type fakeFetcher struct {
	downloads int
	extracted int
	failWith  error
}

func (f *fakeFetcher) Download(ctx context.Context, asset *registry.Asset, destPath string, onProgress installer.ProgressFunc) error {
	f.downloads++
	if f.failWith != nil {
		return f.failWith
	}
	if onProgress != nil {
		onProgress(installer.Progress{Downloaded: asset.Size, Total: asset.Size, Percent: 100})
	}
	return os.WriteFile(destPath, []byte("archive"), 0o644)
}

func (f *fakeFetcher) ExtractExecutable(archivePath, destDir, exeName string) error {
	f.extracted++
	return os.WriteFile(filepath.Join(destDir, exeName), []byte("#!/bin/sh\n"), 0o755)
}

type fakeRunner struct {
	versions map[string]string
	fallback string
}

func (f *fakeRunner) Run(ctx context.Context, path string, args ...string) ([]byte, error) {
	v, ok := f.versions[path]
	if !ok {
		v = f.fallback
	}
	if v == "" {
		return nil, errors.New("exec failed")
	}
	return []byte(fmt.Sprintf("scout version %s (linux/amd64)", v)), nil
}

func noGlobal(string) (string, error) {
	return "", errors.New("not found")
}

// release builds a stable release carrying the asset for the test host.
func release(t *testing.T, version string) registry.Release {
	t.Helper()
	desc, err := platform.Resolve()
	require.NoError(t, err)
	return registry.Release{
		TagName: "v" + version,
		Assets: []registry.Asset{{
			Name:               desc.AssetName("scout", version),
			BrowserDownloadURL: "https://releases.example/" + version,
			Size:               1024,
		}},
	}
}

type testEnv struct {
	mgr      *manager.Manager
	cfg      *config.Config
	store    *cache.Store
	registry *fakeRegistry
	fetcher  *fakeFetcher
	runner   *fakeRunner
	now      time.Time
}

func newTestEnv(t *testing.T, releases ...registry.Release) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		Repository:             "scout-sh/scout",
		BinaryName:             "scout",
		TargetRange:            "1.4",
		UpdateCheckDays:        7,
		CacheDir:               dir,
		RequestTimeoutSeconds:  5,
		DownloadTimeoutMinutes: 1,
		ExecTimeoutSeconds:     5,
	}
	env := &testEnv{
		cfg:      cfg,
		store:    cache.NewStore(dir),
		registry: &fakeRegistry{releases: releases},
		fetcher:  &fakeFetcher{},
		runner:   &fakeRunner{fallback: "1.4.2", versions: map[string]string{}},
		now:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	env.mgr = manager.New(cfg,
		manager.WithRegistry(env.registry),
		manager.WithFetcher(env.fetcher),
		manager.WithRunner(env.runner),
		manager.WithLookPath(noGlobal),
		manager.WithClock(func() time.Time { return env.now }),
	)
	return env
}

// seedCache plants a valid cached binary plus metadata, as if a prior
// install had completed.
func (env *testEnv) seedCache(t *testing.T, version string, lastCheck time.Time) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(env.store.BinDir(), 0o755))
	path := env.store.BinaryPath("scout")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755))
	env.runner.versions[path] = version
	require.NoError(t, env.store.Save(&cache.Metadata{
		Version:         version,
		InstalledAt:     lastCheck,
		LastUpdateCheck: lastCheck,
		Source:          cache.SourceDownload,
	}))
	return path
}

func TestResolveInvalidOverrideIsFatal(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))
	env.cfg.OverridePath = filepath.Join(t.TempDir(), "missing-scout")

	_, err := env.mgr.Resolve(context.Background(), manager.Options{})
	require.ErrorIs(t, err, manager.ErrInvalidOverride)

	// No fallback: neither registry nor installer may be touched.
	assert.Zero(t, env.registry.listCalls)
	assert.Zero(t, env.registry.tagCalls)
	assert.Zero(t, env.fetcher.downloads)
}

func TestResolveValidOverrideWins(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))
	override := filepath.Join(t.TempDir(), "scout")
	require.NoError(t, os.WriteFile(override, []byte("#!/bin/sh\n"), 0o755))
	// An override skips the compatibility check entirely: operator says
	// use this, whatever its version.
	env.runner.versions[override] = "9.9.9"
	env.cfg.OverridePath = override

	path, err := env.mgr.Resolve(context.Background(), manager.Options{})
	require.NoError(t, err)
	assert.Equal(t, override, path)
	assert.Zero(t, env.registry.listCalls)
}

func TestResolveEmptyCacheInstalls(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t,
		release(t, "1.3.0"),
		release(t, "1.4.0"),
		release(t, "1.4.2"),
		release(t, "1.5.0"),
	)

	path, err := env.mgr.Resolve(context.Background(), manager.Options{})
	require.NoError(t, err)
	assert.Equal(t, env.store.BinaryPath("scout"), path)
	assert.Equal(t, 1, env.fetcher.downloads)
	assert.Equal(t, 1, env.fetcher.extracted)
	assert.True(t, env.mgr.Valid(context.Background(), path))

	meta, err := env.store.Load()
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "1.4.2", meta.Version, "highest compatible, not highest overall")
	assert.True(t, meta.InstalledAt.Equal(env.now))
	assert.True(t, meta.LastUpdateCheck.Equal(env.now))
	assert.Equal(t, cache.SourceDownload, meta.Source)
}

func TestResolveGlobalInstall(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))
	global := filepath.Join(t.TempDir(), "scout")
	require.NoError(t, os.WriteFile(global, []byte("#!/bin/sh\n"), 0o755))
	env.runner.versions[global] = "1.4.1"
	env.mgr = manager.New(env.cfg,
		manager.WithRegistry(env.registry),
		manager.WithFetcher(env.fetcher),
		manager.WithRunner(env.runner),
		manager.WithLookPath(func(string) (string, error) { return global, nil }),
	)

	path, err := env.mgr.Resolve(context.Background(), manager.Options{})
	require.NoError(t, err)
	assert.Equal(t, global, path)
	assert.Zero(t, env.fetcher.downloads)
}

func TestResolveIncompatibleGlobalFallsThrough(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))
	global := filepath.Join(t.TempDir(), "scout")
	require.NoError(t, os.WriteFile(global, []byte("#!/bin/sh\n"), 0o755))
	env.runner.versions[global] = "2.0.0"
	env.mgr = manager.New(env.cfg,
		manager.WithRegistry(env.registry),
		manager.WithFetcher(env.fetcher),
		manager.WithRunner(env.runner),
		manager.WithLookPath(func(string) (string, error) { return global, nil }),
		manager.WithClock(func() time.Time { return env.now }),
	)

	path, err := env.mgr.Resolve(context.Background(), manager.Options{})
	require.NoError(t, err)
	assert.NotEqual(t, global, path, "wrong major.minor is treated as absent")
	assert.Equal(t, 1, env.fetcher.downloads)
}

func TestResolveCachedBinary(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))
	cached := env.seedCache(t, "1.4.2", env.now.Add(-time.Hour))

	path, err := env.mgr.Resolve(context.Background(), manager.Options{})
	require.NoError(t, err)
	assert.Equal(t, cached, path)
	assert.Zero(t, env.fetcher.downloads)
	assert.Zero(t, env.registry.listCalls, "no update poll before the interval elapses")
}

func TestResolveSwallowsBackgroundUpdateFailure(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cached := env.seedCache(t, "1.4.1", env.now.Add(-30*24*time.Hour))
	env.registry.listErr = &registry.StatusError{Code: 503, URL: "list"}

	path, err := env.mgr.Resolve(context.Background(), manager.Options{})
	require.NoError(t, err, "availability beats freshness")
	assert.Equal(t, cached, path)
	assert.NotZero(t, env.registry.listCalls, "an update poll was due and attempted")
}

func TestResolveOpportunisticUpdateInstallsNewer(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))
	env.seedCache(t, "1.4.1", env.now.Add(-30*24*time.Hour))

	path, err := env.mgr.Resolve(context.Background(), manager.Options{})
	require.NoError(t, err)
	assert.Equal(t, env.store.BinaryPath("scout"), path)
	assert.Equal(t, 1, env.fetcher.downloads)

	meta, err := env.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", meta.Version)
}

func TestResolvePinnedSkipsOpportunisticUpdate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))
	cached := env.seedCache(t, "1.4.1", env.now.Add(-30*24*time.Hour))

	path, err := env.mgr.Resolve(context.Background(), manager.Options{Version: "1.4.1"})
	require.NoError(t, err)
	assert.Equal(t, cached, path)
	assert.Zero(t, env.registry.listCalls)
	assert.Zero(t, env.fetcher.downloads)
}

func TestInstallNoCompatibleRelease(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.3.0"), release(t, "2.0.0"))

	_, err := env.mgr.Install(context.Background(), manager.Options{})
	var noCompat *manager.NoCompatibleReleaseError
	require.ErrorAs(t, err, &noCompat)
	assert.Equal(t, "1.4", noCompat.TargetRange)
	assert.ElementsMatch(t, []string{"1.3.0", "2.0.0"}, noCompat.Available)
	assert.Contains(t, err.Error(), "1.4")
}

func TestInstallNoMatchingAsset(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, registry.Release{TagName: "v1.4.2"})

	_, err := env.mgr.Install(context.Background(), manager.Options{})
	var noAsset *manager.NoMatchingAssetError
	require.ErrorAs(t, err, &noAsset)

	desc, derr := platform.Resolve()
	require.NoError(t, derr)
	expected := desc.AssetName("scout", "1.4.2")
	assert.Equal(t, expected, noAsset.AssetName)
	assert.Contains(t, err.Error(), expected, "message must name the expected filename")
}

func TestInstallFailureWritesNoMetadata(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))
	env.fetcher.failWith = &installer.DownloadError{URL: "x", Status: 500}

	_, err := env.mgr.Install(context.Background(), manager.Options{})
	require.Error(t, err)

	meta, merr := env.store.Load()
	require.NoError(t, merr)
	assert.Nil(t, meta, "no partial-success state may be observable")
}

func TestInstallPinnedVersion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.0"), release(t, "1.4.2"))

	_, err := env.mgr.Install(context.Background(), manager.Options{Version: "1.4.0"})
	require.NoError(t, err)
	assert.Equal(t, 1, env.registry.tagCalls)
	assert.Zero(t, env.registry.listCalls)

	meta, err := env.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "1.4.0", meta.Version)
}

func TestRefreshIdempotentWhenUpToDate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))
	installed := env.now.Add(-10 * 24 * time.Hour)
	cached := env.seedCache(t, "1.4.2", installed)

	for i := 0; i < 2; i++ {
		path, err := env.mgr.Refresh(context.Background(), manager.Options{})
		require.NoError(t, err)
		assert.Equal(t, cached, path)
	}
	assert.Zero(t, env.fetcher.downloads, "no re-download of the same version")

	meta, err := env.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", meta.Version)
	assert.True(t, meta.InstalledAt.Equal(installed), "install timestamp untouched")
	assert.True(t, meta.LastUpdateCheck.Equal(env.now), "only the check timestamp moves")
}

func TestRefreshInstallsNewerVersion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.1"), release(t, "1.4.2"))
	env.seedCache(t, "1.4.1", env.now.Add(-10*24*time.Hour))

	path, err := env.mgr.Refresh(context.Background(), manager.Options{})
	require.NoError(t, err)
	assert.Equal(t, env.store.BinaryPath("scout"), path)
	assert.Equal(t, 1, env.fetcher.downloads)

	meta, err := env.store.Load()
	require.NoError(t, err)
	assert.Equal(t, "1.4.2", meta.Version)
}

func TestRefreshWithoutMetadataInstalls(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))

	path, err := env.mgr.Refresh(context.Background(), manager.Options{})
	require.NoError(t, err)
	assert.Equal(t, env.store.BinaryPath("scout"), path)
	assert.Equal(t, 1, env.fetcher.downloads)
}

func TestPurgeThenStatus(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))
	env.seedCache(t, "1.4.2", env.now)

	require.NoError(t, env.mgr.Purge())

	status := env.mgr.Status(context.Background())
	assert.False(t, status.Available)
	assert.Equal(t, manager.SourceNone, status.Source)
	assert.Empty(t, status.Path)
}

func TestStatusReportsCacheSource(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	cached := env.seedCache(t, "1.4.2", env.now)

	status := env.mgr.Status(context.Background())
	assert.True(t, status.Available)
	assert.Equal(t, manager.SourceCache, status.Source)
	assert.Equal(t, cached, status.Path)
	assert.Equal(t, "1.4.2", status.Version)
	assert.Zero(t, env.registry.listCalls, "status never touches the network")
}

func TestStatusReportsOverrideSource(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	override := filepath.Join(t.TempDir(), "scout")
	require.NoError(t, os.WriteFile(override, []byte("#!/bin/sh\n"), 0o755))
	env.runner.versions[override] = "1.4.3"
	env.cfg.OverridePath = override

	status := env.mgr.Status(context.Background())
	assert.True(t, status.Available)
	assert.Equal(t, manager.SourceOverride, status.Source)
	assert.Equal(t, "1.4.3", status.Version)
}

func TestResolveReinstallsWhenCachedBinaryVanishes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, release(t, "1.4.2"))
	cached := env.seedCache(t, "1.4.2", env.now)

	path, err := env.mgr.Resolve(context.Background(), manager.Options{})
	require.NoError(t, err)
	assert.Equal(t, cached, path)

	require.NoError(t, os.Remove(cached))

	path, err = env.mgr.Resolve(context.Background(), manager.Options{})
	require.NoError(t, err)
	assert.Equal(t, env.store.BinaryPath("scout"), path)
	assert.Equal(t, 1, env.fetcher.downloads, "stale resolved path was invalidated and reinstalled")
}

func TestInstalledVersionExtractsTriple(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	bin := filepath.Join(t.TempDir(), "scout")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))
	env.runner.versions[bin] = "1.4.7"

	version, ok := env.mgr.InstalledVersion(context.Background(), bin)
	require.True(t, ok)
	assert.Equal(t, "1.4.7", version)
}

func TestValidRejectsNonExecutable(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	bin := filepath.Join(t.TempDir(), "scout")
	require.NoError(t, os.WriteFile(bin, []byte("data"), 0o644))

	assert.False(t, env.mgr.Valid(context.Background(), bin))
}
