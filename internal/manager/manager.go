// Package manager orchestrates resolution, installation and updating of
// the managed scout binary across its four sources: environment
// override, system-global install, local cache, and fresh download.
package manager

import (
	"context"
	"net/http"
	"os/exec"
	"sync"
	"time"

	"github.com/scout-sh/scoutbin/internal/cache"
	"github.com/scout-sh/scoutbin/internal/config"
	"github.com/scout-sh/scoutbin/internal/installer"
	"github.com/scout-sh/scoutbin/internal/platform"
	"github.com/scout-sh/scoutbin/internal/registry"
)

// versionFlag is the argument passed to the managed binary to make it
// report its version.
const versionFlag = "--version"

// Registry is the manager-facing slice of the registry client.
type Registry interface {
	ListReleases(ctx context.Context) ([]registry.Release, error)
	ReleaseByTag(ctx context.Context, tag string) (*registry.Release, error)
}

// Fetcher is the manager-facing slice of the installer.
type Fetcher interface {
	Download(ctx context.Context, asset *registry.Asset, destPath string, onProgress installer.ProgressFunc) error
	ExtractExecutable(archivePath, destDir, exeName string) error
}

// Options configures a single resolve/install/refresh call.
type Options struct {
	// ForceRefresh bypasses the cached binary and forces a fresh install.
	ForceRefresh bool
	// Version pins an exact release version instead of the highest
	// compatible one. Pinning also suppresses opportunistic updates.
	Version string
	// OnProgress receives download progress during installs.
	OnProgress installer.ProgressFunc
}

// Manager composes the registry client, installer, cache store and
// version-query runner into the resolution policy. The in-memory
// resolved-path cache is the only mutable shared state and is owned
// exclusively here.
type Manager struct {
	cfg      *config.Config
	store    *cache.Store
	registry Registry
	fetcher  Fetcher
	runner   Runner
	lookPath func(string) (string, error)
	now      func() time.Time

	mu       sync.Mutex
	resolved string
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry substitutes the release registry client.
func WithRegistry(r Registry) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithFetcher substitutes the artifact installer.
func WithFetcher(f Fetcher) Option {
	return func(m *Manager) {
		if f != nil {
			m.fetcher = f
		}
	}
}

// WithRunner substitutes the version-query subprocess runner.
func WithRunner(r Runner) Option {
	return func(m *Manager) {
		if r != nil {
			m.runner = r
		}
	}
}

// WithLookPath substitutes the executable search-path lookup.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(m *Manager) {
		if fn != nil {
			m.lookPath = fn
		}
	}
}

// WithClock substitutes the time source.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// New creates a Manager for cfg. Without options it talks to the real
// registry, filesystem and subprocesses.
func New(cfg *config.Config, opts ...Option) *Manager {
	var registryOpts []registry.Option
	var installerOpts []installer.Option
	if cfg.RequestTimeout() > 0 {
		registryOpts = append(registryOpts, registry.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}))
	}
	if cfg.DownloadTimeout() > 0 {
		installerOpts = append(installerOpts, installer.WithHTTPClient(&http.Client{Timeout: cfg.DownloadTimeout()}))
	}

	m := &Manager{
		cfg:      cfg,
		store:    cache.NewStore(cfg.CacheDir),
		registry: registry.NewClient(cfg.Repository, registryOpts...),
		fetcher:  installer.New(installerOpts...),
		runner:   execRunner{},
		lookPath: exec.LookPath,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CacheDir returns the cache root in use.
func (m *Manager) CacheDir() string { return m.store.Root() }

func (m *Manager) exeName() string {
	// The executable name only varies by OS suffix; a platform resolve
	// failure here would already have failed any install path.
	if desc, err := platform.Resolve(); err == nil {
		return desc.ExecutableName(m.cfg.BinaryName)
	}
	return m.cfg.BinaryName
}

func (m *Manager) getResolved() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolved
}

func (m *Manager) setResolved(path string) {
	m.mu.Lock()
	m.resolved = path
	m.mu.Unlock()
}

// invalidate clears the resolved-path cache, forcing re-resolution from
// scratch on the next call.
func (m *Manager) invalidate() {
	m.setResolved("")
}
