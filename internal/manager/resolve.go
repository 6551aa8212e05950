package manager

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/scout-sh/scoutbin/internal/semver"
)

// versionOutputRe extracts a version triple from version-query output.
var versionOutputRe = regexp.MustCompile(`\d+\.\d+\.\d+`)

// Source names for Status.
const (
	SourceOverride = "override"
	SourceGlobal   = "global"
	SourceCache    = "cache"
	SourceNone     = "none"
)

// Status is a read-only snapshot of the current resolution state.
type Status struct {
	Available bool
	Path      string
	Version   string
	Source    string
}

// Resolve returns a usable path to the managed binary, trying the
// override, a system-global install, the local cache, and finally a
// fresh download, in that order. Each source short-circuits on success.
func (m *Manager) Resolve(ctx context.Context, opts Options) (string, error) {
	// An explicit override is checked before anything else, including
	// the in-memory cache: its failure must be fatal, not bypassed.
	if m.cfg.OverridePath != "" {
		if !m.Valid(ctx, m.cfg.OverridePath) {
			m.invalidate()
			return "", fmt.Errorf("%w: %s", ErrInvalidOverride, m.cfg.OverridePath)
		}
		m.setResolved(m.cfg.OverridePath)
		return m.cfg.OverridePath, nil
	}

	if !opts.ForceRefresh {
		if path := m.getResolved(); path != "" {
			if m.usable(ctx, path) {
				return path, nil
			}
			m.invalidate()
		}
	}

	if path, err := m.lookPath(m.exeName()); err == nil {
		// A global binary of the wrong major.minor is treated as
		// absent, not as an error.
		if m.usable(ctx, path) {
			m.setResolved(path)
			return path, nil
		}
	}

	cached := m.store.BinaryPath(m.exeName())
	if !opts.ForceRefresh && m.usable(ctx, cached) {
		if opts.Version == "" && m.updateDue() {
			outcome := m.tryUpdate(ctx)
			if outcome.err != nil {
				// Best effort: availability beats freshness.
				logrus.WithError(outcome.err).Warn("background update failed, keeping cached binary")
			}
		}
		m.setResolved(cached)
		return cached, nil
	}

	return m.Install(ctx, opts)
}

// Status reports the current resolution state without downloading
// anything. Safe to call frequently.
func (m *Manager) Status(ctx context.Context) Status {
	if m.cfg.OverridePath != "" {
		if m.Valid(ctx, m.cfg.OverridePath) {
			version, _ := m.InstalledVersion(ctx, m.cfg.OverridePath)
			return Status{Available: true, Path: m.cfg.OverridePath, Version: version, Source: SourceOverride}
		}
		// Resolution would fail fatally here, so status mirrors that.
		return Status{Source: SourceNone}
	}

	if path, err := m.lookPath(m.exeName()); err == nil {
		if version, ok := m.compatibleVersion(ctx, path); ok {
			return Status{Available: true, Path: path, Version: version, Source: SourceGlobal}
		}
	}

	cached := m.store.BinaryPath(m.exeName())
	if version, ok := m.compatibleVersion(ctx, cached); ok {
		return Status{Available: true, Path: cached, Version: version, Source: SourceCache}
	}

	return Status{Source: SourceNone}
}

// Valid reports whether path is a usable binary: it exists, is
// executable for the current user, and reports a parseable version when
// invoked. This behavioral check is the system's only trust mechanism.
func (m *Manager) Valid(ctx context.Context, path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return false
	}
	_, ok := m.InstalledVersion(ctx, path)
	return ok
}

// InstalledVersion runs the version query against path and extracts the
// reported version. The second return value is false on any execution
// failure, timeout, or unparsable output; never an error.
func (m *Manager) InstalledVersion(ctx context.Context, path string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ExecTimeout())
	defer cancel()

	out, err := m.runner.Run(ctx, path, versionFlag)
	if err != nil {
		return "", false
	}
	match := versionOutputRe.FindString(string(out))
	if match == "" {
		return "", false
	}
	return match, true
}

// Purge removes the cache tree and metadata. The in-memory resolved
// path is cleared regardless of the filesystem outcome.
func (m *Manager) Purge() error {
	defer m.invalidate()
	return m.store.Purge()
}

// usable combines validity and target-range compatibility.
func (m *Manager) usable(ctx context.Context, path string) bool {
	_, ok := m.compatibleVersion(ctx, path)
	return ok
}

// compatibleVersion returns the binary's reported version when path is
// valid and inside the configured target range.
func (m *Manager) compatibleVersion(ctx context.Context, path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
		return "", false
	}
	version, ok := m.InstalledVersion(ctx, path)
	if !ok {
		return "", false
	}
	if !semver.IsCompatible(version, m.cfg.TargetRange) {
		return "", false
	}
	return version, true
}

// updateDue reports whether an opportunistic update poll should run:
// true when metadata is missing or the configured interval has elapsed
// since the last check. Metadata read errors count as due.
func (m *Manager) updateDue() bool {
	meta, err := m.store.Load()
	if err != nil || meta == nil {
		return true
	}
	return m.now().Sub(meta.LastUpdateCheck) >= m.cfg.UpdateCheckInterval()
}
