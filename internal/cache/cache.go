// Package cache owns the on-disk layout of the scout cache directory
// and the metadata record describing the installed binary.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// EnvCacheDir overrides the cache root location.
const EnvCacheDir = "SCOUT_CACHE_DIR"

// SourceDownload marks metadata written by the installer after a
// successful download.
const SourceDownload = "download"

// Metadata is the persisted record of what is installed and when it was
// last checked for updates. Its absence on disk means "never installed",
// which is a normal state and not an error.
type Metadata struct {
	Version         string    `json:"version"`
	InstalledAt     time.Time `json:"installed_at"`
	LastUpdateCheck time.Time `json:"last_update_check"`
	Source          string    `json:"source"`
}

// DefaultDir returns the cache root: the SCOUT_CACHE_DIR override when
// set, %LOCALAPPDATA%\scout on Windows, and ~/.scout elsewhere.
func DefaultDir() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir
	}
	if runtime.GOOS == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "scout")
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "scout")
	}
	return filepath.Join(home, ".scout")
}

// Store reads and writes the cache directory and its metadata file.
type Store struct {
	root string
	mu   sync.Mutex
}

// NewStore creates a Store rooted at dir, falling back to DefaultDir
// when dir is empty. The directory is not created until first write.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir()
	}
	return &Store{root: dir}
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// BinDir returns the directory holding the resident executable.
func (s *Store) BinDir() string { return filepath.Join(s.root, "bin") }

// BinaryPath returns the resident executable path for exeName.
func (s *Store) BinaryPath(exeName string) string {
	return filepath.Join(s.BinDir(), exeName)
}

// ArchivePath returns the transient download destination for an asset.
func (s *Store) ArchivePath(assetName string) string {
	return filepath.Join(s.BinDir(), assetName)
}

func (s *Store) metadataPath() string {
	return filepath.Join(s.root, "metadata.json")
}

// Load reads the metadata record. A missing file returns (nil, nil):
// callers must treat absence as a first-class outcome.
func (s *Store) Load() (*Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.metadataPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("cache: decode metadata: %w", err)
	}
	return &meta, nil
}

// Save replaces the metadata record as a whole file: write to a temp
// file in the same directory, then rename over the target so a reader
// never observes a partial record.
func (s *Store) Save(meta *Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("cache: create root: %w", err)
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: encode metadata: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, "metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: temp metadata: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("cache: write metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cache: close metadata: %w", err)
	}
	if err := os.Rename(tmpPath, s.metadataPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cache: replace metadata: %w", err)
	}
	return nil
}

// Touch updates only the last-update-check timestamp of an existing
// record. Missing metadata is a no-op.
func (s *Store) Touch(now time.Time) error {
	meta, err := s.Load()
	if err != nil {
		return err
	}
	if meta == nil {
		return nil
	}
	meta.LastUpdateCheck = now
	return s.Save(meta)
}

// Purge removes the entire cache tree, tolerating prior absence.
func (s *Store) Purge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.root); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cache: purge: %w", err)
	}
	return nil
}
