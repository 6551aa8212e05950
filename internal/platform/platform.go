// Package platform maps the running host onto the naming scheme the
// scout release registry uses for its assets.
package platform

import (
	"fmt"
	"runtime"
	"strings"
)

// ErrUnsupported is returned when the host OS or architecture has no
// registry mapping. Without a mapping no asset name can be computed, so
// this is a hard failure rather than a degraded mode.
var ErrUnsupported = fmt.Errorf("unsupported host platform")

// registryOS maps GOOS values to the registry's OS component.
var registryOS = map[string]string{
	"linux":   "linux",
	"darwin":  "darwin",
	"windows": "windows",
}

// registryArch maps GOARCH values (plus common uname spellings) to the
// registry's architecture component.
var registryArch = map[string]string{
	"amd64":   "amd64",
	"x86_64":  "amd64",
	"arm64":   "arm64",
	"aarch64": "arm64",
}

// Descriptor identifies the host and its registry-side naming.
type Descriptor struct {
	HostOS       string
	HostArch     string
	RegistryOS   string
	RegistryArch string
}

// Resolve computes the Descriptor for the current process. It is cheap
// and host identity cannot change mid-process, so callers just call it
// again rather than caching the result.
func Resolve() (Descriptor, error) {
	return resolve(runtime.GOOS, runtime.GOARCH)
}

func resolve(goos, goarch string) (Descriptor, error) {
	osName, ok := registryOS[goos]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: os %q", ErrUnsupported, goos)
	}
	archName, ok := registryArch[goarch]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: arch %q", ErrUnsupported, goarch)
	}
	return Descriptor{
		HostOS:       goos,
		HostArch:     goarch,
		RegistryOS:   osName,
		RegistryArch: archName,
	}, nil
}

// Supported reports whether Resolve would succeed, for callers that
// want to short-circuit before any network activity.
func Supported() bool {
	_, err := Resolve()
	return err == nil
}

// ArchiveExt returns the archive extension used for this platform's
// release assets.
func (d Descriptor) ArchiveExt() string {
	if d.RegistryOS == "windows" {
		return "zip"
	}
	return "tar.gz"
}

// AssetName returns the release asset filename for the given binary and
// version on this platform, e.g. "scout_1.4.1_darwin_arm64.tar.gz".
// A leading "v" on version is stripped first.
func (d Descriptor) AssetName(binaryName, version string) string {
	version = strings.TrimPrefix(version, "v")
	return fmt.Sprintf("%s_%s_%s_%s.%s", binaryName, version, d.RegistryOS, d.RegistryArch, d.ArchiveExt())
}

// ExecutableName returns the on-disk filename of the managed binary.
func (d Descriptor) ExecutableName(binaryName string) string {
	if d.RegistryOS == "windows" {
		return binaryName + ".exe"
	}
	return binaryName
}
