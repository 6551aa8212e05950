package manager

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOverride is returned when SCOUT_BINARY_PATH is set but the
// path fails validation. An override expresses operator intent, so the
// failure is fatal and never falls through to other sources.
var ErrInvalidOverride = errors.New("override binary failed validation")

// NoCompatibleReleaseError is returned when no listed release falls
// inside the configured target range.
type NoCompatibleReleaseError struct {
	TargetRange string
	Available   []string
}

func (e *NoCompatibleReleaseError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("no release compatible with %s (registry returned no releases)", e.TargetRange)
	}
	return fmt.Sprintf("no release compatible with %s (available: %s)",
		e.TargetRange, strings.Join(e.Available, ", "))
}

// NoMatchingAssetError is returned when a selected release carries no
// asset for this platform. The expected filename is part of the message
// so a missing build is diagnosable from the error alone.
type NoMatchingAssetError struct {
	AssetName string
	Tag       string
}

func (e *NoMatchingAssetError) Error() string {
	return fmt.Sprintf("release %s has no asset named %s", e.Tag, e.AssetName)
}
