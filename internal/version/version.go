// Package version holds the build version.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version is set at build time with
// -ldflags "-X github.com/leandrodaf/midisynth/internal/version.Version=1.2.3".
var Version = "1.0.0"

// Parse validates v as a semantic version.
func Parse(v string) (*semver.Version, error) {
	sv, err := semver.NewVersion(v)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", v, err)
	}
	return sv, nil
}

// String returns the canonical form of Version, or Version unchanged with a
// "+invalid" marker when it does not parse.
func String() string {
	sv, err := Parse(Version)
	if err != nil {
		return Version + "+invalid"
	}
	return sv.String()
}

// Banner is the --version output.
func Banner(program string) string {
	return fmt.Sprintf("%s %s", program, String())
}
