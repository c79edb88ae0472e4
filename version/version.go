// Package version holds the solbuild compiler version. It is written into the CBOR metadata of runtime objects and
// checked on the worker protocol, so a dispatcher only hands units to workers of a compatible release.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
)

// Version is the semantic version of the compiler. It can be overridden with -ldflags at build time.
var Version = "0.1.0"

// CheckCompatible returns an error if a peer running the given version cannot exchange units with this build. Peers
// are compatible when they satisfy a caret constraint on Version.
func CheckCompatible(peer string) error {
	constraint, err := semver.NewConstraint("^" + Version)
	if err != nil {
		return errors.Wrapf(err, "invalid compiler version '%s'", Version)
	}
	parsed, err := semver.NewVersion(peer)
	if err != nil {
		return errors.Wrapf(err, "invalid peer version '%s'", peer)
	}
	if !constraint.Check(parsed) {
		return errors.Errorf("compiler version %s is incompatible with version %s", peer, Version)
	}
	return nil
}

// Revision returns the short VCS revision the binary was built from, suffixed with "-dirty" for modified trees. It is
// empty when the binary carries no VCS information.
func Revision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var revision string
	var dirty bool
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && dirty {
		revision += "-dirty"
	}
	return revision
}

// Short returns the version followed by the VCS revision, if known.
func Short() string {
	if revision := Revision(); revision != "" {
		return Version + "+" + revision
	}
	return Version
}

// String returns the version line printed by the version command.
func String() string {
	return fmt.Sprintf("solbuild version %s (%s)", Short(), runtime.Version())
}
