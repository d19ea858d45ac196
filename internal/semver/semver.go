// Package semver parses and orders the three-component server version
// PostgreSQL reports via SHOW SERVER_VERSION, grounded on
// original_source/psqlpack/src/model/capabilities.rs's Semver type.
package semver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/psqlpack/psqlpack/internal/perrors"
)

// Semver is a major.minor.patch version triple. PostgreSQL's
// SERVER_VERSION is usually "major.minor" (patch omitted means 0) or
// "major.minor.patch", and sometimes carries a suffix like "14.2 (Debian
// 14.2-1.pgdg110+1)" that is ignored past the first whitespace.
type Semver struct {
	Major int
	Minor int
	Patch int
}

// Parse converts a SHOW SERVER_VERSION string into a Semver. Unlike the
// original implementation's FromSql impl (which called .unwrap() and
// panicked on anything unexpected), a malformed string surfaces a
// FormatError (spec §9 Open Questions).
func Parse(raw string) (Semver, error) {
	field := strings.Fields(raw)
	if len(field) == 0 {
		return Semver{}, perrors.NewFormatError("SERVER_VERSION", "empty version string", nil)
	}
	parts := strings.SplitN(field[0], ".", 3)

	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Semver{}, perrors.NewFormatError("SERVER_VERSION", fmt.Sprintf("invalid major version in %q", raw), err)
	}

	minor := 0
	if len(parts) > 1 {
		minor, err = strconv.Atoi(parts[1])
		if err != nil {
			return Semver{}, perrors.NewFormatError("SERVER_VERSION", fmt.Sprintf("invalid minor version in %q", raw), err)
		}
	}

	patch := 0
	if len(parts) > 2 {
		patch, err = strconv.Atoi(parts[2])
		if err != nil {
			return Semver{}, perrors.NewFormatError("SERVER_VERSION", fmt.Sprintf("invalid patch version in %q", raw), err)
		}
	}

	return Semver{Major: major, Minor: minor, Patch: patch}, nil
}

// Compare returns -1, 0, or 1 following the usual ordering on
// (Major, Minor, Patch) tuples.
func (v Semver) Compare(other Semver) int {
	if v.Major != other.Major {
		return sign(v.Major - other.Major)
	}
	if v.Minor != other.Minor {
		return sign(v.Minor - other.Minor)
	}
	return sign(v.Patch - other.Patch)
}

func (v Semver) Less(other Semver) bool { return v.Compare(other) < 0 }

func (v Semver) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
