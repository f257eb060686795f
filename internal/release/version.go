package release

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidVersion is returned for versions that are not dotted numeric literals.
var ErrInvalidVersion = errors.New("version must be a dotted numeric literal")

var dottedVersion = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

// NormalizeVersion strips surrounding whitespace and a single leading "v"
// and checks that the rest is a dotted numeric version such as 1.2.3.
func NormalizeVersion(raw string) (string, error) {
	version := strings.TrimSpace(raw)
	if strings.HasPrefix(version, "v") || strings.HasPrefix(version, "V") {
		version = version[1:]
	}

	if !dottedVersion.MatchString(version) {
		return "", fmt.Errorf("%q: %w", raw, ErrInvalidVersion)
	}

	return version, nil
}

// ValidateVersion checks that version is already a dotted numeric literal, without a "v" prefix.
func ValidateVersion(version string) error {
	if !dottedVersion.MatchString(version) {
		return fmt.Errorf("%q: %w", version, ErrInvalidVersion)
	}

	return nil
}

// Tag returns the git tag of a normalized version.
func Tag(version string) string {
	return "v" + version
}
