package parser

import (
	"strconv"

	"github.com/Masterminds/semver/v3"

	"deopt/grammar"
	"deopt/internal/errors"
)

// CurrentVersion is the format version written by this toolchain
const CurrentVersion = "1.0.0"

// SupportedVersions is the range of format versions this toolchain reads
const SupportedVersions = ">= 1.0.0, < 2.0.0"

var supported = mustConstraint(SupportedVersions)

func mustConstraint(expr string) *semver.Constraints {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		panic(err)
	}
	return c
}

// checkVersion validates the version header and returns the version text without quotes.
// A file without a header is accepted as the current version.
func checkVersion(v *grammar.Version) (string, []errors.CompilerError) {
	if v == nil {
		return "", nil
	}
	pos := position(v.Pos)

	text, err := strconv.Unquote(v.Value)
	if err != nil {
		return "", []errors.CompilerError{errors.InvalidVersion(v.Value, pos, err)}
	}
	version, err := semver.NewVersion(text)
	if err != nil {
		return "", []errors.CompilerError{errors.InvalidVersion(text, pos, err)}
	}
	if !supported.Check(version) {
		return "", []errors.CompilerError{errors.UnsupportedVersion(text, SupportedVersions, pos)}
	}
	return text, nil
}

// SupportsVersion reports whether version is within SupportedVersions
func SupportsVersion(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return supported.Check(v)
}
