// File path: internal/version/semver.go

// Package version numbers, records, and mirrors project snapshots. A
// version is immutable once written; every revision mints a new one.
package version

import (
	"fmt"
	"regexp"
	"strconv"
)

var versionPattern = regexp.MustCompile(`^v(\d+)\.(\d+)$`)

// Parse splits a v<major>.<minor> string. The boolean is false for
// anything that does not match the format.
func Parse(s string) (major, minor int, ok bool) {
	match := versionPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, 0, false
	}
	major, _ = strconv.Atoi(match[1])
	minor, _ = strconv.Atoi(match[2])
	return major, minor, true
}

// Next computes the version number that follows last. An empty or
// unparseable last resets the sequence to v1.0. A minor bump increments
// the minor component; a major bump increments major and zeroes minor.
func Next(last string, isMajor bool) string {
	major, minor, ok := Parse(last)
	if !ok {
		return "v1.0"
	}
	if isMajor {
		return fmt.Sprintf("v%d.0", major+1)
	}
	return fmt.Sprintf("v%d.%d", major, minor+1)
}
