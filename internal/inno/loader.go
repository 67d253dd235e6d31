// Package inno detects and decodes Inno Setup installers: the loader
// signature scan, versioned stream decompression, and a version-gated
// decode of a reduced Header field set (the counted tables that follow
// the header are not decoded).
package inno

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
)

// loaderMagicPrefix is the ASCII text Inno Setup embeds in its loader
// record, immediately followed by "(<version>)".
const loaderMagicPrefix = "Inno Setup Setup Data ("

// Version is an ordered (major, minor, patch, revision) tuple; Inno
// Setup releases such as 6.4.0.1 carry a fourth component, so revision
// is tracked in full rather than folded into patch (the newest known
// version bound below depends on it).
type Version struct {
	Major, Minor, Patch, Revision int
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than other, comparing components in order.
func (v Version) Compare(other Version) int {
	for _, pair := range [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
		{v.Revision, other.Revision},
	} {
		if pair[0] != pair[1] {
			if pair[0] < pair[1] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (v Version) String() string {
	if v.Revision == 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Revision)
}

// AtLeast reports whether v >= other.
func (v Version) AtLeast(major, minor, patch int, revision ...int) bool {
	rev := 0
	if len(revision) > 0 {
		rev = revision[0]
	}
	return v.Compare(Version{major, minor, patch, rev}) >= 0
}

// oldestSupported and newestKnown bound the version table this
// package has header-field gates for (spec.md §4.7's worked range).
var (
	oldestSupported = Version{1, 3, 0, 0}
	newestKnown     = Version{6, 4, 0, 1}
)

// Loader is the result of a successful signature scan: where in the
// blob the loader record starts and which schema variant to decode
// subsequent records with.
type Loader struct {
	Offset  int
	Version Version
}

// FindLoaderSignature scans v for the Inno Setup loader magic and
// parses its version tuple.
func FindLoaderSignature(v byteview.View) (Loader, error) {
	data := v.Bytes()
	idx := bytes.Index(data, []byte(loaderMagicPrefix))
	if idx < 0 {
		return Loader{}, &analysiserr.NotInnoFileError{}
	}
	rest := data[idx+len(loaderMagicPrefix):]
	close := bytes.IndexByte(rest, ')')
	if close < 0 {
		return Loader{}, &analysiserr.NotInnoFileError{}
	}
	versionStr := string(rest[:close])
	version, err := parseVersion(versionStr)
	if err != nil {
		return Loader{}, &analysiserr.NotInnoFileError{}
	}
	return Loader{Offset: idx, Version: version}, nil
}

func parseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) < 3 || len(parts) > 4 {
		return Version{}, fmt.Errorf("inno: malformed version string %q", s)
	}
	nums := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Version{}, fmt.Errorf("inno: malformed version component %q: %w", p, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Revision: nums[3]}, nil
}

// LooksLikeInno reports whether v contains a loader signature with a
// version tuple this package knows how to decode — the cheap probe
// internal/dispatch uses during family detection.
func LooksLikeInno(v byteview.View) bool {
	loader, err := FindLoaderSignature(v)
	if err != nil {
		return false
	}
	return loader.Version.Compare(oldestSupported) >= 0 && loader.Version.Compare(newestKnown) <= 0
}

// CheckSupported fails with UnsupportedInnoVersionError if ver falls
// outside the table this package has header gates for.
func CheckSupported(ver Version) error {
	if ver.Compare(oldestSupported) < 0 || ver.Compare(newestKnown) > 0 {
		return &analysiserr.UnsupportedInnoVersionError{Version: ver.String()}
	}
	return nil
}
