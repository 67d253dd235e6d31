// Package ziparchive analyzes plain ZIP artifacts: it enumerates the
// central directory, narrows to installer-shaped candidates, and hands
// back exactly one nested file for the caller to recurse dispatch into
// when the archive is unambiguous.
package ziparchive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
)

// candidateExtensions is the closed set of extensions worth recursing
// into; anything else in the archive is ignored for dispatch purposes.
var candidateExtensions = map[string]bool{
	"msix":        true,
	"msi":         true,
	"appx":        true,
	"exe":         true,
	"msixbundle":  true,
	"appxbundle":  true,
}

// excludedPathComponents marks path segments that disqualify an entry
// even if its extension matches (macOS resource forks, localized
// resource bundles that commonly carry decoy installer-shaped files).
var excludedPathComponents = map[string]bool{
	"__MACOSX":  true,
	"resources": true,
}

// Candidate is one installer-shaped entry found in a ZIP's central
// directory.
type Candidate struct {
	Name      string
	Extension string
	Size      uint64
}

// ErrAmbiguousCandidates is returned when more than one extension class
// contributes a candidate, or one class contributes more than one
// entry: the core does not choose among them.
var ErrAmbiguousCandidates = errors.New("ziparchive: multiple nested-installer candidates, no unambiguous pick")

// List enumerates every installer-shaped candidate in a ZIP's central
// directory, in central-directory order, excluding macOS/resource
// noise paths.
func List(r *zip.Reader) []Candidate {
	var out []Candidate
	for _, f := range r.File {
		if isExcludedPath(f.Name) {
			continue
		}
		ext := extensionOf(f.Name)
		if !candidateExtensions[ext] {
			continue
		}
		out = append(out, Candidate{Name: f.Name, Extension: ext, Size: f.UncompressedSize64})
	}
	return out
}

// SelectUnambiguous returns the single candidate to recurse into: it is
// only unambiguous when exactly one extension class is represented and
// that class contributes exactly one entry.
func SelectUnambiguous(candidates []Candidate) (Candidate, error) {
	byExt := map[string][]Candidate{}
	for _, c := range candidates {
		byExt[c.Extension] = append(byExt[c.Extension], c)
	}
	if len(byExt) != 1 {
		return Candidate{}, ErrAmbiguousCandidates
	}
	for _, group := range byExt {
		if len(group) != 1 {
			return Candidate{}, ErrAmbiguousCandidates
		}
		return group[0], nil
	}
	return Candidate{}, ErrAmbiguousCandidates
}

// Extract reads one entry's full decompressed contents out of the
// archive, for handing to the format dispatcher as a nested byte view.
func Extract(r *zip.Reader, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &analysiserr.MalformedZipError{Reason: fmt.Sprintf("opening entry %q", name), Err: err}
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, &analysiserr.MalformedZipError{Reason: fmt.Sprintf("reading entry %q", name), Err: err}
		}
		return data, nil
	}
	return nil, &analysiserr.MalformedZipError{Reason: fmt.Sprintf("entry %q not found", name)}
}

func extensionOf(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func isExcludedPath(name string) bool {
	for _, segment := range strings.Split(name, "/") {
		if excludedPathComponents[segment] {
			return true
		}
	}
	return false
}
