// Package dispatch decides which family analyzer should handle an
// artifact, from its file extension plus PE evidence (section names,
// loader signatures, version-info keywords) — spec.md §4.2's decision
// table, reimplemented here as the teacher's own early-return
// if/else-if probe chain (see e.g. internal/parser/parser.go's element
// dispatch in gersonkurz-msis) rather than a data-driven table, since
// each branch needs a different kind of evidence (section name vs.
// magic bytes vs. string heuristics).
package dispatch

import (
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
	"github.com/russellbanks/komac-analyzer/internal/inno"
	"github.com/russellbanks/komac-analyzer/internal/nsis"
	"github.com/russellbanks/komac-analyzer/internal/pecoff"
	"github.com/russellbanks/komac-analyzer/internal/record"
)

// Family identifies which L3 analyzer should run.
type Family int

const (
	FamilyUnknown Family = iota
	FamilyMSI
	FamilyMSIX
	FamilyMSIXBundle
	FamilyZip
	FamilyBurn
	FamilyNSIS
	FamilyInno
	FamilyExe
	FamilyPortable
	// FamilyEmbeddedMSI is an EXE with no .wixburn section but an
	// RCDATA resource literally named "MSI" (the JDK-style installer):
	// the caller should seek to that resource and delegate to MSI.
	FamilyEmbeddedMSI
)

// Decision is the result of dispatching one artifact.
type Decision struct {
	Family Family
	// PE is populated whenever the extension was ".exe" and the blob
	// parsed as a PE image; nil for msi/msix/zip extensions, which
	// never need PE evidence to dispatch.
	PE *pecoff.File
	// EmbeddedMSIOffset/EmbeddedMSILength locate the embedded MSI
	// resource when Family == FamilyEmbeddedMSI.
	EmbeddedMSIOffset int
	EmbeddedMSILength int
}

var exeVersionInfoKeywords = []string{"installer", "setup", "7zs.sfx", "7zsd.sfx"}

// Decide inspects fileName's extension and, for ".exe", the PE
// structure of v, to choose a Family per spec.md §4.2.
func Decide(v byteview.View, fileName string) (Decision, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))

	switch ext {
	case "msi":
		return Decision{Family: FamilyMSI}, nil
	case "msix", "appx":
		return Decision{Family: FamilyMSIX}, nil
	case "msixbundle", "appxbundle":
		return Decision{Family: FamilyMSIXBundle}, nil
	case "zip":
		return Decision{Family: FamilyZip}, nil
	case "exe":
		return decideExe(v)
	default:
		return Decision{}, &analysiserr.UnsupportedExtensionError{Extension: ext}
	}
}

func decideExe(v byteview.View) (Decision, error) {
	pe, err := pecoff.Parse(v)
	if err != nil {
		return Decision{}, err
	}

	if _, ok := pe.SectionByName(".wixburn"); ok {
		return Decision{Family: FamilyBurn, PE: pe}, nil
	}

	if nsis.LooksLikeNSIS(v) {
		return Decision{Family: FamilyNSIS, PE: pe}, nil
	}

	if inno.LooksLikeInno(v) {
		return Decision{Family: FamilyInno, PE: pe}, nil
	}

	if offset, length, ok := embeddedMSIResource(pe); ok {
		return Decision{Family: FamilyEmbeddedMSI, PE: pe, EmbeddedMSIOffset: offset, EmbeddedMSILength: length}, nil
	}

	info, _ := pe.VersionInfo()
	if versionInfoLooksLikeInstaller(info) {
		return Decision{Family: FamilyExe, PE: pe}, nil
	}
	return Decision{Family: FamilyPortable, PE: pe}, nil
}

func versionInfoLooksLikeInstaller(info map[string]string) bool {
	candidates := []string{info["FileDescription"], info["OriginalFilename"]}
	for _, c := range candidates {
		lower := strings.ToLower(c)
		for _, kw := range exeVersionInfoKeywords {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// embeddedMSIResource looks for an RCDATA resource whose name is the
// UTF-16 string "MSI" (the JDK-style embedded-installer convention).
func embeddedMSIResource(pe *pecoff.File) (offset, length int, ok bool) {
	entries, err := pe.WalkResources()
	if err != nil {
		return 0, 0, false
	}
	wantName := string(utf16.Decode(utf16.Encode([]rune("MSI"))))
	for _, e := range entries {
		if e.IsTypeName || e.Type != pecoff.ResourceTypeRCData {
			continue
		}
		if !e.IsName || e.Name != wantName {
			continue
		}
		return int(e.DataOffset), int(e.DataSize), true
	}
	return 0, 0, false
}

// Architecture maps the dispatched PE's machine field onto the record
// sum type; callers without a PE (msi/msix/zip extensions) derive
// architecture from their own family-specific evidence instead.
func Architecture(pe *pecoff.File) record.Architecture {
	if pe == nil {
		return record.ArchitectureNeutral
	}
	return pecoff.Architecture(pe.Machine)
}
