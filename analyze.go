// Package komacanalysis is the core entry point: given a raw installer
// artifact's bytes and its file name, it dispatches to the right
// family analyzer and returns a structured InstallerRecord, enriched
// by the URL/path heuristics of spec.md §4.9.
package komacanalysis

import (
	"archive/zip"
	"bytes"
	"fmt"

	"github.com/russellbanks/komac-analyzer/internal/burn"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
	"github.com/russellbanks/komac-analyzer/internal/dispatch"
	"github.com/russellbanks/komac-analyzer/internal/heuristics"
	"github.com/russellbanks/komac-analyzer/internal/inno"
	"github.com/russellbanks/komac-analyzer/internal/msi"
	"github.com/russellbanks/komac-analyzer/internal/msix"
	"github.com/russellbanks/komac-analyzer/internal/nsis"
	"github.com/russellbanks/komac-analyzer/internal/record"
	"github.com/russellbanks/komac-analyzer/internal/ziparchive"
)

// maxZipRecursionDepth bounds how many nested ZIP candidates Analyze
// will unwrap before giving up, guarding against a maliciously
// self-referential archive.
const maxZipRecursionDepth = 8

// Analyze inspects one artifact's bytes and produces its
// InstallerRecord. url, if non-empty, feeds the architecture/scope
// heuristics for any field the family analyzer left unset.
func Analyze(data []byte, fileName, url string) (*record.InstallerRecord, error) {
	rec, err := analyzeBytes(data, fileName, 0)
	if err != nil {
		return nil, err
	}
	heuristics.InheritMissingFields(rec, url)
	return rec, nil
}

// DetectArchFromURL, DetectScopeFromURL, and DetectScopeFromPath
// re-export the §4.9 heuristics for callers that want to run them
// independently of a full Analyze call (e.g. to pre-fill a manifest
// field from a known download URL before the artifact is fetched).
func DetectArchFromURL(url string) (record.Architecture, bool) {
	return heuristics.DetectArchFromURL(url)
}

func DetectScopeFromURL(url string) record.Scope {
	return heuristics.DetectScopeFromURL(url)
}

func DetectScopeFromPath(path string) record.Scope {
	return heuristics.DetectScopeFromPath(path)
}

func analyzeBytes(data []byte, fileName string, depth int) (*record.InstallerRecord, error) {
	v := byteview.New(data)
	decision, err := dispatch.Decide(v, fileName)
	if err != nil {
		return nil, err
	}

	switch decision.Family {
	case dispatch.FamilyMSI:
		return msi.Analyze(data, fileName)

	case dispatch.FamilyMSIX, dispatch.FamilyMSIXBundle:
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("opening %s as zip: %w", fileName, err)
		}
		return msix.Analyze(zr, fileName)

	case dispatch.FamilyBurn:
		return burn.Analyze(decision.PE, data, fileName)

	case dispatch.FamilyNSIS:
		return nsis.Analyze(decision.PE, v, fileName)

	case dispatch.FamilyInno:
		return inno.Analyze(v, fileName)

	case dispatch.FamilyEmbeddedMSI:
		embedded := data[decision.EmbeddedMSIOffset : decision.EmbeddedMSIOffset+decision.EmbeddedMSILength]
		return msi.Analyze(embedded, fileName)

	case dispatch.FamilyZip:
		return analyzeZip(data, fileName, depth)

	case dispatch.FamilyExe, dispatch.FamilyPortable:
		rec := record.New(record.InstallerTypeExe)
		if decision.Family == dispatch.FamilyPortable {
			rec.InstallerType = record.InstallerTypePortable
		}
		rec.Architecture = dispatch.Architecture(decision.PE)
		return rec, nil

	default:
		return nil, fmt.Errorf("%s: unrecognized installer family", fileName)
	}
}

// analyzeZip selects the single unambiguous installer candidate inside
// a ZIP archive and recurses dispatch into it, per spec.md §4.8.
func analyzeZip(data []byte, fileName string, depth int) (*record.InstallerRecord, error) {
	if depth >= maxZipRecursionDepth {
		return nil, fmt.Errorf("%s: exceeded maximum zip recursion depth", fileName)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening %s as zip: %w", fileName, err)
	}

	candidates := ziparchive.List(zr)
	chosen, err := ziparchive.SelectUnambiguous(candidates)
	if err != nil {
		return nil, err
	}

	inner, err := ziparchive.Extract(zr, chosen.Name)
	if err != nil {
		return nil, err
	}

	innerRec, err := analyzeBytes(inner, chosen.Name, depth+1)
	if err != nil {
		return nil, err
	}

	nestedType := innerRec.InstallerType
	rec := record.New(record.InstallerTypeZip)
	rec.NestedInstallerType = &nestedType
	rec.NestedFiles = []string{chosen.Name}
	rec.Architecture = innerRec.Architecture
	rec.Scope = innerRec.Scope
	rec.AppsAndFeatures = innerRec.AppsAndFeatures
	rec.InstallationMetadata = innerRec.InstallationMetadata
	rec.Publisher = innerRec.Publisher
	rec.PackageName = innerRec.PackageName
	rec.Copyright = innerRec.Copyright
	rec.Locale = innerRec.Locale

	return rec, nil
}
