package msix

import (
	"archive/zip"
	"crypto/sha256"
	"fmt"
	"io"
	"strings"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/record"
)

const (
	manifestEntry       = "AppxManifest.xml"
	bundleManifestEntry = "AppxMetadata/AppxBundleManifest.xml"
	signatureEntry      = "AppxSignature.p7x"
)

// windows10Fall2018Update is the minimum OS version (build 17763, the
// October 2018 Update) below which a package is classified as the
// legacy appx family rather than msix.
const windows10Fall2018Update = "10.0.17763.0"

// Analyze opens an MSIX/APPX (or bundle) ZIP container, requires the
// manifest and signature entries, and fills in an InstallerRecord from
// the streamed manifest plus the derived package family name and
// install location.
func Analyze(zr *zip.Reader, fileName string) (*record.InstallerRecord, error) {
	isBundle := strings.HasSuffix(strings.ToLower(fileName), "bundle")

	manifestName := manifestEntry
	if isBundle {
		manifestName = bundleManifestEntry
	}

	manifestFile := findEntry(zr, manifestName)
	if manifestFile == nil {
		return nil, &analysiserr.MalformedZipError{Reason: "missing " + manifestName}
	}
	sigFile := findEntry(zr, signatureEntry)
	if sigFile == nil {
		return nil, &analysiserr.MalformedZipError{Reason: "missing " + signatureEntry}
	}

	manifestReader, err := manifestFile.Open()
	if err != nil {
		return nil, &analysiserr.MalformedZipError{Reason: "opening " + manifestName, Err: err}
	}
	defer manifestReader.Close()

	manifestBytes, err := io.ReadAll(manifestReader)
	if err != nil {
		return nil, &analysiserr.MalformedZipError{Reason: "reading " + manifestName, Err: err}
	}

	manifest, err := DecodeManifest(strings.NewReader(string(manifestBytes)))
	if err != nil {
		return nil, err
	}

	sigReader, err := sigFile.Open()
	if err != nil {
		return nil, &analysiserr.MalformedZipError{Reason: "opening " + signatureEntry, Err: err}
	}
	defer sigReader.Close()
	sigBytes, err := io.ReadAll(sigReader)
	if err != nil {
		return nil, &analysiserr.MalformedZipError{Reason: "reading " + signatureEntry, Err: err}
	}
	sigSum := sha256.Sum256(sigBytes)

	installerType := classify(manifest, string(manifestBytes), isBundle)

	rec := record.New(installerType)
	rec.Architecture = architectureOf(manifest.Identity.ProcessorArchitecture)
	rec.Scope = record.ScopeUser
	rec.PackageFamilyName = PackageFamilyName(manifest.Identity.Name, manifest.Identity.Publisher)
	rec.SignatureSHA256 = sigSum[:]
	rec.Publisher = manifest.PublisherDisplayName
	rec.PackageName = manifest.DisplayName
	rec.Capabilities = manifest.Capabilities
	rec.RestrictedCapabilities = manifest.RestrictedCapabilities
	rec.FileExtensions = manifest.FileTypeAssociations

	for _, tdf := range manifest.TargetDeviceFamilies {
		rec.Platform = append(rec.Platform, record.TargetDeviceFamily{
			Platform:       tdf.Platform,
			MinimumVersion: tdf.MinimumVersion,
		})
	}
	if len(manifest.TargetDeviceFamilies) > 0 {
		rec.MinimumOSVersion = minVersion(manifest.TargetDeviceFamilies)
	}

	rec.InstallationMetadata.DefaultInstallLocation = defaultInstallLocation(manifest.Identity)

	rec.AppsAndFeatures = []record.ArpEntry{{
		DisplayName:    manifest.DisplayName,
		Publisher:      manifest.PublisherDisplayName,
		DisplayVersion: manifest.Identity.Version,
		InstallerType:  installerType,
	}}

	return rec, nil
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// classify implements §4.4's appx-vs-msix distinction: pre-1809
// minimum target version and no literal "msix" token anywhere in the
// manifest text means this is really an appx, not an msix, package.
func classify(m *Manifest, rawManifest string, isBundle bool) record.InstallerType {
	allPreWin1809 := len(m.TargetDeviceFamilies) > 0
	for _, tdf := range m.TargetDeviceFamilies {
		if compareVersions(tdf.MinimumVersion, windows10Fall2018Update) >= 0 {
			allPreWin1809 = false
			break
		}
	}
	mentionsMsix := strings.Contains(strings.ToLower(rawManifest), "msix")

	isAppx := allPreWin1809 && !mentionsMsix
	switch {
	case isBundle && isAppx:
		return record.InstallerTypeAppxBundle
	case isBundle:
		return record.InstallerTypeMSIXBundle
	case isAppx:
		return record.InstallerTypeAppx
	default:
		return record.InstallerTypeMSIX
	}
}

// compareVersions compares two dot-separated numeric version strings
// segment by segment, treating a missing segment as 0.
func compareVersions(a, b string) int {
	as := strings.Split(a, ".")
	bs := strings.Split(b, ".")
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(as) {
			fmt.Sscanf(as[i], "%d", &av)
		}
		if i < len(bs) {
			fmt.Sscanf(bs[i], "%d", &bv)
		}
		if av != bv {
			return av - bv
		}
	}
	return 0
}

func minVersion(families []TargetDeviceFamily) string {
	min := ""
	for _, f := range families {
		if min == "" || compareVersions(f.MinimumVersion, min) < 0 {
			min = f.MinimumVersion
		}
	}
	return min
}

func architectureOf(processorArchitecture string) record.Architecture {
	switch strings.ToLower(processorArchitecture) {
	case "x64", "amd64":
		return record.ArchitectureX64
	case "x86":
		return record.ArchitectureX86
	case "arm":
		return record.ArchitectureArm
	case "arm64":
		return record.ArchitectureArm64
	case "neutral":
		return record.ArchitectureNeutral
	default:
		return record.ArchitectureNeutral
	}
}

// defaultInstallLocation mirrors the canonical per-user app package
// directory Windows creates for an installed MSIX package:
// %LocalAppData%\Packages\<PackageFullName>.
func defaultInstallLocation(id Identity) string {
	fullName := fmt.Sprintf("%s_%s_%s_%s",
		id.Name, id.Version, id.ProcessorArchitecture, publisherID(id.Publisher))
	if id.ResourceID != "" {
		fullName = fmt.Sprintf("%s_%s_%s_%s_%s",
			id.Name, id.Version, id.ProcessorArchitecture, id.ResourceID, publisherID(id.Publisher))
	}
	return `%LocalAppData%\Packages\` + fullName
}
