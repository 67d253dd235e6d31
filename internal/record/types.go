// Package record defines InstallerRecord, the structured output every
// family analyzer produces, and the small closed sum types it is built
// from (Architecture, InstallerType, Scope). These are modeled as
// validated wrapper types rather than raw strings so that an exhaustive
// switch at each call site is a compile-time-checkable habit, the way
// the teacher favors small closed types over ad hoc string comparison.
package record

// Architecture is one of the five CPU architectures an installer can
// target.
type Architecture string

const (
	ArchitectureX86     Architecture = "x86"
	ArchitectureX64     Architecture = "x64"
	ArchitectureArm     Architecture = "arm"
	ArchitectureArm64   Architecture = "arm64"
	ArchitectureNeutral Architecture = "neutral"
)

// IsValid reports whether a is one of the five known architectures.
func (a Architecture) IsValid() bool {
	switch a {
	case ArchitectureX86, ArchitectureX64, ArchitectureArm, ArchitectureArm64, ArchitectureNeutral:
		return true
	default:
		return false
	}
}

// InstallerType is the closed set of artifact families the core can
// produce a record for.
type InstallerType string

const (
	InstallerTypeMSI        InstallerType = "msi"
	InstallerTypeWix        InstallerType = "wix"
	InstallerTypeMSIX       InstallerType = "msix"
	InstallerTypeAppx       InstallerType = "appx"
	InstallerTypeMSIXBundle InstallerType = "msix-bundle"
	InstallerTypeAppxBundle InstallerType = "appx-bundle"
	InstallerTypeBurn       InstallerType = "burn"
	InstallerTypeNSIS       InstallerType = "nsis"
	InstallerTypeInno       InstallerType = "inno"
	InstallerTypeExe        InstallerType = "exe"
	InstallerTypePortable   InstallerType = "portable"
	InstallerTypeZip        InstallerType = "zip"
)

// Scope describes which users an installer's target install affects.
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeMachine Scope = "machine"
	ScopeUnknown Scope = "unknown"
)

// ArpEntry is one Add/Remove Programs uninstall-registry row.
type ArpEntry struct {
	DisplayName    string
	Publisher      string
	DisplayVersion string
	ProductCode    string
	UpgradeCode    string
	InstallerType  InstallerType
}

// InstallationMetadata carries the installer's declared default
// install location, which may still contain unresolved placeholders
// (%ProgramFiles%, %AppData%, ...) for the outer manifest layer to
// resolve against the target machine.
type InstallationMetadata struct {
	DefaultInstallLocation string
}

// TargetDeviceFamily is an MSIX/APPX Dependencies/TargetDeviceFamily
// declaration.
type TargetDeviceFamily struct {
	Platform       string
	MinimumVersion string
}

// InstallerRecord is the structured description of one installer
// artifact, produced by exactly one family analyzer and optionally
// enriched by heuristics (§4.9) before being returned to the caller.
type InstallerRecord struct {
	Architecture  Architecture
	InstallerType InstallerType
	Scope         Scope

	// NestedInstallerType and NestedFiles are set only when
	// InstallerType == InstallerTypeZip and exactly one nested
	// candidate was selected during recursion.
	NestedInstallerType *InstallerType
	NestedFiles         []string

	Locale string

	// URL and SHA256 are populated by the caller; opaque to the core.
	URL    string
	SHA256 string

	// SignatureSHA256 is set iff the artifact is MSIX/APPX/bundle and
	// an AppxSignature.p7x entry exists.
	SignatureSHA256 []byte

	// PackageFamilyName is set only for MSIX-family packages.
	PackageFamilyName string

	AppsAndFeatures []ArpEntry

	InstallationMetadata InstallationMetadata

	Capabilities           []string
	RestrictedCapabilities []string
	FileExtensions         []string
	Protocols              []string
	Commands               []string

	// Platform/MinimumOSVersion are populated for MSIX only.
	Platform         []TargetDeviceFamily
	MinimumOSVersion string

	Publisher   string
	PackageName string
	Copyright   string
}

// New returns a zero-value record with InstallerType set; every other
// field defaults to its Go zero value, which callers treat as "not
// present" the same way the source format treats an optional field.
func New(installerType InstallerType) *InstallerRecord {
	return &InstallerRecord{InstallerType: installerType}
}
