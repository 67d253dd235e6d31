package inno

import (
	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
	"github.com/russellbanks/komac-analyzer/internal/record"
)

// Analyze detects and decodes an Inno Setup installer embedded in v,
// turning its reduced header field set into an InstallerRecord
// (spec.md §4.7).
func Analyze(v byteview.View, fileName string) (*record.InstallerRecord, error) {
	loader, err := FindLoaderSignature(v)
	if err != nil {
		return nil, &analysiserr.NotInnoFileError{FileName: fileName}
	}
	if err := CheckSupported(loader.Version); err != nil {
		return nil, err
	}

	header, err := ParseHeader(v, loader)
	if err != nil {
		return nil, err
	}

	rec := record.New(record.InstallerTypeInno)
	rec.Architecture = archForHeader(header)
	rec.Scope = scopeForPrivilegeLevel(header.PrivilegeLevel)
	rec.Publisher = header.AppPublisher
	rec.PackageName = header.AppName
	rec.InstallationMetadata.DefaultInstallLocation = header.DefaultDirName

	return rec, nil
}

func archForHeader(h *Header) record.Architecture {
	if h.ArchitecturesAllowed != "" {
		return evaluateArchExpression(h.ArchitecturesAllowed)
	}
	if h.ArchitecturesInstallIn64BitMode != "" {
		return evaluateArchExpression(h.ArchitecturesInstallIn64BitMode)
	}
	return record.ArchitectureNeutral
}

// scopeForPrivilegeLevel maps PrivilegeLevel onto scope: admin/power-user
// need elevation and therefore install machine-wide; lowest/none run
// (and so install) per-user. A script that also sets
// PrivilegesRequiredOverridesAllowed can still be overridden at install
// time, but the declared default is what a static analysis can report.
func scopeForPrivilegeLevel(level string) record.Scope {
	switch level {
	case "admin", "power-user":
		return record.ScopeMachine
	case "lowest", "none":
		return record.ScopeUser
	default:
		return record.ScopeUnknown
	}
}
