package nsis

import (
	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
	"github.com/russellbanks/komac-analyzer/internal/pecoff"
	"github.com/russellbanks/komac-analyzer/internal/record"
	"github.com/russellbanks/komac-analyzer/internal/registrysim"
)

// Analyze locates an NSIS installer's first header in v, decodes its
// bytecode entries table, runs it through the simulated VM, and turns
// the resulting registry writes and directory creations into an
// InstallerRecord.
func Analyze(pe *pecoff.File, v byteview.View, fileName string) (*record.InstallerRecord, error) {
	fh, ok := FindFirstHeader(v)
	if !ok {
		return nil, &analysiserr.NotNSISFileError{FileName: fileName}
	}
	if err := fh.Validate(v.Len()); err != nil {
		return nil, err
	}

	header, err := ParseHeader(v, fh)
	if err != nil {
		return nil, err
	}

	vm := NewVM(header)
	if err := vm.Run(); err != nil {
		return nil, err
	}

	rec := record.New(record.InstallerTypeNSIS)
	rec.Architecture = pecoff.Architecture(pe.Machine)
	rec.Scope = deriveScope(vm.Registry())
	rec.InstallationMetadata.DefaultInstallLocation = vm.DeepestDirectory()
	rec.AppsAndFeatures = buildAppsAndFeatures(vm.Registry())

	return rec, nil
}

// deriveScope infers install scope from which hive the script wrote any
// registry value under: HKLM (checked first) means machine-wide, HKCU
// means per-user; a script that writes neither leaves scope unknown.
func deriveScope(reg *registrysim.Sim) record.Scope {
	switch {
	case reg.WroteUnderMachine():
		return record.ScopeMachine
	case reg.WroteUnderUser():
		return record.ScopeUser
	default:
		return record.ScopeUnknown
	}
}

// buildAppsAndFeatures reads back every simulated registry key under
// an Uninstall subkey and turns its recorded values into an ARP entry,
// the same shape the Burn and MSI analyzers produce.
func buildAppsAndFeatures(reg *registrysim.Sim) []record.ArpEntry {
	var out []record.ArpEntry
	for _, key := range reg.KeysUnder(registrysim.RootUnknown, `Uninstall`) {
		out = append(out, record.ArpEntry{
			DisplayName:    key.Values["DisplayName"],
			Publisher:      key.Values["Publisher"],
			DisplayVersion: key.Values["DisplayVersion"],
			InstallerType:  record.InstallerTypeNSIS,
		})
	}
	return out
}
