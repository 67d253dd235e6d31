package burn

import (
	"strings"

	"github.com/russellbanks/komac-analyzer/internal/pecoff"
	"github.com/russellbanks/komac-analyzer/internal/record"
	"github.com/russellbanks/komac-analyzer/internal/variables"
)

const wixContainerPrefix = "Wix"

var xmlEscapeReversal = strings.NewReplacer(
	"&quot;", `"`,
	"&apos;", "'",
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
)

// Analyze reads the WiX Burn bootstrapper embedded in pe/fileBytes: the
// stub descriptor, the UX container cabinet, and the Burn manifest
// inside it, then resolves variables and walks the MSI chain to build
// apps_and_features entries the way §4.5 describes.
func Analyze(pe *pecoff.File, fileBytes []byte, fileName string) (*record.InstallerRecord, error) {
	_, uxContainer, err := readStubDescriptor(pe, fileBytes, fileName)
	if err != nil {
		return nil, err
	}

	manifestBytes, err := ExtractEntry(uxContainer, manifestCabEntry)
	if err != nil {
		return nil, err
	}

	manifest, err := DecodeManifest(strings.NewReader(string(manifestBytes)))
	if err != nil {
		return nil, err
	}

	vars := resolveVariables(manifest)

	rec := record.New(record.InstallerTypeBurn)
	if boolAttr(manifest.Win64) {
		rec.Architecture = record.ArchitectureX64
	} else {
		rec.Architecture = pecoff.Architecture(pe.Machine)
	}
	if boolAttr(manifest.Registration.PerMachine) {
		rec.Scope = record.ScopeMachine
	} else {
		rec.Scope = record.ScopeUser
	}

	rec.Publisher = manifest.Registration.Arp.Publisher
	rec.PackageName = manifest.Registration.Arp.DisplayName

	rec.AppsAndFeatures = buildAppsAndFeatures(manifest, vars)

	return rec, nil
}

// resolveVariables builds the runtime variable dictionary the
// InstallCondition evaluator and path-token substitution both read
// from: every declared Numeric/String Variable, with well-known path
// tokens substituted and XML escaping reversed, plus the two Burn
// engine built-ins no manifest ever declares explicitly.
func resolveVariables(m *Manifest) variables.Dictionary {
	vars := variables.New()
	for token, placeholder := range record.WellKnownFolderPlaceholder {
		vars.Set(token, placeholder)
	}

	resolved := variables.New()
	for _, v := range m.Variables {
		if v.Type != "Numeric" && v.Type != "String" {
			continue
		}
		value := vars.Substitute(v.Value, "[", "]")
		value = xmlEscapeReversal.Replace(value)
		resolved.Set(v.Id, value)
	}

	resolved.Set("VersionNT64", "true")
	resolved.Set("NativeMachine", "MACHINE_AMD64")
	return resolved
}

// buildAppsAndFeatures walks the MSI chain, skipping packages marked
// ARPSYSTEMCOMPONENT=1 or whose InstallCondition evaluates false, and
// classifies each surviving package as wix-authored or plain msi by
// whether any of its payloads ships in a container whose id starts
// with "Wix".
func buildAppsAndFeatures(m *Manifest, vars variables.Dictionary) []record.ArpEntry {
	var out []record.ArpEntry
	for _, pkg := range m.Chain.MsiPackages {
		if arpSystemComponent(pkg) {
			continue
		}
		if !evaluateCondition(pkg.InstallCondition, vars) {
			continue
		}

		installerType := record.InstallerTypeMSI
		if packageUsesWixContainer(m, pkg) {
			installerType = record.InstallerTypeWix
		}

		out = append(out, record.ArpEntry{
			DisplayName:    m.Registration.Arp.DisplayName,
			Publisher:      m.Registration.Arp.Publisher,
			DisplayVersion: pkg.Version,
			ProductCode:    pkg.ProductCode,
			UpgradeCode:    pkg.UpgradeCode,
			InstallerType:  installerType,
		})
	}
	return out
}

func arpSystemComponent(pkg MsiPackage) bool {
	for _, p := range pkg.MsiProperties {
		if p.Name == "ARPSYSTEMCOMPONENT" && p.Value == "1" {
			return true
		}
	}
	return false
}

func packageUsesWixContainer(m *Manifest, pkg MsiPackage) bool {
	for _, payload := range m.Payloads {
		if payload.Id == pkg.Id && strings.HasPrefix(payload.Container, wixContainerPrefix) {
			return true
		}
	}
	return false
}
