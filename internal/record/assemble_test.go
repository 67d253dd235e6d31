package record

import "testing"

func TestAssembleHoistsSharedLocaleAndPublisher(t *testing.T) {
	r1 := New(InstallerTypeMSI)
	r1.Architecture = ArchitectureX86
	r1.Locale = "en-US"
	r1.Publisher = "Contoso"

	r2 := New(InstallerTypeMSI)
	r2.Architecture = ArchitectureX64
	r2.Locale = "en-US"
	r2.Publisher = "Contoso"

	m := Assemble([]*InstallerRecord{r1, r2})
	if m.Locale != "en-US" {
		t.Errorf("Manifest.Locale = %q, want en-US", m.Locale)
	}
	if m.Publisher != "Contoso" {
		t.Errorf("Manifest.Publisher = %q, want Contoso", m.Publisher)
	}
	for _, inst := range m.Installers {
		if inst.Locale != "" || inst.Publisher != "" {
			t.Errorf("expected hoisted fields cleared on installer, got Locale=%q Publisher=%q", inst.Locale, inst.Publisher)
		}
	}
}

func TestAssembleDoesNotHoistDivergentFields(t *testing.T) {
	r1 := New(InstallerTypeMSI)
	r1.Locale = "en-US"
	r2 := New(InstallerTypeMSI)
	r2.Locale = "fr-FR"

	m := Assemble([]*InstallerRecord{r1, r2})
	if m.Locale != "" {
		t.Errorf("expected no hoist when locales diverge, got %q", m.Locale)
	}
	locales := map[string]bool{}
	for _, inst := range m.Installers {
		locales[inst.Locale] = true
	}
	if !locales["en-US"] || !locales["fr-FR"] {
		t.Errorf("expected both locales preserved on installers, got %+v", locales)
	}
}

func TestAssembleDedupsIdenticalRecords(t *testing.T) {
	r1 := New(InstallerTypeMSI)
	r1.Architecture = ArchitectureX64
	r2 := New(InstallerTypeMSI)
	r2.Architecture = ArchitectureX64

	m := Assemble([]*InstallerRecord{r1, r2})
	if len(m.Installers) != 1 {
		t.Fatalf("got %d installers, want 1 after dedup", len(m.Installers))
	}
}

func TestAssembleSortsByInstallerTypeThenArchitecture(t *testing.T) {
	x64 := New(InstallerTypeMSI)
	x64.Architecture = ArchitectureX64
	x86 := New(InstallerTypeMSI)
	x86.Architecture = ArchitectureX86

	m := Assemble([]*InstallerRecord{x64, x86})
	if m.Installers[0].Architecture != ArchitectureX86 {
		t.Errorf("expected x86 sorted before x64, got %+v", m.Installers)
	}
}
