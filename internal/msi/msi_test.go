package msi

import (
	"testing"

	"github.com/russellbanks/komac-analyzer/internal/record"
)

func TestArchitectureFromTemplate(t *testing.T) {
	cases := []struct {
		template string
		want     record.Architecture
		wantErr  bool
	}{
		{"x64;1033", record.ArchitectureX64, false},
		{"Intel64;1033", record.ArchitectureX64, false},
		{"AMD64;0", record.ArchitectureX64, false},
		{"Intel;1033", record.ArchitectureX86, false},
		{";1033", record.ArchitectureX86, false},
		{"Arm64;1033", record.ArchitectureArm64, false},
		{"Arm;1033", record.ArchitectureArm, false},
		{"SPARC;1033", "", true},
	}
	for _, tt := range cases {
		got, err := architectureFromTemplate(tt.template)
		if tt.wantErr {
			if err == nil {
				t.Errorf("template %q: expected error", tt.template)
			}
			continue
		}
		if err != nil {
			t.Errorf("template %q: unexpected error %v", tt.template, err)
			continue
		}
		if got != tt.want {
			t.Errorf("template %q: got %v, want %v", tt.template, got, tt.want)
		}
	}
}

func TestLocaleFromTemplate(t *testing.T) {
	if got := localeFromTemplate("x64;1033"); got != "en-US" {
		t.Errorf("got %q, want en-US", got)
	}
	if got := localeFromTemplate("x64;999999"); got != "en" {
		t.Errorf("unknown LCID should fall back to en, got %q", got)
	}
	if got := localeFromTemplate("x64"); got != "" {
		t.Errorf("missing LCID should be empty, got %q", got)
	}
}

func TestScopeFromAllUsers(t *testing.T) {
	cases := []struct {
		name              string
		allUsers          string
		allUsersPresent   bool
		controlReferences bool
		want              record.Scope
	}{
		{"present 1 is always machine", "1", true, false, record.ScopeMachine},
		{"present 2 is unknown regardless of Control", "2", true, false, record.ScopeUnknown},
		{"present 2 with Control reference is still unknown", "2", true, true, record.ScopeUnknown},
		{"present empty string is per-user", "", true, false, record.ScopeUser},
		{"absent with no Control reference defaults to per-user", "", false, false, record.ScopeUser},
		{"absent but Control references ALLUSERS is unknown", "", false, true, record.ScopeUnknown},
		{"present garbage value with no Control reference defaults to per-user", "garbage", true, false, record.ScopeUser},
		{"present garbage value with Control reference is unknown", "garbage", true, true, record.ScopeUnknown},
	}
	for _, tt := range cases {
		got := scopeFromAllUsers(tt.allUsers, tt.allUsersPresent, tt.controlReferences)
		if got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMsiOrWixInstallerType(t *testing.T) {
	if got := msiOrWixInstallerType(nil, "Windows Installer XML Toolset"); got != record.InstallerTypeWix {
		t.Errorf("got %v, want Wix from creating app", got)
	}
	props := map[string]string{"WixVersion": "3.11"}
	if got := msiOrWixInstallerType(props, ""); got != record.InstallerTypeWix {
		t.Errorf("got %v, want Wix from property key", got)
	}
	if got := msiOrWixInstallerType(map[string]string{"ProductName": "Widget"}, "Advanced Installer"); got != record.InstallerTypeMSI {
		t.Errorf("got %v, want plain MSI", got)
	}
}

func TestChromeVersionOverride(t *testing.T) {
	if v, ok := chromeVersionOverride("1.2.3.4 stable channel"); !ok || v != "1.2.3.4" {
		t.Errorf("got %q, %v; want 1.2.3.4, true", v, ok)
	}
	if _, ok := chromeVersionOverride("not a version at all"); ok {
		t.Error("expected non-numeric leading token to be rejected")
	}
	if _, ok := chromeVersionOverride(""); ok {
		t.Error("expected empty Comments to be rejected")
	}
}

func TestBuildDirectoryPath(t *testing.T) {
	byID := map[string]directoryRow{
		"INSTALLDIR": {id: "INSTALLDIR", parent: "ProgramFiles64Folder", defaultDir: "SHORTN~1|Widget"},
	}
	path, ok := buildDirectoryPath("INSTALLDIR", byID)
	if !ok {
		t.Fatal("expected path to resolve")
	}
	want := `%ProgramFiles%\Widget`
	if path != want {
		t.Errorf("got %q, want %q", path, want)
	}
}

func TestBuildDirectoryPathDetectsCycle(t *testing.T) {
	byID := map[string]directoryRow{
		"A": {id: "A", parent: "B", defaultDir: "a"},
		"B": {id: "B", parent: "A", defaultDir: "b"},
	}
	if _, ok := buildDirectoryPath("A", byID); ok {
		t.Fatal("expected cyclic Directory table to be rejected")
	}
}

func TestLongestUniqueDescent(t *testing.T) {
	byID := map[string]directoryRow{
		"ProgramFiles64Folder": {id: "ProgramFiles64Folder", parent: "TARGETDIR", defaultDir: "ProgramFiles64Folder"},
		"INSTALLDIR":           {id: "INSTALLDIR", parent: "ProgramFiles64Folder", defaultDir: "Widget"},
	}
	path, ok := longestUniqueDescent(byID)
	if !ok {
		t.Fatal("expected a descent path")
	}
	if path != `ProgramFiles64Folder\Widget` {
		t.Errorf("got %q", path)
	}
}

func TestLongestUniqueDescentStopsAtBranch(t *testing.T) {
	byID := map[string]directoryRow{
		"A": {id: "A", parent: "TARGETDIR", defaultDir: "a"},
		"B": {id: "B", parent: "TARGETDIR", defaultDir: "b"},
	}
	if _, ok := longestUniqueDescent(byID); ok {
		t.Fatal("expected a branching TARGETDIR to have no unique descent")
	}
}
