package heuristics

import (
	"testing"

	"github.com/russellbanks/komac-analyzer/internal/record"
)

func TestDetectArchFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want record.Architecture
		ok   bool
	}{
		{"https://example.com/app-x64-setup.exe", record.ArchitectureX64, true},
		{"https://example.com/app_x86_64.exe", record.ArchitectureX64, true},
		{"https://example.com/app-x86.exe", record.ArchitectureX86, true},
		{"https://example.com/app.arm64.msi", record.ArchitectureArm64, true},
		{"https://example.com/app-win32-setup.exe", record.ArchitectureX86, true},
		{"https://example.com/plainapp.exe", "", false},
		{"https://example.com/taxi64service.exe", "", false},
	}
	for _, tt := range cases {
		got, ok := DetectArchFromURL(tt.url)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("DetectArchFromURL(%q) = (%v, %v), want (%v, %v)", tt.url, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDetectScopeFromURL(t *testing.T) {
	cases := []struct {
		url  string
		want record.Scope
	}{
		{"https://example.com/app-all-users.exe", record.ScopeMachine},
		{"https://example.com/app-machine.exe", record.ScopeMachine},
		{"https://example.com/app-user.exe", record.ScopeUser},
		{"https://example.com/app.exe", record.ScopeUnknown},
	}
	for _, tt := range cases {
		if got := DetectScopeFromURL(tt.url); got != tt.want {
			t.Errorf("DetectScopeFromURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestDetectScopeFromPath(t *testing.T) {
	cases := []struct {
		path string
		want record.Scope
	}{
		{`%AppData%\Widget`, record.ScopeUser},
		{`%LocalAppData%\Widget`, record.ScopeUser},
		{`%ProgramFiles%\Widget`, record.ScopeMachine},
		{`%ProgramFiles(x86)%\Widget`, record.ScopeMachine},
		{`C:\NoPlaceholder\Widget`, record.ScopeUnknown},
	}
	for _, tt := range cases {
		if got := DetectScopeFromPath(tt.path); got != tt.want {
			t.Errorf("DetectScopeFromPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestInheritMissingFieldsDoesNotOverwriteParsedValues(t *testing.T) {
	rec := record.New(record.InstallerTypeExe)
	rec.Architecture = record.ArchitectureArm
	InheritMissingFields(rec, "https://example.com/app-x64.exe")
	if rec.Architecture != record.ArchitectureArm {
		t.Errorf("parsed architecture was overwritten: got %v", rec.Architecture)
	}
}

func TestInheritMissingFieldsFillsEmptyArchitecture(t *testing.T) {
	rec := record.New(record.InstallerTypeExe)
	InheritMissingFields(rec, "https://example.com/app-x64.exe")
	if rec.Architecture != record.ArchitectureX64 {
		t.Errorf("got %v, want x64", rec.Architecture)
	}
}
