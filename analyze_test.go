package komacanalysis

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/russellbanks/komac-analyzer/internal/record"
)

func buildTestZip(t *testing.T, names []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zw.Create(%q): %v", name, err)
		}
		if _, err := w.Write([]byte("placeholder")); err != nil {
			t.Fatalf("writing %q: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zw.Close: %v", err)
	}
	return buf.Bytes()
}

func TestAnalyzeUnsupportedExtension(t *testing.T) {
	_, err := Analyze([]byte("irrelevant"), "notes.txt", "")
	if err == nil {
		t.Fatal("expected an error for an unrecognized extension")
	}
}

func TestAnalyzeZipAmbiguousCandidates(t *testing.T) {
	data := buildTestZip(t, []string{"x86/app.exe", "x64/app.exe"})
	_, err := Analyze(data, "bundle.zip", "")
	if err == nil {
		t.Fatal("expected an ambiguous-candidates error for two sibling exe entries")
	}
}

func TestAnalyzeZipIgnoresNonCandidateEntries(t *testing.T) {
	data := buildTestZip(t, []string{"readme.txt", "license.txt"})
	_, err := Analyze(data, "docs.zip", "")
	if err == nil {
		t.Fatal("expected an error since no installer-shaped candidate exists")
	}
}

func TestDetectArchFromURLPassthrough(t *testing.T) {
	arch, ok := DetectArchFromURL("https://example.com/download/app-x64-setup.exe")
	if !ok || arch != record.ArchitectureX64 {
		t.Errorf("DetectArchFromURL = (%v, %v), want (x64, true)", arch, ok)
	}
}

func TestDetectScopeFromURLPassthrough(t *testing.T) {
	if got := DetectScopeFromURL("https://example.com/app-machine-setup.exe"); got != record.ScopeMachine {
		t.Errorf("DetectScopeFromURL = %v, want machine", got)
	}
}

func TestDetectScopeFromPathPassthrough(t *testing.T) {
	if got := DetectScopeFromPath(`%LocalAppData%\App\app.exe`); got != record.ScopeUser {
		t.Errorf("DetectScopeFromPath = %v, want user", got)
	}
}
