package dispatch

import (
	"testing"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
)

func TestDecideByExtension(t *testing.T) {
	cases := []struct {
		fileName string
		want     Family
	}{
		{"setup.msi", FamilyMSI},
		{"app.msix", FamilyMSIX},
		{"app.appx", FamilyMSIX},
		{"app.msixbundle", FamilyMSIXBundle},
		{"app.appxbundle", FamilyMSIXBundle},
		{"archive.zip", FamilyZip},
	}
	for _, tt := range cases {
		t.Run(tt.fileName, func(t *testing.T) {
			d, err := Decide(byteview.New(nil), tt.fileName)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Family != tt.want {
				t.Errorf("got family %v, want %v", d.Family, tt.want)
			}
		})
	}
}

func TestDecideUnsupportedExtension(t *testing.T) {
	_, err := Decide(byteview.New(nil), "readme.txt")
	if err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	var target *analysiserr.UnsupportedExtensionError
	if !isUnsupportedExtensionError(err, &target) {
		t.Fatalf("expected UnsupportedExtensionError, got %T: %v", err, err)
	}
}

func isUnsupportedExtensionError(err error, target **analysiserr.UnsupportedExtensionError) bool {
	e, ok := err.(*analysiserr.UnsupportedExtensionError)
	if ok {
		*target = e
	}
	return ok
}

func TestDecideExeWithoutValidPEFails(t *testing.T) {
	_, err := Decide(byteview.New([]byte("not a pe file")), "setup.exe")
	if err == nil {
		t.Fatal("expected error for malformed exe")
	}
}

func TestVersionInfoLooksLikeInstaller(t *testing.T) {
	cases := []struct {
		info map[string]string
		want bool
	}{
		{map[string]string{"FileDescription": "My App Installer"}, true},
		{map[string]string{"OriginalFilename": "setup.exe"}, true},
		{map[string]string{"FileDescription": "7zS.sfx self-extracting archive"}, true},
		{map[string]string{"FileDescription": "My Application"}, false},
		{map[string]string{}, false},
	}
	for _, tt := range cases {
		if got := versionInfoLooksLikeInstaller(tt.info); got != tt.want {
			t.Errorf("versionInfoLooksLikeInstaller(%v) = %v, want %v", tt.info, got, tt.want)
		}
	}
}
