package inno

import (
	"testing"

	"github.com/russellbanks/komac-analyzer/internal/byteview"
)

func TestFindLoaderSignature(t *testing.T) {
	data := []byte("garbage...Inno Setup Setup Data (5.5.0)...more garbage")
	loader, err := FindLoaderSignature(byteview.New(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Version{5, 5, 0, 0}
	if loader.Version != want {
		t.Errorf("got %+v, want %+v", loader.Version, want)
	}
}

func TestFindLoaderSignatureWithRevision(t *testing.T) {
	data := []byte("Inno Setup Setup Data (6.4.0.1)")
	loader, err := FindLoaderSignature(byteview.New(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Version{6, 4, 0, 1}
	if loader.Version != want {
		t.Errorf("got %+v, want %+v", loader.Version, want)
	}
}

func TestFindLoaderSignatureAbsent(t *testing.T) {
	if _, err := FindLoaderSignature(byteview.New([]byte("nothing to see here"))); err == nil {
		t.Fatal("expected NotInnoFileError")
	}
}

func TestVersionCompareAndAtLeast(t *testing.T) {
	v640 := Version{6, 4, 0, 0}
	v641 := Version{6, 4, 0, 1}
	if v640.Compare(v641) >= 0 {
		t.Error("expected 6.4.0.0 < 6.4.0.1")
	}
	if !v641.AtLeast(6, 4, 0) {
		t.Error("expected 6.4.0.1 >= 6.4.0")
	}
	if v640.AtLeast(6, 4, 0, 1) {
		t.Error("expected 6.4.0.0 < 6.4.0.1")
	}
}

func TestLooksLikeInnoVersionBounds(t *testing.T) {
	tooOld := []byte("Inno Setup Setup Data (1.2.0)")
	if LooksLikeInno(byteview.New(tooOld)) {
		t.Error("expected version below 1.3.0 to be rejected")
	}
	supported := []byte("Inno Setup Setup Data (5.5.0)")
	if !LooksLikeInno(byteview.New(supported)) {
		t.Error("expected 5.5.0 to be supported")
	}
}

func TestCheckSupported(t *testing.T) {
	if err := CheckSupported(Version{5, 5, 0, 0}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := CheckSupported(Version{0, 9, 0, 0}); err == nil {
		t.Error("expected UnsupportedInnoVersionError for pre-1.3.0")
	}
}
