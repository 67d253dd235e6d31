package analysiserr

import (
	"errors"
	"testing"
)

func TestMalformedPEErrorUnwrap(t *testing.T) {
	inner := errors.New("short read")
	err := &MalformedPEError{Reason: "truncated DOS header", Err: inner}

	if !errors.Is(err, inner) {
		t.Fatal("expected errors.Is to see through Unwrap")
	}

	var target *MalformedPEError
	if !errors.As(err, &target) {
		t.Fatal("expected errors.As to match MalformedPEError")
	}
	if target.Reason != "truncated DOS header" {
		t.Fatalf("unexpected reason: %s", target.Reason)
	}
}

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"unsupported extension", &UnsupportedExtensionError{Extension: ".foo"}, `unsupported file extension: ".foo"`},
		{"not burn", &NotBurnFileError{FileName: "setup.exe"}, "setup.exe: not a WiX Burn bundle (no .wixburn section)"},
		{"not nsis", &NotNSISFileError{FileName: "setup.exe"}, "setup.exe: not an NSIS installer (no first-header signature found)"},
		{"not inno", &NotInnoFileError{FileName: "setup.exe"}, "setup.exe: not an Inno Setup installer (no loader signature found)"},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNSISExecutionErrorKindString(t *testing.T) {
	err := &NSISExecutionError{Kind: NSISExecutionStepBudgetExceeded, InstructionN: 42}
	want := "nsis execution halted at instruction 42: step budget exceeded"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCabExtractionErrorWrapsNilErr(t *testing.T) {
	err := &CabExtractionError{Reason: "bad magic"}
	if err.Unwrap() != nil {
		t.Fatal("expected nil Unwrap when Err is nil")
	}
	if err.Error() != "cabinet extraction failed: bad magic" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
