// Package analysiserr defines the typed error taxonomy returned by every
// analyzer package. Each error wraps enough context to identify what was
// being read and why it failed, and supports errors.As/errors.Is so
// callers can branch on failure kind without string matching.
package analysiserr

import "fmt"

// MalformedPEError reports a structurally invalid PE/COFF image.
type MalformedPEError struct {
	Reason string
	Err    error
}

func (e *MalformedPEError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed PE image: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed PE image: %s", e.Reason)
}

func (e *MalformedPEError) Unwrap() error { return e.Err }

// MalformedMSIError reports a structurally invalid MSI compound document.
type MalformedMSIError struct {
	Reason string
	Err    error
}

func (e *MalformedMSIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed MSI database: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed MSI database: %s", e.Reason)
}

func (e *MalformedMSIError) Unwrap() error { return e.Err }

// MalformedZipError reports a structurally invalid ZIP/MSIX container.
type MalformedZipError struct {
	Reason string
	Err    error
}

func (e *MalformedZipError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed zip archive: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed zip archive: %s", e.Reason)
}

func (e *MalformedZipError) Unwrap() error { return e.Err }

// MalformedXMLError reports an unparseable manifest (Burn UX manifest,
// Appx/MSIX manifest, bundle manifest).
type MalformedXMLError struct {
	Document string
	Err      error
}

func (e *MalformedXMLError) Error() string {
	return fmt.Sprintf("malformed %s XML: %v", e.Document, e.Err)
}

func (e *MalformedXMLError) Unwrap() error { return e.Err }

// UnsupportedExtensionError reports a file extension that has no
// registered family dispatcher.
type UnsupportedExtensionError struct {
	Extension string
}

func (e *UnsupportedExtensionError) Error() string {
	return fmt.Sprintf("unsupported file extension: %q", e.Extension)
}

// NotBurnFileError reports that a PE lacks the .wixburn evidence a Burn
// bootstrapper requires.
type NotBurnFileError struct {
	FileName string
}

func (e *NotBurnFileError) Error() string {
	return fmt.Sprintf("%s: not a WiX Burn bundle (no .wixburn section)", e.FileName)
}

// NotNSISFileError reports that a PE's overlay does not begin with a
// recognizable NSIS first-header signature.
type NotNSISFileError struct {
	FileName string
}

func (e *NotNSISFileError) Error() string {
	return fmt.Sprintf("%s: not an NSIS installer (no first-header signature found)", e.FileName)
}

// NotInnoFileError reports that a PE's loader data lacks a recognizable
// Inno Setup signature.
type NotInnoFileError struct {
	FileName string
}

func (e *NotInnoFileError) Error() string {
	return fmt.Sprintf("%s: not an Inno Setup installer (no loader signature found)", e.FileName)
}

// UnsupportedInnoVersionError reports an Inno Setup version tuple
// outside the range this package decodes header fields for: older than
// the oldest or newer than the newest known version.
type UnsupportedInnoVersionError struct {
	Version string
}

func (e *UnsupportedInnoVersionError) Error() string {
	return fmt.Sprintf("unsupported Inno Setup version: %s", e.Version)
}

// NSISExecutionErrorKind classifies why simulated NSIS script execution
// stopped before reaching the end of the instruction stream.
type NSISExecutionErrorKind int

const (
	// NSISExecutionUnknown is the zero value and never produced directly.
	NSISExecutionUnknown NSISExecutionErrorKind = iota
	// NSISExecutionStepBudgetExceeded means the VM ran past its
	// instruction-count guard without halting (InfiniteLoop guard).
	NSISExecutionStepBudgetExceeded
	// NSISExecutionBadOpcode means the VM hit an opcode value outside
	// the closed set this package implements.
	NSISExecutionBadOpcode
	// NSISExecutionOutOfBoundsJump means a Jump or Call targeted an
	// instruction index outside the decoded instruction table.
	NSISExecutionOutOfBoundsJump
)

func (k NSISExecutionErrorKind) String() string {
	switch k {
	case NSISExecutionStepBudgetExceeded:
		return "step budget exceeded"
	case NSISExecutionBadOpcode:
		return "unrecognized opcode"
	case NSISExecutionOutOfBoundsJump:
		return "out-of-bounds jump target"
	default:
		return "unknown"
	}
}

// NSISExecutionError reports that simulated execution of the NSIS
// bytecode VM halted abnormally.
type NSISExecutionError struct {
	Kind         NSISExecutionErrorKind
	InstructionN int
}

func (e *NSISExecutionError) Error() string {
	return fmt.Sprintf("nsis execution halted at instruction %d: %s", e.InstructionN, e.Kind)
}

// CabExtractionError reports a failure reading the narrow single-folder
// cabinet format embedded in Burn bundles.
type CabExtractionError struct {
	Reason string
	Err    error
}

func (e *CabExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cabinet extraction failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("cabinet extraction failed: %s", e.Reason)
}

func (e *CabExtractionError) Unwrap() error { return e.Err }

// IoError wraps an underlying I/O failure (short read, seek past EOF)
// encountered while indexing a byte view.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error during %s: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }
