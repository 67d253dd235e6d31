// Package nsis locates and interprets an NSIS installer embedded in a
// PE's overlay: the first-header signature scan, header decompression,
// and a bytecode virtual machine over the decompressed entries table.
//
// The VM's write-only file-system/registry collectors and step-budget
// guard are grounded on the teacher's own simulated-registry idiom
// (internal/registry/registry.go), generalized from a static .reg-file
// tree into a runtime collector (see internal/registrysim).
package nsis

import (
	"bytes"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
)

// FirstHeaderSignature is the 16-byte magic NSIS stamps immediately
// before its first header.
var FirstHeaderSignature = []byte{0xEF, 0xBE, 0xAD, 0xDE, 'N', 'u', 'l', 'l', 'S', 'o', 'f', 't', 'I', 'n', 's', 't'}

// CompressionKind identifies how the header/data blocks were packed.
type CompressionKind int

const (
	CompressionNone CompressionKind = iota
	CompressionZlib
	CompressionBzip2
	CompressionLZMA
)

// FirstHeader is the fixed-layout record immediately following the
// signature: flags and the two size fields needed to locate and
// validate the compressed header block.
type FirstHeader struct {
	// SignatureOffset is the file offset FirstHeaderSignature itself
	// starts at.
	SignatureOffset int
	Flags           uint32
	HeaderSize      uint32
	ArchiveSize     uint32
}

// FindFirstHeader scans v for the NSIS first-header signature and
// decodes the flags/size fields that follow it. NSIS EXEs place this
// anywhere after the PE image proper (the "overlay"), so the scan
// covers the whole view rather than a known fixed offset.
func FindFirstHeader(v byteview.View) (FirstHeader, bool) {
	data := v.Bytes()
	idx := bytes.Index(data, FirstHeaderSignature)
	if idx < 0 {
		return FirstHeader{}, false
	}
	fieldsOffset := idx + len(FirstHeaderSignature)
	flags, err := v.ReadU32(fieldsOffset)
	if err != nil {
		return FirstHeader{}, false
	}
	headerSize, err := v.ReadU32(fieldsOffset + 4)
	if err != nil {
		return FirstHeader{}, false
	}
	archiveSize, err := v.ReadU32(fieldsOffset + 8)
	if err != nil {
		return FirstHeader{}, false
	}
	return FirstHeader{
		SignatureOffset: idx,
		Flags:           flags,
		HeaderSize:      headerSize,
		ArchiveSize:     archiveSize,
	}, true
}

// LooksLikeNSIS reports whether v contains a structurally plausible
// first header, without decompressing or validating its contents —
// the cheap probe internal/dispatch uses during family detection.
func LooksLikeNSIS(v byteview.View) bool {
	fh, ok := FindFirstHeader(v)
	if !ok {
		return false
	}
	overlayLen := v.Len() - fh.SignatureOffset
	return int(fh.HeaderSize) > 0 && int(fh.HeaderSize) <= overlayLen && int(fh.ArchiveSize) <= overlayLen
}

// Validate checks the declared sizes against the blob length, failing
// with MalformedPEError the way the rest of the PE-adjacent layers do
// (an NSIS overlay is still part of the same artifact blob).
func (fh FirstHeader) Validate(totalLen int) error {
	overlayLen := totalLen - fh.SignatureOffset
	if overlayLen < 0 || int(fh.HeaderSize) > overlayLen || int(fh.ArchiveSize) > overlayLen {
		return &analysiserr.MalformedPEError{Reason: "NSIS first-header sizes exceed overlay length"}
	}
	return nil
}

// discriminateCompression guesses the header block's compression from
// its leading bytes and the first-header flags: a zlib stream begins
// with 0x78, bzip2 with 'B''Z''h', and NSIS flags a raw (uncompressed)
// header with bit 0 of Flags; anything else is treated as LZMA, NSIS's
// default since 2.0.
func discriminateCompression(flags uint32, leading []byte) CompressionKind {
	if flags&0x1 != 0 {
		return CompressionNone
	}
	if len(leading) >= 2 && leading[0] == 0x78 {
		return CompressionZlib
	}
	if len(leading) >= 3 && leading[0] == 'B' && leading[1] == 'Z' && leading[2] == 'h' {
		return CompressionBzip2
	}
	return CompressionLZMA
}
