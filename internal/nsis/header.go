package nsis

import (
	"bytes"
	"compress/bzip2"
	"compress/zlib"
	"io"

	"github.com/ulikunitz/xz/lzma"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
)

// blockIndex identifies one of the six fixed-order block-table entries
// the decompressed header begins with: each is an (offset, count) pair
// into the header, counted in records sized for that block.
type blockIndex int

const (
	blockPages blockIndex = iota
	blockSections
	blockEntries
	blockStrings
	blockLangTables
	blockColors
	numBlocks
)

const (
	commonHeaderFlagsOffset = 0
	blockTableOffset        = 4
	blockTableEntrySize     = 8 // (offset u32, count/num u32)

	entryRecordSize = 28 // u32 opcode + 6×i32 operands
)

// Header is the decompressed NSIS header: the block table plus raw
// views over the entries (instruction) table and the string heap.
type Header struct {
	Flags       uint32
	Entries     []Instruction
	StringsView byteview.View
	Unicode     bool
}

// Instruction is one decoded 28-byte bytecode record.
type Instruction struct {
	Opcode  Opcode
	Offsets [6]int32
}

// decompressHeader inflates the header block starting at the first
// byte after the first-header fields, per the compression kind
// discriminateCompression already chose.
func decompressHeader(v byteview.View, fh FirstHeader, kind CompressionKind) ([]byte, error) {
	headerStart := fh.SignatureOffset + len(FirstHeaderSignature) + 12
	compressedView, err := v.Slice(headerStart)
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "header block start out of bounds", Err: err}
	}
	compressed := compressedView.Bytes()
	if len(compressed) > int(fh.HeaderSize) {
		compressed = compressed[:fh.HeaderSize]
	}

	switch kind {
	case CompressionNone:
		return compressed, nil
	case CompressionZlib:
		// discriminateCompression picked this kind from the leading
		// zlib header byte (0x78), so the stream carries the zlib
		// wrapper and is decoded with compress/zlib.
		zr, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "zlib header stream invalid", Err: err}
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil && len(out) == 0 {
			return nil, &analysiserr.MalformedPEError{Reason: "zlib header decompression failed", Err: err}
		}
		return out, nil
	case CompressionBzip2:
		out, err := io.ReadAll(bzip2.NewReader(bytes.NewReader(compressed)))
		if err != nil && len(out) == 0 {
			return nil, &analysiserr.MalformedPEError{Reason: "bzip2 header decompression failed", Err: err}
		}
		return out, nil
	case CompressionLZMA:
		r, err := lzma.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "lzma header stream invalid", Err: err}
		}
		out, err := io.ReadAll(r)
		if err != nil && len(out) == 0 {
			return nil, &analysiserr.MalformedPEError{Reason: "lzma header decompression failed", Err: err}
		}
		return out, nil
	default:
		return nil, &analysiserr.MalformedPEError{Reason: "unrecognized header compression kind"}
	}
}

// ParseHeader decompresses and decodes the NSIS header at fh within v,
// returning the entries table and a view over the string heap.
func ParseHeader(v byteview.View, fh FirstHeader) (*Header, error) {
	headerFieldsOffset := fh.SignatureOffset + len(FirstHeaderSignature)
	leading, _ := v.ReadBytes(headerFieldsOffset+12, 4)
	kind := discriminateCompression(fh.Flags, leading)

	raw, err := decompressHeader(v, fh, kind)
	if err != nil {
		return nil, err
	}
	hv := byteview.New(raw)

	flags, err := hv.ReadU32(commonHeaderFlagsOffset)
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "decompressed header too short for flags", Err: err}
	}

	var offsets, counts [numBlocks]uint32
	for i := 0; i < int(numBlocks); i++ {
		off := blockTableOffset + i*blockTableEntrySize
		o, err := hv.ReadU32(off)
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "block table truncated", Err: err}
		}
		c, err := hv.ReadU32(off + 4)
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "block table truncated", Err: err}
		}
		offsets[i] = o
		counts[i] = c
	}

	entries, err := decodeEntries(hv, offsets[blockEntries], counts[blockEntries])
	if err != nil {
		return nil, err
	}

	stringsView, err := hv.Slice(int(offsets[blockStrings]))
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "strings table offset out of bounds", Err: err}
	}

	return &Header{
		Flags:       flags,
		Entries:     entries,
		StringsView: stringsView,
		Unicode:     flags&headerFlagUnicode != 0,
	}, nil
}

const headerFlagUnicode = 1 << 0

func decodeEntries(hv byteview.View, offset, count uint32) ([]Instruction, error) {
	out := make([]Instruction, 0, count)
	for i := uint32(0); i < count; i++ {
		base := int(offset) + int(i)*entryRecordSize
		op, err := hv.ReadU32(base)
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "entries table truncated", Err: err}
		}
		var ins Instruction
		ins.Opcode = Opcode(op)
		for j := 0; j < 6; j++ {
			v, err := hv.ReadU32(base + 4 + j*4)
			if err != nil {
				return nil, &analysiserr.MalformedPEError{Reason: "entries table truncated", Err: err}
			}
			ins.Offsets[j] = int32(v)
		}
		out = append(out, ins)
	}
	return out, nil
}
