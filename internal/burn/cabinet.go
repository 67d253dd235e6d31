package burn

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
)

// This package hand-decodes just enough of the Microsoft Cabinet (CAB)
// format to read one named entry out of the bootstrapper-application
// container WiX's burn.exe embeds: a single-folder cabinet, as burn
// always produces for that container, whose data blocks use either no
// compression or MSZIP (raw deflate behind a "CK" signature per block,
// each block decoded with the previous block's 32KiB window). No cabinet-extraction library appears
// anywhere in the retrieved corpus (see DESIGN.md open question (a)),
// so this is a narrow reader rather than a general-purpose one.

const cabSignature = "MSCF"

const (
	compressNone = 0
	compressMSZip = 1
)

type cfHeader struct {
	coffFiles   uint32
	cFolders    uint16
	cFiles      uint16
	flags       uint16
}

type cfFolder struct {
	coffCabStart uint32
	cCFData      uint16
	typeCompress uint16
}

type cfFile struct {
	cbFile         uint32
	uoffFolderStart uint32
	iFolder        uint16
	name           string
}

// ExtractEntry opens a CAB image and returns the decompressed bytes of
// the file entry named name (Burn's manifest is always stored as "0").
func ExtractEntry(data []byte, name string) ([]byte, error) {
	if len(data) < 36 || string(data[0:4]) != cabSignature {
		return nil, &analysiserr.CabExtractionError{Reason: "missing MSCF signature"}
	}

	hdr := cfHeader{
		coffFiles: binary.LittleEndian.Uint32(data[16:20]),
		cFolders:  binary.LittleEndian.Uint16(data[26:28]),
		cFiles:    binary.LittleEndian.Uint16(data[28:30]),
		flags:     binary.LittleEndian.Uint16(data[30:32]),
	}
	if hdr.cFolders == 0 {
		return nil, &analysiserr.CabExtractionError{Reason: "cabinet declares zero folders"}
	}

	off := 36
	const (
		flagPrevCab     = 0x0001
		flagNextCab     = 0x0002
		flagReservePresent = 0x0004
	)
	if hdr.flags&flagReservePresent != 0 {
		if off+4 > len(data) {
			return nil, &analysiserr.CabExtractionError{Reason: "truncated cabinet reserve header"}
		}
		cbCFHeader := binary.LittleEndian.Uint16(data[off : off+2])
		off += 4 // cbCFHeader(u16) + cbCFFolder(u8) + cbCFData(u8)
		off += int(cbCFHeader)
	}
	if hdr.flags&flagPrevCab != 0 {
		off = skipCString(data, off)
		off = skipCString(data, off) // disk name
	}
	if hdr.flags&flagNextCab != 0 {
		off = skipCString(data, off)
		off = skipCString(data, off)
	}

	if off+8 > len(data) {
		return nil, &analysiserr.CabExtractionError{Reason: "truncated CFFOLDER entry"}
	}
	folder := cfFolder{
		coffCabStart: binary.LittleEndian.Uint32(data[off : off+4]),
		cCFData:      binary.LittleEndian.Uint16(data[off+4 : off+6]),
		typeCompress: binary.LittleEndian.Uint16(data[off+6 : off+8]),
	}

	filesOff := int(hdr.coffFiles)
	var target *cfFile
	for i := 0; i < int(hdr.cFiles); i++ {
		if filesOff+16 > len(data) {
			return nil, &analysiserr.CabExtractionError{Reason: "truncated CFFILE entry"}
		}
		f := cfFile{
			cbFile:          binary.LittleEndian.Uint32(data[filesOff : filesOff+4]),
			uoffFolderStart: binary.LittleEndian.Uint32(data[filesOff+4 : filesOff+8]),
			iFolder:         binary.LittleEndian.Uint16(data[filesOff+8 : filesOff+10]),
		}
		nameStart := filesOff + 16
		nameEnd := skipCString(data, nameStart)
		f.name = string(data[nameStart : nameEnd-1])
		filesOff = nameEnd

		if f.name == name {
			cp := f
			target = &cp
		}
	}
	if target == nil {
		return nil, &analysiserr.CabExtractionError{Reason: fmt.Sprintf("no cabinet entry named %q", name)}
	}

	folderBytes, err := decompressFolder(data, int(folder.coffCabStart), int(folder.cCFData), folder.typeCompress)
	if err != nil {
		return nil, err
	}
	start := int(target.uoffFolderStart)
	end := start + int(target.cbFile)
	if end > len(folderBytes) {
		return nil, &analysiserr.CabExtractionError{Reason: "entry extends past decompressed folder data"}
	}
	return folderBytes[start:end], nil
}

// decompressFolder concatenates the decompressed payload of every
// CFDATA block belonging to one folder, chaining MSZIP's 32KiB sliding
// window across blocks the way the format requires.
func decompressFolder(data []byte, offset, blockCount int, typeCompress uint16) ([]byte, error) {
	var out []byte
	off := offset
	for i := 0; i < blockCount; i++ {
		if off+8 > len(data) {
			return nil, &analysiserr.CabExtractionError{Reason: "truncated CFDATA block"}
		}
		cbData := binary.LittleEndian.Uint16(data[off+4 : off+6])
		cbUncomp := binary.LittleEndian.Uint16(data[off+6 : off+8])
		blockStart := off + 8
		blockEnd := blockStart + int(cbData)
		if blockEnd > len(data) {
			return nil, &analysiserr.CabExtractionError{Reason: "CFDATA block extends past cabinet"}
		}
		block := data[blockStart:blockEnd]

		switch typeCompress {
		case compressNone:
			out = append(out, block...)
		case compressMSZip:
			if len(block) < 2 || block[0] != 'C' || block[1] != 'K' {
				return nil, &analysiserr.CabExtractionError{Reason: "missing MSZIP 'CK' block signature"}
			}
			decoded, err := inflateMSZipBlock(block[2:], out, int(cbUncomp))
			if err != nil {
				return nil, &analysiserr.CabExtractionError{Reason: "decompressing MSZIP block", Err: err}
			}
			out = append(out, decoded...)
		default:
			return nil, &analysiserr.CabExtractionError{Reason: fmt.Sprintf("unsupported folder compression type %d", typeCompress)}
		}
		off = blockEnd
	}
	return out, nil
}

const mszipWindow = 32 * 1024

func inflateMSZipBlock(raw []byte, priorOutput []byte, wantLen int) ([]byte, error) {
	dict := priorOutput
	if len(dict) > mszipWindow {
		dict = dict[len(dict)-mszipWindow:]
	}
	fr := flate.NewReaderDict(bytes.NewReader(raw), dict)
	defer fr.Close()
	buf := make([]byte, wantLen)
	n, err := io.ReadFull(fr, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:n], nil
}

func skipCString(data []byte, start int) int {
	i := start
	for i < len(data) && data[i] != 0 {
		i++
	}
	return i + 1
}
