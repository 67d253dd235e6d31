package msi

import (
	"encoding/binary"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
)

// Well-known summary-information property IDs (PIDSI_*), the small
// subset of the fixed MS-OLEPS property set this analyzer reads out of
// an MSI's "\x05SummaryInformation" stream.
const (
	pidsiCodepage    = 1
	pidsiTitle       = 2
	pidsiSubject     = 3
	pidsiAuthor      = 4
	pidsiComments    = 6
	pidsiTemplate    = 7
	pidsiRevNumber   = 9
	pidsiCreatingApp = 18
)

const (
	vtI2      = 2
	vtI4      = 3
	vtLPSTR   = 30
	vtFILETIME = 64
)

// summaryInfo is the decoded subset of an MSI's summary-information
// property set: the architecture/LCID template string, the creating
// application (used to detect WiX-built packages), the package code
// (RevNumber), and the Comments field (Chrome-style installers stash a
// version override in its leading token).
type summaryInfo struct {
	Template      string
	CreatingApp   string
	Comments      string
	Title         string
	Subject       string
	Author        string
	PackageCode   string
	CodePage      int16
}

// parseSummaryInfo hand-decodes the standard OLE Property Set Storage
// binary format (a fixed, publicly documented header + dictionary +
// typed-value layout) rather than going through a third-party OLE
// property library: the format is small, stable, and only a handful of
// scalar property types actually appear in an MSI's summary stream.
func parseSummaryInfo(data []byte) (*summaryInfo, error) {
	const headerLen = 28
	if len(data) < headerLen+20 {
		return nil, &analysiserr.MalformedMSIError{Reason: "_SummaryInformation stream too short"}
	}
	numSets := binary.LittleEndian.Uint32(data[24:28])
	if numSets == 0 {
		return nil, &analysiserr.MalformedMSIError{Reason: "_SummaryInformation declares zero property sets"}
	}
	// Each set descriptor is a 16-byte FMTID followed by a 4-byte
	// offset; only the first (and for summary info, only) set matters.
	setOffset := int(binary.LittleEndian.Uint32(data[headerLen+16 : headerLen+20]))
	if setOffset < 0 || setOffset+8 > len(data) {
		return nil, &analysiserr.MalformedMSIError{Reason: "_SummaryInformation property set offset out of range"}
	}

	numProps := int(binary.LittleEndian.Uint32(data[setOffset+4 : setOffset+8]))
	dictStart := setOffset + 8
	info := &summaryInfo{CodePage: -1}

	for i := 0; i < numProps; i++ {
		entryOff := dictStart + i*8
		if entryOff+8 > len(data) {
			return nil, &analysiserr.MalformedMSIError{Reason: "_SummaryInformation property dictionary truncated"}
		}
		propID := binary.LittleEndian.Uint32(data[entryOff : entryOff+4])
		valueOff := setOffset + int(binary.LittleEndian.Uint32(data[entryOff+4:entryOff+8]))
		if valueOff < 0 || valueOff+4 > len(data) {
			continue
		}
		vtype := binary.LittleEndian.Uint32(data[valueOff : valueOff+4])
		body := data[valueOff+4:]

		switch propID {
		case pidsiCodepage:
			if v, ok := readI2(vtype, body); ok {
				info.CodePage = v
			}
		case pidsiTitle:
			info.Title = readStr(vtype, body, info.CodePage)
		case pidsiSubject:
			info.Subject = readStr(vtype, body, info.CodePage)
		case pidsiAuthor:
			info.Author = readStr(vtype, body, info.CodePage)
		case pidsiComments:
			info.Comments = readStr(vtype, body, info.CodePage)
		case pidsiTemplate:
			info.Template = readStr(vtype, body, info.CodePage)
		case pidsiRevNumber:
			info.PackageCode = readStr(vtype, body, info.CodePage)
		case pidsiCreatingApp:
			info.CreatingApp = readStr(vtype, body, info.CodePage)
		}
	}
	return info, nil
}

func readI2(vtype uint32, body []byte) (int16, bool) {
	if vtype != vtI2 || len(body) < 2 {
		return 0, false
	}
	return int16(binary.LittleEndian.Uint16(body[:2])), true
}

// readStr decodes a VT_LPSTR value: a u32 byte length (including the
// trailing NUL) followed by that many codepage-encoded bytes. Anything
// else (a differently typed or absent property) decodes to "".
func readStr(vtype uint32, body []byte, codepage int16) string {
	if vtype != vtLPSTR || len(body) < 4 {
		return ""
	}
	n := int(binary.LittleEndian.Uint32(body[:4]))
	if n <= 0 || 4+n > len(body) {
		return ""
	}
	raw := body[4 : 4+n]
	for len(raw) > 0 && raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-1]
	}
	decoder := codepageDecoder(uint16(codepage))
	s, err := decoder(raw)
	if err != nil {
		return string(raw)
	}
	return s
}
