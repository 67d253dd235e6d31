package inno

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/ulikunitz/xz/lzma"
	"golang.org/x/text/encoding/unicode"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
)

// headerBlockOverhead is the fixed CRC32 + compressed-size +
// uncompressed-size prefix Inno Setup writes immediately before the
// header's compressed bytes.
const headerBlockOverhead = 12

// Header is the reduced set of Inno Setup header fields this package
// decodes: the ones that feed InstallerRecord directly. The real
// format's header carries dozens of additional gated fields (wizard
// images, dialog font names, disk-spanning parameters, ...) that have
// no InstallerRecord counterpart and are skipped rather than decoded.
type Header struct {
	AppId                             string
	AppName                           string
	AppVersion                        string
	AppPublisher                      string
	DefaultDirName                    string
	PrivilegeLevel                    string
	PrivilegesRequiredOverridesAllowed string
	ArchitecturesAllowed              string
	ArchitecturesInstallIn64BitMode   string
	Uninstallable                     bool
}

// decompressHeaderBlock reads Inno's CRC/size-prefixed block starting
// at offset and returns the decompressed bytes.
func decompressHeaderBlock(v byteview.View, offset int) ([]byte, error) {
	_, err := v.ReadU32(offset) // stored CRC32, not verified
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "inno header block CRC truncated", Err: err}
	}
	compressedSize, err := v.ReadU32(offset + 4)
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "inno header block size truncated", Err: err}
	}
	compressed, err := v.ReadBytes(offset+headerBlockOverhead, int(compressedSize))
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "inno header block body truncated", Err: err}
	}

	if len(compressed) >= 1 && compressed[0] == 0x78 {
		r, err := zlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "inno header zlib stream invalid", Err: err}
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil && len(out) == 0 {
			return nil, &analysiserr.MalformedPEError{Reason: "inno header zlib decompression failed", Err: err}
		}
		return out, nil
	}

	r, err := lzma.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "inno header lzma stream invalid", Err: err}
	}
	out, err := io.ReadAll(r)
	if err != nil && len(out) == 0 {
		return nil, &analysiserr.MalformedPEError{Reason: "inno header lzma decompression failed", Err: err}
	}
	return out, nil
}

// fieldReader walks length-prefixed strings and little-endian integers
// over a decompressed header blob.
type fieldReader struct {
	v       byteview.View
	pos     int
	unicode bool
}

func (r *fieldReader) string() string {
	n, err := r.v.ReadU32(r.pos)
	if err != nil {
		return ""
	}
	r.pos += 4
	if n == 0 {
		return ""
	}
	byteLen := int(n)
	if r.unicode {
		byteLen *= 2
	}
	raw, err := r.v.ReadBytes(r.pos, byteLen)
	if err != nil {
		r.pos = r.v.Len()
		return ""
	}
	r.pos += byteLen
	if !r.unicode {
		return string(raw)
	}
	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().String(string(raw))
	if err != nil {
		return ""
	}
	return decoded
}

func (r *fieldReader) u8() byte {
	b, err := r.v.ReadU8(r.pos)
	if err != nil {
		return 0
	}
	r.pos++
	return b
}

// ParseHeader decompresses the header block following loader at
// ver and decodes the reduced field set. Unicode string encoding is
// assumed for Inno Setup 6.x and ANSI for everything older, since
// pre-6 Unicode/ANSI builds are distinguished by a flag this reduced
// schema does not decode.
func ParseHeader(v byteview.View, loader Loader) (*Header, error) {
	ver := loader.Version
	blockOffset := loader.Offset + len(loaderMagicPrefix)
	// Skip past the version string's digits and closing paren.
	rest := v.Bytes()[blockOffset:]
	closeIdx := bytes.IndexByte(rest, ')')
	if closeIdx < 0 {
		return nil, &analysiserr.MalformedPEError{Reason: "inno loader version string unterminated"}
	}
	blockOffset += closeIdx + 1

	raw, err := decompressHeaderBlock(v, blockOffset)
	if err != nil {
		return nil, err
	}

	fr := &fieldReader{v: byteview.New(raw), unicode: ver.AtLeast(6, 0, 0)}
	h := &Header{
		AppId:                              fr.string(),
		AppName:                            fr.string(),
		AppVersion:                         fr.string(),
		AppPublisher:                       fr.string(),
		DefaultDirName:                     fr.string(),
		PrivilegeLevel:                     privilegeLevelName(fr.u8()),
		PrivilegesRequiredOverridesAllowed: fr.string(),
	}
	if ver.AtLeast(5, 5, 0) {
		h.ArchitecturesAllowed = fr.string()
		h.ArchitecturesInstallIn64BitMode = fr.string()
	}
	h.Uninstallable = fr.u8() != 0
	return h, nil
}

func privilegeLevelName(b byte) string {
	switch b {
	case 0:
		return "none"
	case 1:
		return "power-user"
	case 2:
		return "admin"
	case 3:
		return "lowest"
	default:
		return "none"
	}
}
