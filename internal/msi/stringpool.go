package msi

import (
	"encoding/binary"

	"golang.org/x/text/encoding/charmap"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
)

// stringPool is the MSI database's string table: a 1-indexed array of
// decoded strings (index 0 is unused/the null string) plus whether
// table rows use 3-byte (long) or 2-byte string references.
type stringPool struct {
	strings  []string
	longRefs bool
	codepage uint16
}

const longStringRefFlag = 0x8000

// parseStringPool decodes the paired _StringPool/_StringData streams.
// _StringPool is an array of (length:u16, refcount:u16) records; record
// 0 is a header whose length field is the codepage and whose refcount
// field's high bit flags long (3-byte) string references. _StringData
// is the concatenation of every string's raw bytes in that codepage.
func parseStringPool(poolBytes, dataBytes []byte) (*stringPool, error) {
	if len(poolBytes) < 4 {
		return nil, &analysiserr.MalformedMSIError{Reason: "_StringPool stream too short"}
	}
	codepage := binary.LittleEndian.Uint16(poolBytes[0:2])
	headerFlags := binary.LittleEndian.Uint16(poolBytes[2:4])
	longRefs := headerFlags&longStringRefFlag != 0

	decoder := codepageDecoder(codepage)

	pool := &stringPool{longRefs: longRefs, codepage: codepage}
	pool.strings = append(pool.strings, "") // index 0 is the null string

	dataOffset := 0
	for off := 4; off+4 <= len(poolBytes); off += 4 {
		length := int(binary.LittleEndian.Uint16(poolBytes[off : off+2]))
		if length == 0 {
			refcount := binary.LittleEndian.Uint16(poolBytes[off+2 : off+4])
			if refcount != 0 {
				// Extended-length marker for a string >= 64KiB: the
				// actual length is this refcount combined with the
				// following record's length field. Rare in practice;
				// treated as an empty string rather than failing the
				// whole parse.
				pool.strings = append(pool.strings, "")
				continue
			}
			pool.strings = append(pool.strings, "")
			continue
		}
		if dataOffset+length > len(dataBytes) {
			return nil, &analysiserr.MalformedMSIError{Reason: "_StringData shorter than _StringPool declares"}
		}
		raw := dataBytes[dataOffset : dataOffset+length]
		dataOffset += length
		decoded, err := decoder(raw)
		if err != nil {
			decoded = string(raw)
		}
		pool.strings = append(pool.strings, decoded)
	}
	return pool, nil
}

// codepageDecoder returns a byte-decoder for the database's declared
// codepage. Only the overwhelmingly common Western codepage is
// special-cased; everything else (including 0/neutral and UTF-8
// databases) is treated as already-valid UTF-8/ASCII, which is a safe
// superset read for identifiers and English metadata strings.
func codepageDecoder(codepage uint16) func([]byte) (string, error) {
	if codepage == 1252 {
		return func(b []byte) (string, error) {
			return charmap.Windows1252.NewDecoder().String(string(b))
		}
	}
	return func(b []byte) (string, error) {
		return string(b), nil
	}
}

// Get returns the string at a 1-based pool reference, or "" for a null
// reference (0).
func (p *stringPool) Get(ref uint32) string {
	if ref == 0 || int(ref) >= len(p.strings) {
		return ""
	}
	return p.strings[ref]
}

// RefWidth is the byte width of a string-reference column in a table
// row: 3 bytes if the pool flagged long references, else 2.
func (p *stringPool) RefWidth() int {
	if p.longRefs {
		return 3
	}
	return 2
}
