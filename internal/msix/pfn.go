package msix

import (
	"crypto/sha256"
	"strings"
	"unicode/utf16"
)

// pfnAlphabet is the 32-character alphabet Windows uses to encode a
// package's publisher id: digits and uppercase letters with I, L, O,
// and U removed to avoid visual ambiguity with 1/0.
const pfnAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// PackageFamilyName computes the documented Windows algorithm deriving
// a package family name from a package's Identity Name and Publisher
// (its full distinguished name, e.g. "CN=Contoso Software, O=Contoso
// Corp, ..."): hash the publisher string's UTF-16LE bytes with
// SHA-256, keep the first 64 bits, pad with one zero bit to 65 bits,
// and encode that as 13 base32-ish characters.
func PackageFamilyName(name, publisher string) string {
	return name + "_" + publisherID(publisher)
}

func publisherID(publisher string) string {
	u16 := utf16.Encode([]rune(publisher))
	raw := make([]byte, len(u16)*2)
	for i, c := range u16 {
		raw[2*i] = byte(c)
		raw[2*i+1] = byte(c >> 8)
	}

	sum := sha256.Sum256(raw)
	first8 := sum[:8]

	// 64 hash bits + one appended zero bit = 65 bits = 13 groups of 5.
	var bits [65]byte
	for i := 0; i < 64; i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		bits[i] = (first8[byteIdx] >> bitIdx) & 1
	}
	// bits[64] is already zero (Go zero-value), the appended pad bit.

	var b strings.Builder
	for g := 0; g < 13; g++ {
		var v byte
		for i := 0; i < 5; i++ {
			v = v<<1 | bits[g*5+i]
		}
		b.WriteByte(pfnAlphabet[v])
	}
	return strings.ToLower(b.String())
}
