// Package msi analyzes MSI compound-document databases: opening the
// storage via mscfb, hand-decoding _SummaryInformation (summaryinfo.go),
// and decoding the Property, Directory, and Control tables well enough to
// answer the specific questions spec.md §4.3 asks of them (it does not
// implement a general MSI query engine — only the fixed-schema tables
// the analyzer actually consults).
//
// Grounded on the mscfb usage observed in the pack's
// michelbragaguimaraes-LetsGoIntunePackager go.mod, and on
// original_source/src/msi.rs for the exact property/table semantics
// (the Rust `msi` crate's Select/table API that source calls against).
package msi

import (
	"io"
	"strings"

	"github.com/richardlehane/mscfb"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
)

// msiNameCharset is the mapping MSI uses to mangle table/stream names
// into the CFB storage's limited character set: pairs of name
// characters are packed into single high-Unicode code points in the
// range U+3800-U+483F, each indexing this 64-entry alphabet (with a
// 0x4800 offset for single trailing characters). This is the standard,
// publicly documented MSI compound-file name-mangling scheme.
const msiNameCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz._"

// mangleStreamName converts a logical table/stream name (e.g.
// "Property", "_StringPool") into the mangled form MSI actually stores
// it under in the compound file.
func mangleStreamName(name string) string {
	var b strings.Builder
	runes := []rune(name)
	i := 0
	for i+1 < len(runes) {
		c1 := charsetIndex(runes[i])
		c2 := charsetIndex(runes[i+1])
		if c1 < 0 || c2 < 0 {
			b.WriteString(string(runes[i:]))
			return b.String()
		}
		b.WriteRune(rune(0x3800 + c1 + c2*64))
		i += 2
	}
	if i < len(runes) {
		if c := charsetIndex(runes[i]); c >= 0 {
			b.WriteRune(rune(0x4800 + c))
		} else {
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

func charsetIndex(r rune) int {
	return strings.IndexRune(msiNameCharset, r)
}

// streamSet is every stream of interest read out of a compound
// document in a single forward pass (mscfb's reader is forward-only,
// so random re-reads aren't possible after Next() has moved on).
type streamSet map[string][]byte

// readStreams makes one pass over r, returning the raw contents of
// every entry whose name matches one of wanted (compared against both
// its literal and mangled forms).
func readStreams(r *mscfb.Reader, wanted ...string) (streamSet, error) {
	lookup := make(map[string]string, len(wanted)*2)
	for _, w := range wanted {
		lookup[w] = w
		lookup[mangleStreamName(w)] = w
	}

	out := make(streamSet)
	for entry, err := r.Next(); err == nil; entry, err = r.Next() {
		if entry == nil || entry.FileInfo().IsDir() {
			continue
		}
		logical, ok := lookup[entry.Name]
		if !ok {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, &analysiserr.MalformedMSIError{Reason: "reading stream " + logical, Err: err}
		}
		out[logical] = data
	}
	return out, nil
}
