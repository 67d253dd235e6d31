package nsis

import (
	"encoding/binary"
	"testing"

	"github.com/russellbanks/komac-analyzer/internal/byteview"
)

func buildNSISOverlay(headerSize, archiveSize uint32, flags uint32) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, make([]byte, 32)...) // simulate preceding PE bytes
	buf = append(buf, FirstHeaderSignature...)
	fields := make([]byte, 12)
	binary.LittleEndian.PutUint32(fields[0:], flags)
	binary.LittleEndian.PutUint32(fields[4:], headerSize)
	binary.LittleEndian.PutUint32(fields[8:], archiveSize)
	buf = append(buf, fields...)
	buf = append(buf, make([]byte, 200)...) // trailing archive bytes
	return buf
}

func TestFindFirstHeader(t *testing.T) {
	data := buildNSISOverlay(100, 150, 0)
	fh, ok := FindFirstHeader(byteview.New(data))
	if !ok {
		t.Fatal("expected to find first header")
	}
	if fh.SignatureOffset != 32 {
		t.Errorf("SignatureOffset = %d, want 32", fh.SignatureOffset)
	}
	if fh.HeaderSize != 100 || fh.ArchiveSize != 150 {
		t.Errorf("unexpected sizes: %+v", fh)
	}
}

func TestFindFirstHeaderAbsent(t *testing.T) {
	if _, ok := FindFirstHeader(byteview.New([]byte("no nsis signature here"))); ok {
		t.Fatal("expected not to find a first header")
	}
}

func TestLooksLikeNSIS(t *testing.T) {
	good := buildNSISOverlay(100, 150, 0)
	if !LooksLikeNSIS(byteview.New(good)) {
		t.Error("expected plausible first header to look like NSIS")
	}

	bad := buildNSISOverlay(1<<30, 150, 0) // header size far exceeds overlay
	if LooksLikeNSIS(byteview.New(bad)) {
		t.Error("expected implausible header size to be rejected")
	}
}

func TestDiscriminateCompression(t *testing.T) {
	if k := discriminateCompression(0x1, []byte{0x78, 0x9c}); k != CompressionNone {
		t.Errorf("expected CompressionNone when flag bit 0 set, got %v", k)
	}
	if k := discriminateCompression(0, []byte{0x78, 0x9c}); k != CompressionZlib {
		t.Errorf("expected CompressionZlib, got %v", k)
	}
	if k := discriminateCompression(0, []byte("BZh9...")); k != CompressionBzip2 {
		t.Errorf("expected CompressionBzip2, got %v", k)
	}
	if k := discriminateCompression(0, []byte{0x5d, 0x00}); k != CompressionLZMA {
		t.Errorf("expected CompressionLZMA default, got %v", k)
	}
}

func TestValidateRejectsOversizedFields(t *testing.T) {
	fh := FirstHeader{SignatureOffset: 32, HeaderSize: 1 << 30, ArchiveSize: 10}
	if err := fh.Validate(100); err == nil {
		t.Fatal("expected validation error for oversized header")
	}
}
