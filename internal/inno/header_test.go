package inno

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"

	"github.com/russellbanks/komac-analyzer/internal/byteview"
)

// writeField appends a Pascal-style length-prefixed string the way
// fieldReader.string expects to read it back.
func writeField(buf *bytes.Buffer, s string, unicode bool) {
	if !unicode {
		binary.Write(buf, binary.LittleEndian, uint32(len(s)))
		buf.WriteString(s)
		return
	}
	runes := []rune(s)
	binary.Write(buf, binary.LittleEndian, uint32(len(runes)))
	for _, r := range runes {
		binary.Write(buf, binary.LittleEndian, uint16(r))
	}
}

func buildInnoBlob(ver Version, fields map[string]string, archAllowed, archIn64 string) []byte {
	unicode := ver.AtLeast(6, 0, 0)

	var hdr bytes.Buffer
	writeField(&hdr, fields["AppId"], unicode)
	writeField(&hdr, fields["AppName"], unicode)
	writeField(&hdr, fields["AppVersion"], unicode)
	writeField(&hdr, fields["AppPublisher"], unicode)
	writeField(&hdr, fields["DefaultDirName"], unicode)
	hdr.WriteByte(2) // PrivilegeLevel = admin
	writeField(&hdr, "", unicode)
	if ver.AtLeast(5, 5, 0) {
		writeField(&hdr, archAllowed, unicode)
		writeField(&hdr, archIn64, unicode)
	}
	hdr.WriteByte(1) // Uninstallable = true

	var compressed bytes.Buffer
	zw := zlib.NewWriter(&compressed)
	zw.Write(hdr.Bytes())
	zw.Close()

	var blob bytes.Buffer
	blob.WriteString("junk-prefix")
	blob.WriteString(loaderMagicPrefix)
	blob.WriteString(ver.String())
	blob.WriteByte(')')
	binary.Write(&blob, binary.LittleEndian, uint32(0xdeadbeef)) // CRC, unchecked
	binary.Write(&blob, binary.LittleEndian, uint32(compressed.Len()))
	blob.Write(compressed.Bytes())
	return blob.Bytes()
}

func TestParseHeaderRoundTrip(t *testing.T) {
	ver := Version{6, 4, 0, 0}
	blob := buildInnoBlob(ver, map[string]string{
		"AppId":          "{{WIDGET-APP-ID}}",
		"AppName":        "Widget",
		"AppVersion":     "1.2.3",
		"AppPublisher":   "Contoso",
		"DefaultDirName": `{autopf}\Widget`,
	}, "x64", "")

	v := byteview.New(blob)
	loader, err := FindLoaderSignature(v)
	if err != nil {
		t.Fatalf("FindLoaderSignature: %v", err)
	}
	if loader.Version != ver {
		t.Fatalf("loader version = %v, want %v", loader.Version, ver)
	}

	h, err := ParseHeader(v, loader)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.AppName != "Widget" {
		t.Errorf("AppName = %q", h.AppName)
	}
	if h.AppPublisher != "Contoso" {
		t.Errorf("AppPublisher = %q", h.AppPublisher)
	}
	if h.DefaultDirName != `{autopf}\Widget` {
		t.Errorf("DefaultDirName = %q", h.DefaultDirName)
	}
	if h.PrivilegeLevel != "admin" {
		t.Errorf("PrivilegeLevel = %q, want admin", h.PrivilegeLevel)
	}
	if h.ArchitecturesAllowed != "x64" {
		t.Errorf("ArchitecturesAllowed = %q, want x64", h.ArchitecturesAllowed)
	}
	if !h.Uninstallable {
		t.Error("expected Uninstallable true")
	}
}

func TestParseHeaderPreUnicode(t *testing.T) {
	ver := Version{5, 5, 0, 0}
	blob := buildInnoBlob(ver, map[string]string{
		"AppName":        "OldApp",
		"AppPublisher":   "Acme",
		"DefaultDirName": `{pf}\OldApp`,
	}, "x86", "")

	v := byteview.New(blob)
	loader, _ := FindLoaderSignature(v)
	h, err := ParseHeader(v, loader)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if h.AppName != "OldApp" {
		t.Errorf("AppName = %q", h.AppName)
	}
	if h.ArchitecturesAllowed != "x86" {
		t.Errorf("ArchitecturesAllowed = %q", h.ArchitecturesAllowed)
	}
}
