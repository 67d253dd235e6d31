package burn

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"testing"
)

// buildStoredCab assembles a minimal single-folder, single-file,
// uncompressed-block cabinet containing one entry named entryName with
// the given payload.
func buildStoredCab(t *testing.T, entryName string, payload []byte) []byte {
	t.Helper()
	return buildCab(t, entryName, payload, compressNone)
}

func buildMSZipCab(t *testing.T, entryName string, payload []byte) []byte {
	t.Helper()
	return buildCab(t, entryName, payload, compressMSZip)
}

func buildCab(t *testing.T, entryName string, payload []byte, compression uint16) []byte {
	t.Helper()

	var block []byte
	switch compression {
	case compressNone:
		block = payload
	case compressMSZip:
		var buf bytes.Buffer
		fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(payload)
		fw.Close()
		block = append([]byte{'C', 'K'}, buf.Bytes()...)
	}

	const headerSize = 36
	const folderSize = 8
	nameBytes := append([]byte(entryName), 0)
	fileEntrySize := 16 + len(nameBytes)
	coffFiles := headerSize + folderSize
	coffCabStart := coffFiles + fileEntrySize
	dataBlockHeaderSize := 8
	totalSize := coffCabStart + dataBlockHeaderSize + len(block)

	buf := make([]byte, totalSize)
	copy(buf[0:4], cabSignature)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(coffFiles))
	binary.LittleEndian.PutUint16(buf[26:28], 1) // cFolders
	binary.LittleEndian.PutUint16(buf[28:30], 1) // cFiles
	binary.LittleEndian.PutUint16(buf[30:32], 0) // flags

	folderOff := headerSize
	binary.LittleEndian.PutUint32(buf[folderOff:folderOff+4], uint32(coffCabStart))
	binary.LittleEndian.PutUint16(buf[folderOff+4:folderOff+6], 1) // cCFData
	binary.LittleEndian.PutUint16(buf[folderOff+6:folderOff+8], compression)

	fileOff := coffFiles
	binary.LittleEndian.PutUint32(buf[fileOff:fileOff+4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[fileOff+4:fileOff+8], 0) // uoffFolderStart
	binary.LittleEndian.PutUint16(buf[fileOff+8:fileOff+10], 0)
	copy(buf[fileOff+16:], nameBytes)

	dataOff := coffCabStart
	binary.LittleEndian.PutUint16(buf[dataOff+4:dataOff+6], uint16(len(block)))
	binary.LittleEndian.PutUint16(buf[dataOff+6:dataOff+8], uint16(len(payload)))
	copy(buf[dataOff+8:], block)

	return buf
}

func TestExtractEntryStored(t *testing.T) {
	payload := []byte("<BurnManifest></BurnManifest>")
	cab := buildStoredCab(t, "0", payload)

	got, err := ExtractEntry(cab, "0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q, want %q", got, payload)
	}
}

func TestExtractEntryMSZip(t *testing.T) {
	payload := bytes.Repeat([]byte("hello burn manifest "), 50)
	cab := buildMSZipCab(t, "0", payload)

	got, err := ExtractEntry(cab, "0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decompressed mismatch: got %d bytes, want %d", len(got), len(payload))
	}
}

func TestExtractEntryMissingNameErrors(t *testing.T) {
	cab := buildStoredCab(t, "0", []byte("data"))
	if _, err := ExtractEntry(cab, "1"); err == nil {
		t.Fatal("expected error for missing entry name")
	}
}

func TestExtractEntryRejectsBadSignature(t *testing.T) {
	if _, err := ExtractEntry([]byte("not a cabinet"), "0"); err == nil {
		t.Fatal("expected error for missing MSCF signature")
	}
}
