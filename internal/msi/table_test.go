package msi

import (
	"encoding/binary"
	"testing"
)

// buildColumnMajorRows packs rows (each a slice of 1-based string-pool
// references, one per column) into the column-major byte layout MSI
// table streams use: every row's value for column 0, then every row's
// value for column 1, and so on.
func buildColumnMajorRows(rows [][]uint32, refWidth int) []byte {
	if len(rows) == 0 {
		return nil
	}
	numCols := len(rows[0])
	out := make([]byte, 0, len(rows)*numCols*refWidth)
	for c := 0; c < numCols; c++ {
		for _, row := range rows {
			buf := make([]byte, refWidth)
			if refWidth == 2 {
				binary.LittleEndian.PutUint16(buf, uint16(row[c]))
			} else {
				v := row[c]
				buf[0] = byte(v)
				buf[1] = byte(v >> 8)
				buf[2] = byte(v >> 16)
			}
			out = append(out, buf...)
		}
	}
	return out
}

func TestDecodePropertyTable(t *testing.T) {
	strs := []string{"ProductCode", "{GUID}", "ProductName", "Widget"}
	poolBytes, dataBytes := buildStringPool(strs, false)
	pool, err := parseStringPool(poolBytes, dataBytes)
	if err != nil {
		t.Fatalf("parseStringPool: %v", err)
	}

	// Rows: (ProductCode, {GUID}), (ProductName, Widget) — refs are
	// 1-based indices into strs above.
	data := buildColumnMajorRows([][]uint32{{1, 2}, {3, 4}}, pool.RefWidth())

	rows, err := decodeTable(data, propertyColumns, pool)
	if err != nil {
		t.Fatalf("decodeTable: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["Property"] != "ProductCode" || rows[0]["Value"] != "{GUID}" {
		t.Errorf("row0 = %+v", rows[0])
	}
	if rows[1]["Property"] != "ProductName" || rows[1]["Value"] != "Widget" {
		t.Errorf("row1 = %+v", rows[1])
	}
}

func TestDecodeTableRejectsMisalignedLength(t *testing.T) {
	pool, _ := parseStringPool(buildStringPool(nil, false))
	if _, err := decodeTable([]byte{0x01, 0x02, 0x03}, propertyColumns, pool); err == nil {
		t.Fatal("expected error for misaligned row width")
	}
}

func TestDecodeTableEmptyStreamIsZeroRows(t *testing.T) {
	pool, _ := parseStringPool(buildStringPool(nil, false))
	rows, err := decodeTable(nil, propertyColumns, pool)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("got %d rows, want 0", len(rows))
	}
}
