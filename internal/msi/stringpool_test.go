package msi

import (
	"encoding/binary"
	"testing"
)

func buildStringPool(strs []string, longRefs bool) (pool, data []byte) {
	flags := uint16(0)
	if longRefs {
		flags = longStringRefFlag
	}
	header := make([]byte, 4)
	binary.LittleEndian.PutUint16(header[0:2], 0) // codepage: neutral/ASCII
	binary.LittleEndian.PutUint16(header[2:4], flags)
	pool = append(pool, header...)

	for _, s := range strs {
		entry := make([]byte, 4)
		binary.LittleEndian.PutUint16(entry[0:2], uint16(len(s)))
		binary.LittleEndian.PutUint16(entry[2:4], 1) // refcount, unused
		pool = append(pool, entry...)
		data = append(data, []byte(s)...)
	}
	return pool, data
}

func TestParseStringPoolRoundTrip(t *testing.T) {
	want := []string{"ProductCode", "{12345678-1234-1234-1234-123456789012}", "INSTALLDIR"}
	poolBytes, dataBytes := buildStringPool(want, false)

	pool, err := parseStringPool(poolBytes, dataBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.RefWidth() != 2 {
		t.Errorf("RefWidth() = %d, want 2", pool.RefWidth())
	}
	for i, s := range want {
		if got := pool.Get(uint32(i + 1)); got != s {
			t.Errorf("Get(%d) = %q, want %q", i+1, got, s)
		}
	}
}

func TestParseStringPoolLongRefs(t *testing.T) {
	poolBytes, dataBytes := buildStringPool([]string{"a", "b"}, true)
	pool, err := parseStringPool(poolBytes, dataBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.RefWidth() != 3 {
		t.Errorf("RefWidth() = %d, want 3 for long refs", pool.RefWidth())
	}
}

func TestStringPoolGetOutOfRangeIsEmpty(t *testing.T) {
	poolBytes, dataBytes := buildStringPool([]string{"only"}, false)
	pool, err := parseStringPool(poolBytes, dataBytes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pool.Get(0); got != "" {
		t.Errorf("Get(0) = %q, want empty", got)
	}
	if got := pool.Get(99); got != "" {
		t.Errorf("Get(99) = %q, want empty", got)
	}
}

func TestParseStringPoolTruncatedDataErrors(t *testing.T) {
	poolBytes, _ := buildStringPool([]string{"toolong"}, false)
	if _, err := parseStringPool(poolBytes, []byte("short")); err == nil {
		t.Fatal("expected error when _StringData is shorter than declared")
	}
}
