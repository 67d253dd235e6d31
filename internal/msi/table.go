package msi

import (
	"encoding/binary"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
)

// column describes one column of a fixed-schema table this package
// knows how to decode. MSI stores table rows column-major: every row's
// value for column 0 first, then every row's value for column 1, and
// so on, each block packed to that column's byte width.
type column struct {
	name     string
	kind     columnKind
	nullable bool
}

type columnKind int

const (
	kindStringRef columnKind = iota
	kindShortInt             // signed 16-bit, stored biased by 0x8000
	kindLongInt              // signed 32-bit, stored biased by 0x80000000
)

// decodeTable reads a column-major table stream into row-major records,
// each a map from column name to its resolved value: a decoded string
// for kindStringRef columns, or a decimal string for integer columns
// (the analyzer consults only string columns such as Control.Property,
// so decimal text is sufficient for the integer ones).
func decodeTable(data []byte, cols []column, pool *stringPool) ([]map[string]string, error) {
	widths := make([]int, len(cols))
	rowWidth := 0
	for i, c := range cols {
		switch c.kind {
		case kindStringRef:
			widths[i] = pool.RefWidth()
		case kindShortInt:
			widths[i] = 2
		case kindLongInt:
			widths[i] = 4
		}
		rowWidth += widths[i]
	}
	if rowWidth == 0 {
		return nil, nil
	}
	if len(data)%rowWidth != 0 {
		return nil, &analysiserr.MalformedMSIError{Reason: "table stream length not a multiple of its row width"}
	}
	rowCount := len(data) / rowWidth

	rows := make([]map[string]string, rowCount)
	for r := range rows {
		rows[r] = make(map[string]string, len(cols))
	}

	colStart := 0
	for i, c := range cols {
		block := data[colStart : colStart+widths[i]*rowCount]
		colStart += widths[i] * rowCount
		for r := 0; r < rowCount; r++ {
			raw := block[r*widths[i] : (r+1)*widths[i]]
			rows[r][c.name] = decodeColumnValue(c, raw, pool)
		}
	}
	return rows, nil
}

func decodeColumnValue(c column, raw []byte, pool *stringPool) string {
	switch c.kind {
	case kindStringRef:
		var ref uint32
		if len(raw) == 2 {
			ref = uint32(binary.LittleEndian.Uint16(raw))
		} else {
			ref = uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16
		}
		return pool.Get(ref)
	case kindShortInt:
		v := int32(binary.LittleEndian.Uint16(raw)) - 0x8000
		return itoa(int64(v))
	case kindLongInt:
		v := int64(binary.LittleEndian.Uint32(raw)) - 0x80000000
		return itoa(v)
	}
	return ""
}

func itoa(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

var propertyColumns = []column{
	{name: "Property", kind: kindStringRef},
	{name: "Value", kind: kindStringRef},
}

var directoryColumns = []column{
	{name: "Directory", kind: kindStringRef},
	{name: "Directory_Parent", kind: kindStringRef, nullable: true},
	{name: "DefaultDir", kind: kindStringRef},
}

var controlColumns = []column{
	{name: "Dialog_", kind: kindStringRef},
	{name: "Control", kind: kindStringRef},
	{name: "Type", kind: kindStringRef},
	{name: "X", kind: kindShortInt},
	{name: "Y", kind: kindShortInt},
	{name: "Width", kind: kindShortInt},
	{name: "Height", kind: kindShortInt},
	{name: "Attributes", kind: kindLongInt, nullable: true},
	{name: "Property", kind: kindStringRef, nullable: true},
	{name: "Text", kind: kindStringRef, nullable: true},
	{name: "Control_Next", kind: kindStringRef, nullable: true},
	{name: "Help", kind: kindStringRef, nullable: true},
}
