package pecoff

import (
	"strings"
	"unicode/utf16"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
)

// Resource type IDs used during dispatch and version-info extraction.
const (
	ResourceTypeRCData  uint32 = 10
	ResourceTypeVersion uint32 = 16
)

// ResourceEntry is one leaf of the three-level (type, name, language)
// resource directory tree.
type ResourceEntry struct {
	Type       uint32
	IsTypeName bool
	TypeName   string

	NameOrID   uint32
	IsName     bool
	Name       string

	LanguageID uint32

	DataOffset uint32
	DataSize   uint32
}

const (
	resourceDirHeaderSize  = 16
	resourceDirEntrySize   = 8
	highBitNameFlag        = 1 << 31
	highBitDataIsDirFlag   = 1 << 31
)

// WalkResources walks the resource directory three levels deep (type,
// name, language) and returns every leaf entry, with DataOffset already
// converted from RVA to raw file offset.
func (f *File) WalkResources() ([]ResourceEntry, error) {
	dd, ok := f.ResourceDataDirectory()
	if !ok || dd.Size == 0 {
		return nil, nil
	}
	rootOffset, ok := f.RVAToOffset(dd.VirtualAddress)
	if !ok {
		return nil, &analysiserr.MalformedPEError{Reason: "resource directory RVA does not map to any section"}
	}

	var entries []ResourceEntry
	err := f.walkResourceLevel(int(rootOffset), int(rootOffset), 0, ResourceEntry{}, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// walkResourceLevel recurses into the resource directory. base is the
// raw offset of the resource section's start (all sub-directory/data
// offsets are relative to it); dirOffset is the raw offset of the
// directory node currently being visited; depth is 0 (type), 1 (name),
// or 2 (language, whose children are IMAGE_RESOURCE_DATA_ENTRY leaves).
func (f *File) walkResourceLevel(base, dirOffset, depth int, partial ResourceEntry, out *[]ResourceEntry) error {
	if depth > 2 {
		return &analysiserr.MalformedPEError{Reason: "resource directory nested past the expected three levels (possible cycle)"}
	}

	numNamed, err := f.view.ReadU16(dirOffset + 12)
	if err != nil {
		return &analysiserr.MalformedPEError{Reason: "resource directory header out of bounds", Err: err}
	}
	numID, err := f.view.ReadU16(dirOffset + 14)
	if err != nil {
		return &analysiserr.MalformedPEError{Reason: "resource directory header out of bounds", Err: err}
	}
	total := int(numNamed) + int(numID)

	for i := 0; i < total; i++ {
		entryOffset := dirOffset + resourceDirHeaderSize + i*resourceDirEntrySize
		nameField, err := f.view.ReadU32(entryOffset)
		if err != nil {
			return &analysiserr.MalformedPEError{Reason: "resource directory entry out of bounds", Err: err}
		}
		offsetField, err := f.view.ReadU32(entryOffset + 4)
		if err != nil {
			return &analysiserr.MalformedPEError{Reason: "resource directory entry out of bounds", Err: err}
		}

		next := partial
		isName := nameField&highBitNameFlag != 0
		switch depth {
		case 0:
			next.IsTypeName = isName
			if isName {
				next.TypeName, _ = f.readResourceName(base, int(nameField & ^uint32(highBitNameFlag)))
				next.Type = 0
			} else {
				next.Type = nameField
			}
		case 1:
			next.IsName = isName
			if isName {
				next.Name, _ = f.readResourceName(base, int(nameField & ^uint32(highBitNameFlag)))
			} else {
				next.NameOrID = nameField
			}
		case 2:
			next.LanguageID = nameField
		}

		isSubdir := offsetField&highBitDataIsDirFlag != 0
		childOffset := base + int(offsetField & ^uint32(highBitDataIsDirFlag))

		if isSubdir {
			if depth == 2 {
				return &analysiserr.MalformedPEError{Reason: "resource language level points to another directory, expected a leaf"}
			}
			if err := f.walkResourceLevel(base, childOffset, depth+1, next, out); err != nil {
				return err
			}
			continue
		}

		dataRVA, err := f.view.ReadU32(childOffset)
		if err != nil {
			return &analysiserr.MalformedPEError{Reason: "resource data entry out of bounds", Err: err}
		}
		dataSize, err := f.view.ReadU32(childOffset + 4)
		if err != nil {
			return &analysiserr.MalformedPEError{Reason: "resource data entry out of bounds", Err: err}
		}
		dataOffset, ok := f.RVAToOffset(dataRVA)
		if !ok {
			return &analysiserr.MalformedPEError{Reason: "resource data RVA does not map to any section"}
		}
		next.DataOffset = dataOffset
		next.DataSize = dataSize
		*out = append(*out, next)
	}
	return nil
}

// readResourceName reads an IMAGE_RESOURCE_DIR_STRING_U (u16 length
// prefix + UTF-16LE characters, no NUL terminator) at base+offset.
func (f *File) readResourceName(base, offset int) (string, error) {
	abs := base + offset
	length, err := f.view.ReadU16(abs)
	if err != nil {
		return "", err
	}
	codeUnits := make([]uint16, length)
	for i := 0; i < int(length); i++ {
		u, err := f.view.ReadU16(abs + 2 + i*2)
		if err != nil {
			return "", err
		}
		codeUnits[i] = u
	}
	return string(utf16.Decode(codeUnits)), nil
}

// VersionInfo extracts the key/value strings from the first RT_VERSION
// resource's VS_VERSIONINFO/StringFileInfo block (the default
// translation, i.e. the first language encountered), exposing the
// handful of fields installers conventionally set.
func (f *File) VersionInfo() (map[string]string, error) {
	entries, err := f.WalkResources()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsTypeName || e.Type != ResourceTypeVersion {
			continue
		}
		view, err := f.view.Sub(int(e.DataOffset), int(e.DataSize))
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "RT_VERSION resource data out of bounds", Err: err}
		}
		return parseVersionInfo(view)
	}
	return nil, nil
}

// parseVersionInfo walks the VS_VERSIONINFO → StringFileInfo →
// StringTable → String chain. Each node is: wLength(u16) wValueLength(u16)
// wType(u16) szKey(UTF-16LE NUL-terminated, 32-bit aligned) [padding]
// Value [padding to 32-bit].
func parseVersionInfo(v byteview.View) (map[string]string, error) {
	out := make(map[string]string)

	root, err := readVersionNode(v, 0)
	if err != nil {
		return nil, err
	}
	childOffset := align4(root.childrenStart)
	for childOffset < root.end {
		child, err := readVersionNode(v, childOffset)
		if err != nil {
			break
		}
		if child.key == "StringFileInfo" {
			if err := parseStringFileInfo(v, child, out); err != nil {
				return nil, err
			}
		}
		if child.length == 0 {
			break
		}
		childOffset = align4(child.end)
	}
	return out, nil
}

func parseStringFileInfo(v byteview.View, sfi versionNode, out map[string]string) error {
	tableOffset := align4(sfi.childrenStart)
	for tableOffset < sfi.end {
		table, err := readVersionNode(v, tableOffset)
		if err != nil {
			break
		}
		stringOffset := align4(table.childrenStart)
		for stringOffset < table.end {
			s, err := readVersionNode(v, stringOffset)
			if err != nil {
				break
			}
			if s.key != "" {
				out[s.key] = decodeVersionValue(v, s)
			}
			if s.length == 0 {
				break
			}
			stringOffset = align4(s.end)
		}
		if table.length == 0 {
			break
		}
		tableOffset = align4(table.end)
	}
	return nil
}

// versionNode is one decoded VS_VERSIONINFO-style record header.
type versionNode struct {
	length        int
	valueLength   int
	wType         uint16
	key           string
	valueOffset   int
	childrenStart int
	end           int
}

func readVersionNode(v byteview.View, offset int) (versionNode, error) {
	length, err := v.ReadU16(offset)
	if err != nil {
		return versionNode{}, err
	}
	valueLength, err := v.ReadU16(offset + 2)
	if err != nil {
		return versionNode{}, err
	}
	wType, err := v.ReadU16(offset + 4)
	if err != nil {
		return versionNode{}, err
	}

	key, keyEnd, err := readUTF16Z(v, offset+6)
	if err != nil {
		return versionNode{}, err
	}
	valueOffset := align4(keyEnd)

	return versionNode{
		length:        int(length),
		valueLength:   int(valueLength),
		wType:         wType,
		key:           key,
		valueOffset:   valueOffset,
		childrenStart: valueOffset + valueSizeBytes(wType, int(valueLength)),
		end:           offset + int(length),
	}, nil
}

// valueSizeBytes returns the byte size of a node's Value field: wType
// 1 means the value is a string of valueLength UTF-16 code units
// (2 bytes each); wType 0 means valueLength is already a byte count.
func valueSizeBytes(wType uint16, valueLength int) int {
	if wType == 1 {
		return valueLength * 2
	}
	return valueLength
}

func decodeVersionValue(v byteview.View, n versionNode) string {
	if n.wType == 1 || n.wType == 0 {
		s, _, err := readUTF16Z(v, n.valueOffset)
		if err == nil {
			return s
		}
	}
	return ""
}

func readUTF16Z(v byteview.View, offset int) (string, int, error) {
	var units []uint16
	pos := offset
	for {
		u, err := v.ReadU16(pos)
		if err != nil {
			return strings.TrimRight(string(utf16.Decode(units)), "\x00"), pos, nil
		}
		pos += 2
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units)), pos, nil
}

func align4(offset int) int {
	if offset%4 != 0 {
		return offset + (4 - offset%4)
	}
	return offset
}
