package pecoff

import (
	"encoding/binary"
)

// buildResourceSection assembles a minimal three-level resource
// directory (type → name → language) with a single RT_VERSION leaf
// whose payload is verData, all relative to virtual address 0x1000
// (the VA buildMinimalPE32 maps the ".rsrc" section at).
func buildResourceSection(verData []byte) []byte {
	const (
		typeDirOffset = 0
		nameDirOffset = 16 + 8 // header + 1 entry
		langDirOffset = nameDirOffset + 16 + 8
		dataEntryOff  = langDirOffset + 16 + 8
		dataStart     = dataEntryOff + 8
	)

	buf := make([]byte, dataStart+len(verData))

	// Type-level directory: 1 named? no, 1 ID entry for RT_VERSION (16).
	binary.LittleEndian.PutUint16(buf[typeDirOffset+12:], 0) // NumberOfNamedEntries
	binary.LittleEndian.PutUint16(buf[typeDirOffset+14:], 1) // NumberOfIdEntries
	typeEntryOff := typeDirOffset + 16
	binary.LittleEndian.PutUint32(buf[typeEntryOff:], ResourceTypeVersion)
	binary.LittleEndian.PutUint32(buf[typeEntryOff+4:], uint32(nameDirOffset)|highBitDataIsDirFlag)

	// Name-level directory: 1 ID entry (resource id 1).
	binary.LittleEndian.PutUint16(buf[nameDirOffset+12:], 0)
	binary.LittleEndian.PutUint16(buf[nameDirOffset+14:], 1)
	nameEntryOff := nameDirOffset + 16
	binary.LittleEndian.PutUint32(buf[nameEntryOff:], 1)
	binary.LittleEndian.PutUint32(buf[nameEntryOff+4:], uint32(langDirOffset)|highBitDataIsDirFlag)

	// Language-level directory: 1 ID entry (LCID 0x409 en-US).
	binary.LittleEndian.PutUint16(buf[langDirOffset+12:], 0)
	binary.LittleEndian.PutUint16(buf[langDirOffset+14:], 1)
	langEntryOff := langDirOffset + 16
	binary.LittleEndian.PutUint32(buf[langEntryOff:], 0x409)
	binary.LittleEndian.PutUint32(buf[langEntryOff+4:], uint32(dataEntryOff)) // leaf, high bit clear

	// IMAGE_RESOURCE_DATA_ENTRY: OffsetToData (RVA) + Size.
	binary.LittleEndian.PutUint32(buf[dataEntryOff:], 0x1000+uint32(dataStart))
	binary.LittleEndian.PutUint32(buf[dataEntryOff+4:], uint32(len(verData)))

	copy(buf[dataStart:], verData)
	return buf
}
