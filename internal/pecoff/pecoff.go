// Package pecoff parses the PE/COFF container that every Windows
// installer family except MSI and ZIP is carried in: the MS-DOS stub,
// COFF file header, 32/64-bit optional header, section table, and the
// three-level resource directory (used to pull VS_VERSION_INFO and to
// detect embedded RCDATA/.wixburn evidence during family dispatch).
//
// Field names and the probe-then-reject parsing shape are grounded on
// saferwall/pe's ImageNtHeader/ImageFileHeader/ImageOptionalHeader32/64
// structs; every offset read goes through a byteview.View so a
// malformed file surfaces as analysiserr.MalformedPEError instead of a
// panic.
package pecoff

import (
	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
	"github.com/russellbanks/komac-analyzer/internal/record"
)

// Machine type constants (IMAGE_FILE_HEADER.Machine), named the way
// the Windows SDK names them.
const (
	MachineUnknown uint16 = 0x0
	MachineI386    uint16 = 0x014c
	MachineR4000   uint16 = 0x0166
	MachineAM33    uint16 = 0x01d3
	MachineAMD64   uint16 = 0x8664
	MachineARM     uint16 = 0x01c0
	MachineARMNT   uint16 = 0x01c4
	MachineARM64   uint16 = 0xaa64
	MachineEBC     uint16 = 0x0ebc
	MachineIA64    uint16 = 0x0200
	MachineM32R    uint16 = 0x9041
	MachinePPC     uint16 = 0x01f0
	MachinePPCFP   uint16 = 0x01f1
	MachineSH3     uint16 = 0x01a2
	MachineSH3DSP  uint16 = 0x01a3
	MachineSH4     uint16 = 0x01a6
	MachineSH5     uint16 = 0x01a8
	MachineTHUMB   uint16 = 0x01c2
)

const (
	magicPE32  uint16 = 0x10b
	magicPE32P uint16 = 0x20b

	signatureMZ = 0x5a4d // "MZ"
	signaturePE = 0x00004550

	// resourceDataDirectoryIndex is the index of the resource table
	// entry within IMAGE_OPTIONAL_HEADER.DataDirectory.
	resourceDataDirectoryIndex = 2
)

// DataDirectory is one IMAGE_DATA_DIRECTORY entry: an RVA and size.
type DataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

// Section is one IMAGE_SECTION_HEADER entry.
type Section struct {
	Name           string
	VirtualSize    uint32
	VirtualAddress uint32
	RawSize        uint32
	RawOffset      uint32
}

// File is a parsed PE/COFF image: enough of it to dispatch installer
// family and to pull version-resource metadata.
type File struct {
	view byteview.View

	Machine          uint16
	Is64             bool
	Subsystem        uint16
	AddressOfEntry   uint32
	Sections         []Section
	DataDirectories  []DataDirectory
}

// Parse reads the DOS stub, COFF header, optional header, and section
// table from v. It does not walk the resource directory; call
// ParseResources for that once the caller knows it wants version info
// or a named RCDATA/section probe.
func Parse(v byteview.View) (*File, error) {
	if v.Len() < 64 {
		return nil, &analysiserr.MalformedPEError{Reason: "file shorter than MS-DOS header"}
	}
	mz, err := v.ReadU16(0)
	if err != nil || mz != signatureMZ {
		return nil, &analysiserr.MalformedPEError{Reason: "missing 'MZ' signature"}
	}
	lfanew, err := v.ReadU32(0x3c)
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "e_lfanew offset out of bounds", Err: err}
	}

	peSig, err := v.ReadU32(int(lfanew))
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "PE signature offset out of bounds", Err: err}
	}
	if peSig != signaturePE {
		return nil, &analysiserr.MalformedPEError{Reason: "missing 'PE\\0\\0' signature"}
	}

	fileHeaderOffset := int(lfanew) + 4
	machine, err := v.ReadU16(fileHeaderOffset)
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "COFF file header out of bounds", Err: err}
	}
	numberOfSections, err := v.ReadU16(fileHeaderOffset + 2)
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "NumberOfSections out of bounds", Err: err}
	}
	sizeOfOptionalHeader, err := v.ReadU16(fileHeaderOffset + 16)
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "SizeOfOptionalHeader out of bounds", Err: err}
	}

	const coffFileHeaderSize = 20
	optHeaderOffset := fileHeaderOffset + coffFileHeaderSize
	magic, err := v.ReadU16(optHeaderOffset)
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "optional header magic out of bounds", Err: err}
	}
	if magic != magicPE32 && magic != magicPE32P {
		return nil, &analysiserr.MalformedPEError{Reason: "unrecognized optional header magic"}
	}
	is64 := magic == magicPE32P

	var subsystem uint16
	var entryPoint uint32
	var numberOfRvaAndSizes uint32
	var dataDirOffset int

	entryPoint, err = v.ReadU32(optHeaderOffset + 16)
	if err != nil {
		return nil, &analysiserr.MalformedPEError{Reason: "AddressOfEntryPoint out of bounds", Err: err}
	}

	if is64 {
		subsystem, err = v.ReadU16(optHeaderOffset + 68)
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "Subsystem (PE32+) out of bounds", Err: err}
		}
		numberOfRvaAndSizes, err = v.ReadU32(optHeaderOffset + 108)
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "NumberOfRvaAndSizes (PE32+) out of bounds", Err: err}
		}
		dataDirOffset = optHeaderOffset + 112
	} else {
		subsystem, err = v.ReadU16(optHeaderOffset + 68)
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "Subsystem (PE32) out of bounds", Err: err}
		}
		numberOfRvaAndSizes, err = v.ReadU32(optHeaderOffset + 92)
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "NumberOfRvaAndSizes (PE32) out of bounds", Err: err}
		}
		dataDirOffset = optHeaderOffset + 96
	}

	if numberOfRvaAndSizes > 16 {
		numberOfRvaAndSizes = 16
	}
	dataDirs := make([]DataDirectory, numberOfRvaAndSizes)
	for i := range dataDirs {
		off := dataDirOffset + i*8
		rva, err := v.ReadU32(off)
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "data directory entry out of bounds", Err: err}
		}
		size, err := v.ReadU32(off + 4)
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "data directory entry out of bounds", Err: err}
		}
		dataDirs[i] = DataDirectory{VirtualAddress: rva, Size: size}
	}

	sectionTableOffset := optHeaderOffset + int(sizeOfOptionalHeader)
	const sectionHeaderSize = 40
	sections := make([]Section, 0, numberOfSections)
	for i := 0; i < int(numberOfSections); i++ {
		off := sectionTableOffset + i*sectionHeaderSize
		nameBytes, err := v.ReadBytes(off, 8)
		if err != nil {
			return nil, &analysiserr.MalformedPEError{Reason: "section header out of bounds", Err: err}
		}
		name := trimNulName(nameBytes)
		virtualSize, _ := v.ReadU32(off + 8)
		virtualAddress, _ := v.ReadU32(off + 12)
		rawSize, _ := v.ReadU32(off + 16)
		rawOffset, _ := v.ReadU32(off + 20)
		sections = append(sections, Section{
			Name:           name,
			VirtualSize:    virtualSize,
			VirtualAddress: virtualAddress,
			RawSize:        rawSize,
			RawOffset:      rawOffset,
		})
	}

	return &File{
		view:            v,
		Machine:         machine,
		Is64:            is64,
		Subsystem:       subsystem,
		AddressOfEntry:  entryPoint,
		Sections:        sections,
		DataDirectories: dataDirs,
	}, nil
}

func trimNulName(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}

// View returns the byte view the file was parsed from.
func (f *File) View() byteview.View {
	return f.view
}

// RVAToOffset converts a relative virtual address to a raw file offset
// using the section table, or returns false if no section contains it.
func (f *File) RVAToOffset(rva uint32) (uint32, bool) {
	for _, s := range f.Sections {
		if rva >= s.VirtualAddress && rva < s.VirtualAddress+sectionSpan(s) {
			return rva - s.VirtualAddress + s.RawOffset, true
		}
	}
	return 0, false
}

func sectionSpan(s Section) uint32 {
	if s.VirtualSize != 0 {
		return s.VirtualSize
	}
	return s.RawSize
}

// SectionByName returns the section whose trimmed name matches, or
// false if no such section exists. Used by Burn dispatch to probe for
// ".wixburn".
func (f *File) SectionByName(name string) (Section, bool) {
	for _, s := range f.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// ResourceDataDirectory returns the resource table's data directory
// entry, or false if the optional header declared fewer than 3
// directories.
func (f *File) ResourceDataDirectory() (DataDirectory, bool) {
	if len(f.DataDirectories) <= resourceDataDirectoryIndex {
		return DataDirectory{}, false
	}
	return f.DataDirectories[resourceDataDirectoryIndex], true
}

// Architecture maps the COFF Machine field onto the record sum type,
// per the machine→architecture table.
func Architecture(machine uint16) record.Architecture {
	switch machine {
	case MachineAMD64, MachineIA64, MachinePPC, MachineR4000, MachineSH5, MachinePPCFP:
		return record.ArchitectureX64
	case MachineI386, MachineAM33, MachineM32R, MachineSH3, MachineSH3DSP, MachineSH4:
		return record.ArchitectureX86
	case MachineARM64:
		return record.ArchitectureArm64
	case MachineARM, MachineARMNT, MachineTHUMB:
		return record.ArchitectureArm
	default:
		return record.ArchitectureNeutral
	}
}
