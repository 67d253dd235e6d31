package burn

import (
	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/byteview"
	"github.com/russellbanks/komac-analyzer/internal/pecoff"
)

// manifestCabEntry names the entry of the bootstrapper application's
// cabinet that always holds the serialized Burn manifest.
const manifestCabEntry = "0"

// stubDescriptor is the fixed-layout record burn.exe writes into the
// ".wixburn" section: the size of the stub executable that precedes
// the attached containers, followed by the sizes of the UX (bootstrapper
// application) and attached (payloads) containers, and the checksum
// blob burn.exe validates against at startup. Field widths and order
// are read directly off the section per §6's stub-descriptor layout;
// the checksum bytes themselves are opaque to this package.
type stubDescriptor struct {
	stubSize             uint32
	uxContainerSize       uint32
	attachedContainerSize uint32
	checksum              []byte
}

const checksumSize = 64

// readStubDescriptor reads the fixed-layout stub descriptor out of the
// ".wixburn" section and returns the raw bytes of the UX container
// (the cabinet immediately following the stub executable in the file).
func readStubDescriptor(pe *pecoff.File, fileBytes []byte, fileName string) (stubDescriptor, []byte, error) {
	section, ok := pe.SectionByName(".wixburn")
	if !ok {
		return stubDescriptor{}, nil, &analysiserr.NotBurnFileError{FileName: fileName}
	}

	v, err := byteview.New(fileBytes).Sub(int(section.RawOffset), int(section.RawSize))
	if err != nil {
		return stubDescriptor{}, nil, &analysiserr.MalformedPEError{Reason: ".wixburn section out of bounds", Err: err}
	}

	stubSize, err := v.ReadU32(0)
	if err != nil {
		return stubDescriptor{}, nil, &analysiserr.MalformedPEError{Reason: "stub descriptor truncated (stub size)", Err: err}
	}
	uxSize, err := v.ReadU32(4)
	if err != nil {
		return stubDescriptor{}, nil, &analysiserr.MalformedPEError{Reason: "stub descriptor truncated (ux container size)", Err: err}
	}
	attachedSize, err := v.ReadU32(8)
	if err != nil {
		return stubDescriptor{}, nil, &analysiserr.MalformedPEError{Reason: "stub descriptor truncated (attached container size)", Err: err}
	}

	var checksum []byte
	if cv, err := v.Sub(12, checksumSize); err == nil {
		checksum = cv.Bytes()
	}

	desc := stubDescriptor{stubSize: stubSize, uxContainerSize: uxSize, attachedContainerSize: attachedSize, checksum: checksum}

	if int(stubSize)+int(uxSize) > len(fileBytes) {
		return stubDescriptor{}, nil, &analysiserr.MalformedPEError{Reason: "ux container extends past end of file"}
	}
	uxContainer := fileBytes[stubSize : stubSize+uxSize]
	return desc, uxContainer, nil
}
