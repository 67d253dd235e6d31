// Package msix analyzes MSIX/APPX packages and their bundle variants:
// opening the ZIP container, streaming the Appx manifest XML, and
// deriving the package family name, install location, and installer
// classification spec.md §4.4 describes.
package msix

import (
	"encoding/xml"
	"html"
	"io"
	"strings"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
)

// Identity is the manifest's Identity element attributes.
type Identity struct {
	Name                 string
	Version              string
	Publisher            string
	ProcessorArchitecture string
	ResourceID           string
}

// Manifest is the decoded subset of AppxManifest.xml this analyzer
// consumes — unknown elements are skipped by construction, since the
// streaming loop below only reacts to the local names it recognizes.
type Manifest struct {
	Identity               Identity
	DisplayName            string
	PublisherDisplayName   string
	TargetDeviceFamilies   []TargetDeviceFamily
	FileTypeAssociations   []string
	Capabilities           []string
	RestrictedCapabilities []string
}

// TargetDeviceFamily is one Dependencies/TargetDeviceFamily entry.
type TargetDeviceFamily struct {
	Platform       string
	MinimumVersion string
}

// DecodeManifest streams the manifest XML with an event parser rather
// than unmarshaling into a struct tree, matching the teacher's
// token-loop idiom for decoding schemas it only partially cares about:
// every element not explicitly handled below is simply skipped.
func DecodeManifest(r io.Reader) (*Manifest, error) {
	dec := xml.NewDecoder(r)
	m := &Manifest{}

	var inProperties bool
	var textBuf strings.Builder
	var textTarget *string
	var inFileType bool

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &analysiserr.MalformedXMLError{Document: "AppxManifest.xml", Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Identity":
				m.Identity = Identity{
					Name:                 attr(t, "Name"),
					Version:              attr(t, "Version"),
					Publisher:            html.UnescapeString(attr(t, "Publisher")),
					ProcessorArchitecture: attr(t, "ProcessorArchitecture"),
					ResourceID:           attr(t, "ResourceId"),
				}
			case "Properties":
				inProperties = true
			case "DisplayName":
				if inProperties {
					textBuf.Reset()
					textTarget = &m.DisplayName
				}
			case "PublisherDisplayName":
				if inProperties {
					textBuf.Reset()
					textTarget = &m.PublisherDisplayName
				}
			case "TargetDeviceFamily":
				m.TargetDeviceFamilies = append(m.TargetDeviceFamilies, TargetDeviceFamily{
					Platform:       attr(t, "Name"),
					MinimumVersion: attr(t, "MinVersion"),
				})
			case "FileType":
				textBuf.Reset()
				inFileType = true
			case "Capability", "DeviceCapability":
				name := attr(t, "Name")
				if name == "" {
					continue
				}
				if strings.Contains(strings.ToLower(name), "rescap:") || isRestrictedCapability(name) {
					m.RestrictedCapabilities = append(m.RestrictedCapabilities, name)
				} else {
					m.Capabilities = append(m.Capabilities, name)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "Properties":
				inProperties = false
			case "DisplayName", "PublisherDisplayName":
				if textTarget != nil {
					*textTarget = textBuf.String()
					textTarget = nil
				}
			case "FileType":
				if inFileType {
					if ext := strings.TrimPrefix(textBuf.String(), "."); ext != "" {
						m.FileTypeAssociations = append(m.FileTypeAssociations, ext)
					}
					inFileType = false
				}
			}
		case xml.CharData:
			if textTarget != nil || inFileType {
				textBuf.Write(t)
			}
		}
	}
	return m, nil
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// isRestrictedCapability recognizes the well-known restricted
// capability names (those declared under the rescap namespace in a
// real manifest, where the prefix itself is already stripped by the
// XML decoder's namespace handling and only the local name survives).
func isRestrictedCapability(name string) bool {
	switch name {
	case "runFullTrust", "allowElevation", "packageManagement",
		"appCaptureServices", "broadFileSystemAccess", "documentsLibrary",
		"remoteBatteryManagement", "systemManagement", "teamEditionDeviceCredential":
		return true
	default:
		return false
	}
}
