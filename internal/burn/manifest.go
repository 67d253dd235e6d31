package burn

import (
	"encoding/xml"
	"io"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
)

// Manifest is the Burn bootstrapper's embedded deployment description:
// the bundle's related-bundle references, declared variables, payload
// inventory, ARP registration, and MSI chain. Field names follow the
// manifest's own attribute names rather than Go convention so the
// struct tags stay close to the wire shape.
type Manifest struct {
	XMLName        xml.Name        `xml:"BurnManifest"`
	Win64          string          `xml:"Win64,attr"`
	RelatedBundles []RelatedBundle `xml:"RelatedBundle"`
	Variables      []Variable      `xml:"Variable"`
	Payloads       []Payload       `xml:"Payload"`
	Registration   Registration    `xml:"Registration"`
	Chain          Chain           `xml:"Chain"`
}

type RelatedBundle struct {
	Code   string `xml:"Code,attr"`
	Id     string `xml:"Id,attr"`
	Action string `xml:"Action,attr"`
}

type Variable struct {
	Id       string `xml:"Id,attr"`
	Value    string `xml:"Value,attr"`
	Type     string `xml:"Type,attr"`
	Hidden   string `xml:"Hidden,attr"`
	Persisted string `xml:"Persisted,attr"`
}

type Payload struct {
	Id        string `xml:"Id,attr"`
	FilePath  string `xml:"FilePath,attr"`
	FileSize  string `xml:"FileSize,attr"`
	Hash      string `xml:"Hash,attr"`
	Packaging string `xml:"Packaging,attr"`
	Container string `xml:"Container,attr"`
}

type Registration struct {
	Code       string `xml:"Code,attr"`
	Id         string `xml:"Id,attr"`
	PerMachine string `xml:"PerMachine,attr"`
	Version    string `xml:"Version,attr"`
	ProviderKey string `xml:"ProviderKey,attr"`
	Arp        Arp    `xml:"Arp"`
}

type Arp struct {
	DisplayName    string `xml:"DisplayName,attr"`
	DisplayVersion string `xml:"DisplayVersion,attr"`
	Publisher      string `xml:"Publisher,attr"`
}

type Chain struct {
	MsiPackages []MsiPackage `xml:"MsiPackage"`
}

type MsiPackage struct {
	Id              string        `xml:"Id,attr"`
	ProductCode     string        `xml:"ProductCode,attr"`
	Language        string        `xml:"Language,attr"`
	Version         string        `xml:"Version,attr"`
	UpgradeCode     string        `xml:"UpgradeCode,attr"`
	Win64           string        `xml:"Win64,attr"`
	InstallCondition string       `xml:"InstallCondition,attr"`
	MsiProperties   []MsiProperty `xml:"MsiProperty"`
	Provides        []Provides    `xml:"Provides"`
}

type MsiProperty struct {
	Name  string `xml:"Name,attr"`
	Value string `xml:"Value,attr"`
}

type Provides struct {
	Key         string `xml:"Key,attr"`
	DisplayName string `xml:"DisplayName,attr"`
}

// DecodeManifest unmarshals a Burn manifest document. Unlike the MSIX
// manifest (internal/msix/manifest.go), which streams Token() to avoid
// materializing the full Windows namespace-qualified element tree,
// the Burn schema here is flat enough that a struct tree with
// xml.Unmarshal is the simpler, equally idiomatic choice.
func DecodeManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := xml.NewDecoder(r).Decode(&m); err != nil {
		return nil, &analysiserr.MalformedXMLError{Document: "Burn manifest", Err: err}
	}
	return &m, nil
}

// boolAttr interprets a manifest boolean attribute using the yes/no
// and true/false conventions the schema mixes across elements.
func boolAttr(s string) bool {
	switch s {
	case "yes", "true", "1":
		return true
	default:
		return false
	}
}
