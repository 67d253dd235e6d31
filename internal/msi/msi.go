package msi

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/richardlehane/mscfb"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/record"
)

// directoryRow is one row of the Directory table: an id, its parent id
// (empty for the root, TARGETDIR), and its raw DefaultDir value, which
// may carry both a short (8.3) and long name separated by '|' — only
// the long form after the pipe is a usable path segment.
type directoryRow struct {
	id         string
	parent     string
	defaultDir string
}

// Analyze reads an MSI compound document and fills in the portions of
// an InstallerRecord this format can answer: architecture and locale
// from _SummaryInformation, scope and product metadata from the
// Property table, and a best-effort default install location from the
// Directory table.
func Analyze(data []byte, fileName string) (*record.InstallerRecord, error) {
	r, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, &analysiserr.MalformedMSIError{Reason: "opening compound document", Err: err}
	}

	streams, err := readStreams(r,
		"_StringPool", "_StringData", "Property", "Directory", "Control",
		"\x05SummaryInformation",
	)
	if err != nil {
		return nil, err
	}

	pool, err := parseStringPool(streams["_StringPool"], streams["_StringData"])
	if err != nil {
		return nil, err
	}

	properties := map[string]string{}
	if raw, ok := streams["Property"]; ok {
		rows, err := decodeTable(raw, propertyColumns, pool)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			properties[row["Property"]] = row["Value"]
		}
	}

	var directories []directoryRow
	if raw, ok := streams["Directory"]; ok {
		rows, err := decodeTable(raw, directoryColumns, pool)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			directories = append(directories, directoryRow{
				id:         row["Directory"],
				parent:     row["Directory_Parent"],
				defaultDir: row["DefaultDir"],
			})
		}
	}

	controlReferencesAllUsers := false
	if raw, ok := streams["Control"]; ok {
		rows, err := decodeTable(raw, controlColumns, pool)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row["Property"] == "ALLUSERS" {
				controlReferencesAllUsers = true
				break
			}
		}
	}

	var info *summaryInfo
	if raw, ok := streams["\x05SummaryInformation"]; ok {
		info, err = parseSummaryInfo(raw)
		if err != nil {
			return nil, err
		}
	} else {
		info = &summaryInfo{CodePage: -1}
	}

	arch, err := architectureFromTemplate(info.Template)
	if err != nil {
		return nil, err
	}

	rec := record.New(record.InstallerTypeMSI)
	rec.Architecture = arch
	allUsers, allUsersPresent := properties["ALLUSERS"]
	rec.Scope = scopeFromAllUsers(allUsers, allUsersPresent, controlReferencesAllUsers)
	rec.Locale = localeFromTemplate(info.Template)
	rec.Publisher = properties["Manufacturer"]
	rec.PackageName = properties["ProductName"]

	version := properties["ProductVersion"]
	if override, ok := chromeVersionOverride(info.Comments); ok {
		version = override
	}

	rec.AppsAndFeatures = []record.ArpEntry{{
		DisplayName:    properties["ProductName"],
		Publisher:      properties["Manufacturer"],
		DisplayVersion: version,
		ProductCode:    properties["ProductCode"],
		UpgradeCode:    properties["UpgradeCode"],
		InstallerType:  msiOrWixInstallerType(properties, info.CreatingApp),
	}}

	rec.InstallationMetadata.DefaultInstallLocation = inferInstallLocation(properties, directories)

	return rec, nil
}

// architectureFromTemplate reads the Template summary property, whose
// value is "<platform>;<lcid>" for an installed-for platform MSI
// database builds declare up front (e.g. "x64;1033", "Intel;0").
func architectureFromTemplate(template string) (record.Architecture, error) {
	platform := template
	if i := strings.IndexByte(template, ';'); i >= 0 {
		platform = template[:i]
	}
	switch platform {
	case "x64", "Intel64", "AMD64":
		return record.ArchitectureX64, nil
	case "Intel", "":
		return record.ArchitectureX86, nil
	case "Arm64":
		return record.ArchitectureArm64, nil
	case "Arm":
		return record.ArchitectureArm, nil
	default:
		return "", &analysiserr.MalformedMSIError{Reason: "unrecognized Template platform " + strconv.Quote(platform)}
	}
}

func localeFromTemplate(template string) string {
	i := strings.IndexByte(template, ';')
	if i < 0 || i+1 >= len(template) {
		return ""
	}
	lcid, err := strconv.ParseUint(template[i+1:], 10, 32)
	if err != nil {
		return ""
	}
	return bcp47FromLCID(uint32(lcid))
}

// scopeFromAllUsers implements the ALLUSERS property table from
// https://learn.microsoft.com/windows/win32/msi/allusers: "1" always
// installs per-machine, "2" depends on install context and runtime
// privilege so it can only be reported as unknown, and an explicit
// empty value always means per-user. When the property is absent
// entirely (or holds some other value), ALLUSERS can still be set at
// runtime by a Control row referencing it — only then is the scope
// unknown instead of the per-user default.
func scopeFromAllUsers(allUsers string, allUsersPresent, controlReferencesAllUsers bool) record.Scope {
	switch {
	case allUsersPresent && allUsers == "1":
		return record.ScopeMachine
	case allUsersPresent && allUsers == "2":
		return record.ScopeUnknown
	case allUsersPresent && allUsers == "":
		return record.ScopeUser
	case controlReferencesAllUsers:
		return record.ScopeUnknown
	default:
		return record.ScopeUser
	}
}

// msiOrWixInstallerType reports whether a "wix" substring appears
// (case-insensitively) in the package's creating application or in any
// property key/value, the same heuristic original_source/src/msi.rs
// uses to flag WiX-authored packages.
func msiOrWixInstallerType(properties map[string]string, creatingApp string) record.InstallerType {
	if containsFold(creatingApp, "wix") {
		return record.InstallerTypeWix
	}
	for k, v := range properties {
		if containsFold(k, "wix") || containsFold(v, "wix") {
			return record.InstallerTypeWix
		}
	}
	return record.InstallerTypeMSI
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// chromeVersionOverride extracts the leading whitespace-delimited token
// of the Comments summary field and accepts it as a version override
// only if every dot-separated segment parses as an unsigned 16-bit
// integer, matching the dotted-quad version strings Chrome-family
// installers stash there.
func chromeVersionOverride(comments string) (string, bool) {
	fields := strings.Fields(comments)
	if len(fields) == 0 {
		return "", false
	}
	candidate := fields[0]
	segments := strings.Split(candidate, ".")
	if len(segments) == 0 {
		return "", false
	}
	for _, seg := range segments {
		if _, err := strconv.ParseUint(seg, 10, 16); err != nil {
			return "", false
		}
	}
	return candidate, true
}

// inferInstallLocation walks the six-step fallback chain: an explicit
// INSTALLDIR property, the directory WIXUI_INSTALLDIR names, an
// INSTALLLOCATION or APPDIR property, any property whose name contains
// "INSTALLDIR", and finally the longest unique non-branching descent
// from TARGETDIR (skipping the shell-folder directories that aren't
// really part of the product's own tree).
func inferInstallLocation(properties map[string]string, directories []directoryRow) string {
	byID := make(map[string]directoryRow, len(directories))
	for _, d := range directories {
		byID[d.id] = d
	}

	if id, ok := properties["INSTALLDIR"]; ok && id != "" {
		if path, ok := buildDirectoryPath(id, byID); ok {
			return path
		}
	}
	if id, ok := properties["WIXUI_INSTALLDIR"]; ok && id != "" {
		if path, ok := buildDirectoryPath(id, byID); ok {
			return path
		}
	}
	if id, ok := properties["INSTALLLOCATION"]; ok && id != "" {
		if path, ok := buildDirectoryPath(id, byID); ok {
			return path
		}
	}
	if id, ok := properties["APPDIR"]; ok && id != "" {
		if path, ok := buildDirectoryPath(id, byID); ok {
			return path
		}
	}
	for name := range properties {
		if strings.Contains(strings.ToUpper(name), "INSTALLDIR") {
			if path, ok := buildDirectoryPath(properties[name], byID); ok {
				return path
			}
		}
	}
	if path, ok := longestUniqueDescent(byID); ok {
		return path
	}
	return ""
}

// buildDirectoryPath ascends from id to TARGETDIR, substituting
// well-known shell-folder placeholders and otherwise using the long
// form of DefaultDir (the text after '|', or the whole field if there
// is no short/long split).
func buildDirectoryPath(id string, byID map[string]directoryRow) (string, bool) {
	var segments []string
	seen := map[string]bool{}
	for id != "" && id != "TARGETDIR" {
		if seen[id] {
			return "", false // cyclic Directory table, refuse to loop forever
		}
		seen[id] = true

		if placeholder, ok := record.WellKnownFolderPlaceholder[id]; ok {
			segments = append([]string{placeholder}, segments...)
			break
		}
		row, ok := byID[id]
		if !ok {
			return "", false
		}
		segments = append([]string{longFormOf(row.defaultDir)}, segments...)
		id = row.parent
	}
	if len(segments) == 0 {
		return "", false
	}
	return strings.Join(segments, `\`), true
}

func longFormOf(defaultDir string) string {
	if i := strings.IndexByte(defaultDir, '|'); i >= 0 {
		return defaultDir[i+1:]
	}
	return defaultDir
}

// skippedShellFolders are excluded from the last-resort descent since
// they lead away from the product's own install tree.
var skippedShellFolders = map[string]bool{
	"DesktopFolder":     true,
	"ProgramMenuFolder": true,
}

// longestUniqueDescent finds TARGETDIR's single non-branching child
// chain (one that never forks and never enters a skipped shell
// folder) and returns the deepest such path, mirroring the final
// fallback used when no install-directory property names one
// directly.
func longestUniqueDescent(byID map[string]directoryRow) (string, bool) {
	children := map[string][]string{}
	for id, row := range byID {
		children[row.parent] = append(children[row.parent], id)
	}

	var walk func(id string) (string, bool)
	walk = func(id string) (string, bool) {
		kids := children[id]
		var usable []string
		for _, k := range kids {
			if !skippedShellFolders[k] {
				usable = append(usable, k)
			}
		}
		if len(usable) != 1 {
			return "", false
		}
		child := usable[0]
		row := byID[child]
		rest, ok := walk(child)
		segment := longFormOf(row.defaultDir)
		if !ok {
			return segment, true
		}
		return segment + `\` + rest, true
	}

	return walk("TARGETDIR")
}
