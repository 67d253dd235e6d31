// Package heuristics supplies field values a structural parser could
// not determine: architecture and scope guessed from a download URL,
// and scope guessed from an install path, used only to fill fields a
// parser leaves empty (§4.9's field-inheritance rule — a parsed value
// always wins over a heuristic one).
package heuristics

import (
	"strings"

	"github.com/russellbanks/komac-analyzer/internal/record"
)

// archTokenOrder is every recognized architecture token together with
// the architecture it maps to, in first-match-wins priority order: the
// longer/more specific 64-bit spellings are listed before the bare
// "x86"/"arm" forms so that e.g. "x86_64" is not mistaken for "x86".
var archTokenOrder = []struct {
	token string
	arch  record.Architecture
}{
	{"x86_64", record.ArchitectureX64},
	{"x64", record.ArchitectureX64},
	{"64-bit", record.ArchitectureX64},
	{"64bit", record.ArchitectureX64},
	{"win64", record.ArchitectureX64},
	{"winx64", record.ArchitectureX64},
	{"ia64", record.ArchitectureX64},
	{"amd64", record.ArchitectureX64},
	{"aarch64", record.ArchitectureArm64},
	{"arm64", record.ArchitectureArm64},
	{"armv7", record.ArchitectureArm},
	{"aarch", record.ArchitectureArm},
	{"arm", record.ArchitectureArm},
	{"x86", record.ArchitectureX86},
	{"x32", record.ArchitectureX86},
	{"32-bit", record.ArchitectureX86},
	{"32bit", record.ArchitectureX86},
	{"win32", record.ArchitectureX86},
	{"winx86", record.ArchitectureX86},
	{"ia32", record.ArchitectureX86},
	{"i386", record.ArchitectureX86},
	{"i486", record.ArchitectureX86},
	{"i586", record.ArchitectureX86},
	{"i686", record.ArchitectureX86},
	{"386", record.ArchitectureX86},
	{"486", record.ArchitectureX86},
	{"586", record.ArchitectureX86},
	{"686", record.ArchitectureX86},
	{"neutral", record.ArchitectureNeutral},
}

const urlDelimiters = ",/\\._-"

var knownExtensions = []string{
	"exe", "msi", "msix", "appx", "msixbundle", "appxbundle", "zip",
}

// DetectArchFromURL scans a URL for a recognized architecture token
// that is delimiter-bounded on both sides (or at the start/end of the
// string, or immediately before a known file extension).
func DetectArchFromURL(url string) (record.Architecture, bool) {
	lower := strings.ToLower(url)
	for _, entry := range archTokenOrder {
		idx := 0
		for {
			pos := strings.Index(lower[idx:], entry.token)
			if pos < 0 {
				break
			}
			pos += idx
			end := pos + len(entry.token)
			if isBoundary(lower, pos, end) {
				return entry.arch, true
			}
			idx = pos + 1
		}
	}
	return "", false
}

func isBoundary(s string, start, end int) bool {
	beforeOK := start == 0 || strings.ContainsRune(urlDelimiters, rune(s[start-1]))
	if !beforeOK {
		return false
	}
	if end == len(s) {
		return true
	}
	if strings.ContainsRune(urlDelimiters, rune(s[end])) {
		return true
	}
	// token.<known-ext> form: the character at end must be '.' and the
	// remainder (after stripping the dot) must be a known extension.
	if s[end] != '.' {
		return false
	}
	rest := s[end+1:]
	for _, ext := range knownExtensions {
		if rest == ext || strings.HasPrefix(rest, ext+"/") {
			return true
		}
	}
	return false
}

// DetectScopeFromURL applies the §4.9 URL-substring scope heuristic.
func DetectScopeFromURL(url string) record.Scope {
	lower := strings.ToLower(url)
	switch {
	case strings.Contains(lower, "all-users"), strings.Contains(lower, "machine"):
		return record.ScopeMachine
	case strings.Contains(lower, "user"):
		return record.ScopeUser
	default:
		return record.ScopeUnknown
	}
}

var userScopedPrefixes = []string{"%AppData%", "%LocalAppData%"}

var machineScopedPrefixes = []string{
	"%ProgramFiles%", "%ProgramFiles(x86)%",
	"%CommonProgramFiles%", "%CommonProgramFiles(x86)%",
	"%ProgramData%", "%WinDir%", "%SystemRoot%",
}

// DetectScopeFromPath classifies a placeholder-prefixed install path
// (as produced by an MSI/NSIS/Inno analyzer's default_install_location)
// by its leading well-known-folder token.
func DetectScopeFromPath(path string) record.Scope {
	for _, prefix := range userScopedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return record.ScopeUser
		}
	}
	for _, prefix := range machineScopedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return record.ScopeMachine
		}
	}
	return record.ScopeUnknown
}

// InheritMissingFields fills architecture and scope on rec from the
// URL/path heuristics whenever the parser left them unset — a parsed
// value is never overwritten.
func InheritMissingFields(rec *record.InstallerRecord, url string) {
	if rec.Architecture == "" {
		if arch, ok := DetectArchFromURL(url); ok {
			rec.Architecture = arch
		}
	}
	if rec.Scope == "" || rec.Scope == record.ScopeUnknown {
		if scope := DetectScopeFromURL(url); scope != record.ScopeUnknown {
			rec.Scope = scope
		} else if rec.InstallationMetadata.DefaultInstallLocation != "" {
			if scope := DetectScopeFromPath(rec.InstallationMetadata.DefaultInstallLocation); scope != record.ScopeUnknown {
				rec.Scope = scope
			}
		}
	}
}
