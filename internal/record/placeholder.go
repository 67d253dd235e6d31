package record

// WellKnownFolderPlaceholder maps MSI "special folder" directory
// identifiers (which Burn also uses as "[Token]" path variables) to the
// installer-agnostic placeholder tokens §6.5 defines for
// DefaultInstallLocation. The MSI and Burn analyzers share this one
// table; the NSIS VM maps its shell-folder codes on its own.
var WellKnownFolderPlaceholder = map[string]string{
	"ProgramFiles64Folder": "%ProgramFiles%",
	"ProgramFilesFolder":   "%ProgramFiles(x86)%",
	"CommonFiles64Folder":  "%CommonProgramFiles%",
	"CommonFilesFolder":    "%CommonProgramFiles(x86)%",
	"AppDataFolder":        "%AppData%",
	"LocalAppDataFolder":   "%LocalAppData%",
	"CommonAppDataFolder":  "%ProgramData%",
	"TempFolder":           "%Temp%",
	"WindowsFolder":        "%WinDir%",
	"SystemFolder":         "%SystemRoot%",
}
