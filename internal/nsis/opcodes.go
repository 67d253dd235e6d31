package nsis

// Opcode is the closed set of NSIS bytecode instructions this package
// interprets, numbered in entries-table order.
type Opcode uint32

const (
	OpReturn Opcode = iota
	OpJump
	OpAbort
	OpQuit
	OpCall
	OpUpdateText
	OpSleep
	OpCreateDir
	OpIfFileExists
	OpSetFlag
	OpIfFlag
	OpGetFlag
	OpRename
	OpGetFullPathname
	OpSearchPath
	OpGetTempFilename
	OpExtractFile
	OpDeleteFile
	OpMessageBox
	OpRemoveDir
	OpStrLen
	OpAssignVar
	OpStrCmp
	OpReadEnv
	OpIntCmp
	OpIntOp
	OpIntFmt
	OpPushPop
	OpFindWindow
	OpSendMessage
	OpIsWindow
	OpGetDialogItem
	OpSetCtlColors
	OpSetBrandingImage
	OpCreateFont
	OpShowWindow
	OpShellExec
	OpExecute
	OpGetFileTime
	OpGetDLLVersion
	OpRegisterDLL
	OpCreateShortcut
	OpCopyFiles
	OpReboot
	OpWriteIni
	OpReadIni
	OpDeleteReg
	OpWriteReg
	OpReadReg
	OpRegEnumKey
	OpFileClose
	OpFileOpen
	OpFileWrite
	OpFileRead
	OpFileSeek
	OpFindClose
	OpFindNext
	OpFindFirst
	OpWriteUninstaller
	OpSectionSet
	OpInstallerTypeSet
	OpGetOSInfo
	OpReservedOPCode
	OpLockWindow
	OpFileWriteUTF16LE
	OpFileReadUTF16LE
	OpLog
	OpFindProcess
	OpGetFontVersion
	OpGetFontName
	opcodeCount
)

func (op Opcode) valid() bool {
	return op < opcodeCount
}

var opcodeNames = [...]string{
	"Return", "Jump", "Abort", "Quit", "Call", "UpdateText", "Sleep",
	"CreateDir", "IfFileExists", "SetFlag", "IfFlag", "GetFlag", "Rename",
	"GetFullPathname", "SearchPath", "GetTempFilename", "ExtractFile",
	"DeleteFile", "MessageBox", "RemoveDir", "StrLen", "AssignVar",
	"StrCmp", "ReadEnv", "IntCmp", "IntOp", "IntFmt", "PushPop",
	"FindWindow", "SendMessage", "IsWindow", "GetDialogItem",
	"SetCtlColors", "SetBrandingImage", "CreateFont", "ShowWindow",
	"ShellExec", "Execute", "GetFileTime", "GetDLLVersion", "RegisterDLL",
	"CreateShortcut", "CopyFiles", "Reboot", "WriteIni", "ReadIni",
	"DeleteReg", "WriteReg", "ReadReg", "RegEnumKey", "FileClose",
	"FileOpen", "FileWrite", "FileRead", "FileSeek", "FindClose",
	"FindNext", "FindFirst", "WriteUninstaller", "SectionSet",
	"InstallerTypeSet", "GetOSInfo", "ReservedOPCode", "LockWindow",
	"FileWriteUTF16LE", "FileReadUTF16LE", "Log", "FindProcess",
	"GetFontVersion", "GetFontName",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "Invalid"
}
