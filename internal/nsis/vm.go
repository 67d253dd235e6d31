package nsis

import (
	"strconv"
	"strings"

	"github.com/russellbanks/komac-analyzer/internal/analysiserr"
	"github.com/russellbanks/komac-analyzer/internal/registrysim"
)

// stepBudget bounds total executed instructions; exceeding it means
// the script looped without making progress toward Return/Quit/Abort.
const stepBudget = 10_000_000

// Negative variable indices this VM reserves for the installer's own
// built-in named variables (distinct from the 0-255 user variable
// array); the numbering is this VM's own, not the compiler's.
const (
	varInstDir    int32 = -1
	varOutDir     int32 = -2
	varExeDir     int32 = -3
	varLanguage   int32 = -4
	varTemp       int32 = -5
	varPluginsDir int32 = -6
	varExePath    int32 = -7
	varCmdLine    int32 = -8
)

// String-heap special-character codes: a byte in this set is followed
// by a little-endian uint16 parameter rather than being literal text.
const (
	codeSkip  byte = 0xFC
	codeVar   byte = 0xFD
	codeShell byte = 0xFE
	codeLang  byte = 0xFF
)

// CreatedFile is a file-creation record the VM's write-only
// extraction opcodes append; the analyzer never materializes bytes.
type CreatedFile struct {
	Path string
	Size int64
}

// VM executes a decoded NSIS entries table over a simulated
// environment, collecting enough side effects (registry writes,
// directories created, files extracted) to build an InstallerRecord
// without ever touching the real filesystem or registry.
type VM struct {
	header *Header

	vars         [256]string
	reservedVars map[int32]string
	stack        []string
	flags        map[string]bool

	registry *registrysim.Sim
	created  []CreatedFile
	dirs     []string

	uninstallerWritten bool

	pc    int
	steps int
}

// NewVM creates a VM over a parsed header, with $EXEDIR/$INSTDIR
// seeded to placeholder install-root tokens so path concatenation
// produces readable (if unresolved) output.
func NewVM(h *Header) *VM {
	vm := &VM{
		header:   h,
		flags:    make(map[string]bool),
		registry: registrysim.New(),
		reservedVars: map[int32]string{
			varInstDir:    `%ProgramFiles%\App`,
			varOutDir:     `%ProgramFiles%\App`,
			varExeDir:     `%ProgramFiles%\App`,
			varTemp:       `%Temp%`,
			varPluginsDir: `%Temp%\nsis`,
			varExePath:    `setup.exe`,
			varLanguage:   "1033",
		},
	}
	return vm
}

// Registry returns the simulated registry writes collected so far.
func (vm *VM) Registry() *registrysim.Sim { return vm.registry }

// CreatedFiles returns every ExtractFile/WriteUninstaller record.
func (vm *VM) CreatedFiles() []CreatedFile { return vm.created }

// DeepestDirectory returns the directory passed to CreateDir with the
// most path separators (the "most specific" directory the script set),
// or "" if CreateDir was never executed.
func (vm *VM) DeepestDirectory() string {
	best := ""
	bestDepth := -1
	for _, d := range vm.dirs {
		depth := strings.Count(d, `\`) + strings.Count(d, "/")
		if depth > bestDepth {
			best = d
			bestDepth = depth
		}
	}
	return best
}

// WroteUninstaller reports whether WriteUninstaller executed.
func (vm *VM) WroteUninstaller() bool { return vm.uninstallerWritten }

// Run executes from instruction 0 until Return, Quit, or Abort, or
// until the step budget or instruction bounds are exceeded.
func (vm *VM) Run() error {
	vm.pc = 0
	for {
		if vm.pc < 0 || vm.pc >= len(vm.header.Entries) {
			return nil // fell off the end of the entries table
		}
		vm.steps++
		if vm.steps > stepBudget {
			return &analysiserr.NSISExecutionError{Kind: analysiserr.NSISExecutionStepBudgetExceeded, InstructionN: vm.pc}
		}

		ins := vm.header.Entries[vm.pc]
		halt, err := vm.execute(ins)
		if err != nil {
			return err
		}
		if halt {
			return nil
		}
		vm.pc++
	}
}

// resolveString decodes a NUL-terminated string at offset out of the
// string heap, substituting embedded variable/shell/language codes.
func (vm *VM) resolveString(offset int32) string {
	if offset < 0 {
		return ""
	}
	v := vm.header.StringsView
	var b strings.Builder
	pos := int(offset)
	for {
		c, err := v.ReadU8(pos)
		if err != nil || c == 0 {
			break
		}
		switch c {
		case codeVar, codeShell, codeLang, codeSkip:
			param, err := v.ReadU16(pos + 1)
			if err != nil {
				pos++
				continue
			}
			pos += 3
			switch c {
			case codeVar:
				b.WriteString(vm.getVar(int32(int16(param))))
			case codeShell:
				b.WriteString(shellConstantName(param))
			case codeLang:
				// Language-table string; not resolved without the
				// language block, so render a readable placeholder.
				b.WriteString("$(LangString)")
			case codeSkip:
				b.WriteByte(byte(param))
			}
			continue
		default:
			b.WriteByte(c)
			pos++
		}
	}
	return b.String()
}

func shellConstantName(code uint16) string {
	switch code {
	case 0x0026:
		return `%ProgramFiles%`
	case 0x0024:
		return `%AppData%`
	case 0x001a:
		return `%AppData%`
	case 0x0023:
		return `%CommonProgramFiles%`
	default:
		return "%SHELLFOLDER%"
	}
}

func (vm *VM) getVar(idx int32) string {
	if idx < 0 {
		return vm.reservedVars[idx]
	}
	if int(idx) < len(vm.vars) {
		return vm.vars[idx]
	}
	return ""
}

func (vm *VM) setVar(idx int32, value string) {
	if idx < 0 {
		vm.reservedVars[idx] = value
		return
	}
	if int(idx) < len(vm.vars) {
		vm.vars[idx] = value
	}
}

// execute runs one instruction, returning halt=true if the VM should
// stop (Return/Quit/Abort) without advancing the PC further. Jump, Call
// and the conditional branches (IfFlag, IfFileExists, StrCmp, IntCmp)
// set vm.pc one short of their target themselves; every opcode then
// falls through to the caller's pc++.
func (vm *VM) execute(ins Instruction) (halt bool, err error) {
	if !ins.Opcode.valid() {
		return false, &analysiserr.NSISExecutionError{Kind: analysiserr.NSISExecutionBadOpcode, InstructionN: vm.pc}
	}
	off := ins.Offsets

	switch ins.Opcode {
	case OpReturn, OpQuit:
		return true, nil
	case OpAbort:
		return true, nil
	case OpJump:
		// off[0] is relative to the current instruction; vm.pc is set
		// one short of the landing instruction since the caller's
		// loop unconditionally advances pc by one after execute returns.
		landing := vm.pc + int(off[0])
		if landing < 0 || landing > len(vm.header.Entries) {
			return false, &analysiserr.NSISExecutionError{Kind: analysiserr.NSISExecutionOutOfBoundsJump, InstructionN: vm.pc}
		}
		vm.pc = landing - 1
		return false, nil
	case OpCall:
		// off[0] is an absolute entry index with the compiler's -1 bias.
		landing := int(off[0]) - 1
		if landing < 0 || landing > len(vm.header.Entries) {
			return false, &analysiserr.NSISExecutionError{Kind: analysiserr.NSISExecutionOutOfBoundsJump, InstructionN: vm.pc}
		}
		vm.pc = landing - 1
		return false, nil

	case OpSetFlag:
		vm.flags[flagName(off[0])] = off[1] != 0
	case OpIfFlag:
		cur := vm.flags[flagName(off[2])]
		if cur {
			vm.pc += int(off[0]) - 1
		} else {
			vm.pc += int(off[1]) - 1
		}
	case OpGetFlag:
		vm.setVar(off[0], boolToStr(vm.flags[flagName(off[1])]))

	case OpCreateDir:
		dir := vm.resolveString(off[0])
		vm.dirs = append(vm.dirs, dir)
		vm.reservedVars[varOutDir] = dir

	case OpIfFileExists:
		// No real filesystem exists to probe; permissively take the
		// "exists" branch the way the Burn condition evaluator treats
		// a missing variable, since failing closed would silently
		// skip install-time registry/file side effects scripts rely on.
		vm.pc += int(off[1]) - 1

	case OpRename, OpDeleteFile, OpRemoveDir:
		// Pure filesystem mutations with no bearing on the extracted
		// record; acknowledged as executed so the step counter and PC
		// stay consistent, nothing recorded.

	case OpGetFullPathname, OpSearchPath, OpGetTempFilename:
		vm.setVar(off[0], vm.resolveString(off[1]))

	case OpExtractFile:
		path := vm.resolveString(off[1])
		vm.created = append(vm.created, CreatedFile{Path: path})

	case OpStrLen:
		vm.setVar(off[0], strconv.Itoa(len(vm.resolveString(off[1]))))

	case OpAssignVar:
		vm.setVar(off[0], assignSubstring(vm.resolveString(off[1]), off[2], off[3]))

	case OpStrCmp:
		a := vm.resolveString(off[0])
		b := vm.resolveString(off[1])
		if off[3] == 0 {
			a = strings.ToLower(a)
			b = strings.ToLower(b)
		}
		if a == b {
			vm.pc += int(off[2]) - 1
		}

	case OpReadEnv:
		vm.setVar(off[0], "")

	case OpIntCmp:
		a := parseNSISInt(vm.resolveString(off[0]))
		b := parseNSISInt(vm.resolveString(off[1]))
		switch {
		case a == b:
			vm.pc += int(off[2]) - 1
		case a < b:
			vm.pc += int(off[3]) - 1
		default:
			vm.pc += int(off[4]) - 1
		}

	case OpIntOp:
		a := parseNSISInt(vm.getVar(off[1]))
		b := parseNSISInt(vm.getVar(off[2]))
		vm.setVar(off[0], strconv.FormatInt(intOp(a, b, off[3]), 10))

	case OpIntFmt:
		vm.setVar(off[0], strconv.FormatInt(int64(parseNSISInt(vm.getVar(off[1]))), 10))

	case OpPushPop:
		vm.pushPop(off)

	case OpWriteIni, OpReadIni:
		// Simulated as a no-op: INI state has no bearing on
		// apps_and_features/scope/default_install_location.

	case OpWriteReg:
		root := registrysim.RootFromNSIS(off[0])
		vm.registry.WriteValue(root, vm.resolveString(off[1]), vm.resolveString(off[2]), vm.resolveString(off[3]))

	case OpDeleteReg:
		root := registrysim.RootFromNSIS(off[0])
		vm.registry.DeleteKey(root, vm.resolveString(off[1]))

	case OpReadReg:
		root := registrysim.RootFromNSIS(off[1])
		val, _ := vm.registry.Value(root, vm.resolveString(off[2]), vm.resolveString(off[3]))
		vm.setVar(off[0], val)

	case OpRegEnumKey:
		vm.setVar(off[0], "")

	case OpFileClose, OpFileOpen, OpFileWrite, OpFileRead, OpFileSeek,
		OpFindClose, OpFindNext, OpFindFirst:
		// Script-local file handle bookkeeping the extraction pipeline
		// never needs to observe the contents of.

	case OpWriteUninstaller:
		path := vm.resolveString(off[0])
		vm.created = append(vm.created, CreatedFile{Path: path})
		vm.uninstallerWritten = true

	case OpSectionSet, OpInstallerTypeSet, OpGetOSInfo, OpReservedOPCode,
		OpLockWindow, OpFileWriteUTF16LE, OpFileReadUTF16LE, OpLog,
		OpFindProcess, OpGetFontVersion, OpGetFontName,
		OpUpdateText, OpSleep, OpFindWindow, OpSendMessage, OpIsWindow,
		OpGetDialogItem, OpSetCtlColors, OpSetBrandingImage, OpCreateFont,
		OpShowWindow, OpShellExec, OpExecute, OpGetFileTime,
		OpGetDLLVersion, OpRegisterDLL, OpCreateShortcut, OpCopyFiles,
		OpReboot:
		// UI, process-execution, and cosmetic opcodes: acknowledged,
		// no simulated state to update.

	default:
		return false, &analysiserr.NSISExecutionError{Kind: analysiserr.NSISExecutionBadOpcode, InstructionN: vm.pc}
	}
	return false, nil
}

func flagName(code int32) string {
	switch code {
	case 0:
		return "AutoClose"
	case 1:
		return "Reboot"
	case 2:
		return "ShellVarContext"
	case 3:
		return "Silent"
	case 4:
		return "RegView"
	case 5:
		return "DetailsPrint"
	default:
		return "Flag" + strconv.Itoa(int(code))
	}
}

func boolToStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// assignSubstring implements AssignVar's copy rule: maxLen == 0 keeps
// everything from start onward, otherwise at most maxLen characters
// (runes) are kept. maxLen is used as a single count; it is not split
// into high and low halves. A negative start indexes from the end of s.
func assignSubstring(s string, start, maxLen int32) string {
	runes := []rune(s)
	n := int32(len(runes))
	st := start
	if st < 0 {
		st = n + st
	}
	if st < 0 {
		st = 0
	}
	if st > n {
		st = n
	}
	remainder := runes[st:]
	if maxLen == 0 {
		return string(remainder)
	}
	if maxLen < int32(len(remainder)) {
		remainder = remainder[:maxLen]
	}
	return string(remainder)
}

func parseNSISInt(s string) int32 {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

// intOp implements the 14 NSIS IntOp operations, by operand index.
func intOp(a, b, op int32) int64 {
	switch op {
	case 0:
		return int64(a) + int64(b)
	case 1:
		return int64(a) - int64(b)
	case 2:
		return int64(a) * int64(b)
	case 3:
		if b == 0 {
			return 0
		}
		return int64(a) / int64(b)
	case 4:
		return int64(a | b)
	case 5:
		return int64(a & b)
	case 6:
		return int64(a ^ b)
	case 7:
		return int64(^a)
	case 8:
		if a != 0 || b != 0 {
			return 1
		}
		return 0
	case 9:
		if a != 0 && b != 0 {
			return 1
		}
		return 0
	case 10:
		if b == 0 {
			return 0
		}
		return int64(a) % int64(b)
	case 11:
		return int64(uint32(a) << uint32(b%32))
	case 12:
		return int64(int32(a) >> uint32(b%32))
	case 13:
		return int64(uint32(a) >> uint32(b%32))
	default:
		return 0
	}
}

func (vm *VM) pushPop(off [6]int32) {
	exchange := off[2]
	switch {
	case exchange == 0 && off[1] != 0:
		// Pop: off[0] is destination var, value comes off the stack.
		if len(vm.stack) > 0 {
			v := vm.stack[len(vm.stack)-1]
			vm.stack = vm.stack[:len(vm.stack)-1]
			vm.setVar(off[0], v)
		}
	case exchange == 0:
		vm.stack = append(vm.stack, vm.resolveString(off[0]))
	default:
		n := int(exchange)
		if n >= 0 && n < len(vm.stack) {
			top := len(vm.stack) - 1
			other := top - n
			vm.stack[top], vm.stack[other] = vm.stack[other], vm.stack[top]
		}
	}
}
