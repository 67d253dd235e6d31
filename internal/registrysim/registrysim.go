// Package registrysim is a simulated Windows registry that the NSIS
// bytecode VM writes to via its WriteReg/DeleteReg opcodes. It never
// touches a real registry — it only collects the writes an installer's
// script would have made, so the analyzer can later read them back to
// populate apps_and_features and infer scope (spec.md §4.6.1).
//
// The key/value tree shape here is carried over from the teacher's WiX
// registry-component generator (internal/registry/registry.go in
// gersonkurz/msis), which built the identical Root/Key/Value structure
// from parsed .reg files; this package builds the same shape instead
// from VM writes, and drops the WiX-XML-emission half entirely.
package registrysim

import "strings"

// Root identifies a registry hive.
type Root int

const (
	RootUnknown Root = iota
	RootClassesRoot
	RootCurrentUser
	RootLocalMachine
	RootUsers
	RootCurrentConfig
)

// NSIS encodes hive roots as the well-known Win32 predefined handle
// values; RootFromNSIS maps those onto Root.
func RootFromNSIS(value int32) Root {
	switch uint32(value) {
	case 0x80000000:
		return RootClassesRoot
	case 0x80000001:
		return RootCurrentUser
	case 0x80000002:
		return RootLocalMachine
	case 0x80000003:
		return RootUsers
	case 0x80000005:
		return RootCurrentConfig
	default:
		return RootUnknown
	}
}

// Name returns the conventional short name for a root (HKLM, HKCU, ...).
func (r Root) Name() string {
	switch r {
	case RootClassesRoot:
		return "HKCR"
	case RootCurrentUser:
		return "HKCU"
	case RootLocalMachine:
		return "HKLM"
	case RootUsers:
		return "HKU"
	case RootCurrentConfig:
		return "HKCC"
	default:
		return "HKUNKNOWN"
	}
}

type valueKey struct {
	root Root
	key  string
	name string
}

// Sim collects registry writes and deletes performed by a simulated
// installer run. It never panics on a write to a key that does not
// exist yet — keys are created implicitly on first write, matching
// real registry semantics.
type Sim struct {
	values  map[valueKey]string
	deleted map[valueKey]bool
	// order preserves write order for deterministic iteration.
	order []valueKey
}

// New creates an empty simulated registry.
func New() *Sim {
	return &Sim{
		values:  make(map[valueKey]string),
		deleted: make(map[valueKey]bool),
	}
}

func normalizeKey(key string) string {
	return strings.Trim(strings.ReplaceAll(key, "/", `\`), `\`)
}

// WriteValue records a value write under root\key\name (name == "" is
// the default value of the key).
func (s *Sim) WriteValue(root Root, key, name, value string) {
	k := valueKey{root, normalizeKey(key), name}
	if _, exists := s.values[k]; !exists {
		s.order = append(s.order, k)
	}
	s.values[k] = value
	delete(s.deleted, k)
}

// DeleteValue records a value deletion.
func (s *Sim) DeleteValue(root Root, key, name string) {
	k := valueKey{root, normalizeKey(key), name}
	s.deleted[k] = true
	delete(s.values, k)
}

// DeleteKey records deletion of every value the VM wrote under the
// given key (and any subkey prefix).
func (s *Sim) DeleteKey(root Root, key string) {
	prefix := normalizeKey(key)
	for k := range s.values {
		if k.root == root && (k.key == prefix || strings.HasPrefix(k.key, prefix+`\`)) {
			s.deleted[k] = true
			delete(s.values, k)
		}
	}
}

// Value returns the current value at root\key\name and whether it exists.
func (s *Sim) Value(root Root, key, name string) (string, bool) {
	v, ok := s.values[valueKey{root, normalizeKey(key), name}]
	return v, ok
}

// Key groups the values written directly under one registry key.
type Key struct {
	Root   Root
	Path   string
	Values map[string]string
}

// Keys returns every key that has at least one surviving value,
// grouped and in first-write order.
func (s *Sim) Keys() []Key {
	seen := make(map[valueKey]bool, len(s.order))
	var out []Key
	index := make(map[string]int)
	for _, k := range s.order {
		if _, ok := s.values[k]; !ok || seen[k] {
			continue
		}
		seen[k] = true
		groupKey := k.root.Name() + "\x00" + k.key
		i, ok := index[groupKey]
		if !ok {
			out = append(out, Key{Root: k.root, Path: k.key, Values: map[string]string{}})
			i = len(out) - 1
			index[groupKey] = i
		}
		out[i].Values[k.name] = s.values[k]
	}
	return out
}

// KeysUnder returns every recorded key under the given root whose path
// contains the given substring, compared case-insensitively (e.g.
// `\Uninstall`). RootUnknown matches any root.
func (s *Sim) KeysUnder(root Root, suffixContains string) []Key {
	suffixContains = strings.ToUpper(suffixContains)
	var out []Key
	for _, k := range s.Keys() {
		if root != RootUnknown && k.Root != root {
			continue
		}
		if strings.Contains(strings.ToUpper(k.Path), suffixContains) {
			out = append(out, k)
		}
	}
	return out
}

// WroteUnderMachine reports whether any write targeted HKLM, which the
// NSIS analyzer uses to infer scope=machine (spec.md §4.6.1).
func (s *Sim) WroteUnderMachine() bool {
	for _, k := range s.order {
		if k.root == RootLocalMachine {
			if _, ok := s.values[k]; ok {
				return true
			}
		}
	}
	return false
}

// WroteUnderUser reports whether any write targeted HKCU.
func (s *Sim) WroteUnderUser() bool {
	for _, k := range s.order {
		if k.root == RootCurrentUser {
			if _, ok := s.values[k]; ok {
				return true
			}
		}
	}
	return false
}
