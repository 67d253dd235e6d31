package record

import "sort"

// Manifest is the final output of assembling one or more per-artifact
// InstallerRecords: scalar fields every installer agrees on are hoisted
// to the root and cleared on each installer entry, mirroring §4.10's
// reorder-keys step over the small set of fields that are genuinely
// installer-family-independent (locale, publisher, product name,
// copyright) rather than over every field — architecture, scope, and
// installer type are intentionally never hoisted since they are the
// very axes a multi-installer manifest varies across.
type Manifest struct {
	Locale      string
	Publisher   string
	PackageName string
	Copyright   string

	Installers []*InstallerRecord
}

// Assemble sorts and de-duplicates a set of per-artifact records by
// full structural equality, then hoists any field that every surviving
// installer shares to the manifest root.
func Assemble(records []*InstallerRecord) Manifest {
	deduped := dedup(records)
	sort.Slice(deduped, func(i, j int) bool { return lessRecord(deduped[i], deduped[j]) })

	m := Manifest{Installers: deduped}
	m.Locale = hoist(deduped, func(r *InstallerRecord) string { return r.Locale })
	m.Publisher = hoist(deduped, func(r *InstallerRecord) string { return r.Publisher })
	m.PackageName = hoist(deduped, func(r *InstallerRecord) string { return r.PackageName })
	m.Copyright = hoist(deduped, func(r *InstallerRecord) string { return r.Copyright })

	if m.Locale != "" {
		clearField(deduped, func(r *InstallerRecord) { r.Locale = "" })
	}
	if m.Publisher != "" {
		clearField(deduped, func(r *InstallerRecord) { r.Publisher = "" })
	}
	if m.PackageName != "" {
		clearField(deduped, func(r *InstallerRecord) { r.PackageName = "" })
	}
	if m.Copyright != "" {
		clearField(deduped, func(r *InstallerRecord) { r.Copyright = "" })
	}
	return m
}

// hoist returns the value every record shares via get, or "" if the set
// is empty, any value is empty, or the records disagree.
func hoist(records []*InstallerRecord, get func(*InstallerRecord) string) string {
	if len(records) == 0 {
		return ""
	}
	first := get(records[0])
	if first == "" {
		return ""
	}
	for _, r := range records[1:] {
		if get(r) != first {
			return ""
		}
	}
	return first
}

func clearField(records []*InstallerRecord, clear func(*InstallerRecord)) {
	for _, r := range records {
		clear(r)
	}
}

// dedup removes records that are structurally identical to one already
// kept, preserving first-seen order (the ZIP recursion's
// central-directory ordering guarantee).
func dedup(records []*InstallerRecord) []*InstallerRecord {
	var out []*InstallerRecord
	for _, r := range records {
		duplicate := false
		for _, kept := range out {
			if equalRecord(r, kept) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, r)
		}
	}
	return out
}

func equalRecord(a, b *InstallerRecord) bool {
	if a.Architecture != b.Architecture || a.InstallerType != b.InstallerType || a.Scope != b.Scope {
		return false
	}
	if a.Locale != b.Locale || a.URL != b.URL || a.SHA256 != b.SHA256 {
		return false
	}
	if a.PackageFamilyName != b.PackageFamilyName || a.Publisher != b.Publisher {
		return false
	}
	if a.PackageName != b.PackageName || a.Copyright != b.Copyright {
		return false
	}
	if a.InstallationMetadata != b.InstallationMetadata {
		return false
	}
	return equalStringSlices(a.AppsAndFeaturesKeys(), b.AppsAndFeaturesKeys())
}

// AppsAndFeaturesKeys returns a comparable flattening of every ARP
// entry, used only to compare two records for full structural equality
// during dedup.
func (r *InstallerRecord) AppsAndFeaturesKeys() []string {
	out := make([]string, 0, len(r.AppsAndFeatures))
	for _, e := range r.AppsAndFeatures {
		out = append(out, e.DisplayName+"\x00"+e.Publisher+"\x00"+e.DisplayVersion+"\x00"+e.ProductCode+"\x00"+e.UpgradeCode+"\x00"+string(e.InstallerType))
	}
	return out
}

func equalStringSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func lessRecord(a, b *InstallerRecord) bool {
	if a.InstallerType != b.InstallerType {
		return a.InstallerType < b.InstallerType
	}
	if a.Architecture != b.Architecture {
		// Architectures order as declared (x86, x64, arm, arm64,
		// neutral), not alphabetically.
		rank := map[Architecture]int{ArchitectureX86: 0, ArchitectureX64: 1, ArchitectureArm: 2, ArchitectureArm64: 3, ArchitectureNeutral: 4}
		return rank[a.Architecture] < rank[b.Architecture]
	}
	return a.Scope < b.Scope
}
