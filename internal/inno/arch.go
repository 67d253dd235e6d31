package inno

import (
	"strings"

	"github.com/russellbanks/komac-analyzer/internal/record"
)

// archTokens is the closed set of architecture identifiers Inno's
// ArchitecturesAllowed/ArchitecturesInstallIn64BitMode expressions are
// built from.
var archTokens = map[string]record.Architecture{
	"x86":           record.ArchitectureX86,
	"x64":           record.ArchitectureX64,
	"x64os":         record.ArchitectureX64,
	"x64compatible": record.ArchitectureX64,
	"x86compatible": record.ArchitectureX86,
	"arm64":         record.ArchitectureArm64,
}

// evaluateArchExpression scans an architecture expression for the first
// known architecture token and returns its architecture. The words
// "and"/"or"/"not" and parentheses are skipped, not evaluated: "not x86"
// yields x86, and an expression naming several architectures yields
// only the first. An empty expression means "all architectures" and
// yields neutral, as does one with no known token.
func evaluateArchExpression(expr string) record.Architecture {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return record.ArchitectureNeutral
	}
	fields := strings.FieldsFunc(expr, func(r rune) bool {
		return r == '(' || r == ')' || r == ' '
	})
	for _, f := range fields {
		lower := strings.ToLower(f)
		if lower == "and" || lower == "or" || lower == "not" {
			continue
		}
		if arch, ok := archTokens[lower]; ok {
			return arch
		}
	}
	return record.ArchitectureNeutral
}
