package validation

import (
	"regexp"
	"strings"
)

// URI scheme rules (RFC 3986 §3.1), lowercased before matching:
// - Start with a letter.
// - Then letters, digits, "+", "-", ".".
// - Length 1..32 (app schemes are short; anything longer is config noise).
var schemeNameRe = regexp.MustCompile(`^[a-z][a-z0-9+.\-]{0,31}$`)

// ValidSchemeName returns true if s is a usable URI scheme name.
func ValidSchemeName(s string) bool {
	return schemeNameRe.MatchString(strings.ToLower(strings.TrimSpace(s)))
}

// NormalizeSchemes lowercases, trims and de-duplicates a scheme list, dropping invalid entries.
func NormalizeSchemes(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if !schemeNameRe.MatchString(s) {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
