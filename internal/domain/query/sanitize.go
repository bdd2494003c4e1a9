package query

import "strings"

const (
	// MaxSkillLen caps a single sanitized skill string.
	MaxSkillLen = 100
	// MaxSkillListLen caps the number of skills accepted from one request.
	MaxSkillListLen = 100
)

// SanitizeSkillList filters a heterogeneous skill payload down to clean
// strings: non-string, null, and blank entries are dropped, survivors are
// truncated to MaxSkillLen characters, and the list is capped at
// MaxSkillListLen entries. This guards the expansion stage from malformed
// input.
func SanitizeSkillList(list []any) []string {
	out := make([]string, 0, min(len(list), MaxSkillListLen))
	for _, item := range list {
		if len(out) == MaxSkillListLen {
			break
		}
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(stripInvisible(s))
		if s == "" {
			continue
		}
		out = append(out, truncateRunes(s, MaxSkillLen))
	}
	return out
}

// SanitizeSkills is the typed variant for callers that already hold strings.
func SanitizeSkills(list []string) []string {
	anys := make([]any, len(list))
	for i, s := range list {
		anys[i] = s
	}
	return SanitizeSkillList(anys)
}
