package skills

import "strings"

const (
	// MaxSkillsPerGroup bounds one parallel lookup's term count.
	MaxSkillsPerGroup = 15
	// MaxTotalSkills bounds the whole expanded set. Unbounded expansion
	// used to collapse into one oversized final group with poor
	// selectivity; the cap trades a small recall loss for predictable
	// query cost.
	MaxTotalSkills = 75
)

// Group is a size-bounded slice of synonym-expanded skill terms, tagged with
// its position in the fan-out plan.
type Group struct {
	Index  int
	Skills []string
}

// PlanGroups expands each skill through the table, deduplicates the union
// case-insensitively, and partitions it into fixed-size groups. When the
// expanded set exceeds MaxTotalSkills, derived synonyms are dropped before
// any of the caller's original terms.
func PlanGroups(table *Table, requested []string) []Group {
	originals := make([]string, 0, len(requested))
	var derived []string
	seen := make(map[string]struct{})

	for _, skill := range requested {
		k := strings.ToLower(skill)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		originals = append(originals, skill)
	}
	for _, skill := range originals {
		for _, term := range table.Expand(skill) {
			k := strings.ToLower(term)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			derived = append(derived, term)
		}
	}

	// Originals first so the cap sheds synonyms, never requested terms.
	flat := append(originals, derived...)
	if len(flat) > MaxTotalSkills {
		flat = flat[:MaxTotalSkills]
	}

	var groups []Group
	for start := 0; start < len(flat); start += MaxSkillsPerGroup {
		end := min(start+MaxSkillsPerGroup, len(flat))
		groups = append(groups, Group{
			Index:  len(groups),
			Skills: flat[start:end],
		})
	}
	return groups
}
