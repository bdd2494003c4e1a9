package query

import "github.com/hirestack/candidex/internal/domain"

// NormalizedQuery is the canonical form of a search request: raw text,
// ordered tokens, and a sanitized filter set. Tokens are free of control and
// zero-width characters and never exceed MaxTokenLen runes.
type NormalizedQuery struct {
	Raw     string
	Tokens  []string
	Filters domain.Filters
}

// Normalize tokenizes raw text and sanitizes the filter payload.
func Normalize(raw string, filters domain.Filters) NormalizedQuery {
	return NormalizedQuery{
		Raw:    raw,
		Tokens: Tokenize(raw),
		Filters: domain.Filters{
			Skills:        SanitizeSkills(filters.Skills),
			Companies:     SanitizeSkills(filters.Companies),
			MinExperience: filters.MinExperience,
			MaxExperience: filters.MaxExperience,
		},
	}
}
