package domain

// MatchedChunk is one fragment of a resume that matched the query, with a
// type-weighted contribution toward the candidate's score.
type MatchedChunk struct {
	Type   string  `json:"type"` // skill, title, summary, company
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

// SearchResult is a single candidate hit. Produced fresh per query and never
// mutated after the merge step; cached copies are immutable.
type SearchResult struct {
	CandidateID     string         `json:"candidateId"`
	Score           float64        `json:"score"`
	Name            string         `json:"name,omitempty"`
	Skills          []string       `json:"skills,omitempty"`
	Company         string         `json:"company,omitempty"`
	ExperienceYears float64        `json:"experienceYears"`
	Chunks          []MatchedChunk `json:"matchedChunks,omitempty"`
}

// Filters is the caller-selected narrowing of a search.
type Filters struct {
	Skills        []string `json:"skills,omitempty"`
	Companies     []string `json:"companies,omitempty"`
	MinExperience *float64 `json:"minExperience,omitempty"`
	MaxExperience *float64 `json:"maxExperience,omitempty"`
}

// IsEmpty reports whether no filter is selected.
func (f Filters) IsEmpty() bool {
	return len(f.Skills) == 0 && len(f.Companies) == 0 &&
		f.MinExperience == nil && f.MaxExperience == nil
}
