package candidate

import (
	"strconv"
	"strings"

	"github.com/hirestack/candidex/internal/db"
	"github.com/hirestack/candidex/internal/domain"
)

// parseEntries converts FT hits into domain results.
func parseEntries(sr *db.SearchResult) []domain.SearchResult {
	if sr == nil || sr.Total == 0 {
		return nil
	}
	out := make([]domain.SearchResult, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		out = append(out, parseEntry(entry))
	}
	return out
}

// parseEntry parses one hit's flat hash fields. Missing or malformed fields
// degrade to zero values rather than failing the whole result set.
func parseEntry(entry db.SearchEntry) domain.SearchResult {
	res := domain.SearchResult{
		CandidateID: strings.TrimPrefix(entry.Key, keyPrefix),
		Score:       entry.Score,
	}

	for k, v := range entry.Fields {
		switch k {
		case "name":
			res.Name = v
		case "company":
			res.Company = v
		case "skills":
			res.Skills = splitSkills(v)
		case "experience":
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				res.ExperienceYears = f
			}
		}
	}
	return res
}

func splitSkills(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
