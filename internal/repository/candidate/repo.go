// Package candidate is the typed repository for resume records. It exposes
// exactly the lookups the search pipeline needs, so the pipeline never
// depends on a raw client shape.
package candidate

import (
	"context"
	"fmt"
	"strings"

	"github.com/hirestack/candidex/internal/db"
	"github.com/hirestack/candidex/internal/domain"
)

const (
	keyPrefix = domain.KeyPrefix + "candidate:"
	indexName = domain.KeyPrefix + "candidates:idx"
)

var returnFields = []string{"name", "skills", "company", "experience", "summary"}

// store is the consumer interface for candidate lookups (ISP).
type store interface {
	SearchTags(ctx context.Context, q *db.TagQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchSimilar(ctx context.Context, q *db.SimilarQuery) (*db.SearchResult, error)
}

// Repo implements the pipeline's candidate lookups over FT indexes.
type Repo struct {
	store store
}

// New creates a candidate repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// FindBySkills runs one attribute-filtered lookup: candidates whose skill
// tags overlap the given set, narrowed by company and experience filters.
func (r *Repo) FindBySkills(
	ctx context.Context, skills []string, filters domain.Filters, limit int,
) ([]domain.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidLimit, limit)
	}

	tags := map[string][]string{}
	if len(skills) > 0 {
		tags["skills"] = skills
	}
	if len(filters.Companies) > 0 {
		tags["company"] = filters.Companies
	}

	sr, err := r.store.SearchTags(ctx, &db.TagQuery{
		IndexName:     indexName,
		Tags:          tags,
		MinExperience: filters.MinExperience,
		MaxExperience: filters.MaxExperience,
		Limit:         limit,
		ReturnFields:  returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("find by skills: %w", err)
	}

	return parseEntries(sr), nil
}

// FullText runs the unexpanded fallback query over resume summaries.
func (r *Repo) FullText(ctx context.Context, text string, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidLimit, limit)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	sr, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    indexName,
		Field:        "summary",
		Query:        text,
		Limit:        limit,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("full text: %w", err)
	}

	return parseEntries(sr), nil
}

// SimilarByName finds candidates whose name is trigram-similar to the given
// text. threshold must lie within [0, 1]; a limit of 0 is an input error,
// never "no limit".
func (r *Repo) SimilarByName(
	ctx context.Context, name string, threshold float64, limit int,
) ([]domain.SearchResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidLimit, limit)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", domain.ErrInvalidThreshold, threshold)
	}
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}

	sr, err := r.store.SearchSimilar(ctx, &db.SimilarQuery{
		IndexName: indexName,
		Field:     "name",
		Text:      name,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("similar by name: %w", err)
	}

	// The fuzzy lookup over-fetches; trigram similarity applies the threshold.
	out := make([]domain.SearchResult, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		res := parseEntry(entry)
		sim := trigramSimilarity(name, res.Name)
		if sim >= threshold {
			res.Score = sim
			out = append(out, res)
		}
	}
	return out, nil
}

// trigramSimilarity is Jaccard similarity over padded lowercase 3-gram sets,
// matching the pg_trgm convention of two leading and one trailing pad.
func trigramSimilarity(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	return float64(shared) / float64(union)
}

func trigrams(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, word := range strings.Fields(strings.ToLower(s)) {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			out[string(padded[i:i+3])] = struct{}{}
		}
	}
	return out
}
