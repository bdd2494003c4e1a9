package search

import (
	"context"

	"github.com/hirestack/candidex/internal/domain"
	"github.com/hirestack/candidex/internal/domain/facet"
)

// Repository defines the storage contract for candidate lookups.
type Repository interface {
	FindBySkills(ctx context.Context, skills []string, filters domain.Filters, limit int) ([]domain.SearchResult, error)
	FullText(ctx context.Context, text string, limit int) ([]domain.SearchResult, error)
	SimilarByName(ctx context.Context, name string, threshold float64, limit int) ([]domain.SearchResult, error)
}

// Ranker contributes an optional semantic relevance signal. Scores are
// returned positionally for the given results, each within [0, 1].
type Ranker interface {
	Rank(ctx context.Context, query string, results []domain.SearchResult) ([]float64, error)
}

// Request is one search invocation.
type Request struct {
	Query   string
	Filters domain.Filters
	Limit   int
}

// Response is the pipeline output for one search.
type Response struct {
	Results        []domain.SearchResult `json:"results"`
	Total          int                   `json:"total"`
	Facets         facet.Facets          `json:"facets"`
	ParsedKeywords []string              `json:"parsedKeywords,omitempty"`
	TypoCorrected  bool                  `json:"typoCorrected,omitempty"`
}
