package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hirestack/candidex/internal/domain"
	"github.com/hirestack/candidex/internal/domain/facet"
	"github.com/hirestack/candidex/internal/domain/query"
	"github.com/hirestack/candidex/internal/domain/skills"
	"github.com/hirestack/candidex/internal/logger"
	"github.com/hirestack/candidex/internal/metrics"
)

const (
	// defaultFanout bounds concurrent group lookups to protect the shared
	// connection pool.
	defaultFanout = 5
	// minFetchLimit gives facet aggregation enough material even for small
	// page sizes.
	minFetchLimit = 50

	keywordWeight  = 0.7
	semanticWeight = 0.3
)

// chunkWeights are the type-weighted contributions of matched fragments.
var chunkWeights = map[string]float64{
	"skill":   1.0,
	"company": 0.5,
}

// Service runs the search pipeline: normalize, expand, bounded parallel
// fan-out, max-score merge, optional semantic re-rank, facet aggregation.
type Service struct {
	repo   Repository
	table  *skills.Table
	ranker Ranker
	fanout int
}

// New creates a search service with the default fan-out ceiling.
func New(repo Repository, table *skills.Table) *Service {
	return &Service{repo: repo, table: table, fanout: defaultFanout}
}

// WithRanker attaches the optional semantic ranking signal.
func (s *Service) WithRanker(r Ranker) *Service {
	s.ranker = r
	return s
}

// WithFanout overrides the concurrency ceiling.
func (s *Service) WithFanout(n int) *Service {
	if n > 0 {
		s.fanout = n
	}
	return s
}

// Search executes one search end to end.
func (s *Service) Search(ctx context.Context, req *Request) (*Response, error) {
	if req.Limit <= 0 {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidLimit, req.Limit)
	}

	nq := query.Normalize(req.Query, req.Filters)

	terms, typoCorrected := s.correctTypos(append(append([]string{}, nq.Tokens...), nq.Filters.Skills...))
	groups := skills.PlanGroups(s.table, terms)
	metrics.FanoutGroups.Observe(float64(len(groups)))

	fetchLimit := max(req.Limit, minFetchLimit)

	var merged []domain.SearchResult
	if len(groups) == 0 {
		var err error
		if !nq.Filters.IsEmpty() {
			// No query terms but filters present: one attribute-only
			// lookup instead of a blank full-text pass.
			merged, err = s.repo.FindBySkills(ctx, nil, nq.Filters, fetchLimit)
			if err != nil {
				return nil, fmt.Errorf("filtered lookup: %w", err)
			}
		} else {
			merged, err = s.repo.FullText(ctx, nq.Raw, fetchLimit)
			if err != nil {
				return nil, fmt.Errorf("full text: %w", err)
			}
		}
	} else {
		var err error
		merged, err = s.executeGroups(ctx, groups, nq.Filters, fetchLimit)
		if err != nil {
			// All-or-nothing: one failed sub-lookup collapses the whole
			// fan-out to the unexpanded fallback, never partial results.
			logger.FromContext(ctx).Warn("fan-out failed, falling back to full-text query",
				zap.Int("groups", len(groups)),
				zap.Error(err),
			)
			merged, err = s.repo.FullText(ctx, nq.Raw, fetchLimit)
			if err != nil {
				return nil, fmt.Errorf("fallback full text: %w", err)
			}
		}
	}

	attachChunks(merged, expandedTerms(groups), nq.Filters)
	s.applySemanticSignal(ctx, nq.Raw, merged)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].CandidateID < merged[j].CandidateID
	})

	facets := facet.Aggregate(merged, nq.Filters)
	total := len(merged)
	if len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}

	return &Response{
		Results:        merged,
		Total:          total,
		Facets:         facets,
		ParsedKeywords: nq.Tokens,
		TypoCorrected:  typoCorrected,
	}, nil
}

// SimilarByName exposes the trigram name lookup. Validation of threshold
// and limit lives in the repository.
func (s *Service) SimilarByName(
	ctx context.Context, name string, threshold float64, limit int,
) ([]domain.SearchResult, error) {
	return s.repo.SimilarByName(ctx, name, threshold, limit)
}

// executeGroups issues one lookup per group, at most fanout in flight, and
// joins all of them. Any failure fails the join.
func (s *Service) executeGroups(
	ctx context.Context, groups []skills.Group, filters domain.Filters, fetchLimit int,
) ([]domain.SearchResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanout)

	resultsByGroup := make([][]domain.SearchResult, len(groups))
	for i, grp := range groups {
		if len(grp.Skills) == 0 {
			// Nothing survived sanitization for this group: no request.
			continue
		}
		g.Go(func() error {
			res, err := s.repo.FindBySkills(gctx, grp.Skills, filters, fetchLimit)
			if err != nil {
				return fmt.Errorf("group %d: %w", grp.Index, err)
			}
			resultsByGroup[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeResults(resultsByGroup), nil
}

// mergeResults deduplicates by candidate id. A candidate seen in several
// groups keeps the maximum score observed, not the sum, so trivial overlap
// between synonym groups earns nothing.
func mergeResults(lists [][]domain.SearchResult) []domain.SearchResult {
	indexByID := make(map[string]int)
	var out []domain.SearchResult
	for _, list := range lists {
		for _, r := range list {
			if at, seen := indexByID[r.CandidateID]; seen {
				if r.Score > out[at].Score {
					out[at].Score = r.Score
				}
				continue
			}
			indexByID[r.CandidateID] = len(out)
			out = append(out, r)
		}
	}
	return out
}

// correctTypos maps known misspellings to their corrections and reports
// whether any correction happened.
func (s *Service) correctTypos(terms []string) ([]string, bool) {
	corrected := false
	out := make([]string, len(terms))
	for i, term := range terms {
		fixed, changed := s.table.CorrectTypo(term)
		out[i] = fixed
		corrected = corrected || changed
	}
	return out, corrected
}

// expandedTerms flattens the plan into a lowercase lookup set.
func expandedTerms(groups []skills.Group) map[string]struct{} {
	set := make(map[string]struct{})
	for _, g := range groups {
		for _, term := range g.Skills {
			set[strings.ToLower(term)] = struct{}{}
		}
	}
	return set
}

// attachChunks records which fragments of each candidate matched, with
// type-weighted contributions.
func attachChunks(results []domain.SearchResult, matched map[string]struct{}, filters domain.Filters) {
	for i := range results {
		var chunks []domain.MatchedChunk
		for _, skill := range results[i].Skills {
			if _, ok := matched[strings.ToLower(skill)]; ok {
				chunks = append(chunks, domain.MatchedChunk{
					Type: "skill", Text: skill, Weight: chunkWeights["skill"],
				})
			}
		}
		for _, company := range filters.Companies {
			if strings.EqualFold(company, results[i].Company) {
				chunks = append(chunks, domain.MatchedChunk{
					Type: "company", Text: results[i].Company, Weight: chunkWeights["company"],
				})
			}
		}
		results[i].Chunks = chunks
	}
}

// applySemanticSignal blends the optional embedding similarity into keyword
// scores. Unavailability degrades to keyword-only ranking, never fails the
// request.
func (s *Service) applySemanticSignal(ctx context.Context, queryText string, results []domain.SearchResult) {
	if s.ranker == nil || len(results) == 0 {
		return
	}

	scores, err := s.ranker.Rank(ctx, queryText, results)
	if err != nil || len(scores) != len(results) {
		metrics.RankingDegradedTotal.Inc()
		logger.FromContext(ctx).Warn("semantic ranking unavailable, serving keyword-only order",
			zap.Error(err),
		)
		return
	}

	for i := range results {
		results[i].Score = keywordWeight*results[i].Score + semanticWeight*scores[i]
	}
}
