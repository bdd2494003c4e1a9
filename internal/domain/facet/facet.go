// Package facet computes value-to-count breakdowns over a merged result set,
// used to drive filter UI affordances.
package facet

import (
	"sort"
	"strings"

	"github.com/hirestack/candidex/internal/domain"
)

// Bucket is one facet value with its result count.
type Bucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Facets is the full aggregation over one result set.
type Facets struct {
	Skills     []Bucket `json:"skills"`
	Companies  []Bucket `json:"companies"`
	Experience []Bucket `json:"experience"`
}

// experienceBuckets are half-open ranges; the last is open-ended.
var experienceBuckets = []struct {
	label string
	lo    float64
	hi    float64 // exclusive; <0 means unbounded
}{
	{"0-3", 0, 3},
	{"3-5", 3, 5},
	{"5-10", 5, 10},
	{"10+", 10, -1},
}

// Aggregate walks the merged results once and builds skill, company, and
// experience buckets. A value selected in activeFilters is retained in the
// output even at count zero, ordered before unselected buckets, so a caller's
// selection never silently disappears from the response.
func Aggregate(results []domain.SearchResult, active domain.Filters) Facets {
	skillCounts := make(map[string]int)
	companyCounts := make(map[string]int)
	expCounts := make([]int, len(experienceBuckets))

	for _, r := range results {
		for _, skill := range r.Skills {
			skill = strings.TrimSpace(skill)
			if skill == "" {
				continue
			}
			skillCounts[skill]++
		}
		if company := strings.TrimSpace(r.Company); company != "" {
			companyCounts[company]++
		}
		expCounts[experienceBucketFor(r.ExperienceYears)]++
	}

	exp := make([]Bucket, 0, len(experienceBuckets))
	for i, b := range experienceBuckets {
		if expCounts[i] > 0 {
			exp = append(exp, Bucket{Value: b.label, Count: expCounts[i]})
		}
	}

	return Facets{
		Skills:     toBuckets(skillCounts, active.Skills),
		Companies:  toBuckets(companyCounts, active.Companies),
		Experience: exp,
	}
}

// experienceBucketFor maps years to a histogram slot. Negative values land
// in the lowest bucket rather than being rejected.
func experienceBucketFor(years float64) int {
	if years < 0 {
		return 0
	}
	for i, b := range experienceBuckets {
		if b.hi < 0 || years < b.hi {
			return i
		}
	}
	return len(experienceBuckets) - 1
}

// toBuckets orders selected values first (injected at count zero when the
// result set no longer contains them), then the rest by count descending
// with value as tiebreaker.
func toBuckets(counts map[string]int, selected []string) []Bucket {
	out := make([]Bucket, 0, len(counts))

	isSelected := make(map[string]struct{}, len(selected))
	for _, v := range selected {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := isSelected[keyOf(v)]; dup {
			continue
		}
		isSelected[keyOf(v)] = struct{}{}
		out = append(out, Bucket{Value: v, Count: countFor(counts, v)})
	}

	rest := make([]Bucket, 0, len(counts))
	for value, count := range counts {
		if _, sel := isSelected[keyOf(value)]; sel {
			continue
		}
		rest = append(rest, Bucket{Value: value, Count: count})
	}
	sort.Slice(rest, func(i, j int) bool {
		if rest[i].Count != rest[j].Count {
			return rest[i].Count > rest[j].Count
		}
		return rest[i].Value < rest[j].Value
	})

	return append(out, rest...)
}

func keyOf(v string) string { return strings.ToLower(v) }

// countFor resolves a selected value's count case-insensitively so casing
// drift between filter and record does not zero out a live bucket.
func countFor(counts map[string]int, value string) int {
	if c, ok := counts[value]; ok {
		return c
	}
	for k, c := range counts {
		if strings.EqualFold(k, value) {
			return c
		}
	}
	return 0
}
