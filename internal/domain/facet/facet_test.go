package facet

import (
	"testing"

	"github.com/hirestack/candidex/internal/domain"
)

func results() []domain.SearchResult {
	return []domain.SearchResult{
		{CandidateID: "a", Skills: []string{"go", "redis"}, Company: "Acme", ExperienceYears: 2},
		{CandidateID: "b", Skills: []string{"go", "", "  "}, Company: "Acme", ExperienceYears: 4},
		{CandidateID: "c", Skills: nil, Company: "", ExperienceYears: 7},
		{CandidateID: "d", Skills: []string{"rust"}, Company: "Initech", ExperienceYears: 12},
		{CandidateID: "e", Skills: []string{"go"}, Company: "Initech", ExperienceYears: -3},
	}
}

func TestAggregate_Counts(t *testing.T) {
	f := Aggregate(results(), domain.Filters{})

	if len(f.Skills) != 3 {
		t.Fatalf("expected 3 skill buckets, got %v", f.Skills)
	}
	if f.Skills[0].Value != "go" || f.Skills[0].Count != 3 {
		t.Errorf("expected go=3 first, got %+v", f.Skills[0])
	}

	if len(f.Companies) != 2 {
		t.Fatalf("expected 2 company buckets, got %v", f.Companies)
	}
	for _, b := range f.Companies {
		if b.Count != 2 {
			t.Errorf("expected count 2 for %q, got %d", b.Value, b.Count)
		}
	}
}

func TestAggregate_ExperienceHistogram(t *testing.T) {
	f := Aggregate(results(), domain.Filters{})

	want := map[string]int{
		"0-3":  2, // 2yrs plus the negative value clamped into the lowest bucket
		"3-5":  1,
		"5-10": 1,
		"10+":  1,
	}
	if len(f.Experience) != len(want) {
		t.Fatalf("unexpected experience buckets: %v", f.Experience)
	}
	for _, b := range f.Experience {
		if want[b.Value] != b.Count {
			t.Errorf("bucket %q = %d, want %d", b.Value, b.Count, want[b.Value])
		}
	}
}

func TestAggregate_SelectedZeroCountRetainedFirst(t *testing.T) {
	f := Aggregate(results(), domain.Filters{Skills: []string{"cobol"}})

	if len(f.Skills) != 4 {
		t.Fatalf("expected 4 skill buckets, got %v", f.Skills)
	}
	if f.Skills[0].Value != "cobol" || f.Skills[0].Count != 0 {
		t.Errorf("expected selected zero-count bucket first, got %+v", f.Skills[0])
	}
}

func TestAggregate_UnselectedZeroBucketsOmitted(t *testing.T) {
	f := Aggregate(results(), domain.Filters{})
	for _, b := range f.Skills {
		if b.Count == 0 {
			t.Errorf("unselected zero-count bucket %q should be omitted", b.Value)
		}
	}
}

func TestAggregate_SelectedCaseInsensitiveCount(t *testing.T) {
	f := Aggregate(results(), domain.Filters{Skills: []string{"GO"}})
	if f.Skills[0].Value != "GO" || f.Skills[0].Count != 3 {
		t.Errorf("expected selected GO to carry go's count, got %+v", f.Skills[0])
	}
}

func TestExperienceBucketFor_HalfOpenBoundaries(t *testing.T) {
	tests := []struct {
		years float64
		want  int
	}{
		{0, 0}, {2.9, 0}, {3, 1}, {4.9, 1}, {5, 2}, {9.9, 2}, {10, 3}, {40, 3}, {-1, 0},
	}
	for _, tc := range tests {
		if got := experienceBucketFor(tc.years); got != tc.want {
			t.Errorf("experienceBucketFor(%v) = %d, want %d", tc.years, got, tc.want)
		}
	}
}
