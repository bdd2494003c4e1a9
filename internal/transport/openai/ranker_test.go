package openai

import (
	"math"
	"testing"

	"github.com/hirestack/candidex/internal/domain"
)

func TestNormalizedCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.5},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizedCosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("normalizedCosine = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestCandidateText(t *testing.T) {
	res := domain.SearchResult{
		CandidateID: "c1",
		Name:        "Jane Doe",
		Skills:      []string{"go", "redis"},
		Company:     "Acme",
	}
	if got := candidateText(res); got != "Jane Doe go redis Acme" {
		t.Errorf("candidateText = %q", got)
	}

	if got := candidateText(domain.SearchResult{CandidateID: "c2"}); got != "c2" {
		t.Errorf("empty candidate text = %q, want id fallback", got)
	}
}
