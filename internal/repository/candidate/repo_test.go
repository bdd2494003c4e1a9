package candidate

import (
	"context"
	"errors"
	"testing"

	"github.com/hirestack/candidex/internal/db"
	"github.com/hirestack/candidex/internal/domain"
)

// --- Mocks ---

type mockStore struct {
	tagResult     *db.SearchResult
	tagErr        error
	textResult    *db.SearchResult
	textErr       error
	similarResult *db.SearchResult
	similarErr    error

	lastTagQuery     *db.TagQuery
	lastTextQuery    *db.TextQuery
	lastSimilarQuery *db.SimilarQuery
}

func (m *mockStore) SearchTags(_ context.Context, q *db.TagQuery) (*db.SearchResult, error) {
	m.lastTagQuery = q
	return m.tagResult, m.tagErr
}

func (m *mockStore) SearchText(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	m.lastTextQuery = q
	return m.textResult, m.textErr
}

func (m *mockStore) SearchSimilar(_ context.Context, q *db.SimilarQuery) (*db.SearchResult, error) {
	m.lastSimilarQuery = q
	return m.similarResult, m.similarErr
}

func entry(id string, score float64, fields map[string]string) db.SearchEntry {
	return db.SearchEntry{Key: keyPrefix + id, Score: score, Fields: fields}
}

// --- Tests ---

func TestFindBySkills(t *testing.T) {
	store := &mockStore{
		tagResult: &db.SearchResult{
			Total: 1,
			Entries: []db.SearchEntry{
				entry("c1", 2.5, map[string]string{
					"name":       "Dana",
					"skills":     "go, redis, ",
					"company":    "Acme",
					"experience": "6.5",
				}),
			},
		},
	}
	repo := New(store)

	lo := 3.0
	results, err := repo.FindBySkills(context.Background(),
		[]string{"go", "golang"},
		domain.Filters{Companies: []string{"Acme"}, MinExperience: &lo},
		20,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.CandidateID != "c1" || r.Score != 2.5 || r.Company != "Acme" {
		t.Errorf("unexpected result: %+v", r)
	}
	if len(r.Skills) != 2 {
		t.Errorf("blank skill not dropped: %v", r.Skills)
	}
	if r.ExperienceYears != 6.5 {
		t.Errorf("experience = %v, want 6.5", r.ExperienceYears)
	}

	q := store.lastTagQuery
	if q.IndexName != indexName || len(q.Tags["skills"]) != 2 || q.MinExperience == nil {
		t.Errorf("unexpected query: %+v", q)
	}
}

func TestFindBySkills_ZeroLimitRejected(t *testing.T) {
	repo := New(&mockStore{})
	_, err := repo.FindBySkills(context.Background(), []string{"go"}, domain.Filters{}, 0)
	if !errors.Is(err, domain.ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestFullText_BlankQueryShortCircuits(t *testing.T) {
	store := &mockStore{}
	repo := New(store)

	results, err := repo.FullText(context.Background(), "   ", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil || store.lastTextQuery != nil {
		t.Error("blank query should not reach the store")
	}
}

func TestSimilarByName_ThresholdValidation(t *testing.T) {
	repo := New(&mockStore{})

	if _, err := repo.SimilarByName(context.Background(), "dana", -0.1, 5); !errors.Is(err, domain.ErrInvalidThreshold) {
		t.Errorf("expected ErrInvalidThreshold for -0.1, got %v", err)
	}
	if _, err := repo.SimilarByName(context.Background(), "dana", 1.1, 5); !errors.Is(err, domain.ErrInvalidThreshold) {
		t.Errorf("expected ErrInvalidThreshold for 1.1, got %v", err)
	}
}

func TestSimilarByName_ZeroLimitIsInputErrorNotUnlimited(t *testing.T) {
	store := &mockStore{}
	repo := New(store)

	_, err := repo.SimilarByName(context.Background(), "dana", 0.3, 0)
	if !errors.Is(err, domain.ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
	if store.lastSimilarQuery != nil {
		t.Error("invalid limit must not reach the store")
	}
}

func TestSimilarByName_AppliesThreshold(t *testing.T) {
	store := &mockStore{
		similarResult: &db.SearchResult{
			Total: 2,
			Entries: []db.SearchEntry{
				entry("c1", 1, map[string]string{"name": "dana smith"}),
				entry("c2", 1, map[string]string{"name": "completely unrelated"}),
			},
		},
	}
	repo := New(store)

	results, err := repo.SimilarByName(context.Background(), "dana smith", 0.5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].CandidateID != "c1" {
		t.Fatalf("expected only the similar candidate, got %+v", results)
	}
	if results[0].Score <= 0.5 {
		t.Errorf("expected trigram score above threshold, got %v", results[0].Score)
	}
}

func TestTrigramSimilarity(t *testing.T) {
	if sim := trigramSimilarity("dana", "dana"); sim != 1 {
		t.Errorf("identical strings should score 1, got %v", sim)
	}
	if sim := trigramSimilarity("dana", "dena"); sim <= 0 || sim >= 1 {
		t.Errorf("near match should score in (0,1), got %v", sim)
	}
	if sim := trigramSimilarity("dana", ""); sim != 0 {
		t.Errorf("empty string should score 0, got %v", sim)
	}
}

func TestFindBySkills_StoreError(t *testing.T) {
	repo := New(&mockStore{tagErr: errors.New("down")})
	_, err := repo.FindBySkills(context.Background(), []string{"go"}, domain.Filters{}, 10)
	if err == nil {
		t.Fatal("expected error")
	}
}
