package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hirestack/candidex/internal/domain"
)

type mockStore struct {
	stream string
	fields map[string]string
	err    error
}

func (m *mockStore) StreamAdd(_ context.Context, stream string, fields map[string]string) error {
	m.stream = stream
	m.fields = fields
	return m.err
}

func TestRecord(t *testing.T) {
	store := &mockStore{}
	repo := New(store)

	j := domain.Judgment{
		EventID:     "e1",
		TenantID:    "t1",
		Query:       "golang",
		CandidateID: "c1",
		Action:      domain.ActionShortlist,
		Position:    3,
		CreatedAt:   time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := repo.Record(context.Background(), j); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.stream != streamKey {
		t.Errorf("stream = %q, want %q", store.stream, streamKey)
	}
	if store.fields["action"] != "shortlist" || store.fields["position"] != "3" {
		t.Errorf("unexpected fields: %v", store.fields)
	}
	if store.fields["created_at"] != "2026-02-01T10:00:00Z" {
		t.Errorf("created_at = %q", store.fields["created_at"])
	}
}

func TestRecord_StoreError(t *testing.T) {
	repo := New(&mockStore{err: errors.New("down")})
	if err := repo.Record(context.Background(), domain.Judgment{}); err == nil {
		t.Fatal("expected error")
	}
}
