package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/hirestack/candidex/internal/db"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// --- kv.go tests ---

func TestGet_Found(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k1")).
		Return(mock.Result(mock.RedisString("v1")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "k1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "v1" {
		t.Errorf("expected v1, got %q", data)
	}
}

func TestGet_Missing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "gone")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "gone")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetWithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k1", "v1", "EX", "60")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "k1", []byte("v1"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetNX_Acquired(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "lock", "tok", "NX", "EX", "10")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	ok, err := s.SetNX(context.Background(), "lock", []byte("tok"), 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected lock acquired")
	}
}

func TestSetNX_AlreadyHeld(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "lock", "tok", "NX", "EX", "10")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	ok, err := s.SetNX(context.Background(), "lock", []byte("tok"), 10*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected lock not acquired")
	}
}

func TestDel(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", "k1")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.Del(context.Background(), "k1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- counter.go tests ---

func TestCheckAndIncr(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "EVALSHA" && cmd[3] == "rl:ip:1.2.3.4"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(3),
			mock.RedisInt64(42000),
		)))

	s := NewStoreForTest(c)
	count, ttl, err := s.CheckAndIncr(context.Background(), "rl:ip:1.2.3.4", 50, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("expected count 3, got %d", count)
	}
	if ttl != 42*time.Second {
		t.Errorf("expected ttl 42s, got %v", ttl)
	}
}

func TestCheckAndIncr_NegativeTTLFallsBackToWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "EVALSHA"
		})).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisInt64(-2),
		)))

	s := NewStoreForTest(c)
	_, ttl, err := s.CheckAndIncr(context.Background(), "rl:t", 50, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl != time.Minute {
		t.Errorf("expected window fallback 1m, got %v", ttl)
	}
}

// --- search.go tests ---

func searchReply(total int64, entries ...rueidis.RedisMessage) rueidis.RedisResult {
	msgs := append([]rueidis.RedisMessage{mock.RedisInt64(total)}, entries...)
	return mock.Result(mock.RedisArray(msgs...))
}

func TestSearchTags(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[1] == "cdx:candidates:idx" &&
				cmd[2] == "@skills:{go|golang}"
		})).
		Return(searchReply(1,
			mock.RedisString("cdx:candidate:c1"),
			mock.RedisString("2"),
			mock.RedisArray(
				mock.RedisString("skills"), mock.RedisString("go,golang"),
				mock.RedisString("company"), mock.RedisString("Acme"),
			),
		))

	s := NewStoreForTest(c)
	res, err := s.SearchTags(context.Background(), &db.TagQuery{
		IndexName: "cdx:candidates:idx",
		Tags:      map[string][]string{"skills": {"go", "golang"}},
		Limit:     10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 1 || len(res.Entries) != 1 {
		t.Fatalf("expected 1 entry, got total=%d entries=%d", res.Total, len(res.Entries))
	}
	e := res.Entries[0]
	if e.Key != "cdx:candidate:c1" || e.Score != 2 || e.Fields["company"] != "Acme" {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestSearchTags_EmptyLimit(t *testing.T) {
	s := NewStoreForTest(mock.NewClient(gomock.NewController(t)))
	_, err := s.SearchTags(context.Background(), &db.TagQuery{IndexName: "idx"})
	if err == nil {
		t.Fatal("expected error for non-positive limit")
	}
}

func TestSearchText_ZeroResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH"
		})).
		Return(searchReply(0))

	s := NewStoreForTest(c)
	res, err := s.SearchText(context.Background(), &db.TextQuery{
		IndexName: "idx", Field: "summary", Query: "golang", Limit: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Total != 0 || len(res.Entries) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestSearchSimilar_FuzzyTerms(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "FT.SEARCH" && cmd[2] == "@name:(%jon% %smith%)"
		})).
		Return(searchReply(0))

	s := NewStoreForTest(c)
	_, err := s.SearchSimilar(context.Background(), &db.SimilarQuery{
		IndexName: "idx", Field: "name", Text: "jon smith", Limit: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildTagQuery_ExperienceRange(t *testing.T) {
	lo, hi := 3.0, 10.0
	got := buildTagQuery(&db.TagQuery{
		MinExperience: &lo,
		MaxExperience: &hi,
	})
	if got != "@experience:[3 10]" {
		t.Errorf("unexpected query: %q", got)
	}
}

func TestEscapeTag(t *testing.T) {
	got := escapeTag("c++ (embedded)")
	want := "c\\+\\+\\ \\(embedded\\)"
	if got != want {
		t.Errorf("escapeTag = %q, want %q", got, want)
	}
}

// --- stream.go tests ---

func TestStreamAdd(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "XADD" && cmd[1] == "cdx:feedback" && cmd[2] == "*"
		})).
		Return(mock.Result(mock.RedisString("1-0")))

	s := NewStoreForTest(c)
	err := s.StreamAdd(context.Background(), "cdx:feedback", map[string]string{"event_id": "e1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
