package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	KVStore
	CounterStore
	Searcher
	StreamAppender
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides key-value operations with expiry, used by the result
// cache and the stampede lock.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores the value only if the key does not exist yet.
	// Returns false without error when the key was already present.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

// CounterStore provides windowed rate-limit counters.
type CounterStore interface {
	// CheckAndIncr increments the window counter for key in a single round
	// trip, unless the counter already sits at limit+1 (the request that
	// trips the limit is the last one counted). It returns the counter
	// value after the call and the time until the window resets.
	CheckAndIncr(ctx context.Context, key string, limit int64, window time.Duration) (int64, time.Duration, error)
}

// TagQuery is the input for an attribute-filtered candidate lookup.
type TagQuery struct {
	IndexName     string
	Tags          map[string][]string // field -> any-of tag values
	MinExperience *float64
	MaxExperience *float64
	Limit         int
	ReturnFields  []string
}

// TextQuery is the input for a full-text lookup over a single TEXT field.
type TextQuery struct {
	IndexName    string
	Field        string
	Query        string
	Limit        int
	ReturnFields []string
}

// SimilarQuery is the input for a fuzzy name-similarity lookup.
type SimilarQuery struct {
	IndexName string
	Field     string
	Text      string
	Limit     int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// Searcher provides lookups over FT indexes.
type Searcher interface {
	SearchTags(ctx context.Context, q *TagQuery) (*SearchResult, error)
	SearchText(ctx context.Context, q *TextQuery) (*SearchResult, error)
	SearchSimilar(ctx context.Context, q *SimilarQuery) (*SearchResult, error)
}

// StreamAppender appends entries to an append-only stream.
type StreamAppender interface {
	StreamAdd(ctx context.Context, stream string, fields map[string]string) error
}
