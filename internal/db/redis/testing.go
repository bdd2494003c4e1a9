package redis

import "github.com/redis/rueidis"

// NewStoreForTest wraps an externally constructed (usually mocked) client.
func NewStoreForTest(client rueidis.Client) *Store {
	return &Store{client: client}
}
