package redis

import (
	"context"

	"github.com/hirestack/candidex/internal/db"
)

// StreamAdd appends an entry to a stream with an auto-generated id.
func (s *Store) StreamAdd(ctx context.Context, stream string, fields map[string]string) error {
	partial := s.b().Xadd().Key(stream).Id("*").FieldValue()
	for k, v := range fields {
		partial = partial.FieldValue(k, v)
	}
	if err := s.do(ctx, partial.Build()).Error(); err != nil {
		return &db.Error{Op: db.OpXAdd, Err: err}
	}
	return nil
}
