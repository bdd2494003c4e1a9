// Package feedback persists relevance judgments to an append-only stream
// consumed by an external ranking-improvement process.
package feedback

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hirestack/candidex/internal/domain"
)

const streamKey = domain.KeyPrefix + "feedback"

// store is the consumer interface for judgment persistence (ISP).
type store interface {
	StreamAdd(ctx context.Context, stream string, fields map[string]string) error
}

// Repo appends judgments to the feedback stream.
type Repo struct {
	store store
}

// New creates a feedback repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Record appends one judgment.
func (r *Repo) Record(ctx context.Context, j domain.Judgment) error {
	fields := map[string]string{
		"event_id":     j.EventID,
		"tenant_id":    j.TenantID,
		"query":        j.Query,
		"candidate_id": j.CandidateID,
		"action":       j.Action,
		"position":     strconv.Itoa(j.Position),
		"created_at":   j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if err := r.store.StreamAdd(ctx, streamKey, fields); err != nil {
		return fmt.Errorf("record judgment: %w", err)
	}
	return nil
}
