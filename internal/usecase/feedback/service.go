// Package feedback validates and records relevance judgments.
package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hirestack/candidex/internal/domain"
	"github.com/hirestack/candidex/internal/logger"
)

// Repository is the persistence contract for judgments.
type Repository interface {
	Record(ctx context.Context, j domain.Judgment) error
}

// Request is one result interaction reported by a caller.
type Request struct {
	TenantID    string
	Query       string
	CandidateID string
	Action      string
	Position    int
}

// Service assigns event identity and persists judgments.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New creates a feedback service.
func New(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record validates the interaction and appends it to the judgment log.
// It returns the assigned event id.
func (s *Service) Record(ctx context.Context, req Request) (string, error) {
	if err := validate(req); err != nil {
		return "", err
	}

	j := domain.Judgment{
		EventID:     uuid.NewString(),
		TenantID:    req.TenantID,
		Query:       strings.TrimSpace(req.Query),
		CandidateID: strings.TrimSpace(req.CandidateID),
		Action:      req.Action,
		Position:    req.Position,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Record(ctx, j); err != nil {
		return "", err
	}

	logger.FromContext(ctx).Debug("judgment recorded",
		zap.String("event_id", j.EventID),
		zap.String("action", j.Action))
	return j.EventID, nil
}

func validate(req Request) error {
	switch req.Action {
	case domain.ActionClick, domain.ActionShortlist, domain.ActionDismiss:
	default:
		return fmt.Errorf("%w: unknown action %q", domain.ErrInvalidQuery, req.Action)
	}
	if strings.TrimSpace(req.CandidateID) == "" {
		return fmt.Errorf("%w: candidate id required", domain.ErrInvalidQuery)
	}
	if req.Position < 0 {
		return fmt.Errorf("%w: position must not be negative", domain.ErrInvalidQuery)
	}
	return nil
}
