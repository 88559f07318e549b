// Package callrecord keeps one row of metadata per finished call. Message
// text is never stored.
package callrecord

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Avicted/aicall/internal/call"
)

type ID string

var ErrInvalidInput = errors.New("invalid input")

type Record struct {
	ID         ID
	CallID     string
	UserID     string
	CallType   string
	StartedAt  time.Time
	EndedAt    time.Time
	EndReason  string
	Utterances int
	Messages   int
}

func (r Record) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

func (r Record) Validate() error {
	if r.ID == "" || strings.TrimSpace(r.CallID) == "" || strings.TrimSpace(r.UserID) == "" {
		return ErrInvalidInput
	}
	if r.StartedAt.IsZero() || r.EndedAt.IsZero() || r.Utterances < 0 || r.Messages < 0 {
		return ErrInvalidInput
	}
	return nil
}

type Repository interface {
	Save(ctx context.Context, r Record) error
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

type Service struct {
	repo  Repository
	idGen func() ID
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		idGen: func() ID {
			return ID(uuid.NewString())
		},
	}
}

// Record stores the summary of an ended call.
func (s *Service) Record(ctx context.Context, sum call.Summary) (Record, error) {
	if s.repo == nil {
		return Record{}, errors.New("repository is required")
	}
	r := Record{
		ID:         s.idGen(),
		CallID:     sum.CallID,
		UserID:     sum.UserID,
		CallType:   string(sum.CallType),
		StartedAt:  sum.StartedAt.UTC(),
		EndedAt:    sum.EndedAt.UTC(),
		EndReason:  sum.Reason,
		Utterances: sum.Utterances,
		Messages:   sum.Messages,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	if err := s.repo.Save(ctx, r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s.repo == nil {
		return nil, errors.New("repository is required")
	}
	return s.repo.ListRecent(ctx, clampLimit(limit))
}

func (s *Service) ForUser(ctx context.Context, userID string, limit int) ([]Record, error) {
	if s.repo == nil {
		return nil, errors.New("repository is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByUser(ctx, userID, clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
