package session

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/learning-journal/internal/model"
	"github.com/iliyamo/learning-journal/internal/repository"
)

// SQLStore keeps sessions in the relational 'sessions' table.
type SQLStore struct {
	repo *repository.SessionRepo
}

// NewSQLStore wraps a session repository.
func NewSQLStore(repo *repository.SessionRepo) *SQLStore {
	return &SQLStore{repo: repo}
}

func (s *SQLStore) Create(ctx context.Context, rec model.Session) error {
	return s.repo.Create(ctx, rec)
}

func (s *SQLStore) Get(ctx context.Context, idHash string) (model.Session, error) {
	rec, err := s.repo.Get(ctx, idHash)
	return rec, mapNotFound(err)
}

func (s *SQLStore) Touch(ctx context.Context, idHash string, lastSeen, expiresAt time.Time) error {
	return mapNotFound(s.repo.Touch(ctx, idHash, lastSeen, expiresAt))
}

func (s *SQLStore) Delete(ctx context.Context, idHash string) error {
	return s.repo.Delete(ctx, idHash)
}

// Sweep deletes sessions that expired before now.
func (s *SQLStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	return s.repo.DeleteExpired(ctx, now)
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
