// Package service implements the journal's operations.  Every operation
// takes the acting Principal explicitly and enforces ownership by passing
// the principal's user id down to owner-scoped repository calls.
package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/learning-journal/internal/logger"
	"github.com/iliyamo/learning-journal/internal/metrics"
	"github.com/iliyamo/learning-journal/internal/queue"
	"github.com/iliyamo/learning-journal/internal/repository"
	"github.com/iliyamo/learning-journal/internal/session"
)

// Options tunes account behaviour.
type Options struct {
	BcryptCost             int
	AutoLoginOnRegister    bool
	RequirePasswordClasses bool
}

// DefaultOptions matches the configuration defaults.
func DefaultOptions() Options {
	return Options{
		BcryptCost:             bcrypt.DefaultCost,
		AutoLoginOnRegister:    true,
		RequirePasswordClasses: true,
	}
}

// Service is safe for concurrent use.
type Service struct {
	store     *repository.Store
	sessions  *session.Manager
	publisher queue.Publisher
	opts      Options
	validate  *validator.Validate
	now       func() time.Time
}

// New wires a Service.  A nil publisher drops audit events.
func New(store *repository.Store, sessions *session.Manager, publisher queue.Publisher, opts Options) *Service {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		store:     store,
		sessions:  sessions,
		publisher: publisher,
		opts:      opts,
		validate:  newValidator(),
		now:       time.Now,
	}
}

func requireUser(p session.Principal) error {
	if !p.Authenticated() {
		return errUnauthenticated
	}
	return nil
}

// audit publishes ev.  A failed publish is logged and never fails the
// operation that produced it.
func (s *Service) audit(ctx context.Context, typ string, userID, resourceID uint64) {
	ev := queue.AuditEvent{
		Type:       typ,
		UserID:     userID,
		ResourceID: resourceID,
		RequestID:  queue.RequestIDFrom(ctx),
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		metrics.AuditPublishFailed()
		logger.Warn("failed to publish audit event", "type", typ, "user_id", userID, "err", err)
	}
}

// logStorage records the cause of a storage failure, whose user-facing
// message hides it.
func logStorage(op string, err error) {
	if KindOf(err) == KindStorage {
		logger.Error("storage failure", "op", op, "err", err)
	}
}
