package checkout

import (
	"context"
	"time"
)

// OutboxEvent is an event written in the same store operation as the saga
// change that caused it. The relay publishes it later.
type OutboxEvent struct {
	ID          string
	SagaID      string
	RoutingKey  string
	Body        []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

type Store interface {
	// Create inserts a new saga. It fails with ErrInProgress when the
	// reservation already has an active saga.
	Create(ctx context.Context, s *Saga) error
	// Save persists the saga and enqueues events atomically. It fails with
	// ErrClaimed when the stored version is not s.Version; on success
	// s.Version is advanced.
	Save(ctx context.Context, s *Saga, events ...OutboxEvent) error
	// Claim hands the saga to owner until the given time. It fails with
	// ErrClaimed while another owner's claim is unexpired at now, or when
	// s is a stale copy.
	Claim(ctx context.Context, s *Saga, owner string, until, now time.Time) error
	// Latest returns the most recent saga for the reservation or ErrNotFound.
	Latest(ctx context.Context, reservationID int) (*Saga, error)
	// Resumable lists sagas that still have post-transfer work, oldest first.
	Resumable(ctx context.Context, limit int) ([]*Saga, error)
	// Stale lists sagas stuck in started since before the cutoff.
	Stale(ctx context.Context, before time.Time, limit int) ([]*Saga, error)
	Unpublished(ctx context.Context, limit int) ([]OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
}
