package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/urbandrive/web-go/internal/middleware"
)

// Publisher delivers one outbox event body under its routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Relay resumes unfinished sagas and drains the outbox in the background.
type Relay struct {
	svc        *Service
	pub        Publisher
	interval   time.Duration
	batch      int
	staleAfter time.Duration
	log        logrus.FieldLogger
}

func NewRelay(svc *Service, pub Publisher, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Relay{
		svc:        svc,
		pub:        pub,
		interval:   interval,
		batch:      50,
		staleAfter: 2 * svc.opts.PaymentTimeout,
		log:        svc.opts.Logger.WithField("component", "checkout-relay"),
	}
}

// Run ticks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("stopping checkout relay")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick runs one pass and reports how many sagas it resumed and how many
// events it published.
func (r *Relay) Tick(ctx context.Context) (resumed, published int) {
	store := r.svc.store

	sagas, err := store.Resumable(ctx, r.batch)
	if err != nil {
		r.log.WithError(err).Error("list resumable sagas")
	}
	for _, saga := range sagas {
		// Events emitted on resume get a correlation id of their own.
		sctx := middleware.WithCorrelationID(ctx, uuid.NewString())
		if err := r.svc.Resume(sctx, saga); err != nil {
			if errors.Is(err, ErrClaimed) {
				r.log.WithField("saga_id", saga.ID).Debug("saga held by another runner")
				continue
			}
			r.log.WithField("saga_id", saga.ID).WithError(err).Error("resume saga")
			continue
		}
		resumed++
	}

	stale, err := store.Stale(ctx, r.svc.now().Add(-r.staleAfter), r.batch)
	if err != nil {
		r.log.WithError(err).Error("list stale sagas")
	}
	for _, saga := range stale {
		r.log.WithFields(logrus.Fields{
			"saga_id":        saga.ID,
			"reservation_id": saga.ReservationID,
			"created_at":     saga.CreatedAt,
		}).Warn("transfer outcome unknown, reconcile with bank")
	}

	evs, err := store.Unpublished(ctx, r.batch)
	if err != nil {
		r.log.WithError(err).Error("list outbox")
		return resumed, published
	}
	for _, ev := range evs {
		if err := r.pub.Publish(ctx, ev.RoutingKey, ev.Body); err != nil {
			// Broker is likely down; keep order and retry next tick.
			r.log.WithField("event_id", ev.ID).WithError(err).Error("publish outbox event")
			break
		}
		if err := store.MarkPublished(ctx, ev.ID, r.svc.now()); err != nil {
			r.log.WithField("event_id", ev.ID).WithError(err).Error("mark outbox event published")
			break
		}
		published++
	}
	return resumed, published
}
