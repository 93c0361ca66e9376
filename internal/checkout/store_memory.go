package checkout

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps sagas in process. Used when no database is configured;
// state does not survive a restart.
type MemoryStore struct {
	mu     sync.Mutex
	sagas  map[string]*Saga
	outbox []OutboxEvent
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sagas: make(map[string]*Saga)}
}

func (m *MemoryStore) Create(_ context.Context, s *Saga) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.sagas {
		if existing.ReservationID == s.ReservationID && existing.State.Active() {
			return ErrInProgress
		}
	}
	m.sagas[s.ID] = s.clone()
	return nil
}

func (m *MemoryStore) Save(_ context.Context, s *Saga, events ...OutboxEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sagas[s.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != s.Version {
		return ErrClaimed
	}
	s.Version++
	m.sagas[s.ID] = s.clone()
	m.outbox = append(m.outbox, events...)
	return nil
}

func (m *MemoryStore) Claim(_ context.Context, s *Saga, owner string, until, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sagas[s.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != s.Version {
		return ErrClaimed
	}
	if stored.ClaimedBy != "" && stored.ClaimedBy != owner && stored.ClaimedUntil.After(now) {
		return ErrClaimed
	}
	s.ClaimedBy = owner
	s.ClaimedUntil = until
	s.Version++
	m.sagas[s.ID] = s.clone()
	return nil
}

func (m *MemoryStore) Latest(_ context.Context, reservationID int) (*Saga, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *Saga
	for _, s := range m.sagas {
		if s.ReservationID != reservationID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest.clone(), nil
}

func (m *MemoryStore) Resumable(_ context.Context, limit int) ([]*Saga, error) {
	return m.filter(limit, func(s *Saga) bool { return s.Resumable() }), nil
}

func (m *MemoryStore) Stale(_ context.Context, before time.Time, limit int) ([]*Saga, error) {
	return m.filter(limit, func(s *Saga) bool {
		return s.State == StateStarted && s.UpdatedAt.Before(before)
	}), nil
}

func (m *MemoryStore) filter(limit int, keep func(*Saga) bool) []*Saga {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Saga
	for _, s := range m.sagas {
		if keep(s) {
			out = append(out, s.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *MemoryStore) Unpublished(_ context.Context, limit int) ([]OutboxEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []OutboxEvent
	for _, e := range m.outbox {
		if e.PublishedAt == nil {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) MarkPublished(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.outbox {
		if m.outbox[i].ID == id {
			t := at
			m.outbox[i].PublishedAt = &t
			return nil
		}
	}
	return ErrNotFound
}
