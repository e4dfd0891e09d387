package memory

import (
	"context"

	"questweaver/internal/app/ports"
	"questweaver/internal/domain/rpg"
)

type EventRepo struct {
	store *Store
}

func NewEventRepo(store *Store) EventRepo {
	return EventRepo{store: store}
}

func (r EventRepo) Append(_ context.Context, userID string, events []rpg.GameEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.events[userID] = append(r.store.events[userID], events...)
	return nil
}

// ListByUserID returns events newest first.
func (r EventRepo) ListByUserID(_ context.Context, userID string, limit int) ([]rpg.GameEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	stored, ok := r.store.events[userID]
	if !ok || len(stored) == 0 {
		return nil, ports.ErrNotFound
	}
	out := make([]rpg.GameEvent, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		out = append(out, stored[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
