package memory

import (
	"context"
	"encoding/json"

	"questweaver/internal/app/ports"
	"questweaver/internal/domain/rpg"
)

type WorldStateRepo struct {
	store *Store
}

func NewWorldStateRepo(store *Store) WorldStateRepo {
	return WorldStateRepo{store: store}
}

func (r WorldStateRepo) Get(_ context.Context, worldName string) (*rpg.WorldState, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	state, ok := r.store.worlds[worldName]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return copyWorldState(state)
}

func (r WorldStateRepo) Save(_ context.Context, worldName string, state *rpg.WorldState) error {
	cp, err := copyWorldState(state)
	if err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.worlds[worldName] = cp
	return nil
}

func copyWorldState(state *rpg.WorldState) (*rpg.WorldState, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	var cp rpg.WorldState
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, err
	}
	cp.Normalize()
	return &cp, nil
}
