package memory

import (
	"context"
	"encoding/json"
	"sort"

	"questweaver/internal/app/ports"
	"questweaver/internal/domain/rpg"
)

type CharacterRepo struct {
	store *Store
}

func NewCharacterRepo(store *Store) CharacterRepo {
	return CharacterRepo{store: store}
}

// Save stores a deep copy so later in-memory mutation of the live character
// does not silently change the "persisted" document.
func (r CharacterRepo) Save(_ context.Context, ch *rpg.Character) error {
	cp, err := copyCharacter(ch)
	if err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.characters[charKey(ch.OwnerID, ch.Name)] = cp
	return nil
}

func (r CharacterRepo) GetByOwnerAndName(_ context.Context, ownerID, name string) (*rpg.Character, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	ch, ok := r.store.characters[charKey(ownerID, name)]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return copyCharacter(ch)
}

func (r CharacterRepo) ListByOwner(_ context.Context, ownerID string) ([]*rpg.Character, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*rpg.Character
	for _, ch := range r.store.characters {
		if ch.OwnerID != ownerID {
			continue
		}
		cp, err := copyCharacter(ch)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r CharacterRepo) Delete(_ context.Context, ownerID, name string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	key := charKey(ownerID, name)
	if _, ok := r.store.characters[key]; !ok {
		return ports.ErrNotFound
	}
	delete(r.store.characters, key)
	return nil
}

func copyCharacter(ch *rpg.Character) (*rpg.Character, error) {
	raw, err := json.Marshal(ch)
	if err != nil {
		return nil, err
	}
	var cp rpg.Character
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
