// Package character is the character-sheet use case layer: creation with
// race bonuses and class skills applied, plus owner-scoped CRUD.
package character

import (
	"context"
	"fmt"
	"strings"

	"questweaver/internal/app/ports"
	"questweaver/internal/domain/rpg"
	"questweaver/internal/domain/worlddata"
)

type Service struct {
	Repo   ports.CharacterRepository
	Worlds ports.WorldProvider
}

// Create builds a new character, applying the race's stat bonuses and the
// class's level-one skills from the chosen world before saving.
func (s *Service) Create(ctx context.Context, worldName string, in rpg.CreationInput) (*rpg.Character, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.OwnerID == "" || in.Name == "" {
		return nil, fmt.Errorf("owner and name are required")
	}
	if existing, err := s.Repo.GetByOwnerAndName(ctx, in.OwnerID, in.Name); err == nil && existing != nil {
		return nil, fmt.Errorf("character %q: %w", in.Name, ports.ErrConflict)
	}

	w, haveWorld := s.world(worldName)
	ch := rpg.NewCharacter(in)
	if haveWorld {
		// Race bonuses land before play starts so derived HP/MP see them.
		if bonus := w.RaceBonus(in.Race); bonus != nil {
			ch.ApplyRaceBonus(bonus)
			ch.RederiveResources()
		}
		ch.CheckNewSkills(w.ClassSkills(in.Class))
	}
	if err := s.Repo.Save(ctx, ch); err != nil {
		return nil, fmt.Errorf("save character: %w", err)
	}
	return ch, nil
}

func (s *Service) Get(ctx context.Context, ownerID, name string) (*rpg.Character, error) {
	return s.Repo.GetByOwnerAndName(ctx, ownerID, name)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]*rpg.Character, error) {
	return s.Repo.ListByOwner(ctx, ownerID)
}

func (s *Service) Save(ctx context.Context, ch *rpg.Character) error {
	return s.Repo.Save(ctx, ch)
}

func (s *Service) Delete(ctx context.Context, ownerID, name string) error {
	return s.Repo.Delete(ctx, ownerID, name)
}

func (s *Service) world(name string) (worlddata.World, bool) {
	if s.Worlds == nil {
		return worlddata.World{}, false
	}
	if name != "" {
		if w, ok := s.Worlds.World(name); ok {
			return w, true
		}
	}
	return s.Worlds.Default()
}
