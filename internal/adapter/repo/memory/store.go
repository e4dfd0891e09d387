// Package memory backs the repository ports with maps, for development and
// tests without a database.
package memory

import (
	"sync"

	"questweaver/internal/app/ports"
	"questweaver/internal/domain/rpg"
)

type Store struct {
	mu         sync.RWMutex
	characters map[string]*rpg.Character
	worlds     map[string]*rpg.WorldState
	guilds     map[string]ports.GuildConfig
	events     map[string][]rpg.GameEvent
}

func NewStore() *Store {
	return &Store{
		characters: make(map[string]*rpg.Character),
		worlds:     make(map[string]*rpg.WorldState),
		guilds:     make(map[string]ports.GuildConfig),
		events:     make(map[string][]rpg.GameEvent),
	}
}

func charKey(ownerID, name string) string {
	return ownerID + "::" + name
}
