package memory

import (
	"context"

	"questweaver/internal/app/ports"
)

type GuildConfigRepo struct {
	store *Store
}

func NewGuildConfigRepo(store *Store) GuildConfigRepo {
	return GuildConfigRepo{store: store}
}

func (r GuildConfigRepo) Get(_ context.Context, guildID string) (ports.GuildConfig, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	cfg, ok := r.store.guilds[guildID]
	if !ok {
		return ports.GuildConfig{}, ports.ErrNotFound
	}
	return cfg, nil
}

func (r GuildConfigRepo) Save(_ context.Context, cfg ports.GuildConfig) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.guilds[cfg.GuildID] = cfg
	return nil
}
