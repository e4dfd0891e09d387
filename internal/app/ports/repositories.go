package ports

import (
	"context"

	"questweaver/internal/domain/rpg"
)

type CharacterRepository interface {
	Save(ctx context.Context, ch *rpg.Character) error
	GetByOwnerAndName(ctx context.Context, ownerID, name string) (*rpg.Character, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*rpg.Character, error)
	Delete(ctx context.Context, ownerID, name string) error
}

type WorldStateRepository interface {
	Get(ctx context.Context, worldName string) (*rpg.WorldState, error)
	Save(ctx context.Context, worldName string, state *rpg.WorldState) error
}

// GuildConfig holds per-guild overrides set by server admins.
type GuildConfig struct {
	GuildID      string `json:"guild_id"`
	ModelName    string `json:"model,omitempty"`
	WorldName    string `json:"world,omitempty"`
	LogChannelID string `json:"log_channel_id,omitempty"`
}

type GuildConfigRepository interface {
	Get(ctx context.Context, guildID string) (GuildConfig, error)
	Save(ctx context.Context, cfg GuildConfig) error
}

type EventRepository interface {
	Append(ctx context.Context, userID string, events []rpg.GameEvent) error
	ListByUserID(ctx context.Context, userID string, limit int) ([]rpg.GameEvent, error)
}
