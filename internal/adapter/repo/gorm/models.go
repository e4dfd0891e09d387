package gormrepo

import (
	"time"
)

// characterRow stores a character as one JSON document keyed by owner and
// name, mirroring the file-per-character layout the game began with.
type characterRow struct {
	ID        uint   `gorm:"primaryKey"`
	OwnerID   string `gorm:"index:idx_owner_name,unique;size:64"`
	Name      string `gorm:"index:idx_owner_name,unique;size:64"`
	Doc       []byte `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (characterRow) TableName() string { return "characters" }

// worldStateRow is the single shared document per world.
type worldStateRow struct {
	WorldName string `gorm:"primaryKey;size:64"`
	Doc       []byte `gorm:"type:jsonb"`
	UpdatedAt time.Time
}

func (worldStateRow) TableName() string { return "world_states" }

type guildConfigRow struct {
	GuildID      string `gorm:"primaryKey;size:64"`
	ModelName    string
	WorldName    string
	LogChannelID string
	UpdatedAt    time.Time
}

func (guildConfigRow) TableName() string { return "guild_configs" }

type gameEventRow struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     string    `gorm:"index;size:64"`
	Type       string    `gorm:"size:32"`
	OccurredAt time.Time `gorm:"index"`
	Payload    []byte    `gorm:"type:jsonb"`
}

func (gameEventRow) TableName() string { return "game_events" }
