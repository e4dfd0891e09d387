package gormrepo

import (
	"context"
	"errors"

	"questweaver/internal/app/ports"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GuildConfigRepo struct {
	db *gorm.DB
}

func NewGuildConfigRepo(db *gorm.DB) GuildConfigRepo {
	return GuildConfigRepo{db: db}
}

func (r GuildConfigRepo) Get(ctx context.Context, guildID string) (ports.GuildConfig, error) {
	var row guildConfigRow
	err := getDBFromCtx(ctx, r.db).Where("guild_id = ?", guildID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.GuildConfig{}, ports.ErrNotFound
		}
		return ports.GuildConfig{}, err
	}
	return ports.GuildConfig{
		GuildID:      row.GuildID,
		ModelName:    row.ModelName,
		WorldName:    row.WorldName,
		LogChannelID: row.LogChannelID,
	}, nil
}

func (r GuildConfigRepo) Save(ctx context.Context, cfg ports.GuildConfig) error {
	row := guildConfigRow{
		GuildID:      cfg.GuildID,
		ModelName:    cfg.ModelName,
		WorldName:    cfg.WorldName,
		LogChannelID: cfg.LogChannelID,
	}
	return getDBFromCtx(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"model_name", "world_name", "log_channel_id", "updated_at"}),
		}).
		Create(&row).Error
}
