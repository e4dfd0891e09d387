package gormrepo

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates the document tables.
func Migrate(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).AutoMigrate(
		&characterRow{},
		&worldStateRow{},
		&guildConfigRow{},
		&gameEventRow{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
