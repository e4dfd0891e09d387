package gormrepo

import (
	"context"
	"encoding/json"
	"errors"

	"questweaver/internal/app/ports"
	"questweaver/internal/domain/rpg"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorldStateRepo reads and writes the whole shared world document.
// Last writer wins between sessions.
type WorldStateRepo struct {
	db *gorm.DB
}

func NewWorldStateRepo(db *gorm.DB) WorldStateRepo {
	return WorldStateRepo{db: db}
}

func (r WorldStateRepo) Get(ctx context.Context, worldName string) (*rpg.WorldState, error) {
	var row worldStateRow
	err := getDBFromCtx(ctx, r.db).Where("world_name = ?", worldName).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	var state rpg.WorldState
	if err := json.Unmarshal(row.Doc, &state); err != nil {
		return nil, err
	}
	state.Normalize()
	return &state, nil
}

func (r WorldStateRepo) Save(ctx context.Context, worldName string, state *rpg.WorldState) error {
	doc, err := json.Marshal(state)
	if err != nil {
		return err
	}
	row := worldStateRow{WorldName: worldName, Doc: doc}
	return getDBFromCtx(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "world_name"}},
			DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
		}).
		Create(&row).Error
}
