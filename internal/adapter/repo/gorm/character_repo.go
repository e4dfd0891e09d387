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

type CharacterRepo struct {
	db *gorm.DB
}

func NewCharacterRepo(db *gorm.DB) CharacterRepo {
	return CharacterRepo{db: db}
}

func (r CharacterRepo) Save(ctx context.Context, ch *rpg.Character) error {
	doc, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	row := characterRow{OwnerID: ch.OwnerID, Name: ch.Name, Doc: doc}
	return getDBFromCtx(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
		}).
		Create(&row).Error
}

func (r CharacterRepo) GetByOwnerAndName(ctx context.Context, ownerID, name string) (*rpg.Character, error) {
	var row characterRow
	err := getDBFromCtx(ctx, r.db).Where("owner_id = ? AND name = ?", ownerID, name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ports.ErrNotFound
		}
		return nil, err
	}
	var ch rpg.Character
	if err := json.Unmarshal(row.Doc, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r CharacterRepo) ListByOwner(ctx context.Context, ownerID string) ([]*rpg.Character, error) {
	var rows []characterRow
	if err := getDBFromCtx(ctx, r.db).Where("owner_id = ?", ownerID).Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*rpg.Character, 0, len(rows))
	for _, row := range rows {
		var ch rpg.Character
		if err := json.Unmarshal(row.Doc, &ch); err != nil {
			return nil, err
		}
		out = append(out, &ch)
	}
	return out, nil
}

func (r CharacterRepo) Delete(ctx context.Context, ownerID, name string) error {
	res := getDBFromCtx(ctx, r.db).Where("owner_id = ? AND name = ?", ownerID, name).Delete(&characterRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ports.ErrNotFound
	}
	return nil
}
