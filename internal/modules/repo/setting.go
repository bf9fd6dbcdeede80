package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingRepo interface {
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Setting, error)
	Upsert(ctx context.Context, s *model.Setting) error
}

type settingRepo struct{ db *gorm.DB }

func NewSettingRepo(db *gorm.DB) SettingRepo {
	return &settingRepo{db: db}
}

func (r *settingRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Setting, error) {
	var items []model.Setting
	return items, r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("key ASC").
		Find(&items).Error
}

func (r *settingRepo) Upsert(ctx context.Context, s *model.Setting) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Workspace").Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(s).Error; err != nil {
			return err
		}
		// Reload so the caller sees the surviving row id.
		var saved model.Setting
		if err := tx.Where("workspace_id = ? AND key = ?", s.WorkspaceID, s.Key).First(&saved).Error; err != nil {
			return err
		}
		*s = saved
		return nil
	})
}
