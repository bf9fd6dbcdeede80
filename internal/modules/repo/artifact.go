package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ArtifactRepo interface {
	// CreateIfAbsent inserts a unless an artifact with the same (room_id, dedupe_key) exists.
	// It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, a *model.Artifact) (bool, error)
	ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Artifact, error)
	GetWithAgent(ctx context.Context, id uuid.UUID) (*model.Artifact, error)
	GetByDedupeKey(ctx context.Context, roomID uuid.UUID, key string) (*model.Artifact, error)
}

type artifactRepo struct{ db *gorm.DB }

func NewArtifactRepo(db *gorm.DB) ArtifactRepo {
	return &artifactRepo{db: db}
}

func (r *artifactRepo) CreateIfAbsent(ctx context.Context, a *model.Artifact) (bool, error) {
	res := r.db.WithContext(ctx).
		Omit("Room", "Agent").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "dedupe_key"}},
			DoNothing: true,
		}).
		Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *artifactRepo) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Artifact, error) {
	var items []model.Artifact
	err := r.db.WithContext(ctx).
		Preload("Agent").
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].AttachAgent()
	}
	return items, nil
}

func (r *artifactRepo) GetWithAgent(ctx context.Context, id uuid.UUID) (*model.Artifact, error) {
	var a model.Artifact
	if err := r.db.WithContext(ctx).Preload("Agent").Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	a.AttachAgent()
	return &a, nil
}

func (r *artifactRepo) GetByDedupeKey(ctx context.Context, roomID uuid.UUID, key string) (*model.Artifact, error) {
	var a model.Artifact
	err := r.db.WithContext(ctx).
		Preload("Agent").
		Where("room_id = ? AND dedupe_key = ?", roomID, key).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	a.AttachAgent()
	return &a, nil
}
