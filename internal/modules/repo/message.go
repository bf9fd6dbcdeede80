package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"gorm.io/gorm"
)

type MessageRepo interface {
	Create(ctx context.Context, m *model.Message) error
	// ListRecent returns up to limit latest messages of a room, oldest first.
	ListRecent(ctx context.Context, roomID uuid.UUID, limit int) ([]model.Message, error)
}

type messageRepo struct{ db *gorm.DB }

func NewMessageRepo(db *gorm.DB) MessageRepo {
	return &messageRepo{db: db}
}

func (r *messageRepo) Create(ctx context.Context, m *model.Message) error {
	return r.db.WithContext(ctx).Omit("Room", "Agent").Create(m).Error
}

func (r *messageRepo) ListRecent(ctx context.Context, roomID uuid.UUID, limit int) ([]model.Message, error) {
	var items []model.Message
	if err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}
