package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"gorm.io/gorm"
)

const notificationBatchSize = 500

type NotificationRepo interface {
	// CreateBatch inserts all rows or none.
	CreateBatch(ctx context.Context, items []model.Notification) error
	ListWithCursor(ctx context.Context, userID, workspaceID uuid.UUID, afterTimestamp time.Time, afterID uuid.UUID, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, workspaceID, id uuid.UUID) (*model.Notification, error)
	Delete(ctx context.Context, userID, workspaceID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID, workspaceID uuid.UUID) (int64, error)
}

type notificationRepo struct{ db *gorm.DB }

func NewNotificationRepo(db *gorm.DB) NotificationRepo {
	return &notificationRepo{db: db}
}

// roomsOf is the subquery of room ids owned by a workspace.
func (r *notificationRepo) roomsOf(workspaceID uuid.UUID) *gorm.DB {
	return r.db.Model(&model.Room{}).Select("id").Where("workspace_id = ?", workspaceID)
}

func (r *notificationRepo) CreateBatch(ctx context.Context, items []model.Notification) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Room", "Agent").CreateInBatches(&items, notificationBatchSize).Error
	})
}

func (r *notificationRepo) ListWithCursor(ctx context.Context, userID, workspaceID uuid.UUID, afterTimestamp time.Time, afterID uuid.UUID, limit int) ([]model.Notification, error) {
	q := r.db.WithContext(ctx).
		Preload("Room").
		Preload("Agent").
		Where("user_id = ? AND room_id IN (?)", userID, r.roomsOf(workspaceID))

	// (created_at, id) < (afterTimestamp, afterID), newest first
	if !afterTimestamp.IsZero() && afterID != uuid.Nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", afterTimestamp, afterTimestamp, afterID)
	}

	var items []model.Notification
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, err
	}
	for i := range items {
		items[i].AttachRelations()
	}
	return items, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID, workspaceID, id uuid.UUID) (*model.Notification, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND room_id IN (?)", id, userID, r.roomsOf(workspaceID)).
		Update("is_read", true)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	var n model.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) Delete(ctx context.Context, userID, workspaceID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND room_id IN (?)", id, userID, r.roomsOf(workspaceID)).
		Delete(&model.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID, workspaceID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ? AND room_id IN (?)", userID, false, r.roomsOf(workspaceID)).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
