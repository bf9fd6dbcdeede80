package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"gorm.io/gorm"
)

type AgentRepo interface {
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Agent, error)
	Create(ctx context.Context, a *model.Agent) error
	Get(ctx context.Context, agentID uuid.UUID) (*model.Agent, error)
	GetInWorkspace(ctx context.Context, workspaceID, agentID uuid.UUID) (*model.Agent, error)
	// UpdateStatus sets status and active room. Last writer wins.
	UpdateStatus(ctx context.Context, agentID uuid.UUID, status string, activeRoomID *uuid.UUID) error
}

type agentRepo struct{ db *gorm.DB }

func NewAgentRepo(db *gorm.DB) AgentRepo {
	return &agentRepo{db: db}
}

func (r *agentRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Agent, error) {
	var items []model.Agent
	return items, r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
}

func (r *agentRepo) Create(ctx context.Context, a *model.Agent) error {
	return r.db.WithContext(ctx).Omit("Links", "Workspace").Create(a).Error
}

func (r *agentRepo) Get(ctx context.Context, agentID uuid.UUID) (*model.Agent, error) {
	var a model.Agent
	if err := r.db.WithContext(ctx).Where("id = ?", agentID).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *agentRepo) GetInWorkspace(ctx context.Context, workspaceID, agentID uuid.UUID) (*model.Agent, error) {
	var a model.Agent
	err := r.db.WithContext(ctx).
		Where("id = ? AND workspace_id = ?", agentID, workspaceID).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *agentRepo) UpdateStatus(ctx context.Context, agentID uuid.UUID, status string, activeRoomID *uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&model.Agent{}).
		Where("id = ?", agentID).
		Updates(map[string]any{"status": status, "active_room_id": activeRoomID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
