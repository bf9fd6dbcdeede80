package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"gorm.io/gorm"
)

type RoomRepo interface {
	ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Room, error)
	Get(ctx context.Context, roomID uuid.UUID) (*model.Room, error)
	GetInWorkspace(ctx context.Context, workspaceID, roomID uuid.UUID) (*model.Room, error)
	// CreateWithAgents creates the room and links agentIDs, which must all belong to the room's workspace.
	CreateWithAgents(ctx context.Context, room *model.Room, agentIDs []uuid.UUID) error
	SetPaused(ctx context.Context, workspaceID, roomID uuid.UUID, paused bool) (*model.Room, error)
	HasAgent(ctx context.Context, roomID, agentID uuid.UUID) (bool, error)
}

type roomRepo struct{ db *gorm.DB }

func NewRoomRepo(db *gorm.DB) RoomRepo {
	return &roomRepo{db: db}
}

func withAgents(db *gorm.DB) *gorm.DB {
	return db.Preload("Links", func(db *gorm.DB) *gorm.DB {
		return db.Order("room_agents.created_at ASC, room_agents.id ASC")
	}).Preload("Links.Agent")
}

func (r *roomRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Room, error) {
	var rooms []model.Room
	err := withAgents(r.db.WithContext(ctx)).
		Where("workspace_id = ?", workspaceID).
		Order("created_at ASC, id ASC").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		rooms[i].FlattenAgents()
	}
	return rooms, nil
}

func (r *roomRepo) Get(ctx context.Context, roomID uuid.UUID) (*model.Room, error) {
	var room model.Room
	if err := r.db.WithContext(ctx).Where("id = ?", roomID).First(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) GetInWorkspace(ctx context.Context, workspaceID, roomID uuid.UUID) (*model.Room, error) {
	var room model.Room
	err := withAgents(r.db.WithContext(ctx)).
		Where("id = ? AND workspace_id = ?", roomID, workspaceID).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	room.FlattenAgents()
	return &room, nil
}

func (r *roomRepo) CreateWithAgents(ctx context.Context, room *model.Room, agentIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(agentIDs) > 0 {
			var n int64
			if err := tx.Model(&model.Agent{}).
				Where("id IN ? AND workspace_id = ?", agentIDs, room.WorkspaceID).
				Count(&n).Error; err != nil {
				return err
			}
			if int(n) != len(agentIDs) {
				return ErrAgentNotInScope
			}
		}

		if err := tx.Omit("Links", "Artifacts", "Notifications", "Messages", "Workspace").Create(room).Error; err != nil {
			return err
		}
		if len(agentIDs) == 0 {
			return nil
		}
		links := make([]model.RoomAgent, len(agentIDs))
		for i, id := range agentIDs {
			links[i] = model.RoomAgent{RoomID: room.ID, AgentID: id}
		}
		return tx.Create(&links).Error
	})
}

func (r *roomRepo) SetPaused(ctx context.Context, workspaceID, roomID uuid.UUID, paused bool) (*model.Room, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Room{}).
		Where("id = ? AND workspace_id = ?", roomID, workspaceID).
		Update("paused", paused)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetInWorkspace(ctx, workspaceID, roomID)
}

func (r *roomRepo) HasAgent(ctx context.Context, roomID, agentID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.RoomAgent{}).
		Where("room_id = ? AND agent_id = ?", roomID, agentID).
		Count(&n).Error
	return n > 0, err
}
