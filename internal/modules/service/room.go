package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/infra/broadcast"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/modules/repo"
	"github.com/oz-workspace/api/internal/pkg/apperr"
)

type RoomService interface {
	List(ctx context.Context, workspaceID uuid.UUID) ([]model.Room, error)
	Get(ctx context.Context, workspaceID, roomID uuid.UUID) (*model.Room, error)
	Create(ctx context.Context, in CreateRoomInput) (*model.Room, error)
	SetPaused(ctx context.Context, workspaceID, roomID uuid.UUID, paused bool) (*model.Room, error)
}

type roomService struct {
	r   repo.RoomRepo
	pub broadcast.Publisher
}

func NewRoomService(r repo.RoomRepo, pub broadcast.Publisher) RoomService {
	return &roomService{r: r, pub: pub}
}

func (s *roomService) List(ctx context.Context, workspaceID uuid.UUID) ([]model.Room, error) {
	rooms, err := s.r.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, apperr.Infra(err)
	}
	return rooms, nil
}

func (s *roomService) Get(ctx context.Context, workspaceID, roomID uuid.UUID) (*model.Room, error) {
	room, err := s.r.GetInWorkspace(ctx, workspaceID, roomID)
	if err != nil {
		return nil, notFoundOr(err, "Room not found")
	}
	return room, nil
}

type CreateRoomInput struct {
	WorkspaceID uuid.UUID
	UserID      uuid.UUID
	Name        string
	Description string
	AgentIDs    []uuid.UUID
}

func (s *roomService) Create(ctx context.Context, in CreateRoomInput) (*model.Room, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.BadRequest("name is required")
	}

	// drop duplicates, keep order
	seen := make(map[uuid.UUID]struct{}, len(in.AgentIDs))
	agentIDs := make([]uuid.UUID, 0, len(in.AgentIDs))
	for _, id := range in.AgentIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		agentIDs = append(agentIDs, id)
	}

	wsID := in.WorkspaceID
	room := &model.Room{
		WorkspaceID: &wsID,
		UserID:      in.UserID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.r.CreateWithAgents(ctx, room, agentIDs); err != nil {
		if errors.Is(err, repo.ErrAgentNotInScope) {
			return nil, apperr.BadRequest("One or more agents are not in this workspace")
		}
		return nil, apperr.Infra(err)
	}

	created, err := s.r.GetInWorkspace(ctx, in.WorkspaceID, room.ID)
	if err != nil {
		return nil, apperr.Infra(err)
	}
	return created, nil
}

func (s *roomService) SetPaused(ctx context.Context, workspaceID, roomID uuid.UUID, paused bool) (*model.Room, error) {
	room, err := s.r.SetPaused(ctx, workspaceID, roomID, paused)
	if err != nil {
		return nil, notFoundOr(err, "Not found")
	}
	s.pub.Broadcast(broadcast.Event{
		Type:        broadcast.EventRoom,
		RoomID:      room.ID,
		WorkspaceID: workspaceID,
		Data:        room,
	})
	return room, nil
}
