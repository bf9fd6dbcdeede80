package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/infra/broadcast"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/modules/repo"
	"github.com/oz-workspace/api/internal/pkg/apperr"
	"github.com/oz-workspace/api/internal/pkg/paging"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

type NotificationService interface {
	// Notify creates one notification per member of the room's workspace.
	Notify(ctx context.Context, in NotifyInput) (int, error)
	List(ctx context.Context, in ListNotificationsInput) (*ListNotificationsOutput, error)
	MarkRead(ctx context.Context, userID, workspaceID, id uuid.UUID) (*model.Notification, error)
	Delete(ctx context.Context, userID, workspaceID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID, workspaceID uuid.UUID) (int64, error)
}

type notificationService struct {
	r          repo.NotificationRepo
	rooms      repo.RoomRepo
	agents     repo.AgentRepo
	workspaces repo.WorkspaceRepo
	pub        broadcast.Publisher
}

func NewNotificationService(r repo.NotificationRepo, rooms repo.RoomRepo, agents repo.AgentRepo, workspaces repo.WorkspaceRepo, pub broadcast.Publisher) NotificationService {
	return &notificationService{r: r, rooms: rooms, agents: agents, workspaces: workspaces, pub: pub}
}

type NotifyInput struct {
	RoomID  uuid.UUID
	AgentID uuid.UUID
	Message string
}

func (s *notificationService) Notify(ctx context.Context, in NotifyInput) (int, error) {
	if in.RoomID == uuid.Nil || in.AgentID == uuid.Nil || strings.TrimSpace(in.Message) == "" {
		return 0, apperr.BadRequest("roomId, agentId, and message are required")
	}

	room, err := s.rooms.Get(ctx, in.RoomID)
	if err != nil {
		return 0, notFoundOr(err, "Room not found")
	}
	if room.WorkspaceID == nil {
		return 0, apperr.NotFound("Room is not linked to a workspace")
	}
	workspaceID := *room.WorkspaceID

	// the agent must live in the room's workspace
	if _, err := s.agents.GetInWorkspace(ctx, workspaceID, in.AgentID); err != nil {
		return 0, notFoundOr(err, "Agent not found")
	}

	userIDs, err := s.workspaces.ListMemberUserIDs(ctx, workspaceID)
	if err != nil {
		return 0, apperr.Infra(err)
	}
	items := make([]model.Notification, len(userIDs))
	for i, uid := range userIDs {
		items[i] = model.Notification{
			UserID:  uid,
			RoomID:  in.RoomID,
			AgentID: in.AgentID,
			Message: in.Message,
		}
	}
	if err := s.r.CreateBatch(ctx, items); err != nil {
		return 0, apperr.Infra(err)
	}

	s.pub.Broadcast(broadcast.Event{
		Type:        broadcast.EventNotification,
		RoomID:      in.RoomID,
		WorkspaceID: workspaceID,
		Data:        map[string]any{"action": "created"},
	})
	return len(items), nil
}

type ListNotificationsInput struct {
	UserID      uuid.UUID `json:"user_id"`
	WorkspaceID uuid.UUID `json:"workspace_id"`
	Limit       int       `json:"limit"`
	Cursor      string    `json:"cursor"`
}

type ListNotificationsOutput struct {
	Items      []model.Notification `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
	HasMore    bool                 `json:"has_more"`
}

func (s *notificationService) List(ctx context.Context, in ListNotificationsInput) (*ListNotificationsOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	var (
		afterT  time.Time
		afterID uuid.UUID
	)
	if in.Cursor != "" {
		t, id, err := paging.DecodeCursor(in.Cursor)
		if err != nil {
			return nil, apperr.BadRequest("invalid cursor")
		}
		afterT, afterID = t, id
	}

	// limit+1 to detect has_more
	items, err := s.r.ListWithCursor(ctx, in.UserID, in.WorkspaceID, afterT, afterID, limit+1)
	if err != nil {
		return nil, apperr.Infra(err)
	}

	out := &ListNotificationsOutput{Items: items}
	if len(items) > limit {
		out.HasMore = true
		out.Items = items[:limit]
		last := out.Items[len(out.Items)-1]
		out.NextCursor = paging.EncodeCursor(last.Timestamp, last.ID)
	}
	return out, nil
}

func (s *notificationService) MarkRead(ctx context.Context, userID, workspaceID, id uuid.UUID) (*model.Notification, error) {
	n, err := s.r.MarkRead(ctx, userID, workspaceID, id)
	if err != nil {
		return nil, notFoundOr(err, "Not found")
	}
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, userID, workspaceID, id uuid.UUID) error {
	if err := s.r.Delete(ctx, userID, workspaceID, id); err != nil {
		return notFoundOr(err, "Not found")
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID, workspaceID uuid.UUID) (int64, error) {
	n, err := s.r.MarkAllRead(ctx, userID, workspaceID)
	if err != nil {
		return 0, apperr.Infra(err)
	}
	return n, nil
}
