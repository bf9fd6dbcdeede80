package service

import (
	"context"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/repo"
	"github.com/oz-workspace/api/internal/pkg/apperr"
	"github.com/oz-workspace/api/internal/pkg/types"
	"go.uber.org/zap"
)

// CallbackService applies results the agent runner reports after a run.
// Deliveries are at-least-once; artifact ingestion is idempotent.
type CallbackService interface {
	Handle(ctx context.Context, msg types.CallbackMessage) (*CallbackResult, error)
	// HandleDelivery decodes and handles a queued callback body.
	HandleDelivery(ctx context.Context, body []byte) error
}

type CallbackResult struct {
	Artifacts     int `json:"artifacts"`
	Notifications int `json:"notifications"`
}

type callbackService struct {
	rooms     repo.RoomRepo
	agents    repo.AgentRepo
	artifacts ArtifactService
	notifier  NotificationService
	log       *zap.Logger
}

func NewCallbackService(rooms repo.RoomRepo, agents repo.AgentRepo, artifacts ArtifactService, notifier NotificationService, log *zap.Logger) CallbackService {
	return &callbackService{rooms: rooms, agents: agents, artifacts: artifacts, notifier: notifier, log: log}
}

func (s *callbackService) Handle(ctx context.Context, msg types.CallbackMessage) (*CallbackResult, error) {
	if msg.RoomID == uuid.Nil || msg.AgentID == uuid.Nil {
		return nil, apperr.BadRequest("roomId and agentId are required")
	}
	room, err := s.rooms.Get(ctx, msg.RoomID)
	if err != nil {
		return nil, notFoundOr(err, "Room not found")
	}
	if room.WorkspaceID == nil {
		return nil, apperr.NotFound("Room is not linked to a workspace")
	}
	workspaceID := *room.WorkspaceID
	if _, err := s.agents.GetInWorkspace(ctx, workspaceID, msg.AgentID); err != nil {
		return nil, notFoundOr(err, "Agent not found")
	}

	res := &CallbackResult{}
	if len(msg.Artifacts) > 0 {
		res.Artifacts = s.artifacts.Ingest(ctx, msg.Artifacts, IngestContext{
			WorkspaceID: workspaceID,
			RoomID:      msg.RoomID,
			AgentID:     msg.AgentID,
			UserID:      msg.UserID,
		})
	}
	for _, ev := range msg.Events {
		if ev.Kind != types.AgentEventNotification || strings.TrimSpace(ev.Message) == "" {
			continue
		}
		n, err := s.notifier.Notify(ctx, NotifyInput{RoomID: msg.RoomID, AgentID: msg.AgentID, Message: ev.Message})
		if err != nil {
			s.log.Sugar().Errorw("callback notification failed", "room_id", msg.RoomID, "agent_id", msg.AgentID, "err", err)
			continue
		}
		res.Notifications += n
	}

	s.log.Sugar().Infow("agent callback handled", "room_id", msg.RoomID, "agent_id", msg.AgentID,
		"artifacts", res.Artifacts, "notifications", res.Notifications)
	return res, nil
}

func (s *callbackService) HandleDelivery(ctx context.Context, body []byte) error {
	var msg types.CallbackMessage
	if err := sonic.Unmarshal(body, &msg); err != nil {
		return apperr.BadRequest("invalid callback payload")
	}
	_, err := s.Handle(ctx, msg)
	return err
}
