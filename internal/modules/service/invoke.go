package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/infra/broadcast"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/modules/repo"
	"github.com/oz-workspace/api/internal/pkg/apperr"
	"github.com/oz-workspace/api/internal/pkg/editor"
	"github.com/oz-workspace/api/internal/pkg/types"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// InvocationService runs one agent turn in a room. It accepts top-level
// invocations only; the dispatched attribution always carries depth 0.
type InvocationService interface {
	Invoke(ctx context.Context, in InvokeInput) (*model.Message, error)
}

type InvokeInput struct {
	RoomID      uuid.UUID
	AgentID     uuid.UUID
	Prompt      string
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
}

type InvocationOptions struct {
	Timeout         time.Duration
	HistoryLimit    int
	HistoryMaxChars int
}

type invocationService struct {
	rooms     repo.RoomRepo
	agents    repo.AgentRepo
	messages  repo.MessageRepo
	runner    AgentRunner
	artifacts ArtifactService
	notifier  NotificationService
	pub       broadcast.Publisher
	log       *zap.Logger
	opts      InvocationOptions
}

func NewInvocationService(
	rooms repo.RoomRepo,
	agents repo.AgentRepo,
	messages repo.MessageRepo,
	runner AgentRunner,
	artifacts ArtifactService,
	notifier NotificationService,
	pub broadcast.Publisher,
	log *zap.Logger,
	opts InvocationOptions,
) InvocationService {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	return &invocationService{
		rooms:     rooms,
		agents:    agents,
		messages:  messages,
		runner:    runner,
		artifacts: artifacts,
		notifier:  notifier,
		pub:       pub,
		log:       log,
		opts:      opts,
	}
}

func (s *invocationService) Invoke(ctx context.Context, in InvokeInput) (*model.Message, error) {
	if in.RoomID == uuid.Nil || in.AgentID == uuid.Nil || strings.TrimSpace(in.Prompt) == "" {
		return nil, apperr.BadRequest("roomId, agentId, and prompt are required")
	}

	room, err := s.rooms.GetInWorkspace(ctx, in.WorkspaceID, in.RoomID)
	if err != nil {
		return nil, notFoundOr(err, "Room not found")
	}
	linked, err := s.rooms.HasAgent(ctx, room.ID, in.AgentID)
	if err != nil {
		return nil, apperr.Infra(err)
	}
	if !linked {
		return nil, apperr.NotFound("Agent not found in room")
	}
	agent, err := s.agents.Get(ctx, in.AgentID)
	if err != nil {
		return nil, notFoundOr(err, "Agent not found in room")
	}

	history, err := s.history(ctx, room.ID)
	if err != nil {
		return nil, apperr.Infra(err)
	}

	userID := in.UserID
	prompt := &model.Message{
		RoomID:  room.ID,
		Role:    model.MessageRoleUser,
		UserID:  &userID,
		Content: in.Prompt,
		Meta:    datatypes.NewJSONType(map[string]any{"mentions": []string{agent.ID.String()}}),
	}
	if err := s.messages.Create(ctx, prompt); err != nil {
		return nil, apperr.Infra(err)
	}
	s.publishRoom(in.WorkspaceID, room.ID, map[string]any{"action": "message", "message": prompt})

	// once dispatched the run completes and is recorded even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	roomID := room.ID
	s.setStatus(ctx, in.WorkspaceID, room.ID, agent, model.AgentStatusRunning, &roomID)

	s.log.Sugar().Infow("dispatch agent", "room_id", room.ID, "agent_id", agent.ID, "prompt_len", len(in.Prompt), "history", len(history))
	started := time.Now()
	res, err := s.dispatch(ctx, types.RunRequest{
		Agent:   agentConfig(agent),
		Prompt:  in.Prompt,
		History: history,
		Attribution: types.Attribution{
			UserID:      in.UserID,
			WorkspaceID: in.WorkspaceID,
			RoomID:      room.ID,
			Depth:       0,
		},
	})

	s.setStatus(ctx, in.WorkspaceID, room.ID, agent, model.AgentStatusIdle, nil)

	if err != nil {
		s.log.Sugar().Errorw("agent dispatch failed", "room_id", room.ID, "agent_id", agent.ID, "elapsed", time.Since(started), "err", err)
		return nil, err
	}
	if !res.Success && res.Message == "" {
		msg := res.Error
		if msg == "" {
			msg = "agent invocation failed"
		}
		s.log.Sugar().Warnw("agent run failed", "room_id", room.ID, "agent_id", agent.ID, "status", res.ErrorStatus, "error", res.Error)
		return nil, apperr.Capability(msg, res.ErrorStatus)
	}
	if !res.Success {
		s.log.Sugar().Warnw("agent run failed with partial message", "room_id", room.ID, "agent_id", agent.ID, "error", res.Error)
	}

	agentID := agent.ID
	reply := &model.Message{
		RoomID:  room.ID,
		Role:    model.MessageRoleAgent,
		AgentID: &agentID,
		Content: res.Message,
		Meta:    datatypes.NewJSONType(map[string]any{"success": res.Success}),
	}
	if err := s.messages.Create(ctx, reply); err != nil {
		// the caller still gets the reply
		s.log.Sugar().Errorw("persist agent reply failed", "room_id", room.ID, "agent_id", agent.ID, "err", err)
		reply.CreatedAt = time.Now()
	} else {
		s.publishRoom(in.WorkspaceID, room.ID, map[string]any{"action": "message", "message": reply})
	}

	s.routeSideEffects(ctx, in, res)
	s.log.Sugar().Infow("agent run finished", "room_id", room.ID, "agent_id", agent.ID, "success", res.Success,
		"artifacts", len(res.Artifacts), "events", len(res.Events), "elapsed", time.Since(started))
	return reply, nil
}

// dispatch calls the capability under the invocation timeout and maps
// transport outcomes onto capability failures. Callers pass a context
// detached from the request.
func (s *invocationService) dispatch(ctx context.Context, req types.RunRequest) (*types.RunResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	res, err := s.runner.Run(runCtx, req)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || (err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded)):
		return nil, apperr.Capability("agent invocation timed out", http.StatusGatewayTimeout)
	case err != nil:
		return nil, &apperr.Error{Kind: apperr.KindCapability, Msg: "agent capability unavailable", Status: http.StatusBadGateway, Err: err}
	case res == nil:
		return nil, apperr.Capability("agent capability returned no result", http.StatusBadGateway)
	}
	return res, nil
}

func (s *invocationService) history(ctx context.Context, roomID uuid.UUID) ([]types.HistoryMessage, error) {
	if s.opts.HistoryLimit <= 0 {
		return nil, nil
	}
	msgs, err := s.messages.ListRecent(ctx, roomID, s.opts.HistoryLimit)
	if err != nil {
		return nil, err
	}
	trim := &editor.TrimHistoryStrategy{KeepRecentN: s.opts.HistoryLimit, MaxChars: s.opts.HistoryMaxChars}
	msgs, err = trim.Apply(msgs)
	if err != nil {
		return nil, err
	}

	out := make([]types.HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		h := types.HistoryMessage{Role: m.Role, Content: m.Content}
		if m.AgentID != nil {
			h.Author = m.AgentID.String()
		} else if m.UserID != nil {
			h.Author = m.UserID.String()
		}
		out = append(out, h)
	}
	return out, nil
}

// routeSideEffects hands artifacts and notification events to their pipelines.
// Failures are logged only.
func (s *invocationService) routeSideEffects(ctx context.Context, in InvokeInput, res *types.RunResult) {
	if len(res.Artifacts) > 0 {
		userID := in.UserID
		s.artifacts.Ingest(ctx, res.Artifacts, IngestContext{
			WorkspaceID: in.WorkspaceID,
			RoomID:      in.RoomID,
			AgentID:     in.AgentID,
			UserID:      &userID,
		})
	}
	for _, ev := range res.Events {
		if ev.Kind != types.AgentEventNotification || strings.TrimSpace(ev.Message) == "" {
			continue
		}
		if _, err := s.notifier.Notify(ctx, NotifyInput{RoomID: in.RoomID, AgentID: in.AgentID, Message: ev.Message}); err != nil {
			s.log.Sugar().Errorw("notification fan-out failed", "room_id", in.RoomID, "agent_id", in.AgentID, "err", err)
		}
	}
}

// setStatus updates the advisory agent status and announces it to the room.
func (s *invocationService) setStatus(ctx context.Context, workspaceID, roomID uuid.UUID, agent *model.Agent, status string, activeRoomID *uuid.UUID) {
	if err := s.agents.UpdateStatus(ctx, agent.ID, status, activeRoomID); err != nil {
		s.log.Sugar().Warnw("update agent status failed", "agent_id", agent.ID, "status", status, "err", err)
		return
	}
	agent.Status = status
	agent.ActiveRoomID = activeRoomID
	s.publishRoom(workspaceID, roomID, map[string]any{"action": "agent_status", "agent": agent.Summary()})
}

func (s *invocationService) publishRoom(workspaceID, roomID uuid.UUID, data any) {
	s.pub.Broadcast(broadcast.Event{
		Type:        broadcast.EventRoom,
		RoomID:      roomID,
		WorkspaceID: workspaceID,
		Data:        data,
	})
}

func agentConfig(a *model.Agent) types.AgentConfig {
	return types.AgentConfig{
		ID:            a.ID,
		Name:          a.Name,
		SystemPrompt:  a.SystemPrompt,
		Harness:       a.Harness,
		RepoURL:       a.RepoURL,
		EnvironmentID: a.EnvironmentID,
		Skills:        a.Skills.Data(),
		MCPServers:    a.MCPServers.Data(),
		Scripts:       a.Scripts.Data(),
	}
}
