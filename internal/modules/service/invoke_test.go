package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/infra/broadcast"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/pkg/apperr"
	"github.com/oz-workspace/api/internal/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type invokeDeps struct {
	rooms     *MockRoomRepo
	agents    *MockAgentRepo
	messages  *MockMessageRepo
	runner    *MockAgentRunner
	artifacts *MockArtifactService
	notifier  *MockNotificationService
	pub       *eventRecorder

	workspaceID uuid.UUID
	userID      uuid.UUID
	room        *model.Room
	agent       *model.Agent
}

func newInvokeDeps() *invokeDeps {
	wsID := uuid.New()
	return &invokeDeps{
		rooms:       &MockRoomRepo{},
		agents:      &MockAgentRepo{},
		messages:    &MockMessageRepo{},
		runner:      &MockAgentRunner{},
		artifacts:   &MockArtifactService{},
		notifier:    &MockNotificationService{},
		pub:         &eventRecorder{},
		workspaceID: wsID,
		userID:      uuid.New(),
		room:        &model.Room{ID: uuid.New(), WorkspaceID: &wsID, Name: "general"},
		agent:       &model.Agent{ID: uuid.New(), WorkspaceID: wsID, Name: "builder", Status: model.AgentStatusIdle},
	}
}

func (d *invokeDeps) service(timeout time.Duration) InvocationService {
	return NewInvocationService(d.rooms, d.agents, d.messages, d.runner, d.artifacts, d.notifier, d.pub, testLog,
		InvocationOptions{Timeout: timeout, HistoryLimit: 20, HistoryMaxChars: 100})
}

func (d *invokeDeps) input() InvokeInput {
	return InvokeInput{
		RoomID:      d.room.ID,
		AgentID:     d.agent.ID,
		Prompt:      "status?",
		UserID:      d.userID,
		WorkspaceID: d.workspaceID,
	}
}

// linked stubs a room with the agent attached and the store calls around dispatch.
func (d *invokeDeps) linked() {
	d.rooms.On("GetInWorkspace", mock.Anything, d.workspaceID, d.room.ID).Return(d.room, nil)
	d.rooms.On("HasAgent", mock.Anything, d.room.ID, d.agent.ID).Return(true, nil)
	d.agents.On("Get", mock.Anything, d.agent.ID).Return(d.agent, nil)
	d.messages.On("ListRecent", mock.Anything, d.room.ID, 20).Return([]model.Message{
		{Role: model.MessageRoleUser, Content: "earlier question"},
	}, nil)
	d.messages.On("Create", mock.Anything, mock.AnythingOfType("*model.Message")).Return(nil)
	d.agents.On("UpdateStatus", mock.Anything, d.agent.ID, mock.Anything, mock.Anything).Return(nil)
}

func TestInvocationService_InvokeRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *invokeDeps, in *InvokeInput)
		setup  func(d *invokeDeps)
		status int
		msg    string
	}{
		{
			name:   "missing prompt",
			mutate: func(_ *invokeDeps, in *InvokeInput) { in.Prompt = "  " },
			setup:  func(*invokeDeps) {},
			status: http.StatusBadRequest,
			msg:    "roomId, agentId, and prompt are required",
		},
		{
			name:   "missing room",
			mutate: func(_ *invokeDeps, in *InvokeInput) { in.RoomID = uuid.Nil },
			setup:  func(*invokeDeps) {},
			status: http.StatusBadRequest,
			msg:    "roomId, agentId, and prompt are required",
		},
		{
			name:   "missing agent",
			mutate: func(_ *invokeDeps, in *InvokeInput) { in.AgentID = uuid.Nil },
			setup:  func(*invokeDeps) {},
			status: http.StatusBadRequest,
			msg:    "roomId, agentId, and prompt are required",
		},
		{
			name:   "room outside workspace",
			mutate: func(*invokeDeps, *InvokeInput) {},
			setup: func(d *invokeDeps) {
				d.rooms.On("GetInWorkspace", mock.Anything, d.workspaceID, d.room.ID).Return(nil, gorm.ErrRecordNotFound)
			},
			status: http.StatusNotFound,
			msg:    "Room not found",
		},
		{
			name:   "agent exists but is not linked",
			mutate: func(*invokeDeps, *InvokeInput) {},
			setup: func(d *invokeDeps) {
				d.rooms.On("GetInWorkspace", mock.Anything, d.workspaceID, d.room.ID).Return(d.room, nil)
				d.rooms.On("HasAgent", mock.Anything, d.room.ID, d.agent.ID).Return(false, nil)
			},
			status: http.StatusNotFound,
			msg:    "Agent not found in room",
		},
		{
			name:   "store failure while resolving room",
			mutate: func(*invokeDeps, *InvokeInput) {},
			setup: func(d *invokeDeps) {
				d.rooms.On("GetInWorkspace", mock.Anything, d.workspaceID, d.room.ID).Return(nil, errors.New("db down"))
			},
			status: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newInvokeDeps()
			tt.setup(d)
			in := d.input()
			tt.mutate(d, &in)

			msg, err := d.service(time.Second).Invoke(context.Background(), in)

			assert.Nil(t, msg)
			require.Error(t, err)
			assert.Equal(t, tt.status, apperr.StatusOf(err))
			if tt.msg != "" {
				e, _ := apperr.As(err)
				assert.Equal(t, tt.msg, e.Msg)
			}
			d.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
			d.messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			assert.Empty(t, d.pub.Events())
		})
	}
}

func TestInvocationService_InvokeSuccess(t *testing.T) {
	d := newInvokeDeps()
	d.linked()

	artifacts := []types.ArtifactItem{{ArtifactType: "PULL_REQUEST", Data: map[string]any{"branch": "fix/bug"}}}
	d.runner.On("Run", mock.Anything, mock.MatchedBy(func(req types.RunRequest) bool {
		return req.Prompt == "status?" &&
			req.Agent.ID == d.agent.ID &&
			req.Attribution.Depth == 0 &&
			req.Attribution.UserID == d.userID &&
			req.Attribution.WorkspaceID == d.workspaceID &&
			len(req.History) == 1 && req.History[0].Content == "earlier question"
	})).Return(&types.RunResult{
		Success:   true,
		Message:   "all green",
		Artifacts: artifacts,
		Events: []types.AgentEvent{
			{Kind: types.AgentEventNotification, Message: "done"},
			{Kind: "progress", Message: "ignored"},
		},
	}, nil)
	d.artifacts.On("Ingest", mock.Anything, artifacts, mock.MatchedBy(func(in IngestContext) bool {
		return in.RoomID == d.room.ID && in.AgentID == d.agent.ID && in.WorkspaceID == d.workspaceID
	})).Return(1)
	d.notifier.On("Notify", mock.Anything, NotifyInput{RoomID: d.room.ID, AgentID: d.agent.ID, Message: "done"}).Return(3, nil)

	reply, err := d.service(time.Second).Invoke(context.Background(), d.input())

	require.NoError(t, err)
	assert.Equal(t, "all green", reply.Content)
	assert.Equal(t, model.MessageRoleAgent, reply.Role)
	require.NotNil(t, reply.AgentID)
	assert.Equal(t, d.agent.ID, *reply.AgentID)

	d.agents.AssertCalled(t, "UpdateStatus", mock.Anything, d.agent.ID, model.AgentStatusRunning, mock.Anything)
	d.agents.AssertCalled(t, "UpdateStatus", mock.Anything, d.agent.ID, model.AgentStatusIdle, (*uuid.UUID)(nil))
	d.messages.AssertNumberOfCalls(t, "Create", 2)
	d.artifacts.AssertExpectations(t)
	d.notifier.AssertExpectations(t)
	d.notifier.AssertNumberOfCalls(t, "Notify", 1)

	// prompt, running, idle, reply
	events := d.pub.OfType(broadcast.EventRoom)
	require.Len(t, events, 4)
	for _, e := range events {
		assert.Equal(t, d.room.ID, e.RoomID)
		assert.Equal(t, d.workspaceID, e.WorkspaceID)
	}
}

func TestInvocationService_InvokeResultHandling(t *testing.T) {
	tests := []struct {
		name    string
		result  *types.RunResult
		runErr  error
		wantMsg string
		status  int
	}{
		{
			name:    "failure with partial message is a soft success",
			result:  &types.RunResult{Success: false, Message: "partial answer", Error: "tool crashed", ErrorStatus: 500},
			wantMsg: "partial answer",
		},
		{
			name:   "failure without message uses capability status",
			result: &types.RunResult{Success: false, Error: "rate limited", ErrorStatus: http.StatusTooManyRequests},
			status: http.StatusTooManyRequests,
		},
		{
			name:   "failure without message or status is a server error",
			result: &types.RunResult{Success: false, Error: "boom"},
			status: http.StatusInternalServerError,
		},
		{
			name:   "transport error",
			runErr: errors.New("connection refused"),
			status: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newInvokeDeps()
			d.linked()
			if tt.result != nil {
				d.runner.On("Run", mock.Anything, mock.Anything).Return(tt.result, nil)
			} else {
				d.runner.On("Run", mock.Anything, mock.Anything).Return(nil, tt.runErr)
			}

			reply, err := d.service(time.Second).Invoke(context.Background(), d.input())

			if tt.wantMsg != "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantMsg, reply.Content)
				return
			}
			require.Error(t, err)
			assertAppErr(t, err, apperr.KindCapability, tt.status, "")
			// the prompt is stored, the missing reply is not
			d.messages.AssertNumberOfCalls(t, "Create", 1)
			d.agents.AssertCalled(t, "UpdateStatus", mock.Anything, d.agent.ID, model.AgentStatusIdle, (*uuid.UUID)(nil))
			d.artifacts.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestInvocationService_InvokeTimeout(t *testing.T) {
	d := newInvokeDeps()
	d.linked()
	d.runner.On("Run", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	reply, err := d.service(20*time.Millisecond).Invoke(context.Background(), d.input())

	assert.Nil(t, reply)
	assertAppErr(t, err, apperr.KindCapability, http.StatusGatewayTimeout, "agent invocation timed out")
}

func TestInvocationService_InvokeSurvivesCallerCancel(t *testing.T) {
	d := newInvokeDeps()
	d.linked()

	ctx, cancel := context.WithCancel(context.Background())
	artifacts := []types.ArtifactItem{{ArtifactType: "DOCUMENT", Data: map[string]any{"title": "notes"}}}
	var runCtxErr error
	d.runner.On("Run", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			cancel()
			time.Sleep(30 * time.Millisecond)
			runCtxErr = args.Get(0).(context.Context).Err()
		}).
		Return(&types.RunResult{
			Success:   true,
			Message:   "finished anyway",
			Artifacts: artifacts,
			Events:    []types.AgentEvent{{Kind: types.AgentEventNotification, Message: "done"}},
		}, nil)
	d.artifacts.On("Ingest", mock.Anything, artifacts, mock.Anything).Return(1)
	d.notifier.On("Notify", mock.Anything, mock.Anything).Return(1, nil)

	reply, err := d.service(time.Second).Invoke(ctx, d.input())

	require.NoError(t, err)
	assert.NoError(t, runCtxErr)
	assert.Equal(t, "finished anyway", reply.Content)
	d.messages.AssertNumberOfCalls(t, "Create", 2)
	d.artifacts.AssertExpectations(t)
	d.notifier.AssertExpectations(t)
	d.agents.AssertCalled(t, "UpdateStatus", mock.Anything, d.agent.ID, model.AgentStatusIdle, (*uuid.UUID)(nil))
}

func TestInvocationService_SideEffectFailuresDoNotFailInvocation(t *testing.T) {
	d := newInvokeDeps()
	d.linked()
	d.runner.On("Run", mock.Anything, mock.Anything).Return(&types.RunResult{
		Success: true,
		Message: "ok",
		Events:  []types.AgentEvent{{Kind: types.AgentEventNotification, Message: "done"}},
	}, nil)
	d.notifier.On("Notify", mock.Anything, mock.Anything).Return(0, apperr.Infra(errors.New("insert failed")))

	reply, err := d.service(time.Second).Invoke(context.Background(), d.input())

	require.NoError(t, err)
	assert.Equal(t, "ok", reply.Content)
}
