package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/infra/blob"
	"github.com/oz-workspace/api/internal/infra/broadcast"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/pkg/apperr"
	"github.com/oz-workspace/api/internal/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testLog = zap.NewNop()

// MockRoomRepo is a mock implementation of RoomRepo
type MockRoomRepo struct {
	mock.Mock
}

func (m *MockRoomRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Room, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Room), args.Error(1)
}

func (m *MockRoomRepo) Get(ctx context.Context, roomID uuid.UUID) (*model.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockRoomRepo) GetInWorkspace(ctx context.Context, workspaceID, roomID uuid.UUID) (*model.Room, error) {
	args := m.Called(ctx, workspaceID, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockRoomRepo) CreateWithAgents(ctx context.Context, room *model.Room, agentIDs []uuid.UUID) error {
	args := m.Called(ctx, room, agentIDs)
	return args.Error(0)
}

func (m *MockRoomRepo) SetPaused(ctx context.Context, workspaceID, roomID uuid.UUID, paused bool) (*model.Room, error) {
	args := m.Called(ctx, workspaceID, roomID, paused)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockRoomRepo) HasAgent(ctx context.Context, roomID, agentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, roomID, agentID)
	return args.Bool(0), args.Error(1)
}

// MockAgentRepo is a mock implementation of AgentRepo
type MockAgentRepo struct {
	mock.Mock
}

func (m *MockAgentRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Agent, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Agent), args.Error(1)
}

func (m *MockAgentRepo) Create(ctx context.Context, a *model.Agent) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAgentRepo) Get(ctx context.Context, agentID uuid.UUID) (*model.Agent, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agent), args.Error(1)
}

func (m *MockAgentRepo) GetInWorkspace(ctx context.Context, workspaceID, agentID uuid.UUID) (*model.Agent, error) {
	args := m.Called(ctx, workspaceID, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agent), args.Error(1)
}

func (m *MockAgentRepo) UpdateStatus(ctx context.Context, agentID uuid.UUID, status string, activeRoomID *uuid.UUID) error {
	args := m.Called(ctx, agentID, status, activeRoomID)
	return args.Error(0)
}

// MockArtifactRepo is a mock implementation of ArtifactRepo
type MockArtifactRepo struct {
	mock.Mock
}

func (m *MockArtifactRepo) CreateIfAbsent(ctx context.Context, a *model.Artifact) (bool, error) {
	args := m.Called(ctx, a)
	return args.Bool(0), args.Error(1)
}

func (m *MockArtifactRepo) ListByRoom(ctx context.Context, roomID uuid.UUID) ([]model.Artifact, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Artifact), args.Error(1)
}

func (m *MockArtifactRepo) GetWithAgent(ctx context.Context, id uuid.UUID) (*model.Artifact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

func (m *MockArtifactRepo) GetByDedupeKey(ctx context.Context, roomID uuid.UUID, key string) (*model.Artifact, error) {
	args := m.Called(ctx, roomID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

// MockNotificationRepo is a mock implementation of NotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) CreateBatch(ctx context.Context, items []model.Notification) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}

func (m *MockNotificationRepo) ListWithCursor(ctx context.Context, userID, workspaceID uuid.UUID, afterTimestamp time.Time, afterID uuid.UUID, limit int) ([]model.Notification, error) {
	args := m.Called(ctx, userID, workspaceID, afterTimestamp, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Notification), args.Error(1)
}

func (m *MockNotificationRepo) MarkRead(ctx context.Context, userID, workspaceID, id uuid.UUID) (*model.Notification, error) {
	args := m.Called(ctx, userID, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockNotificationRepo) Delete(ctx context.Context, userID, workspaceID, id uuid.UUID) error {
	args := m.Called(ctx, userID, workspaceID, id)
	return args.Error(0)
}

func (m *MockNotificationRepo) MarkAllRead(ctx context.Context, userID, workspaceID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, workspaceID)
	return args.Get(0).(int64), args.Error(1)
}

// MockWorkspaceRepo is a mock implementation of WorkspaceRepo
type MockWorkspaceRepo struct {
	mock.Mock
}

func (m *MockWorkspaceRepo) CreateWithOwner(ctx context.Context, ws *model.Workspace, ownerID uuid.UUID) error {
	args := m.Called(ctx, ws, ownerID)
	return args.Error(0)
}

func (m *MockWorkspaceRepo) Get(ctx context.Context, id uuid.UUID) (*model.Workspace, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Workspace), args.Error(1)
}

func (m *MockWorkspaceRepo) GetMembership(ctx context.Context, workspaceID, userID uuid.UUID) (*model.WorkspaceMember, error) {
	args := m.Called(ctx, workspaceID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkspaceMember), args.Error(1)
}

func (m *MockWorkspaceRepo) LatestMembership(ctx context.Context, userID uuid.UUID) (*model.WorkspaceMember, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkspaceMember), args.Error(1)
}

func (m *MockWorkspaceRepo) ListMemberships(ctx context.Context, userID uuid.UUID) ([]model.WorkspaceMember, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WorkspaceMember), args.Error(1)
}

func (m *MockWorkspaceRepo) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]model.WorkspaceMember, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WorkspaceMember), args.Error(1)
}

func (m *MockWorkspaceRepo) ListMemberUserIDs(ctx context.Context, workspaceID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockWorkspaceRepo) RemoveMember(ctx context.Context, workspaceID, userID uuid.UUID) error {
	args := m.Called(ctx, workspaceID, userID)
	return args.Error(0)
}

func (m *MockWorkspaceRepo) CreateInvite(ctx context.Context, inv *model.WorkspaceInvite) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockWorkspaceRepo) GetInvite(ctx context.Context, id uuid.UUID) (*model.WorkspaceInvite, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkspaceInvite), args.Error(1)
}

func (m *MockWorkspaceRepo) ListPendingInvites(ctx context.Context, workspaceID uuid.UUID, now time.Time) ([]model.WorkspaceInvite, error) {
	args := m.Called(ctx, workspaceID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WorkspaceInvite), args.Error(1)
}

func (m *MockWorkspaceRepo) DeleteInvite(ctx context.Context, workspaceID, inviteID uuid.UUID) error {
	args := m.Called(ctx, workspaceID, inviteID)
	return args.Error(0)
}

func (m *MockWorkspaceRepo) AcceptInvite(ctx context.Context, inviteID, userID uuid.UUID, now time.Time) (*model.WorkspaceInvite, error) {
	args := m.Called(ctx, inviteID, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkspaceInvite), args.Error(1)
}

// MockMessageRepo is a mock implementation of MessageRepo
type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *model.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) ListRecent(ctx context.Context, roomID uuid.UUID, limit int) ([]model.Message, error) {
	args := m.Called(ctx, roomID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

// MockSettingRepo is a mock implementation of SettingRepo
type MockSettingRepo struct {
	mock.Mock
}

func (m *MockSettingRepo) ListByWorkspace(ctx context.Context, workspaceID uuid.UUID) ([]model.Setting, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Setting), args.Error(1)
}

func (m *MockSettingRepo) Upsert(ctx context.Context, s *model.Setting) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

// MockAgentRunner is a mock implementation of AgentRunner
type MockAgentRunner struct {
	mock.Mock
}

func (m *MockAgentRunner) Run(ctx context.Context, req types.RunRequest) (*types.RunResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RunResult), args.Error(1)
}

// MockContentStore is a mock implementation of ContentStore
type MockContentStore struct {
	mock.Mock
}

func (m *MockContentStore) UploadText(ctx context.Context, keyPrefix, content, mime string) (*blob.UploadedMeta, error) {
	args := m.Called(ctx, keyPrefix, content, mime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blob.UploadedMeta), args.Error(1)
}

func (m *MockContentStore) PresignGet(ctx context.Context, key string, expire time.Duration) (string, error) {
	args := m.Called(ctx, key, expire)
	return args.String(0), args.Error(1)
}

// MockArtifactService is a mock implementation of ArtifactService
type MockArtifactService struct {
	mock.Mock
}

func (m *MockArtifactService) Ingest(ctx context.Context, items []types.ArtifactItem, in IngestContext) int {
	args := m.Called(ctx, items, in)
	return args.Int(0)
}

func (m *MockArtifactService) ListByRoom(ctx context.Context, workspaceID, roomID uuid.UUID) ([]model.Artifact, error) {
	args := m.Called(ctx, workspaceID, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Artifact), args.Error(1)
}

func (m *MockArtifactService) Create(ctx context.Context, in CreateArtifactInput) (*model.Artifact, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

// MockNotificationService is a mock implementation of NotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Notify(ctx context.Context, in NotifyInput) (int, error) {
	args := m.Called(ctx, in)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) List(ctx context.Context, in ListNotificationsInput) (*ListNotificationsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ListNotificationsOutput), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, workspaceID, id uuid.UUID) (*model.Notification, error) {
	args := m.Called(ctx, userID, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockNotificationService) Delete(ctx context.Context, userID, workspaceID, id uuid.UUID) error {
	args := m.Called(ctx, userID, workspaceID, id)
	return args.Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID, workspaceID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, workspaceID)
	return args.Get(0).(int64), args.Error(1)
}

// eventRecorder is a Publisher that keeps every event.
type eventRecorder struct {
	mu     sync.Mutex
	events []broadcast.Event
}

func (r *eventRecorder) Broadcast(evt broadcast.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) Events() []broadcast.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcast.Event(nil), r.events...)
}

func (r *eventRecorder) OfType(t broadcast.EventType) []broadcast.Event {
	var out []broadcast.Event
	for _, e := range r.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// assertAppErr checks the kind, rendered status and message of a service error.
func assertAppErr(t *testing.T, err error, kind apperr.Kind, status int, msg string) {
	t.Helper()
	e, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	assert.Equal(t, kind, e.Kind)
	assert.Equal(t, status, e.HTTPStatus())
	if msg != "" {
		assert.Equal(t, msg, e.Msg)
	}
}
