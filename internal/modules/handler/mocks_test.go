package handler

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/modules/service"
	"github.com/oz-workspace/api/internal/pkg/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWorkspaceService struct {
	mock.Mock
}

func (m *MockWorkspaceService) Resolve(ctx context.Context, userID uuid.UUID, workspaceID *uuid.UUID) (*service.Membership, error) {
	args := m.Called(ctx, userID, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Membership), args.Error(1)
}

func (m *MockWorkspaceService) Current(ctx context.Context, mb service.Membership) (*service.WorkspaceView, error) {
	args := m.Called(ctx, mb)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.WorkspaceView), args.Error(1)
}

func (m *MockWorkspaceService) ListMine(ctx context.Context, userID uuid.UUID) ([]service.WorkspaceView, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.WorkspaceView), args.Error(1)
}

func (m *MockWorkspaceService) Create(ctx context.Context, userID uuid.UUID, name string) (*service.WorkspaceView, error) {
	args := m.Called(ctx, userID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.WorkspaceView), args.Error(1)
}

func (m *MockWorkspaceService) ListMembers(ctx context.Context, workspaceID uuid.UUID) ([]model.WorkspaceMember, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WorkspaceMember), args.Error(1)
}

func (m *MockWorkspaceService) RemoveMember(ctx context.Context, caller service.Membership, userID uuid.UUID) error {
	return m.Called(ctx, caller, userID).Error(0)
}

func (m *MockWorkspaceService) CreateInvite(ctx context.Context, caller service.Membership, expiresInDays int) (*model.WorkspaceInvite, error) {
	args := m.Called(ctx, caller, expiresInDays)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkspaceInvite), args.Error(1)
}

func (m *MockWorkspaceService) ListInvites(ctx context.Context, workspaceID uuid.UUID) ([]model.WorkspaceInvite, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.WorkspaceInvite), args.Error(1)
}

func (m *MockWorkspaceService) RevokeInvite(ctx context.Context, workspaceID, inviteID uuid.UUID) error {
	return m.Called(ctx, workspaceID, inviteID).Error(0)
}

func (m *MockWorkspaceService) AcceptInvite(ctx context.Context, userID, inviteID uuid.UUID) (*model.WorkspaceInvite, error) {
	args := m.Called(ctx, userID, inviteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WorkspaceInvite), args.Error(1)
}

type MockRoomService struct {
	mock.Mock
}

func (m *MockRoomService) List(ctx context.Context, workspaceID uuid.UUID) ([]model.Room, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Room), args.Error(1)
}

func (m *MockRoomService) Get(ctx context.Context, workspaceID, roomID uuid.UUID) (*model.Room, error) {
	args := m.Called(ctx, workspaceID, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockRoomService) Create(ctx context.Context, in service.CreateRoomInput) (*model.Room, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockRoomService) SetPaused(ctx context.Context, workspaceID, roomID uuid.UUID, paused bool) (*model.Room, error) {
	args := m.Called(ctx, workspaceID, roomID, paused)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

type MockAgentService struct {
	mock.Mock
}

func (m *MockAgentService) List(ctx context.Context, workspaceID uuid.UUID) ([]model.Agent, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Agent), args.Error(1)
}

func (m *MockAgentService) Create(ctx context.Context, in service.CreateAgentInput) (*model.Agent, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Agent), args.Error(1)
}

type MockSettingService struct {
	mock.Mock
}

func (m *MockSettingService) Get(ctx context.Context, workspaceID uuid.UUID) (map[string]string, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockSettingService) Put(ctx context.Context, workspaceID uuid.UUID, key, value string) (*model.Setting, error) {
	args := m.Called(ctx, workspaceID, key, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Setting), args.Error(1)
}

type MockArtifactService struct {
	mock.Mock
}

func (m *MockArtifactService) Ingest(ctx context.Context, items []types.ArtifactItem, in service.IngestContext) int {
	return m.Called(ctx, items, in).Int(0)
}

func (m *MockArtifactService) ListByRoom(ctx context.Context, workspaceID, roomID uuid.UUID) ([]model.Artifact, error) {
	args := m.Called(ctx, workspaceID, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Artifact), args.Error(1)
}

func (m *MockArtifactService) Create(ctx context.Context, in service.CreateArtifactInput) (*model.Artifact, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Artifact), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Notify(ctx context.Context, in service.NotifyInput) (int, error) {
	args := m.Called(ctx, in)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) List(ctx context.Context, in service.ListNotificationsInput) (*service.ListNotificationsOutput, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListNotificationsOutput), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, workspaceID, id uuid.UUID) (*model.Notification, error) {
	args := m.Called(ctx, userID, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Notification), args.Error(1)
}

func (m *MockNotificationService) Delete(ctx context.Context, userID, workspaceID, id uuid.UUID) error {
	return m.Called(ctx, userID, workspaceID, id).Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID, workspaceID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, workspaceID)
	return args.Get(0).(int64), args.Error(1)
}

type MockInvocationService struct {
	mock.Mock
}

func (m *MockInvocationService) Invoke(ctx context.Context, in service.InvokeInput) (*model.Message, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

type MockCallbackService struct {
	mock.Mock
}

func (m *MockCallbackService) Handle(ctx context.Context, msg types.CallbackMessage) (*service.CallbackResult, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CallbackResult), args.Error(1)
}

func (m *MockCallbackService) HandleDelivery(ctx context.Context, body []byte) error {
	return m.Called(ctx, body).Error(0)
}

type MockCallbackPublisher struct {
	mock.Mock
}

func (m *MockCallbackPublisher) PublishJSON(ctx context.Context, queue string, body any) error {
	return m.Called(ctx, queue, body).Error(0)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// asMember stands in for the auth middlewares.
func asMember(m *service.Membership) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", m.UserID)
		c.Set("membership", m)
		c.Next()
	}
}

func newMember() *service.Membership {
	return &service.Membership{UserID: uuid.New(), WorkspaceID: uuid.New(), Role: model.RoleMember}
}

type testResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) testResponse {
	t.Helper()
	var res testResponse
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &res))
	return res
}

func (r testResponse) object(t *testing.T) map[string]any {
	t.Helper()
	obj, ok := r.Data.(map[string]any)
	require.True(t, ok, "data is %T", r.Data)
	return obj
}
