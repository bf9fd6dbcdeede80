package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/oz-workspace/api/internal/infra/broadcast"
	"github.com/oz-workspace/api/internal/modules/model"
	"github.com/oz-workspace/api/internal/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sseFrame struct {
	event string
	data  string
}

// readFrame reads lines up to the blank line that ends a frame.
func readFrame(t *testing.T, r *bufio.Reader) sseFrame {
	t.Helper()
	var f sseFrame
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return f
		case strings.HasPrefix(line, "event: "):
			f.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			f.data += strings.TrimPrefix(line, "data: ")
		}
	}
}

func openStream(t *testing.T, srv *httptest.Server, query string) (*http.Response, *bufio.Reader, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events"+query, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp, bufio.NewReader(resp.Body), cancel
}

func waitForSubscribers(t *testing.T, hub *broadcast.Hub, scope broadcast.Scope, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.SubscriberCount(scope) == n }, time.Second, 5*time.Millisecond)
}

func TestEventsHandler_WorkspaceStream(t *testing.T) {
	member := newMember()
	hub := broadcast.NewHub(8, zap.NewNop())
	defer hub.Close()

	router := setupRouter()
	router.GET("/events", asMember(member), NewEventsHandler(hub, &MockRoomService{}, time.Minute).Stream)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, r, cancel := openStream(t, srv, "")
	defer cancel()
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	ready := readFrame(t, r)
	assert.Equal(t, "ping", ready.event)
	assert.Equal(t, "ready", ready.data)

	scope := broadcast.WorkspaceScope(member.WorkspaceID)
	waitForSubscribers(t, hub, scope, 1)

	roomID := uuid.New()
	// another tenant's event must not reach this stream
	hub.Broadcast(broadcast.Event{Type: broadcast.EventRoom, RoomID: uuid.New(), WorkspaceID: uuid.New(), Data: map[string]any{"action": "message"}})
	hub.Broadcast(broadcast.Event{Type: broadcast.EventNotification, RoomID: roomID, WorkspaceID: member.WorkspaceID, Data: map[string]any{"action": "created"}})

	f := readFrame(t, r)
	assert.Equal(t, "notification", f.event)

	var env map[string]any
	require.NoError(t, sonic.UnmarshalString(f.data, &env))
	assert.Equal(t, "notification", env["type"])
	assert.Equal(t, roomID.String(), env["roomId"])
	assert.Equal(t, map[string]any{"action": "created"}, env["data"])
	assert.NotContains(t, env, "WorkspaceID")

	cancel()
	waitForSubscribers(t, hub, scope, 0)
}

func TestEventsHandler_RoomStream(t *testing.T) {
	member := newMember()
	roomID := uuid.New()
	hub := broadcast.NewHub(8, zap.NewNop())
	defer hub.Close()

	rooms := &MockRoomService{}
	rooms.On("Get", mock.Anything, member.WorkspaceID, roomID).Return(&model.Room{ID: roomID}, nil)

	router := setupRouter()
	router.GET("/events", asMember(member), NewEventsHandler(hub, rooms, time.Minute).Stream)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, r, cancel := openStream(t, srv, "?room_id="+roomID.String())
	defer cancel()
	defer resp.Body.Close()

	readFrame(t, r)
	waitForSubscribers(t, hub, broadcast.RoomScope(roomID), 1)

	hub.Broadcast(broadcast.Event{Type: broadcast.EventArtifact, RoomID: uuid.New(), WorkspaceID: member.WorkspaceID})
	hub.Broadcast(broadcast.Event{Type: broadcast.EventRoom, RoomID: roomID, WorkspaceID: member.WorkspaceID, Data: map[string]any{"action": "agent_status"}})

	f := readFrame(t, r)
	assert.Equal(t, "room", f.event)
	assert.Contains(t, f.data, roomID.String())
	rooms.AssertExpectations(t)
}

func TestEventsHandler_Keepalive(t *testing.T) {
	member := newMember()
	hub := broadcast.NewHub(8, zap.NewNop())
	defer hub.Close()

	router := setupRouter()
	router.GET("/events", asMember(member), NewEventsHandler(hub, &MockRoomService{}, 20*time.Millisecond).Stream)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, r, cancel := openStream(t, srv, "")
	defer cancel()
	defer resp.Body.Close()

	readFrame(t, r)
	f := readFrame(t, r)
	assert.Equal(t, "ping", f.event)
	_, err := time.Parse(time.RFC3339Nano, f.data)
	assert.NoError(t, err)
}

func TestEventsHandler_ResyncAfterDrop(t *testing.T) {
	member := newMember()
	hub := broadcast.NewHub(1, zap.NewNop())
	defer hub.Close()

	router := setupRouter()
	router.GET("/events", asMember(member), NewEventsHandler(hub, &MockRoomService{}, time.Minute).Stream)
	srv := httptest.NewServer(router)
	defer srv.Close()

	resp, r, cancel := openStream(t, srv, "")
	defer cancel()
	defer resp.Body.Close()

	scope := broadcast.WorkspaceScope(member.WorkspaceID)
	waitForSubscribers(t, hub, scope, 1)
	for i := 0; i < 200; i++ {
		hub.Broadcast(broadcast.Event{Type: broadcast.EventRoom, RoomID: uuid.New(), WorkspaceID: member.WorkspaceID})
	}
	if hub.Dropped() == 0 {
		t.Skip("stream drained every event")
	}
	// one more event so the stream reports the drop without waiting for a keepalive
	time.Sleep(20 * time.Millisecond)
	hub.Broadcast(broadcast.Event{Type: broadcast.EventRoom, RoomID: uuid.New(), WorkspaceID: member.WorkspaceID})

	sawResync := false
	for i := 0; i < 210 && !sawResync; i++ {
		sawResync = readFrame(t, r).event == "resync"
	}
	assert.True(t, sawResync)
}

func TestEventsHandler_Rejects(t *testing.T) {
	member := newMember()
	missing := uuid.New()
	hub := broadcast.NewHub(8, zap.NewNop())
	defer hub.Close()

	rooms := &MockRoomService{}
	rooms.On("Get", mock.Anything, member.WorkspaceID, missing).Return(nil, apperr.NotFound("Room not found"))

	router := setupRouter()
	router.GET("/events", asMember(member), NewEventsHandler(hub, rooms, time.Minute).Stream)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
	}{
		{name: "bad room id", query: "?room_id=nope", expectedStatus: http.StatusBadRequest},
		{name: "room outside workspace", query: "?room_id=" + missing.String(), expectedStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/events"+tt.query, nil))
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
	assert.Equal(t, 0, hub.SubscriberCount(broadcast.RoomScope(missing)))
}
