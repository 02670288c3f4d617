package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	domain "github.com/OwlBoard/Chat-Service/domain/chat"
	"github.com/OwlBoard/Chat-Service/modules/chat"
	fws "github.com/fasthttp/websocket"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

// fakeChat implements chat.ChatPort and records the last call.
type fakeChat struct {
	err error

	historyRoom  string
	historySkip  int
	historyLimit int
	sent         chat.SendMessageRequest
	edited       [3]string
	createdRoom  chat.CreateRoomRequest
}

func (f *fakeChat) History(_ context.Context, roomID string, skip, limit int) ([]*domain.Message, error) {
	f.historyRoom, f.historySkip, f.historyLimit = roomID, skip, limit
	return nil, f.err
}

func (f *fakeChat) SendMessage(_ context.Context, req chat.SendMessageRequest) (*domain.Message, error) {
	f.sent = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Message{ID: "m1", RoomID: req.RoomID, SenderID: req.UserID, Content: req.Content, Kind: domain.KindText}, nil
}

func (f *fakeChat) EditMessage(_ context.Context, roomID, messageID, content string) (*domain.Message, error) {
	f.edited = [3]string{roomID, messageID, content}
	if f.err != nil {
		return nil, f.err
	}
	now := time.Now()
	return &domain.Message{ID: messageID, RoomID: roomID, Content: content, EditedAt: &now}, nil
}

func (f *fakeChat) DeleteMessage(_ context.Context, roomID, messageID string) (*domain.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Message{ID: messageID, RoomID: roomID, Deleted: true}, nil
}

func (f *fakeChat) ClearHistory(_ context.Context, _ string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return 7, nil
}

func (f *fakeChat) RoomInfo(_ context.Context, roomID string) (*chat.RoomInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &chat.RoomInfo{Room: &domain.Room{ID: roomID, Name: domain.DefaultRoomName(roomID), Active: true}}, nil
}

func (f *fakeChat) ConnectedUsers(_ context.Context, _ string) ([]*domain.Presence, error) {
	return nil, f.err
}

func (f *fakeChat) CreateRoom(_ context.Context, req chat.CreateRoomRequest) (*domain.Room, error) {
	f.createdRoom = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Room{ID: req.RoomID, Name: req.Name, CreatedBy: req.CreatedBy, Active: true}, nil
}

func (f *fakeChat) ListRooms(_ context.Context) ([]*domain.Room, error) {
	return []*domain.Room{{ID: "a", Name: "A"}}, f.err
}

type fakeCounter int

func (c fakeCounter) ClientCount() int { return int(c) }

type fakePinger struct{ err error }

func (p fakePinger) Ping(_ context.Context) error { return p.err }

type fakeSessions struct{}

func (fakeSessions) Serve(_ context.Context, _, _, _ string, _ chat.Transport) {}

type servedSession struct {
	room, user, username string
}

// recordingSessions reports every connection handed to Serve.
type recordingSessions struct {
	served chan servedSession
}

func (r recordingSessions) Serve(_ context.Context, roomID, userID, username string, _ chat.Transport) {
	r.served <- servedSession{room: roomID, user: userID, username: username}
}

func newTestModule(t *testing.T, port *fakeChat, pingErr error) *APIModule {
	t.Helper()
	m := NewModule(Config{Addr: ":0", CORSOrigins: []string{"*"}}, &mockLogger{})
	m.chatAdapter = port
	m.SetSessions(fakeSessions{})
	m.SetHub(fakeCounter(3))
	m.SetStore(fakePinger{err: pingErr})
	return m
}

func newTestApp(t *testing.T, port *fakeChat, pingErr error) *fiber.App {
	t.Helper()
	return newTestModule(t, port, pingErr).newApp()
}

// listen serves the module's routes on a loopback port and returns its address.
func listen(t *testing.T, m *APIModule) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	app := m.newApp()
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

func dialWebSocket(t *testing.T, addr, target string) *fws.Conn {
	t.Helper()
	conn, resp, err := fws.DefaultDialer.Dial("ws://"+addr+target, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	return conn
}

func do(t *testing.T, app *fiber.App, method, target, body string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, b
}

func TestServiceInfo(t *testing.T) {
	app := newTestApp(t, &fakeChat{}, nil)
	status, body := do(t, app, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, status)

	var info ServiceInfoResponse
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "running", info.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, &fakeChat{}, nil)
	status, body := do(t, app, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, &fakeChat{}, nil)
	status, body := do(t, app, http.MethodGet, "/chat/health", "")
	require.Equal(t, http.StatusOK, status)

	var h HealthResponse
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, 3, h.ActiveConnections)

	app = newTestApp(t, &fakeChat{}, errors.New("connection refused"))
	status, body = do(t, app, http.MethodGet, "/chat/health", "")
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, "unhealthy", h.Status)
	assert.Equal(t, "connection refused", h.Error)
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	app := newTestApp(t, &fakeChat{}, nil)
	status, _ := do(t, app, http.MethodGet, "/chat/ws/d1?user_id=u1&username=U", "")
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

func TestWebSocketRejectsInvalidIDs(t *testing.T) {
	sessions := recordingSessions{served: make(chan servedSession, 1)}
	m := newTestModule(t, &fakeChat{}, nil)
	m.SetSessions(sessions)
	addr := listen(t, m)

	tests := []struct {
		name   string
		target string
	}{
		{name: "missing user id", target: "/chat/ws/d1"},
		{name: "user id with separator", target: "/chat/ws/d1?user_id=a%3Ab"},
		{name: "room with wildcard", target: "/chat/ws/a*b?user_id=u1"},
		{name: "user id too long", target: "/chat/ws/d1?user_id=" + strings.Repeat("u", domain.MaxIdentifierLength+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := dialWebSocket(t, addr, tt.target)

			_, _, err := conn.ReadMessage()
			var closeErr *fws.CloseError
			require.ErrorAs(t, err, &closeErr)
			assert.Equal(t, 4000, closeErr.Code)
			assert.Equal(t, "Invalid IDs", closeErr.Text)
		})
	}

	select {
	case s := <-sessions.served:
		t.Fatalf("rejected connection reached the session handler: %+v", s)
	default:
	}
}

func TestWebSocketHandsOffToSession(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   servedSession
	}{
		{
			name:   "with username",
			target: "/chat/ws/d1?user_id=u1&username=Alice",
			want:   servedSession{room: "d1", user: "u1", username: "Alice"},
		},
		{
			name:   "username defaults to user id",
			target: "/chat/ws/d1?user_id=u1",
			want:   servedSession{room: "d1", user: "u1", username: "u1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := recordingSessions{served: make(chan servedSession, 1)}
			m := newTestModule(t, &fakeChat{}, nil)
			m.SetSessions(sessions)
			addr := listen(t, m)

			dialWebSocket(t, addr, tt.target)

			select {
			case got := <-sessions.served:
				assert.Equal(t, tt.want, got)
			case <-time.After(2 * time.Second):
				t.Fatal("connection never reached the session handler")
			}
		})
	}
}

func TestGetHistory(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantSkip   int
		wantLimit  int
	}{
		{name: "defaults", target: "/chat/messages/d1", wantStatus: http.StatusOK, wantLimit: 50},
		{name: "explicit page", target: "/chat/messages/d1?limit=10&skip=20", wantStatus: http.StatusOK, wantSkip: 20, wantLimit: 10},
		{name: "limit too large", target: "/chat/messages/d1?limit=101", wantStatus: http.StatusBadRequest},
		{name: "zero limit", target: "/chat/messages/d1?limit=0", wantStatus: http.StatusBadRequest},
		{name: "negative skip", target: "/chat/messages/d1?skip=-1", wantStatus: http.StatusBadRequest},
		{name: "not a number", target: "/chat/messages/d1?limit=ten", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &fakeChat{}
			app := newTestApp(t, port, nil)
			status, body := do(t, app, http.MethodGet, tt.target, "")
			require.Equal(t, tt.wantStatus, status, string(body))
			if tt.wantStatus != http.StatusOK {
				return
			}
			assert.JSONEq(t, `[]`, string(body))
			assert.Equal(t, "d1", port.historyRoom)
			assert.Equal(t, tt.wantSkip, port.historySkip)
			assert.Equal(t, tt.wantLimit, port.historyLimit)
		})
	}
}

func TestSendMessage(t *testing.T) {
	port := &fakeChat{}
	app := newTestApp(t, port, nil)

	status, body := do(t, app, http.MethodPost, "/chat/messages/d1?user_id=u1&username=Ann&content=hello", "")
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, chat.SendMessageRequest{RoomID: "d1", UserID: "u1", Username: "Ann", Content: "hello"}, port.sent)

	var msg domain.Message
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.Equal(t, "m1", msg.ID)

	status, _ = do(t, app, http.MethodPost, "/chat/messages/d1?username=Ann&content=hello", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", &chat.ServiceError{Code: chat.CodeNotFound, Message: "not found"}, http.StatusNotFound, chat.CodeNotFound},
		{"invalid", &chat.ServiceError{Code: chat.CodeInvalid, Message: "message content cannot be empty"}, http.StatusBadRequest, chat.CodeInvalid},
		{"conflict", &chat.ServiceError{Code: chat.CodeConflict, Message: "room already exists"}, http.StatusConflict, chat.CodeConflict},
		{"internal", errors.New("call send-message: nats: timeout"), http.StatusInternalServerError, chat.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, &fakeChat{err: tt.err}, nil)
			status, body := do(t, app, http.MethodPost, "/chat/messages/d1?user_id=u1&content=x", "")
			require.Equal(t, tt.wantStatus, status)

			var e ErrorResponse
			require.NoError(t, json.Unmarshal(body, &e))
			assert.Equal(t, tt.wantCode, e.Error)
			if tt.wantCode == chat.CodeInternal {
				assert.NotContains(t, e.Message, "nats")
			}
		})
	}
}

func TestEditAndDeleteMessage(t *testing.T) {
	port := &fakeChat{}
	app := newTestApp(t, port, nil)

	status, body := do(t, app, http.MethodPut, "/chat/messages/d1/m1", `{"content":"fixed"}`)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Equal(t, [3]string{"d1", "m1", "fixed"}, port.edited)

	status, _ = do(t, app, http.MethodPut, "/chat/messages/d1/m1", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, app, http.MethodDelete, "/chat/messages/d1/m1", "")
	require.Equal(t, http.StatusOK, status)
	var msg domain.Message
	require.NoError(t, json.Unmarshal(body, &msg))
	assert.True(t, msg.Deleted)
}

func TestClearHistory(t *testing.T) {
	app := newTestApp(t, &fakeChat{}, nil)
	status, body := do(t, app, http.MethodDelete, "/chat/messages/d1", "")
	require.Equal(t, http.StatusOK, status)

	var resp ClearHistoryResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, ClearHistoryResponse{Status: "success", ClearedCount: 7, DashboardID: "d1"}, resp)
}

func TestRooms(t *testing.T) {
	port := &fakeChat{}
	app := newTestApp(t, port, nil)

	status, body := do(t, app, http.MethodPost, "/chat/rooms", `{"id":"d9","name":"Ops","created_by":"u1"}`)
	require.Equal(t, http.StatusCreated, status, string(body))
	assert.Equal(t, chat.CreateRoomRequest{RoomID: "d9", Name: "Ops", CreatedBy: "u1"}, port.createdRoom)

	status, _ = do(t, app, http.MethodPost, "/chat/rooms", `{"name":"Ops"}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, app, http.MethodGet, "/chat/rooms", "")
	require.Equal(t, http.StatusOK, status)
	var rooms []domain.Room
	require.NoError(t, json.Unmarshal(body, &rooms))
	require.Len(t, rooms, 1)

	status, body = do(t, app, http.MethodGet, "/chat/rooms/d3", "")
	require.Equal(t, http.StatusOK, status)
	var info chat.RoomInfo
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "Dashboard d3", info.Room.Name)
}

func TestConnectedUsers(t *testing.T) {
	app := newTestApp(t, &fakeChat{}, nil)
	status, body := do(t, app, http.MethodGet, "/chat/users/d1", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, string(body))
}

func TestModuleStartRequiresDependencies(t *testing.T) {
	m := NewModule(Config{Addr: ":0"}, &mockLogger{})
	assert.Equal(t, "api", m.Name())
	assert.Equal(t, []string{"chat"}, m.Dependencies())
	assert.Error(t, m.Start(context.Background()))
	assert.NoError(t, m.Stop(context.Background()))
}
