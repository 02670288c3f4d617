package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/OwlBoard/Chat-Service/events"
	"github.com/OwlBoard/Chat-Service/modules/broadcast"
	"github.com/OwlBoard/Chat-Service/modules/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
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

const testMaxContent = 20

type testEnv struct {
	mr       *miniredis.Miniredis
	messages *store.MessageStore
	presence *store.PresenceStore
	rooms    *store.RoomStore
	hub      *broadcast.Hub
	service  *Service
	sessions *SessionHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := &testEnv{
		mr:       mr,
		messages: store.NewMessageStore(client, 50, 720*time.Hour),
		presence: store.NewPresenceStore(client, time.Hour),
		rooms:    store.NewRoomStore(client, 100),
	}
	env.hub = broadcast.NewHub(broadcast.NewRegistry(), env.presence, time.Second, &mockLogger{})
	env.service = NewService(env.messages, env.presence, env.rooms, env.hub, testMaxContent)
	env.sessions = NewSessionHandler(env.service, env.hub, env.presence, true, &mockLogger{})
	t.Cleanup(env.hub.Wait)
	return env
}

var errClosed = errors.New("use of closed connection")

type recordedFrame struct {
	Type events.FrameType `json:"type"`
	Data json.RawMessage  `json:"data"`
}

// recorder collects outbound frames.
type recorder struct {
	mu     sync.Mutex
	frames []recordedFrame
	closed bool
}

func (r *recorder) WriteMessage(_ int, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed
	}
	var f recordedFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *recorder) SetWriteDeadline(_ time.Time) error { return nil }

func (r *recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recorder) received() []recordedFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedFrame(nil), r.frames...)
}

func (r *recorder) ofType(t events.FrameType) []recordedFrame {
	var out []recordedFrame
	for _, f := range r.received() {
		if f.Type == t {
			out = append(out, f)
		}
	}
	return out
}

// connectClient registers a plain client with the hub.
func connectClient(env *testEnv, room, user string) *recorder {
	conn := &recorder{}
	env.hub.Connect(broadcast.NewClient(room, user, "name-"+user, conn))
	return conn
}

// fakeTransport is a Transport driven by a channel of inbound frames.
type fakeTransport struct {
	recorder
	inbound   chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		inbound: make(chan []byte, 16),
		done:    make(chan struct{}),
	}
}

func (t *fakeTransport) ReadMessage() (int, []byte, error) {
	select {
	case b, ok := <-t.inbound:
		if !ok {
			return 0, nil, errClosed
		}
		return 1, b, nil
	case <-t.done:
		return 0, nil, errClosed
	}
}

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return t.recorder.Close()
}

func (t *fakeTransport) send(frame string) {
	t.inbound <- []byte(frame)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
