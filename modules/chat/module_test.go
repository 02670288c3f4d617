package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModule(t *testing.T) (*Module, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	return NewModule(env.service, env.sessions, &mockLogger{}), env
}

func TestModule_Lifecycle(t *testing.T) {
	m, env := newTestModule(t)
	ctx := context.Background()

	assert.Equal(t, "chat", m.Name())
	require.NoError(t, m.Start(ctx))
	assert.True(t, m.Health(ctx).Healthy)
	assert.Same(t, env.sessions, m.Sessions())
	assert.Same(t, env.service, m.Service())
	require.NoError(t, m.Stop(ctx))
}

func TestModule_MessageHandlers(t *testing.T) {
	m, _ := newTestModule(t)
	ctx := context.Background()

	sent, err := m.sendMessage(ctx, SendMessageRequest{RoomID: "d1", UserID: "u1", Username: "U", Content: "hello"}, nil)
	require.NoError(t, err)
	require.Nil(t, sent.Error)
	require.NotNil(t, sent.Message)

	history, err := m.getHistory(ctx, GetHistoryRequest{RoomID: "d1", Limit: 10}, nil)
	require.NoError(t, err)
	require.Nil(t, history.Error)
	require.Len(t, history.Messages, 1)

	edited, err := m.editMessage(ctx, EditMessageRequest{RoomID: "d1", MessageID: sent.Message.ID, Content: "bye"}, nil)
	require.NoError(t, err)
	require.Nil(t, edited.Error)
	assert.Equal(t, "bye", edited.Message.Content)

	deleted, err := m.deleteMessage(ctx, DeleteMessageRequest{RoomID: "d1", MessageID: sent.Message.ID}, nil)
	require.NoError(t, err)
	require.Nil(t, deleted.Error)
	assert.True(t, deleted.Message.Deleted)

	cleared, err := m.clearHistory(ctx, ClearHistoryRequest{RoomID: "d1"}, nil)
	require.NoError(t, err)
	require.Nil(t, cleared.Error)
	assert.Equal(t, 1, cleared.ClearedCount)
}

func TestModule_HandlersReportErrorsInResponse(t *testing.T) {
	m, env := newTestModule(t)
	ctx := context.Background()

	sent, err := m.sendMessage(ctx, SendMessageRequest{RoomID: "d1", UserID: "u1", Content: ""}, nil)
	require.NoError(t, err)
	require.NotNil(t, sent.Error)
	assert.Equal(t, CodeInvalid, sent.Error.Code)
	assert.True(t, errors.Is(sent.Error, ErrInvalidInput))

	edited, err := m.editMessage(ctx, EditMessageRequest{RoomID: "d1", MessageID: "nope", Content: "x"}, nil)
	require.NoError(t, err)
	require.NotNil(t, edited.Error)
	assert.Equal(t, CodeNotFound, edited.Error.Code)

	history, err := m.getHistory(ctx, GetHistoryRequest{RoomID: "d1", Limit: 0}, nil)
	require.NoError(t, err)
	require.NotNil(t, history.Error)
	assert.Equal(t, CodeInvalid, history.Error.Code)

	env.mr.SetError("LOADING Redis is loading the dataset in memory")
	users, err := m.connectedUsers(ctx, RoomRequest{RoomID: "d1"}, nil)
	require.NoError(t, err)
	require.NotNil(t, users.Error)
	assert.Equal(t, CodeInternal, users.Error.Code)
	assert.Equal(t, "internal error", users.Error.Message)
}

func TestModule_RoomHandlers(t *testing.T) {
	m, _ := newTestModule(t)
	ctx := context.Background()

	created, err := m.createRoom(ctx, CreateRoomRequest{RoomID: "d1", Name: "Ops", CreatedBy: "u1"}, nil)
	require.NoError(t, err)
	require.Nil(t, created.Error)
	assert.Equal(t, "Ops", created.Room.Name)

	dup, err := m.createRoom(ctx, CreateRoomRequest{RoomID: "d1", Name: "Ops"}, nil)
	require.NoError(t, err)
	require.NotNil(t, dup.Error)
	assert.Equal(t, CodeConflict, dup.Error.Code)

	info, err := m.getRoomInfo(ctx, RoomRequest{RoomID: "d2"}, nil)
	require.NoError(t, err)
	require.Nil(t, info.Error)
	assert.Equal(t, "Dashboard d2", info.Info.Room.Name)

	list, err := m.listRooms(ctx, ListRoomsRequest{}, nil)
	require.NoError(t, err)
	require.Nil(t, list.Error)
	assert.Len(t, list.Rooms, 2)

	users, err := m.connectedUsers(ctx, RoomRequest{RoomID: "d1"}, nil)
	require.NoError(t, err)
	require.Nil(t, users.Error)
	assert.Empty(t, users.Users)
}
