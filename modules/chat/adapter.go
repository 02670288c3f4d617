package chat

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/OwlBoard/Chat-Service/domain/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ChatPort defines the chat operations available to other modules.
type ChatPort interface {
	History(ctx context.Context, roomID string, skip, limit int) ([]*domain.Message, error)
	SendMessage(ctx context.Context, req SendMessageRequest) (*domain.Message, error)
	EditMessage(ctx context.Context, roomID, messageID, content string) (*domain.Message, error)
	DeleteMessage(ctx context.Context, roomID, messageID string) (*domain.Message, error)
	ClearHistory(ctx context.Context, roomID string) (int, error)
	RoomInfo(ctx context.Context, roomID string) (*RoomInfo, error)
	ConnectedUsers(ctx context.Context, roomID string) ([]*domain.Presence, error)
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.Room, error)
	ListRooms(ctx context.Context) ([]*domain.Room, error)
}

// ChatAdapter implements ChatPort using the service container.
type ChatAdapter struct {
	container mono.ServiceContainer
}

// NewChatAdapter creates a new ChatAdapter.
func NewChatAdapter(container mono.ServiceContainer) ChatPort {
	if container == nil {
		panic("chat: ServiceContainer is nil")
	}
	return &ChatAdapter{container: container}
}

func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("call %s: %w", service, err)
	}
	return nil
}

// History returns a page of room history.
func (a *ChatAdapter) History(ctx context.Context, roomID string, skip, limit int) ([]*domain.Message, error) {
	req := GetHistoryRequest{RoomID: roomID, Skip: skip, Limit: limit}
	var resp GetHistoryResponse
	if err := call(ctx, a.container, ServiceGetHistory, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Messages, nil
}

// SendMessage persists and broadcasts a message.
func (a *ChatAdapter) SendMessage(ctx context.Context, req SendMessageRequest) (*domain.Message, error) {
	var resp MessageResponse
	if err := call(ctx, a.container, ServiceSendMessage, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Message, nil
}

// EditMessage replaces a message's content.
func (a *ChatAdapter) EditMessage(ctx context.Context, roomID, messageID, content string) (*domain.Message, error) {
	req := EditMessageRequest{RoomID: roomID, MessageID: messageID, Content: content}
	var resp MessageResponse
	if err := call(ctx, a.container, ServiceEditMessage, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Message, nil
}

// DeleteMessage soft-deletes a message.
func (a *ChatAdapter) DeleteMessage(ctx context.Context, roomID, messageID string) (*domain.Message, error) {
	req := DeleteMessageRequest{RoomID: roomID, MessageID: messageID}
	var resp MessageResponse
	if err := call(ctx, a.container, ServiceDeleteMessage, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Message, nil
}

// ClearHistory deletes a room's history and returns how many messages went.
func (a *ChatAdapter) ClearHistory(ctx context.Context, roomID string) (int, error) {
	req := ClearHistoryRequest{RoomID: roomID}
	var resp ClearHistoryResponse
	if err := call(ctx, a.container, ServiceClearHistory, &req, &resp); err != nil {
		return 0, err
	}
	if resp.Error != nil {
		return 0, resp.Error
	}
	return resp.ClearedCount, nil
}

// RoomInfo returns a room with its occupancy.
func (a *ChatAdapter) RoomInfo(ctx context.Context, roomID string) (*RoomInfo, error) {
	req := RoomRequest{RoomID: roomID}
	var resp RoomInfoResponse
	if err := call(ctx, a.container, ServiceGetRoomInfo, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Info, nil
}

// ConnectedUsers lists the users present in a room.
func (a *ChatAdapter) ConnectedUsers(ctx context.Context, roomID string) ([]*domain.Presence, error) {
	req := RoomRequest{RoomID: roomID}
	var resp ConnectedUsersResponse
	if err := call(ctx, a.container, ServiceConnectedUsers, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Users, nil
}

// CreateRoom creates a room explicitly.
func (a *ChatAdapter) CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.Room, error) {
	var resp RoomResponse
	if err := call(ctx, a.container, ServiceCreateRoom, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Room, nil
}

// ListRooms returns every room.
func (a *ChatAdapter) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	req := ListRoomsRequest{}
	var resp ListRoomsResponse
	if err := call(ctx, a.container, ServiceListRooms, &req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Rooms, nil
}
