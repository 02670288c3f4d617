package chat

import (
	domain "github.com/OwlBoard/Chat-Service/domain/chat"
)

// Request-reply service names.
const (
	ServiceGetHistory     = "get-history"
	ServiceSendMessage    = "send-message"
	ServiceEditMessage    = "edit-message"
	ServiceDeleteMessage  = "delete-message"
	ServiceClearHistory   = "clear-history"
	ServiceGetRoomInfo    = "get-room-info"
	ServiceConnectedUsers = "connected-users"
	ServiceCreateRoom     = "create-room"
	ServiceListRooms      = "list-rooms"
)

// Room name and description limits.
const (
	MaxRoomNameLength        = 100
	MaxRoomDescriptionLength = 500
)

// RoomInfo is a room together with its live occupancy.
type RoomInfo struct {
	Room              *domain.Room       `json:"room"`
	ConnectedUsers    []*domain.Presence `json:"connected_users"`
	MessageCount      int64              `json:"message_count"`
	ActiveConnections int                `json:"active_connections"`
}

// GetHistoryRequest asks for a page of room history.
type GetHistoryRequest struct {
	RoomID string `json:"room_id"`
	Skip   int    `json:"skip"`
	Limit  int    `json:"limit"`
}

// GetHistoryResponse is the reply to GetHistoryRequest.
type GetHistoryResponse struct {
	Messages []*domain.Message `json:"messages"`
	Error    *ServiceError     `json:"error,omitempty"`
}

// SendMessageRequest posts a message on behalf of a user.
type SendMessageRequest struct {
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Content     string `json:"content"`
	MessageType string `json:"message_type,omitempty"`
	ReplyTo     string `json:"reply_to,omitempty"`
}

// MessageResponse carries a single message.
type MessageResponse struct {
	Message *domain.Message `json:"message,omitempty"`
	Error   *ServiceError   `json:"error,omitempty"`
}

// EditMessageRequest replaces a message's content.
type EditMessageRequest struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

// DeleteMessageRequest soft-deletes a message.
type DeleteMessageRequest struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

// ClearHistoryRequest clears a room's history.
type ClearHistoryRequest struct {
	RoomID string `json:"room_id"`
}

// ClearHistoryResponse is the reply to ClearHistoryRequest.
type ClearHistoryResponse struct {
	ClearedCount int           `json:"cleared_count"`
	Error        *ServiceError `json:"error,omitempty"`
}

// RoomRequest names a room.
type RoomRequest struct {
	RoomID string `json:"room_id"`
}

// RoomInfoResponse is the reply to a room info request.
type RoomInfoResponse struct {
	Info  *RoomInfo     `json:"info,omitempty"`
	Error *ServiceError `json:"error,omitempty"`
}

// ConnectedUsersResponse lists the users present in a room.
type ConnectedUsersResponse struct {
	Users []*domain.Presence `json:"users"`
	Error *ServiceError      `json:"error,omitempty"`
}

// CreateRoomRequest creates a room explicitly.
type CreateRoomRequest struct {
	RoomID      string `json:"room_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"created_by"`
}

// RoomResponse carries a single room.
type RoomResponse struct {
	Room  *domain.Room  `json:"room,omitempty"`
	Error *ServiceError `json:"error,omitempty"`
}

// ListRoomsRequest lists every room.
type ListRoomsRequest struct{}

// ListRoomsResponse is the reply to ListRoomsRequest.
type ListRoomsResponse struct {
	Rooms []*domain.Room `json:"rooms"`
	Error *ServiceError  `json:"error,omitempty"`
}
