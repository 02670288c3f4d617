package events

import (
	"time"

	domain "github.com/OwlBoard/Chat-Service/domain/chat"
)

// FrameType identifies an outbound websocket frame.
type FrameType string

const (
	FrameChatMessage     FrameType = "chat_message"
	FrameUserJoined      FrameType = "user_joined"
	FrameUserLeft        FrameType = "user_left"
	FrameTyping          FrameType = "typing"
	FrameMessagesCleared FrameType = "messages_cleared"
)

// Frame is the envelope sent to websocket clients.
type Frame struct {
	Type FrameType `json:"type"`
	Data any       `json:"data"`
}

// ChatMessageData is the payload of a chat_message frame.
type ChatMessageData struct {
	ID          string  `json:"id"`
	DashboardID string  `json:"dashboard_id"`
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	Content     string  `json:"content"`
	MessageType string  `json:"message_type"`
	Timestamp   string  `json:"timestamp"`
	ReplyTo     string  `json:"reply_to,omitempty"`
	EditedAt    *string `json:"edited_at,omitempty"`
	IsDeleted   bool    `json:"is_deleted,omitempty"`
}

// PresenceData is the payload of user_joined and user_left frames.
type PresenceData struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
}

// TypingData is the payload of a typing frame.
type TypingData struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	IsTyping  bool   `json:"is_typing"`
	Timestamp string `json:"timestamp"`
}

// MessagesClearedData is the payload of a messages_cleared frame.
type MessagesClearedData struct {
	DashboardID  string `json:"dashboard_id"`
	ClearedCount int    `json:"cleared_count"`
	Timestamp    string `json:"timestamp"`
}

// ISOTime renders t as an ISO-8601 UTC timestamp.
func ISOTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ChatMessage builds the chat_message frame for a stored message.
func ChatMessage(m *domain.Message) Frame {
	data := ChatMessageData{
		ID:          m.ID,
		DashboardID: m.RoomID,
		UserID:      m.SenderID,
		Username:    m.SenderName,
		Content:     m.Content,
		MessageType: string(m.Kind),
		Timestamp:   ISOTime(m.CreatedAt),
		ReplyTo:     m.ReplyTo,
		IsDeleted:   m.Deleted,
	}
	if m.EditedAt != nil {
		s := ISOTime(*m.EditedAt)
		data.EditedAt = &s
	}
	return Frame{Type: FrameChatMessage, Data: data}
}

// UserJoined builds the user_joined frame.
func UserJoined(userID, username string, at time.Time) Frame {
	return Frame{Type: FrameUserJoined, Data: PresenceData{UserID: userID, Username: username, Timestamp: ISOTime(at)}}
}

// UserLeft builds the user_left frame.
func UserLeft(userID, username string, at time.Time) Frame {
	return Frame{Type: FrameUserLeft, Data: PresenceData{UserID: userID, Username: username, Timestamp: ISOTime(at)}}
}

// Typing builds the typing frame relayed to the rest of the room.
func Typing(userID, username string, isTyping bool, at time.Time) Frame {
	return Frame{Type: FrameTyping, Data: TypingData{UserID: userID, Username: username, IsTyping: isTyping, Timestamp: ISOTime(at)}}
}

// MessagesCleared builds the messages_cleared frame announcing count deleted records.
func MessagesCleared(roomID string, count int, at time.Time) Frame {
	return Frame{Type: FrameMessagesCleared, Data: MessagesClearedData{DashboardID: roomID, ClearedCount: count, Timestamp: ISOTime(at)}}
}
