package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MessageKind classifies a message payload.
type MessageKind string

const (
	KindText   MessageKind = "text"
	KindImage  MessageKind = "image"
	KindFile   MessageKind = "file"
	KindSystem MessageKind = "system"
)

// PresenceStatus is a user's status within a room.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
	StatusAway    PresenceStatus = "away"
)

var (
	ErrEmptyContent      = errors.New("message content cannot be empty")
	ErrContentTooLong    = errors.New("message content exceeds maximum length")
	ErrInvalidKind       = errors.New("invalid message type")
	ErrInvalidStatus     = errors.New("invalid presence status")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrMalformedRecord   = errors.New("malformed stored record")
)

// ParseMessageKind maps a wire value to a MessageKind. An empty value means text.
func ParseMessageKind(s string) (MessageKind, error) {
	switch k := MessageKind(s); k {
	case "":
		return KindText, nil
	case KindText, KindImage, KindFile, KindSystem:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// ParsePresenceStatus maps a wire value to a PresenceStatus.
func ParsePresenceStatus(s string) (PresenceStatus, error) {
	switch st := PresenceStatus(s); st {
	case StatusOnline, StatusOffline, StatusAway:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// NormalizeContent trims surrounding whitespace and enforces 1..maxLen characters.
func NormalizeContent(raw string, maxLen int) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", ErrEmptyContent
	}
	if utf8.RuneCountInString(content) > maxLen {
		return "", ErrContentTooLong
	}
	return content, nil
}

// Message is a chat message stored in a room's history.
// RoomID and SenderID never change after creation.
type Message struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"dashboard_id"`
	SenderID   string      `json:"user_id"`
	SenderName string      `json:"username"`
	Content    string      `json:"content"`
	Kind       MessageKind `json:"message_type"`
	CreatedAt  time.Time   `json:"timestamp"`
	EditedAt   *time.Time  `json:"edited_at,omitempty"`
	Deleted    bool        `json:"is_deleted"`
	ReplyTo    string      `json:"reply_to,omitempty"`
}

// Room is the chat room owned by a dashboard. Its ID equals the dashboard ID.
type Room struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
	Active      bool      `json:"is_active"`
	MaxUsers    int       `json:"max_users"`
}

// DefaultRoomName is the display name given to lazily created rooms.
func DefaultRoomName(roomID string) string {
	return "Dashboard " + roomID
}

// Presence records that a user is connected to a room.
type Presence struct {
	UserID      string         `json:"user_id"`
	RoomID      string         `json:"dashboard_id"`
	Username    string         `json:"username"`
	Status      PresenceStatus `json:"status"`
	ConnectedAt time.Time      `json:"connected_at"`
	LastSeen    time.Time      `json:"last_seen"`
	SocketID    string         `json:"socket_id,omitempty"`
}
