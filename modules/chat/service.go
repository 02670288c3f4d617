package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	domain "github.com/OwlBoard/Chat-Service/domain/chat"
	"github.com/OwlBoard/Chat-Service/events"
	"github.com/OwlBoard/Chat-Service/metrics"
	"github.com/OwlBoard/Chat-Service/modules/broadcast"
	"github.com/OwlBoard/Chat-Service/modules/store"
	"github.com/google/uuid"
)

// MaxHistoryPage bounds a single history read.
const MaxHistoryPage = 100

// Service implements the chat operations on top of the stores and the hub.
type Service struct {
	messages   *store.MessageStore
	presence   *store.PresenceStore
	rooms      *store.RoomStore
	hub        *broadcast.Hub
	maxContent int
	now        func() time.Time
}

// NewService creates a Service.
func NewService(
	messages *store.MessageStore,
	presence *store.PresenceStore,
	rooms *store.RoomStore,
	hub *broadcast.Hub,
	maxContent int,
) *Service {
	return &Service{
		messages:   messages,
		presence:   presence,
		rooms:      rooms,
		hub:        hub,
		maxContent: maxContent,
		now:        time.Now,
	}
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if err := domain.ValidateID(id); err != nil {
			return err
		}
	}
	return nil
}

// History returns up to limit messages starting skip entries from the oldest retained message.
func (s *Service) History(ctx context.Context, roomID string, skip, limit int) ([]*domain.Message, error) {
	if err := validateIDs(roomID); err != nil {
		return nil, err
	}
	if skip < 0 || limit < 1 || limit > MaxHistoryPage {
		return nil, fmt.Errorf("%w: skip must be >= 0 and limit in 1..%d", ErrInvalidInput, MaxHistoryPage)
	}
	return s.messages.GetRange(ctx, roomID, skip, limit)
}

// SendMessage validates, persists and broadcasts a message. Nothing is
// broadcast when persisting fails.
func (s *Service) SendMessage(ctx context.Context, req SendMessageRequest) (*domain.Message, error) {
	if err := validateIDs(req.RoomID, req.UserID); err != nil {
		return nil, err
	}
	content, err := domain.NormalizeContent(req.Content, s.maxContent)
	if err != nil {
		return nil, err
	}
	kind, err := domain.ParseMessageKind(req.MessageType)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:         uuid.New().String(),
		RoomID:     req.RoomID,
		SenderID:   req.UserID,
		SenderName: req.Username,
		Content:    content,
		Kind:       kind,
		CreatedAt:  s.now().UTC().Truncate(time.Microsecond),
		ReplyTo:    req.ReplyTo,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		metrics.RecordStoreError("message_append")
		return nil, err
	}
	metrics.RecordMessagePersisted()

	s.hub.Broadcast(ctx, msg.RoomID, events.ChatMessage(msg), "")
	return msg, nil
}

// EditMessage replaces a message's content and re-broadcasts it.
func (s *Service) EditMessage(ctx context.Context, roomID, messageID, content string) (*domain.Message, error) {
	if err := validateIDs(roomID, messageID); err != nil {
		return nil, err
	}
	content, err := domain.NormalizeContent(content, s.maxContent)
	if err != nil {
		return nil, err
	}

	current, err := s.messages.Get(ctx, roomID, messageID)
	if err != nil {
		return nil, err
	}
	if current.Deleted {
		return nil, fmt.Errorf("%w: message %s is deleted", ErrConflict, messageID)
	}

	msg, err := s.messages.Edit(ctx, roomID, messageID, content, s.now().UTC().Truncate(time.Microsecond))
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(ctx, roomID, events.ChatMessage(msg), "")
	return msg, nil
}

// DeleteMessage soft-deletes a message and re-broadcasts it.
func (s *Service) DeleteMessage(ctx context.Context, roomID, messageID string) (*domain.Message, error) {
	if err := validateIDs(roomID, messageID); err != nil {
		return nil, err
	}
	msg, err := s.messages.SoftDelete(ctx, roomID, messageID)
	if err != nil {
		return nil, err
	}
	s.hub.Broadcast(ctx, roomID, events.ChatMessage(msg), "")
	return msg, nil
}

// ClearHistory deletes the room history and announces messages_cleared.
func (s *Service) ClearHistory(ctx context.Context, roomID string) (int, error) {
	if err := validateIDs(roomID); err != nil {
		return 0, err
	}
	cleared, err := s.messages.Clear(ctx, roomID)
	if err != nil {
		metrics.RecordStoreError("message_clear")
		return 0, err
	}
	s.hub.Broadcast(ctx, roomID, events.MessagesCleared(roomID, cleared, s.now()), "")
	return cleared, nil
}

// RoomInfo returns the room, creating it on first access, with its occupancy.
func (s *Service) RoomInfo(ctx context.Context, roomID string) (*RoomInfo, error) {
	if err := validateIDs(roomID); err != nil {
		return nil, err
	}
	room, err := s.rooms.GetOrCreate(ctx, roomID)
	if err != nil {
		return nil, err
	}
	users, err := s.presence.List(ctx, roomID)
	if err != nil {
		return nil, err
	}
	count, err := s.messages.Count(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return &RoomInfo{
		Room:              room,
		ConnectedUsers:    users,
		MessageCount:      count,
		ActiveConnections: s.hub.RoomClientCount(roomID),
	}, nil
}

// ConnectedUsers lists the users present in a room.
func (s *Service) ConnectedUsers(ctx context.Context, roomID string) ([]*domain.Presence, error) {
	if err := validateIDs(roomID); err != nil {
		return nil, err
	}
	return s.presence.List(ctx, roomID)
}

// CreateRoom stores a room with an explicit name.
func (s *Service) CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.Room, error) {
	if err := validateIDs(req.RoomID); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || utf8.RuneCountInString(name) > MaxRoomNameLength {
		return nil, fmt.Errorf("%w: room name must be 1..%d characters", ErrInvalidInput, MaxRoomNameLength)
	}
	if utf8.RuneCountInString(req.Description) > MaxRoomDescriptionLength {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrInvalidInput, MaxRoomDescriptionLength)
	}
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = req.RoomID
	}

	room := &domain.Room{
		ID:          req.RoomID,
		Name:        name,
		Description: req.Description,
		CreatedBy:   createdBy,
		Active:      true,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// ListRooms returns every stored room.
func (s *Service) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	return s.rooms.List(ctx)
}
