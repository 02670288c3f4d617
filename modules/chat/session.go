package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/OwlBoard/Chat-Service/domain/chat"
	"github.com/OwlBoard/Chat-Service/events"
	"github.com/OwlBoard/Chat-Service/metrics"
	"github.com/OwlBoard/Chat-Service/modules/broadcast"
	"github.com/OwlBoard/Chat-Service/modules/store"
	"github.com/go-monolith/mono/pkg/types"
)

// Transport is an accepted bidirectional connection.
type Transport interface {
	broadcast.Conn
	ReadMessage() (messageType int, p []byte, err error)
}

// SessionState is the lifecycle state of one connection.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateActive
	StateTerminated
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// SessionHandler runs the protocol for accepted connections.
type SessionHandler struct {
	service         *Service
	hub             *broadcast.Hub
	presence        *store.PresenceStore
	refreshPresence bool
	logger          types.Logger
	now             func() time.Time
}

// NewSessionHandler creates a SessionHandler. When refreshPresence is set,
// inbound activity refreshes the presence record's expiry.
func NewSessionHandler(service *Service, hub *broadcast.Hub, presence *store.PresenceStore, refreshPresence bool, logger types.Logger) *SessionHandler {
	return &SessionHandler{
		service:         service,
		hub:             hub,
		presence:        presence,
		refreshPresence: refreshPresence,
		logger:          logger,
		now:             time.Now,
	}
}

type session struct {
	h        *SessionHandler
	client   *broadcast.Client
	state    SessionState
	username string
	logger   types.Logger
}

// Serve runs one connection until its transport closes. The caller must have
// validated roomID and userID.
func (h *SessionHandler) Serve(ctx context.Context, roomID, userID, username string, t Transport) {
	s := &session{
		h:        h,
		client:   broadcast.NewClient(roomID, userID, username, t),
		state:    StateConnecting,
		username: username,
	}
	s.logger = h.logger.With("room", roomID, "user", userID, "client", s.client.ID)

	done := h.hub.TrackSession()
	defer done()

	s.open(ctx)
	defer s.terminate(ctx)

	for {
		_, data, err := t.ReadMessage()
		if err != nil {
			s.logger.Debug("Transport closed", "error", err)
			return
		}
		s.handle(ctx, data)
	}
}

func (s *session) open(ctx context.Context) {
	s.h.hub.Connect(s.client)
	s.h.hub.WhileRegistered(s.client, func() { s.putPresence(ctx) })
	s.h.hub.Broadcast(ctx, s.client.RoomID, events.UserJoined(s.client.UserID, s.username, s.h.now()), "")
	s.state = StateActive
	s.logger.Info("Session active")
}

func (s *session) putPresence(ctx context.Context) {
	now := s.h.now().UTC()
	err := s.h.presence.Put(ctx, &domain.Presence{
		UserID:      s.client.UserID,
		RoomID:      s.client.RoomID,
		Username:    s.username,
		Status:      domain.StatusOnline,
		ConnectedAt: now,
		LastSeen:    now,
		SocketID:    s.client.ID,
	})
	if err != nil {
		metrics.RecordStoreError("presence_put")
		s.logger.Error("Failed to store presence", "error", err)
	}
}

func (s *session) terminate(ctx context.Context) {
	if s.state == StateTerminated {
		return
	}
	s.state = StateTerminated
	if !s.h.hub.Disconnect(context.WithoutCancel(ctx), s.client) {
		s.logger.Debug("Session already unregistered")
	}
	s.logger.Info("Session terminated")
}

// handle processes one inbound frame. Failures are logged and never end the session.
func (s *session) handle(ctx context.Context, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while handling frame", "panic", r)
		}
	}()

	// An evicted or replaced client may still have frames queued on its transport.
	if !s.h.hub.Registered(s.client) {
		metrics.RecordDropped("unregistered")
		s.logger.Debug("Dropping frame from unregistered client")
		return
	}

	if s.h.refreshPresence {
		s.touchPresence(ctx)
	}

	frame, err := ParseFrame(data)
	if err != nil {
		metrics.RecordDropped("malformed")
		s.logger.Warn("Dropping malformed frame", "error", err)
		return
	}

	switch frame.Kind {
	case FrameChatMessage:
		s.handleChat(ctx, frame.Chat)
	case FrameTyping:
		s.h.hub.Broadcast(ctx, s.client.RoomID,
			events.Typing(s.client.UserID, s.username, frame.Typing.IsTyping, s.h.now()),
			s.client.UserID)
	case FrameUnknown:
		metrics.RecordDropped("unknown_type")
		s.logger.Warn("Ignoring frame with unknown type", "type", frame.RawType)
	}
}

func (s *session) handleChat(ctx context.Context, p *ChatPayload) {
	_, err := s.h.service.SendMessage(ctx, SendMessageRequest{
		RoomID:      s.client.RoomID,
		UserID:      s.client.UserID,
		Username:    s.username,
		Content:     p.Content,
		MessageType: p.MessageType,
		ReplyTo:     p.ReplyTo,
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEmptyContent), errors.Is(err, domain.ErrContentTooLong):
		metrics.RecordDropped("invalid_content")
		s.logger.Warn("Dropping chat message", "error", err)
	case errors.Is(err, domain.ErrInvalidKind):
		metrics.RecordDropped("invalid_message_type")
		s.logger.Warn("Dropping chat message", "error", err)
	default:
		s.logger.Error("Failed to persist chat message", "error", err)
	}
}

func (s *session) touchPresence(ctx context.Context) {
	ok, err := s.h.presence.Touch(ctx, s.client.RoomID, s.client.UserID, s.h.now().UTC())
	if err != nil {
		metrics.RecordStoreError("presence_touch")
		s.logger.Error("Failed to refresh presence", "error", err)
		return
	}
	if !ok {
		// The record expired while the socket stayed open.
		s.h.hub.WhileRegistered(s.client, func() { s.putPresence(ctx) })
	}
}
