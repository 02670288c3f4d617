package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/OwlBoard/Chat-Service/events"
	"github.com/OwlBoard/Chat-Service/metrics"
	"github.com/go-monolith/mono/pkg/types"
)

// PresenceRemover deletes a user's presence record for a room.
type PresenceRemover interface {
	Remove(ctx context.Context, roomID, userID string) error
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// Hub fans frames out to the clients of a room.
//
// Broadcasts to the same room are serialized, so every recipient observes a
// room's frames in the order they were issued. A failed write evicts only the
// failing client: it is unregistered, its presence removed and user_left
// announced, asynchronously.
type Hub struct {
	registry     *Registry
	presence     PresenceRemover
	writeTimeout time.Duration
	logger       types.Logger
	now          func() time.Time

	locksMu sync.Mutex
	locks   map[string]*roomLock

	evictions sync.WaitGroup
	sessions  sync.WaitGroup
}

// NewHub creates a Hub.
func NewHub(registry *Registry, presence PresenceRemover, writeTimeout time.Duration, logger types.Logger) *Hub {
	return &Hub{
		registry:     registry,
		presence:     presence,
		writeTimeout: writeTimeout,
		logger:       logger,
		now:          time.Now,
		locks:        make(map[string]*roomLock),
	}
}

// Registry returns the connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Connect registers c. A client previously registered for the same room and
// user is closed; its own teardown will then find it unregistered and skip the
// presence removal and user_left announcement.
func (h *Hub) Connect(c *Client) {
	replaced := h.registry.Register(c)
	if replaced == nil {
		metrics.RecordConnectionOpened()
		h.logger.Info("Client registered", "room", c.RoomID, "user", c.UserID, "client", c.ID)
		return
	}
	h.logger.Info("Client replaced",
		"room", c.RoomID,
		"user", c.UserID,
		"client", c.ID,
		"replaced", replaced.ID)
	if err := replaced.Close(); err != nil {
		h.logger.Debug("Error closing replaced client", "client", replaced.ID, "error", err)
	}
}

// Disconnect unregisters and closes c. If c was still registered its presence
// is removed and user_left is broadcast to the room; it reports whether that
// happened.
func (h *Hub) Disconnect(ctx context.Context, c *Client) bool {
	entry, ok := h.registry.Unregister(c)
	_ = c.Close()
	if !ok {
		return false
	}
	metrics.RecordConnectionClosed()

	c.presenceMu.Lock()
	err := h.presence.Remove(ctx, entry.RoomID, entry.UserID)
	c.presenceMu.Unlock()
	if err != nil {
		metrics.RecordStoreError("presence_remove")
		h.logger.Error("Failed to remove presence", "room", entry.RoomID, "user", entry.UserID, "error", err)
	}
	h.Broadcast(ctx, entry.RoomID, events.UserLeft(entry.UserID, entry.Username, h.now()), "")
	h.logger.Info("Client unregistered", "room", entry.RoomID, "user", entry.UserID, "client", c.ID)
	return true
}

// Registered reports whether c is still the registered client for its room and user.
func (h *Hub) Registered(c *Client) bool {
	return h.registry.Has(c)
}

// WhileRegistered runs fn only if c is still registered. Disconnect's presence
// removal never overlaps fn, so a presence write made by fn cannot outlive the
// client's registration.
func (h *Hub) WhileRegistered(c *Client, fn func()) bool {
	c.presenceMu.Lock()
	defer c.presenceMu.Unlock()
	if !h.registry.Has(c) {
		return false
	}
	fn()
	return true
}

// TrackSession records a running connection handler. The returned func must
// be called when the handler has finished its teardown.
func (h *Hub) TrackSession() (done func()) {
	h.sessions.Add(1)
	return h.sessions.Done
}

// Broadcast sends frame to every client in the room except excludeUserID
// (empty excludes nobody) and returns how many writes succeeded. Write
// failures never abort delivery to the remaining clients.
func (h *Hub) Broadcast(ctx context.Context, roomID string, frame events.Frame, excludeUserID string) int {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Failed to marshal frame", "type", frame.Type, "error", err)
		return 0
	}

	unlock := h.lockRoom(roomID)
	defer unlock()

	delivered := 0
	for _, c := range h.registry.List(roomID) {
		if excludeUserID != "" && c.UserID == excludeUserID {
			continue
		}
		if err := c.Send(data, h.writeTimeout); err != nil {
			metrics.RecordSendFailure()
			h.logger.Warn("Failed to send frame, evicting client",
				"room", roomID,
				"user", c.UserID,
				"client", c.ID,
				"type", frame.Type,
				"error", err)
			h.evict(ctx, c)
			continue
		}
		delivered++
	}
	metrics.RecordBroadcast(string(frame.Type))
	return delivered
}

func (h *Hub) evict(ctx context.Context, c *Client) {
	ctx = context.WithoutCancel(ctx)
	h.evictions.Add(1)
	go func() {
		defer h.evictions.Done()
		h.Disconnect(ctx, c)
	}()
}

func (h *Hub) lockRoom(roomID string) func() {
	h.locksMu.Lock()
	l, ok := h.locks[roomID]
	if !ok {
		l = &roomLock{}
		h.locks[roomID] = l
	}
	l.refs++
	h.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		h.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.locks, roomID)
		}
		h.locksMu.Unlock()
	}
}

// CloseAll closes every registered client. Their protocol handlers observe the
// closed transport and tear themselves down.
func (h *Hub) CloseAll() int {
	clients := h.registry.All()
	for _, c := range clients {
		_ = c.Close()
	}
	return len(clients)
}

// Wait blocks until pending evictions and tracked sessions have finished.
func (h *Hub) Wait() {
	h.evictions.Wait()
	h.sessions.Wait()
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	return h.registry.Count()
}

// RoomClientCount returns the number of clients in a room.
func (h *Hub) RoomClientCount(roomID string) int {
	return h.registry.RoomCount(roomID)
}
