package api

import (
	"context"
	"errors"
	"time"

	domain "github.com/OwlBoard/Chat-Service/domain/chat"
	"github.com/OwlBoard/Chat-Service/modules/chat"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	serviceName         = "chat_service"
	defaultHistoryLimit = 50

	// closeInvalidIDs is the websocket close code for a rejected room or user id.
	closeInvalidIDs = 4000
)

var validate = validator.New()

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/", m.serviceInfo)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/chat")
	api.Get("/health", m.healthHandler)

	// WebSocket endpoint
	api.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/ws/:room", websocket.New(m.handleWebSocket))

	api.Get("/messages/:room", m.getHistory)
	api.Post("/messages/:room", m.sendMessage)
	api.Delete("/messages/:room", m.clearHistory)
	api.Put("/messages/:room/:id", m.editMessage)
	api.Delete("/messages/:room/:id", m.deleteMessage)

	api.Get("/rooms", m.listRooms)
	api.Post("/rooms", m.createRoom)
	api.Get("/rooms/:room", m.getRoom)

	api.Get("/users/:room", m.connectedUsers)
}

// serviceInfo handles GET /.
func (m *APIModule) serviceInfo(c *fiber.Ctx) error {
	return c.JSON(ServiceInfoResponse{
		Service:   "OwlBoard Chat Service",
		Version:   "1.0.0",
		Status:    "running",
		WebSocket: "/chat/ws/{dashboard_id}?user_id={user_id}&username={username}",
	})
}

// healthHandler handles GET /chat/health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	resp := HealthResponse{
		Status:            "healthy",
		Service:           serviceName,
		Timestamp:         time.Now().UTC().Format(time.RFC3339Nano),
		Database:          "redis",
		ActiveConnections: m.hub.ClientCount(),
	}
	if err := m.store.Ping(c.UserContext()); err != nil {
		m.logger.Error("Health check failed", "error", err)
		resp.Status = "unhealthy"
		resp.Error = err.Error()
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

// handleWebSocket handles websocket connections at /chat/ws/:room.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	roomID := c.Params("room")
	q := connectQuery{
		UserID:   c.Query("user_id"),
		Username: c.Query("username"),
	}

	if domain.ValidateID(roomID) != nil || domain.ValidateID(q.UserID) != nil {
		m.logger.Warn("Rejecting websocket connection", "room", roomID, "user", q.UserID)
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeInvalidIDs, "Invalid IDs"),
			time.Now().Add(time.Second))
		_ = c.Close()
		return
	}
	if q.Username == "" {
		q.Username = q.UserID
	}

	m.sessions.Serve(context.Background(), roomID, q.UserID, q.Username, c)
}

// getHistory handles GET /chat/messages/:room.
func (m *APIModule) getHistory(c *fiber.Ctx) error {
	q := historyQuery{Limit: defaultHistoryLimit}
	if err := c.QueryParser(&q); err != nil {
		return badRequest(c, "Invalid query parameters")
	}
	if err := validate.Struct(q); err != nil {
		return badRequest(c, "limit must be 1..100 and skip must be >= 0")
	}

	messages, err := m.chatAdapter.History(c.UserContext(), c.Params("room"), q.Skip, q.Limit)
	if err != nil {
		return m.writeError(c, err)
	}
	if messages == nil {
		messages = []*domain.Message{}
	}
	return c.JSON(messages)
}

// sendMessage handles POST /chat/messages/:room.
func (m *APIModule) sendMessage(c *fiber.Ctx) error {
	var q sendMessageQuery
	if err := c.QueryParser(&q); err != nil {
		return badRequest(c, "Invalid query parameters")
	}
	if err := validate.Struct(q); err != nil {
		return badRequest(c, "user_id and content are required")
	}

	msg, err := m.chatAdapter.SendMessage(c.UserContext(), chat.SendMessageRequest{
		RoomID:      c.Params("room"),
		UserID:      q.UserID,
		Username:    q.Username,
		Content:     q.Content,
		MessageType: q.MessageType,
		ReplyTo:     q.ReplyTo,
	})
	if err != nil {
		return m.writeError(c, err)
	}
	return c.JSON(msg)
}

// editMessage handles PUT /chat/messages/:room/:id.
func (m *APIModule) editMessage(c *fiber.Ctx) error {
	var req EditMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "content is required")
	}

	msg, err := m.chatAdapter.EditMessage(c.UserContext(), c.Params("room"), c.Params("id"), req.Content)
	if err != nil {
		return m.writeError(c, err)
	}
	return c.JSON(msg)
}

// deleteMessage handles DELETE /chat/messages/:room/:id.
func (m *APIModule) deleteMessage(c *fiber.Ctx) error {
	msg, err := m.chatAdapter.DeleteMessage(c.UserContext(), c.Params("room"), c.Params("id"))
	if err != nil {
		return m.writeError(c, err)
	}
	return c.JSON(msg)
}

// clearHistory handles DELETE /chat/messages/:room.
func (m *APIModule) clearHistory(c *fiber.Ctx) error {
	roomID := c.Params("room")
	cleared, err := m.chatAdapter.ClearHistory(c.UserContext(), roomID)
	if err != nil {
		return m.writeError(c, err)
	}
	return c.JSON(ClearHistoryResponse{
		Status:       "success",
		ClearedCount: cleared,
		DashboardID:  roomID,
	})
}

// listRooms handles GET /chat/rooms.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	rooms, err := m.chatAdapter.ListRooms(c.UserContext())
	if err != nil {
		return m.writeError(c, err)
	}
	if rooms == nil {
		rooms = []*domain.Room{}
	}
	return c.JSON(rooms)
}

// createRoom handles POST /chat/rooms.
func (m *APIModule) createRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return badRequest(c, "id and name are required")
	}

	room, err := m.chatAdapter.CreateRoom(c.UserContext(), chat.CreateRoomRequest{
		RoomID:      req.ID,
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return m.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// getRoom handles GET /chat/rooms/:room.
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	info, err := m.chatAdapter.RoomInfo(c.UserContext(), c.Params("room"))
	if err != nil {
		return m.writeError(c, err)
	}
	return c.JSON(info)
}

// connectedUsers handles GET /chat/users/:room.
func (m *APIModule) connectedUsers(c *fiber.Ctx) error {
	users, err := m.chatAdapter.ConnectedUsers(c.UserContext(), c.Params("room"))
	if err != nil {
		return m.writeError(c, err)
	}
	if users == nil {
		users = []*domain.Presence{}
	}
	return c.JSON(users)
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   chat.CodeInvalid,
		Message: message,
	})
}

// writeError maps a chat error onto an HTTP status.
func (m *APIModule) writeError(c *fiber.Ctx, err error) error {
	var (
		status = fiber.StatusInternalServerError
		code   = chat.CodeInternal
		msg    = "Internal server error"
	)
	switch {
	case errors.Is(err, chat.ErrNotFound):
		status, code, msg = fiber.StatusNotFound, chat.CodeNotFound, err.Error()
	case errors.Is(err, chat.ErrInvalidInput):
		status, code, msg = fiber.StatusBadRequest, chat.CodeInvalid, err.Error()
	case errors.Is(err, chat.ErrConflict):
		status, code, msg = fiber.StatusConflict, chat.CodeConflict, err.Error()
	default:
		m.logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(ErrorResponse{Error: code, Message: msg})
}
