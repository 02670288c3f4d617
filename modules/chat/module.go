package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module exposes the chat operations as request-reply services and owns the
// websocket session handler.
type Module struct {
	service  *Service
	sessions *SessionHandler
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new chat module.
func NewModule(service *Service, sessions *SessionHandler, logger types.Logger) *Module {
	return &Module{
		service:  service,
		sessions: sessions,
		logger:   logger.WithModule("chat"),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetHistory, json.Unmarshal, json.Marshal, m.getHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetHistory, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceSendMessage, json.Unmarshal, json.Marshal, m.sendMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceSendMessage, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceEditMessage, json.Unmarshal, json.Marshal, m.editMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceEditMessage, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDeleteMessage, json.Unmarshal, json.Marshal, m.deleteMessage,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDeleteMessage, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceClearHistory, json.Unmarshal, json.Marshal, m.clearHistory,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceClearHistory, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceGetRoomInfo, json.Unmarshal, json.Marshal, m.getRoomInfo,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetRoomInfo, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceConnectedUsers, json.Unmarshal, json.Marshal, m.connectedUsers,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceConnectedUsers, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreateRoom, json.Unmarshal, json.Marshal, m.createRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreateRoom, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceListRooms, json.Unmarshal, json.Marshal, m.listRooms,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceListRooms, err)
	}

	m.logger.Info("Registered chat services")
	return nil
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Module started")
	return nil
}

// Stop stops the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.service != nil && m.sessions != nil,
		Message: "operational",
	}
}

// Sessions returns the websocket session handler.
func (m *Module) Sessions() *SessionHandler {
	return m.sessions
}

// Service returns the chat service.
func (m *Module) Service() *Service {
	return m.service
}

// fail converts err for a response and logs causes that are not the caller's fault.
func (m *Module) fail(op string, err error) *ServiceError {
	se := toServiceError(err)
	if se.Code == CodeInternal {
		m.logger.Error("Chat service failed", "operation", op, "error", err)
	}
	return se
}

func (m *Module) getHistory(ctx context.Context, req GetHistoryRequest, _ *mono.Msg) (GetHistoryResponse, error) {
	messages, err := m.service.History(ctx, req.RoomID, req.Skip, req.Limit)
	if err != nil {
		return GetHistoryResponse{Error: m.fail(ServiceGetHistory, err)}, nil
	}
	return GetHistoryResponse{Messages: messages}, nil
}

func (m *Module) sendMessage(ctx context.Context, req SendMessageRequest, _ *mono.Msg) (MessageResponse, error) {
	msg, err := m.service.SendMessage(ctx, req)
	if err != nil {
		return MessageResponse{Error: m.fail(ServiceSendMessage, err)}, nil
	}
	return MessageResponse{Message: msg}, nil
}

func (m *Module) editMessage(ctx context.Context, req EditMessageRequest, _ *mono.Msg) (MessageResponse, error) {
	msg, err := m.service.EditMessage(ctx, req.RoomID, req.MessageID, req.Content)
	if err != nil {
		return MessageResponse{Error: m.fail(ServiceEditMessage, err)}, nil
	}
	return MessageResponse{Message: msg}, nil
}

func (m *Module) deleteMessage(ctx context.Context, req DeleteMessageRequest, _ *mono.Msg) (MessageResponse, error) {
	msg, err := m.service.DeleteMessage(ctx, req.RoomID, req.MessageID)
	if err != nil {
		return MessageResponse{Error: m.fail(ServiceDeleteMessage, err)}, nil
	}
	return MessageResponse{Message: msg}, nil
}

func (m *Module) clearHistory(ctx context.Context, req ClearHistoryRequest, _ *mono.Msg) (ClearHistoryResponse, error) {
	cleared, err := m.service.ClearHistory(ctx, req.RoomID)
	if err != nil {
		return ClearHistoryResponse{Error: m.fail(ServiceClearHistory, err)}, nil
	}
	m.logger.Info("Cleared room history", "room", req.RoomID, "cleared", cleared)
	return ClearHistoryResponse{ClearedCount: cleared}, nil
}

func (m *Module) getRoomInfo(ctx context.Context, req RoomRequest, _ *mono.Msg) (RoomInfoResponse, error) {
	info, err := m.service.RoomInfo(ctx, req.RoomID)
	if err != nil {
		return RoomInfoResponse{Error: m.fail(ServiceGetRoomInfo, err)}, nil
	}
	return RoomInfoResponse{Info: info}, nil
}

func (m *Module) connectedUsers(ctx context.Context, req RoomRequest, _ *mono.Msg) (ConnectedUsersResponse, error) {
	users, err := m.service.ConnectedUsers(ctx, req.RoomID)
	if err != nil {
		return ConnectedUsersResponse{Error: m.fail(ServiceConnectedUsers, err)}, nil
	}
	return ConnectedUsersResponse{Users: users}, nil
}

func (m *Module) createRoom(ctx context.Context, req CreateRoomRequest, _ *mono.Msg) (RoomResponse, error) {
	room, err := m.service.CreateRoom(ctx, req)
	if err != nil {
		return RoomResponse{Error: m.fail(ServiceCreateRoom, err)}, nil
	}
	return RoomResponse{Room: room}, nil
}

func (m *Module) listRooms(ctx context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	rooms, err := m.service.ListRooms(ctx)
	if err != nil {
		return ListRoomsResponse{Error: m.fail(ServiceListRooms, err)}, nil
	}
	return ListRoomsResponse{Rooms: rooms}, nil
}
