package api

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status            string `json:"status"`
	Service           string `json:"service"`
	Timestamp         string `json:"timestamp"`
	Database          string `json:"database,omitempty"`
	ActiveConnections int    `json:"active_connections"`
	Error             string `json:"error,omitempty"`
}

// ServiceInfoResponse describes the service at GET /.
type ServiceInfoResponse struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Status    string `json:"status"`
	WebSocket string `json:"websocket"`
}

// ClearHistoryResponse is returned after a room's history is cleared.
type ClearHistoryResponse struct {
	Status       string `json:"status"`
	ClearedCount int    `json:"cleared_count"`
	DashboardID  string `json:"dashboard_id"`
}

// CreateRoomRequest is the API request to create a room.
type CreateRoomRequest struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	CreatedBy   string `json:"created_by"`
}

// EditMessageRequest is the API request to edit a message.
type EditMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

// historyQuery holds the query parameters of GET /chat/messages/:room.
type historyQuery struct {
	Limit int `query:"limit" validate:"min=1,max=100"`
	Skip  int `query:"skip" validate:"min=0"`
}

// sendMessageQuery holds the query parameters of POST /chat/messages/:room.
type sendMessageQuery struct {
	UserID      string `query:"user_id" validate:"required"`
	Username    string `query:"username"`
	Content     string `query:"content" validate:"required"`
	MessageType string `query:"message_type"`
	ReplyTo     string `query:"reply_to"`
}

// connectQuery holds the query parameters of the websocket endpoint.
type connectQuery struct {
	UserID   string
	Username string
}
