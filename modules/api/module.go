package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OwlBoard/Chat-Service/modules/chat"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// SessionServer runs the chat protocol on an accepted websocket.
type SessionServer interface {
	Serve(ctx context.Context, roomID, userID, username string, t chat.Transport)
}

// ConnectionCounter reports how many websocket clients are connected.
type ConnectionCounter interface {
	ClientCount() int
}

// Pinger checks the backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the HTTP server settings.
type Config struct {
	Addr        string
	CORSOrigins []string
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	cfg         Config
	app         *fiber.App
	chatAdapter chat.ChatPort
	sessions    SessionServer
	hub         ConnectionCounter
	store       Pinger
	logger      types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg Config, logger types.Logger) *APIModule {
	return &APIModule{
		cfg:    cfg,
		logger: logger.WithModule("api"),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"chat"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "chat":
		m.chatAdapter = chat.NewChatAdapter(container)
	}
}

// SetSessions sets the websocket session handler (called from main.go).
func (m *APIModule) SetSessions(sessions SessionServer) {
	m.sessions = sessions
}

// SetHub sets the connection counter (called from main.go).
func (m *APIModule) SetHub(hub ConnectionCounter) {
	m.hub = hub
}

// SetStore sets the store used by the health endpoint (called from main.go).
func (m *APIModule) SetStore(store Pinger) {
	m.store = store
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	switch {
	case m.chatAdapter == nil:
		return errors.New("chat adapter dependency not set")
	case m.sessions == nil:
		return errors.New("session handler dependency not set")
	case m.hub == nil:
		return errors.New("broadcast hub dependency not set")
	case m.store == nil:
		return errors.New("store dependency not set")
	}

	m.app = m.newApp()

	// Start server in goroutine
	go func() {
		if err := m.app.Listen(m.cfg.Addr); err != nil {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	m.logger.Info("HTTP server started", "addr", m.cfg.Addr)
	return nil
}

func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(m.cfg.CORSOrigins, ","),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(loggerMiddleware(m.logger))

	m.setupRoutes(app)
	return app
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"addr": m.cfg.Addr}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func loggerMiddleware(logger types.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip logging for WebSocket upgrade requests
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()
		logger.Debug("HTTP request",
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start))
		return err
	}
}
