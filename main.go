package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/OwlBoard/Chat-Service/config"
	"github.com/OwlBoard/Chat-Service/modules/api"
	"github.com/OwlBoard/Chat-Service/modules/broadcast"
	"github.com/OwlBoard/Chat-Service/modules/chat"
	"github.com/OwlBoard/Chat-Service/modules/store"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := mono.LogLevelInfo
	if strings.EqualFold(cfg.LogLevel, "error") {
		logLevel = mono.LogLevelError
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// Create modules
	storeModule, err := store.NewModule(store.Config{
		RedisURL:        cfg.RedisURL,
		PoolSize:        cfg.RedisPoolSize,
		DialTimeout:     cfg.RedisDialTimeout,
		HistoryLimit:    cfg.MessageHistoryLimit,
		MessageTTL:      cfg.MessageTTL,
		PresenceTTL:     cfg.PresenceTTL,
		MaxUsersPerRoom: cfg.MaxUsersPerRoom,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create store module: %v", err)
	}
	broadcastModule := broadcast.NewModule(storeModule.Presence(), cfg.WSWriteTimeout, logger)
	hub := broadcastModule.GetHub()

	service := chat.NewService(
		storeModule.Messages(),
		storeModule.Presence(),
		storeModule.Rooms(),
		hub,
		cfg.MaxMessageLength,
	)
	sessions := chat.NewSessionHandler(service, hub, storeModule.Presence(), cfg.PresenceRefreshOnActivity, logger.WithModule("session"))
	chatModule := chat.NewModule(service, sessions, logger)

	apiModule := api.NewModule(api.Config{
		Addr:        cfg.Addr(),
		CORSOrigins: cfg.CORSOrigins,
	}, logger)

	// Hub, sessions and store are not exposed via ServiceContainer
	apiModule.SetSessions(chatModule.Sessions())
	apiModule.SetHub(hub)
	apiModule.SetStore(storeModule)

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - store: Redis client and the message, presence and room stores
	// - broadcast: connection registry and per-room fan-out
	// - chat: core domain (ServiceProviderModule) and websocket sessions
	// - api: Fiber HTTP/WebSocket server, depends on chat
	if err := app.Register(storeModule); err != nil {
		log.Fatalf("Failed to register store module: %v", err)
	}
	if err := app.Register(broadcastModule); err != nil {
		log.Fatalf("Failed to register broadcast module: %v", err)
	}
	if err := app.Register(chatModule); err != nil {
		log.Fatalf("Failed to register chat module: %v", err)
	}
	if err := app.Register(apiModule); err != nil {
		log.Fatalf("Failed to register API module: %v", err)
	}

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	logger.Info("Chat service started",
		"addr", cfg.Addr(),
		"websocket", "/chat/ws/{dashboard_id}?user_id={user_id}&username={username}",
		"historyLimit", cfg.MessageHistoryLimit,
		"presenceTTL", cfg.PresenceTTL)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				logger.Info("Graceful shutdown initiated")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("Application exited", "code", exitCode)
	os.Exit(exitCode)
}
