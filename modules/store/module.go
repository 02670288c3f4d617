package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// Config holds the store module settings.
type Config struct {
	RedisURL        string
	PoolSize        int
	DialTimeout     time.Duration
	HistoryLimit    int
	MessageTTL      time.Duration
	PresenceTTL     time.Duration
	MaxUsersPerRoom int
}

// Module owns the Redis connection and the stores built on it.
type Module struct {
	cfg      Config
	client   *redis.Client
	messages *MessageStore
	presence *PresenceStore
	rooms    *RoomStore
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new store module. The connection is verified in Start.
func NewModule(cfg Config, logger types.Logger) (*Module, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = 5
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	return &Module{
		cfg:      cfg,
		client:   client,
		messages: NewMessageStore(client, cfg.HistoryLimit, cfg.MessageTTL),
		presence: NewPresenceStore(client, cfg.PresenceTTL),
		rooms:    NewRoomStore(client, cfg.MaxUsersPerRoom),
		logger:   logger.WithModule("store"),
	}, nil
}

// Name returns the module name.
func (m *Module) Name() string {
	return "store"
}

// Start verifies the Redis connection. An unreachable Redis is fatal.
func (m *Module) Start(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, m.cfg.DialTimeout)
	defer cancel()
	if err := m.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	opts := m.client.Options()
	m.logger.Info("Connected to Redis",
		"addr", opts.Addr,
		"db", opts.DB,
		"historyLimit", m.cfg.HistoryLimit,
		"messageTTL", m.cfg.MessageTTL.String(),
		"presenceTTL", m.cfg.PresenceTTL.String())
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if err := m.client.Close(); err != nil {
		m.logger.Error("Error closing Redis connection", "error", err)
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	m.logger.Info("Module stopped")
	return nil
}

// Health pings Redis.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if err := m.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: err.Error(),
		}
	}
	stats := m.client.PoolStats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"pool_total_conns": stats.TotalConns,
			"pool_idle_conns":  stats.IdleConns,
		},
	}
}

// Ping checks the Redis connection.
func (m *Module) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Messages returns the message store.
func (m *Module) Messages() *MessageStore {
	return m.messages
}

// Presence returns the presence store.
func (m *Module) Presence() *PresenceStore {
	return m.presence
}

// Rooms returns the room store.
func (m *Module) Rooms() *RoomStore {
	return m.rooms
}
