package broadcast

import (
	"context"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module owns the connection registry and the broadcast hub.
type Module struct {
	hub    *Hub
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new broadcast module.
func NewModule(presence PresenceRemover, writeTimeout time.Duration, logger types.Logger) *Module {
	logger = logger.WithModule("broadcast")
	return &Module{
		hub:    NewHub(NewRegistry(), presence, writeTimeout, logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "broadcast"
}

// Start starts the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Module started")
	return nil
}

// Stop closes every connection and waits for pending evictions and for the
// sessions of the closed connections to finish their teardown.
func (m *Module) Stop(ctx context.Context) error {
	closed := m.hub.CloseAll()

	done := make(chan struct{})
	go func() {
		m.hub.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Timed out waiting for connection teardown", "error", ctx.Err())
	}

	m.logger.Info("Module stopped", "closedClients", closed)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"rooms":             len(m.hub.Registry().RoomCounts()),
		},
	}
}

// GetHub returns the hub for the modules that accept connections.
func (m *Module) GetHub() *Hub {
	return m.hub
}
