// Package core provides the application context and component lifecycle of
// shadowbot.
package core

import (
	"log/slog"
	"sync"
)

// AppContext carries shared resources available to components at wiring
// time and at runtime. It is constructed once at startup.
type AppContext struct {
	// Logger for the current component scope.
	Logger *slog.Logger

	// DataDir is the root directory for persistent data.
	DataDir string

	parentLogger *slog.Logger
	services     *serviceRegistry
}

type serviceRegistry struct {
	mu    sync.RWMutex
	items map[string]any
}

// NewAppContext creates a new AppContext with the given base logger and data directory.
func NewAppContext(logger *slog.Logger, dataDir string) *AppContext {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppContext{
		Logger:       logger,
		DataDir:      dataDir,
		parentLogger: logger,
		services:     &serviceRegistry{items: make(map[string]any)},
	}
}

// ForModule returns a new AppContext scoped to the given component ID,
// with a child logger that includes the ID. Services are shared.
func (ctx *AppContext) ForModule(id ModuleID) *AppContext {
	return &AppContext{
		Logger:       ctx.parentLogger.With("module", string(id)),
		DataDir:      ctx.DataDir,
		parentLogger: ctx.parentLogger,
		services:     ctx.services,
	}
}

// RegisterService makes svc discoverable under name. A later registration
// under the same name replaces the earlier one.
func (ctx *AppContext) RegisterService(name string, svc any) {
	ctx.services.mu.Lock()
	defer ctx.services.mu.Unlock()
	ctx.services.items[name] = svc
}

// Service returns the service registered under name.
func (ctx *AppContext) Service(name string) (any, bool) {
	ctx.services.mu.RLock()
	defer ctx.services.mu.RUnlock()
	svc, ok := ctx.services.items[name]
	return svc, ok
}
