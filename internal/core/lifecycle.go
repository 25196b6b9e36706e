package core

import "context"

// ModuleID identifies a component in logs and lifecycle ordering,
// e.g. "store.sqlite" or "telegram.poller".
type ModuleID string

// ModuleInfo describes a component.
type ModuleInfo struct {
	ID ModuleID
}

// Module is implemented by every component managed by App.
type Module interface {
	ModuleInfo() ModuleInfo
}

// Starter is implemented by modules that need to start background work
// (goroutines, listeners, connections). Called in registration order.
type Starter interface {
	Start() error
}

// Stopper is implemented by modules that need to clean up resources.
// Called during shutdown in reverse order of Start().
type Stopper interface {
	Stop(ctx context.Context) error
}
