// Package bizconn resolves business connection ids to the owners whose
// accounts are connected. Lookups go to the Bot API and are cached, either
// in process or in Redis when several bot instances share a token.
package bizconn

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/delixor/shadowbot/internal/telegram"
)

// Fetcher is the subset of telegram.Client used for resolution.
type Fetcher interface {
	GetBusinessConnection(ctx context.Context, id string) (*telegram.BusinessConnection, error)
}

// Cache stores connection-to-owner mappings. A miss is reported with
// ok=false and a nil error.
type Cache interface {
	Get(ctx context.Context, connectionID string) (ownerID int64, ok bool, err error)
	Set(ctx context.Context, connectionID string, ownerID int64) error
	Delete(ctx context.Context, connectionID string) error
}

// Resolver implements shadow.OwnerResolver.
type Resolver struct {
	fetcher Fetcher
	cache   Cache
	logger  *slog.Logger
}

// NewResolver creates a Resolver. Cache errors are logged and treated as
// misses, so a broken cache only costs API calls.
func NewResolver(fetcher Fetcher, cache Cache, logger *slog.Logger) *Resolver {
	return &Resolver{fetcher: fetcher, cache: cache, logger: logger}
}

// ResolveOwner returns the owner of connectionID.
func (r *Resolver) ResolveOwner(ctx context.Context, connectionID string) (int64, error) {
	if connectionID == "" {
		return 0, fmt.Errorf("bizconn: empty business connection id")
	}

	owner, ok, err := r.cache.Get(ctx, connectionID)
	if err != nil {
		r.logger.Warn("connection cache read failed", "connection", connectionID, "error", err)
	}
	if ok {
		return owner, nil
	}

	bc, err := r.fetcher.GetBusinessConnection(ctx, connectionID)
	if err != nil {
		return 0, fmt.Errorf("bizconn: fetching connection %q: %w", connectionID, err)
	}

	if err := r.cache.Set(ctx, connectionID, bc.UserChatID); err != nil {
		r.logger.Warn("connection cache write failed", "connection", connectionID, "error", err)
	}
	return bc.UserChatID, nil
}

// Observe updates the cache from a business_connection update: enabled
// connections are primed, disabled ones evicted.
func (r *Resolver) Observe(ctx context.Context, bc *telegram.BusinessConnection) {
	var err error
	if bc.IsEnabled {
		err = r.cache.Set(ctx, bc.ID, bc.UserChatID)
	} else {
		err = r.cache.Delete(ctx, bc.ID)
	}
	if err != nil {
		r.logger.Warn("connection cache update failed", "connection", bc.ID, "enabled", bc.IsEnabled, "error", err)
	}
}
