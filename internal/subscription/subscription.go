// Package subscription decides whether an owner is entitled to shadowing
// and records gifts and Stars payments.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/delixor/shadowbot/internal/store"
)

// Gate answers whether an owner is entitled to shadowing right now.
type Gate struct {
	store store.SubscriptionStore
	now   func() time.Time
}

// NewGate creates a Gate. A nil clock defaults to time.Now.
func NewGate(s store.SubscriptionStore, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{store: s, now: now}
}

// IsActive reports whether ownerID has a subscription whose active-until is
// strictly in the future. A missing subscription is not an error.
func (g *Gate) IsActive(ctx context.Context, ownerID int64) (bool, error) {
	sub, err := g.Get(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return sub.ActiveAt(g.now()), nil
}

// Get returns the subscription of ownerID, or nil when there is none.
func (g *Gate) Get(ctx context.Context, ownerID int64) (*store.Subscription, error) {
	sub, err := g.store.GetSubscription(ctx, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("subscription: lookup %d: %w", ownerID, err)
	}
	return sub, nil
}

// Service mutates subscriptions on admin gifts and successful payments.
type Service struct {
	*Gate
	plans Plans
}

// NewService creates a Service over the given gate and plan table.
func NewService(gate *Gate, plans Plans) *Service {
	return &Service{Gate: gate, plans: plans}
}

// Plans returns the purchasable plans.
func (s *Service) Plans() Plans {
	return s.plans
}

// Grant sets the subscription of ownerID to expire d from now, replacing
// any previous expiry. It returns the new expiry.
func (s *Service) Grant(ctx context.Context, ownerID int64, d time.Duration) (time.Time, error) {
	until := s.now().Add(d)
	sub := &store.Subscription{OwnerID: ownerID, ActiveUntil: &until}
	if err := s.store.UpsertSubscription(ctx, sub); err != nil {
		return time.Time{}, fmt.Errorf("subscription: grant %d: %w", ownerID, err)
	}
	return until, nil
}

// Activate records a successful payment for plan. The paid period starts
// at the current expiry when the subscription is still active, otherwise
// now.
func (s *Service) Activate(ctx context.Context, ownerID int64, plan Plan, chargeID string) (time.Time, error) {
	current, err := s.Get(ctx, ownerID)
	if err != nil {
		return time.Time{}, err
	}

	start := s.now()
	if current.ActiveAt(start) {
		start = *current.ActiveUntil
	}
	until := start.Add(plan.Duration)

	sub := &store.Subscription{OwnerID: ownerID, ActiveUntil: &until, LastChargeID: chargeID}
	if err := s.store.UpsertSubscription(ctx, sub); err != nil {
		return time.Time{}, fmt.Errorf("subscription: activate %d: %w", ownerID, err)
	}
	return until, nil
}
