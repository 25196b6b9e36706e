package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/delixor/shadowbot/internal/store"
)

// GetSubscription implements store.SubscriptionStore. It returns
// store.ErrNotFound when the owner never had a subscription.
func (s *Store) GetSubscription(ctx context.Context, ownerID int64) (*store.Subscription, error) {
	var (
		activeUntil sql.NullString
		chargeID    sql.NullString
		updatedAt   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT active_until, last_charge_id, updated_at FROM subscriptions WHERE owner_id = ?`,
		ownerID,
	).Scan(&activeUntil, &chargeID, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get subscription: %w", err)
	}

	sub := &store.Subscription{
		OwnerID:      ownerID,
		LastChargeID: chargeID.String,
	}
	if activeUntil.Valid {
		t, err := parseTime(activeUntil.String)
		if err != nil {
			return nil, err
		}
		sub.ActiveUntil = &t
	}
	if sub.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return sub, nil
}

// UpsertSubscription implements store.SubscriptionStore.
func (s *Store) UpsertSubscription(ctx context.Context, sub *store.Subscription) error {
	updatedAt := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subscriptions (owner_id, active_until, last_charge_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			active_until   = excluded.active_until,
			last_charge_id = COALESCE(excluded.last_charge_id, subscriptions.last_charge_id),
			updated_at     = excluded.updated_at`,
		sub.OwnerID, nullTime(sub.ActiveUntil), nullString(sub.LastChargeID), formatTime(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert subscription: %w", err)
	}
	sub.UpdatedAt = updatedAt
	return nil
}
