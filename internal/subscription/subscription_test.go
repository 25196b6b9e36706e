package subscription

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/delixor/shadowbot/internal/store"
	"github.com/delixor/shadowbot/internal/store/sqlite"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestService(t *testing.T, clock *fakeClock) (*Service, *sqlite.Store) {
	t.Helper()
	dir := t.TempDir()
	s, err := sqlite.Open(context.Background(), sqlite.Config{Path: filepath.Join(dir, "sub.db")}, dir, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return NewService(NewGate(s, clock.Now), DefaultPlans()), s
}

func TestIsActive_NoSubscription(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	svc, _ := newTestService(t, clock)

	active, err := svc.IsActive(context.Background(), 1)
	if err != nil {
		t.Fatalf("is active: %v", err)
	}
	if active {
		t.Error("owner without subscription reported active")
	}
}

func TestIsActive_FlipsAtExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	svc, s := newTestService(t, clock)

	until := clock.t.Add(time.Hour)
	if err := s.UpsertSubscription(ctx, &store.Subscription{OwnerID: 1, ActiveUntil: &until}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before expiry", until.Add(-time.Nanosecond), true},
		{"at expiry", until, false},
		{"after expiry", until.Add(time.Second), false},
	}
	for _, tt := range tests {
		clock.t = tt.at
		got, err := svc.IsActive(ctx, 1)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: active = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsActive_NullActiveUntil(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	svc, s := newTestService(t, clock)

	if err := s.UpsertSubscription(ctx, &store.Subscription{OwnerID: 1, LastChargeID: "c"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	active, err := svc.IsActive(ctx, 1)
	if err != nil {
		t.Fatalf("is active: %v", err)
	}
	if active {
		t.Error("subscription without active_until reported active")
	}
}

func TestGrant(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	svc, _ := newTestService(t, clock)

	until, err := svc.Grant(ctx, 5, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if want := clock.t.Add(30 * 24 * time.Hour); !until.Equal(want) {
		t.Errorf("until = %v, want %v", until, want)
	}
	active, _ := svc.IsActive(ctx, 5)
	if !active {
		t.Error("granted owner not active")
	}
}

func TestActivate_ExtendsActiveSubscription(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	svc, s := newTestService(t, clock)

	month, _ := svc.Plans().ByID("month")

	first, err := svc.Activate(ctx, 9, month, "ch-1")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	second, err := svc.Activate(ctx, 9, month, "ch-2")
	if err != nil {
		t.Fatalf("activate again: %v", err)
	}
	if want := first.Add(month.Duration); !second.Equal(want) {
		t.Errorf("second expiry = %v, want %v", second, want)
	}

	sub, err := s.GetSubscription(ctx, 9)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sub.LastChargeID != "ch-2" {
		t.Errorf("charge id = %q, want ch-2", sub.LastChargeID)
	}
}

func TestPlans(t *testing.T) {
	plans := DefaultPlans()
	if err := plans.Validate(); err != nil {
		t.Fatalf("default plans invalid: %v", err)
	}

	want := map[string]int{"month": 100, "quarter": 270, "year": 1000}
	for id, stars := range want {
		p, ok := plans.ByID(id)
		if !ok {
			t.Fatalf("plan %q missing", id)
		}
		if p.Stars != stars {
			t.Errorf("plan %q stars = %d, want %d", id, p.Stars, stars)
		}
	}
	if _, ok := plans.ByID("week"); ok {
		t.Error("unexpected plan week")
	}

	bad := Plans{{ID: "a", Stars: 1, Duration: time.Hour}, {ID: "a", Stars: 1, Duration: time.Hour}}
	if err := bad.Validate(); err == nil {
		t.Error("expected duplicate id error")
	}
}

func TestInvoicePayloadRoundTrip(t *testing.T) {
	plan, _ := DefaultPlans().ByID("quarter")
	payload := InvoicePayload(plan, 4242, time.Unix(1760000000, 0))
	if payload != "quarter:4242:1760000000" {
		t.Errorf("payload = %q", payload)
	}

	id, owner, ok := ParseInvoicePayload(payload)
	if !ok || id != "quarter" || owner != 4242 {
		t.Errorf("parse = %q %d %v", id, owner, ok)
	}

	for _, bad := range []string{"", "quarter", "quarter:x:1", ":1:2", "quarter:1:2:3", "quarter:1:x"} {
		if _, _, ok := ParseInvoicePayload(bad); ok {
			t.Errorf("ParseInvoicePayload(%q) ok, want failure", bad)
		}
	}
}
