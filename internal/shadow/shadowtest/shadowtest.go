// Package shadowtest provides in-memory fakes of the reconciler's
// collaborators for tests.
package shadowtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/delixor/shadowbot/internal/shadow"
	"github.com/delixor/shadowbot/internal/store"
)

// Compile-time interface guards.
var (
	_ shadow.OwnerResolver = Owners(nil)
	_ shadow.Gate          = (*Gate)(nil)
	_ shadow.Notifier      = (*Notifier)(nil)
	_ shadow.EventSink     = (*Sink)(nil)
)

// ErrUnknownConnection is returned by Owners for unmapped connection ids.
var ErrUnknownConnection = errors.New("shadowtest: unknown business connection")

// Owners maps business connection ids to owner ids.
type Owners map[string]int64

// ResolveOwner implements shadow.OwnerResolver.
func (o Owners) ResolveOwner(_ context.Context, connectionID string) (int64, error) {
	owner, ok := o[connectionID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownConnection, connectionID)
	}
	return owner, nil
}

// Gate reports the owners in Active as entitled.
type Gate struct {
	mu     sync.Mutex
	Active map[int64]bool
	Err    error
}

// NewGate returns a Gate with the given owners active.
func NewGate(active ...int64) *Gate {
	g := &Gate{Active: make(map[int64]bool)}
	for _, id := range active {
		g.Active[id] = true
	}
	return g
}

// Set changes the entitlement of ownerID.
func (g *Gate) Set(ownerID int64, active bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Active[ownerID] = active
}

// IsActive implements shadow.Gate.
func (g *Gate) IsActive(_ context.Context, ownerID int64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return false, g.Err
	}
	return g.Active[ownerID], nil
}

// Text is one recorded text notification.
type Text struct {
	OwnerID int64
	HTML    string
}

// Media is one recorded media re-send.
type Media struct {
	OwnerID int64
	Kind    store.ContentKind
	FileID  string
	Caption string
}

// Notifier records every notification. Setting TextErr or MediaErr makes the
// matching calls fail after being recorded.
type Notifier struct {
	mu       sync.Mutex
	Texts    []Text
	Upsells  []int64
	Media    []Media
	TextErr  error
	MediaErr error
}

// NotifyText implements shadow.Notifier.
func (n *Notifier) NotifyText(_ context.Context, ownerID int64, html string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Texts = append(n.Texts, Text{OwnerID: ownerID, HTML: html})
	return n.TextErr
}

// NotifyUpsell implements shadow.Notifier.
func (n *Notifier) NotifyUpsell(_ context.Context, ownerID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Upsells = append(n.Upsells, ownerID)
	return n.TextErr
}

// SendMedia implements shadow.Notifier.
func (n *Notifier) SendMedia(_ context.Context, ownerID int64, kind store.ContentKind, fileID, caption string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Media = append(n.Media, Media{OwnerID: ownerID, Kind: kind, FileID: fileID, Caption: caption})
	return n.MediaErr
}

// Sink collects published events.
type Sink struct {
	mu     sync.Mutex
	events []shadow.Event
}

// Publish implements shadow.EventSink.
func (s *Sink) Publish(ev shadow.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// Events returns a copy of the events published so far.
func (s *Sink) Events() []shadow.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shadow.Event(nil), s.events...)
}
