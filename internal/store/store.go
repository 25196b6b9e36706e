// Package store defines the persistent records of the shadowing engine and
// the storage interfaces the rest of the bot depends on.
package store

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("store: not found")

// ContentKind classifies what a shadowed message carried.
type ContentKind string

// Content kinds, in the order they are recognised on inbound messages.
const (
	KindPhoto     ContentKind = "photo"
	KindVideo     ContentKind = "video"
	KindVideoNote ContentKind = "video_note"
	KindDocument  ContentKind = "document"
	KindAudio     ContentKind = "audio"
	KindVoice     ContentKind = "voice"
	KindAnimation ContentKind = "animation"
	KindText      ContentKind = "text"
)

// DeletedMarker decorates the content of a message the counterparty or the
// owner has deleted.
const DeletedMarker = "❌"

// ShadowMessage is the persisted copy of one observed business message.
// Optional columns are represented by their zero value.
type ShadowMessage struct {
	ID              int64
	ConversationKey string
	MessageID       int
	SenderID        int64
	SenderUsername  string
	SenderName      string
	Content         string
	Kind            ContentKind
	FileID          string
	Caption         string
	MediaToken      string
	Deleted         bool
	EditedAt        *time.Time
	CreatedAt       time.Time
}

// HasMedia reports whether the row references a provider file.
func (m *ShadowMessage) HasMedia() bool {
	return m.FileID != ""
}

// Handle returns the sender's @username, or the display name when the
// sender has none.
func (m *ShadowMessage) Handle() string {
	if m.SenderUsername != "" {
		return m.SenderUsername
	}
	return m.SenderName
}

// MarkDeleted flags the row as deleted and prefixes its content with
// DeletedMarker. The original text stays inside the decorated content.
// Calling it on an already deleted row changes nothing.
func MarkDeleted(m *ShadowMessage) {
	if m.Deleted {
		return
	}
	m.Deleted = true
	m.Content = DeletedMarker + m.Content
}

// StripDeletedMarker removes every deletion marker from content.
func StripDeletedMarker(content string) string {
	return strings.TrimSpace(strings.ReplaceAll(content, DeletedMarker, ""))
}

// Subscription is the entitlement record of one owner.
type Subscription struct {
	OwnerID      int64
	ActiveUntil  *time.Time
	LastChargeID string
	UpdatedAt    time.Time
}

// ActiveAt reports whether the subscription grants shadowing at t.
func (s *Subscription) ActiveAt(t time.Time) bool {
	return s != nil && s.ActiveUntil != nil && s.ActiveUntil.After(t)
}

// MessageStore persists shadow messages.
type MessageStore interface {
	// Append inserts msg and fills in its ID, CreatedAt and, when msg has a
	// media reference, a fresh MediaToken. It returns false without error if
	// a row with the same conversation key and message id already exists.
	Append(ctx context.Context, msg *ShadowMessage) (bool, error)

	FindByKeyAndMessageID(ctx context.Context, key string, messageID int) (*ShadowMessage, error)
	FindByKeyAndMessageIDs(ctx context.Context, key string, messageIDs []int) ([]*ShadowMessage, error)

	// FindByOwnerAndMessageIDs matches message ids across every conversation
	// of ownerID.
	FindByOwnerAndMessageIDs(ctx context.Context, ownerID int64, messageIDs []int) ([]*ShadowMessage, error)

	// FindByMediaToken resolves a media-access token. The token is the whole
	// authorization; callers must not check ownership.
	FindByMediaToken(ctx context.Context, token string) (*ShadowMessage, error)

	// ApplyEdit overwrites the content of msg and stamps EditedAt.
	ApplyEdit(ctx context.Context, msg *ShadowMessage, newText string, at time.Time) error

	// ApplyDeletes persists rows already decorated with MarkDeleted in a
	// single transaction.
	ApplyDeletes(ctx context.Context, msgs []*ShadowMessage) error

	ListConversationKeys(ctx context.Context, ownerID int64) ([]string, error)
	ListMessages(ctx context.Context, key string) ([]*ShadowMessage, error)

	// LatestSenderName returns the display name senderID used most recently
	// in the conversation.
	LatestSenderName(ctx context.Context, key string, senderID int64) (string, error)

	CountMessages(ctx context.Context, ownerID int64) (int, error)

	// PurgeOlderThan deletes every row created before cutoff.
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SubscriptionStore persists owner subscriptions.
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, ownerID int64) (*Subscription, error)
	UpsertSubscription(ctx context.Context, sub *Subscription) error
}

// OwnerPrefix is the conversation key prefix shared by every conversation of
// ownerID.
func OwnerPrefix(ownerID int64) string {
	return strconv.FormatInt(ownerID, 10) + "_"
}
