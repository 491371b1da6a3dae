package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that a referenced record does not exist. Callers
// can distinguish it from other storage failures with errors.Is.
var ErrNotFound = errors.New("record not found")

// Store is the narrow persistence contract the monitoring core depends on.
// Observations and notifications are append-only; only the notification
// read flag and the source lastChecked timestamp are ever mutated.
type Store interface {
	// Items
	CreateItem(ctx context.Context, item *TrackedItem) error
	GetItem(ctx context.Context, id string) (*TrackedItem, error)
	ListActiveItems(ctx context.Context) ([]TrackedItem, error)
	ListAutoTrackedItems(ctx context.Context) ([]TrackedItem, error)
	SetInventoryLevel(ctx context.Context, itemID string, level int) error

	// Sources
	CreateSource(ctx context.Context, src *Source) error
	ListActiveSources(ctx context.Context, itemID string) ([]Source, error)
	SetSourceLastChecked(ctx context.Context, sourceID string, at time.Time) error

	// Observations
	RecordObservation(ctx context.Context, obs *Observation) error
	RecentObservations(ctx context.Context, itemID, source string, since time.Time, limit int) ([]Observation, error)
	ItemObservations(ctx context.Context, itemID string, limit int) ([]Observation, error)

	// Notifications
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context) ([]Notification, error)
	UnreadNotifications(ctx context.Context, itemID string, kinds ...NotificationKind) ([]Notification, error)
	MarkNotificationsRead(ctx context.Context, ids []string) error
	MarkItemKindsRead(ctx context.Context, itemID string, kinds ...NotificationKind) error

	// Run bookkeeping
	RecordInventoryChange(ctx context.Context, ch *InventoryChange) error
	CreateRunLog(ctx context.Context, rl *RunLog) error

	Ping(ctx context.Context) error
	Close() error
}
