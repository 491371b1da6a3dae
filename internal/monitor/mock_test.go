package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sjsage522/stockwatcher/internal/extract"
	"sjsage522/stockwatcher/internal/store"
)

// fakeStore is an in-memory store.Store for orchestrator/detector tests
type fakeStore struct {
	mu sync.Mutex

	items         map[string]*store.TrackedItem
	sources       map[string][]store.Source // keyed by item id
	observations  []store.Observation
	notifications []store.Notification
	invChanges    []store.InventoryChange
	runLogs       []store.RunLog

	listItemsErr error
	observeErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:   make(map[string]*store.TrackedItem),
		sources: make(map[string][]store.Source),
	}
}

func (f *fakeStore) CreateItem(_ context.Context, item *store.TrackedItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *item
	f.items[item.ID] = &copied
	return nil
}

func (f *fakeStore) GetItem(_ context.Context, id string) (*store.TrackedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, store.ErrNotFound)
	}
	copied := *item
	return &copied, nil
}

func (f *fakeStore) ListActiveItems(_ context.Context) ([]store.TrackedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []store.TrackedItem
	for _, item := range f.items {
		if item.IsActive {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (f *fakeStore) ListAutoTrackedItems(_ context.Context) ([]store.TrackedItem, error) {
	if f.listItemsErr != nil {
		return nil, f.listItemsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []store.TrackedItem
	for _, item := range f.items {
		if item.IsActive && item.AutoTrack {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (f *fakeStore) SetInventoryLevel(_ context.Context, itemID string, level int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[itemID]
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, store.ErrNotFound)
	}
	item.InventoryLevel = level
	return nil
}

func (f *fakeStore) CreateSource(_ context.Context, src *store.Source) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sources[src.ItemID] = append(f.sources[src.ItemID], *src)
	return nil
}

func (f *fakeStore) ListActiveSources(_ context.Context, itemID string) ([]store.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var active []store.Source
	for _, src := range f.sources[itemID] {
		if src.IsActive {
			active = append(active, src)
		}
	}
	return active, nil
}

func (f *fakeStore) SetSourceLastChecked(_ context.Context, sourceID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for itemID := range f.sources {
		for i := range f.sources[itemID] {
			if f.sources[itemID][i].ID == sourceID {
				t := at
				f.sources[itemID][i].LastChecked = &t
				return nil
			}
		}
	}
	return fmt.Errorf("source %s: %w", sourceID, store.ErrNotFound)
}

func (f *fakeStore) sourceByID(sourceID string) *store.Source {
	f.mu.Lock()
	defer f.mu.Unlock()
	for itemID := range f.sources {
		for i := range f.sources[itemID] {
			if f.sources[itemID][i].ID == sourceID {
				copied := f.sources[itemID][i]
				return &copied
			}
		}
	}
	return nil
}

func (f *fakeStore) RecordObservation(_ context.Context, obs *store.Observation) error {
	if f.observeErr != nil {
		return f.observeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observations = append(f.observations, *obs)
	return nil
}

func (f *fakeStore) RecentObservations(_ context.Context, itemID, source string, since time.Time, limit int) ([]store.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []store.Observation
	for _, obs := range f.observations {
		if obs.ItemID == itemID && obs.Source == source && !obs.ObservedAt.Before(since) {
			matched = append(matched, obs)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ObservedAt.After(matched[j].ObservedAt) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeStore) ItemObservations(_ context.Context, itemID string, limit int) ([]store.Observation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []store.Observation
	for _, obs := range f.observations {
		if obs.ItemID == itemID {
			matched = append(matched, obs)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ObservedAt.After(matched[j].ObservedAt) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (f *fakeStore) CreateNotification(_ context.Context, n *store.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeStore) ListNotifications(_ context.Context) ([]store.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]store.Notification, len(f.notifications))
	copy(out, f.notifications)
	return out, nil
}

func (f *fakeStore) UnreadNotifications(_ context.Context, itemID string, kinds ...store.NotificationKind) ([]store.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []store.Notification
	for _, n := range f.notifications {
		if n.ItemID != itemID || n.IsRead {
			continue
		}
		if len(kinds) == 0 {
			matched = append(matched, n)
			continue
		}
		for _, k := range kinds {
			if n.Kind == k {
				matched = append(matched, n)
				break
			}
		}
	}
	return matched, nil
}

func (f *fakeStore) MarkNotificationsRead(_ context.Context, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		for i := range f.notifications {
			if f.notifications[i].ID == id {
				f.notifications[i].IsRead = true
			}
		}
	}
	return nil
}

func (f *fakeStore) MarkItemKindsRead(_ context.Context, itemID string, kinds ...store.NotificationKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ItemID != itemID || f.notifications[i].IsRead {
			continue
		}
		for _, k := range kinds {
			if f.notifications[i].Kind == k {
				f.notifications[i].IsRead = true
			}
		}
	}
	return nil
}

func (f *fakeStore) RecordInventoryChange(_ context.Context, ch *store.InventoryChange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invChanges = append(f.invChanges, *ch)
	return nil
}

func (f *fakeStore) CreateRunLog(_ context.Context, rl *store.RunLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runLogs = append(f.runLogs, *rl)
	return nil
}

func (f *fakeStore) Ping(_ context.Context) error { return nil }
func (f *fakeStore) Close() error                 { return nil }

// notificationKinds lists the kinds recorded for an item, oldest first
func (f *fakeStore) notificationKinds(itemID string) []store.NotificationKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kinds []store.NotificationKind
	for _, n := range f.notifications {
		if n.ItemID == itemID {
			kinds = append(kinds, n.Kind)
		}
	}
	return kinds
}

// fakeExtractor returns canned results keyed by URL
type fakeExtractor struct {
	mu      sync.Mutex
	results map[string]extract.Result
	calls   map[string]int
	panicOn string
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{
		results: make(map[string]extract.Result),
		calls:   make(map[string]int),
	}
}

func (f *fakeExtractor) Extract(_ context.Context, cfg extract.Config) extract.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg.URL == f.panicOn {
		panic("extractor blew up")
	}
	f.calls[cfg.URL]++
	return f.results[cfg.URL]
}

func (f *fakeExtractor) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// capturePublisher records published payloads and trim calls
type capturePublisher struct {
	mu       sync.Mutex
	messages []string
	trims    int
}

func (p *capturePublisher) Publish(kind string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, kind)
	return nil
}

func (p *capturePublisher) TrimStream() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trims++
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) trimCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trims
}
