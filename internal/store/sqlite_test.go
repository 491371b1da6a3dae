package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// unixNow returns the current time truncated to second precision, matching
// what survives a round trip through the integer columns.
func unixNow() time.Time {
	return time.Unix(time.Now().Unix(), 0)
}

func insertItem(t *testing.T, s *SQLiteStore, name string, active, autoTrack bool) *TrackedItem {
	t.Helper()
	p := decimal.RequireFromString("15.99")
	item := &TrackedItem{
		ID: uuid.NewString(), Name: name, Category: "Pop Mart", Brand: "Pop Mart",
		SKU: "SKU-" + name, Price: &p,
		InventoryLevel: 10, MinStockLevel: 5, MaxStockLevel: 50,
		IsActive: active, AutoTrack: autoTrack,
	}
	require.NoError(t, s.CreateItem(context.Background(), item))
	return item
}

func TestItemRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item := insertItem(t, s, "MOLLY Figure", true, true)

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Name, got.Name)
	assert.Equal(t, item.SKU, got.SKU)
	require.NotNil(t, got.Price)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("15.99")))
	assert.True(t, got.IsActive)
	assert.True(t, got.AutoTrack)
	assert.Equal(t, 10, got.InventoryLevel)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.GetItem(ctx, "no-such-id")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestItemListing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	insertItem(t, s, "Auto", true, true)
	insertItem(t, s, "Manual", true, false)
	insertItem(t, s, "Retired", false, true)

	active, err := s.ListActiveItems(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Auto", active[0].Name)
	assert.Equal(t, "Manual", active[1].Name)

	tracked, err := s.ListAutoTrackedItems(ctx)
	require.NoError(t, err)
	require.Len(t, tracked, 1)
	assert.Equal(t, "Auto", tracked[0].Name)
}

func TestSetInventoryLevel(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item := insertItem(t, s, "MOLLY Figure", true, true)
	require.NoError(t, s.SetInventoryLevel(ctx, item.ID, 3))

	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.InventoryLevel)

	assert.ErrorIs(t, s.SetInventoryLevel(ctx, "no-such-id", 3), ErrNotFound)
}

func TestSourceRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item := insertItem(t, s, "MOLLY Figure", true, true)
	src := &Source{
		ID: uuid.NewString(), ItemID: item.ID,
		SiteName: "Pop Mart Official", SiteType: SiteTypeOfficialStore,
		URL:           "https://www.popmart.com/products/molly",
		PriceSelector: ".price", StockSelector: ".stock",
		CheckFrequency: 60, IsActive: true,
	}
	require.NoError(t, s.CreateSource(ctx, src))
	require.NoError(t, s.CreateSource(ctx, &Source{
		ID: uuid.NewString(), ItemID: item.ID, SiteName: "Dead Shop",
		SiteType: SiteTypeReseller, URL: "https://dead.example", IsActive: false,
	}))

	sources, err := s.ListActiveSources(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	got := sources[0]
	assert.Equal(t, "Pop Mart Official", got.SiteName)
	assert.Equal(t, SiteTypeOfficialStore, got.SiteType)
	assert.Equal(t, ".price", got.PriceSelector)
	assert.Equal(t, 60, got.CheckFrequency)
	assert.Nil(t, got.LastChecked)

	at := unixNow()
	require.NoError(t, s.SetSourceLastChecked(ctx, src.ID, at))

	sources, err = s.ListActiveSources(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, sources[0].LastChecked)
	assert.Equal(t, at, *sources[0].LastChecked)
}

func TestRecentObservations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item := insertItem(t, s, "MOLLY Figure", true, true)
	now := unixNow()

	record := func(source, price string, age time.Duration) {
		require.NoError(t, s.RecordObservation(ctx, &Observation{
			ID: uuid.NewString(), ItemID: item.ID, Source: source,
			Price: decimal.RequireFromString(price), InStock: true,
			ObservedAt: now.Add(-age),
		}))
	}

	record("Amazon", "10.00", 30*time.Hour) // outside the window
	record("Amazon", "11.00", 3*time.Hour)
	record("Amazon", "12.00", 2*time.Hour)
	record("Amazon", "13.00", time.Hour)
	record("eBay", "99.00", time.Hour) // different source

	since := now.Add(-24 * time.Hour)

	obs, err := s.RecentObservations(ctx, item.ID, "Amazon", since, 5)
	require.NoError(t, err)
	require.Len(t, obs, 3)
	// Newest first
	assert.True(t, obs[0].Price.Equal(decimal.RequireFromString("13.00")))
	assert.True(t, obs[2].Price.Equal(decimal.RequireFromString("11.00")))

	obs, err = s.RecentObservations(ctx, item.ID, "Amazon", since, 2)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.True(t, obs[0].Price.Equal(decimal.RequireFromString("13.00")))

	all, err := s.ItemObservations(ctx, item.ID, 20)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestObservationStockCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item := insertItem(t, s, "MOLLY Figure", true, true)
	count := 3
	require.NoError(t, s.RecordObservation(ctx, &Observation{
		ID: uuid.NewString(), ItemID: item.ID, Source: "Amazon",
		Price: decimal.RequireFromString("10.00"), InStock: true,
		StockCount: &count, ObservedAt: unixNow(),
	}))
	require.NoError(t, s.RecordObservation(ctx, &Observation{
		ID: uuid.NewString(), ItemID: item.ID, Source: "Amazon",
		Price: decimal.RequireFromString("10.00"), InStock: true,
		ObservedAt: unixNow().Add(time.Second),
	}))

	obs, err := s.ItemObservations(ctx, item.ID, 10)
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Nil(t, obs[0].StockCount)
	require.NotNil(t, obs[1].StockCount)
	assert.Equal(t, 3, *obs[1].StockCount)
}

func TestNotificationOrderingAndRead(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item := insertItem(t, s, "MOLLY Figure", true, true)
	now := unixNow()

	notify := func(kind NotificationKind, age time.Duration, read bool) string {
		id := uuid.NewString()
		require.NoError(t, s.CreateNotification(ctx, &Notification{
			ID: id, ItemID: item.ID, Kind: kind,
			Message: string(kind), IsRead: read, CreatedAt: now.Add(-age),
		}))
		return id
	}

	readID := notify(KindNewItem, 3*time.Hour, true)
	oldUnread := notify(KindPriceDrop, 2*time.Hour, false)
	newUnread := notify(KindOutOfStock, time.Hour, false)

	list, err := s.ListNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	// Unread first, newest first within each group
	assert.Equal(t, newUnread, list[0].ID)
	assert.Equal(t, oldUnread, list[1].ID)
	assert.Equal(t, readID, list[2].ID)

	unread, err := s.UnreadNotifications(ctx, item.ID)
	require.NoError(t, err)
	assert.Len(t, unread, 2)

	unread, err = s.UnreadNotifications(ctx, item.ID, KindOutOfStock, KindLowStock)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, newUnread, unread[0].ID)

	require.NoError(t, s.MarkNotificationsRead(ctx, []string{oldUnread}))
	unread, err = s.UnreadNotifications(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, newUnread, unread[0].ID)

	require.NoError(t, s.MarkItemKindsRead(ctx, item.ID, KindOutOfStock))
	unread, err = s.UnreadNotifications(ctx, item.ID)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestRunLogAndInventoryChange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	item := insertItem(t, s, "MOLLY Figure", true, true)

	require.NoError(t, s.CreateRunLog(ctx, &RunLog{
		ID: uuid.NewString(), Trigger: "manual", Status: RunCompleted,
		ItemsChecked: 3, Duration: 1200 * time.Millisecond, CompletedAt: unixNow(),
	}))

	require.NoError(t, s.RecordInventoryChange(ctx, &InventoryChange{
		ID: uuid.NewString(), ItemID: item.ID,
		OldLevel: 0, NewLevel: 20, Reason: "delivery received",
	}))
}

func TestSeedIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, Seed(ctx, s))
	items, err := s.ListActiveItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)

	require.NoError(t, Seed(ctx, s))
	items, err = s.ListActiveItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 4)
}
