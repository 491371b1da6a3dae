package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperr "sjsage522/stockwatcher/pkg/errors"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT '',
	brand           TEXT NOT NULL DEFAULT '',
	sku             TEXT NOT NULL DEFAULT '',
	image_url       TEXT NOT NULL DEFAULT '',
	price           TEXT,
	inventory_level INTEGER NOT NULL DEFAULT 0,
	min_stock_level INTEGER NOT NULL DEFAULT 5,
	max_stock_level INTEGER NOT NULL DEFAULT 100,
	is_active       INTEGER NOT NULL DEFAULT 1,
	auto_track      INTEGER NOT NULL DEFAULT 1,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sources (
	id              TEXT PRIMARY KEY,
	item_id         TEXT NOT NULL REFERENCES items(id),
	site_name       TEXT NOT NULL,
	site_type       TEXT NOT NULL,
	url             TEXT NOT NULL,
	price_selector  TEXT NOT NULL DEFAULT '',
	stock_selector  TEXT NOT NULL DEFAULT '',
	title_selector  TEXT NOT NULL DEFAULT '',
	image_selector  TEXT NOT NULL DEFAULT '',
	check_frequency INTEGER NOT NULL DEFAULT 60,
	last_checked    INTEGER,
	is_active       INTEGER NOT NULL DEFAULT 1,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sources_item ON sources(item_id);

CREATE TABLE IF NOT EXISTS observations (
	id          TEXT PRIMARY KEY,
	item_id     TEXT NOT NULL REFERENCES items(id),
	source      TEXT NOT NULL,
	price       TEXT NOT NULL,
	in_stock    INTEGER NOT NULL,
	stock_count INTEGER,
	observed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_observations_lookup ON observations(item_id, source, observed_at DESC);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	item_id    TEXT NOT NULL REFERENCES items(id),
	kind       TEXT NOT NULL,
	message    TEXT NOT NULL,
	is_read    INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_item ON notifications(item_id, is_read);

CREATE TABLE IF NOT EXISTS run_logs (
	id            TEXT PRIMARY KEY,
	trigger_src   TEXT NOT NULL,
	status        TEXT NOT NULL,
	items_checked INTEGER NOT NULL,
	errors        TEXT NOT NULL DEFAULT '',
	duration_ms   INTEGER NOT NULL,
	completed_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS inventory_changes (
	id         TEXT PRIMARY KEY,
	item_id    TEXT NOT NULL REFERENCES items(id),
	old_level  INTEGER NOT NULL,
	new_level  INTEGER NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
`

// SQLiteStore implements Store on top of modernc.org/sqlite
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed bootstraps) the database at path
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperr.NewStorage("open", err)
	}

	// modernc sqlite is single-writer; serialize access through one conn
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, apperr.NewStorage("pragma", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, apperr.NewStorage("bootstrap", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) CreateItem(ctx context.Context, item *TrackedItem) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	var price sql.NullString
	if item.Price != nil {
		price = sql.NullString{String: item.Price.String(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, description, category, brand, sku, image_url, price,
			inventory_level, min_stock_level, max_stock_level, is_active, auto_track, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Description, item.Category, item.Brand, item.SKU, item.ImageURL, price,
		item.InventoryLevel, item.MinStockLevel, item.MaxStockLevel,
		boolToInt(item.IsActive), boolToInt(item.AutoTrack),
		item.CreatedAt.Unix(), item.UpdatedAt.Unix())
	if err != nil {
		return apperr.NewStorage("create item", err)
	}
	return nil
}

const itemColumns = `id, name, description, category, brand, sku, image_url, price,
	inventory_level, min_stock_level, max_stock_level, is_active, auto_track, created_at, updated_at`

func (s *SQLiteStore) GetItem(ctx context.Context, id string) (*TrackedItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NewStorage("get item", fmt.Errorf("item %s: %w", id, ErrNotFound))
	}
	if err != nil {
		return nil, apperr.NewStorage("get item", err)
	}
	return item, nil
}

func (s *SQLiteStore) ListActiveItems(ctx context.Context) ([]TrackedItem, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM items WHERE is_active = 1 ORDER BY name`)
}

func (s *SQLiteStore) ListAutoTrackedItems(ctx context.Context) ([]TrackedItem, error) {
	return s.listItems(ctx, `SELECT `+itemColumns+` FROM items WHERE is_active = 1 AND auto_track = 1 ORDER BY name`)
}

func (s *SQLiteStore) listItems(ctx context.Context, query string) ([]TrackedItem, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperr.NewStorage("list items", err)
	}
	defer rows.Close()

	var items []TrackedItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, apperr.NewStorage("scan item", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (*TrackedItem, error) {
	var (
		item              TrackedItem
		price             sql.NullString
		active, autoTrack int
		created, updated  int64
	)
	err := r.Scan(&item.ID, &item.Name, &item.Description, &item.Category, &item.Brand,
		&item.SKU, &item.ImageURL, &price,
		&item.InventoryLevel, &item.MinStockLevel, &item.MaxStockLevel,
		&active, &autoTrack, &created, &updated)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		d, err := decimal.NewFromString(price.String)
		if err == nil {
			item.Price = &d
		}
	}
	item.IsActive = active == 1
	item.AutoTrack = autoTrack == 1
	item.CreatedAt = time.Unix(created, 0)
	item.UpdatedAt = time.Unix(updated, 0)
	return &item, nil
}

func (s *SQLiteStore) SetInventoryLevel(ctx context.Context, itemID string, level int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET inventory_level = ?, updated_at = ? WHERE id = ?`,
		level, time.Now().Unix(), itemID)
	if err != nil {
		return apperr.NewStorage("set inventory level", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NewStorage("set inventory level", fmt.Errorf("item %s: %w", itemID, ErrNotFound))
	}
	return nil
}

func (s *SQLiteStore) CreateSource(ctx context.Context, src *Source) error {
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (id, item_id, site_name, site_type, url,
			price_selector, stock_selector, title_selector, image_selector,
			check_frequency, last_checked, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, src.ItemID, src.SiteName, string(src.SiteType), src.URL,
		src.PriceSelector, src.StockSelector, src.TitleSelector, src.ImageSelector,
		src.CheckFrequency, timePtrToUnix(src.LastChecked), boolToInt(src.IsActive), src.CreatedAt.Unix())
	if err != nil {
		return apperr.NewStorage("create source", err)
	}
	return nil
}

func (s *SQLiteStore) ListActiveSources(ctx context.Context, itemID string) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, site_name, site_type, url,
			price_selector, stock_selector, title_selector, image_selector,
			check_frequency, last_checked, is_active, created_at
		FROM sources WHERE item_id = ? AND is_active = 1 ORDER BY created_at`, itemID)
	if err != nil {
		return nil, apperr.NewStorage("list sources", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var (
			src         Source
			siteType    string
			lastChecked sql.NullInt64
			active      int
			created     int64
		)
		if err := rows.Scan(&src.ID, &src.ItemID, &src.SiteName, &siteType, &src.URL,
			&src.PriceSelector, &src.StockSelector, &src.TitleSelector, &src.ImageSelector,
			&src.CheckFrequency, &lastChecked, &active, &created); err != nil {
			return nil, apperr.NewStorage("scan source", err)
		}
		src.SiteType = SiteType(siteType)
		if lastChecked.Valid {
			t := time.Unix(lastChecked.Int64, 0)
			src.LastChecked = &t
		}
		src.IsActive = active == 1
		src.CreatedAt = time.Unix(created, 0)
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

func (s *SQLiteStore) SetSourceLastChecked(ctx context.Context, sourceID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_checked = ? WHERE id = ?`, at.Unix(), sourceID)
	if err != nil {
		return apperr.NewStorage("set last checked", err)
	}
	return nil
}

func (s *SQLiteStore) RecordObservation(ctx context.Context, obs *Observation) error {
	if obs.ObservedAt.IsZero() {
		obs.ObservedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO observations (id, item_id, source, price, in_stock, stock_count, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		obs.ID, obs.ItemID, obs.Source, obs.Price.String(), boolToInt(obs.InStock),
		intPtrToNull(obs.StockCount), obs.ObservedAt.Unix())
	if err != nil {
		return apperr.NewStorage("record observation", err)
	}
	return nil
}

func (s *SQLiteStore) RecentObservations(ctx context.Context, itemID, source string, since time.Time, limit int) ([]Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, source, price, in_stock, stock_count, observed_at
		FROM observations
		WHERE item_id = ? AND source = ? AND observed_at >= ?
		ORDER BY observed_at DESC LIMIT ?`,
		itemID, source, since.Unix(), limit)
	if err != nil {
		return nil, apperr.NewStorage("recent observations", err)
	}
	defer rows.Close()
	return scanObservations(rows)
}

func (s *SQLiteStore) ItemObservations(ctx context.Context, itemID string, limit int) ([]Observation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, source, price, in_stock, stock_count, observed_at
		FROM observations WHERE item_id = ?
		ORDER BY observed_at DESC LIMIT ?`, itemID, limit)
	if err != nil {
		return nil, apperr.NewStorage("item observations", err)
	}
	defer rows.Close()
	return scanObservations(rows)
}

func scanObservations(rows *sql.Rows) ([]Observation, error) {
	var observations []Observation
	for rows.Next() {
		var (
			obs        Observation
			price      string
			inStock    int
			stockCount sql.NullInt64
			observed   int64
		)
		if err := rows.Scan(&obs.ID, &obs.ItemID, &obs.Source, &price, &inStock, &stockCount, &observed); err != nil {
			return nil, apperr.NewStorage("scan observation", err)
		}
		d, err := decimal.NewFromString(price)
		if err != nil {
			return nil, apperr.NewStorage("scan observation", err)
		}
		obs.Price = d
		obs.InStock = inStock == 1
		if stockCount.Valid {
			n := int(stockCount.Int64)
			obs.StockCount = &n
		}
		obs.ObservedAt = time.Unix(observed, 0)
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

func (s *SQLiteStore) CreateNotification(ctx context.Context, n *Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, item_id, kind, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.ItemID, string(n.Kind), n.Message, boolToInt(n.IsRead), n.CreatedAt.Unix())
	if err != nil {
		return apperr.NewStorage("create notification", err)
	}
	return nil
}

// ListNotifications returns all notifications, unread first, newest first
func (s *SQLiteStore) ListNotifications(ctx context.Context) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, kind, message, is_read, created_at
		FROM notifications ORDER BY is_read ASC, created_at DESC`)
	if err != nil {
		return nil, apperr.NewStorage("list notifications", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (s *SQLiteStore) UnreadNotifications(ctx context.Context, itemID string, kinds ...NotificationKind) ([]Notification, error) {
	query := `SELECT id, item_id, kind, message, is_read, created_at
		FROM notifications WHERE item_id = ? AND is_read = 0`
	args := []any{itemID}
	if len(kinds) > 0 {
		query += ` AND kind IN (` + placeholders(len(kinds)) + `)`
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.NewStorage("unread notifications", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func scanNotifications(rows *sql.Rows) ([]Notification, error) {
	var notifications []Notification
	for rows.Next() {
		var (
			n       Notification
			kind    string
			isRead  int
			created int64
		)
		if err := rows.Scan(&n.ID, &n.ItemID, &kind, &n.Message, &isRead, &created); err != nil {
			return nil, apperr.NewStorage("scan notification", err)
		}
		n.Kind = NotificationKind(kind)
		n.IsRead = isRead == 1
		n.CreatedAt = time.Unix(created, 0)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (s *SQLiteStore) MarkNotificationsRead(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1 WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return apperr.NewStorage("mark notifications read", err)
	}
	return nil
}

func (s *SQLiteStore) MarkItemKindsRead(ctx context.Context, itemID string, kinds ...NotificationKind) error {
	if len(kinds) == 0 {
		return nil
	}
	args := []any{itemID}
	for _, k := range kinds {
		args = append(args, string(k))
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = 1
		 WHERE item_id = ? AND is_read = 0 AND kind IN (`+placeholders(len(kinds))+`)`, args...)
	if err != nil {
		return apperr.NewStorage("mark kinds read", err)
	}
	return nil
}

func (s *SQLiteStore) RecordInventoryChange(ctx context.Context, ch *InventoryChange) error {
	if ch.CreatedAt.IsZero() {
		ch.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_changes (id, item_id, old_level, new_level, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ch.ID, ch.ItemID, ch.OldLevel, ch.NewLevel, ch.Reason, ch.CreatedAt.Unix())
	if err != nil {
		return apperr.NewStorage("record inventory change", err)
	}
	return nil
}

func (s *SQLiteStore) CreateRunLog(ctx context.Context, rl *RunLog) error {
	if rl.CompletedAt.IsZero() {
		rl.CompletedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_logs (id, trigger_src, status, items_checked, errors, duration_ms, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rl.ID, rl.Trigger, string(rl.Status), rl.ItemsChecked, rl.Errors,
		rl.Duration.Milliseconds(), rl.CompletedAt.Unix())
	if err != nil {
		return apperr.NewStorage("create run log", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timePtrToUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func intPtrToNull(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
