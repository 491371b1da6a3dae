package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"sjsage522/stockwatcher/internal/extract"
	"sjsage522/stockwatcher/internal/metrics"
	"sjsage522/stockwatcher/internal/store"
	"sjsage522/stockwatcher/logger"
	"sjsage522/stockwatcher/services/publisher"
)

const (
	// lookbackWindow bounds how far back the baseline reaches
	lookbackWindow = 24 * time.Hour
	// baselineLimit bounds how many prior observations are read
	baselineLimit = 5
)

// priceChangeThreshold is the dead-band edge in percent; drifts strictly
// inside (-10, 10) never notify.
var priceChangeThreshold = decimal.NewFromInt(10)

// Detector compares fresh extraction results against recent observation
// history and emits notifications for meaningful changes. It is also the
// notifier for the level-based stock sweep.
type Detector struct {
	store store.Store
	pub   publisher.Publisher
	now   func() time.Time
	log   *logger.Logger
}

// NewDetector creates a change detector. pub may be nil to disable
// downstream fan-out; now may be nil to use the wall clock.
func NewDetector(st store.Store, pub publisher.Publisher, now func() time.Time) *Detector {
	if now == nil {
		now = time.Now
	}
	return &Detector{
		store: st,
		pub:   pub,
		now:   now,
		log:   logger.ForNotifier(),
	}
}

// Evaluate inspects a new extraction result for an (item, source) pair and
// emits zero or more notifications. The comparison baseline is the most
// recent prior observation within the lookback window.
func (d *Detector) Evaluate(ctx context.Context, item *store.TrackedItem, source *store.Source, result extract.Result) error {
	since := d.now().Add(-lookbackWindow)
	history, err := d.store.RecentObservations(ctx, item.ID, source.SiteName, since, baselineLimit)
	if err != nil {
		return err
	}

	if len(history) == 0 {
		// First observation in the window
		if result.InStock && result.Price != nil {
			return d.Notify(ctx, item.ID, store.KindNewItem,
				fmt.Sprintf("%s is now being tracked on %s - $%s", item.Name, source.SiteName, result.Price.StringFixed(2)))
		}
		return nil
	}

	last := history[0]

	// Stock transitions: only the edges notify
	if !last.InStock && result.InStock {
		if err := d.Notify(ctx, item.ID, store.KindBackInStock,
			fmt.Sprintf("%s is back in stock on %s!", item.Name, source.SiteName)); err != nil {
			return err
		}
	} else if last.InStock && !result.InStock {
		if err := d.Notify(ctx, item.ID, store.KindOutOfStock,
			fmt.Sprintf("%s is now out of stock on %s", item.Name, source.SiteName)); err != nil {
			return err
		}
	}

	// Price drift against the single most recent prior observation
	if result.Price != nil && last.Price.IsPositive() {
		pct := result.Price.Sub(last.Price).Div(last.Price).Mul(decimal.NewFromInt(100))

		switch {
		case pct.LessThanOrEqual(priceChangeThreshold.Neg()):
			return d.Notify(ctx, item.ID, store.KindPriceDrop,
				fmt.Sprintf("%s price dropped %s%% on %s: $%s → $%s",
					item.Name, pct.Abs().StringFixed(1), source.SiteName,
					last.Price.StringFixed(2), result.Price.StringFixed(2)))
		case pct.GreaterThanOrEqual(priceChangeThreshold):
			return d.Notify(ctx, item.ID, store.KindPriceIncrease,
				fmt.Sprintf("%s price increased %s%% on %s: $%s → $%s",
					item.Name, pct.StringFixed(1), source.SiteName,
					last.Price.StringFixed(2), result.Price.StringFixed(2)))
		}
	}

	return nil
}

// Notify persists a notification and fans it out to the stream
func (d *Detector) Notify(ctx context.Context, itemID string, kind store.NotificationKind, message string) error {
	n := &store.Notification{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		Kind:      kind,
		Message:   message,
		CreatedAt: d.now(),
	}
	if err := d.store.CreateNotification(ctx, n); err != nil {
		return err
	}

	metrics.Notifications.WithLabelValues(string(kind)).Inc()
	d.log.Info().
		Str("item_id", itemID).
		Str("kind", string(kind)).
		Msg(message)

	if d.pub != nil {
		payload, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err := d.pub.Publish(string(kind), payload); err != nil {
			// Downstream fan-out is best effort; the notification is
			// already durable in the store
			d.log.Warn().Err(err).Msg("Failed to publish notification")
		}
	}
	return nil
}
