package monitor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sjsage522/stockwatcher/internal/store"
)

// SweepStockLevels inspects every active item's inventory level against
// its minimum stock level. An unread notification of the same kind
// suppresses re-emission while the condition persists; recovery marks the
// stale alerts read.
func (d *Detector) SweepStockLevels(ctx context.Context) error {
	items, err := d.store.ListActiveItems(ctx)
	if err != nil {
		return err
	}

	for i := range items {
		if err := d.sweepItem(ctx, &items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Detector) sweepItem(ctx context.Context, item *store.TrackedItem) error {
	unread, err := d.store.UnreadNotifications(ctx, item.ID, store.KindOutOfStock, store.KindLowStock)
	if err != nil {
		return err
	}

	hasUnread := func(kind store.NotificationKind) bool {
		for _, n := range unread {
			if n.Kind == kind {
				return true
			}
		}
		return false
	}

	switch {
	case item.InventoryLevel == 0:
		if !hasUnread(store.KindOutOfStock) {
			return d.Notify(ctx, item.ID, store.KindOutOfStock,
				fmt.Sprintf("%s is out of stock", item.Name))
		}
	case item.InventoryLevel <= item.MinStockLevel:
		if !hasUnread(store.KindLowStock) {
			return d.Notify(ctx, item.ID, store.KindLowStock,
				fmt.Sprintf("%s is running low (%d remaining)", item.Name, item.InventoryLevel))
		}
	default:
		// Condition cleared; retire the standing alerts
		return d.store.MarkItemKindsRead(ctx, item.ID, store.KindOutOfStock, store.KindLowStock)
	}
	return nil
}

// UpdateInventoryLevel records an inventory-level change, emits RESTOCKED
// on a zero-to-positive transition, and re-runs the level sweep.
func (d *Detector) UpdateInventoryLevel(ctx context.Context, itemID string, newLevel int, reason string) error {
	item, err := d.store.GetItem(ctx, itemID)
	if err != nil {
		return err
	}

	oldLevel := item.InventoryLevel
	if err := d.store.SetInventoryLevel(ctx, itemID, newLevel); err != nil {
		return err
	}

	if err := d.store.RecordInventoryChange(ctx, &store.InventoryChange{
		ID:        uuid.NewString(),
		ItemID:    itemID,
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		Reason:    reason,
		CreatedAt: d.now(),
	}); err != nil {
		return err
	}

	if oldLevel == 0 && newLevel > 0 {
		if err := d.Notify(ctx, itemID, store.KindRestocked,
			fmt.Sprintf("%s has been restocked (%d units available)", item.Name, newLevel)); err != nil {
			return err
		}
	}

	return d.SweepStockLevels(ctx)
}
