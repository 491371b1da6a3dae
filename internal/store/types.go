package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// SiteType classifies where a source URL points
type SiteType string

const (
	SiteTypeOfficialStore SiteType = "OFFICIAL_STORE"
	SiteTypeMarketplace   SiteType = "MARKETPLACE"
	SiteTypeRetailer      SiteType = "RETAILER"
	SiteTypeReseller      SiteType = "RESELLER"
)

// ValidSiteType reports whether t is one of the known site types
func ValidSiteType(t SiteType) bool {
	switch t {
	case SiteTypeOfficialStore, SiteTypeMarketplace, SiteTypeRetailer, SiteTypeReseller:
		return true
	}
	return false
}

// NotificationKind is the category of an emitted notification
type NotificationKind string

const (
	KindNewItem       NotificationKind = "NEW_ITEM"
	KindBackInStock   NotificationKind = "BACK_IN_STOCK"
	KindOutOfStock    NotificationKind = "OUT_OF_STOCK"
	KindLowStock      NotificationKind = "LOW_STOCK"
	KindPriceDrop     NotificationKind = "PRICE_DROP"
	KindPriceIncrease NotificationKind = "PRICE_INCREASE"
	KindRestocked     NotificationKind = "RESTOCKED"
)

// RunStatus is the terminal state of an orchestrator run
type RunStatus string

const (
	RunCompleted RunStatus = "COMPLETED"
	RunFailed    RunStatus = "FAILED"
)

// TrackedItem is a product whose external listings are monitored
type TrackedItem struct {
	ID             string
	Name           string
	Description    string
	Category       string
	Brand          string
	SKU            string
	ImageURL       string
	Price          *decimal.Decimal
	InventoryLevel int
	MinStockLevel  int
	MaxStockLevel  int
	IsActive       bool
	AutoTrack      bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Source is one monitored URL for an item. Selector fields left empty are
// back-filled from the site profile table at extraction time.
type Source struct {
	ID             string
	ItemID         string
	SiteName       string
	SiteType       SiteType
	URL            string
	PriceSelector  string
	StockSelector  string
	TitleSelector  string
	ImageSelector  string
	CheckFrequency int // minutes
	LastChecked    *time.Time
	IsActive       bool
	CreatedAt      time.Time
}

// Observation is a single persisted price/stock reading for an item/source
type Observation struct {
	ID         string
	ItemID     string
	Source     string
	Price      decimal.Decimal
	InStock    bool
	StockCount *int
	ObservedAt time.Time
}

// Notification is an alert raised by the change detector or stock sweep
type Notification struct {
	ID        string
	ItemID    string
	Kind      NotificationKind
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// RunLog records one orchestrator invocation
type RunLog struct {
	ID           string
	Trigger      string
	Status       RunStatus
	ItemsChecked int
	Errors       string
	Duration     time.Duration
	CompletedAt  time.Time
}

// InventoryChange records a manual or automated inventory-level change
type InventoryChange struct {
	ID        string
	ItemID    string
	OldLevel  int
	NewLevel  int
	Reason    string
	CreatedAt time.Time
}
