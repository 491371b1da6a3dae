package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seed inserts a small sample catalog for local development.
// It is a no-op when any item already exists.
func Seed(ctx context.Context, s Store) error {
	if items, err := s.ListActiveItems(ctx); err != nil {
		return err
	} else if len(items) > 0 {
		return nil
	}

	type seedItem struct {
		item    TrackedItem
		sources []Source
	}

	price := func(v string) *decimal.Decimal {
		d := decimal.RequireFromString(v)
		return &d
	}

	samples := []seedItem{
		{
			item: TrackedItem{
				Name:           "MOLLY x Kenny Scharf Series",
				Description:    "Limited edition MOLLY figure from Kenny Scharf collaboration",
				Category:       "Pop Mart",
				Brand:          "Pop Mart",
				SKU:            "MOLLY-KS-001",
				Price:          price("15.99"),
				InventoryLevel: 15,
				MinStockLevel:  5,
				MaxStockLevel:  50,
				IsActive:       true,
				AutoTrack:      true,
			},
			sources: []Source{
				{
					SiteName:       "Pop Mart Official",
					SiteType:       SiteTypeOfficialStore,
					URL:            "https://www.popmart.com/products/molly-kenny-scharf",
					CheckFrequency: 60,
					IsActive:       true,
				},
			},
		},
		{
			item: TrackedItem{
				Name:           "SKULLPANDA The Sound Series",
				Description:    "Musical themed SKULLPANDA collectible figure",
				Category:       "Pop Mart",
				Brand:          "Pop Mart",
				SKU:            "SP-SOUND-002",
				Price:          price("13.99"),
				InventoryLevel: 8,
				MinStockLevel:  10,
				MaxStockLevel:  40,
				IsActive:       true,
				AutoTrack:      true,
			},
			sources: []Source{
				{
					SiteName:       "eBay",
					SiteType:       SiteTypeMarketplace,
					URL:            "https://www.ebay.com/itm/skullpanda-sound",
					CheckFrequency: 30,
					IsActive:       true,
				},
			},
		},
		{
			item: TrackedItem{
				Name:           "Vintage Band Tee - The Rolling Stones",
				Description:    "Authentic vintage Rolling Stones concert t-shirt",
				Category:       "Clothing",
				Brand:          "Band Merch",
				SKU:            "VTGE-RS-L",
				Price:          price("89.99"),
				InventoryLevel: 0,
				MinStockLevel:  2,
				MaxStockLevel:  20,
				IsActive:       true,
				AutoTrack:      false,
			},
		},
		{
			item: TrackedItem{
				Name:           "DIMOO Space Travel Series",
				Description:    "Astronaut themed DIMOO collectible figure",
				Category:       "Pop Mart",
				Brand:          "Pop Mart",
				SKU:            "DIMOO-ST-005",
				Price:          price("14.99"),
				InventoryLevel: 25,
				MinStockLevel:  8,
				MaxStockLevel:  100,
				IsActive:       true,
				AutoTrack:      true,
			},
			sources: []Source{
				{
					SiteName:       "Amazon",
					SiteType:       SiteTypeRetailer,
					URL:            "https://www.amazon.com/dp/dimoo-space-travel",
					CheckFrequency: 120,
					IsActive:       true,
				},
			},
		},
	}

	for _, sample := range samples {
		sample.item.ID = uuid.NewString()
		if err := s.CreateItem(ctx, &sample.item); err != nil {
			return err
		}
		for _, src := range sample.sources {
			src.ID = uuid.NewString()
			src.ItemID = sample.item.ID
			if err := s.CreateSource(ctx, &src); err != nil {
				return err
			}
		}
	}
	return nil
}
