package extract

import (
	"net/url"
	"strings"
)

// Profile holds the default selector/keyword configuration for a domain
type Profile struct {
	PriceSelector string
	StockSelector string
	TitleSelector string
	ImageSelector string
	StockKeywords []string
}

type profileEntry struct {
	domain  string
	profile Profile
}

// ProfileTable maps domain substrings to default extraction profiles.
// Lookup prefers an exact host match over substring matches, and the
// longest substring over shorter ones.
type ProfileTable struct {
	entries []profileEntry
}

// DefaultProfiles returns the built-in profile table for major marketplaces
func DefaultProfiles() *ProfileTable {
	t := &ProfileTable{}
	t.Register("amazon.com", Profile{
		PriceSelector: ".a-price-whole, .a-price .a-offscreen",
		StockSelector: "#availability .a-size-medium",
		TitleSelector: "#productTitle",
		ImageSelector: "#landingImage",
		StockKeywords: []string{"in stock", "available"},
	})
	t.Register("popmart.com", Profile{
		PriceSelector: ".price, .current-price",
		StockSelector: ".stock-status, .availability",
		TitleSelector: ".product-title, h1",
		ImageSelector: ".product-image img, .main-image img",
		StockKeywords: []string{"in stock", "available", "add to cart"},
	})
	t.Register("ebay.com", Profile{
		PriceSelector: ".main-price, .price-current",
		StockSelector: ".availability, .stock-info",
		TitleSelector: ".x-item-title-label",
		ImageSelector: "#icImg",
		StockKeywords: []string{"available", "in stock"},
	})
	t.Register("walmart.com", Profile{
		PriceSelector: `[itemprop="price"], [data-automation-id="product-price"]`,
		StockSelector: `[data-automation-id="fulfillment-section"]`,
		TitleSelector: `h1[itemprop="name"]`,
		ImageSelector: `[data-testid="hero-image"] img`,
		StockKeywords: []string{"add to cart", "in stock"},
	})
	t.Register("bestbuy.com", Profile{
		PriceSelector: ".priceView-customer-price span",
		StockSelector: ".fulfillment-add-to-cart-button",
		TitleSelector: ".sku-title h1",
		ImageSelector: ".primary-image",
		StockKeywords: []string{"add to cart", "available"},
	})
	t.Register("target.com", Profile{
		PriceSelector: `[data-test="product-price"]`,
		StockSelector: `[data-test="fulfillment"]`,
		TitleSelector: `h1[data-test="product-title"]`,
		ImageSelector: `[data-test="image-gallery-item-0"] img`,
		StockKeywords: []string{"in stock", "add to cart"},
	})
	t.Register("etsy.com", Profile{
		PriceSelector: `[data-selector="price-only"], .wt-text-title-larger`,
		StockSelector: ".stock-indicator, .wt-text-caption-title",
		TitleSelector: `h1[data-buy-box-listing-title="true"]`,
		ImageSelector: ".listing-page-image-carousel-component img",
		StockKeywords: []string{"in stock", "add to cart", "only"},
	})
	t.Register("aliexpress.com", Profile{
		PriceSelector: ".product-price-value",
		StockSelector: ".product-quantity-tip",
		TitleSelector: ".product-title-text",
		ImageSelector: ".magnifier-image",
		StockKeywords: []string{"available", "in stock", "pieces"},
	})
	return t
}

// Register adds or replaces the profile for a domain substring.
// Extending the table never requires touching extraction logic.
func (t *ProfileTable) Register(domain string, p Profile) {
	domain = strings.ToLower(domain)
	for i := range t.entries {
		if t.entries[i].domain == domain {
			t.entries[i].profile = p
			return
		}
	}
	t.entries = append(t.entries, profileEntry{domain: domain, profile: p})
}

// Lookup finds the profile for a host, exact match first, then the
// longest matching substring
func (t *ProfileTable) Lookup(host string) (Profile, bool) {
	host = strings.ToLower(host)

	for _, e := range t.entries {
		if host == e.domain || host == "www."+e.domain {
			return e.profile, true
		}
	}

	var (
		best    Profile
		bestLen int
		found   bool
	)
	for _, e := range t.entries {
		if strings.Contains(host, e.domain) && len(e.domain) > bestLen {
			best = e.profile
			bestLen = len(e.domain)
			found = true
		}
	}
	return best, found
}

// Apply back-fills any empty selector/keyword field of cfg from the
// profile matching the URL's host. Caller-supplied fields always win.
func (t *ProfileTable) Apply(cfg Config) Config {
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Host == "" {
		return cfg
	}

	profile, ok := t.Lookup(u.Hostname())
	if !ok {
		return cfg
	}

	if cfg.PriceSelector == "" {
		cfg.PriceSelector = profile.PriceSelector
	}
	if cfg.StockSelector == "" {
		cfg.StockSelector = profile.StockSelector
	}
	if cfg.TitleSelector == "" {
		cfg.TitleSelector = profile.TitleSelector
	}
	if cfg.ImageSelector == "" {
		cfg.ImageSelector = profile.ImageSelector
	}
	if len(cfg.StockKeywords) == 0 {
		cfg.StockKeywords = profile.StockKeywords
	}
	return cfg
}
