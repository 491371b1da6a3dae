package extract

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"sjsage522/stockwatcher/logger"
	apperr "sjsage522/stockwatcher/pkg/errors"
	"sjsage522/stockwatcher/services/cache"
)

// Negative vocabulary always wins over positive matches
var outOfStockKeywords = []string{
	"out of stock", "sold out", "unavailable", "not available",
	"temporarily out of stock", "currently unavailable", "not in stock",
}

var defaultInStockKeywords = []string{
	"in stock", "available", "add to cart", "buy now", "purchase",
}

var stockCountRe = regexp.MustCompile(`(?i)(\d+)\s*(available|in stock|left)`)

// Engine pulls structured facts out of product pages. All dependencies are
// injected so tests can run with fake clocks, fake pages and no network.
type Engine struct {
	fetch     FetchFunc
	profiles  *ProfileTable
	cacheSvc  cache.CacheService
	blockTime time.Duration
	log       *logger.Logger
}

// NewEngine creates an extraction engine. cacheSvc may be nil to disable
// rate-limit block windows.
func NewEngine(fetch FetchFunc, profiles *ProfileTable, cacheSvc cache.CacheService, blockTime time.Duration) *Engine {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &Engine{
		fetch:     fetch,
		profiles:  profiles,
		cacheSvc:  cacheSvc,
		blockTime: blockTime,
		log:       logger.ForExtractor(),
	}
}

// Extract fetches cfg.URL and returns what it could read off the page.
// Fetch failures are reported on Result.Error and never as a Go error;
// the caller decides whether to retry on a later cycle.
func (e *Engine) Extract(ctx context.Context, cfg Config) Result {
	cfg = e.profiles.Apply(cfg)

	host := hostOf(cfg.URL)
	if e.blocked(host) {
		return Result{Error: fmt.Sprintf("host %s is in a rate-limit block window", host)}
	}

	body, err := e.fetch(ctx, cfg.URL)
	if err != nil {
		var terr *apperr.TrackerError
		if errors.As(err, &terr) && terr.Type == apperr.ErrorTypeRateLimit {
			e.block(host)
		}
		e.log.Warn().Str("url", cfg.URL).Err(err).Msg("Fetch failed")
		return Result{Error: err.Error()}
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return Result{Error: apperr.NewParsing(cfg.URL, "failed to parse HTML", err).Error()}
	}

	var result Result

	if cfg.PriceSelector != "" {
		priceText := strings.TrimSpace(doc.Find(cfg.PriceSelector).First().Text())
		result.Price = ParsePrice(priceText)
	}

	if cfg.TitleSelector != "" {
		result.Title = strings.TrimSpace(doc.Find(cfg.TitleSelector).First().Text())
	}

	if cfg.ImageSelector != "" {
		img := doc.Find(cfg.ImageSelector).First()
		if src, ok := img.Attr("src"); ok && src != "" {
			result.ImageURL = src
		} else if src, ok := img.Attr("data-src"); ok {
			result.ImageURL = src
		}
	}

	if cfg.StockSelector != "" {
		stockText := strings.ToLower(strings.TrimSpace(doc.Find(cfg.StockSelector).First().Text()))
		result.InStock = ClassifyStock(stockText, cfg.StockKeywords)
		result.StockCount = ParseStockCount(stockText)
	} else {
		// No stock signal channel configured: a found price is the only
		// evidence the item is purchasable.
		result.InStock = result.Price != nil
	}

	return result
}

// ParsePrice strips everything except digits, dots and commas, discards
// thousands separators and parses the remainder as a decimal. Non-numeric
// or non-positive values mean "no price found", never zero.
func ParsePrice(text string) *decimal.Decimal {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			b.WriteRune(r)
		}
	}
	clean := strings.ReplaceAll(b.String(), ",", "")
	if clean == "" {
		return nil
	}

	d, err := decimal.NewFromString(clean)
	if err != nil || !d.IsPositive() {
		return nil
	}
	return &d
}

// ClassifyStock decides stock state from the lower-cased text of the stock
// element. The negative vocabulary takes precedence over any positive
// match; text matching neither vocabulary is conservatively out of stock.
func ClassifyStock(stockText string, keywords []string) bool {
	for _, kw := range outOfStockKeywords {
		if strings.Contains(stockText, kw) {
			return false
		}
	}

	inStockKeywords := keywords
	if len(inStockKeywords) == 0 {
		inStockKeywords = defaultInStockKeywords
	}
	for _, kw := range inStockKeywords {
		if strings.Contains(stockText, strings.ToLower(kw)) {
			return true
		}
	}

	return false
}

// ParseStockCount extracts an explicit unit count from text like
// "only 3 left" or "12 available"
func ParseStockCount(stockText string) *int {
	m := stockCountRe.FindStringSubmatch(stockText)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func (e *Engine) blocked(host string) bool {
	if e.cacheSvc == nil || host == "" {
		return false
	}
	_, err := e.cacheSvc.Get("block:" + host)
	return err == nil
}

func (e *Engine) block(host string) {
	if e.cacheSvc == nil || host == "" || e.blockTime <= 0 {
		return
	}
	if err := e.cacheSvc.Set("block:"+host, []byte(fmt.Sprintf("%d", e.blockTime/time.Second)), e.blockTime); err != nil {
		e.log.Debug().Str("host", host).Err(err).Msg("Failed to set block window")
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
