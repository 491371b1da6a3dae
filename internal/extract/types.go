package extract

import (
	"context"
	"io"

	"github.com/shopspring/decimal"
)

// Config describes how to pull facts out of one product page
type Config struct {
	URL           string
	PriceSelector string
	StockSelector string
	TitleSelector string
	ImageSelector string
	StockKeywords []string
}

// Result is the transient outcome of one extraction. A set Error means the
// page could not be fetched; missing selectors or selector misses are not
// errors, the corresponding fields are simply absent.
type Result struct {
	Price      *decimal.Decimal
	InStock    bool
	StockCount *int
	Title      string
	ImageURL   string
	Error      string
}

// Failed reports whether the extraction hit a fetch-level error
func (r Result) Failed() bool {
	return r.Error != ""
}

// FetchFunc retrieves a page body for a URL
type FetchFunc func(ctx context.Context, url string) (io.Reader, error)
