package marketdata

import (
	"context"
	"fmt"

	"portfolio-tracker/internal/models"
)

// Chart ranges accepted by the history provider.
const (
	Range1Day   = "1d"
	Range5Day   = "5d"
	Range1Month = "1mo"
	Range3Month = "3mo"
	Range6Month = "6mo"
	Range1Year  = "1y"
	Range2Year  = "2y"
	Range5Year  = "5y"
	RangeMax    = "max"
)

// Bar intervals accepted by the history provider.
const (
	Interval1Day   = "1d"
	Interval1Week  = "1wk"
	Interval1Month = "1mo"
)

// ValidRange reports whether rng is a supported chart range.
func ValidRange(rng string) bool {
	switch rng {
	case Range1Day, Range5Day, Range1Month, Range3Month, Range6Month,
		Range1Year, Range2Year, Range5Year, RangeMax:
		return true
	}
	return false
}

// ValidInterval reports whether interval is a supported bar interval.
func ValidInterval(interval string) bool {
	switch interval {
	case Interval1Day, Interval1Week, Interval1Month:
		return true
	}
	return false
}

// Provider defines the interface for fetching market data from an
// external source. Implementations must honor context cancellation on
// every call.
type Provider interface {
	Quote(ctx context.Context, symbol string) (*models.Quote, error)
	History(ctx context.Context, symbol, rng, interval string) ([]models.PriceBar, error)
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
	News(ctx context.Context, topic string) ([]models.NewsArticle, error)
	Name() string
}

// NoDataError reports a symbol with no usable market data. Provider
// failures for unknown or delisted symbols are translated into this
// error so callers never see provider-specific error shapes.
type NoDataError struct {
	Symbol string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data found for symbol %s", e.Symbol)
}
