package services

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/indicators"
	"portfolio-tracker/internal/marketdata"
	"portfolio-tracker/internal/models"
)

// Price change lookbacks in trading days.
const (
	lookback1D = 1
	lookback1W = 5
	lookback1M = 20
	lookback3M = 62
)

// MarketService serves live quotes, price history, symbol search and
// derived technical statistics, memoizing provider responses in TTL
// caches so repeated requests within the freshness window cost one
// provider round-trip.
type MarketService struct {
	provider marketdata.Provider
	quotes   *marketdata.Cache[string, *models.Quote]
	history  *marketdata.Cache[string, []models.PriceBar]
	search   *marketdata.Cache[string, []models.SearchResult]
	workers  chan struct{} // semaphore for bounded batch fan-out
}

func NewMarketService(provider marketdata.Provider, cfg *config.Config) *MarketService {
	return &MarketService{
		provider: provider,
		quotes:   marketdata.NewCache[string, *models.Quote](cfg.QuoteTTL(), cfg.Cache.MaxEntries),
		history:  marketdata.NewCache[string, []models.PriceBar](cfg.HistoryTTL(), cfg.Cache.MaxEntries),
		search:   marketdata.NewCache[string, []models.SearchResult](cfg.SearchTTL(), cfg.Cache.MaxEntries),
		workers:  make(chan struct{}, cfg.Fetch.MaxConcurrent),
	}
}

// GetQuote returns a live quote for one symbol, cached for the quote TTL.
func (s *MarketService) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = normalizeSymbol(symbol)
	return s.quotes.GetOrFetch(ctx, symbol, func(ctx context.Context) (*models.Quote, error) {
		return s.provider.Quote(ctx, symbol)
	})
}

// GetHistory returns OHLCV bars for a symbol, cached per symbol, range
// and interval.
func (s *MarketService) GetHistory(ctx context.Context, symbol, rng, interval string) ([]models.PriceBar, error) {
	symbol = normalizeSymbol(symbol)
	key := symbol + ":" + rng + ":" + interval
	return s.history.GetOrFetch(ctx, key, func(ctx context.Context) ([]models.PriceBar, error) {
		return s.provider.History(ctx, symbol, rng, interval)
	})
}

// Search returns symbol candidates for a free-text query.
func (s *MarketService) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	return s.search.GetOrFetch(ctx, key, func(ctx context.Context) ([]models.SearchResult, error) {
		return s.provider.Search(ctx, query)
	})
}

// GetQuotes resolves quotes for multiple symbols concurrently through
// the quote cache, bounded by the worker pool. It returns resolved
// quotes keyed by symbol plus a sorted list of symbols that failed, so
// callers can surface what was skipped instead of dropping it silently.
func (s *MarketService) GetQuotes(ctx context.Context, symbols []string) (map[string]*models.Quote, []string) {
	results := make(map[string]*models.Quote, len(symbols))
	failed := make([]string, 0)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, sym := range symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			// Acquire worker slot (bounded concurrency)
			s.workers <- struct{}{}
			defer func() { <-s.workers }()

			quote, err := s.GetQuote(ctx, symbol)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Printf("Error fetching %s: %v", symbol, err)
				failed = append(failed, normalizeSymbol(symbol))
				return
			}
			results[normalizeSymbol(symbol)] = quote
		}(sym)
	}

	wg.Wait()
	sort.Strings(failed)
	return results, failed
}

// GetStatistics composes the technical snapshot for one symbol from a
// live quote and six months of daily history. Indicators the available
// history cannot support are left nil rather than reported as zero.
func (s *MarketService) GetStatistics(ctx context.Context, symbol string) (*models.StockStatistics, error) {
	symbol = normalizeSymbol(symbol)

	quote, err := s.GetQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	bars, err := s.GetHistory(ctx, symbol, marketdata.Range6Month, marketdata.Interval1Day)
	if err != nil {
		return nil, err
	}

	closes, volumes := filterBars(bars)
	if len(closes) == 0 {
		return nil, &marketdata.NoDataError{Symbol: symbol}
	}

	stats := &models.StockStatistics{
		Symbol:       symbol,
		Name:         quote.Name,
		CurrentPrice: quote.CurrentPrice,
		Fundamentals: models.Fundamentals{
			MarketCap:     quote.MarketCap,
			PERatio:       quote.PERatio,
			DividendYield: quote.DividendYield,
			Sector:        quote.Sector,
			Industry:      quote.Industry,
		},
		ComputedAt: time.Now(),
	}

	stats.PriceChange1D = optional(indicators.PriceChange(closes, lookback1D))
	stats.PriceChange1W = optional(indicators.PriceChange(closes, lookback1W))
	stats.PriceChange1M = optional(indicators.PriceChange(closes, lookback1M))
	stats.PriceChange3M = optional(indicators.PriceChange(closes, lookback3M))
	stats.Volatility = optional(indicators.Volatility(closes, 20))
	stats.SMA20 = optional(indicators.SMA(closes, 20))
	stats.SMA50 = optional(indicators.SMA(closes, 50))
	stats.SMA200 = optional(indicators.SMA(closes, 200))
	stats.RSI = optional(indicators.RSI(closes, 14))

	if avg, ok := indicators.AverageVolume(volumes, 20); ok {
		stats.VolumeAvg20 = &avg
		if avg > 0 {
			ratio := volumes[len(volumes)-1] / avg
			stats.VolumeRatio = &ratio
		}
	}

	// closes is non-empty here, so the levels always resolve.
	support, resistance, _ := indicators.SupportResistance(closes)
	stats.SupportLevel = support
	stats.ResistanceLevel = resistance

	return stats, nil
}

// InvalidateCaches drops all cached market data. Used for tests and
// admin resets.
func (s *MarketService) InvalidateCaches() {
	s.quotes.InvalidateAll()
	s.history.InvalidateAll()
	s.search.InvalidateAll()
}

// filterBars extracts parallel close and volume series from bars,
// dropping entries whose close or volume is missing or non-numeric so
// malformed provider data cannot poison the indicator math.
func filterBars(bars []models.PriceBar) (closes, volumes []float64) {
	closes = make([]float64, 0, len(bars))
	volumes = make([]float64, 0, len(bars))
	for _, bar := range bars {
		if bar.Close <= 0 || math.IsNaN(bar.Close) || math.IsInf(bar.Close, 0) {
			continue
		}
		if bar.Volume < 0 {
			continue
		}
		closes = append(closes, bar.Close)
		volumes = append(volumes, float64(bar.Volume))
	}
	return closes, volumes
}

func optional(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
