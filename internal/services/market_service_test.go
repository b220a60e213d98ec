package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/marketdata"
	"portfolio-tracker/internal/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("no-such-config.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

func testQuote(symbol string, price, change, changePercent float64) *models.Quote {
	pe := 28.5
	return &models.Quote{
		Symbol:        symbol,
		Name:          symbol + " Inc.",
		CurrentPrice:  price,
		PreviousClose: price - change,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        1200000,
		MarketCap:     2.8e12,
		PERatio:       &pe,
		Sector:        "Technology",
		Industry:      "Consumer Electronics",
		Timestamp:     time.Now(),
	}
}

func makeBars(closes []float64, volume int64) []models.PriceBar {
	bars := make([]models.PriceBar, len(closes))
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = models.PriceBar{
			Date:     base.AddDate(0, 0, i),
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			AdjClose: c,
			Volume:   volume,
		}
	}
	return bars
}

func rampCloses(n int, start, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = start + float64(i)*step
	}
	return closes
}

func TestGetStatistics_ComposesSnapshot(t *testing.T) {
	closes := rampCloses(130, 100, 0.5)
	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{"AAPL": testQuote("AAPL", 164.5, 0.5, 0.3)},
		Bars:   map[string][]models.PriceBar{"AAPL": makeBars(closes, 1000000)},
	}
	svc := NewMarketService(mock, testConfig(t))

	stats, err := svc.GetStatistics(context.Background(), " aapl ")
	if err != nil {
		t.Fatalf("GetStatistics() error = %v", err)
	}

	if stats.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", stats.Symbol)
	}
	if stats.CurrentPrice != 164.5 {
		t.Errorf("CurrentPrice = %v, want 164.5", stats.CurrentPrice)
	}
	if stats.SMA20 == nil || stats.SMA50 == nil {
		t.Fatal("SMA20 and SMA50 should be computable from 130 bars")
	}
	if stats.SMA200 != nil {
		t.Errorf("SMA200 = %v, want nil with only 130 bars", *stats.SMA200)
	}

	last := closes[len(closes)-1]
	prev := closes[len(closes)-2]
	want1D := (last - prev) / prev * 100
	if stats.PriceChange1D == nil {
		t.Fatal("PriceChange1D should not be nil")
	}
	if math.Abs(*stats.PriceChange1D-want1D) > 1e-9 {
		t.Errorf("PriceChange1D = %v, want %v", *stats.PriceChange1D, want1D)
	}

	// Monotonically rising closes have no losing days in the RSI window.
	if stats.RSI == nil || *stats.RSI != 100 {
		t.Errorf("RSI = %v, want 100 for a monotonic ramp", stats.RSI)
	}

	// Constant volume means the latest bar sits exactly at the average.
	if stats.VolumeRatio == nil || math.Abs(*stats.VolumeRatio-1) > 1e-9 {
		t.Errorf("VolumeRatio = %v, want 1", stats.VolumeRatio)
	}

	wantSupport := closes[len(closes)-20]
	if stats.SupportLevel != wantSupport {
		t.Errorf("SupportLevel = %v, want %v", stats.SupportLevel, wantSupport)
	}
	if stats.ResistanceLevel != last {
		t.Errorf("ResistanceLevel = %v, want %v", stats.ResistanceLevel, last)
	}

	if stats.Fundamentals.Sector != "Technology" {
		t.Errorf("Fundamentals.Sector = %q, want Technology", stats.Fundamentals.Sector)
	}
	if stats.Fundamentals.PERatio == nil || *stats.Fundamentals.PERatio != 28.5 {
		t.Errorf("Fundamentals.PERatio = %v, want 28.5", stats.Fundamentals.PERatio)
	}
}

func TestGetStatistics_ShortHistoryLeavesNils(t *testing.T) {
	closes := rampCloses(10, 200, 1)
	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{"IPO": testQuote("IPO", 209, 1, 0.48)},
		Bars:   map[string][]models.PriceBar{"IPO": makeBars(closes, 50000)},
	}
	svc := NewMarketService(mock, testConfig(t))

	stats, err := svc.GetStatistics(context.Background(), "IPO")
	if err != nil {
		t.Fatalf("GetStatistics() error = %v", err)
	}

	for name, got := range map[string]*float64{
		"SMA20":         stats.SMA20,
		"SMA50":         stats.SMA50,
		"SMA200":        stats.SMA200,
		"RSI":           stats.RSI,
		"Volatility":    stats.Volatility,
		"VolumeAvg20":   stats.VolumeAvg20,
		"VolumeRatio":   stats.VolumeRatio,
		"PriceChange1M": stats.PriceChange1M,
		"PriceChange3M": stats.PriceChange3M,
	} {
		if got != nil {
			t.Errorf("%s = %v, want nil with 10 bars", name, *got)
		}
	}
	if stats.PriceChange1W == nil {
		t.Error("PriceChange1W should be computable from 10 bars")
	}

	last := closes[len(closes)-1]
	if stats.SupportLevel != last || stats.ResistanceLevel != last {
		t.Errorf("short-series levels = (%v, %v), want both %v",
			stats.SupportLevel, stats.ResistanceLevel, last)
	}
}

func TestGetStatistics_FiltersMalformedBars(t *testing.T) {
	good := []float64{100, 102, 101, 105, 107, 106, 110}
	bars := make([]models.PriceBar, 0, len(good)+4)
	for i, c := range good {
		bars = append(bars, makeBars([]float64{c}, 1000)[0])
		switch i {
		case 1:
			bars = append(bars, models.PriceBar{Close: 0, Volume: 1000})
		case 3:
			bars = append(bars, models.PriceBar{Close: math.NaN(), Volume: 1000})
		case 4:
			bars = append(bars, models.PriceBar{Close: -5, Volume: 1000})
		case 5:
			bars = append(bars, models.PriceBar{Close: 108, Volume: -1})
		}
	}

	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{"JUNK": testQuote("JUNK", 110, 4, 3.77)},
		Bars:   map[string][]models.PriceBar{"JUNK": bars},
	}
	svc := NewMarketService(mock, testConfig(t))

	stats, err := svc.GetStatistics(context.Background(), "JUNK")
	if err != nil {
		t.Fatalf("GetStatistics() error = %v", err)
	}

	// Only the 7 good closes survive, so the 1D change spans 106 -> 110.
	want1D := (110.0 - 106.0) / 106.0 * 100
	if stats.PriceChange1D == nil || math.Abs(*stats.PriceChange1D-want1D) > 1e-9 {
		t.Errorf("PriceChange1D = %v, want %v", stats.PriceChange1D, want1D)
	}
	if stats.SupportLevel != 110 || stats.ResistanceLevel != 110 {
		t.Errorf("levels = (%v, %v), want both 110 from the 7-bar fallback",
			stats.SupportLevel, stats.ResistanceLevel)
	}
}

func TestGetStatistics_NoUsableBars(t *testing.T) {
	bad := []models.PriceBar{{Close: 0, Volume: 100}, {Close: -1, Volume: 100}}
	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{"HALT": testQuote("HALT", 10, 0, 0)},
		Bars:   map[string][]models.PriceBar{"HALT": bad},
	}
	svc := NewMarketService(mock, testConfig(t))

	_, err := svc.GetStatistics(context.Background(), "HALT")
	var noData *marketdata.NoDataError
	if !errors.As(err, &noData) {
		t.Fatalf("GetStatistics() error = %v, want NoDataError", err)
	}
	if noData.Symbol != "HALT" {
		t.Errorf("NoDataError.Symbol = %q, want HALT", noData.Symbol)
	}
}

func TestGetStatistics_UnknownSymbol(t *testing.T) {
	svc := NewMarketService(&marketdata.MockProvider{}, testConfig(t))

	_, err := svc.GetStatistics(context.Background(), "NOPE")
	var noData *marketdata.NoDataError
	if !errors.As(err, &noData) {
		t.Fatalf("GetStatistics() error = %v, want NoDataError", err)
	}
}

func TestGetQuote_CachesWithinTTL(t *testing.T) {
	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{"AAPL": testQuote("AAPL", 150, 1, 0.67)},
	}
	svc := NewMarketService(mock, testConfig(t))

	for _, sym := range []string{"AAPL", " aapl ", "aapl"} {
		if _, err := svc.GetQuote(context.Background(), sym); err != nil {
			t.Fatalf("GetQuote(%q) error = %v", sym, err)
		}
	}
	if mock.QuoteCalls != 1 {
		t.Errorf("QuoteCalls = %d, want 1 (cache should absorb repeats)", mock.QuoteCalls)
	}
}

func TestGetHistory_CacheKeyPerRangeAndInterval(t *testing.T) {
	mock := &marketdata.MockProvider{
		Bars: map[string][]models.PriceBar{"AAPL": makeBars(rampCloses(5, 100, 1), 1000)},
	}
	svc := NewMarketService(mock, testConfig(t))

	ctx := context.Background()
	if _, err := svc.GetHistory(ctx, "AAPL", marketdata.Range6Month, marketdata.Interval1Day); err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if _, err := svc.GetHistory(ctx, "AAPL", marketdata.Range6Month, marketdata.Interval1Day); err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if _, err := svc.GetHistory(ctx, "AAPL", marketdata.Range1Year, marketdata.Interval1Day); err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}

	if mock.HistoryCalls != 2 {
		t.Errorf("HistoryCalls = %d, want 2 (one per distinct range)", mock.HistoryCalls)
	}
}

func TestGetQuotes_PartialFailure(t *testing.T) {
	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{
			"AAPL": testQuote("AAPL", 150, 1, 0.67),
			"MSFT": testQuote("MSFT", 410, -2, -0.49),
		},
	}
	svc := NewMarketService(mock, testConfig(t))

	quotes, failed := svc.GetQuotes(context.Background(), []string{"AAPL", "MSFT", "FAKE"})
	if len(quotes) != 2 {
		t.Fatalf("len(quotes) = %d, want 2", len(quotes))
	}
	if quotes["AAPL"] == nil || quotes["MSFT"] == nil {
		t.Error("expected quotes for AAPL and MSFT")
	}
	if len(failed) != 1 || failed[0] != "FAKE" {
		t.Errorf("failed = %v, want [FAKE]", failed)
	}
}

func TestGetQuotes_EmptyInput(t *testing.T) {
	mock := &marketdata.MockProvider{}
	svc := NewMarketService(mock, testConfig(t))

	quotes, failed := svc.GetQuotes(context.Background(), nil)
	if len(quotes) != 0 || len(failed) != 0 {
		t.Errorf("GetQuotes(nil) = (%v, %v), want empty results", quotes, failed)
	}
	if mock.QuoteCalls != 0 {
		t.Errorf("QuoteCalls = %d, want 0", mock.QuoteCalls)
	}
}

func TestSearch_CacheNormalizesQuery(t *testing.T) {
	mock := &marketdata.MockProvider{
		Results: []models.SearchResult{{Symbol: "AAPL", Name: "Apple Inc.", Exchange: "NMS", Type: "EQUITY"}},
	}
	svc := NewMarketService(mock, testConfig(t))

	for _, q := range []string{"Apple", " apple ", "APPLE"} {
		results, err := svc.Search(context.Background(), q)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", q, err)
		}
		if len(results) != 1 {
			t.Fatalf("Search(%q) returned %d results, want 1", q, len(results))
		}
	}
	if mock.SearchCalls != 1 {
		t.Errorf("SearchCalls = %d, want 1", mock.SearchCalls)
	}
}
