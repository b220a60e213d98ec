package services

import (
	"context"
	"math"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"portfolio-tracker/internal/marketdata"
	"portfolio-tracker/internal/models"
)

func makeHolding(userID, symbol string, shares, avgPrice float64) models.Holding {
	now := time.Now()
	return models.Holding{
		ID:           primitive.NewObjectID(),
		UserID:       userID,
		Symbol:       symbol,
		Shares:       shares,
		AvgPrice:     avgPrice,
		PurchaseDate: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func portfolioServiceWith(t *testing.T, mock *marketdata.MockProvider) *PortfolioService {
	t.Helper()
	return &PortfolioService{market: NewMarketService(mock, testConfig(t))}
}

func TestValuate_PricesHoldings(t *testing.T) {
	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{"AAPL": testQuote("AAPL", 60, 2, 3.45)},
	}
	svc := portfolioServiceWith(t, mock)

	holdings := []models.Holding{makeHolding("u1", "AAPL", 10, 50)}
	v := svc.Valuate(context.Background(), holdings)

	if len(v.Holdings) != 1 {
		t.Fatalf("len(Holdings) = %d, want 1", len(v.Holdings))
	}
	hv := v.Holdings[0]
	if hv.CurrentPrice != 60 {
		t.Errorf("CurrentPrice = %v, want 60", hv.CurrentPrice)
	}
	if hv.CurrentValue != 600 {
		t.Errorf("CurrentValue = %v, want 600", hv.CurrentValue)
	}
	if hv.GainLoss != 100 {
		t.Errorf("GainLoss = %v, want 100", hv.GainLoss)
	}
	if hv.GainLossPercent != 20 {
		t.Errorf("GainLossPercent = %v, want 20", hv.GainLossPercent)
	}
	if hv.DayChange != 20 {
		t.Errorf("DayChange = %v, want 20 (2 per share x 10 shares)", hv.DayChange)
	}
	if hv.DayChangePercent != 3.45 {
		t.Errorf("DayChangePercent = %v, want 3.45", hv.DayChangePercent)
	}

	if v.TotalValue != 600 || v.TotalCost != 500 {
		t.Errorf("totals = (%v, %v), want (600, 500)", v.TotalValue, v.TotalCost)
	}
	if v.TotalGainLoss != 100 || v.TotalGainLossPercent != 20 {
		t.Errorf("gain = (%v, %v%%), want (100, 20%%)", v.TotalGainLoss, v.TotalGainLossPercent)
	}
	if len(v.SkippedSymbols) != 0 {
		t.Errorf("SkippedSymbols = %v, want empty", v.SkippedSymbols)
	}
}

func TestValuate_EmptyPortfolio(t *testing.T) {
	mock := &marketdata.MockProvider{}
	svc := portfolioServiceWith(t, mock)

	v := svc.Valuate(context.Background(), nil)

	if v.TotalValue != 0 || v.TotalCost != 0 || v.TotalGainLoss != 0 || v.TotalGainLossPercent != 0 {
		t.Errorf("empty portfolio totals should all be zero, got %+v", v)
	}
	if v.Holdings == nil || v.SkippedSymbols == nil {
		t.Error("Holdings and SkippedSymbols should be empty slices, not nil")
	}
	if mock.QuoteCalls != 0 {
		t.Errorf("QuoteCalls = %d, want 0 for an empty portfolio", mock.QuoteCalls)
	}
}

func TestValuate_SkipsUnresolvedSymbols(t *testing.T) {
	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{"AAPL": testQuote("AAPL", 60, 2, 3.45)},
	}
	svc := portfolioServiceWith(t, mock)

	holdings := []models.Holding{
		makeHolding("u1", "AAPL", 10, 50),
		makeHolding("u1", "GONE", 5, 80),
	}
	v := svc.Valuate(context.Background(), holdings)

	if len(v.Holdings) != 1 || v.Holdings[0].Symbol != "AAPL" {
		t.Fatalf("Holdings = %+v, want only the AAPL position", v.Holdings)
	}
	if len(v.SkippedSymbols) != 1 || v.SkippedSymbols[0] != "GONE" {
		t.Errorf("SkippedSymbols = %v, want [GONE]", v.SkippedSymbols)
	}
	// Totals must cover resolved holdings only.
	if v.TotalValue != 600 || v.TotalCost != 500 {
		t.Errorf("totals = (%v, %v), want (600, 500) excluding GONE", v.TotalValue, v.TotalCost)
	}
}

func TestValuate_NormalizesStoredSymbols(t *testing.T) {
	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{"AAPL": testQuote("AAPL", 60, 2, 3.45)},
	}
	svc := portfolioServiceWith(t, mock)

	// A holding stored before symbol normalization existed. Its quote
	// resolves under the canonical form, so it must still be priced.
	holdings := []models.Holding{makeHolding("u1", "aapl", 10, 50)}
	v := svc.Valuate(context.Background(), holdings)

	if len(v.Holdings) != 1 {
		t.Fatalf("len(Holdings) = %d, want the lowercase holding priced", len(v.Holdings))
	}
	if len(v.SkippedSymbols) != 0 {
		t.Errorf("SkippedSymbols = %v, want empty", v.SkippedSymbols)
	}
	if v.TotalValue != 600 {
		t.Errorf("TotalValue = %v, want 600", v.TotalValue)
	}
}

func TestValuate_Idempotent(t *testing.T) {
	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{
			"AAPL": testQuote("AAPL", 187.33, 1.21, 0.65),
			"MSFT": testQuote("MSFT", 412.08, -3.4, -0.82),
		},
	}
	svc := portfolioServiceWith(t, mock)

	holdings := []models.Holding{
		makeHolding("u1", "AAPL", 7.5, 151.02),
		makeHolding("u1", "MSFT", 3, 389.9),
	}

	first := svc.Valuate(context.Background(), holdings)
	second := svc.Valuate(context.Background(), holdings)

	if first.TotalValue != second.TotalValue ||
		first.TotalCost != second.TotalCost ||
		first.TotalGainLoss != second.TotalGainLoss ||
		first.TotalGainLossPercent != second.TotalGainLossPercent {
		t.Errorf("repeated valuation changed totals: %+v vs %+v", first, second)
	}
	if len(first.Holdings) != len(second.Holdings) {
		t.Fatalf("holding counts differ: %d vs %d", len(first.Holdings), len(second.Holdings))
	}
	for i := range first.Holdings {
		a, b := first.Holdings[i], second.Holdings[i]
		if a.CurrentValue != b.CurrentValue || a.GainLoss != b.GainLoss ||
			a.GainLossPercent != b.GainLossPercent || a.DayChange != b.DayChange {
			t.Errorf("holding %d differs between runs: %+v vs %+v", i, a, b)
		}
	}
	// Quotes are cached, so the second pass makes no provider calls.
	if mock.QuoteCalls != 2 {
		t.Errorf("QuoteCalls = %d, want 2 (one per symbol)", mock.QuoteCalls)
	}
}

func TestMergeHolding_WeightedAverage(t *testing.T) {
	shares, avg := mergeHolding(10, 100, 20, 130)
	if shares != 30 {
		t.Errorf("shares = %v, want 30", shares)
	}
	if avg != 120 {
		t.Errorf("avg = %v, want 120", avg)
	}

	// Merging the same lots in the opposite order lands on the same basis.
	shares2, avg2 := mergeHolding(20, 130, 10, 100)
	if shares2 != shares || avg2 != avg {
		t.Errorf("merge order changed result: (%v, %v) vs (%v, %v)", shares, avg, shares2, avg2)
	}
}

func TestMergeHolding_FractionalShares(t *testing.T) {
	// 0.1 sh @ 0.1 plus 0.1 sh @ 0.3 is exactly 0.2 sh @ 0.2 in decimal.
	shares, avg := mergeHolding(0.1, 0.1, 0.1, 0.3)
	if math.Abs(shares-0.2) > 1e-12 {
		t.Errorf("shares = %v, want 0.2", shares)
	}
	if avg != 0.2 {
		t.Errorf("avg = %v, want exactly 0.2", avg)
	}
}

func TestPriceHolding_ZeroCostBasis(t *testing.T) {
	h := makeHolding("u1", "FREE", 10, 0)
	hv := priceHolding(h, testQuote("FREE", 5, 0, 0))

	if hv.CurrentValue != 50 {
		t.Errorf("CurrentValue = %v, want 50", hv.CurrentValue)
	}
	if hv.GainLossPercent != 0 {
		t.Errorf("GainLossPercent = %v, want 0 when cost basis is zero", hv.GainLossPercent)
	}
}

func TestHoldingSymbols_DistinctSorted(t *testing.T) {
	holdings := []models.Holding{
		makeHolding("u1", "MSFT", 1, 1),
		makeHolding("u2", "AAPL", 1, 1),
		makeHolding("u3", "msft ", 2, 2),
	}
	got := holdingSymbols(holdings)
	want := []string{"AAPL", "MSFT"}
	if len(got) != len(want) {
		t.Fatalf("holdingSymbols = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("holdingSymbols[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
