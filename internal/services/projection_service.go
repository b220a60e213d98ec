package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/indicators"
	"portfolio-tracker/internal/marketdata"
	"portfolio-tracker/internal/models"
)

// ErrInsufficientHistory reports a projection request for a symbol whose
// trading history is too short to model.
var ErrInsufficientHistory = errors.New("not enough price history to project")

const (
	defaultProjectionDays = 30
	minProjectionBars     = 60
	// projectionZ spans the central 90% of outcomes, the 5th to 95th
	// percentile of a normal return distribution.
	projectionZ = 1.645
)

// ProjectionService produces statistical price forecasts: daily drift
// and volatility estimated from six months of cached history,
// extrapolated into an expected path with percentile bands. Results are
// memoized per symbol and horizon for the history TTL.
type ProjectionService struct {
	market      *MarketService
	projections *marketdata.Cache[string, *models.StockProjection]
}

func NewProjectionService(market *MarketService, cfg *config.Config) *ProjectionService {
	return &ProjectionService{
		market:      market,
		projections: marketdata.NewCache[string, *models.StockProjection](cfg.HistoryTTL(), cfg.Cache.MaxEntries),
	}
}

// GetProjection returns the projected price path for symbol over the
// next daysAhead calendar days.
func (s *ProjectionService) GetProjection(ctx context.Context, symbol string, daysAhead int) (*models.StockProjection, error) {
	symbol = normalizeSymbol(symbol)
	if daysAhead <= 0 {
		daysAhead = defaultProjectionDays
	}
	key := fmt.Sprintf("%s:%d", symbol, daysAhead)
	return s.projections.GetOrFetch(ctx, key, func(ctx context.Context) (*models.StockProjection, error) {
		return s.buildProjection(ctx, symbol, daysAhead)
	})
}

// InvalidateCache drops all cached projections.
func (s *ProjectionService) InvalidateCache() {
	s.projections.InvalidateAll()
}

func (s *ProjectionService) buildProjection(ctx context.Context, symbol string, daysAhead int) (*models.StockProjection, error) {
	bars, err := s.market.GetHistory(ctx, symbol, marketdata.Range6Month, marketdata.Interval1Day)
	if err != nil {
		return nil, err
	}
	closes, _ := filterBars(bars)
	if len(closes) == 0 {
		return nil, &marketdata.NoDataError{Symbol: symbol}
	}
	if len(closes) < minProjectionBars {
		return nil, fmt.Errorf("%w: %s has %d usable bars, need %d",
			ErrInsufficientHistory, symbol, len(closes), minProjectionBars)
	}

	drift, ok := indicators.MeanReturn(closes)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInsufficientHistory, symbol)
	}
	volPercent, ok := indicators.Volatility(closes, len(closes)-1)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInsufficientHistory, symbol)
	}
	vol := volPercent / 100

	// Walk the expected path forward one day at a time. The band
	// around day t widens with sqrt(t), the dispersion of a random
	// walk after t steps.
	last := closes[len(closes)-1]
	now := time.Now()
	points := make([]models.ProjectionPoint, daysAhead)
	expected := last
	for t := 1; t <= daysAhead; t++ {
		expected *= 1 + drift
		spread := projectionZ * vol * math.Sqrt(float64(t))
		low := expected * (1 - spread)
		if low < 0 {
			low = 0
		}
		points[t-1] = models.ProjectionPoint{
			Date:     now.AddDate(0, 0, t),
			Expected: expected,
			Low:      low,
			High:     expected * (1 + spread),
		}
	}

	final := points[len(points)-1]
	return &models.StockProjection{
		Symbol:          symbol,
		CurrentPrice:    last,
		PredictedPrice:  math.Round(final.Expected*100) / 100,
		PredictionDate:  final.Date,
		ChangePercent:   (final.Expected - last) / last * 100,
		Confidence:      projectionConfidence(vol, daysAhead),
		DaysAhead:       daysAhead,
		DailyDrift:      drift,
		DailyVolatility: vol,
		Points:          points,
		ComputedAt:      now,
	}, nil
}

// projectionConfidence maps the dispersion at the horizon onto a
// 0.5..0.95 score: the wider the band, the lower the confidence.
func projectionConfidence(vol float64, daysAhead int) float64 {
	conf := 0.95 - projectionZ*vol*math.Sqrt(float64(daysAhead))
	if conf < 0.5 {
		conf = 0.5
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return math.Round(conf*100) / 100
}
