package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/models"
)

// ErrHoldingNotFound reports a remove for a symbol the user does not hold.
var ErrHoldingNotFound = errors.New("holding not found")

// PortfolioService manages user holdings and prices them against live
// quotes from the market service.
type PortfolioService struct {
	holdings *mongo.Collection
	market   *MarketService
}

func NewPortfolioService(market *MarketService) *PortfolioService {
	return &PortfolioService{
		holdings: config.GetCollection("holdings"),
		market:   market,
	}
}

// AddHolding records a position for the user. Adding a symbol the user
// already holds merges the lots into one holding with a weighted-average
// cost basis.
func (s *PortfolioService) AddHolding(ctx context.Context, userID, symbol string, shares, avgPrice float64, purchaseDate time.Time) (*models.Holding, error) {
	symbol = normalizeSymbol(symbol)
	if shares <= 0 {
		return nil, fmt.Errorf("shares must be positive, got %v", shares)
	}
	if avgPrice <= 0 {
		return nil, fmt.Errorf("avgPrice must be positive, got %v", avgPrice)
	}
	if purchaseDate.IsZero() {
		purchaseDate = time.Now()
	}

	var existing models.Holding
	err := s.holdings.FindOne(ctx, bson.M{
		"user_id": userID,
		"symbol":  symbol,
	}).Decode(&existing)

	if err == mongo.ErrNoDocuments {
		now := time.Now()
		holding := models.Holding{
			ID:           primitive.NewObjectID(),
			UserID:       userID,
			Symbol:       symbol,
			Shares:       shares,
			AvgPrice:     avgPrice,
			PurchaseDate: purchaseDate,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if _, err := s.holdings.InsertOne(ctx, holding); err != nil {
			return nil, err
		}
		return &holding, nil
	}
	if err != nil {
		return nil, err
	}

	newShares, newAvg := mergeHolding(existing.Shares, existing.AvgPrice, shares, avgPrice)
	existing.Shares = newShares
	existing.AvgPrice = newAvg
	existing.UpdatedAt = time.Now()

	_, err = s.holdings.UpdateOne(ctx,
		bson.M{"_id": existing.ID},
		bson.M{"$set": bson.M{
			"shares":     newShares,
			"avg_price":  newAvg,
			"updated_at": existing.UpdatedAt,
		}},
	)
	if err != nil {
		return nil, err
	}
	return &existing, nil
}

// RemoveHolding deletes the user's position in symbol entirely.
func (s *PortfolioService) RemoveHolding(ctx context.Context, userID, symbol string) error {
	symbol = normalizeSymbol(symbol)
	res, err := s.holdings.DeleteOne(ctx, bson.M{"user_id": userID, "symbol": symbol})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrHoldingNotFound
	}
	return nil
}

// ListHoldings returns the user's holdings ordered by symbol.
func (s *PortfolioService) ListHoldings(ctx context.Context, userID string) ([]models.Holding, error) {
	opts := options.Find().SetSort(bson.D{{Key: "symbol", Value: 1}})
	cur, err := s.holdings.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	holdings := make([]models.Holding, 0)
	if err := cur.All(ctx, &holdings); err != nil {
		return nil, err
	}
	return holdings, nil
}

// GetValuation loads the user's holdings and prices them.
func (s *PortfolioService) GetValuation(ctx context.Context, userID string) (*models.PortfolioValuation, error) {
	holdings, err := s.ListHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Valuate(ctx, holdings), nil
}

// Valuate prices holdings against live quotes. Holdings whose quote
// cannot be resolved are excluded from the totals and reported in
// SkippedSymbols, so one bad symbol never takes down the whole
// portfolio view.
func (s *PortfolioService) Valuate(ctx context.Context, holdings []models.Holding) *models.PortfolioValuation {
	valuation := &models.PortfolioValuation{
		Holdings:       make([]models.HoldingValue, 0, len(holdings)),
		SkippedSymbols: make([]string, 0),
		UpdatedAt:      time.Now(),
	}
	if len(holdings) == 0 {
		return valuation
	}

	quotes, failed := s.market.GetQuotes(ctx, holdingSymbols(holdings))
	valuation.SkippedSymbols = failed

	for _, h := range holdings {
		// GetQuotes keys results by normalized symbol; stored holdings
		// may predate normalization.
		quote, ok := quotes[normalizeSymbol(h.Symbol)]
		if !ok {
			continue
		}
		hv := priceHolding(h, quote)
		valuation.Holdings = append(valuation.Holdings, hv)
		valuation.TotalValue += hv.CurrentValue
		valuation.TotalCost += h.Shares * h.AvgPrice
		valuation.TotalGainLoss += hv.GainLoss
	}
	if valuation.TotalCost > 0 {
		valuation.TotalGainLossPercent = valuation.TotalGainLoss / valuation.TotalCost * 100
	}
	return valuation
}

// AllSymbols returns every distinct symbol held by any user. The
// scheduler uses it to warm the quote cache before the market opens.
func (s *PortfolioService) AllSymbols(ctx context.Context) ([]string, error) {
	values, err := s.holdings.Distinct(ctx, "symbol", bson.M{})
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(values))
	for _, v := range values {
		if sym, ok := v.(string); ok {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// priceHolding computes the live value of one holding against its quote.
func priceHolding(h models.Holding, quote *models.Quote) models.HoldingValue {
	currentValue := h.Shares * quote.CurrentPrice
	costBasis := h.Shares * h.AvgPrice
	gainLoss := currentValue - costBasis

	hv := models.HoldingValue{
		Holding:          h,
		CurrentPrice:     quote.CurrentPrice,
		CurrentValue:     currentValue,
		GainLoss:         gainLoss,
		DayChange:        quote.Change * h.Shares,
		DayChangePercent: quote.ChangePercent,
	}
	if costBasis > 0 {
		hv.GainLossPercent = gainLoss / costBasis * 100
	}
	return hv
}

// mergeHolding folds a new lot into an existing position, computing the
// weighted-average cost basis in decimal so repeated merges do not
// accumulate float drift.
func mergeHolding(oldShares, oldAvg, addShares, addPrice float64) (shares, avgPrice float64) {
	prevShares := decimal.NewFromFloat(oldShares)
	prevAvg := decimal.NewFromFloat(oldAvg)
	lotShares := decimal.NewFromFloat(addShares)
	lotPrice := decimal.NewFromFloat(addPrice)

	totalShares := prevShares.Add(lotShares)
	if totalShares.IsZero() {
		return 0, 0
	}
	totalCost := prevShares.Mul(prevAvg).Add(lotShares.Mul(lotPrice))
	avg := totalCost.Div(totalShares).Round(6)

	shares, _ = totalShares.Float64()
	avgPrice, _ = avg.Float64()
	return shares, avgPrice
}

// holdingSymbols returns the sorted distinct symbols across holdings,
// normalized so case variants collapse into one fetch.
func holdingSymbols(holdings []models.Holding) []string {
	seen := make(map[string]struct{}, len(holdings))
	symbols := make([]string, 0, len(holdings))
	for _, h := range holdings {
		sym := normalizeSymbol(h.Symbol)
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
