package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Quote is a live market snapshot for one symbol. peRatio and dividendYield
// are nil when the provider does not report them.
type Quote struct {
	Symbol        string    `bson:"symbol" json:"symbol"`
	Name          string    `bson:"name" json:"name"`
	CurrentPrice  float64   `bson:"current_price" json:"currentPrice"`
	PreviousClose float64   `bson:"previous_close" json:"previousClose"`
	Change        float64   `bson:"change" json:"change"`
	ChangePercent float64   `bson:"change_percent" json:"changePercent"`
	Volume        int64     `bson:"volume" json:"volume"`
	MarketCap     float64   `bson:"market_cap" json:"marketCap"`
	PERatio       *float64  `bson:"pe_ratio,omitempty" json:"peRatio"`
	DividendYield *float64  `bson:"dividend_yield,omitempty" json:"dividendYield"`
	Sector        string    `bson:"sector" json:"sector"`
	Industry      string    `bson:"industry" json:"industry"`
	High52Week    float64   `bson:"high_52_week" json:"high52Week"`
	Low52Week     float64   `bson:"low_52_week" json:"low52Week"`
	Open          float64   `bson:"open" json:"open"`
	High          float64   `bson:"high" json:"high"`
	Low           float64   `bson:"low" json:"low"`
	Timestamp     time.Time `bson:"timestamp" json:"timestamp"`
}

// PriceBar is one daily OHLCV bar. Bars in a series are ordered ascending
// by date, one bar per trading day.
type PriceBar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adjClose"`
	Volume   int64     `json:"volume"`
}

// Holding is one user's recorded position in a symbol. Repeated adds for
// the same symbol merge into a weighted-average cost basis.
type Holding struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"user_id" json:"userId"`
	Symbol       string             `bson:"symbol" json:"symbol"`
	Shares       float64            `bson:"shares" json:"shares"`
	AvgPrice     float64            `bson:"avg_price" json:"avgPrice"`
	PurchaseDate time.Time          `bson:"purchase_date" json:"purchaseDate"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// HoldingValue is a holding priced against a live quote.
type HoldingValue struct {
	Holding
	CurrentPrice     float64 `json:"currentPrice"`
	CurrentValue     float64 `json:"currentValue"`
	GainLoss         float64 `json:"gainLoss"`
	GainLossPercent  float64 `json:"gainLossPercent"`
	DayChange        float64 `json:"dayChange"`
	DayChangePercent float64 `json:"dayChangePercent"`
}

// PortfolioValuation aggregates priced holdings. Totals cover only holdings
// whose quote resolved; the rest are listed in SkippedSymbols.
type PortfolioValuation struct {
	TotalValue           float64        `json:"totalValue"`
	TotalCost            float64        `json:"totalCost"`
	TotalGainLoss        float64        `json:"totalGainLoss"`
	TotalGainLossPercent float64        `json:"totalGainLossPercent"`
	Holdings             []HoldingValue `json:"holdings"`
	SkippedSymbols       []string       `json:"skippedSymbols"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// Fundamentals carries company-level facts copied from the quote.
type Fundamentals struct {
	MarketCap     float64  `json:"marketCap"`
	PERatio       *float64 `json:"peRatio"`
	DividendYield *float64 `json:"dividendYield"`
	Sector        string   `json:"sector"`
	Industry      string   `json:"industry"`
}

// StockStatistics is the derived technical snapshot for one symbol.
// Indicator fields are nil when there is not enough history to compute
// them, so a real zero is never confused with "no data".
type StockStatistics struct {
	Symbol          string       `json:"symbol"`
	Name            string       `json:"name"`
	CurrentPrice    float64      `json:"currentPrice"`
	PriceChange1D   *float64     `json:"priceChange1D"`
	PriceChange1W   *float64     `json:"priceChange1W"`
	PriceChange1M   *float64     `json:"priceChange1M"`
	PriceChange3M   *float64     `json:"priceChange3M"`
	Volatility      *float64     `json:"volatility"`
	VolumeAvg20     *float64     `json:"volumeAvg20"`
	VolumeRatio     *float64     `json:"volumeRatio"`
	SMA20           *float64     `json:"sma20"`
	SMA50           *float64     `json:"sma50"`
	SMA200          *float64     `json:"sma200"`
	RSI             *float64     `json:"rsi"`
	SupportLevel    float64      `json:"supportLevel"`
	ResistanceLevel float64      `json:"resistanceLevel"`
	Fundamentals    Fundamentals `json:"fundamentals"`
	ComputedAt      time.Time    `json:"computedAt"`
}

// ProjectionPoint is one projected day on a price forecast path.
type ProjectionPoint struct {
	Date     time.Time `json:"date"`
	Expected float64   `json:"expected"`
	Low      float64   `json:"low"`
	High     float64   `json:"high"`
}

// StockProjection is a statistical price forecast for one symbol,
// extrapolated from the drift and volatility of its recent daily
// returns. Low and High bound the central 90% of modeled outcomes.
type StockProjection struct {
	Symbol          string            `json:"symbol"`
	CurrentPrice    float64           `json:"currentPrice"`
	PredictedPrice  float64           `json:"predictedPrice"`
	PredictionDate  time.Time         `json:"predictionDate"`
	ChangePercent   float64           `json:"changePercent"`
	Confidence      float64           `json:"confidence"`
	DaysAhead       int               `json:"daysAhead"`
	DailyDrift      float64           `json:"dailyDrift"`
	DailyVolatility float64           `json:"dailyVolatility"`
	Points          []ProjectionPoint `json:"points"`
	ComputedAt      time.Time         `json:"computedAt"`
}

// SearchResult is one symbol candidate from the search provider.
type SearchResult struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Type     string `json:"type"`
}

// NewsArticle is one curated market news item.
type NewsArticle struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title          string             `bson:"title" json:"title"`
	Publisher      string             `bson:"publisher" json:"publisher"`
	Link           string             `bson:"link" json:"link"`
	Summary        string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Topic          string             `bson:"topic" json:"topic"`
	RelatedSymbols []string           `bson:"related_symbols,omitempty" json:"relatedSymbols,omitempty"`
	PublishedAt    time.Time          `bson:"published_at" json:"publishedAt"`
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
}

// ChatMessage is one turn of the assistant conversation.
type ChatMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"userId"`
	Role      string             `bson:"role" json:"role"` // "user" or "assistant"
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}
