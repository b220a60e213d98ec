package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"
	"unicode"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"portfolio-tracker/config"
	"portfolio-tracker/internal/models"
)

const helpReply = "I can help with your portfolio (\"how is my portfolio doing\"), " +
	"quotes (\"what is AAPL at\"), technicals (\"show me TSLA stats\") and market news."

const fallbackReply = "Sorry, I couldn't pull that data right now. Please try again shortly."

// chatStopwords are uppercase words that look like tickers but are not.
var chatStopwords = map[string]bool{
	"A": true, "I": true, "OK": true, "US": true, "USA": true, "CEO": true,
	"RSI": true, "SMA": true, "ETF": true, "USD": true, "NEWS": true, "IPO": true,
}

// ChatService answers portfolio questions with canned, data-backed
// replies. It is keyword-routed rather than a language model: intents
// map to live quote, statistics, valuation or news lookups and the
// reply is formatted from whatever data resolves.
type ChatService struct {
	messages  *mongo.Collection
	market    *MarketService
	portfolio *PortfolioService
	news      *NewsService
}

func NewChatService(market *MarketService, portfolio *PortfolioService, news *NewsService) *ChatService {
	return &ChatService{
		messages:  config.GetCollection("chat_messages"),
		market:    market,
		portfolio: portfolio,
		news:      news,
	}
}

// Respond stores the user's message, builds a reply and stores that
// too. Failed data lookups degrade to a canned reply; the chat never
// surfaces provider errors to the user.
func (s *ChatService) Respond(ctx context.Context, userID, content string) (*models.ChatMessage, error) {
	userMsg := models.ChatMessage{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Role:      "user",
		Content:   content,
		CreatedAt: time.Now(),
	}
	if _, err := s.messages.InsertOne(ctx, userMsg); err != nil {
		return nil, err
	}

	reply := models.ChatMessage{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Role:      "assistant",
		Content:   s.buildReply(ctx, userID, content),
		CreatedAt: time.Now(),
	}
	if _, err := s.messages.InsertOne(ctx, reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// History returns the user's most recent messages in chronological order.
func (s *ChatService) History(ctx context.Context, userID string, limit int64) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)
	cur, err := s.messages.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	msgs := make([]models.ChatMessage, 0)
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	// The query returns newest first, flip to chronological.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *ChatService) buildReply(ctx context.Context, userID, content string) string {
	lower := strings.ToLower(content)
	symbol := extractSymbol(content)

	switch {
	case symbol != "" && containsAny(lower, "rsi", "trend", "technical", "statistics", "stats", "analysis", "volatility", "support", "resistance"):
		return s.statsReply(ctx, symbol)
	case symbol != "":
		return s.quoteReply(ctx, symbol)
	case containsAny(lower, "portfolio", "worth", "gain", "loss", "performance", "holdings"):
		return s.portfolioReply(ctx, userID)
	case containsAny(lower, "news", "headline", "headlines"):
		return s.newsReply(ctx)
	case containsAny(lower, "hello", "hey") || lower == "hi" || strings.HasPrefix(lower, "hi "):
		return "Hello! Ask me about your portfolio, any stock symbol, or the latest market news."
	default:
		return helpReply
	}
}

func (s *ChatService) portfolioReply(ctx context.Context, userID string) string {
	v, err := s.portfolio.GetValuation(ctx, userID)
	if err != nil {
		log.Printf("Error valuing portfolio for chat: %v", err)
		return fallbackReply
	}
	return formatValuationReply(v)
}

func (s *ChatService) quoteReply(ctx context.Context, symbol string) string {
	quote, err := s.market.GetQuote(ctx, symbol)
	if err != nil {
		return fmt.Sprintf("I couldn't find market data for %s. Double-check the symbol?", symbol)
	}
	return formatQuoteReply(quote)
}

func (s *ChatService) statsReply(ctx context.Context, symbol string) string {
	stats, err := s.market.GetStatistics(ctx, symbol)
	if err != nil {
		return fmt.Sprintf("I couldn't find market data for %s. Double-check the symbol?", symbol)
	}
	return formatStatsReply(stats)
}

func (s *ChatService) newsReply(ctx context.Context) string {
	articles, err := s.news.List(ctx, 3)
	if err != nil || len(articles) == 0 {
		return "No market headlines on hand right now. Try again in a bit."
	}
	var b strings.Builder
	b.WriteString("Here's what's moving markets:")
	for _, a := range articles {
		fmt.Fprintf(&b, "\n- %s (%s)", a.Title, a.Publisher)
	}
	return b.String()
}

func formatValuationReply(v *models.PortfolioValuation) string {
	if len(v.Holdings) == 0 && len(v.SkippedSymbols) == 0 {
		return "Your portfolio is empty. Add a holding and I can track it for you."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Your portfolio is worth $%.2f across %d holdings.", v.TotalValue, len(v.Holdings))
	if v.TotalCost > 0 {
		direction := "up"
		if v.TotalGainLoss < 0 {
			direction = "down"
		}
		fmt.Fprintf(&b, " You are %s $%.2f (%.2f%%) overall.",
			direction, math.Abs(v.TotalGainLoss), math.Abs(v.TotalGainLossPercent))
	}
	if len(v.SkippedSymbols) > 0 {
		fmt.Fprintf(&b, " I couldn't price: %s.", strings.Join(v.SkippedSymbols, ", "))
	}
	return b.String()
}

func formatQuoteReply(q *models.Quote) string {
	direction := "up"
	if q.Change < 0 {
		direction = "down"
	}
	return fmt.Sprintf("%s (%s) is trading at $%.2f, %s %.2f%% today.",
		q.Name, q.Symbol, q.CurrentPrice, direction, math.Abs(q.ChangePercent))
}

func formatStatsReply(st *models.StockStatistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is at $%.2f.", st.Symbol, st.CurrentPrice)
	if st.RSI != nil {
		fmt.Fprintf(&b, " 14-day RSI is %.1f", *st.RSI)
		switch {
		case *st.RSI > 70:
			b.WriteString(" (overbought territory).")
		case *st.RSI < 30:
			b.WriteString(" (oversold territory).")
		default:
			b.WriteString(" (neutral).")
		}
	}
	if st.SMA20 != nil && st.SMA50 != nil {
		trend := "uptrend"
		relation := "above"
		if *st.SMA20 < *st.SMA50 {
			trend = "downtrend"
			relation = "below"
		}
		fmt.Fprintf(&b, " The 20-day average is %s the 50-day, a short-term %s.", relation, trend)
	}
	fmt.Fprintf(&b, " Support near $%.2f, resistance near $%.2f.", st.SupportLevel, st.ResistanceLevel)
	return b.String()
}

// extractSymbol picks the first token written like a ticker: one to
// five letters, all uppercase in the raw message.
func extractSymbol(content string) string {
	tokens := strings.FieldsFunc(content, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		if len(tok) < 1 || len(tok) > 5 {
			continue
		}
		if tok != strings.ToUpper(tok) || tok == strings.ToLower(tok) {
			continue
		}
		if chatStopwords[tok] {
			continue
		}
		return tok
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
