package services

import (
	"context"
	"strings"
	"testing"

	"portfolio-tracker/internal/marketdata"
	"portfolio-tracker/internal/models"
)

func chatServiceWith(t *testing.T, mock *marketdata.MockProvider) *ChatService {
	t.Helper()
	return &ChatService{market: NewMarketService(mock, testConfig(t))}
}

func TestExtractSymbol(t *testing.T) {
	cases := []struct {
		content string
		want    string
	}{
		{"what is AAPL at", "AAPL"},
		{"how is apple doing", ""},
		{"show me the RSI for TSLA", "TSLA"},
		{"I like MSFT more than GOOG", "MSFT"},
		{"hello there", ""},
		{"thoughts on BRK.B?", "BRK"},
		{"is the US economy OK", ""},
	}
	for _, tc := range cases {
		if got := extractSymbol(tc.content); got != tc.want {
			t.Errorf("extractSymbol(%q) = %q, want %q", tc.content, got, tc.want)
		}
	}
}

func TestBuildReply_QuoteIntent(t *testing.T) {
	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{"AAPL": testQuote("AAPL", 150, 1, 0.67)},
	}
	svc := chatServiceWith(t, mock)

	reply := svc.buildReply(context.Background(), "u1", "What is AAPL at right now?")
	if !strings.Contains(reply, "AAPL") || !strings.Contains(reply, "150.00") {
		t.Errorf("quote reply = %q, want symbol and price mentioned", reply)
	}
	if !strings.Contains(reply, "up 0.67%") {
		t.Errorf("quote reply = %q, want day change mentioned", reply)
	}
}

func TestBuildReply_StatsIntent(t *testing.T) {
	closes := rampCloses(130, 100, 0.5)
	mock := &marketdata.MockProvider{
		Quotes: map[string]*models.Quote{"AAPL": testQuote("AAPL", 164.5, 0.5, 0.3)},
		Bars:   map[string][]models.PriceBar{"AAPL": makeBars(closes, 1000000)},
	}
	svc := chatServiceWith(t, mock)

	reply := svc.buildReply(context.Background(), "u1", "Show me the RSI for AAPL")
	if !strings.Contains(reply, "RSI") {
		t.Errorf("stats reply = %q, want RSI mentioned", reply)
	}
	// A monotonic ramp pins RSI at 100.
	if !strings.Contains(reply, "overbought") {
		t.Errorf("stats reply = %q, want overbought commentary", reply)
	}
	if !strings.Contains(reply, "Support near") {
		t.Errorf("stats reply = %q, want support level mentioned", reply)
	}
}

func TestBuildReply_UnknownSymbol(t *testing.T) {
	svc := chatServiceWith(t, &marketdata.MockProvider{})

	reply := svc.buildReply(context.Background(), "u1", "what about ZZZZ")
	if !strings.Contains(reply, "ZZZZ") || !strings.Contains(reply, "couldn't find") {
		t.Errorf("unknown symbol reply = %q, want a gentle miss message", reply)
	}
}

func TestBuildReply_GreetingAndHelp(t *testing.T) {
	svc := chatServiceWith(t, &marketdata.MockProvider{})

	greeting := svc.buildReply(context.Background(), "u1", "hello")
	if !strings.Contains(greeting, "Hello") {
		t.Errorf("greeting reply = %q", greeting)
	}

	help := svc.buildReply(context.Background(), "u1", "what can you do")
	if help != helpReply {
		t.Errorf("default reply = %q, want the help menu", help)
	}
}

func TestFormatValuationReply(t *testing.T) {
	v := &models.PortfolioValuation{
		TotalValue:           600,
		TotalCost:            500,
		TotalGainLoss:        100,
		TotalGainLossPercent: 20,
		Holdings:             []models.HoldingValue{{}},
		SkippedSymbols:       []string{"GONE"},
	}
	reply := formatValuationReply(v)
	if !strings.Contains(reply, "$600.00") {
		t.Errorf("reply = %q, want total value", reply)
	}
	if !strings.Contains(reply, "up $100.00 (20.00%)") {
		t.Errorf("reply = %q, want gain summary", reply)
	}
	if !strings.Contains(reply, "GONE") {
		t.Errorf("reply = %q, want skipped symbols mentioned", reply)
	}

	empty := formatValuationReply(&models.PortfolioValuation{
		Holdings:       []models.HoldingValue{},
		SkippedSymbols: []string{},
	})
	if !strings.Contains(empty, "empty") {
		t.Errorf("empty reply = %q", empty)
	}
}

func TestFormatStatsReply_Oversold(t *testing.T) {
	rsi := 25.0
	st := &models.StockStatistics{
		Symbol:          "DIP",
		CurrentPrice:    42,
		RSI:             &rsi,
		SupportLevel:    40,
		ResistanceLevel: 48,
	}
	reply := formatStatsReply(st)
	if !strings.Contains(reply, "oversold") {
		t.Errorf("reply = %q, want oversold commentary", reply)
	}
}
