package marketdata

import (
	"context"
	"sync"

	"portfolio-tracker/internal/models"
)

// MockProvider returns controllable fixed data for development and
// testing. Symbols without an entry resolve to NoDataError. Call
// counters are safe for concurrent use.
type MockProvider struct {
	Quotes   map[string]*models.Quote
	Bars     map[string][]models.PriceBar
	Results  []models.SearchResult
	Articles []models.NewsArticle

	QuoteErr   error
	HistoryErr error

	mu           sync.Mutex
	QuoteCalls   int
	HistoryCalls int
	SearchCalls  int
	NewsCalls    int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Quote(_ context.Context, symbol string) (*models.Quote, error) {
	m.mu.Lock()
	m.QuoteCalls++
	m.mu.Unlock()

	if m.QuoteErr != nil {
		return nil, m.QuoteErr
	}
	q, ok := m.Quotes[symbol]
	if !ok {
		return nil, &NoDataError{Symbol: symbol}
	}
	out := *q
	return &out, nil
}

func (m *MockProvider) History(_ context.Context, symbol, _, _ string) ([]models.PriceBar, error) {
	m.mu.Lock()
	m.HistoryCalls++
	m.mu.Unlock()

	if m.HistoryErr != nil {
		return nil, m.HistoryErr
	}
	bars, ok := m.Bars[symbol]
	if !ok {
		return nil, &NoDataError{Symbol: symbol}
	}
	return bars, nil
}

func (m *MockProvider) Search(_ context.Context, _ string) ([]models.SearchResult, error) {
	m.mu.Lock()
	m.SearchCalls++
	m.mu.Unlock()
	return m.Results, nil
}

func (m *MockProvider) News(_ context.Context, _ string) ([]models.NewsArticle, error) {
	m.mu.Lock()
	m.NewsCalls++
	m.mu.Unlock()
	return m.Articles, nil
}
