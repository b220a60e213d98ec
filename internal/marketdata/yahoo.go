package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"portfolio-tracker/internal/models"
)

// YahooProvider implements Provider using the Yahoo Finance public API.
type YahooProvider struct {
	client  *resty.Client
	baseURL string
}

// NewYahooProvider creates a Yahoo Finance provider with an explicit
// request timeout on every outbound call.
func NewYahooProvider(baseURL string, timeout time.Duration) *YahooProvider {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	return &YahooProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (p *YahooProvider) Name() string { return "yahoo" }

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []yahooQuote `json:"result"`
		Error  *yahooError  `json:"error"`
	} `json:"quoteResponse"`
}

type yahooQuote struct {
	Symbol                     string   `json:"symbol"`
	LongName                   string   `json:"longName"`
	ShortName                  string   `json:"shortName"`
	RegularMarketPrice         float64  `json:"regularMarketPrice"`
	RegularMarketPreviousClose float64  `json:"regularMarketPreviousClose"`
	RegularMarketChange        float64  `json:"regularMarketChange"`
	RegularMarketChangePercent float64  `json:"regularMarketChangePercent"`
	RegularMarketVolume        int64    `json:"regularMarketVolume"`
	RegularMarketOpen          float64  `json:"regularMarketOpen"`
	RegularMarketDayHigh       float64  `json:"regularMarketDayHigh"`
	RegularMarketDayLow        float64  `json:"regularMarketDayLow"`
	MarketCap                  float64  `json:"marketCap"`
	TrailingPE                 *float64 `json:"trailingPE"`
	DividendYield              *float64 `json:"trailingAnnualDividendYield"`
	FiftyTwoWeekHigh           float64  `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow            float64  `json:"fiftyTwoWeekLow"`
}

// Quote fetches a live quote snapshot for one symbol.
func (p *YahooProvider) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	u := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", p.baseURL, url.QueryEscape(symbol))

	resp, err := p.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, fmt.Errorf("yahoo quote %s: %w", symbol, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("yahoo quote %s: status %d", symbol, resp.StatusCode())
	}

	var qr yahooQuoteResponse
	if err := json.Unmarshal(resp.Body(), &qr); err != nil {
		return nil, fmt.Errorf("yahoo quote %s: decode: %w", symbol, err)
	}
	if qr.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("yahoo quote %s: api error: %s", symbol, qr.QuoteResponse.Error.Description)
	}
	if len(qr.QuoteResponse.Result) == 0 {
		return nil, &NoDataError{Symbol: symbol}
	}

	raw := qr.QuoteResponse.Result[0]
	if raw.RegularMarketPrice == 0 {
		return nil, &NoDataError{Symbol: symbol}
	}

	name := raw.LongName
	if name == "" {
		name = raw.ShortName
	}
	if name == "" {
		name = strings.ToUpper(symbol)
	}

	change := raw.RegularMarketChange
	changePercent := raw.RegularMarketChangePercent
	if change == 0 && changePercent == 0 && raw.RegularMarketPreviousClose > 0 {
		change = raw.RegularMarketPrice - raw.RegularMarketPreviousClose
		changePercent = change / raw.RegularMarketPreviousClose * 100
	}

	sector, industry := p.assetProfile(ctx, symbol)

	return &models.Quote{
		Symbol:        strings.ToUpper(raw.Symbol),
		Name:          name,
		CurrentPrice:  raw.RegularMarketPrice,
		PreviousClose: raw.RegularMarketPreviousClose,
		Change:        change,
		ChangePercent: changePercent,
		Volume:        raw.RegularMarketVolume,
		MarketCap:     raw.MarketCap,
		PERatio:       raw.TrailingPE,
		DividendYield: raw.DividendYield,
		Sector:        sector,
		Industry:      industry,
		High52Week:    raw.FiftyTwoWeekHigh,
		Low52Week:     raw.FiftyTwoWeekLow,
		Open:          raw.RegularMarketOpen,
		High:          raw.RegularMarketDayHigh,
		Low:           raw.RegularMarketDayLow,
		Timestamp:     time.Now(),
	}, nil
}

type yahooSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

// assetProfile fetches sector and industry for a symbol, degrading to
// "Unknown" when the profile is missing (indexes, ETFs, new listings).
func (p *YahooProvider) assetProfile(ctx context.Context, symbol string) (string, string) {
	sector, industry := "Unknown", "Unknown"

	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=assetProfile",
		p.baseURL, url.PathEscape(symbol))

	resp, err := p.client.R().SetContext(ctx).Get(u)
	if err != nil || resp.StatusCode() != http.StatusOK {
		return sector, industry
	}

	var sr yahooSummaryResponse
	if err := json.Unmarshal(resp.Body(), &sr); err != nil {
		return sector, industry
	}
	if sr.QuoteSummary.Error != nil || len(sr.QuoteSummary.Result) == 0 {
		return sector, industry
	}

	profile := sr.QuoteSummary.Result[0].AssetProfile
	if profile.Sector != "" {
		sector = profile.Sector
	}
	if profile.Industry != "" {
		industry = profile.Industry
	}
	return sector, industry
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// History fetches OHLCV bars for a symbol. Null bars (holidays, halted
// sessions) are skipped and the result is sorted ascending by date.
func (p *YahooProvider) History(ctx context.Context, symbol, rng, interval string) ([]models.PriceBar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=%s",
		p.baseURL, url.PathEscape(symbol), url.QueryEscape(rng), url.QueryEscape(interval))

	resp, err := p.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, &NoDataError{Symbol: symbol}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("yahoo chart %s: status %d", symbol, resp.StatusCode())
	}

	var chart yahooChartResponse
	if err := json.Unmarshal(resp.Body(), &chart); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: decode: %w", symbol, err)
	}
	if chart.Chart.Error != nil {
		return nil, &NoDataError{Symbol: symbol}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, &NoDataError{Symbol: symbol}
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, &NoDataError{Symbol: symbol}
	}
	quote := result.Indicators.Quote[0]

	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]models.PriceBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil || *quote.Close[i] <= 0 {
			continue // null bar
		}
		close := *quote.Close[i]
		adjClose := close
		if i < len(adj) && adj[i] != nil {
			adjClose = *adj[i]
		}
		bars = append(bars, models.PriceBar{
			Date:     time.Unix(ts, 0).UTC(),
			Open:     floatAt(quote.Open, i),
			High:     floatAt(quote.High, i),
			Low:      floatAt(quote.Low, i),
			Close:    close,
			AdjClose: adjClose,
			Volume:   intAt(quote.Volume, i),
		})
	}
	if len(bars) == 0 {
		return nil, &NoDataError{Symbol: symbol}
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars, nil
}

func floatAt(vals []*float64, i int) float64 {
	if i < len(vals) && vals[i] != nil {
		return *vals[i]
	}
	return 0
}

func intAt(vals []*int64, i int) int64 {
	if i < len(vals) && vals[i] != nil {
		return *vals[i]
	}
	return 0
}

type yahooSearchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
		ExchDisp  string `json:"exchDisp"`
		QuoteType string `json:"quoteType"`
	} `json:"quotes"`
	News []struct {
		Title               string   `json:"title"`
		Publisher           string   `json:"publisher"`
		Link                string   `json:"link"`
		ProviderPublishTime int64    `json:"providerPublishTime"`
		RelatedTickers      []string `json:"relatedTickers"`
	} `json:"news"`
}

func (p *YahooProvider) search(ctx context.Context, query string, quotes, news int) (*yahooSearchResponse, error) {
	u := fmt.Sprintf("%s/v1/finance/search?q=%s&quotesCount=%d&newsCount=%d",
		p.baseURL, url.QueryEscape(query), quotes, news)

	resp, err := p.client.R().SetContext(ctx).Get(u)
	if err != nil {
		return nil, fmt.Errorf("yahoo search %q: %w", query, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("yahoo search %q: status %d", query, resp.StatusCode())
	}

	var sr yahooSearchResponse
	if err := json.Unmarshal(resp.Body(), &sr); err != nil {
		return nil, fmt.Errorf("yahoo search %q: decode: %w", query, err)
	}
	return &sr, nil
}

// Search returns symbol candidates matching the query. An empty result
// is not an error.
func (p *YahooProvider) Search(ctx context.Context, query string) ([]models.SearchResult, error) {
	sr, err := p.search(ctx, query, 10, 0)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(sr.Quotes))
	for _, q := range sr.Quotes {
		if q.Symbol == "" {
			continue
		}
		name := q.LongName
		if name == "" {
			name = q.ShortName
		}
		results = append(results, models.SearchResult{
			Symbol:   q.Symbol,
			Name:     name,
			Exchange: q.ExchDisp,
			Type:     q.QuoteType,
		})
	}
	return results, nil
}

// News returns recent articles for a topic.
func (p *YahooProvider) News(ctx context.Context, topic string) ([]models.NewsArticle, error) {
	sr, err := p.search(ctx, topic, 0, 10)
	if err != nil {
		return nil, err
	}

	articles := make([]models.NewsArticle, 0, len(sr.News))
	for _, n := range sr.News {
		if n.Title == "" || n.Link == "" {
			continue
		}
		articles = append(articles, models.NewsArticle{
			Title:          n.Title,
			Publisher:      n.Publisher,
			Link:           n.Link,
			Topic:          topic,
			RelatedSymbols: n.RelatedTickers,
			PublishedAt:    time.Unix(n.ProviderPublishTime, 0).UTC(),
			CreatedAt:      time.Now(),
		})
	}
	return articles, nil
}
